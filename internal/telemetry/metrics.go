package telemetry

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/large-farva/fast-trigger/internal/trigger"
)

// Broadcaster is the part of the WebSocket hub the collector needs.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Collector counts requests and stage outcomes and mirrors them to the
// event stream. It implements trigger.Observer.
type Collector struct {
	gatherer prometheus.Gatherer
	events   Broadcaster

	Requests *prometheus.CounterVec
	Stages   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	HTTP     *prometheus.CounterVec
}

// NewCollector registers the trigger metrics against reg, defaulting to the
// global registry when nil. events may be nil.
func NewCollector(reg prometheus.Registerer, events Broadcaster) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fasttrigger_requests_total",
		Help: "Trigger requests by station and final status code.",
	}, []string{"station", "status"})
	stages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fasttrigger_stage_outcomes_total",
		Help: "Pipeline stage completions by station, stage and outcome.",
	}, []string{"station", "stage", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fasttrigger_request_duration_seconds",
		Help:    "Wall time from request receipt to notification.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"station"})
	api := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fasttrigger_http_requests_total",
		Help: "API requests by method, route pattern and status code.",
	}, []string{"method", "route", "code"})

	for _, c := range []prometheus.Collector{requests, stages, duration, api} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return &Collector{
		gatherer: gatherer,
		events:   events,
		Requests: requests,
		Stages:   stages,
		Duration: duration,
		HTTP:     api,
	}, nil
}

// StageCompleted implements trigger.Observer.
func (c *Collector) StageCompleted(stationKey string, stage trigger.Stage, outcome string) {
	c.Stages.WithLabelValues(stationKey, string(stage), outcome).Inc()
	if c.events != nil {
		c.events.BroadcastJSON(StageEvent{
			Event:   envelope(EventStage),
			Station: stationKey,
			Stage:   string(stage),
			Outcome: outcome,
		})
	}
}

// RequestCompleted implements trigger.Observer.
func (c *Collector) RequestCompleted(stationKey, target string, status trigger.Status, elapsed time.Duration) {
	c.Requests.WithLabelValues(stationKey, strconv.Itoa(int(status))).Inc()
	c.Duration.WithLabelValues(stationKey).Observe(elapsed.Seconds())
	if c.events != nil {
		c.events.BroadcastJSON(RequestEvent{
			Event:      envelope(EventRequest),
			Station:    stationKey,
			Target:     target,
			Status:     int(status),
			StatusText: status.String(),
			ElapsedMS:  elapsed.Milliseconds(),
		})
	}
}

// Handler exposes the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
