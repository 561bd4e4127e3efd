// Package app wires together the HTTP API, the WebSocket hub, the trigger
// dispatcher and, in demo mode, the synthetic alert generator. It owns the
// daemon's lifecycle and is the single source of truth for its state.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/astro"
	"github.com/large-farva/fast-trigger/internal/calibrator"
	"github.com/large-farva/fast-trigger/internal/config"
	"github.com/large-farva/fast-trigger/internal/demo"
	"github.com/large-farva/fast-trigger/internal/dispatch"
	"github.com/large-farva/fast-trigger/internal/lcu"
	"github.com/large-farva/fast-trigger/internal/station"
	"github.com/large-farva/fast-trigger/internal/telemetry"
	"github.com/large-farva/fast-trigger/internal/trigger"
	"github.com/large-farva/fast-trigger/internal/ws"
)

const StateBooting = "BOOTING"

// Options holds everything the App needs from the caller.
type Options struct {
	Logger zerolog.Logger
	Cfg    config.Config
	Bind   string // overrides Cfg.Server.Bind when set

	// Hub is created when nil. The daemon passes its own so log records
	// can be mirrored onto it.
	Hub *ws.Hub
	// Registry is a fresh prometheus registry when nil.
	Registry *prometheus.Registry
	// Stations replaces the registry built from Cfg.Stations. Tests use it
	// to inject fake probes and notifiers.
	Stations *station.Registry
	// Submitter replaces the LCU submitter.
	Submitter trigger.Submitter
	// Ephemeris defaults to astro.Sidereal.
	Ephemeris astro.Ephemeris
	// Catalog replaces the calibrators chosen by trigger.calibrators.
	Catalog calibrator.Catalog
}

// App is the top-level daemon process.
type App struct {
	log    zerolog.Logger
	cfg    config.Config
	bind   string
	server *http.Server

	startedAt time.Time
	state     atomic.Value // BOOTING, IDLE, PROCESSING, PAUSED

	hub        *ws.Hub
	metrics    *telemetry.Collector
	stations   *station.Registry
	eph        astro.Ephemeris
	catalog    calibrator.Catalog
	dispatcher *dispatch.Dispatcher
	closers    func()
}

// New builds the station registry and the request pipeline. The App starts
// in the BOOTING state; call Run to serve.
func New(opts Options) (*App, error) {
	cfg := opts.Cfg
	logger := opts.Logger

	hub := opts.Hub
	if hub == nil {
		hub = ws.NewHub(logger)
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics, err := telemetry.NewCollector(reg, hub)
	if err != nil {
		return nil, err
	}

	a := &App{
		log:       logger.With().Str("component", "triggerd").Logger(),
		cfg:       cfg,
		bind:      opts.Bind,
		startedAt: time.Now(),
		hub:       hub,
		metrics:   metrics,
		eph:       opts.Ephemeris,
		closers:   func() {},
	}
	if a.eph == nil {
		a.eph = astro.Sidereal{}
	}
	a.catalog = opts.Catalog
	if a.catalog == nil {
		if a.catalog, err = cfg.Catalog(); err != nil {
			return nil, err
		}
	}
	a.state.Store(StateBooting)

	submitter := opts.Submitter
	a.stations = opts.Stations
	if a.stations == nil {
		w, err := buildStations(cfg, logger)
		if err != nil {
			return nil, err
		}
		a.stations = w.registry
		a.closers = w.close
		if submitter == nil {
			submitter = lcu.NewSubmitter(w.runners, lcuSettings(cfg), logger)
		}
	}
	if submitter == nil {
		submitter = lcu.NewSubmitter(nil, lcuSettings(cfg), logger)
	}

	orch := trigger.New(trigger.Options{
		Ephemeris:   a.eph,
		Catalog:     a.catalog,
		Layout:      cfg.Beams,
		Submitter:   submitter,
		Observer:    metrics,
		Logger:      logger,
		AntennaSet:  cfg.Trigger.AntennaSet,
		RCUMode:     cfg.Trigger.RCUMode,
		CallTimeout: time.Duration(cfg.Trigger.CallTimeoutSeconds) * time.Second,
	})
	a.dispatcher = dispatch.New(a.stations, orch, dispatch.Defaults{
		Duration: time.Duration(cfg.Trigger.DurationSeconds) * time.Second,
		Debug:    cfg.Trigger.Debug,
	}, hub, logger, cfg.Trigger.QueueSize)

	return a, nil
}

// Router builds the HTTP handler tree.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.Middleware)
	r.Use(a.accessLog)

	r.Get("/healthz", a.handleHealthz)
	r.Handle("/metrics", a.metrics.Handler())
	r.Handle("/ws", a.hub.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", a.handleStatus)
		r.Get("/version", a.handleVersion)
		r.Get("/config", a.handleConfig)

		r.Get("/stations", a.handleStations)
		r.Route("/stations/{name}", func(r chi.Router) {
			r.Get("/", a.handleStation)
			r.Get("/visibility", a.handleVisibility)
			r.Post("/trigger", a.handleTrigger)
			r.Post("/voevent", a.handleVOEvent)
		})

		r.Post("/dispatcher/pause", a.handleDispatcherCommand(dispatch.CmdPause))
		r.Post("/dispatcher/resume", a.handleDispatcherCommand(dispatch.CmdResume))
	})
	return r
}

// Run starts the HTTP server, WebSocket hub, heartbeat ticker, dispatcher
// and, when enabled, the demo generator. It blocks until ctx is cancelled
// or the server fails.
func (a *App) Run(ctx context.Context) error {
	defer a.closers()

	bind := a.bind
	if bind == "" {
		bind = a.cfg.Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	a.server = &http.Server{
		Addr:              bind,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Info().Str("addr", "http://"+bind).Strs("stations", a.stations.Names()).Msg("listening")

	go a.hub.Run(ctx)
	go a.dispatcher.Run(ctx, a.transition)
	go a.heartbeatLoop(ctx)

	if a.cfg.Demo.Enabled {
		r := demo.New(a.dispatcher, a.stations.Names(), a.cfg.Demo.Seed, a.log)
		if a.cfg.Demo.IntervalSeconds > 0 {
			r.Interval = time.Duration(a.cfg.Demo.IntervalSeconds) * time.Second
		}
		r.Duration = time.Duration(a.cfg.Trigger.DurationSeconds) * time.Second
		go r.Run(ctx)
	}

	go func() {
		<-ctx.Done()
		a.log.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
	}()

	if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// State returns the current daemon state.
func (a *App) State() string { return a.state.Load().(string) }

// transition updates the daemon state and broadcasts the change to all
// connected WebSocket clients.
func (a *App) transition(newState string) {
	old := a.state.Swap(newState).(string)
	if old == newState {
		return
	}
	a.hub.BroadcastJSON(telemetry.NewStateTransition(old, newState))
}

// heartbeatLoop sends a periodic heartbeat so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.hub.BroadcastJSON(telemetry.NewHeartbeat(a.State(), time.Since(a.startedAt), a.dispatcher.Processed()))
		}
	}
}

func (a *App) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}
