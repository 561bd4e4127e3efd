package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/large-farva/fast-trigger/internal/trigger"
)

type captured struct{ events []any }

func (c *captured) BroadcastJSON(v any) { c.events = append(c.events, v) }

func TestCollectorCountsAndBroadcasts(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := &captured{}
	c, err := NewCollector(reg, sink)
	if err != nil {
		t.Fatal(err)
	}

	c.StageCompleted("chilbolton", trigger.StageAvailability, "busy")
	c.StageCompleted("chilbolton", trigger.StageNotify, "ok")
	c.RequestCompleted("chilbolton", "SWIFT_1", trigger.StatusBusy, 120*time.Millisecond)

	if got := testutil.ToFloat64(c.Requests.WithLabelValues("chilbolton", "-2")); got != 1 {
		t.Fatalf("requests = %v", got)
	}
	if got := testutil.ToFloat64(c.Stages.WithLabelValues("chilbolton", "availability", "busy")); got != 1 {
		t.Fatalf("stages = %v", got)
	}
	if len(sink.events) != 3 {
		t.Fatalf("events = %d", len(sink.events))
	}
	ev, ok := sink.events[2].(RequestEvent)
	if !ok || ev.StatusText != "station_busy" || ev.ElapsedMS != 120 || ev.Type != EventRequest {
		t.Fatalf("request event = %+v", sink.events[2])
	}
}

func TestCollectorRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCollector(reg, nil); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestCollectorHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.RequestCompleted("nancay", "4PISKY", trigger.StatusDryRun, time.Second)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `fasttrigger_requests_total{station="nancay",status="1"} 1`) {
		t.Fatalf("metrics output:\n%s", body)
	}
}
