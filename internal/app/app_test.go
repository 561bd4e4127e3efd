package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/astro"
	"github.com/large-farva/fast-trigger/internal/config"
	"github.com/large-farva/fast-trigger/internal/dispatch"
	"github.com/large-farva/fast-trigger/internal/station"
	"github.com/large-farva/fast-trigger/internal/trigger"
)

// zenith puts every source high in the sky.
type zenith struct{}

func (zenith) AltAz(astro.Equatorial, astro.Site, time.Time) astro.Horizontal {
	return astro.Horizontal{Alt: 80}
}

func (zenith) Separation(a, b astro.Equatorial) float64 {
	return astro.Sidereal{}.Separation(a, b)
}

type submissions struct {
	mu     sync.Mutex
	dryRun []bool
}

func (s *submissions) Submit(_ context.Context, _ station.Descriptor, _ trigger.ObservationRequest, dryRun bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dryRun = append(s.dryRun, dryRun)
	return nil
}

func (s *submissions) list() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.dryRun...)
}

type harness struct {
	app    *App
	server *httptest.Server
	subs   *submissions
	sent   chan station.Notification
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessConfig(t, config.Default())
}

func newHarnessConfig(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	h := &harness{subs: &submissions{}, sent: make(chan station.Notification, 8)}

	notifier := station.NotifierFunc(func(_ context.Context, n station.Notification) error {
		h.sent <- n
		return nil
	})
	st, err := station.New(
		station.Chilbolton(station.Contact{Name: "Duty"}, []station.Contact{{Name: "Ops", Email: "ops@example.org"}}),
		station.StaticProbe{State: station.Available, Message: "idle"},
		notifier,
	)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := station.NewRegistry(st)
	if err != nil {
		t.Fatal(err)
	}

	a, err := New(Options{
		Logger:    zerolog.Nop(),
		Cfg:       cfg,
		Stations:  reg,
		Submitter: h.subs,
		Ephemeris: zenith{},
	})
	if err != nil {
		t.Fatal(err)
	}
	h.app = a

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go a.dispatcher.Run(ctx, a.transition)

	h.server = httptest.NewServer(a.Router())
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(b) != "ok\n" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, b)
	}
}

func TestStatusAndStations(t *testing.T) {
	h := newHarness(t)

	code, status := h.do(t, http.MethodGet, "/api/status", "")
	if code != http.StatusOK || status["name"] != "fast-trigger" || status["paused"] != false {
		t.Fatalf("status = %d %v", code, status)
	}

	code, list := h.do(t, http.MethodGet, "/api/stations", "")
	stations, _ := list["stations"].([]any)
	if code != http.StatusOK || len(stations) != 1 {
		t.Fatalf("stations = %d %v", code, list)
	}

	code, one := h.do(t, http.MethodGet, "/api/stations/CHILBOLTON?probe=true", "")
	if code != http.StatusOK || one["key"] != "chilbolton" || one["availability"] != "ok" || one["probe_message"] != "idle" {
		t.Fatalf("station = %d %v", code, one)
	}

	if code, _ := h.do(t, http.MethodGet, "/api/stations/dwingeloo", ""); code != http.StatusNotFound {
		t.Fatalf("unknown station = %d", code)
	}
}

func TestVisibility(t *testing.T) {
	h := newHarness(t)

	code, v := h.do(t, http.MethodGet, "/api/stations/chilbolton/visibility?ra=12:30:49.42&dec=%2B12:23:28.04&duration_seconds=600", "")
	if code != http.StatusOK {
		t.Fatalf("visibility = %d %v", code, v)
	}
	if v["visible"] != true || v["visible_throughout"] != true || v["calibrator"] == nil {
		t.Fatalf("visibility = %v", v)
	}
	if cands, _ := v["candidates"].([]any); len(cands) != 6 {
		t.Fatalf("candidates = %v", v["candidates"])
	}
	if len(h.subs.list()) != 0 {
		t.Fatal("visibility must not submit")
	}

	if code, _ := h.do(t, http.MethodGet, "/api/stations/chilbolton/visibility?ra=1&dec=95", ""); code != http.StatusBadRequest {
		t.Fatalf("bad dec = %d", code)
	}
}

func TestVisibilityUsesConfiguredCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Trigger.Calibrators = []string{"3C286", "3C295"}
	h := newHarnessConfig(t, cfg)

	_, status := h.do(t, http.MethodGet, "/api/status", "")
	if cals, _ := status["calibrators"].([]any); len(cals) != 2 || cals[0] != "3C286" {
		t.Fatalf("status calibrators = %v", status["calibrators"])
	}

	const base = "/api/stations/chilbolton/visibility?ra=12:30:49.42&dec=%2B12:23:28.04"
	_, v := h.do(t, http.MethodGet, base, "")
	if cands, _ := v["candidates"].([]any); len(cands) != 2 {
		t.Fatalf("candidates = %v", v["candidates"])
	}

	_, v = h.do(t, http.MethodGet, base+"&calibrator=3c295", "")
	if cands, _ := v["candidates"].([]any); len(cands) != 1 || v["calibrator"] != "3C295" {
		t.Fatalf("override = %v", v)
	}

	if code, _ := h.do(t, http.MethodGet, base+"&calibrator=3C48", ""); code != http.StatusBadRequest {
		t.Fatalf("calibrator outside the configured set = %d", code)
	}
}

func TestTriggerDefaultsToDryRun(t *testing.T) {
	h := newHarness(t)

	code, res := h.do(t, http.MethodPost, "/api/stations/chilbolton/trigger",
		`{"ivorn":"ivo://nasa.gsfc.gcn/SWIFT#BAT_GRB_Pos_517234-259","ra":"187.7059","dec":"12.3911","duration_seconds":900}`)
	if code != http.StatusOK || res["ok"] != true {
		t.Fatalf("trigger = %d %v", code, res)
	}
	out, _ := res["outcome"].(map[string]any)
	if out["status"] != float64(trigger.StatusDryRun) || out["target"] != "SWIFT_517234-259" || out["debug"] != true {
		t.Fatalf("outcome = %v", out)
	}
	if got := h.subs.list(); len(got) != 1 || !got[0] {
		t.Fatalf("submissions = %v", got)
	}

	select {
	case n := <-h.sent:
		if !strings.Contains(n.Subject, "DEBUG") || len(n.Recipients) != 1 {
			t.Fatalf("notification = %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification sent")
	}

	_, status := h.do(t, http.MethodGet, "/api/status", "")
	if status["processed"] != float64(1) || status["last"] == nil {
		t.Fatalf("status = %v", status)
	}
}

func TestTriggerRejectsBadInput(t *testing.T) {
	h := newHarness(t)

	if code, _ := h.do(t, http.MethodPost, "/api/stations/chilbolton/trigger", `{`); code != http.StatusBadRequest {
		t.Fatalf("bad json = %d", code)
	}
	code, res := h.do(t, http.MethodPost, "/api/stations/chilbolton/trigger", `{"ra":"1","dec":"-91"}`)
	if code != http.StatusBadRequest || res["ok"] != false {
		t.Fatalf("bad coords = %d %v", code, res)
	}
	if code, _ := h.do(t, http.MethodPost, "/api/stations/nowhere/trigger", `{"ra":"1","dec":"1"}`); code != http.StatusNotFound {
		t.Fatalf("unknown station = %d", code)
	}
	if len(h.subs.list()) != 0 {
		t.Fatal("submitter called for rejected input")
	}
}

const testPacket = `<?xml version="1.0" encoding="UTF-8"?>
<voe:VOEvent xmlns:voe="http://www.ivoa.net/xml/VOEvent/v2.0" ivorn="ivo://nasa.gsfc.gcn/SWIFT#BAT_GRB_Pos_600001-100" role="test" version="2.0">
  <WhereWhen>
    <ObsDataLocation>
      <ObservationLocation>
        <AstroCoords coord_system_id="UTC-FK5-GEO">
          <Time unit="s"><TimeInstant><ISOTime>2014-01-01T00:00:00</ISOTime></TimeInstant></Time>
          <Position2D unit="deg">
            <Value2><C1>83.6331</C1><C2>22.0145</C2></Value2>
            <Error2Radius>0.05</Error2Radius>
          </Position2D>
        </AstroCoords>
      </ObservationLocation>
    </ObsDataLocation>
  </WhereWhen>
</voe:VOEvent>`

func TestVOEventTestRoleForcesDebug(t *testing.T) {
	h := newHarness(t)

	code, res := h.do(t, http.MethodPost, "/api/stations/chilbolton/voevent?debug=false", testPacket)
	if code != http.StatusOK {
		t.Fatalf("voevent = %d %v", code, res)
	}
	out, _ := res["outcome"].(map[string]any)
	if out["debug"] != true || out["target"] != "SWIFT_600001-100" {
		t.Fatalf("outcome = %v", out)
	}
	if got := h.subs.list(); len(got) != 1 || !got[0] {
		t.Fatalf("submissions = %v", got)
	}

	if code, _ := h.do(t, http.MethodPost, "/api/stations/chilbolton/voevent", `<VOEvent ivorn="ivo://example/none" role="test"/>`); code != http.StatusUnprocessableEntity {
		t.Fatalf("packet without position = %d", code)
	}
}

func TestPauseBlocksTriggers(t *testing.T) {
	h := newHarness(t)

	if code, res := h.do(t, http.MethodPost, "/api/dispatcher/pause", ""); code != http.StatusOK || res["ok"] != true {
		t.Fatalf("pause = %d %v", code, res)
	}
	if h.app.State() != dispatch.StatePaused {
		t.Fatalf("state = %s", h.app.State())
	}
	code, res := h.do(t, http.MethodPost, "/api/stations/chilbolton/trigger", `{"ra":"1","dec":"1"}`)
	if code != http.StatusConflict || res["error"] != dispatch.ErrPaused.Error() {
		t.Fatalf("trigger while paused = %d %v", code, res)
	}
	if code, _ := h.do(t, http.MethodPost, "/api/dispatcher/resume", ""); code != http.StatusOK {
		t.Fatalf("resume = %d", code)
	}
	if h.app.State() != dispatch.StateIdle {
		t.Fatalf("state = %s", h.app.State())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/api/stations/chilbolton/trigger", `{"ra":"1","dec":"1"}`)

	resp, err := http.Get(h.server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`fasttrigger_requests_total{station="chilbolton",status="1"} 1`,
		`fasttrigger_http_requests_total{code="200",method="POST",route="/api/stations/{name}/trigger"} 1`,
	} {
		if !strings.Contains(string(b), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestBuildStationsFromDefaultConfig(t *testing.T) {
	w, err := buildStations(config.Default(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer w.close()
	if got := w.registry.Names(); len(got) != 2 || got[0] != "chilbolton" || got[1] != "nancay" {
		t.Fatalf("names = %v", got)
	}
	st, _ := w.registry.Get("nancay")
	res, err := st.Probe.Check(context.Background())
	if err != nil || res.State != station.Available {
		t.Fatalf("probe = %+v %v", res, err)
	}
	if len(w.runners) != 0 {
		t.Fatalf("runners = %v", w.runners)
	}
}
