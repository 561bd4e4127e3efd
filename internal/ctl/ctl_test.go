package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeDaemon answers the handful of routes the client uses.
func fakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(StatusResponse{
			Name: "fast-trigger", State: "IDLE", Mode: "live", UptimeSeconds: 3725,
			Processed: 4, DebugDefault: true, Stations: []string{"chilbolton", "nancay"},
			Calibrators: []string{"3C196", "3C295"},
		})
	})
	mux.HandleFunc("/api/stations", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"stations": []StationInfo{
			{Key: "chilbolton", Name: "LOFAR UK", ShortName: "Chilbolton", Latitude: 51.1, Longitude: -1.4, MinElevation: 10},
		}})
	})
	mux.HandleFunc("/api/stations/chilbolton", func(w http.ResponseWriter, r *http.Request) {
		st := StationInfo{Key: "chilbolton", ShortName: "Chilbolton", MinElevation: 10}
		if r.URL.Query().Get("probe") == "true" {
			st.Availability = "busy"
			st.ProbeMessage = "lock held"
		}
		_ = json.NewEncoder(w).Encode(st)
	})
	mux.HandleFunc("/api/stations/nowhere", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error":"unknown station: nowhere"}`))
	})
	mux.HandleFunc("/api/stations/chilbolton/trigger", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["dec"] == "95" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error":"invalid equatorial coordinates"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(CommandResult{OK: true, Outcome: &Outcome{
			RequestID: "abc", Station: "chilbolton", Target: "4PISKY", Status: 1, StatusText: "not_sent",
			Calibrator: "3C196", Debug: true, Message: "line one\nline two",
		}})
	})
	mux.HandleFunc("/api/stations/chilbolton/voevent", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if r.URL.Query().Get("debug") != "true" || !bytes.Contains(b, []byte("VOEvent")) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(CommandResult{OK: true, Outcome: &Outcome{Station: "chilbolton", Target: "SWIFT_1", Status: 1, StatusText: "not_sent"}})
	})
	mux.HandleFunc("/api/stations/chilbolton/visibility", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		v := map[string]any{
			"station": "chilbolton", "ra": q.Get("ra"), "dec": q.Get("dec"),
			"elevation_start": 40.0, "elevation_end": 42.0, "min_elevation": 10.0,
			"visible": true, "visible_throughout": true,
		}
		if name := q.Get("calibrator"); name != "" {
			v["calibrator"] = name
			v["candidates"] = []map[string]any{{"name": name, "separation_deg": 20.0, "eligible": true}}
		}
		_ = json.NewEncoder(w).Encode(v)
	})
	mux.HandleFunc("/api/dispatcher/pause", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(CommandResult{OK: true, Message: "dispatcher paused"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStatusRendering(t *testing.T) {
	srv := fakeDaemon(t)
	var out bytes.Buffer
	if err := NewClient(srv.URL, &out, false).Status(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"FAST TRIGGER STATUS", "IDLE", "1h 2m 5s", "chilbolton, nancay", "3C196, 3C295", "debug (dry run)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "\x1b[") {
		t.Error("colour codes written to a non-terminal")
	}
}

func TestStatusJSON(t *testing.T) {
	srv := fakeDaemon(t)
	var out bytes.Buffer
	if err := NewClient(srv.URL+"/", &out, true).Status(context.Background()); err != nil {
		t.Fatal(err)
	}
	var s StatusResponse
	if err := json.Unmarshal(out.Bytes(), &s); err != nil || s.Processed != 4 {
		t.Fatalf("json output = %s (%v)", out.String(), err)
	}
}

func TestStations(t *testing.T) {
	srv := fakeDaemon(t)
	var out bytes.Buffer
	c := NewClient(srv.URL, &out, false)
	if err := c.Stations(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "chilbolton") || !strings.Contains(out.String(), "10.0°") {
		t.Fatalf("table = %s", out.String())
	}

	out.Reset()
	if err := c.Station(context.Background(), "chilbolton", true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "busy (lock held)") {
		t.Fatalf("station = %s", out.String())
	}

	err := c.Station(context.Background(), "nowhere", false)
	if err == nil || !strings.Contains(err.Error(), "unknown station: nowhere") {
		t.Fatalf("err = %v", err)
	}
}

func TestVisibilityCalibratorOverride(t *testing.T) {
	srv := fakeDaemon(t)
	var out bytes.Buffer
	err := NewClient(srv.URL, &out, false).Visibility(context.Background(), VisibilityOptions{
		Station: "chilbolton", RA: "12:30:49.42", Dec: "+12:23:28.04", Calibrator: "3C295",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"VISIBILITY FROM chilbolton", "yes, whole window", "3C295"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	if err := NewClient(srv.URL, &out, false).Visibility(context.Background(), VisibilityOptions{Station: "chilbolton"}); err == nil {
		t.Fatal("expected error without coordinates")
	}
}

func TestTriggerRendering(t *testing.T) {
	srv := fakeDaemon(t)
	var out bytes.Buffer
	c := NewClient(srv.URL, &out, false)

	if err := c.Trigger(context.Background(), TriggerOptions{Station: "chilbolton", RA: "1", Dec: "2"}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"not_sent (1)", "4PISKY", "3C196", "nothing sent", "    line two"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := c.Trigger(context.Background(), TriggerOptions{Station: "chilbolton", RA: "1", Dec: "95"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "REJECTED") || !strings.Contains(out.String(), "invalid equatorial") {
		t.Fatalf("rejected output = %s", out.String())
	}

	if err := c.Trigger(context.Background(), TriggerOptions{Station: "chilbolton"}); err == nil {
		t.Fatal("missing coordinates accepted")
	}
}

func TestVOEventUpload(t *testing.T) {
	srv := fakeDaemon(t)
	path := filepath.Join(t.TempDir(), "alert.xml")
	if err := os.WriteFile(path, []byte(`<VOEvent ivorn="x"/>`), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	debug := true
	err := NewClient(srv.URL, &out, false).VOEvent(context.Background(), VOEventOptions{Station: "chilbolton", File: path, Debug: &debug})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "SWIFT_1") {
		t.Fatalf("output = %s", out.String())
	}
}

func TestPause(t *testing.T) {
	srv := fakeDaemon(t)
	var out bytes.Buffer
	if err := NewClient(srv.URL, &out, false).Pause(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "PAUSED  dispatcher paused") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestWSURL(t *testing.T) {
	tests := map[string]string{
		"http://127.0.0.1:8080":        "ws://127.0.0.1:8080/ws",
		"https://trigger.example.org/": "wss://trigger.example.org/ws",
		"http://host/prefix?x=1":       "ws://host/prefix/ws",
	}
	for in, want := range tests {
		got, err := wsURL(in)
		if err != nil || got != want {
			t.Errorf("wsURL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := wsURL("ftp://host"); err == nil {
		t.Error("ftp scheme accepted")
	}
}

func TestWatchStreamsFilteredEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, ev := range []string{
			`{"type":"heartbeat","ts":"2024-01-01T00:00:00Z","state":"IDLE","uptime_seconds":5}`,
			`{"type":"request","ts":"2024-01-01T00:00:01Z","station":"chilbolton","target":"SWIFT_9","status":2,"status_text":"target_not_visible","elapsed_ms":12}`,
		} {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(ev))
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := NewClient(srv.URL, &out, false).Watch(ctx, WatchOptions{Filter: []string{"request"}}); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if strings.Contains(s, "heartbeat") {
		t.Errorf("filtered event shown:\n%s", s)
	}
	if !strings.Contains(s, "SWIFT_9@chilbolton target_not_visible (2) 12ms") {
		t.Errorf("request event missing:\n%s", s)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatDuration(45 * time.Second); got != "45s" {
		t.Errorf("formatDuration = %q", got)
	}
	if got := formatDuration(2*time.Hour + 14*time.Minute + 8*time.Second); got != "2h 14m 8s" {
		t.Errorf("formatDuration = %q", got)
	}
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight = %q", got)
	}
	if got := indent("a\nb\n", "> "); got != "> a\n> b" {
		t.Errorf("indent = %q", got)
	}
	p := printer{out: io.Discard}
	if got := p.paint(statusStyle(0), "success"); got != "success" {
		t.Errorf("paint without colour = %q", got)
	}
}
