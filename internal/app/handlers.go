package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/large-farva/fast-trigger/internal/astro"
	"github.com/large-farva/fast-trigger/internal/calibrator"
	"github.com/large-farva/fast-trigger/internal/dispatch"
	"github.com/large-farva/fast-trigger/internal/predict"
	"github.com/large-farva/fast-trigger/internal/station"
	"github.com/large-farva/fast-trigger/internal/voevent"
)

// maxBody bounds trigger and VOEvent request bodies.
const maxBody = 1 << 20

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	mode := "live"
	if a.cfg.Demo.Enabled {
		mode = "demo"
	}
	resp := map[string]any{
		"name":           "fast-trigger",
		"state":          a.State(),
		"mode":           mode,
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"processed":      a.dispatcher.Processed(),
		"paused":         a.dispatcher.IsPaused(),
		"debug_default":  a.cfg.Trigger.Debug,
		"stations":       a.stations.Names(),
		"calibrators":    a.catalog.Names(),
		"ws_clients":     a.hub.Clients(),
	}
	if last := a.dispatcher.Last(); last != nil {
		resp["last"] = last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	goVersion := GoVersion
	if goVersion == "unknown" {
		goVersion = runtime.Version()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    Version,
		"go_version": goVersion,
		"built_at":   BuiltAt,
	})
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg)
}

// ---------------------------------------------------------------------------
// Stations
// ---------------------------------------------------------------------------

type stationJSON struct {
	station.Descriptor
	Key          string `json:"key"`
	Availability string `json:"availability,omitempty"`
	ProbeMessage string `json:"probe_message,omitempty"`
	ProbeError   string `json:"probe_error,omitempty"`
}

func (a *App) handleStations(w http.ResponseWriter, _ *http.Request) {
	all := a.stations.All()
	out := make([]stationJSON, 0, len(all))
	for _, st := range all {
		out = append(out, stationJSON{Descriptor: st.Descriptor, Key: st.Key()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": out})
}

// handleStation returns one station. With ?probe=true it also queries the
// live availability, which may touch the station hardware.
func (a *App) handleStation(w http.ResponseWriter, r *http.Request) {
	st, ok := a.lookupStation(w, r)
	if !ok {
		return
	}
	out := stationJSON{Descriptor: st.Descriptor, Key: st.Key()}

	if probe, _ := strconv.ParseBool(r.URL.Query().Get("probe")); probe {
		ctx, cancel := a.callContext(r.Context())
		defer cancel()
		res, err := st.Probe.Check(ctx)
		if err != nil {
			out.ProbeError = err.Error()
		} else {
			out.Availability = res.State.String()
			out.ProbeMessage = res.Message
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type candidateJSON struct {
	Name           string  `json:"name"`
	RA             string  `json:"ra"`
	Dec            string  `json:"dec"`
	Separation     float64 `json:"separation_deg"`
	ElevationStart float64 `json:"elevation_start"`
	ElevationEnd   float64 `json:"elevation_end"`
	Eligible       bool    `json:"eligible"`
}

// handleVisibility answers the geometry questions for a position without
// running a request: target elevation over the window and the calibrator
// that would be chosen. ?calibrator=NAME narrows the candidates to one
// catalog entry.
func (a *App) handleVisibility(w http.ResponseWriter, r *http.Request) {
	st, ok := a.lookupStation(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	coords, err := astro.ParseEquatorial(q.Get("ra"), q.Get("dec"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	duration := time.Duration(a.cfg.Trigger.DurationSeconds) * time.Second
	if s := q.Get("duration_seconds"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonError(w, "duration_seconds must be a non-negative integer", http.StatusBadRequest)
			return
		}
		duration = time.Duration(n) * time.Second
	}

	start := time.Now().UTC()
	if s := q.Get("at"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			jsonError(w, "at must be RFC 3339", http.StatusBadRequest)
			return
		}
		start = t.UTC()
	}
	win := predict.Window(start, duration)

	catalog := a.catalog
	if name := q.Get("calibrator"); name != "" {
		cal, ok := catalog.Lookup(name)
		if !ok {
			jsonError(w, "unknown calibrator "+strconv.Quote(name), http.StatusBadRequest)
			return
		}
		catalog = calibrator.Catalog{cal}
	}

	resp := map[string]any{
		"station":            st.Key(),
		"ra":                 coords.HMS(),
		"dec":                coords.DMS(),
		"start":              win.Start,
		"end":                win.End,
		"min_elevation":      st.MinElevation,
		"elevation_start":    predict.Elevation(a.eph, st.Descriptor, coords, win.Start),
		"elevation_end":      predict.Elevation(a.eph, st.Descriptor, coords, win.End),
		"visible":            predict.IsVisible(a.eph, st.Descriptor, coords, win.Start),
		"visible_throughout": predict.VisibleThroughout(a.eph, st.Descriptor, coords, win),
	}

	cands := calibrator.Evaluate(a.eph, catalog, st.Site(), coords, win.Start, win.End, st.MinElevation)
	list := make([]candidateJSON, len(cands))
	for i, c := range cands {
		list[i] = candidateJSON{
			Name:           c.Calibrator.Name,
			RA:             c.Calibrator.Coords.HMS(),
			Dec:            c.Calibrator.Coords.DMS(),
			Separation:     c.Separation,
			ElevationStart: c.ElevationStart,
			ElevationEnd:   c.ElevationEnd,
			Eligible:       c.Eligible,
		}
	}
	resp["candidates"] = list
	if sel, err := calibrator.Select(a.eph, catalog, st.Site(), coords, win.Start, win.End, st.MinElevation); err == nil {
		resp["calibrator"] = sel.Calibrator.Name
	}

	writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

func (a *App) handleTrigger(w http.ResponseWriter, r *http.Request) {
	st, ok := a.lookupStation(w, r)
	if !ok {
		return
	}

	var p dispatch.TriggerPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&p); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	p.Station = st.Key()
	a.dispatch(w, r, dispatch.CmdTrigger, p)
}

// handleVOEvent accepts a raw VOEvent packet. Test and utility packets are
// always processed in debug mode. duration_seconds and debug may be given
// as query parameters.
func (a *App) handleVOEvent(w http.ResponseWriter, r *http.Request) {
	st, ok := a.lookupStation(w, r)
	if !ok {
		return
	}

	ev, err := voevent.Parse(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, voevent.ErrNoPosition) {
			code = http.StatusUnprocessableEntity
		}
		jsonError(w, err.Error(), code)
		return
	}

	q := r.URL.Query()
	p := dispatch.TriggerPayload{
		Station:   st.Key(),
		Kind:      ev.Kind.String(),
		IVORN:     ev.IVORN,
		RA:        strconv.FormatFloat(ev.Coords.RA(), 'f', -1, 64),
		Dec:       strconv.FormatFloat(ev.Coords.Dec(), 'f', -1, 64),
		Action:    q.Get("action"),
		Requester: q.Get("requester"),
	}
	if s := q.Get("duration_seconds"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			jsonError(w, "duration_seconds must be an integer", http.StatusBadRequest)
			return
		}
		p.DurationSeconds = n
	}
	if s := q.Get("debug"); s != "" {
		d, err := strconv.ParseBool(s)
		if err != nil {
			jsonError(w, "debug must be a boolean", http.StatusBadRequest)
			return
		}
		p.Debug = &d
	}
	if ev.IsTest() {
		debug := true
		p.Debug = &debug
	}

	a.log.Info().Str("ivorn", ev.IVORN).Str("role", ev.Role).Str("station", st.Key()).Msg("voevent received")
	a.dispatch(w, r, dispatch.CmdTrigger, p)
}

func (a *App) handleDispatcherCommand(typ string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.dispatch(w, r, typ, nil)
	}
}

// dispatch sends a command to the dispatcher and writes its result.
// Requests run to completion even if the client goes away.
func (a *App) dispatch(w http.ResponseWriter, r *http.Request, typ string, payload any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), a.requestTimeout())
	defer cancel()

	res, err := a.dispatcher.Do(ctx, typ, payload)
	if err != nil {
		jsonError(w, "dispatcher unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeCommandResult(w, res)
}

// requestTimeout bounds the wait for a queued request: each of the three
// external calls may take the call timeout, plus queueing.
func (a *App) requestTimeout() time.Duration {
	call := time.Duration(a.cfg.Trigger.CallTimeoutSeconds) * time.Second
	if call <= 0 {
		return 5 * time.Minute
	}
	return 4*call + time.Duration(a.cfg.Trigger.QueueSize)*3*call
}

func (a *App) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s := a.cfg.Trigger.CallTimeoutSeconds; s > 0 {
		return context.WithTimeout(ctx, time.Duration(s)*time.Second)
	}
	return context.WithCancel(ctx)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (a *App) lookupStation(w http.ResponseWriter, r *http.Request) (*station.Station, bool) {
	st, err := a.stations.Get(chi.URLParam(r, "name"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return st, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}

func writeCommandResult(w http.ResponseWriter, res dispatch.CommandResult) {
	code := http.StatusOK
	switch {
	case res.OK:
	case res.Error == dispatch.ErrPaused.Error():
		code = http.StatusConflict
	default:
		code = http.StatusBadRequest
	}
	writeJSON(w, code, res)
}
