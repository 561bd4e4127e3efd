// Package dispatch feeds trigger requests to the orchestrator one at a time.
// HTTP handlers and the demo generator send Commands on a channel; a single
// worker goroutine runs each request to completion and replies.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/alert"
	"github.com/large-farva/fast-trigger/internal/astro"
	"github.com/large-farva/fast-trigger/internal/station"
	"github.com/large-farva/fast-trigger/internal/telemetry"
	"github.com/large-farva/fast-trigger/internal/trigger"
)

// Command types.
const (
	CmdTrigger = "trigger"
	CmdPause   = "pause"
	CmdResume  = "resume"
)

// Dispatcher states reported through setState.
const (
	StateIdle       = "IDLE"
	StateProcessing = "PROCESSING"
	StatePaused     = "PAUSED"
)

// ErrPaused is returned for trigger commands while the dispatcher is paused.
var ErrPaused = errors.New("dispatcher is paused")

// Command is sent on Dispatcher.Commands. Reply receives exactly one result
// and should be buffered.
type Command struct {
	Type    string
	Payload json.RawMessage
	Reply   chan<- CommandResult
}

// CommandResult is the answer to a Command.
type CommandResult struct {
	OK      bool     `json:"ok"`
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// TriggerPayload is the body of a trigger command. RA and Dec are
// sexagesimal or decimal-degree strings.
type TriggerPayload struct {
	Station         string `json:"station"`
	Kind            string `json:"kind"`
	IVORN           string `json:"ivorn"`
	RA              string `json:"ra"`
	Dec             string `json:"dec"`
	DurationSeconds int    `json:"duration_seconds"`
	Debug           *bool  `json:"debug"`
	Action          string `json:"action"`
	Requester       string `json:"requester"`
}

// Outcome is the record of one processed request.
type Outcome struct {
	RequestID    string    `json:"request_id"`
	Station      string    `json:"station"`
	Target       string    `json:"target"`
	Status       int       `json:"status"`
	StatusText   string    `json:"status_text"`
	Message      string    `json:"message"`
	AlertMessage string    `json:"alert_message"`
	Subject      string    `json:"subject"`
	Calibrator   string    `json:"calibrator,omitempty"`
	Debug        bool      `json:"debug"`
	NotifyError  string    `json:"notify_error,omitempty"`
	At           time.Time `json:"at"`
}

// Defaults fill fields a payload leaves out.
type Defaults struct {
	Duration time.Duration
	Debug    bool
}

// Dispatcher owns the request loop.
type Dispatcher struct {
	// Commands receives work from HTTP handlers and the demo generator.
	Commands chan Command

	registry *station.Registry
	orch     *trigger.Orchestrator
	defaults Defaults
	hub      telemetry.Broadcaster
	log      zerolog.Logger
	now      func() time.Time

	paused    atomic.Bool
	processed atomic.Int64

	mu   sync.Mutex
	last *Outcome
}

// New builds a dispatcher with a command queue of queueSize.
func New(registry *station.Registry, orch *trigger.Orchestrator, defaults Defaults, hub telemetry.Broadcaster, logger zerolog.Logger, queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		Commands: make(chan Command, queueSize),
		registry: registry,
		orch:     orch,
		defaults: defaults,
		hub:      hub,
		log:      logger.With().Str("component", "dispatch").Logger(),
		now:      time.Now,
	}
}

// Run processes commands until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, setState func(string)) {
	d.broadcastLog("info", "dispatcher started")
	setState(StateIdle)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-d.Commands:
			d.handle(ctx, cmd, setState)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, cmd Command, setState func(string)) {
	switch cmd.Type {
	case CmdTrigger:
		if d.paused.Load() {
			cmd.Reply <- CommandResult{Error: ErrPaused.Error()}
			return
		}
		setState(StateProcessing)
		res := d.handleTrigger(ctx, cmd.Payload)
		setState(StateIdle)
		cmd.Reply <- res
	case CmdPause:
		if d.paused.Swap(true) {
			cmd.Reply <- CommandResult{OK: true, Message: "dispatcher already paused"}
			return
		}
		setState(StatePaused)
		d.broadcastLog("info", "dispatcher paused by user")
		cmd.Reply <- CommandResult{OK: true, Message: "dispatcher paused"}
	case CmdResume:
		if !d.paused.Swap(false) {
			cmd.Reply <- CommandResult{OK: true, Message: "dispatcher already running"}
			return
		}
		setState(StateIdle)
		d.broadcastLog("info", "dispatcher resumed by user")
		cmd.Reply <- CommandResult{OK: true, Message: "dispatcher resumed"}
	default:
		cmd.Reply <- CommandResult{Error: "unknown command: " + cmd.Type}
	}
}

func (d *Dispatcher) handleTrigger(ctx context.Context, raw json.RawMessage) CommandResult {
	var p TriggerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return CommandResult{Error: "invalid payload: " + err.Error()}
	}

	st, params, err := d.resolve(p)
	if err != nil {
		return CommandResult{Error: err.Error()}
	}

	id := uuid.NewString()
	d.log.Info().Str("request_id", id).Str("station", st.Key()).Str("ivorn", p.IVORN).Msg("processing trigger")

	res := d.orch.Request(ctx, st, params)

	out := &Outcome{
		RequestID:    id,
		Station:      st.Key(),
		Target:       res.TargetName,
		Status:       int(res.Status),
		StatusText:   res.Status.String(),
		Message:      res.Message,
		AlertMessage: res.AlertMessage,
		Subject:      res.Subject,
		Debug:        params.Debug,
		At:           d.now().UTC(),
	}
	if res.Calibrator != nil {
		out.Calibrator = res.Calibrator.Calibrator.Name
	}
	if res.NotifyErr != nil {
		out.NotifyError = res.NotifyErr.Error()
	}

	d.processed.Add(1)
	d.mu.Lock()
	d.last = out
	d.mu.Unlock()

	return CommandResult{
		OK:      true,
		Message: fmt.Sprintf("%s: %s", out.Target, out.StatusText),
		Outcome: out,
	}
}

// resolve turns a payload into the orchestrator inputs.
func (d *Dispatcher) resolve(p TriggerPayload) (*station.Station, trigger.Params, error) {
	st, err := d.registry.Get(p.Station)
	if err != nil {
		return nil, trigger.Params{}, err
	}

	coords, err := astro.ParseEquatorial(p.RA, p.Dec)
	if err != nil {
		return nil, trigger.Params{}, err
	}

	kind := alert.ParseKind(p.Kind)
	if p.Kind == "" && p.IVORN != "" {
		kind = alert.KindFromIVORN(p.IVORN)
	}

	if p.DurationSeconds < 0 {
		return nil, trigger.Params{}, fmt.Errorf("duration_seconds must be >= 0, got %d", p.DurationSeconds)
	}
	duration := d.defaults.Duration
	if p.DurationSeconds > 0 {
		duration = time.Duration(p.DurationSeconds) * time.Second
	}

	debug := d.defaults.Debug
	if p.Debug != nil {
		debug = *p.Debug
	}

	params := trigger.Params{
		Coords:   coords,
		Alert:    alert.Alert{Kind: kind, IVORN: p.IVORN},
		Duration: duration,
		Debug:    debug,
		Action:   p.Action,
	}
	if p.Requester != "" {
		params.Requester = &station.Contact{Name: p.Requester}
	}
	return st, params, nil
}

// Do sends a command and waits for its reply or ctx.
func (d *Dispatcher) Do(ctx context.Context, typ string, payload any) (CommandResult, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return CommandResult{}, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		raw = b
	}

	reply := make(chan CommandResult, 1)
	select {
	case d.Commands <- Command{Type: typ, Payload: raw, Reply: reply}:
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}

// IsPaused reports whether trigger commands are being refused.
func (d *Dispatcher) IsPaused() bool { return d.paused.Load() }

// Processed is the number of requests run since start.
func (d *Dispatcher) Processed() int64 { return d.processed.Load() }

// Last returns the most recent outcome, or nil.
func (d *Dispatcher) Last() *Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *Dispatcher) broadcastLog(level, msg string) {
	if d.hub != nil {
		d.hub.BroadcastJSON(telemetry.NewLogLine(level, "dispatch", msg))
	}
}
