package trigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/alert"
	"github.com/large-farva/fast-trigger/internal/astro"
	"github.com/large-farva/fast-trigger/internal/beam"
	"github.com/large-farva/fast-trigger/internal/calibrator"
	"github.com/large-farva/fast-trigger/internal/predict"
	"github.com/large-farva/fast-trigger/internal/station"
)

// Options holds the collaborators of an Orchestrator. Only Submitter is
// required; everything else has a default.
type Options struct {
	Ephemeris  astro.Ephemeris
	Catalog    calibrator.Catalog
	Layout     beam.Layout
	Submitter  Submitter
	Observer   Observer
	Logger     zerolog.Logger
	Now        func() time.Time
	AntennaSet string
	RCUMode    int
	// CallTimeout bounds each probe, submit and notify call. Zero means no
	// limit beyond the caller's context.
	CallTimeout time.Duration
}

// Orchestrator runs requests. It holds no per-request state and can be
// shared, but the daemon still feeds it one request at a time.
type Orchestrator struct {
	eph         astro.Ephemeris
	catalog     calibrator.Catalog
	layout      beam.Layout
	submitter   Submitter
	observer    Observer
	log         zerolog.Logger
	now         func() time.Time
	antennaSet  string
	rcuMode     int
	callTimeout time.Duration
}

// New builds an Orchestrator, filling defaults for unset options.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		eph:         opts.Ephemeris,
		catalog:     opts.Catalog,
		layout:      opts.Layout,
		submitter:   opts.Submitter,
		observer:    opts.Observer,
		log:         opts.Logger.With().Str("component", "trigger").Logger(),
		now:         opts.Now,
		antennaSet:  opts.AntennaSet,
		rcuMode:     opts.RCUMode,
		callTimeout: opts.CallTimeout,
	}
	if o.eph == nil {
		o.eph = astro.Sidereal{}
	}
	if o.catalog == nil {
		o.catalog = calibrator.Default
	}
	if o.layout == (beam.Layout{}) {
		o.layout = beam.DefaultLayout
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.antennaSet == "" {
		o.antennaSet = DefaultAntennaSet
	}
	if o.rcuMode == 0 {
		o.rcuMode = DefaultRCUMode
	}
	return o
}

// Params are the per-request inputs.
type Params struct {
	Coords    astro.Equatorial
	Alert     alert.Alert
	Duration  time.Duration
	Debug     bool
	Action    string           // station default when empty
	Requester *station.Contact // station default when nil
}

// Result is the outcome of one request.
type Result struct {
	Status       Status
	Message      string // stage diagnostics, one per line
	AlertMessage string // the composed notification body
	Subject      string
	TargetName   string
	Calibrator   *calibrator.Selection
	Observation  *ObservationRequest
	NotifyErr    error
}

// Request runs the whole pipeline for one alert against st and notifies the
// station's recipients with the result, whatever the outcome.
//
// Expected outcomes are reported through Result.Status. Request panics if
// p.Coords was not built by an astro factory; that is a caller bug.
func (o *Orchestrator) Request(ctx context.Context, st *station.Station, p Params) Result {
	if !p.Coords.Valid() {
		panic("trigger: target coordinates were not built by astro.NewEquatorial")
	}
	started := o.now()

	action := p.Action
	if action == "" {
		action = st.DefaultAction
	}
	requester := st.DefaultRequester
	if p.Requester != nil {
		requester = *p.Requester
	}

	class := alert.Classify(p.Alert, st.ShortName, p.Debug)
	duration := int(p.Duration / time.Second)

	log := o.log.With().
		Str("station", st.Key()).
		Str("target", class.TargetName).
		Int("duration_s", duration).
		Bool("debug", p.Debug).
		Logger()
	log.Info().Str("ra", p.Coords.HMS()).Str("dec", p.Coords.DMS()).Msg("request received")

	run := &pipeline{o: o, st: st, log: log, coords: p.Coords, duration: duration, debug: p.Debug, target: class.TargetName}
	status := run.execute(ctx, started)

	res := Result{
		Status:      status,
		Message:     strings.Join(run.diagnostics, "\n"),
		Subject:     class.Subject,
		TargetName:  class.TargetName,
		Calibrator:  run.selection,
		Observation: run.request,
	}
	res.AlertMessage = ComposeAlert(AlertFields{
		TargetName: class.TargetName,
		Coords:     p.Coords,
		Duration:   duration,
		Requester:  requester.Name,
		Comment:    joinComment(class.Comment, run.diagnostics),
		Action:     action,
	})

	res.NotifyErr = o.notify(ctx, st, res)
	o.observer.RequestCompleted(st.Key(), class.TargetName, status, o.now().Sub(started))
	log.Info().Int("status", int(status)).Str("status_text", status.String()).Msg("request finished")

	return res
}

func (o *Orchestrator) notify(ctx context.Context, st *station.Station, res Result) error {
	ctx, cancel := o.callContext(ctx)
	defer cancel()

	err := st.Notifier.Notify(ctx, station.Notification{
		Station:    st.ShortName,
		Subject:    res.Subject,
		Body:       res.AlertMessage,
		Recipients: st.Recipients,
	})
	if err != nil {
		o.log.Error().Err(err).Str("station", st.Key()).Msg("notification failed")
		o.observer.StageCompleted(st.Key(), StageNotify, "error")
		return err
	}
	o.observer.StageCompleted(st.Key(), StageNotify, "ok")
	return nil
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.callTimeout > 0 {
		return context.WithTimeout(ctx, o.callTimeout)
	}
	return context.WithCancel(ctx)
}

// pipeline carries the state of one request through the stages.
type pipeline struct {
	o        *Orchestrator
	st       *station.Station
	log      zerolog.Logger
	coords   astro.Equatorial
	duration int
	debug    bool
	target   string

	diagnostics []string
	selection   *calibrator.Selection
	request     *ObservationRequest
}

func (r *pipeline) note(format string, args ...any) {
	r.diagnostics = append(r.diagnostics, fmt.Sprintf(format, args...))
}

func (r *pipeline) stage(s Stage, outcome string) {
	r.o.observer.StageCompleted(r.st.Key(), s, outcome)
}

// execute walks the stages, returning at the first terminal outcome.
func (r *pipeline) execute(ctx context.Context, start time.Time) Status {
	if status, done := r.checkAvailability(ctx); done {
		return status
	}

	window := predict.Window(start, time.Duration(r.duration)*time.Second)

	if !predict.IsVisible(r.o.eph, r.st.Descriptor, r.coords, window.Start) {
		elev := predict.Elevation(r.o.eph, r.st.Descriptor, r.coords, window.Start)
		r.stage(StageVisibility, "not_visible")
		r.log.Info().Float64("elevation", elev).Msg("target not visible")
		r.note("Target not visible at the moment from the facility (elevation %.1f deg, minimum %.1f deg).", elev, r.st.MinElevation)
		return StatusNotVisible
	}
	r.stage(StageVisibility, "ok")

	sel, err := calibrator.Select(r.o.eph, r.o.catalog, r.st.Site(), r.coords, window.Start, window.End, r.st.MinElevation)
	if err != nil {
		r.stage(StageCalibrator, "none")
		r.log.Info().Msg("no calibrator above the elevation limit")
		r.note("No calibrator could be set.")
		return StatusNoCalibrator
	}
	r.selection = &sel
	r.stage(StageCalibrator, sel.Calibrator.Name)
	r.log.Debug().Str("calibrator", sel.Calibrator.Name).Float64("separation", sel.Separation).Msg("calibrator chosen")

	plan := r.o.layout.Plan(r.coords, sel.Calibrator.Coords)
	r.stage(StageBeams, "ok")

	r.request = &ObservationRequest{
		Station:    r.st.Key(),
		TargetName: r.target,
		Calibrator: sel.Calibrator.Name,
		Duration:   r.duration,
		AntennaSet: r.o.antennaSet,
		RCUMode:    r.o.rcuMode,
		Plan:       plan,
	}
	return r.submit(ctx, sel)
}

func (r *pipeline) checkAvailability(ctx context.Context) (Status, bool) {
	ctx, cancel := r.o.callContext(ctx)
	defer cancel()

	res, err := r.st.Probe.Check(ctx)
	if err != nil {
		res = station.ProbeResult{State: station.Unavailable, Message: err.Error()}
	}
	r.stage(StageAvailability, res.State.String())
	r.log.Info().Str("availability", res.State.String()).Msg("availability checked")

	switch res.State {
	case station.Available:
		return 0, false
	case station.Busy:
		r.note("%s", withDetail("Station already triggered.", res.Message))
		return StatusBusy, true
	default:
		r.note("%s", withDetail("Station not available at the requested time!", res.Message))
		return StatusUnavailable, true
	}
}

func (r *pipeline) submit(ctx context.Context, sel calibrator.Selection) Status {
	ctx, cancel := r.o.callContext(ctx)
	defer cancel()

	err := r.o.submitter.Submit(ctx, r.st.Descriptor, *r.request, r.debug)

	var status Status
	switch {
	case err != nil:
		status = StatusDryRun
		r.stage(StageSubmit, "error")
		r.log.Error().Err(err).Msg("submission failed")
		r.note("Observation request failed: %v", err)
	case r.debug:
		status = StatusDryRun
		r.stage(StageSubmit, "dry_run")
		r.note("No observation request sent; debug mode.")
	default:
		status = StatusSuccess
		r.stage(StageSubmit, "sent")
		r.note("Observation request sent successfully.")
	}

	r.note("Here is the setup we used:\n"+
		"    antennaset: %s\n"+
		"    rcumode: %d\n"+
		"    calibrator: %s (%.3f deg from target)\n"+
		"    duration: %d",
		r.request.AntennaSet, r.request.RCUMode, sel.Calibrator.Name, sel.Separation, r.request.Duration)
	return status
}

func withDetail(msg, detail string) string {
	if detail == "" {
		return msg
	}
	return msg + " " + detail
}
