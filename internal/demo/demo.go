// Package demo generates synthetic Swift alerts at random sky positions so
// the daemon, CLI and event stream can be exercised without a GCN feed.
// Every demo request is a dry run.
package demo

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/dispatch"
)

// Sender is the part of the dispatcher the demo uses.
type Sender interface {
	Do(ctx context.Context, typ string, payload any) (dispatch.CommandResult, error)
}

// Runner sends one synthetic alert per interval, cycling through stations.
type Runner struct {
	Interval time.Duration
	Duration time.Duration // requested observation length

	sender   Sender
	stations []string
	rng      *rand.Rand
	log      zerolog.Logger
	seq      int
}

// New creates a demo runner. A zero seed picks a random one.
func New(sender Sender, stations []string, seed int64, logger zerolog.Logger) *Runner {
	s := uint64(seed)
	if seed == 0 {
		s = rand.Uint64()
	}
	return &Runner{
		Interval: 30 * time.Second,
		Duration: 15 * time.Minute,
		sender:   sender,
		stations: stations,
		rng:      rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15)),
		log:      logger.With().Str("component", "demo").Logger(),
	}
}

// Run fires one alert shortly after start, then one per interval until
// ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	if len(r.stations) == 0 {
		r.log.Warn().Msg("demo mode has no stations, not starting")
		return
	}
	r.log.Info().Dur("interval", r.Interval).Msg("demo mode active, sending synthetic alerts")

	if !sleepOrCancel(ctx, 2*time.Second) {
		return
	}
	r.Fire(ctx)

	t := time.NewTicker(r.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Fire(ctx)
		}
	}
}

// Fire sends one synthetic alert and logs the outcome.
func (r *Runner) Fire(ctx context.Context) {
	p := r.Next()
	res, err := r.sender.Do(ctx, dispatch.CmdTrigger, p)
	switch {
	case err != nil:
		r.log.Warn().Err(err).Msg("demo alert not delivered")
	case !res.OK:
		r.log.Warn().Str("error", res.Error).Msg("demo alert rejected")
	default:
		r.log.Info().
			Str("station", res.Outcome.Station).
			Str("target", res.Outcome.Target).
			Str("status", res.Outcome.StatusText).
			Msg("demo alert processed")
	}
}

// Next builds the next synthetic payload. Positions are uniform on the
// sphere.
func (r *Runner) Next() dispatch.TriggerPayload {
	r.seq++
	station := r.stations[(r.seq-1)%len(r.stations)]

	ra := r.rng.Float64() * 360
	dec := math.Asin(2*r.rng.Float64()-1) * 180 / math.Pi
	trigNum := 900000 + r.rng.IntN(99999)

	debug := true
	return dispatch.TriggerPayload{
		Station:         station,
		Kind:            "swift_grb",
		IVORN:           fmt.Sprintf("ivo://nasa.gsfc.gcn/SWIFT#BAT_GRB_Pos_%d-%03d", trigNum, r.seq%1000),
		RA:              fmt.Sprintf("%.4f", ra),
		Dec:             fmt.Sprintf("%.4f", dec),
		DurationSeconds: int(r.Duration / time.Second),
		Debug:           &debug,
		Requester:       "Demo",
	}
}

func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
