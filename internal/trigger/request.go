package trigger

import (
	"context"
	"time"

	"github.com/large-farva/fast-trigger/internal/beam"
	"github.com/large-farva/fast-trigger/internal/station"
)

// Default observing setup for a HBA fast trigger.
const (
	DefaultAntennaSet = "HBA_DUAL"
	DefaultRCUMode    = 5
)

// ObservationRequest is what gets handed to the Submitter.
type ObservationRequest struct {
	Station    string
	TargetName string
	Calibrator string
	Duration   int // seconds
	AntennaSet string
	RCUMode    int
	Plan       beam.Plan
}

// Submitter performs the hardware submission. With dryRun set it must not
// touch the station.
type Submitter interface {
	Submit(ctx context.Context, desc station.Descriptor, req ObservationRequest, dryRun bool) error
}

// SubmitterFunc adapts a plain function to Submitter.
type SubmitterFunc func(ctx context.Context, desc station.Descriptor, req ObservationRequest, dryRun bool) error

func (f SubmitterFunc) Submit(ctx context.Context, desc station.Descriptor, req ObservationRequest, dryRun bool) error {
	return f(ctx, desc, req, dryRun)
}

// Observer receives pipeline progress, for metrics and live events.
type Observer interface {
	StageCompleted(stationKey string, stage Stage, outcome string)
	RequestCompleted(stationKey, target string, status Status, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) StageCompleted(string, Stage, string)                   {}
func (nopObserver) RequestCompleted(string, string, Status, time.Duration) {}
