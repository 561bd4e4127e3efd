package lcu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/large-farva/fast-trigger/internal/station"
)

// DefaultMinSWLevel is the software level at which beamctl can run.
const DefaultMinSWLevel = 3

// Probe asks the LCU whether a triggered observation is already running
// (the lock file exists) and otherwise reads the station software level.
type Probe struct {
	runner   Runner
	lockFile string
	minLevel int
}

// NewProbe returns an availability probe backed by runner.
func NewProbe(runner Runner, s Settings, minLevel int) *Probe {
	if s.LockFile == "" {
		s.LockFile = DefaultSettings.LockFile
	}
	if minLevel == 0 {
		minLevel = DefaultMinSWLevel
	}
	return &Probe{runner: runner, lockFile: s.LockFile, minLevel: minLevel}
}

// Command is the shell snippet the probe runs.
func (p *Probe) Command() string {
	return fmt.Sprintf("if [ -e %s ]; then echo busy; else swlevel -S; fi", p.lockFile)
}

// Check implements station.AvailabilityProbe.
func (p *Probe) Check(ctx context.Context) (station.ProbeResult, error) {
	out, err := p.runner.Run(ctx, p.Command())
	if err != nil {
		return station.ProbeResult{}, err
	}

	out = strings.TrimSpace(out)
	if out == "busy" {
		return station.ProbeResult{State: station.Busy, Message: "A triggered observation is already running."}, nil
	}

	level, err := strconv.Atoi(out)
	if err != nil {
		return station.ProbeResult{}, fmt.Errorf("lcu: unexpected swlevel output %q", out)
	}
	if level < p.minLevel {
		return station.ProbeResult{
			State:   station.Unavailable,
			Message: fmt.Sprintf("Station is at software level %d.", level),
		}, nil
	}
	return station.ProbeResult{State: station.Available}, nil
}
