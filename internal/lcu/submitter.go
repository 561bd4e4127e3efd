package lcu

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/station"
	"github.com/large-farva/fast-trigger/internal/trigger"
)

// Submitter sends observations to the LCU of the requested station. It
// implements trigger.Submitter.
type Submitter struct {
	runners  map[string]Runner
	settings Settings
	log      zerolog.Logger
}

// NewSubmitter maps station keys to their LCU runners. Stations without a
// runner can still be dry-run.
func NewSubmitter(runners map[string]Runner, settings Settings, logger zerolog.Logger) *Submitter {
	if settings.RCUs == "" {
		settings.RCUs = DefaultSettings.RCUs
	}
	if settings.LockFile == "" {
		settings.LockFile = DefaultSettings.LockFile
	}
	if settings.LogFile == "" {
		settings.LogFile = DefaultSettings.LogFile
	}
	return &Submitter{
		runners:  runners,
		settings: settings,
		log:      logger.With().Str("component", "lcu").Logger(),
	}
}

// Submit implements trigger.Submitter. With dryRun set the commands are
// only logged.
func (s *Submitter) Submit(ctx context.Context, desc station.Descriptor, req trigger.ObservationRequest, dryRun bool) error {
	script := Script(req, s.settings)
	log := s.log.With().Str("station", desc.Key()).Str("target", req.TargetName).Logger()

	if dryRun {
		for _, line := range BeamctlLines(req, s.settings.RCUs) {
			log.Info().Str("cmd", line).Msg("dry run")
		}
		return nil
	}

	runner, ok := s.runners[desc.Key()]
	if !ok {
		return fmt.Errorf("no LCU configured for station %s", desc.ShortName)
	}

	// Detach so the SSH session returns while the observation runs.
	cmd := "nohup sh -c " + shellQuote(script) + " >/dev/null 2>&1 &"
	if _, err := runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("submit to %s: %w", desc.ShortName, err)
	}
	log.Info().Int("beams", len(req.Plan)).Int("duration_s", req.Duration).Msg("observation submitted")
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
