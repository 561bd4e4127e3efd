package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/station"
)

// Log writes the notification to the daemon log. It never fails.
type Log struct {
	log zerolog.Logger
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{log: logger.With().Str("component", "notify").Logger()}
}

func (l *Log) Notify(_ context.Context, n station.Notification) error {
	l.log.Info().
		Str("station", n.Station).
		Str("subject", n.Subject).
		Int("recipients", len(n.Recipients)).
		Msg(n.Body)
	return nil
}

// Multi delivers to every notifier in order. A failing notifier does not
// stop the rest; all errors are joined.
type Multi []station.Notifier

func (m Multi) Notify(ctx context.Context, n station.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
