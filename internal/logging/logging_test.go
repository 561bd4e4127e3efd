package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/telemetry"
)

type sink struct{ lines []telemetry.LogLine }

func (s *sink) BroadcastJSON(v any) { s.lines = append(s.lines, v.(telemetry.LogLine)) }

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("warn", "json", &buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info().Msg("dropped")
	logger.Warn().Str("component", "lcu").Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, `"message":"kept"`) {
		t.Fatalf("output = %s", out)
	}
}

func TestSetupRejectsBadInput(t *testing.T) {
	if _, err := Setup("loud", "json", nil, nil); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := Setup("info", "xml", nil, nil); err == nil {
		t.Fatal("expected format error")
	}
}

func TestEventWriterMirrorsToHub(t *testing.T) {
	hub := &sink{}
	var buf bytes.Buffer
	logger, err := Setup("debug", "json", &buf, EventWriter{Hub: hub, Min: zerolog.InfoLevel})
	if err != nil {
		t.Fatal(err)
	}

	logger.Debug().Msg("too quiet")
	component := logger.With().Str("component", "trigger").Logger()
	component.Error().Str("error", "boom").Msg("submission failed")

	if len(hub.lines) != 1 {
		t.Fatalf("events = %d", len(hub.lines))
	}
	got := hub.lines[0]
	if got.Level != "error" || got.Component != "trigger" || got.Message != "submission failed: boom" {
		t.Fatalf("event = %+v", got)
	}
}
