// Package logging configures zerolog for triggerd and mirrors log records
// onto the WebSocket event stream.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/large-farva/fast-trigger/internal/telemetry"
)

// Setup builds the process logger. format is "console" or "json"; extra,
// when non-nil, receives every record as JSON in addition to out.
func Setup(level, format string, out io.Writer, extra io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("logging: %w", err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if out == nil {
		out = os.Stderr
	}

	var w io.Writer
	switch strings.ToLower(format) {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	case "json":
		w = out
	default:
		return zerolog.Nop(), fmt.Errorf("logging: unknown format %q", format)
	}
	if extra != nil {
		w = zerolog.MultiLevelWriter(w, extra)
	}

	logger := zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger
	return logger, nil
}

// EventWriter turns JSON log records at or above Min into telemetry.LogLine
// events on the hub.
type EventWriter struct {
	Hub telemetry.Broadcaster
	Min zerolog.Level
}

// Write implements io.Writer for records without a level.
func (w EventWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (w EventWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < w.Min || l == zerolog.NoLevel {
		return len(p), nil
	}
	var rec struct {
		Message   string `json:"message"`
		Component string `json:"component"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(p, &rec); err != nil {
		return len(p), nil
	}
	msg := rec.Message
	if rec.Error != "" {
		msg += ": " + rec.Error
	}
	w.Hub.BroadcastJSON(telemetry.NewLogLine(l.String(), rec.Component, msg))
	return len(p), nil
}
