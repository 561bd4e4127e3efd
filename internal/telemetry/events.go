// Package telemetry defines the typed events that flow over the WebSocket
// connection between triggerd and its clients, and the Prometheus collector
// that counts requests and pipeline stages.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat EventType = "heartbeat"
	EventState     EventType = "state"
	EventLog       EventType = "log"
	EventStage     EventType = "stage"
	EventRequest   EventType = "request"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type EventType `json:"type"`
	TS   string    `json:"ts"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching the
// timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func envelope(t EventType) Event {
	return Event{Type: t, TS: NowTS()}
}

// Heartbeat is sent periodically so clients can detect connectivity and
// monitor daemon uptime.
type Heartbeat struct {
	Event
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Processed     int64  `json:"processed"`
}

func NewHeartbeat(state string, uptime time.Duration, processed int64) Heartbeat {
	return Heartbeat{Event: envelope(EventHeartbeat), State: state, UptimeSeconds: int64(uptime.Seconds()), Processed: processed}
}

// StateTransition is emitted whenever the dispatcher moves between
// IDLE and PROCESSING.
type StateTransition struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

func NewStateTransition(from, to string) StateTransition {
	return StateTransition{Event: envelope(EventState), From: from, To: to}
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level     string `json:"level"`
	Component string `json:"component,omitempty"`
	Message   string `json:"message"`
}

func NewLogLine(level, component, msg string) LogLine {
	return LogLine{Event: envelope(EventLog), Level: level, Component: component, Message: msg}
}

// StageEvent reports that one pipeline stage finished for a station.
type StageEvent struct {
	Event
	Station string `json:"station"`
	Stage   string `json:"stage"`
	Outcome string `json:"outcome"`
}

// RequestEvent reports the final status of a request.
type RequestEvent struct {
	Event
	Station    string `json:"station"`
	Target     string `json:"target"`
	Status     int    `json:"status"`
	StatusText string `json:"status_text"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}
