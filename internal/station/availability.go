package station

import (
	"context"
	"fmt"
	"strings"
)

// Availability is the tri-state answer of an AvailabilityProbe.
type Availability int

const (
	Available Availability = iota
	Unavailable
	Busy
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "ok"
	case Unavailable:
		return "unavailable"
	case Busy:
		return "busy"
	default:
		return fmt.Sprintf("availability(%d)", int(a))
	}
}

// ParseAvailability maps the wire names "ok", "unavailable" and "busy".
func ParseAvailability(s string) (Availability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ok", "available", "idle":
		return Available, nil
	case "unavailable", "down", "local":
		return Unavailable, nil
	case "busy", "triggered":
		return Busy, nil
	default:
		return Unavailable, fmt.Errorf("unknown availability %q", s)
	}
}

// ProbeResult is what a probe reports, with an optional human message.
type ProbeResult struct {
	State   Availability
	Message string
}

// AvailabilityProbe queries the live state of a station. Busy means some
// other actor already claimed the station and must be treated as a veto.
type AvailabilityProbe interface {
	Check(ctx context.Context) (ProbeResult, error)
}

// ProbeFunc adapts a plain function to AvailabilityProbe.
type ProbeFunc func(ctx context.Context) (ProbeResult, error)

func (f ProbeFunc) Check(ctx context.Context) (ProbeResult, error) { return f(ctx) }

// StaticProbe always reports the same result. It backs stations configured
// with probe = "static" and the demo mode.
type StaticProbe ProbeResult

func (p StaticProbe) Check(context.Context) (ProbeResult, error) { return ProbeResult(p), nil }
