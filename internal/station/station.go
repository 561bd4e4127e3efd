// Package station describes the telescope stations that can be triggered:
// their static site parameters, the pluggable availability probe that reports
// live hardware state, and the notifier that carries the outcome of each
// request to the station's contacts.
package station

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/large-farva/fast-trigger/internal/astro"
)

// DefaultMinElevation is used when a station does not set its own threshold.
const DefaultMinElevation = 10.0

// Contact is a person who requests observations or receives notifications.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Descriptor is the static configuration of one station. It is built once
// at startup and never mutated afterwards.
type Descriptor struct {
	Name             string    `json:"name"`
	ShortName        string    `json:"short_name"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Altitude         float64   `json:"altitude"`
	TZOffset         float64   `json:"tz_offset"`
	MinElevation     float64   `json:"min_elevation"`
	DefaultAction    string    `json:"default_action"`
	DefaultRequester Contact   `json:"default_requester"`
	Recipients       []Contact `json:"recipients"`
}

// Site returns the observer position used for ephemeris calculations.
func (d Descriptor) Site() astro.Site {
	return astro.Site{Lat: d.Latitude, Lon: d.Longitude, Alt: d.Altitude}
}

// Key is the registry key for d: the lower-cased short name.
func (d Descriptor) Key() string {
	return strings.ToLower(d.ShortName)
}

// Validate checks the site parameters.
func (d Descriptor) Validate() error {
	if d.ShortName == "" {
		return errors.New("station short name is required")
	}
	if d.Latitude < -90 || d.Latitude > 90 {
		return fmt.Errorf("station %s: invalid latitude %f", d.ShortName, d.Latitude)
	}
	if d.Longitude < -180 || d.Longitude > 180 {
		return fmt.Errorf("station %s: invalid longitude %f", d.ShortName, d.Longitude)
	}
	if d.MinElevation < 0 || d.MinElevation > 90 {
		return fmt.Errorf("station %s: min elevation must be between 0 and 90", d.ShortName)
	}
	if d.TZOffset < -12 || d.TZOffset > 14 {
		return fmt.Errorf("station %s: invalid timezone offset %v", d.ShortName, d.TZOffset)
	}
	return nil
}

// Notification is what a Notifier delivers.
type Notification struct {
	Station    string
	Subject    string
	Body       string
	Recipients []Contact
}

// Notifier delivers the composed alert text for one request.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// Station is a Descriptor plus the two strategies injected at construction.
type Station struct {
	Descriptor
	Probe    AvailabilityProbe
	Notifier Notifier
}

// New builds a Station. Both strategies are required. MinElevation is taken
// as given; zero is a valid horizon.
func New(desc Descriptor, probe AvailabilityProbe, notifier Notifier) (*Station, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if probe == nil {
		return nil, fmt.Errorf("station %s: availability probe is required", desc.ShortName)
	}
	if notifier == nil {
		return nil, fmt.Errorf("station %s: notifier is required", desc.ShortName)
	}
	return &Station{Descriptor: desc, Probe: probe, Notifier: notifier}, nil
}
