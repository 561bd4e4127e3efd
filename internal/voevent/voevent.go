// Package voevent reads the fields the trigger needs out of a VOEvent 2.0
// packet: the IVORN, the role, the event time and the sky position.
package voevent

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/large-farva/fast-trigger/internal/alert"
	"github.com/large-farva/fast-trigger/internal/astro"
)

// Roles defined by the VOEvent standard.
const (
	RoleObservation = "observation"
	RoleTest        = "test"
	RoleUtility     = "utility"
)

var ErrNoPosition = errors.New("voevent has no WhereWhen position")

// Event is the parsed subset of a VOEvent packet.
type Event struct {
	IVORN       string
	Role        string
	Kind        alert.Kind
	Time        time.Time
	Coords      astro.Equatorial
	ErrorRadius float64 // degrees, 0 when absent
}

// Alert returns the classifier input for e.
func (e Event) Alert() alert.Alert {
	return alert.Alert{Kind: e.Kind, IVORN: e.IVORN}
}

// IsTest reports whether the packet was sent as a test or utility message.
func (e Event) IsTest() bool {
	return e.Role == RoleTest || e.Role == RoleUtility
}

type packet struct {
	XMLName   xml.Name `xml:"VOEvent"`
	IVORN     string   `xml:"ivorn,attr"`
	Role      string   `xml:"role,attr"`
	WhereWhen struct {
		Coords struct {
			System string `xml:"coord_system_id,attr"`
			Time   string `xml:"Time>TimeInstant>ISOTime"`
			Pos    *struct {
				Unit   string   `xml:"unit,attr"`
				C1     *float64 `xml:"Value2>C1"`
				C2     *float64 `xml:"Value2>C2"`
				Radius float64  `xml:"Error2Radius"`
			} `xml:"Position2D"`
		} `xml:"ObsDataLocation>ObservationLocation>AstroCoords"`
	} `xml:"WhereWhen"`
}

// Parse decodes a VOEvent packet from r.
func Parse(r io.Reader) (Event, error) {
	var p packet
	if err := xml.NewDecoder(r).Decode(&p); err != nil {
		return Event{}, fmt.Errorf("decode voevent: %w", err)
	}
	if p.IVORN == "" {
		return Event{}, errors.New("voevent has no ivorn")
	}

	ev := Event{
		IVORN: p.IVORN,
		Role:  strings.ToLower(p.Role),
		Kind:  alert.KindFromIVORN(p.IVORN),
	}
	if ev.Role == "" {
		ev.Role = RoleObservation
	}

	ac := p.WhereWhen.Coords
	if ac.Time != "" {
		t, err := parseISOTime(ac.Time)
		if err != nil {
			return Event{}, fmt.Errorf("voevent %s: %w", p.IVORN, err)
		}
		ev.Time = t
	}

	pos := ac.Pos
	if pos == nil || pos.C1 == nil || pos.C2 == nil {
		return Event{}, fmt.Errorf("voevent %s: %w", p.IVORN, ErrNoPosition)
	}
	if pos.Unit != "" && pos.Unit != "deg" {
		return Event{}, fmt.Errorf("voevent %s: unsupported position unit %q", p.IVORN, pos.Unit)
	}
	if ac.System != "" && !strings.Contains(ac.System, "FK5") && !strings.Contains(ac.System, "ICRS") {
		return Event{}, fmt.Errorf("voevent %s: unsupported coordinate system %q", p.IVORN, ac.System)
	}

	coords, err := astro.NewEquatorial(*pos.C1, *pos.C2)
	if err != nil {
		return Event{}, fmt.Errorf("voevent %s: %w", p.IVORN, err)
	}
	ev.Coords = coords
	ev.ErrorRadius = pos.Radius
	return ev, nil
}

// parseISOTime accepts ISO 8601 with or without a zone; no zone means UTC.
func parseISOTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad ISOTime %q", s)
}
