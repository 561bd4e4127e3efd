// Package astro holds the sky-coordinate value type and the ephemeris
// calculations the trigger pipeline needs: horizontal (alt/az) position of a
// J2000 source as seen from a ground station, and angular separation between
// two sources.
package astro

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidCoordinates is returned by the Equatorial factories when the
// input does not describe a valid J2000 position.
var ErrInvalidCoordinates = errors.New("invalid equatorial coordinates")

// Frame is the reference frame of every Equatorial value.
const Frame = "J2000"

// Equatorial is an immutable J2000 (FK5) right ascension / declination pair
// in degrees. The zero value is not a valid position; build one with
// NewEquatorial or ParseEquatorial.
type Equatorial struct {
	ra    float64
	dec   float64
	valid bool
}

// NewEquatorial validates ra and dec (degrees) and returns the position.
// RA is normalised into [0, 360); Dec must lie in [-90, 90].
func NewEquatorial(raDeg, decDeg float64) (Equatorial, error) {
	if math.IsNaN(raDeg) || math.IsInf(raDeg, 0) || math.IsNaN(decDeg) || math.IsInf(decDeg, 0) {
		return Equatorial{}, fmt.Errorf("%w: non-finite value", ErrInvalidCoordinates)
	}
	if decDeg < -90 || decDeg > 90 {
		return Equatorial{}, fmt.Errorf("%w: dec %.6f out of range", ErrInvalidCoordinates, decDeg)
	}
	ra := math.Mod(raDeg, 360)
	if ra < 0 {
		ra += 360
	}
	return Equatorial{ra: ra, dec: decDeg, valid: true}, nil
}

// MustEquatorial is NewEquatorial for compile-time constants such as the
// calibrator catalog. It panics on invalid input.
func MustEquatorial(raDeg, decDeg float64) Equatorial {
	c, err := NewEquatorial(raDeg, decDeg)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseEquatorial accepts sexagesimal "hh:mm:ss.s" RA and "±dd:mm:ss.s" Dec
// strings. Plain decimal degrees are accepted for either field.
func ParseEquatorial(ra, dec string) (Equatorial, error) {
	raDeg, err := parseSexagesimal(ra, 15)
	if err != nil {
		return Equatorial{}, fmt.Errorf("%w: ra %q: %v", ErrInvalidCoordinates, ra, err)
	}
	decDeg, err := parseSexagesimal(dec, 1)
	if err != nil {
		return Equatorial{}, fmt.Errorf("%w: dec %q: %v", ErrInvalidCoordinates, dec, err)
	}
	return NewEquatorial(raDeg, decDeg)
}

// RA returns right ascension in degrees.
func (e Equatorial) RA() float64 { return e.ra }

// Dec returns declination in degrees.
func (e Equatorial) Dec() float64 { return e.dec }

// Valid reports whether e was built by one of the factories.
func (e Equatorial) Valid() bool { return e.valid }

// HMS renders RA as "hh:mm:ss.ss".
func (e Equatorial) HMS() string {
	h, m, s := split(e.ra / 15)
	if h == 24 {
		h = 0
	}
	return fmt.Sprintf("%02d:%02d:%05.2f", h, m, s)
}

// DMS renders Dec as "±dd:mm:ss.ss".
func (e Equatorial) DMS() string {
	sign := "+"
	v := e.dec
	if v < 0 {
		sign = "-"
		v = -v
	}
	d, m, s := split(v)
	return fmt.Sprintf("%s%02d:%02d:%05.2f", sign, d, m, s)
}

func (e Equatorial) String() string {
	return fmt.Sprintf("%s %s (%s)", e.HMS(), e.DMS(), Frame)
}

// split breaks a non-negative decimal value into whole units, minutes and
// seconds, carrying upward when the seconds round to 60.00.
func split(v float64) (int, int, float64) {
	total := math.Round(v*360000) / 100 // hundredths of a second
	units := int(total / 3600)
	rem := total - float64(units)*3600
	minutes := int(rem / 60)
	seconds := rem - float64(minutes)*60
	if seconds >= 59.995 {
		seconds = 0
		minutes++
	}
	if minutes == 60 {
		minutes = 0
		units++
	}
	return units, minutes, seconds
}

// parseSexagesimal parses "a:b:c" (or "a b c") with the given degrees-per-unit
// scale, or a bare decimal number which is taken as degrees.
func parseSexagesimal(s string, scale float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == ' ' })
	if len(fields) == 1 {
		return strconv.ParseFloat(fields[0], 64)
	}
	if len(fields) != 3 {
		return 0, fmt.Errorf("want 3 components, got %d", len(fields))
	}

	neg := strings.HasPrefix(fields[0], "-")
	parts := make([]float64, 3)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimLeft(f, "+-"), 64)
		if err != nil {
			return 0, err
		}
		if i > 0 && (v < 0 || v >= 60) {
			return 0, fmt.Errorf("component %q out of range", f)
		}
		parts[i] = v
	}

	v := (parts[0] + parts[1]/60 + parts[2]/3600) * scale
	if neg {
		v = -v
	}
	return v, nil
}
