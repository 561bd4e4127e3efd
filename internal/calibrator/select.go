package calibrator

import (
	"errors"
	"time"

	"github.com/large-farva/fast-trigger/internal/astro"
)

// ErrNoCalibrator is returned when no catalog entry stays above the minimum
// elevation for the whole window.
var ErrNoCalibrator = errors.New("no calibrator could be set")

// Selection is the chosen calibrator and the numbers that justified it.
type Selection struct {
	Index          int
	Calibrator     Calibrator
	Separation     float64 // degrees from the target
	ElevationStart float64
	ElevationEnd   float64
}

// Candidate is the evaluation of one catalog entry.
type Candidate struct {
	Calibrator     Calibrator
	Separation     float64
	ElevationStart float64
	ElevationEnd   float64
	Eligible       bool
}

// Evaluate computes separation from target and elevation at start and end
// for every catalog entry, in catalog order.
func Evaluate(eph astro.Ephemeris, catalog Catalog, site astro.Site, target astro.Equatorial, start, end time.Time, minElevation float64) []Candidate {
	out := make([]Candidate, len(catalog))
	for i, cal := range catalog {
		c := Candidate{
			Calibrator:     cal,
			Separation:     eph.Separation(target, cal.Coords),
			ElevationStart: eph.AltAz(cal.Coords, site, start).Alt,
			ElevationEnd:   eph.AltAz(cal.Coords, site, end).Alt,
		}
		c.Eligible = c.ElevationStart > minElevation && c.ElevationEnd > minElevation
		out[i] = c
	}
	return out
}

// Select picks, among calibrators above minElevation at both start and end,
// the one furthest from the target. Ties go to the lowest catalog index.
func Select(eph astro.Ephemeris, catalog Catalog, site astro.Site, target astro.Equatorial, start, end time.Time, minElevation float64) (Selection, error) {
	best := -1
	candidates := Evaluate(eph, catalog, site, target, start, end, minElevation)
	for i, c := range candidates {
		if !c.Eligible {
			continue
		}
		if best < 0 || c.Separation > candidates[best].Separation {
			best = i
		}
	}
	if best < 0 {
		return Selection{}, ErrNoCalibrator
	}

	c := candidates[best]
	return Selection{
		Index:          best,
		Calibrator:     c.Calibrator,
		Separation:     c.Separation,
		ElevationStart: c.ElevationStart,
		ElevationEnd:   c.ElevationEnd,
	}, nil
}
