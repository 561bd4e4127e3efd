// Package predict answers whether a sky position can be observed from a
// station: above the station's minimum elevation at a given instant or over
// a whole observing window.
package predict

import (
	"time"

	"github.com/large-farva/fast-trigger/internal/astro"
	"github.com/large-farva/fast-trigger/internal/station"
)

// ObservingWindow is the [Start, End] interval of a requested observation.
type ObservingWindow struct {
	Start time.Time
	End   time.Time
}

// Window returns the observing window starting at start and lasting d.
func Window(start time.Time, d time.Duration) ObservingWindow {
	return ObservingWindow{Start: start, End: start.Add(d)}
}

// Elevation returns the altitude of c above the station horizon at t.
func Elevation(eph astro.Ephemeris, desc station.Descriptor, c astro.Equatorial, t time.Time) float64 {
	return eph.AltAz(c, desc.Site(), t).Alt
}

// IsVisible reports whether c is strictly above the station's minimum
// elevation at t.
func IsVisible(eph astro.Ephemeris, desc station.Descriptor, c astro.Equatorial, t time.Time) bool {
	return Elevation(eph, desc, c, t) > desc.MinElevation
}

// VisibleThroughout reports whether c is visible at both ends of w.
func VisibleThroughout(eph astro.Ephemeris, desc station.Descriptor, c astro.Equatorial, w ObservingWindow) bool {
	return IsVisible(eph, desc, c, w.Start) && IsVisible(eph, desc, c, w.End)
}
