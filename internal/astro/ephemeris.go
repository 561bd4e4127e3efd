package astro

import (
	"math"
	"time"

	"github.com/joshuaferrara/go-satellite"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// Site is an observer position on the ground.
type Site struct {
	Lat float64 // degrees North
	Lon float64 // degrees East
	Alt float64 // meters above sea level
}

// Horizontal is a local alt/az position in degrees. Azimuth is measured
// from North through East.
type Horizontal struct {
	Alt float64
	Az  float64
}

// Ephemeris computes where sources are on the sky. Implementations must be
// pure functions of their arguments.
type Ephemeris interface {
	AltAz(c Equatorial, site Site, t time.Time) Horizontal
	Separation(a, b Equatorial) float64
}

// Sidereal is the default Ephemeris. It converts J2000 positions to the
// local horizon through Greenwich mean sidereal time, ignoring precession,
// nutation and refraction. That is well inside a station beam for the
// short windows a fast trigger covers.
type Sidereal struct{}

// GMST returns Greenwich mean sidereal time at t in degrees [0, 360).
func (Sidereal) GMST(t time.Time) float64 {
	t = t.UTC()
	jd := satellite.JDay(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	jd += float64(t.Nanosecond()) / 1e9 / 86400
	return normalize(satellite.ThetaG_JD(jd) * rad2deg)
}

// LST returns local mean sidereal time at site in degrees [0, 360).
func (s Sidereal) LST(site Site, t time.Time) float64 {
	return normalize(s.GMST(t) + site.Lon)
}

// AltAz implements Ephemeris.
func (s Sidereal) AltAz(c Equatorial, site Site, t time.Time) Horizontal {
	ha := (s.LST(site, t) - c.ra) * deg2rad
	dec := c.dec * deg2rad
	lat := site.Lat * deg2rad

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	alt := math.Asin(clamp(sinAlt))

	y := -math.Cos(dec) * math.Sin(ha)
	x := math.Sin(dec)*math.Cos(lat) - math.Cos(dec)*math.Sin(lat)*math.Cos(ha)
	az := math.Atan2(y, x)

	return Horizontal{Alt: alt * rad2deg, Az: normalize(az * rad2deg)}
}

// Separation implements Ephemeris using the Vincenty great-circle formula,
// which stays accurate for both tiny and antipodal separations.
func (Sidereal) Separation(a, b Equatorial) float64 {
	d1, d2 := a.dec*deg2rad, b.dec*deg2rad
	dra := (b.ra - a.ra) * deg2rad

	num1 := math.Cos(d2) * math.Sin(dra)
	num2 := math.Cos(d1)*math.Sin(d2) - math.Sin(d1)*math.Cos(d2)*math.Cos(dra)
	den := math.Sin(d1)*math.Sin(d2) + math.Cos(d1)*math.Cos(d2)*math.Cos(dra)

	return math.Atan2(math.Hypot(num1, num2), den) * rad2deg
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
