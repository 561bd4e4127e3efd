package lcu

import (
	"fmt"
	"strings"

	"github.com/large-farva/fast-trigger/internal/astro"
	"github.com/large-farva/fast-trigger/internal/beam"
	"github.com/large-farva/fast-trigger/internal/trigger"
)

// Settings are the station-side details that do not come from the request.
type Settings struct {
	RCUs     string // rcu selection passed to beamctl, e.g. "0:191"
	LockFile string // created while a triggered observation runs
	LogFile  string
}

// DefaultSettings fit an international station.
var DefaultSettings = Settings{
	RCUs:     "0:191",
	LockFile: "/tmp/fasttrigger.lock",
	LogFile:  "/tmp/fasttrigger.log",
}

// BeamctlLines renders one beamctl invocation per beam. Science beamlets are
// numbered from 0 in plan order; calibrator beamlets follow after the last
// science beamlet.
func BeamctlLines(req trigger.ObservationRequest, rcus string) []string {
	science := 0
	for _, b := range req.Plan {
		if b.Role == beam.Science {
			science += len(b.Subbands)
		}
	}

	next := map[beam.Role]int{beam.Science: 0, beam.Calibrator: science}
	lines := make([]string, 0, len(req.Plan))
	for _, b := range req.Plan {
		first := next[b.Role]
		next[b.Role] += len(b.Subbands)
		dir := direction(b.Target)
		lines = append(lines, fmt.Sprintf(
			"beamctl --antennaset=%s --rcus=%s --rcumode=%d --subbands=%s --beamlets=%d:%d --anadir=%s --digdir=%s",
			req.AntennaSet, rcus, req.RCUMode,
			span(b.Subbands), first, first+len(b.Subbands)-1,
			dir, dir,
		))
	}
	return lines
}

// Script wraps the beamctl lines into the shell script run on the LCU. The
// lock file marks the station busy until the observation ends.
func Script(req trigger.ObservationRequest, s Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "touch %s\n", s.LockFile)
	for _, line := range BeamctlLines(req, s.RCUs) {
		fmt.Fprintf(&b, "%s >>%s 2>&1 &\n", line, s.LogFile)
	}
	fmt.Fprintf(&b, "sleep %d\n", req.Duration)
	b.WriteString("killall beamctl\n")
	fmt.Fprintf(&b, "rm -f %s\n", s.LockFile)
	return b.String()
}

// direction renders a J2000 position in radians the way beamctl expects.
func direction(c astro.Equatorial) string {
	const d2r = 0.017453292519943295
	return fmt.Sprintf("%.6f,%.6f,%s", c.RA()*d2r, c.Dec()*d2r, astro.Frame)
}

func span(subs []int) string {
	if len(subs) == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", subs[0], subs[len(subs)-1])
}
