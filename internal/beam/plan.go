// Package beam splits a station's recording bandwidth into per-machine
// subband blocks. Each recording machine gets one science beam on the target
// and one calibrator beam one subband narrower, so losing a machine loses
// only its share of both.
package beam

import (
	"fmt"

	"github.com/large-farva/fast-trigger/internal/astro"
)

// Role tells science and calibrator beams apart.
type Role string

const (
	Science    Role = "science"
	Calibrator Role = "calibrator"
)

// Beam is a pointing recorded on a contiguous run of subbands.
type Beam struct {
	Machine  int
	Role     Role
	Subbands []int
	Target   astro.Equatorial
}

// Plan is the ordered beam list: science then calibrator, machine by
// machine.
type Plan []Beam

// Layout holds the partitioning constants. The subband ranges it produces
// are part of the station-control contract.
type Layout struct {
	Machines           int `toml:"machines"             json:"machines"`
	SubbandsPerMachine int `toml:"subbands_per_machine" json:"subbands_per_machine"`
	FirstSubband       int `toml:"first_subband"        json:"first_subband"`
}

// DefaultLayout is 4 machines of 31 subbands starting at subband 220.
var DefaultLayout = Layout{Machines: 4, SubbandsPerMachine: 31, FirstSubband: 220}

// Validate rejects layouts that cannot produce a calibrator block.
func (l Layout) Validate() error {
	if l.Machines < 1 {
		return fmt.Errorf("beams.machines must be >= 1")
	}
	if l.SubbandsPerMachine < 2 {
		return fmt.Errorf("beams.subbands_per_machine must be >= 2")
	}
	if l.FirstSubband < 0 || l.FirstSubband+l.Machines*l.SubbandsPerMachine > 512 {
		return fmt.Errorf("beams: subbands %d..%d outside 0..511", l.FirstSubband, l.FirstSubband+l.Machines*l.SubbandsPerMachine-1)
	}
	return nil
}

// Plan builds the beams for target and calibrator.
func (l Layout) Plan(target, calibrator astro.Equatorial) Plan {
	plan := make(Plan, 0, 2*l.Machines)
	for i := 0; i < l.Machines; i++ {
		first := l.FirstSubband + i*l.SubbandsPerMachine
		subs := make([]int, l.SubbandsPerMachine)
		for j := range subs {
			subs[j] = first + j
		}
		// The calibrator drops the last subband and must not share spare
		// capacity with the science slice.
		n := len(subs) - 1
		plan = append(plan,
			Beam{Machine: i, Role: Science, Subbands: subs, Target: target},
			Beam{Machine: i, Role: Calibrator, Subbands: subs[:n:n], Target: calibrator},
		)
	}
	return plan
}

// ByRole returns the beams with role r, in machine order.
func (p Plan) ByRole(r Role) []Beam {
	var out []Beam
	for _, b := range p {
		if b.Role == r {
			out = append(out, b)
		}
	}
	return out
}

// FormatSubbands renders a contiguous run as "first..last".
func FormatSubbands(subs []int) string {
	switch len(subs) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%d", subs[0])
	}
	return fmt.Sprintf("%d..%d", subs[0], subs[len(subs)-1])
}
