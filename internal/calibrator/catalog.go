// Package calibrator holds the catalog of flux calibrators and picks the one
// to observe alongside a science target.
package calibrator

import (
	"fmt"
	"strings"

	"github.com/large-farva/fast-trigger/internal/astro"
)

// Calibrator is a reference radio source with a well known flux.
type Calibrator struct {
	Name   string
	Coords astro.Equatorial
}

// Catalog is an ordered list of calibrators. Order matters: ties in the
// selection go to the lower index.
type Catalog []Calibrator

// Names returns the calibrator names in catalog order.
func (c Catalog) Names() []string {
	out := make([]string, len(c))
	for i, cal := range c {
		out[i] = cal.Name
	}
	return out
}

// Lookup finds a calibrator by name, case-insensitively.
func (c Catalog) Lookup(name string) (Calibrator, bool) {
	for _, cal := range c {
		if strings.EqualFold(cal.Name, name) {
			return cal, true
		}
	}
	return Calibrator{}, false
}

// Subset returns the named calibrators in the order given. An empty list
// returns c unchanged.
func (c Catalog) Subset(names []string) (Catalog, error) {
	if len(names) == 0 {
		return c, nil
	}
	out := make(Catalog, 0, len(names))
	for _, name := range names {
		cal, ok := c.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown calibrator %q (have %s)", name, strings.Join(c.Names(), ", "))
		}
		out = append(out, cal)
	}
	return out, nil
}

// Default is the LOFAR standard flux calibrator set.
var Default = Catalog{
	{Name: "3C48", Coords: mustParse("01:37:41.30", "+33:09:35.1")},
	{Name: "3C147", Coords: mustParse("05:42:36.14", "+49:51:07.2")},
	{Name: "3C196", Coords: mustParse("08:13:36.00", "+48:13:03.0")},
	{Name: "3C286", Coords: mustParse("13:31:08.29", "+30:30:33.0")},
	{Name: "3C295", Coords: mustParse("14:11:20.50", "+52:12:10.0")},
	{Name: "3C380", Coords: mustParse("18:29:31.80", "+48:44:46.0")},
}

func mustParse(ra, dec string) astro.Equatorial {
	c, err := astro.ParseEquatorial(ra, dec)
	if err != nil {
		panic(err)
	}
	return c
}
