package station

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownStation is returned by Registry.Get for names that were never
// registered.
var ErrUnknownStation = errors.New("unknown station")

// Registry owns the named stations of the process. It is populated once by
// NewRegistry and is read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	byKey map[string]*Station
	keys  []string
}

// NewRegistry indexes stations by their lower-cased short name. Duplicate
// names are rejected.
func NewRegistry(stations ...*Station) (*Registry, error) {
	r := &Registry{byKey: make(map[string]*Station, len(stations))}
	for _, s := range stations {
		k := s.Key()
		if _, dup := r.byKey[k]; dup {
			return nil, fmt.Errorf("duplicate station %q", s.ShortName)
		}
		r.byKey[k] = s
		r.keys = append(r.keys, k)
	}
	sort.Strings(r.keys)
	return r, nil
}

// Get looks a station up by short name, case-insensitively.
func (r *Registry) Get(name string) (*Station, error) {
	s, ok := r.byKey[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStation, name)
	}
	return s, nil
}

// Names returns the registered keys in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// All returns the stations in key order.
func (r *Registry) All() []*Station {
	out := make([]*Station, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.byKey[k])
	}
	return out
}
