// Package alert names incoming transient alerts: it maps an alert kind and
// its IVORN to the target name, comment and notification subject used by
// the trigger pipeline.
package alert

import (
	"fmt"
	"strings"
)

// Kind is the source of an alert.
type Kind int

const (
	Manual Kind = iota
	SwiftGRB
	FermiGRB
)

// ManualTarget is the target name given to alerts of unknown origin.
const ManualTarget = "4PISKY"

const debugSuffix = " (DEBUG Mode)"

type kindInfo struct {
	wire   string
	tag    string // target name prefix, upper case
	label  string // subject label
	prefix string // IVORN prefix stripped to obtain the identifier
}

var kinds = map[Kind]kindInfo{
	SwiftGRB: {wire: "swift_grb", tag: "SWIFT", label: "Swift GRB", prefix: "ivo://nasa.gsfc.gcn/SWIFT#BAT_GRB_Pos_"},
	FermiGRB: {wire: "fermi_grb", tag: "FERMI", label: "Fermi GRB", prefix: "ivo://nasa.gsfc.gcn/Fermi#GBM_Gnd_Pos_"},
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.wire
	}
	return "manual"
}

// ParseKind maps "swift_grb", "fermi_grb" and anything else (manual).
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, info := range kinds {
		if info.wire == s {
			return k
		}
	}
	return Manual
}

// KindFromIVORN infers the kind from a known IVORN prefix.
func KindFromIVORN(ivorn string) Kind {
	for k, info := range kinds {
		if strings.HasPrefix(ivorn, info.prefix) {
			return k
		}
	}
	return Manual
}

// Alert is an external notice of a transient event.
type Alert struct {
	Kind  Kind
	IVORN string
}

// Classification is the naming derived from an Alert.
type Classification struct {
	TargetName string
	Comment    string
	Subject    string
}

// Classify names alert a for a request to the station called stationName.
// When debug is set every comment and subject carries a "(DEBUG Mode)" suffix.
func Classify(a Alert, stationName string, debug bool) Classification {
	suffix := ""
	if debug {
		suffix = debugSuffix
	}

	info, ok := kinds[a.Kind]
	if !ok {
		return Classification{
			TargetName: ManualTarget,
			Comment:    "Manual trigger" + suffix,
			Subject:    fmt.Sprintf("Manual %s fast triggering%s", stationName, suffix),
		}
	}

	id := identifier(a.IVORN, info.prefix)
	return Classification{
		TargetName: info.tag + "_" + id,
		Comment:    fmt.Sprintf("Automated %s ID %s%s", info.tag, id, suffix),
		Subject:    fmt.Sprintf("%s %s fast triggering%s", info.label, stationName, suffix),
	}
}

// identifier strips the kind prefix; IVORNs from another broker keep
// whatever follows the last '#'.
func identifier(ivorn, prefix string) string {
	if id, ok := strings.CutPrefix(ivorn, prefix); ok {
		return id
	}
	if i := strings.LastIndex(ivorn, "#"); i >= 0 {
		return ivorn[i+1:]
	}
	return ivorn
}
