package station

import "strings"

// Chilbolton returns the descriptor of the LOFAR-UK station.
func Chilbolton(requester Contact, recipients []Contact) Descriptor {
	return Descriptor{
		Name:             "LOFAR-UK (Chilbolton station)",
		ShortName:        "Chilbolton",
		Latitude:         51.145762,
		Longitude:        -1.428495,
		Altitude:         78,
		TZOffset:         0,
		MinElevation:     DefaultMinElevation,
		DefaultAction:    "NONE",
		DefaultRequester: requester,
		Recipients:       recipients,
	}
}

// Nancay returns the descriptor of the LOFAR-FR station (+47:23:00, 02:12:00).
func Nancay(requester Contact, recipients []Contact) Descriptor {
	return Descriptor{
		Name:             "LOFAR-FR (Nancay station)",
		ShortName:        "Nancay",
		Latitude:         47 + 23.0/60,
		Longitude:        2 + 12.0/60,
		Altitude:         10,
		TZOffset:         1,
		MinElevation:     DefaultMinElevation,
		DefaultAction:    "NONE",
		DefaultRequester: requester,
		Recipients:       recipients,
	}
}

// Builtin returns the descriptor for a known short name, if any.
func Builtin(shortName string, requester Contact, recipients []Contact) (Descriptor, bool) {
	switch strings.ToLower(shortName) {
	case "chilbolton":
		return Chilbolton(requester, recipients), true
	case "nancay":
		return Nancay(requester, recipients), true
	}
	return Descriptor{}, false
}
