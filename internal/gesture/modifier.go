// Package gesture detects the isolated-tap toggle gesture and the fallback shortcut from global key events.
package gesture

import (
	"fmt"
	"strings"
)

// Modifier is a set of physical modifier keys. Left and right keys are distinct bits.
type Modifier uint16

const (
	ModShiftL Modifier = 1 << iota
	ModShiftR
	ModCtrlL
	ModCtrlR
	ModAltL
	ModAltR
	ModSuperL
	ModSuperR
)

const (
	familyShift = ModShiftL | ModShiftR
	familyCtrl  = ModCtrlL | ModCtrlR
	familyAlt   = ModAltL | ModAltR
	familySuper = ModSuperL | ModSuperR
)

var keyNames = map[string]Modifier{
	"lshift": ModShiftL,
	"rshift": ModShiftR,
	"lctrl":  ModCtrlL,
	"rctrl":  ModCtrlR,
	"lalt":   ModAltL,
	"ralt":   ModAltR,
	"lsuper": ModSuperL,
	"rsuper": ModSuperR,
}

var families = map[string]Modifier{
	"shift": familyShift,
	"ctrl":  familyCtrl,
	"alt":   familyAlt,
	"super": familySuper,
}

// ParseKey maps a designated key name such as "rctrl" to its modifier bit.
func ParseKey(name string) (Modifier, error) {
	key, ok := keyNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown gesture key %q", name)
	}
	return key, nil
}

// Has reports whether every bit of other is present in m.
func (m Modifier) Has(other Modifier) bool {
	return other != 0 && m&other == other
}

func (m Modifier) String() string {
	if m == 0 {
		return "none"
	}
	names := make([]string, 0, 2)
	for _, name := range []string{"lshift", "rshift", "lctrl", "rctrl", "lalt", "ralt", "lsuper", "rsuper"} {
		if m&keyNames[name] != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "+")
}
