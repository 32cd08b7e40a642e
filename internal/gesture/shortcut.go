package gesture

import (
	"fmt"
	"strings"
)

// Shortcut is a conventional modifier+key chord, matched independently of the tap detector.
type Shortcut struct {
	name      string
	modifiers Modifier
	keycode   uint16
}

// ParseShortcut parses "alt+space" style chords. lookup resolves the final key name to a keycode.
func ParseShortcut(raw string, lookup func(string) (uint16, bool)) (Shortcut, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), "+")
	if len(parts) < 2 {
		return Shortcut{}, fmt.Errorf("shortcut %q must combine at least one modifier with a key", raw)
	}

	var mods Modifier
	for _, part := range parts[:len(parts)-1] {
		family, ok := families[strings.TrimSpace(part)]
		if !ok {
			return Shortcut{}, fmt.Errorf("shortcut %q: unknown modifier %q", raw, part)
		}
		mods |= family
	}

	keyName := strings.TrimSpace(parts[len(parts)-1])
	code, ok := lookup(keyName)
	if !ok {
		return Shortcut{}, fmt.Errorf("shortcut %q: unknown key %q", raw, keyName)
	}

	return Shortcut{name: strings.ToLower(strings.TrimSpace(raw)), modifiers: mods, keycode: code}, nil
}

func (s Shortcut) String() string { return s.name }

// Matches reports whether ev is the key press of this chord with exactly the chord's
// modifier families held. Either side of a family satisfies it.
func (s Shortcut) Matches(ev Event) bool {
	if ev.Kind != EventKeyDown || ev.Keycode != s.keycode {
		return false
	}
	for _, family := range []Modifier{familyShift, familyCtrl, familyAlt, familySuper} {
		want := s.modifiers&family != 0
		have := ev.Modifiers&family != 0
		if want != have {
			return false
		}
	}
	return true
}

// Trigger returns an observer handler that calls fire on every match.
func (s Shortcut) Trigger(fire func()) func(Event) {
	return func(ev Event) {
		if s.Matches(ev) && fire != nil {
			fire()
		}
	}
}
