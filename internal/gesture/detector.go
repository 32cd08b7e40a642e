package gesture

import "sync/atomic"

// EventKind classifies a key event delivered by a monitor.
type EventKind uint8

const (
	// EventModifiersChanged carries the full modifier set after a modifier press or release.
	EventModifiersChanged EventKind = iota + 1
	EventKeyDown
	EventKeyUp
)

// Event is one key transition as seen by a monitor.
type Event struct {
	Kind      EventKind
	Modifiers Modifier
	Keycode   uint16
}

// Verdict tells an intercepting monitor what to do with the event it just delivered.
type Verdict uint8

const (
	PassThrough Verdict = iota
	Swallow
)

// State is shared by every monitor feeding a Detector. pending implies active.
type State struct {
	active  atomic.Bool
	pending atomic.Bool
}

// Active reports whether the designated key is currently held.
func (s *State) Active() bool { return s.active.Load() }

// Pending reports whether the current hold still qualifies as an isolated tap.
func (s *State) Pending() bool { return s.pending.Load() }

// Detector turns modifier transitions of one designated key into toggle calls.
type Detector struct {
	key      Modifier
	state    State
	onToggle func()
}

// NewDetector builds a detector for key. onToggle runs on the monitor's callback
// goroutine and must return quickly.
func NewDetector(key Modifier, onToggle func()) *Detector {
	return &Detector{key: key, onToggle: onToggle}
}

// Key returns the designated key.
func (d *Detector) Key() Modifier { return d.key }

// State exposes the shared gesture state.
func (d *Detector) State() *State { return &d.state }

// Observe is the handler for non-suppressing monitors.
func (d *Detector) Observe(ev Event) {
	d.transition(ev)
}

// Intercept is the handler for suppressing monitors. It swallows only the release
// that completes an isolated tap. The before and after reads are separate atomic
// loads; concurrent monitors may interleave between them.
func (d *Detector) Intercept(ev Event) Verdict {
	wasPending := d.state.pending.Load()
	wasActive := d.state.active.Load()

	d.transition(ev)

	if ev.Kind != EventModifiersChanged {
		return PassThrough
	}
	if wasPending && wasActive && !ev.Modifiers.Has(d.key) && !d.state.active.Load() {
		return Swallow
	}
	return PassThrough
}

func (d *Detector) transition(ev Event) {
	switch ev.Kind {
	case EventModifiersChanged:
		down := ev.Modifiers.Has(d.key)
		wasDown := d.state.active.Load()
		switch {
		case down && !wasDown:
			d.state.active.Store(true)
			d.state.pending.Store(ev.Modifiers == d.key)
		case down && wasDown:
			if ev.Modifiers != d.key {
				d.state.pending.Store(false)
			}
		case !down && wasDown:
			fire := d.state.pending.Swap(false)
			d.state.active.Store(false)
			if fire && d.onToggle != nil {
				d.onToggle()
			}
		}
	case EventKeyDown, EventKeyUp:
		if d.state.active.Load() {
			d.state.pending.Store(false)
		}
	}
}
