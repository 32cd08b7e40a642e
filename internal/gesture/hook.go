package gesture

import (
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"

	hook "github.com/robotn/gohook"
)

// ErrNoDisplay means no X display is reachable for the global key hook.
var ErrNoDisplay = errors.New("no X display available for global key events (DISPLAY is unset)")

// libuiohook virtual key codes for the physical modifier keys.
var modifierCodes = map[uint16]Modifier{
	0x002A: ModShiftL,
	0x0036: ModShiftR,
	0x001D: ModCtrlL,
	0x0E1D: ModCtrlR,
	0x0038: ModAltL,
	0x0E38: ModAltR,
	0x0E5B: ModSuperL,
	0x0E5C: ModSuperR,
}

// LookupKey resolves a key name ("space", "a", "f5") to a hook keycode.
func LookupKey(name string) (uint16, bool) {
	code, ok := hook.Keycode[name]
	return code, ok
}

// HookBackend delivers global key events from a single gohook stream. The stream
// starts on the first registration; later registrations share it.
type HookBackend struct {
	logger    *slog.Logger
	getenv    func(string) string
	start     func() chan hook.Event
	end       func()
	frontmost func() bool

	mu           sync.Mutex
	started      bool
	observers    []func(Event)
	interceptors []func(Event) Verdict

	// Translation state, touched only by the dispatch goroutine.
	mods Modifier
	held map[uint16]bool
}

type hookToken struct {
	monitor string
	index   int
}

// NewHookBackend builds a backend over the process-global gohook stream. A
// background daemon never holds keyboard focus, so events route to observers.
func NewHookBackend(logger *slog.Logger) *HookBackend {
	return &HookBackend{
		logger:    logger,
		getenv:    os.Getenv,
		start:     hook.Start,
		end:       hook.End,
		frontmost: func() bool { return false },
		held:      make(map[uint16]bool),
	}
}

// Observe installs a non-suppressing handler.
func (b *HookBackend) Observe(handler func(Event)) (Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureStartedLocked(); err != nil {
		return nil, err
	}
	b.observers = append(b.observers, handler)
	return hookToken{monitor: "observer", index: len(b.observers) - 1}, nil
}

// Intercept installs a handler that receives events while this process is
// frontmost. gohook cannot drop events, so a Swallow verdict is only logged.
func (b *HookBackend) Intercept(handler func(Event) Verdict) (Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureStartedLocked(); err != nil {
		return nil, err
	}
	b.interceptors = append(b.interceptors, handler)
	return hookToken{monitor: "interceptor", index: len(b.interceptors) - 1}, nil
}

// Close ends the hook stream at process shutdown.
func (b *HookBackend) Close() {
	b.mu.Lock()
	started := b.started
	b.started = false
	b.mu.Unlock()
	if started && b.end != nil {
		b.end()
	}
}

func (b *HookBackend) ensureStartedLocked() error {
	if b.started {
		return nil
	}
	if b.getenv("DISPLAY") == "" {
		return ErrNoDisplay
	}
	stream := b.start()
	if stream == nil {
		return errors.New("start global key hook: no event stream")
	}
	b.started = true
	go b.dispatch(stream)
	return nil
}

func (b *HookBackend) dispatch(stream <-chan hook.Event) {
	for raw := range stream {
		ev, ok := b.translate(raw)
		if !ok {
			continue
		}
		b.deliver(ev)
	}
}

func (b *HookBackend) deliver(ev Event) {
	b.mu.Lock()
	observers := slices.Clone(b.observers)
	interceptors := slices.Clone(b.interceptors)
	b.mu.Unlock()

	if len(interceptors) > 0 && b.frontmost() {
		for _, handler := range interceptors {
			if handler(ev) == Swallow && b.logger != nil {
				b.logger.Debug("gesture key release consumed", "modifiers", ev.Modifiers.String())
			}
		}
		return
	}
	for _, handler := range observers {
		handler(ev)
	}
}

// translate folds gohook press/release records into modifier-set changes and
// ordinary key events. Repeated presses of a held key are dropped.
func (b *HookBackend) translate(raw hook.Event) (Event, bool) {
	switch raw.Kind {
	case hook.KeyDown, hook.KeyHold:
		if raw.Keycode == 0 || b.held[raw.Keycode] {
			return Event{}, false
		}
		b.held[raw.Keycode] = true
		if bit, ok := modifierCodes[raw.Keycode]; ok {
			b.mods |= bit
			return Event{Kind: EventModifiersChanged, Modifiers: b.mods}, true
		}
		return Event{Kind: EventKeyDown, Modifiers: b.mods, Keycode: raw.Keycode}, true
	case hook.KeyUp:
		delete(b.held, raw.Keycode)
		if bit, ok := modifierCodes[raw.Keycode]; ok {
			b.mods &^= bit
			return Event{Kind: EventModifiersChanged, Modifiers: b.mods}, true
		}
		return Event{Kind: EventKeyUp, Modifiers: b.mods, Keycode: raw.Keycode}, true
	}
	return Event{}, false
}
