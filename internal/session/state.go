package session

import (
	"sync"

	"github.com/izyuumi/koe/internal/fsm"
)

// Settings are the recognition parameters applied to the next start.
type Settings struct {
	Language     string
	OnDeviceOnly bool
}

// State is the process-wide session record. It is created once at startup and
// injected into the controller; every access is an O(1) critical section.
type State struct {
	mu        sync.Mutex
	phase     fsm.State
	sessionID string
	settings  Settings
}

// NewState returns an idle session carrying the startup settings.
func NewState(settings Settings) *State {
	return &State{phase: fsm.StateIdle, settings: settings}
}

// Phase returns the current FSM state snapshot.
func (s *State) Phase() fsm.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Listening reports whether a session is active.
func (s *State) Listening() bool {
	return s.Phase() == fsm.StateListening
}

// SessionID returns the active session ID, or "" when idle.
func (s *State) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Settings returns the settings the next start will use.
func (s *State) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the settings used by the next start.
func (s *State) SetSettings(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

// begin moves idle -> listening under id. ok is false when already listening.
func (s *State) begin(id string) (Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fsm.Transition(s.phase, fsm.EventStart)
	if err != nil {
		return Settings{}, false
	}
	s.phase = next
	s.sessionID = id
	return s.settings, true
}

// end moves listening -> idle and returns the finished session ID.
func (s *State) end() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fsm.Transition(s.phase, fsm.EventStop)
	if err != nil {
		return "", false
	}
	id := s.sessionID
	s.phase = next
	s.sessionID = ""
	return id, true
}

// abort ends the session only when id is still the active one.
func (s *State) abort(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID != id {
		return false
	}
	next, err := fsm.Transition(s.phase, fsm.EventCrash)
	if err != nil {
		return false
	}
	s.phase = next
	s.sessionID = ""
	return true
}
