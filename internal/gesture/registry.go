package gesture

import "sync"

// Token is an opaque monitor registration handle returned by a Backend.
type Token any

// registration records a monitor that stays installed until the process exits.
type registration struct {
	monitor string
	token   Token
}

// Registry holds monitor tokens for the life of the process. Entries are never released.
type Registry struct {
	mu      sync.Mutex
	entries []registration
}

var processRegistry Registry

// ProcessRegistry returns the process-wide registry.
func ProcessRegistry() *Registry { return &processRegistry }

// Keep records token for monitor.
func (r *Registry) Keep(monitor string, token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, registration{monitor: monitor, token: token})
}

// Monitors lists the names of retained registrations in registration order.
func (r *Registry) Monitors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		names = append(names, entry.monitor)
	}
	return names
}
