package gesture

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backend installs global key monitors.
type Backend interface {
	// Observe installs a non-suppressing monitor.
	Observe(handler func(Event)) (Token, error)
	// Intercept installs a monitor whose verdict may suppress the event.
	Intercept(handler func(Event) Verdict) (Token, error)
}

// Monitor is one registration the Registrar keeps attempting until it succeeds.
type Monitor struct {
	Name     string
	Register func() (Token, error)
}

// ObserverMonitor feeds d from a non-suppressing monitor.
func ObserverMonitor(b Backend, d *Detector) Monitor {
	return Monitor{Name: "observer", Register: func() (Token, error) { return b.Observe(d.Observe) }}
}

// InterceptorMonitor feeds d from a suppressing monitor.
func InterceptorMonitor(b Backend, d *Detector) Monitor {
	return Monitor{Name: "interceptor", Register: func() (Token, error) { return b.Intercept(d.Intercept) }}
}

// ShortcutMonitor fires on s through a non-suppressing monitor.
func ShortcutMonitor(b Backend, s Shortcut, fire func()) Monitor {
	return Monitor{Name: "shortcut " + s.String(), Register: func() (Token, error) { return b.Observe(s.Trigger(fire)) }}
}

// Registrar retries monitor registration on a fixed interval until every monitor is installed.
type Registrar struct {
	monitors []Monitor
	registry *Registry
	interval time.Duration
	logger   *slog.Logger
}

// NewRegistrar builds a registrar that records tokens in registry.
func NewRegistrar(registry *Registry, interval time.Duration, logger *slog.Logger, monitors ...Monitor) *Registrar {
	if registry == nil {
		registry = ProcessRegistry()
	}
	return &Registrar{monitors: monitors, registry: registry, interval: interval, logger: logger}
}

// Run attempts registration immediately and then once per interval. It returns nil
// once every monitor is installed, or ctx.Err() if cancelled first.
func (r *Registrar) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("registration retry interval must be > 0")
	}

	pending := append([]Monitor(nil), r.monitors...)
	attempt := 0
	for {
		attempt++
		pending = r.attempt(pending, attempt)
		if len(pending) == 0 {
			return nil
		}

		timer := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Registrar) attempt(pending []Monitor, attempt int) []Monitor {
	remaining := pending[:0]
	for _, monitor := range pending {
		token, err := monitor.Register()
		if err != nil {
			if attempt == 1 {
				r.log(slog.LevelWarn, "key monitor registration failed; retrying", "monitor", monitor.Name, "error", err.Error())
			} else {
				r.log(slog.LevelDebug, "key monitor registration retry failed", "monitor", monitor.Name, "attempt", attempt, "error", err.Error())
			}
			remaining = append(remaining, monitor)
			continue
		}
		r.registry.Keep(monitor.Name, token)
		r.log(slog.LevelInfo, "key monitor registered", "monitor", monitor.Name, "attempt", attempt)
	}
	return remaining
}

func (r *Registrar) log(level slog.Level, msg string, args ...any) {
	if r.logger != nil {
		r.logger.Log(context.Background(), level, msg, args...)
	}
}
