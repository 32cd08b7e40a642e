// Package recognizer supervises the speech helper subprocess and decodes its line protocol.
package recognizer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/izyuumi/koe/internal/events"
	"github.com/izyuumi/koe/internal/session"
)

const maxLineBytes = 1 << 20

// Config parameterizes helper launches.
type Config struct {
	// HelperPath overrides helper resolution when set.
	HelperPath string
	ExtraArgs  []string
	// FinalGrace bounds how long Stop waits for the helper to flush after the
	// termination signal. Zero means Stop never waits.
	FinalGrace time.Duration
}

// Manager owns at most one live helper process.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	bus    *events.Bus

	mu         sync.Mutex
	current    *run
	generation uint64
	transcript string
}

type run struct {
	sessionID  string
	generation uint64
	cmd        *exec.Cmd
	done       chan struct{}

	// stopping is set once we have sent the termination signal.
	stopping atomic.Bool
	// replaced marks a run terminated by a newer Start rather than by Stop.
	replaced atomic.Bool
}

// NewManager builds an idle manager.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger, bus: events.NewBus()}
}

// Subscribe registers a handler for transcript, level, and error events.
func (m *Manager) Subscribe(handler events.Handler) func() {
	return m.bus.Subscribe(handler)
}

// Start launches a helper for req, terminating any tracked run first. The helper
// is not bound to ctx; it lives until Stop, a newer Start, or its own exit.
func (m *Manager) Start(_ context.Context, req session.Request) error {
	m.mu.Lock()
	if prev := m.current; prev != nil {
		prev.replaced.Store(true)
		m.terminate(prev)
		m.current = nil
	}
	// Output from any earlier run, stopped or replaced, is ignored from here on.
	m.generation++
	m.transcript = ""

	path, err := ResolveHelperPath(m.cfg.HelperPath)
	if err != nil {
		m.mu.Unlock()
		return m.spawnFailed(req.SessionID, err)
	}

	cmd := exec.Command(path, BuildArgs(req, m.cfg.ExtraArgs)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		m.mu.Unlock()
		return m.spawnFailed(req.SessionID, err)
	}
	cmd.Stderr = &stderrLogger{logger: m.logger, sessionID: req.SessionID}

	if err := cmd.Start(); err != nil {
		m.mu.Unlock()
		return m.spawnFailed(req.SessionID, err)
	}

	r := &run{sessionID: req.SessionID, generation: m.generation, cmd: cmd, done: make(chan struct{})}
	m.current = r
	m.mu.Unlock()

	m.logInfo("speech helper started", "session_id", req.SessionID, "pid", cmd.Process.Pid, "path", path)
	go m.supervise(r, stdout)
	return nil
}

// Stop signals the tracked helper and returns the buffered final transcript, clearing it.
func (m *Manager) Stop() string {
	m.mu.Lock()
	r := m.current
	m.current = nil
	if r != nil {
		m.terminate(r)
	}
	m.mu.Unlock()

	if r != nil && m.cfg.FinalGrace > 0 {
		timer := time.NewTimer(m.cfg.FinalGrace)
		select {
		case <-r.done:
		case <-timer.C:
			m.logDebug("speech helper still running after final grace", "session_id", r.sessionID)
		}
		timer.Stop()
	}

	m.mu.Lock()
	text := m.transcript
	m.transcript = ""
	if r != nil {
		// Anything the stopped run prints after this point belongs to no session.
		m.generation++
	}
	m.mu.Unlock()
	return text
}

// Close stops any tracked helper and kills it if it has not exited within timeout.
func (m *Manager) Close(timeout time.Duration) {
	m.mu.Lock()
	r := m.current
	m.current = nil
	if r != nil {
		m.terminate(r)
	}
	m.mu.Unlock()

	if r == nil {
		return
	}
	select {
	case <-r.done:
	case <-time.After(timeout):
		_ = r.cmd.Process.Kill()
		<-r.done
	}
}

// terminate sends SIGTERM without waiting. Callers hold m.mu.
func (m *Manager) terminate(r *run) {
	r.stopping.Store(true)
	if err := r.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		m.logDebug("signal speech helper failed", "session_id", r.sessionID, "error", err.Error())
	}
}

// supervise is the per-run worker: it drains stdout until EOF, then reaps the process.
func (m *Manager) supervise(r *run, stdout io.Reader) {
	defer close(r.done)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		m.handleLine(r, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		m.logWarn("speech helper output read failed", "session_id", r.sessionID, "error", err.Error())
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := r.cmd.Wait()

	m.mu.Lock()
	if m.current == r {
		m.current = nil
	}
	m.mu.Unlock()

	message, crashed := classifyExit(waitErr, r.stopping.Load())
	switch {
	case !crashed:
		m.logInfo("speech helper exited", "session_id", r.sessionID, "requested", r.stopping.Load())
	case r.replaced.Load():
		m.logWarn("replaced speech helper exited abnormally", "session_id", r.sessionID, "error", errString(waitErr))
	default:
		m.logError("speech helper crashed", "session_id", r.sessionID, "error", errString(waitErr))
		m.bus.Publish(events.Event{
			Kind:      events.KindSpeechError,
			SessionID: r.sessionID,
			Message:   message,
			Fatal:     true,
		})
	}
}

func (m *Manager) handleLine(r *run, raw string) {
	if !m.isLatest(r) {
		return
	}

	line, ok := ParseLine(raw)
	if !ok {
		m.logDebug("ignored speech helper line", "session_id", r.sessionID, "line", raw)
		return
	}

	ev := events.Event{SessionID: r.sessionID}
	switch line.Kind {
	case LineReady:
		m.logDebug("speech helper ready", "session_id", r.sessionID)
		return
	case LinePartial:
		ev.Kind = events.KindTranscriptPartial
		ev.Text = line.Text
	case LineFinal:
		m.mu.Lock()
		if r.generation != m.generation {
			m.mu.Unlock()
			return
		}
		m.transcript = line.Text
		m.mu.Unlock()
		ev.Kind = events.KindTranscriptFinal
		ev.Text = line.Text
	case LineLevel:
		ev.Kind = events.KindMicLevel
		ev.Level = line.Level
	case LineError:
		ev.Kind = events.KindSpeechError
		ev.Message = line.Text
	}
	m.bus.Publish(ev)
}

// isLatest reports whether r belongs to the most recent Start.
func (m *Manager) isLatest(r *run) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return r.generation == m.generation
}

func (m *Manager) spawnFailed(sessionID string, err error) error {
	m.logError("speech helper spawn failed", "session_id", sessionID, "error", err.Error())
	m.bus.Publish(events.Event{
		Kind:      events.KindSpeechError,
		SessionID: sessionID,
		Message:   fmt.Sprintf("Failed to start speech helper: %v", err),
		Fatal:     true,
	})
	return fmt.Errorf("start speech helper: %w", err)
}

// classifyExit maps a Wait result to a crash message. A run we signalled that
// died from that signal is a normal exit.
func classifyExit(err error, requested bool) (string, bool) {
	if err == nil {
		return "", false
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return "Speech helper process lost", true
	}

	code := exitErr.ExitCode()
	if code == -1 {
		if requested {
			return "", false
		}
		return fmt.Sprintf("Speech helper exited unexpectedly (%s)", exitErr.ProcessState.String()), true
	}
	return fmt.Sprintf("Speech helper exited unexpectedly (code %d)", code), true
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (m *Manager) logDebug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Manager) logInfo(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Manager) logWarn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}

func (m *Manager) logError(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Error(msg, args...)
	}
}
