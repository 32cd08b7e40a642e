// Package session coordinates dictation lifecycle state, recognition, and transcript insertion.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/izyuumi/koe/internal/config"
	"github.com/izyuumi/koe/internal/events"
	"github.com/izyuumi/koe/internal/fsm"
)

// ErrNoRecognizer is returned when a controller is built without a recognizer.
var ErrNoRecognizer = errors.New("speech recognizer is not configured")

const insertFailedMessage = "Unable to insert transcript"

// Controller serializes start/stop/toggle/settings commands over one State.
type Controller struct {
	logger     *slog.Logger
	state      *State
	recognizer Recognizer
	inserter   Inserter
	padding    string
	bus        *events.Bus
	newID      func() string

	// cmdMu serializes whole commands; State guards the individual fields.
	cmdMu       sync.Mutex
	unsubscribe func()
}

// NewController wires a controller and subscribes it to recognizer events.
func NewController(
	logger *slog.Logger,
	state *State,
	recognizer Recognizer,
	inserter Inserter,
	padding string,
) *Controller {
	if state == nil {
		state = NewState(Settings{Language: "en-US", OnDeviceOnly: true})
	}
	if inserter == nil {
		inserter = InsertFunc(func(context.Context, string, string) error { return nil })
	}

	c := &Controller{
		logger:     logger,
		state:      state,
		recognizer: recognizer,
		inserter:   inserter,
		padding:    padding,
		bus:        events.NewBus(),
		newID:      uuid.NewString,
	}
	if recognizer != nil {
		c.unsubscribe = recognizer.Subscribe(c.onRecognizerEvent)
	}
	return c
}

// Subscribe registers an outbound event handler.
func (c *Controller) Subscribe(handler events.Handler) func() {
	return c.bus.Subscribe(handler)
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	return c.state.Phase()
}

// Settings returns the settings the next start will use.
func (c *Controller) Settings() Settings {
	return c.state.Settings()
}

// Start begins a session with the current settings. It is a no-op while listening.
func (c *Controller) Start(ctx context.Context) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.start(ctx)
}

// Stop ends the session and inserts its transcript. It returns "" without side effects when idle.
func (c *Controller) Stop(ctx context.Context) (string, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.stop(ctx)
}

// Toggle stops when listening and starts otherwise.
func (c *Controller) Toggle(ctx context.Context) (string, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.state.Listening() {
		return c.stop(ctx)
	}
	return "", c.start(ctx)
}

// SetSettings validates and stores settings for the next start.
func (c *Controller) SetSettings(language string, onDeviceOnly bool) (Settings, error) {
	normalized, err := config.NormalizeLanguage(language)
	if err != nil {
		return Settings{}, err
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	settings := Settings{Language: normalized, OnDeviceOnly: onDeviceOnly}
	c.state.SetSettings(settings)
	c.logInfo("settings updated", "language", settings.Language, "on_device", settings.OnDeviceOnly)
	return settings, nil
}

// Shutdown ends an active session without inserting its transcript and detaches from the recognizer.
func (c *Controller) Shutdown() {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if id, ok := c.state.end(); ok {
		c.bus.Publish(events.Event{Kind: events.KindListeningState, SessionID: id, Listening: false})
		if c.recognizer != nil {
			_ = c.recognizer.Stop()
		}
		c.logInfo("session discarded on shutdown", "session_id", id)
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) start(ctx context.Context) error {
	if c.recognizer == nil {
		return ErrNoRecognizer
	}

	id := c.newID()
	settings, ok := c.state.begin(id)
	if !ok {
		c.logDebug("start ignored; already listening", "session_id", c.state.SessionID())
		return nil
	}

	c.logInfo("session start", "session_id", id, "language", settings.Language, "on_device", settings.OnDeviceOnly)
	c.bus.Publish(events.Event{Kind: events.KindListeningState, SessionID: id, Listening: true})

	err := c.recognizer.Start(ctx, Request{
		SessionID:    id,
		Language:     settings.Language,
		OnDeviceOnly: settings.OnDeviceOnly,
	})
	if err != nil {
		c.forceIdle(id)
		return fmt.Errorf("start recognizer: %w", err)
	}
	return nil
}

func (c *Controller) stop(ctx context.Context) (string, error) {
	id, ok := c.state.end()
	if !ok {
		return "", nil
	}
	c.bus.Publish(events.Event{Kind: events.KindListeningState, SessionID: id, Listening: false})

	text := strings.TrimSpace(c.recognizer.Stop())
	c.logInfo("session stop", "session_id", id, "transcript_length", len(text))
	if text == "" {
		return "", nil
	}

	if err := c.inserter.Insert(ctx, text+c.padding, text); err != nil {
		c.logError("transcript insertion failed", "session_id", id, "error", err.Error())
		c.bus.Publish(events.Event{Kind: events.KindSpeechError, SessionID: id, Message: insertFailedMessage})
		return text, fmt.Errorf("insert transcript: %w", err)
	}
	return text, nil
}

// onRecognizerEvent forwards recognizer events and applies the crash watchdog.
func (c *Controller) onRecognizerEvent(ev events.Event) {
	c.bus.Publish(ev)
	if ev.Kind == events.KindSpeechError && ev.Fatal {
		c.forceIdle(ev.SessionID)
	}
}

// forceIdle ends session id if it is still active and reports the change once.
func (c *Controller) forceIdle(id string) {
	if !c.state.abort(id) {
		return
	}
	c.logWarn("session forced idle", "session_id", id)
	c.bus.Publish(events.Event{Kind: events.KindListeningState, SessionID: id, Listening: false})
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Controller) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
