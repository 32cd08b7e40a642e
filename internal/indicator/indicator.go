// Package indicator turns session events into desktop notifications and audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/izyuumi/koe/internal/config"
	"github.com/izyuumi/koe/internal/events"
	"github.com/izyuumi/koe/internal/hypr"
)

const queueSize = 32

// notice is one bubble. icon and color apply to hyprctl notify; urgency to
// desktop notifications.
type notice struct {
	icon      int
	color     string
	timeoutMS int
	urgency   urgency
	text      string
}

// Notifier reacts to listening-state and speech-error events. Handle only
// enqueues; Run performs the slow notification calls on its own goroutine.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	queue    chan events.Event
	cue      func(context.Context, cueKind, config.IndicatorConfig) error

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
}

// New creates a notifier from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		queue:    make(chan events.Event, queueSize),
		cue:      emitCue,
	}
}

// Handle is an events.Handler. It never blocks; events beyond the queue bound are dropped.
func (n *Notifier) Handle(ev events.Event) {
	switch ev.Kind {
	case events.KindListeningState, events.KindSpeechError:
	default:
		return
	}

	select {
	case n.queue <- ev:
	default:
		if n.logger != nil {
			n.logger.Debug("indicator queue full; event dropped", "kind", string(ev.Kind))
		}
	}
}

// Run applies queued events until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.queue:
			n.apply(ctx, ev)
		}
	}
}

func (n *Notifier) apply(ctx context.Context, ev events.Event) {
	switch ev.Kind {
	case events.KindListeningState:
		if ev.Listening {
			n.playCue(ctx, cueStart)
			n.showListening(ctx)
			return
		}
		n.playCue(ctx, cueStop)
		n.hide(ctx)
	case events.KindSpeechError:
		n.playCue(ctx, cueError)
		n.showError(ctx, ev.Message)
	}
}

func (n *Notifier) showListening(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	text := strings.TrimSpace(n.cfg.TextListening)
	if text == "" {
		text = n.messages.listening
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notice{icon: 1, color: "rgb(89b4fa)", timeoutMS: 300000, urgency: urgencyLow, text: text})
	})
}

func (n *Notifier) showError(ctx context.Context, text string) {
	if !n.cfg.Enable {
		return
	}
	if strings.TrimSpace(text) == "" {
		text = strings.TrimSpace(n.cfg.TextError)
	}
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1600
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notice{icon: 3, color: "rgb(f38ba8)", timeoutMS: timeout, urgency: urgencyCritical, text: text})
	})
}

func (n *Notifier) hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// notify dispatches through the configured backend.
func (n *Notifier) notify(ctx context.Context, msg notice) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.notifyDesktop(ctx, msg)
	}
	return hypr.Notify(ctx, msg.icon, msg.timeoutMS, msg.color, msg.text)
}

func (n *Notifier) dismiss(ctx context.Context) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, msg notice) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "koe-indicator"
	}

	id, err := desktopNotify(ctx, desktopNotification{
		appName:   appName,
		replaceID: replaceID,
		summary:   msg.text,
		urgency:   msg.urgency,
		timeoutMS: msg.timeoutMS,
	})
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback off the worker goroutine.
func (n *Notifier) playCue(ctx context.Context, kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.cue(ctx, kind, n.cfg); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
