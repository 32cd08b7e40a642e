package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/izyuumi/koe/internal/config"
	"github.com/izyuumi/koe/internal/hypr"
)

// Paster synthesizes a paste keystroke into the focused application.
type Paster interface {
	Paste(ctx context.Context) error
}

// NewPaster picks the paste path from config. It returns nil when paste is disabled.
func NewPaster(cfg config.Config, logger *slog.Logger) Paster {
	if !cfg.Paste.Enable {
		return nil
	}
	if len(cfg.PasteCmd.Argv) > 0 {
		return CommandPaster{Argv: cfg.PasteCmd.Argv}
	}
	return HyprPaster{Shortcut: cfg.Paste.Shortcut, Logger: logger}
}

// HyprPaster sends the shortcut to the active window through hyprctl.
type HyprPaster struct {
	Shortcut string
	Logger   *slog.Logger
}

func (p HyprPaster) Paste(ctx context.Context) error {
	window, err := activeWindowWithRetry(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return err
	}

	payload, err := buildPasteShortcut(p.Shortcut, window.Address)
	if err != nil {
		return err
	}
	if p.Logger != nil {
		p.Logger.Debug("paste target", "address", window.Address, "class", window.Class, "pid", window.PID)
	}
	return hypr.SendShortcut(ctx, payload)
}

// CommandPaster runs a user-provided command (for example wtype or ydotool)
// that types the paste chord itself. The command gets no stdin.
type CommandPaster struct {
	Argv []string
}

func (p CommandPaster) Paste(ctx context.Context) error {
	if len(p.Argv) == 0 {
		return errors.New("paste command argv cannot be empty")
	}
	out, err := exec.CommandContext(ctx, p.Argv[0], p.Argv[1:]...).CombinedOutput()
	if err != nil {
		if detail := strings.TrimSpace(string(out)); detail != "" {
			return fmt.Errorf("paste command %s: %w (%s)", p.Argv[0], err, detail)
		}
		return fmt.Errorf("paste command %s: %w", p.Argv[0], err)
	}
	return nil
}

// buildPasteShortcut targets the chord at one window so focus changes during
// dispatch cannot redirect it.
func buildPasteShortcut(shortcut string, windowAddress string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return "", errors.New("paste shortcut cannot be empty")
	}
	address := strings.TrimSpace(windowAddress)
	if address == "" {
		return "", errors.New("active window address is required")
	}
	return shortcut + ",address:" + address, nil
}

// activeWindowWithRetry polls hyprctl briefly; right after a hotkey release the
// compositor can report no focused window for a frame or two.
func activeWindowWithRetry(ctx context.Context, attempts int, delay time.Duration) (hypr.ActiveWindow, error) {
	var lastErr error
	for attempt, n := 0, max(attempts, 1); attempt < n; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return hypr.ActiveWindow{}, ctx.Err()
			case <-time.After(delay):
			}
		}
		window, err := hypr.QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		if ctx.Err() != nil {
			return hypr.ActiveWindow{}, ctx.Err()
		}
		lastErr = err
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve active window: %w", lastErr)
}
