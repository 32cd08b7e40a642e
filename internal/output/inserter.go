package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/izyuumi/koe/internal/config"
)

// ErrPasteTimeout marks a paste dispatch abandoned after its deadline.
var ErrPasteTimeout = errors.New("paste dispatch timed out")

// Inserter pastes text through the clipboard and then leaves the clipboard
// holding the retained text, unless another program wrote to it meanwhile.
type Inserter struct {
	clipboard    Clipboard
	paster       Paster
	pasteTimeout time.Duration
	restoreDelay time.Duration
	logger       *slog.Logger
}

// NewInserter builds an inserter. A nil paster only updates the clipboard.
func NewInserter(clip Clipboard, paster Paster, pasteTimeout, restoreDelay time.Duration, logger *slog.Logger) *Inserter {
	return &Inserter{
		clipboard:    clip,
		paster:       paster,
		pasteTimeout: pasteTimeout,
		restoreDelay: restoreDelay,
		logger:       logger,
	}
}

// NewFromConfig wires the system clipboard and the configured paste path.
func NewFromConfig(cfg config.Config, logger *slog.Logger) *Inserter {
	return NewInserter(
		NewSystemClipboard(),
		NewPaster(cfg, logger),
		time.Duration(cfg.Paste.TimeoutMS)*time.Millisecond,
		time.Duration(cfg.Insertion.RestoreDelayMS)*time.Millisecond,
		logger,
	)
}

// Insert writes paste to the clipboard, pastes it, waits for the target to read
// it, then writes retain if the clipboard change count has not moved. Only a
// failed initial write is returned as an error; paste failures are logged.
func (i *Inserter) Insert(ctx context.Context, paste string, retain string) error {
	if err := i.clipboard.Write(paste); err != nil {
		return err
	}

	written, sampleErr := i.clipboard.ChangeCount()
	if sampleErr != nil {
		i.logWarn("clipboard change count unavailable; restore disabled", sampleErr)
	}

	if i.paster != nil {
		i.dispatchPaste(ctx)
	}
	if sampleErr != nil {
		return nil
	}

	if err := sleepContext(ctx, i.restoreDelay); err != nil {
		i.logWarn("clipboard restore abandoned", err)
		return nil
	}

	current, err := i.clipboard.ChangeCount()
	if err != nil {
		i.logWarn("clipboard change count unavailable; restore skipped", err)
		return nil
	}
	if current != written {
		if i.logger != nil {
			i.logger.Debug("clipboard changed during paste window; leaving external content", "written", written, "current", current)
		}
		return nil
	}

	if err := i.clipboard.Write(retain); err != nil {
		i.logWarn("clipboard restore failed", err)
	}
	return nil
}

// InsertDefault pastes text and retains the same text.
func (i *Inserter) InsertDefault(ctx context.Context, text string) error {
	return i.Insert(ctx, text, text)
}

// dispatchPaste runs the paster under a hard deadline. On timeout the paste
// context is cancelled and the caller moves on without waiting for it.
func (i *Inserter) dispatchPaste(ctx context.Context) {
	timeout := i.pasteTimeout
	if timeout <= 0 {
		timeout = 1200 * time.Millisecond
	}
	pasteCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- i.paster.Paste(pasteCtx) }()

	select {
	case err := <-done:
		if err != nil {
			i.logError("paste dispatch failed; clipboard remains set", err)
		}
	case <-pasteCtx.Done():
		i.logWarn("paste dispatch cancelled", fmt.Errorf("%w after %s", ErrPasteTimeout, timeout))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (i *Inserter) logWarn(message string, err error) {
	if i.logger == nil || err == nil {
		return
	}
	i.logger.Warn(message, "error", err.Error())
}

func (i *Inserter) logError(message string, err error) {
	if i.logger == nil || err == nil {
		return
	}
	i.logger.Error(message, "error", err.Error())
}
