package session

import (
	"context"

	"github.com/izyuumi/koe/internal/events"
)

// Request describes one recognition run.
type Request struct {
	SessionID    string
	Language     string
	OnDeviceOnly bool
}

// Recognizer is the session-facing contract of the recognition process manager.
type Recognizer interface {
	Start(ctx context.Context, req Request) error
	// Stop ends the tracked run without blocking on its exit and returns the last final transcript.
	Stop() string
	Subscribe(events.Handler) func()
}

// Inserter places text into the focused application.
type Inserter interface {
	Insert(ctx context.Context, paste string, retain string) error
}

// InsertFunc adapts a function to the Inserter interface.
type InsertFunc func(ctx context.Context, paste string, retain string) error

func (f InsertFunc) Insert(ctx context.Context, paste string, retain string) error {
	return f(ctx, paste, retain)
}
