// Package events defines the outbound session events and a synchronous fan-out bus.
package events

import (
	"sync"
	"time"
)

// Kind names one outbound event channel.
type Kind string

const (
	KindListeningState    Kind = "listening-state"
	KindTranscriptPartial Kind = "transcript-partial"
	KindTranscriptFinal   Kind = "transcript-final"
	KindMicLevel          Kind = "mic-level"
	KindSpeechError       Kind = "speech-error"
)

// Event is one outbound notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind      Kind
	SessionID string
	Listening bool
	Text      string
	Level     float64
	Message   string
	// Fatal marks a speech-error that ended the recognition run.
	Fatal bool
	At    time.Time
}

// Payload renders the kind-specific body of the event.
func (e Event) Payload() map[string]any {
	switch e.Kind {
	case KindListeningState:
		return map[string]any{"listening": e.Listening}
	case KindTranscriptPartial, KindTranscriptFinal:
		return map[string]any{"text": e.Text}
	case KindMicLevel:
		return map[string]any{"level": e.Level}
	case KindSpeechError:
		return map[string]any{"message": e.Message}
	default:
		return map[string]any{}
	}
}

// Handler receives events on the publishing goroutine.
type Handler func(Event)

// Subscriber is implemented by components that expose their event stream.
type Subscriber interface {
	Subscribe(Handler) (unsubscribe func())
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans events out to subscribers in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler and returns a func that removes it.
func (b *Bus) Subscribe(handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish invokes every handler synchronously. The bus lock is not held while handlers run.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.subs))
	for i, sub := range b.subs {
		handlers[i] = sub.handler
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(ev)
	}
}
