package eventstream

import (
	"context"
	"sync"

	"github.com/izyuumi/koe/internal/events"
)

// queue is a bounded per-subscriber buffer. push never blocks; when full the
// oldest pending event is dropped.
type queue struct {
	mu      sync.Mutex
	items   []events.Event
	limit   int
	dropped int
	notify  chan struct{}
}

func newQueue(limit int) *queue {
	return &queue{limit: limit, notify: make(chan struct{}, 1)}
}

func (q *queue) push(ev events.Event) {
	q.mu.Lock()
	if len(q.items) >= q.limit {
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop blocks until an event is available or ctx is done.
func (q *queue) pop(ctx context.Context) (events.Event, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return events.Event{}, false
		case <-q.notify:
		}
	}
}

func (q *queue) droppedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
