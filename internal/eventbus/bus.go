// Package eventbus dispatches carrier/connectivity events to registered
// handlers, one workqueue task per active handler per event.
//
// This generalizes firestige-Otus's internal/eventbus/bus.go away from its
// Kafka-style FNV-hash partitioning (meaningless here — nakd has no
// per-CallID ordering requirement) onto the daemon's shared workqueue: every
// handler for a Kind runs as its own named task, so a slow handler can never
// block delivery to the others, and duplicate bursts of the same event for
// the same handler coalesce via the workqueue's pending(name) suppression.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/msgctl/netaidkit-nakd/internal/event"
	"github.com/msgctl/netaidkit-nakd/internal/workqueue"
)

// Handler processes a single event occurrence.
type Handler func(ctx context.Context, e event.Event) error

// Bus dispatches events to their registered handlers via a workqueue.
type Bus struct {
	wq *workqueue.Queue

	mu       sync.RWMutex
	handlers map[event.Kind][]namedHandler

	published  int64
	dispatched int64
}

type namedHandler struct {
	name string
	fn   Handler
}

// New creates an event bus backed by wq.
func New(wq *workqueue.Queue) *Bus {
	return &Bus{
		wq:       wq,
		handlers: make(map[event.Kind][]namedHandler),
	}
}

// Subscribe registers a handler for a Kind. name identifies the handler for
// workqueue duplicate suppression and must be unique per Kind.
func (b *Bus) Subscribe(kind event.Kind, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], namedHandler{name: name, fn: fn})
}

// Publish dispatches e to every handler registered for its Kind, each as its
// own workqueue task named "event:<kind>:<handler>".
func (b *Bus) Publish(e event.Event) {
	b.mu.RLock()
	handlers := append([]namedHandler(nil), b.handlers[e.Kind]...)
	b.mu.RUnlock()

	b.published++
	if len(handlers) == 0 {
		slog.Debug("event published with no handlers", "kind", e.Kind.String())
		return
	}

	for _, h := range handlers {
		h := h
		taskName := fmt.Sprintf("event:%s:%s", e.Kind.String(), h.name)
		b.wq.Add(taskName, 0, func(ctx context.Context) error {
			b.dispatched++
			return h.fn(ctx, e)
		})
	}
}

// Stats reports basic counters for status/debug commands.
type Stats struct {
	Published  int64
	Dispatched int64
	Handlers   int
}

// Stats returns a snapshot of bus activity.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	count := 0
	for _, hs := range b.handlers {
		count += len(hs)
	}
	return Stats{Published: b.published, Dispatched: b.dispatched, Handlers: count}
}
