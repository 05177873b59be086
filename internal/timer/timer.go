// Package timer implements the daemon's periodic callback service.
//
// original_source/timer.c delivered periodic work via a signal-based
// interval timer that woke a dedicated thread; this re-expresses that as one
// time.Ticker goroutine per registered timer. Each firing is coalesced onto
// the shared workqueue under the timer's name, so a handler that's still
// running when the next tick arrives is never piled on top of itself — the
// same duplicate-suppression invariant the workqueue already provides.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/msgctl/netaidkit-nakd/internal/metrics"
	"github.com/msgctl/netaidkit-nakd/internal/workqueue"
)

// Service runs a set of named periodic callbacks.
type Service struct {
	wq *workqueue.Queue

	mu      sync.Mutex
	timers  map[string]*timer
	stopped bool
}

type timer struct {
	name     string
	interval time.Duration
	fn       workqueue.Func
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewService creates a timer service that dispatches onto wq.
func NewService(wq *workqueue.Queue) *Service {
	return &Service{
		wq:     wq,
		timers: make(map[string]*timer),
	}
}

// Add registers a periodic callback. It panics if name is already
// registered — timer identity is a startup-time programming contract, not
// something the daemon ever needs to overwrite at runtime.
func (s *Service) Add(name string, interval time.Duration, fn workqueue.Func) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.timers[name]; exists {
		panic(fmt.Sprintf("timer: duplicate registration for %q", name))
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &timer{name: name, interval: interval, fn: fn, cancel: cancel, done: make(chan struct{})}
	s.timers[name] = t

	go s.run(ctx, t)
}

func (s *Service) run(ctx context.Context, t *timer) {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.TimerTicksTotal.WithLabelValues(t.name).Inc()
			s.wq.Add(t.name, 0, t.fn)
		}
	}
}

// Remove cancels and forgets a timer. No-op if the name isn't registered.
func (s *Service) Remove(name string) {
	s.mu.Lock()
	t, ok := s.timers[name]
	if ok {
		delete(s.timers, name)
	}
	s.mu.Unlock()

	if ok {
		t.cancel()
		<-t.done
	}
}

// Stop cancels every registered timer and waits for their goroutines to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	timers := make([]*timer, 0, len(s.timers))
	for _, t := range s.timers {
		timers = append(timers, t)
	}
	s.mu.Unlock()

	for _, t := range timers {
		t.cancel()
	}
	for _, t := range timers {
		<-t.done
	}
}
