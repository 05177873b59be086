// Package led implements the priority-ordered LED condition mixer: any
// number of named conditions register interest in owning the status LED,
// and exactly one — the highest-priority active condition, ties broken by
// insertion order — actually drives it at a time.
//
// Grounded on original_source/led.c: nakd_led_condition_add/remove, the
// priority-based __choose_condition selection, and __update_condition's
// blink state machine (interval/count/state driving __set_states).
package led

import (
	"sync"
	"time"

	"github.com/msgctl/netaidkit-nakd/internal/metrics"
)

// Priority ranks conditions for the mixer's selection. Higher wins.
type Priority int

const (
	PriorityDefault Priority = iota
	PriorityMode
	PriorityNotification
	PriorityActionNeeded
)

// Blink is a condition's blink state: a periodic toggle of the LED level,
// running for RemainingCount intervals (negative means infinite) or, if
// IntervalMS is 0, a solid level with no toggling at all.
type Blink struct {
	IntervalMS     int  `json:"interval_ms"`
	RemainingCount int  `json:"remaining_count"`
	CurrentLevel   bool `json:"current_level"`
}

// Condition is a named request to own the LED, with a priority used to
// arbitrate between simultaneously active conditions and a blink program
// driving the sink once it wins.
type Condition struct {
	Name     string   `json:"name"`
	Priority Priority `json:"priority"`
	Blink    Blink    `json:"blink"`
}

// Sink is the concrete LED device: a single on/off level, the way
// original_source/led.c's __set_state fopens the LED's sysfs path directly
// and writes "1\n" or "0\n".
type Sink interface {
	SetLevel(on bool) error
}

// Mixer holds the set of registered conditions and drives Sink with
// whichever one currently wins.
type Mixer struct {
	sink Sink

	mu         sync.Mutex
	conditions map[string]*Condition
	order      []string // insertion order, for tie-breaking equal priorities
	current    string
	lastToggle time.Time
}

// NewMixer creates a Mixer writing to sink.
func NewMixer(sink Sink) *Mixer {
	return &Mixer{sink: sink, conditions: make(map[string]*Condition)}
}

// Add registers or replaces a condition and re-evaluates ownership of the
// LED. A condition already registered by name keeps its original insertion
// slot in the tie-break order.
func (m *Mixer) Add(c Condition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conditions[c.Name]; !exists {
		m.order = append(m.order, c.Name)
	}
	cond := c
	m.conditions[c.Name] = &cond
	return m.reconcileLocked()
}

// Remove unregisters a condition by name and re-evaluates ownership.
func (m *Mixer) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(name)
	return m.reconcileLocked()
}

func (m *Mixer) removeLocked(name string) {
	delete(m.conditions, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.current == name {
		m.current = ""
	}
}

// Active returns the name of the condition currently driving the LED, or ""
// if none are registered.
func (m *Mixer) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// List returns the registered conditions in insertion order, for
// introspection commands.
func (m *Mixer) List() []Condition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Condition, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, *m.conditions[name])
	}
	return out
}

// Tick advances the mixer by one step: ≈30ms on the daemon's LED timer, per
// original_source/led.c's UPDATE_INTERVAL. It re-evaluates which condition
// should own the LED, then advances the winner's blink state machine.
func (m *Mixer) Tick() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reconcileLocked(); err != nil {
		return err
	}
	if m.current == "" {
		return nil
	}

	cond := m.conditions[m.current]
	if cond.Blink.IntervalMS <= 0 {
		return nil // solid: level was already set when this condition won
	}

	if cond.Blink.RemainingCount == 0 {
		m.removeLocked(cond.Name)
		return m.reconcileLocked()
	}

	if time.Since(m.lastToggle) < time.Duration(cond.Blink.IntervalMS)*time.Millisecond {
		return nil
	}

	cond.Blink.CurrentLevel = !cond.Blink.CurrentLevel
	m.lastToggle = time.Now()
	if cond.Blink.RemainingCount > 0 {
		cond.Blink.RemainingCount--
	}
	return m.sink.SetLevel(cond.Blink.CurrentLevel)
}

// reconcileLocked picks the highest-priority active condition, ties broken
// by insertion order (the first-registered of equal priority wins, and
// keeps winning until something of strictly higher priority appears). If
// the winner changed, its level is reset and written immediately.
func (m *Mixer) reconcileLocked() error {
	var winnerName string
	var winner *Condition
	for _, name := range m.order {
		c := m.conditions[name]
		if winner == nil || c.Priority > winner.Priority {
			winner, winnerName = c, name
		}
	}

	metrics.LEDConditionActive.Reset()
	if winner == nil {
		m.current = ""
		return m.sink.SetLevel(false)
	}
	metrics.LEDConditionActive.WithLabelValues(winnerName).Set(1)

	if winnerName == m.current {
		return nil
	}
	m.current = winnerName
	winner.Blink.CurrentLevel = true
	m.lastToggle = time.Now()
	return m.sink.SetLevel(true)
}
