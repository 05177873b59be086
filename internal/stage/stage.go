// Package stage implements the operational stage state machine: reset,
// default, online, tor and vpn, each a named recipe of ordered steps gated
// on a minimum connectivity level.
//
// Grounded on original_source/stage.c's static stage table and
// nakd_stage_spec step loop, and hooks.c's UCI hook scan.
package stage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/msgctl/netaidkit-nakd/internal/connectivity"
	"github.com/msgctl/netaidkit-nakd/internal/metrics"
)

// Step is one unit of work in a stage's recipe. It returns an error on
// failure, mirroring the original's step->work returning non-zero.
type Step func(ctx context.Context, s *Stage) error

// Stage is a named operational mode with a fixed recipe and a minimum
// connectivity requirement. Descriptors are built once at registration time
// and never mutated except for lastErr, which is cleared on each entry.
type Stage struct {
	Name        string
	Description string
	Required    connectivity.Level
	Recipe      []NamedStep

	mu      sync.Mutex
	lastErr string
}

// NamedStep pairs a step with the label used in logs, mirroring
// stage_step.name in the original.
type NamedStep struct {
	Name string
	Work Step
}

// LastError returns the error recorded by the most recent reconciliation
// attempt against this stage, cleared at the start of the next attempt.
func (s *Stage) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Stage) setErr(err string) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Controller reconciles a desired stage against the current one, gated on
// connectivity. The reconciler never runs a step while another
// reconciliation is in flight; callers are expected to duplicate-suppress
// by name via the workqueue (task name "stage:reconcile").
type Controller struct {
	mu       sync.Mutex
	stages   map[string]*Stage
	order    []string
	current  *Stage
	desired  *Stage
	monitor  *connectivity.Monitor
}

// NewController builds a Controller with no stages registered. Register
// each stage with Register before calling SetDesired.
func NewController(monitor *connectivity.Monitor) *Controller {
	return &Controller{
		stages:  make(map[string]*Stage),
		monitor: monitor,
	}
}

// Register adds a stage to the controller's static table. Panics on
// duplicate name, matching the module registry's fail-fast convention.
func (c *Controller) Register(s *Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.stages[s.Name]; exists {
		panic(fmt.Sprintf("stage: duplicate registration for %q", s.Name))
	}
	c.stages[s.Name] = s
	c.order = append(c.order, s.Name)
}

// Get returns the registered stage by name.
func (c *Controller) Get(name string) (*Stage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stages[name]
	return s, ok
}

// List returns every registered stage in registration order, for the
// stage_list RPC surface.
func (c *Controller) List() []*Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Stage, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.stages[name])
	}
	return out
}

// Current returns the currently-reconciled stage, nil before the first
// successful reconciliation.
func (c *Controller) Current() *Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SetDesired validates name against the registered table and records it as
// the reconciliation target. It does not itself run the recipe; callers
// enqueue a reconciliation afterward.
func (c *Controller) SetDesired(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stages[name]
	if !ok {
		return fmt.Errorf("stage: unknown stage %q", name)
	}
	c.desired = s
	return nil
}

// Desired returns the current reconciliation target, nil if none has been
// set yet.
func (c *Controller) Desired() *Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desired
}

// Reconcile compares desired against current. If they already match, it is
// a no-op. Otherwise it checks the connectivity gate and, if satisfied,
// runs the desired stage's recipe in order; the first failing step sets
// last_error and aborts the reconciliation, leaving current unchanged.
func (c *Controller) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	desired := c.desired
	current := c.current
	c.mu.Unlock()

	if desired == nil || desired == current {
		return nil
	}

	level := c.monitor.Level()
	if level < desired.Required {
		slog.Info("stage reconciliation deferred", "stage", desired.Name, "required", desired.Required, "current_level", level)
		metrics.StageTransitionsTotal.WithLabelValues(currentName(current), desired.Name, "deferred").Inc()
		return nil
	}

	desired.setErr("")
	slog.Info("stage reconciliation starting", "stage", desired.Name)

	for _, step := range desired.Recipe {
		slog.Info("stage step running", "stage", desired.Name, "step", step.Name)
		if err := step.Work(ctx, desired); err != nil {
			desired.setErr(err.Error())
			slog.Error("stage step failed", "stage", desired.Name, "step", step.Name, "error", err)
			metrics.StageTransitionsTotal.WithLabelValues(currentName(current), desired.Name, "failed").Inc()
			return err
		}
	}

	c.mu.Lock()
	c.current = desired
	c.mu.Unlock()

	metrics.StageState.Reset()
	metrics.StageState.WithLabelValues(desired.Name).Set(1)
	metrics.StageTransitionsTotal.WithLabelValues(currentName(current), desired.Name, "ok").Inc()
	slog.Info("stage reconciliation done", "stage", desired.Name)
	return nil
}

func currentName(s *Stage) string {
	if s == nil {
		return "none"
	}
	return s.Name
}
