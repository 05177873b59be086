// Package module implements the daemon's module graph: a registry of named
// subsystems with declared dependencies, initialized in dependency order at
// startup and torn down in reverse order at shutdown.
//
// The registration pattern — Register called while the daemon builds its
// graph, panic on duplicate name — is grounded on firestige-Otus's pkg/plugin/registry.go;
// the minimal lifecycle interface is grounded on pkg/plugin/lifecycle.go.
package module

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Module is a subsystem participating in the daemon's startup/shutdown graph.
type Module interface {
	Name() string
	Init(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

// Descriptor registers a module along with its dependency list.
type Descriptor struct {
	Name    string
	Deps    []string
	Module  Module
}

var (
	mu       sync.Mutex
	registry = map[string]*Descriptor{}
)

// Register adds a module descriptor to the global registry. It panics on a
// duplicate name or a nil module, matching the teacher's registry semantics:
// a duplicate module name is a programming error caught at registration
// time, not a recoverable runtime condition.
func Register(d *Descriptor) {
	mu.Lock()
	defer mu.Unlock()

	if d == nil || d.Module == nil {
		panic("module: nil descriptor or module")
	}
	if d.Name == "" {
		panic("module: empty module name")
	}
	if _, exists := registry[d.Name]; exists {
		panic(fmt.Sprintf("module: duplicate registration for %q", d.Name))
	}
	registry[d.Name] = d
}

// List returns the registered module names in sorted order.
func List() []string {
	mu.Lock()
	defer mu.Unlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Graph resolves the registered modules into a dependency-ordered sequence.
type Graph struct {
	order []*Descriptor
}

// Build performs a topological sort over the registry, detecting cycles and
// unresolved dependencies.
func Build() (*Graph, error) {
	mu.Lock()
	snapshot := make(map[string]*Descriptor, len(registry))
	for k, v := range registry {
		snapshot[k] = v
	}
	mu.Unlock()

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(snapshot))
	order := make([]*Descriptor, 0, len(snapshot))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("module: dependency cycle detected: %v -> %s", path, name)
		}

		d, ok := snapshot[name]
		if !ok {
			return fmt.Errorf("module: %q depends on unregistered module %q", path[len(path)-1], name)
		}

		color[name] = gray
		for _, dep := range d.Deps {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		order = append(order, d)
		return nil
	}

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}

	return &Graph{order: order}, nil
}

// InitAll calls Init on every module in dependency order, bottom-up. If a
// module fails to initialize, all modules initialized so far are cleaned up
// in reverse order before the error is returned.
func (g *Graph) InitAll(ctx context.Context) error {
	for i, d := range g.order {
		if err := d.Module.Init(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = g.order[j].Module.Cleanup(ctx)
			}
			return fmt.Errorf("module %q: init: %w", d.Name, err)
		}
	}
	return nil
}

// CleanupAll calls Cleanup on every module in the graph in reverse
// dependency order, collecting (not stopping on) individual errors.
func (g *Graph) CleanupAll(ctx context.Context) error {
	var firstErr error
	for i := len(g.order) - 1; i >= 0; i-- {
		d := g.order[i]
		if err := d.Module.Cleanup(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("module %q: cleanup: %w", d.Name, err)
		}
	}
	return firstErr
}

// Names returns the dependency-ordered module names, for status reporting.
func (g *Graph) Names() []string {
	names := make([]string, len(g.order))
	for i, d := range g.order {
		names[i] = d.Name
	}
	return names
}

// Reset clears the global registry. The daemon calls it before registering
// its modules, so that building the graph again does not hit duplicates.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = map[string]*Descriptor{}
}
