// Package uci implements a hierarchical configuration store modeled on
// OpenWrt's UCI: packages containing named sections containing options.
// The pack has no real UCI binding to depend on, so the store is backed by
// a yaml.v3 document per package instead — grounded on
// original_source/nak_uci.c's package/section/option shape, with the
// teacher's atomic-rename persistence pattern (firestige-Otus's
// internal/task/store.go FileTaskStore.Save) for Commit.
package uci

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Section is a named set of options within a package. Lists holds
// list-type options (UCI_TYPE_LIST in the original), kept separate from
// single-value Options the same way the original distinguishes
// UCI_TYPE_STRING from UCI_TYPE_LIST on a uci_option.
type Section struct {
	Type    string              `yaml:"type"`
	Options map[string]string   `yaml:"options"`
	Lists   map[string][]string `yaml:"lists,omitempty"`
}

// document is the on-disk shape of one package file.
type document struct {
	Sections map[string]*Section `yaml:"sections"`
}

// Store holds one or more loaded UCI packages, each backed by its own file
// under configDir/<package>.yaml.
type Store struct {
	configDir string

	mu       sync.Mutex
	packages map[string]*document
	dirty    map[string]bool
}

// Open creates a Store rooted at configDir. Packages are loaded lazily on
// first access via Load.
func Open(configDir string) *Store {
	return &Store{
		configDir: configDir,
		packages:  make(map[string]*document),
		dirty:     make(map[string]bool),
	}
}

// Load reads a package from disk if not already loaded. Calling Load on an
// already-loaded package is a no-op, matching UCI's "load once, mutate in
// memory, commit explicitly" model.
func (s *Store) Load(pkg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(pkg)
}

func (s *Store) loadLocked(pkg string) error {
	if _, ok := s.packages[pkg]; ok {
		return nil
	}

	path := s.packagePath(pkg)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.packages[pkg] = &document{Sections: make(map[string]*Section)}
		return nil
	}
	if err != nil {
		return fmt.Errorf("uci: read package %q: %w", pkg, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("uci: parse package %q: %w", pkg, err)
	}
	if doc.Sections == nil {
		doc.Sections = make(map[string]*Section)
	}
	s.packages[pkg] = &doc
	return nil
}

func (s *Store) packagePath(pkg string) string {
	return filepath.Join(s.configDir, pkg+".yaml")
}

// Get returns the value of pkg.section.option, the empty string if unset.
func (s *Store) Get(pkg, section, option string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(pkg); err != nil {
		return "", false
	}
	sec, ok := s.packages[pkg].Sections[section]
	if !ok {
		return "", false
	}
	v, ok := sec.Options[option]
	return v, ok
}

// Sections returns all section names in pkg, for hook scanning.
func (s *Store) Sections(pkg string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(pkg); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(s.packages[pkg].Sections))
	for name := range s.packages[pkg].Sections {
		names = append(names, name)
	}
	return names, nil
}

// Set mutates pkg.section.option in memory. The change is not durable until
// Commit is called.
func (s *Store) Set(pkg, section, option, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(pkg); err != nil {
		return err
	}
	doc := s.packages[pkg]
	sec, ok := doc.Sections[section]
	if !ok {
		sec = &Section{Options: make(map[string]string)}
		doc.Sections[section] = sec
	}
	sec.Options[option] = value
	s.dirty[pkg] = true
	return nil
}

// Commit persists every package with pending changes, atomically: each
// package is written to a temp file in configDir then renamed over the
// original, so a crash mid-write never corrupts the on-disk store.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for pkg := range s.dirty {
		if err := s.commitLocked(pkg); err != nil {
			return err
		}
		delete(s.dirty, pkg)
	}
	return nil
}

func (s *Store) commitLocked(pkg string) error {
	data, err := yaml.Marshal(s.packages[pkg])
	if err != nil {
		return fmt.Errorf("uci: marshal package %q: %w", pkg, err)
	}

	if err := os.MkdirAll(s.configDir, 0755); err != nil {
		return fmt.Errorf("uci: create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.configDir, "."+pkg+"-*.tmp")
	if err != nil {
		return fmt.Errorf("uci: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("uci: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("uci: close temp file: %w", err)
	}
	return os.Rename(tmpPath, s.packagePath(pkg))
}

// Unload drops an in-memory package, discarding uncommitted changes.
func (s *Store) Unload(pkg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.packages, pkg)
	delete(s.dirty, pkg)
}

// Packages lists every package name present on disk under configDir, for
// hook scans that must walk the whole configuration tree rather than one
// package at a time.
func (s *Store) Packages() ([]string, error) {
	entries, err := os.ReadDir(s.configDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("uci: list packages: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		const ext = ".yaml"
		if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Options returns the option map for pkg.section, for callers that need to
// inspect every option rather than look one up by name (hook scanning).
func (s *Store) Options(pkg, section string) (map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(pkg); err != nil {
		return nil, false
	}
	sec, ok := s.packages[pkg].Sections[section]
	if !ok {
		return nil, false
	}
	return sec.Options, true
}

// ListOption returns the list-type option pkg.section.option, mirroring a
// UCI_TYPE_LIST value such as "list nak_rule_disable 'online'".
func (s *Store) ListOption(pkg, section, option string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(pkg); err != nil {
		return nil, false
	}
	sec, ok := s.packages[pkg].Sections[section]
	if !ok {
		return nil, false
	}
	v, ok := sec.Lists[option]
	return v, ok
}
