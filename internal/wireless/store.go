// Package wireless implements scan/select/associate/disconnect for the
// daemon's wireless interface and persists known network credentials.
//
// Grounded on original_source/wlan.c: stored networks are a flat list keyed
// by SSID (__get_stored_network/__store_network/__remove_stored_network).
// The persistence mechanism — atomic temp-file-then-rename — is adopted
// from firestige-Otus's internal/task/store.go FileTaskStore.Save, since the
// pack has no JSON flat-file store of its own to ground on more directly.
package wireless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Network is a stored (or scanned) wireless network entry.
type Network struct {
	SSID     string `json:"ssid"`
	PSK      string `json:"psk,omitempty"`
	Priority int    `json:"priority"`
}

// Store persists known network credentials to a flat JSON file.
type Store struct {
	path string

	mu       sync.Mutex
	networks []Network
}

// NewStore loads (or initializes) the credential store at path.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.networks = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("wireless: read credential store: %w", err)
	}
	var networks []Network
	if err := json.Unmarshal(data, &networks); err != nil {
		return fmt.Errorf("wireless: parse credential store: %w", err)
	}
	s.networks = networks
	return nil
}

// save atomically rewrites the backing file: write to a temp file in the
// same directory, then rename over the original, so a crash mid-write never
// leaves a truncated credential file behind.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.networks, "", "  ")
	if err != nil {
		return fmt.Errorf("wireless: marshal credential store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".wireless-networks-*.tmp")
	if err != nil {
		return fmt.Errorf("wireless: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("wireless: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("wireless: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("wireless: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("wireless: rename temp file: %w", err)
	}
	return nil
}

// Get returns the stored network for ssid, or nil if not found.
func (s *Store) Get(ssid string) *Network {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.networks {
		if s.networks[i].SSID == ssid {
			n := s.networks[i]
			return &n
		}
	}
	return nil
}

// List returns a copy of all stored networks.
func (s *Store) List() []Network {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Network, len(s.networks))
	copy(out, s.networks)
	return out
}

// Put inserts or replaces the stored entry for n.SSID and persists it.
func (s *Store) Put(n Network) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.networks {
		if s.networks[i].SSID == n.SSID {
			s.networks[i] = n
			return s.save()
		}
	}
	s.networks = append(s.networks, n)
	return s.save()
}

// Remove deletes the stored entry for ssid, if any, and persists the change.
func (s *Store) Remove(ssid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.networks {
		if s.networks[i].SSID == ssid {
			s.networks = append(s.networks[:i], s.networks[i+1:]...)
			return s.save()
		}
	}
	return nil
}
