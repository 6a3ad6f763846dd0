// Package assets provides the asset manager handed to executed scripts.
//
// The Manager only tracks which asset files the host has loaded; parsing
// asset contents is out of scope. Scripts reach it through the Assets global
// and the assets namespace each engine exposes.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNotFile is returned when a path passed to LoadFiles is not a regular file.
var ErrNotFile = errors.New("not a regular file")

// Manager tracks the set of loaded asset files.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: returned slices are caller-owned snapshots.
type Manager struct {
	mu    sync.RWMutex
	files map[string]struct{}
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{files: make(map[string]struct{})}
}

// LoadFiles records each path. Every path must be an existing regular file;
// on the first failure nothing further is recorded.
func (m *Manager) LoadFiles(paths ...string) error {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("load %s: %w", p, ErrNotFile)
		}
		m.mu.Lock()
		m.files[abs] = struct{}{}
		m.mu.Unlock()
	}
	return nil
}

// LoadFolder records every regular file below dir and returns how many were
// added.
func (m *Manager) LoadFolder(dir string) (int, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", dir, err)
	}

	var found []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("load folder %s: %w", dir, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	added := 0
	for _, p := range found {
		if _, ok := m.files[p]; !ok {
			m.files[p] = struct{}{}
			added++
		}
	}
	return added, nil
}

// Files returns the loaded paths in sorted order.
func (m *Manager) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of loaded files.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// Clear forgets every loaded file.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string]struct{})
}

// String implements fmt.Stringer.
func (m *Manager) String() string {
	return fmt.Sprintf("assets.Manager(%d files)", m.Count())
}
