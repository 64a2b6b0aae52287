package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ScanDefaults holds user-adjustable defaults applied to scan requests that
// leave fields blank.
type ScanDefaults struct {
	Source     string `json:"source"`
	ColorMode  string `json:"colorMode"`
	Resolution int    `json:"resolution"`
	Format     string `json:"format"`
	Intent     string `json:"intent"`
}

// DefaultScanDefaults returns the built-in scan defaults.
func DefaultScanDefaults() ScanDefaults {
	return ScanDefaults{
		Source:     "Platen",
		ColorMode:  "Color",
		Resolution: 300,
		Format:     "PDF",
		Intent:     "Document",
	}
}

// Store provides thread-safe scan-defaults persistence backed by a JSON file.
type Store struct {
	mu       sync.RWMutex
	defaults ScanDefaults
	path     string
}

// NewStore creates a Store that persists defaults to dataDir/settings.json.
// If the file does not exist or is invalid, built-in defaults are used.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	s := &Store{
		path:     filepath.Join(dataDir, "settings.json"),
		defaults: DefaultScanDefaults(),
	}
	s.load()
	return s, nil
}

// NewMemoryStore creates a Store that keeps defaults in memory only (no file persistence).
func NewMemoryStore() *Store {
	return &Store{defaults: DefaultScanDefaults()}
}

// Get returns a copy of the current scan defaults.
func (s *Store) Get() ScanDefaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

// Update replaces the scan defaults and persists to disk.
func (s *Store) Update(d ScanDefaults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = d
	return s.save()
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return // file missing is OK, use defaults
	}
	var d ScanDefaults
	if err := json.Unmarshal(data, &d); err != nil {
		slog.Warn("invalid settings file, using defaults", "path", s.path, "err", err)
		return
	}
	s.defaults = d
}

func (s *Store) save() error {
	if s.path == "" {
		return nil // memory-only mode
	}
	data, err := json.MarshalIndent(s.defaults, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
