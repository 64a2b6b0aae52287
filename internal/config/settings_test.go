package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if got := s.Get(); got != DefaultScanDefaults() {
		t.Errorf("fresh store should return defaults, got %+v", got)
	}

	want := ScanDefaults{
		Source:     "Feeder",
		ColorMode:  "Grayscale",
		Resolution: 600,
		Format:     "JPEG",
		Intent:     "Photo",
	}
	if err := s.Update(want); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// a second store over the same directory sees the persisted values
	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore (reopen): %v", err)
	}
	if got := s2.Get(); got != want {
		t.Errorf("reloaded defaults = %+v, want %+v", got, want)
	}
}

func TestStoreInvalidFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if got := s.Get(); got != DefaultScanDefaults() {
		t.Errorf("invalid file should fall back to defaults, got %+v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	d := s.Get()
	d.Resolution = 1200
	if err := s.Update(d); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if s.Get().Resolution != 1200 {
		t.Error("memory store did not retain update")
	}
}
