package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadMB != 100 {
		t.Errorf("Server.MaxUploadMB = %d, want 100", cfg.Server.MaxUploadMB)
	}
	if cfg.Scanner.Timeout != 120 {
		t.Errorf("Scanner.Timeout = %d, want 120", cfg.Scanner.Timeout)
	}
	if cfg.Scanner.ClampA4 {
		t.Error("Scanner.ClampA4 should default to false")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRINTSCAN_SERVER_PORT", "9090")
	t.Setenv("PRINTSCAN_SCANNER_ADDRESS", "10.0.0.5")
	t.Setenv("PRINTSCAN_SCANNER_CLAMP_A4", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Scanner.Address != "10.0.0.5" {
		t.Errorf("Scanner.Address = %q, want 10.0.0.5", cfg.Scanner.Address)
	}
	if !cfg.Scanner.ClampA4 {
		t.Error("Scanner.ClampA4 should be overridden to true")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 8888
printer:
  uri: http://cups.local:631/printers/office
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888", cfg.Server.Port)
	}
	if cfg.Printer.URI != "http://cups.local:631/printers/office" {
		t.Errorf("Printer.URI = %q", cfg.Printer.URI)
	}
	// untouched keys keep defaults
	if cfg.Printer.Timeout != 60 {
		t.Errorf("Printer.Timeout = %d, want 60", cfg.Printer.Timeout)
	}
}
