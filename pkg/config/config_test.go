package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sonoscribe/sonoscribe/pkg/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Hotkey.Chord != "ctrl+alt+d" || !cfg.HistoryEnabled {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
hotkey:
  chord: f9
  mode: toggle
microphone: usb
diarization: true
storage:
  backend: badger
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Hotkey.Chord != "f9" || cfg.Hotkey.Mode != "toggle" {
		t.Fatalf("hotkey = %+v", cfg.Hotkey)
	}
	if cfg.Microphone != "usb" || !cfg.Diarization {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Storage.Backend != "badger" {
		t.Fatalf("backend = %q", cfg.Storage.Backend)
	}
	// Untouched fields keep their defaults.
	if cfg.Engines.TranscriberURL == "" {
		t.Fatal("default transcriber url lost")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", ":{"},
		{"bad chord", "hotkey:\n  chord: hyper+x\n"},
		{"bad mode", "hotkey:\n  chord: f9\n  mode: hold\n"},
		{"bad backend", "storage:\n  backend: sqlite\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := config.Load(path); err == nil {
				t.Fatal("invalid config accepted")
			}
		})
	}
}
