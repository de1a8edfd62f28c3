// Package config loads the YAML configuration for the dictation pipeline.
// The core does not own a settings UI; it reads one file at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/sonoscribe/sonoscribe/pkg/hotkey"
)

// DefaultFileName is the configuration filename inside the app config dir.
const DefaultFileName = "config.yaml"

// Config is the full configuration surface of the core.
type Config struct {
	// Hotkey is the capture trigger.
	Hotkey Hotkey `yaml:"hotkey"`

	// Microphone selects the input device by name substring. Empty uses
	// the system default input.
	Microphone string `yaml:"microphone,omitempty"`

	// HistoryEnabled persists each session as a meeting record.
	HistoryEnabled bool `yaml:"history_enabled"`

	// Diarization enables the speaker-identity pass during processing.
	Diarization bool `yaml:"diarization"`

	Engines Engines `yaml:"engines"`
	Storage Storage `yaml:"storage"`

	// DebugAudioDir, when set, writes each normalized take as a WAV file
	// for playback and debugging.
	DebugAudioDir string `yaml:"debug_audio_dir,omitempty"`
}

// Hotkey configures the capture trigger chord and interaction mode.
type Hotkey struct {
	// Chord is the key combination, e.g. "ctrl+alt+d".
	Chord string `yaml:"chord"`

	// Mode is "push-to-talk" or "toggle". Read at session start; a change
	// never applies mid-session.
	Mode string `yaml:"mode,omitempty"`
}

// Engines points at the external inference sidecars.
type Engines struct {
	// TranscriberURL is the websocket endpoint of the transcription
	// sidecar, e.g. "ws://127.0.0.1:8765/asr".
	TranscriberURL string `yaml:"transcriber_url"`

	// DiarizerURL is the websocket endpoint of the diarization sidecar.
	// Used when diarization is enabled and for speaker enrollment.
	DiarizerURL string `yaml:"diarizer_url,omitempty"`
}

// Storage configures where durable records live.
type Storage struct {
	// Dir is the data directory. Empty uses the app config dir.
	Dir string `yaml:"dir,omitempty"`

	// Backend is "file" (one JSON file per meeting, default) or "badger".
	Backend string `yaml:"backend,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Hotkey:         Hotkey{Chord: "ctrl+alt+d", Mode: "push-to-talk"},
		HistoryEnabled: true,
		Engines: Engines{
			TranscriberURL: "ws://127.0.0.1:8765/asr",
			DiarizerURL:    "ws://127.0.0.1:8766/diarize",
		},
		Storage:        Storage{Backend: "file"},
	}
}

// Load reads the config at path. A missing file yields the defaults; a file
// that exists but fails to parse or validate is an explicit error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parseable fields.
func (c *Config) Validate() error {
	if _, err := hotkey.Parse(c.Hotkey.Chord); err != nil {
		return fmt.Errorf("config: hotkey.chord: %w", err)
	}
	if _, err := hotkey.ParseMode(c.Hotkey.Mode); err != nil {
		return fmt.Errorf("config: hotkey.mode: %w", err)
	}
	switch c.Storage.Backend {
	case "", "file", "badger":
	default:
		return fmt.Errorf("config: storage.backend %q (want file or badger)", c.Storage.Backend)
	}
	return nil
}

// DataDir resolves the effective data directory.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	return DefaultDir()
}

// DefaultDir is the per-user app directory (created on demand).
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve config dir: %w", err)
	}
	dir := filepath.Join(base, "sonoscribe")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: create config dir: %w", err)
	}
	return dir, nil
}
