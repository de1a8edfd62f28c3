package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sonoscribe/sonoscribe/pkg/cli"
	"github.com/sonoscribe/sonoscribe/pkg/config"
	"github.com/sonoscribe/sonoscribe/pkg/kv"
	"github.com/sonoscribe/sonoscribe/pkg/meeting"
	"github.com/sonoscribe/sonoscribe/pkg/voiceprint"
)

var (
	// Global flags
	verbose    bool
	configPath string

	styles = cli.NewStyles(cli.DefaultTheme)
)

var rootCmd = &cobra.Command{
	Use:   "sonoscribe",
	Short: "Hotkey dictation with speaker attribution",
	Long: `sonoscribe - push-to-talk dictation and meeting capture.

A hotkey starts microphone capture; releasing it (or pressing again in
toggle mode) sends the audio through transcription and speaker
identification, types the text at the cursor, and saves a meeting record.

Configuration lives in the OS config directory:
  macOS:   ~/Library/Application Support/sonoscribe/config.yaml
  Linux:   ~/.config/sonoscribe/config.yaml
  Windows: %AppData%/sonoscribe/config.yaml

Examples:
  # Run the daemon with the configured hotkey
  sonoscribe run

  # Enroll a speaker from a recording
  sonoscribe enroll --name "Ada" --file ada.wav

  # Browse history
  sonoscribe meetings list
  sonoscribe meetings show <id>`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: <config dir>/config.yaml)")
}

// loadConfig reads the configuration lazily so commands that do not need it
// (like version) work even when the config dir is unavailable.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, config.DefaultFileName)
	}
	return config.Load(path)
}

// newLogger builds the process logger. Verbose enables debug records.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openRegistry opens the speaker registry under the data dir.
func openRegistry(cfg *config.Config) (*voiceprint.Registry, error) {
	dir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	return voiceprint.LoadRegistry(filepath.Join(dir, "speakers.json"))
}

// openMeetings opens the meeting store for the configured backend. The
// returned closer releases backend resources and may be called once.
func openMeetings(cfg *config.Config) (meeting.Store, func() error, error) {
	dir, err := cfg.DataDir()
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Storage.Backend {
	case "badger":
		store, err := kv.NewBadger(kv.BadgerOptions{Dir: filepath.Join(dir, "meetings.db")})
		if err != nil {
			return nil, nil, err
		}
		return meeting.NewKVStore(store), store.Close, nil
	default:
		fs, err := meeting.NewFileStore(filepath.Join(dir, "meetings"))
		if err != nil {
			return nil, nil, err
		}
		return fs, func() error { return nil }, nil
	}
}

func printErr(format string, args ...any) {
	fmt.Fprintln(os.Stderr, styles.Error.Render(fmt.Sprintf(format, args...)))
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
