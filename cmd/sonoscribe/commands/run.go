package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sonoscribe/sonoscribe/pkg/capture"
	"github.com/sonoscribe/sonoscribe/pkg/engine"
	"github.com/sonoscribe/sonoscribe/pkg/hotkey"
	"github.com/sonoscribe/sonoscribe/pkg/insert"
	"github.com/sonoscribe/sonoscribe/pkg/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dictation daemon",
	Long: `Run the hotkey capture loop until interrupted.

The configured hotkey starts and stops recording. When a global hotkey
listener is unavailable on this platform, the daemon falls back to the
terminal: each Enter keypress toggles recording.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger()
		slog.SetDefault(log)

		spec, err := hotkey.Parse(cfg.Hotkey.Chord)
		if err != nil {
			return err
		}
		reg, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		meetings, closeStore, err := openMeetings(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		dataDir, err := cfg.DataDir()
		if err != nil {
			return err
		}
		inserter := insert.New(filepath.Join(dataDir, "automation.state"))

		var diar engine.Diarizer
		if cfg.Diarization {
			diar = engine.NewWSDiarizer(cfg.Engines.DiarizerURL)
		}

		bus := session.NewBus()
		coord, err := session.New(session.Deps{
			Config:      cfg,
			Open:        openCapture(cfg.Microphone),
			Transcriber: engine.NewWSTranscriber(cfg.Engines.TranscriberURL),
			Diarizer:    diar,
			Registry:    reg,
			Inserter:    inserter,
			Meetings:    meetings,
			Bus:         bus,
			Logger:      log,
		})
		if err != nil {
			return err
		}

		src, err := hotkey.Listen(spec)
		if err != nil {
			log.Warn("global hotkey unavailable, using terminal toggle", "error", err)
			src = stdinSource()
		}
		defer src.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go coord.Run(ctx)

		events := bus.Subscribe(64)
		fmt.Println(styles.Title.Render("sonoscribe") + " " +
			styles.Dim.Render(fmt.Sprintf("hotkey %s (%s)", cfg.Hotkey.Chord, cfg.Hotkey.Mode)))
		for {
			select {
			case <-ctx.Done():
				fmt.Println()
				return nil
			case hk, ok := <-src.Events():
				if !ok {
					return nil
				}
				coord.HandleHotkey(hk)
			case ev := <-events:
				renderEvent(ev)
			}
		}
	},
}

// openCapture binds the configured microphone into a session opener.
func openCapture(device string) session.CaptureOpener {
	return func(onLevel func(float32)) (session.Capture, error) {
		return capture.Open(capture.Options{Device: device, OnLevel: onLevel})
	}
}

// stdinSource emits alternating press/release edges, one per Enter, so the
// daemon stays usable where no global hotkey hook exists.
func stdinSource() hotkey.Source {
	src := hotkey.NewChanSource()
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		pressed := false
		for scanner.Scan() {
			if pressed {
				src.Emit(hotkey.Event{Type: hotkey.Release})
			} else {
				src.Emit(hotkey.Event{Type: hotkey.Press})
			}
			pressed = !pressed
		}
	}()
	return src
}

func renderEvent(ev session.Event) {
	switch e := ev.(type) {
	case session.StateEvent:
		fmt.Printf("\r%s\033[K", styles.Status.Render(e.To.String()))
		if e.To == session.StateIdle {
			fmt.Println()
		}
	case session.DeliveredEvent:
		fmt.Printf("\r%s %s\n", styles.Label.Render("text:"), e.Text)
	case session.SavedEvent:
		fmt.Printf("%s %s\n", styles.Dim.Render("saved"), styles.Dim.Render(e.MeetingID))
	case session.ErrorEvent:
		printErr("session error: %v", e.Err)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
