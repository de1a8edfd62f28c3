package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonoscribe/sonoscribe/pkg/audio"
	"github.com/sonoscribe/sonoscribe/pkg/audio/resampler"
	"github.com/sonoscribe/sonoscribe/pkg/capture"
	"github.com/sonoscribe/sonoscribe/pkg/cli"
	"github.com/sonoscribe/sonoscribe/pkg/engine"
	"github.com/sonoscribe/sonoscribe/pkg/voiceprint"
)

var (
	enrollName    string
	enrollRole    string
	enrollGroup   string
	enrollFile    string
	enrollSeconds int
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a speaker voice profile",
	Long: `Enroll a speaker from a WAV file or a timed microphone recording.

The sample must contain at least 3 seconds of the speaker's voice. The
diarization sidecar must be running; it extracts the voice embedding that
later identifies the speaker in meetings.

Examples:
  sonoscribe enroll --name "Ada" --file ada.wav
  sonoscribe enroll --name "Ada" --role host --seconds 8`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := openRegistry(cfg)
		if err != nil {
			return err
		}

		samples, err := enrollAudio(cfg.Microphone, enrollFile, enrollSeconds)
		if err != nil {
			return err
		}

		diar := engine.NewWSDiarizer(cfg.Engines.DiarizerURL)
		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()
		p, err := voiceprint.NewEnroller(reg, diar).Enroll(ctx, samples, enrollName, enrollRole, enrollGroup)
		if errors.Is(err, voiceprint.ErrInsufficientAudio) {
			return fmt.Errorf("need at least %d seconds of audio", voiceprint.MinEnrollSeconds)
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s %s %s\n", cli.Swatch(p.Color), styles.Label.Render(p.Name), styles.Dim.Render(p.ID))
		return nil
	},
}

// enrollAudio reads the sample from file or records seconds from the mic,
// normalized to the canonical format.
func enrollAudio(device, file string, seconds int) ([]float32, error) {
	if file != "" {
		samples, rate, channels, err := audio.ReadWAV(file)
		if err != nil {
			return nil, err
		}
		return resampler.Normalize(samples, resampler.Format{SampleRate: rate, Stereo: channels == 2})
	}

	sess, err := capture.Open(capture.Options{Device: device})
	if err != nil {
		return nil, err
	}
	fmt.Printf("recording %ds, speak now...\n", seconds)
	time.Sleep(time.Duration(seconds) * time.Second)
	samples, srcFmt, err := sess.Stop()
	if err != nil {
		return nil, err
	}
	return resampler.Normalize(samples, srcFmt)
}

func init() {
	enrollCmd.Flags().StringVar(&enrollName, "name", "", "speaker display name (required)")
	enrollCmd.Flags().StringVar(&enrollRole, "role", "", "speaker role, e.g. host")
	enrollCmd.Flags().StringVar(&enrollGroup, "group", "", "speaker group or team")
	enrollCmd.Flags().StringVar(&enrollFile, "file", "", "WAV file to enroll from (default: record from mic)")
	enrollCmd.Flags().IntVar(&enrollSeconds, "seconds", 5, "mic recording length")
	enrollCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(enrollCmd)
}
