// Package capture owns the microphone stream for a dictation session. It
// accumulates native-format samples into a bounded buffer and emits
// real-time amplitude levels while recording.
package capture

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/sonoscribe/sonoscribe/pkg/audio"
	"github.com/sonoscribe/sonoscribe/pkg/audio/resampler"
)

var (
	initOnce sync.Once
	initErr  error
)

// ensureInit initializes PortAudio once per process.
func ensureInit() error {
	initOnce.Do(func() {
		initErr = portaudio.Initialize()
	})
	return initErr
}

// DefaultMaxDuration caps the capture buffer when Options.MaxDuration is
// unset.
const DefaultMaxDuration = 10 * time.Minute

// Options configures a capture session.
type Options struct {
	// Device selects the input device by (case-insensitive substring)
	// name. Empty selects the system default input.
	Device string

	// MaxDuration bounds the sample buffer; recording beyond it trims the
	// oldest audio. Zero means DefaultMaxDuration.
	MaxDuration time.Duration

	// OnLevel, when set, receives the peak amplitude of each ~30ms chunk.
	// Called from the audio callback; it must not block.
	OnLevel func(float32)
}

// Session is a single microphone recording. The stream appends to the
// bounded sample buffer until Stop or Abort; Stop moves the accumulated
// samples out to the caller.
type Session struct {
	stream *portaudio.Stream
	format resampler.Format

	mu     sync.Mutex
	buf    *Buffer
	closed bool
}

// Open starts capturing from the configured input device at its native
// sample rate.
func Open(opts Options) (*Session, error) {
	if err := ensureInit(); err != nil {
		return nil, fmt.Errorf("capture: init: %w", err)
	}

	dev, err := findDevice(opts.Device)
	if err != nil {
		return nil, err
	}

	rate := int(dev.DefaultSampleRate)
	if rate <= 0 {
		rate = audio.SampleRate
	}
	maxDur := opts.MaxDuration
	if maxDur <= 0 {
		maxDur = DefaultMaxDuration
	}

	s := &Session{
		format: resampler.Format{SampleRate: rate},
		buf:    NewBuffer(int(float64(rate) * maxDur.Seconds())),
	}
	meter := NewLevelMeter(audio.LevelChunkFor(rate), opts.OnLevel)

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(rate)
	params.FramesPerBuffer = 1024

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		s.buf.Append(in)
		meter.Feed(in)
	})
	if err != nil {
		return nil, fmt.Errorf("capture: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("capture: start stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

// Format returns the native capture format.
func (s *Session) Format() resampler.Format {
	return s.format
}

// Stop ends the recording and moves the accumulated samples out. The
// session is unusable afterwards.
func (s *Session) Stop() ([]float32, resampler.Format, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, s.format, errors.New("capture: session already stopped")
	}
	s.closed = true

	s.stream.Stop()
	if err := s.stream.Close(); err != nil {
		return nil, s.format, fmt.Errorf("capture: close stream: %w", err)
	}
	return s.buf.Take(), s.format, nil
}

// Abort ends the recording and discards all buffered samples.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stream.Stop()
	s.stream.Close()
	s.buf.Take()
}

// findDevice resolves an input device by name substring, or the default
// input for an empty name.
func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("capture: no default input device: %w", err)
		}
		return dev, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("capture: list devices: %w", err)
	}
	want := strings.ToLower(name)
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), want) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("capture: input device %q not found", name)
}
