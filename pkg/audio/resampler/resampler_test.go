package resampler_test

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/sonoscribe/sonoscribe/pkg/audio"
	"github.com/sonoscribe/sonoscribe/pkg/audio/resampler"
)

func sine(rate int, seconds float64, freq float64) []float32 {
	n := int(float64(rate) * seconds)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestNormalize44100To16000(t *testing.T) {
	src := resampler.Format{SampleRate: 44100}
	in := sine(44100, 10, 440)

	out, err := resampler.Normalize(in, src)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := 10 * audio.SampleRate
	if diff := absDiff(len(out), want); diff > audio.SampleRate/100 {
		t.Fatalf("output length = %d, want ~%d (diff %d)", len(out), want, diff)
	}
	gotDur := audio.Duration(len(out), audio.SampleRate)
	if math.Abs(gotDur-10) > 0.01 {
		t.Fatalf("output duration = %v, want ~10s", gotDur)
	}
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func TestNormalizeSameRatePassthrough(t *testing.T) {
	src := resampler.Format{SampleRate: audio.SampleRate}
	in := []float32{0.1, 0.2, 0.3, 0.4}

	out, err := resampler.Normalize(in, src)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestNormalizeStereoDownmix(t *testing.T) {
	src := resampler.Format{SampleRate: audio.SampleRate, Stereo: true}
	in := []float32{0.2, 0.4, -0.6, -0.2}

	out, err := resampler.Normalize(in, src)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []float32{0.3, -0.4}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestConvertSourceErrorDiscardsOutput(t *testing.T) {
	src := resampler.Format{SampleRate: 44100}
	calls := 0
	failing := func() ([]float32, error) {
		calls++
		if calls == 1 {
			return make([]float32, 1024), nil
		}
		return nil, errors.New("device unplugged")
	}

	out, err := resampler.Convert(failing, src, 44100)
	if !errors.Is(err, resampler.ErrConversionFailed) {
		t.Fatalf("err = %v, want ErrConversionFailed", err)
	}
	if out != nil {
		t.Fatalf("partial output delivered: %d samples", len(out))
	}
}

func TestConvertInvalidRate(t *testing.T) {
	_, err := resampler.Convert(func() ([]float32, error) { return nil, io.EOF }, resampler.Format{}, 0)
	if !errors.Is(err, resampler.ErrConversionFailed) {
		t.Fatalf("err = %v, want ErrConversionFailed", err)
	}
}
