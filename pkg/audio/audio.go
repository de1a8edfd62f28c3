// Package audio defines the canonical capture format shared by the dictation
// pipeline and provides small helpers for working with float32 PCM.
//
// All downstream engines consume mono, 32-bit floating-point PCM at
// [SampleRate]. Capture may run at the device's native rate; the resampler
// subpackage converts to canonical form.
package audio

import "math"

const (
	// SampleRate is the canonical sample rate in Hz.
	SampleRate = 16000

	// LevelChunk is the number of canonical-rate samples per amplitude
	// level update (~30ms).
	LevelChunk = SampleRate * 30 / 1000
)

// Peak returns the maximum absolute sample value in samples.
// Returns 0 for empty input.
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if a := float32(math.Abs(float64(s))); a > peak {
			peak = a
		}
	}
	return peak
}

// Duration returns the duration in seconds of n samples at the given rate.
func Duration(n, rate int) float64 {
	if rate <= 0 {
		return 0
	}
	return float64(n) / float64(rate)
}

// LevelChunkFor returns the number of samples per ~30ms level chunk at the
// given rate.
func LevelChunkFor(rate int) int {
	n := rate * 30 / 1000
	if n < 1 {
		n = 1
	}
	return n
}
