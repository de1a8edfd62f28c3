// Package voiceprint manages speaker identity: enrollment of voice
// embeddings, the persistent profile registry, and resolution of diarized
// speaker ids back to enrolled profiles.
//
// # Pipeline
//
// Enrollment extracts a fixed-dimension embedding from a short voice sample
// via the external diarization engine, using a layered strategy:
//
//  1. batch/offline diarization over the full normalized audio
//  2. streaming/incremental diarization over the same audio
//  3. streaming diarization with one second of lead-in/lead-out silence
//     (some engines need the padding to stabilize voice-activity detection)
//
// The first non-empty embedding wins; exhausting all three attempts is a
// terminal ErrEmbeddingExtraction.
//
// # Resolution
//
// At transcription time all enrolled profiles are loaded into the engine's
// known-speaker registry, so returned speaker ids already equal profile ids
// on a match. Resolution is a direct id lookup, never a fresh similarity
// computation; a miss leaves segment speaker fields unset.
package voiceprint

import (
	"errors"

	"github.com/sonoscribe/sonoscribe/pkg/audio"
)

var (
	// ErrInsufficientAudio reports input below the minimum enrollment
	// duration. Raised before any extraction attempt.
	ErrInsufficientAudio = errors.New("voiceprint: insufficient audio")

	// ErrEmbeddingExtraction reports that every layered extraction attempt
	// produced no usable embedding.
	ErrEmbeddingExtraction = errors.New("voiceprint: embedding extraction failed")

	// ErrProfileNotFound reports a re-enrollment or edit against an
	// unknown profile id.
	ErrProfileNotFound = errors.New("voiceprint: profile not found")
)

// MinEnrollSeconds is the minimum duration of enrollment audio.
const MinEnrollSeconds = 3

// MinEnrollSamples is MinEnrollSeconds at the canonical rate.
const MinEnrollSamples = MinEnrollSeconds * audio.SampleRate

// NormalizeGain returns a copy of samples scaled toward a consistent peak:
// scale = min(0.9/peak, 100) when peak > 0, 1 otherwise. The amplification
// cap keeps near-silent signals from blowing up into noise.
func NormalizeGain(samples []float32) []float32 {
	out := make([]float32, len(samples))
	peak := audio.Peak(samples)
	if peak == 0 {
		copy(out, samples)
		return out
	}
	scale := 0.9 / peak
	if scale > 100 {
		scale = 100
	}
	for i, s := range samples {
		out[i] = s * scale
	}
	return out
}
