// Package engine declares the contracts for the external inference
// collaborators: the transcription engine and the diarization engine. Both
// consume canonical-format PCM (mono float32 at 16kHz) and are treated as
// black-box capability providers; readiness is a precondition checked before
// a call, never polled mid-call.
package engine

import (
	"context"
	"errors"
)

var (
	// ErrModelsNotLoaded reports that the diarization engine's models are
	// not resident. Fatal to the operation, never retried.
	ErrModelsNotLoaded = errors.New("engine: models not loaded")

	// ErrTranscriberNotReady reports that the transcription engine has not
	// been initialized. Aborts the session.
	ErrTranscriberNotReady = errors.New("engine: transcriber not initialized")
)

// Segment is one diarized time range attributed to a single speaker.
// Times are seconds from the start of the processed audio.
type Segment struct {
	SpeakerID string
	Start     float64
	End       float64
}

// DiarizationResult is the output of one diarization pass: ordered segments
// plus a speaker→embedding map for every voice the engine isolated.
type DiarizationResult struct {
	Segments   []Segment
	Embeddings map[string][]float32
}

// Transcriber converts canonical PCM into trimmed text.
type Transcriber interface {
	// Ready reports whether the engine can accept a call.
	Ready() bool

	// Transcribe returns the trimmed transcription of samples.
	Transcribe(ctx context.Context, samples []float32) (string, error)
}

// Diarizer segments canonical PCM by speaker and extracts voice embeddings.
type Diarizer interface {
	// Ready reports whether the engine's models are loaded.
	Ready() bool

	// LoadSpeakers registers known speaker embeddings ahead of a call so
	// the engine biases id assignment toward enrolled identities.
	LoadSpeakers(ctx context.Context, known map[string][]float32) error

	// Diarize runs a batch/offline pass over the full audio.
	Diarize(ctx context.Context, samples []float32) (*DiarizationResult, error)

	// DiarizeStream runs a streaming/incremental pass over the same audio.
	// Some engines stabilize voice-activity detection only in this mode.
	DiarizeStream(ctx context.Context, samples []float32) (*DiarizationResult, error)
}
