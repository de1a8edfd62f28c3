package voiceprint

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sonoscribe/sonoscribe/pkg/audio"
	"github.com/sonoscribe/sonoscribe/pkg/engine"
)

// Enroller creates and refreshes speaker profiles by extracting voice
// embeddings through the diarization engine.
type Enroller struct {
	reg  *Registry
	diar engine.Diarizer

	// randIndex picks the fallback palette color. Overridable in tests.
	randIndex func(n int) int

	// now is the clock. Overridable in tests.
	now func() time.Time
}

// NewEnroller wires an Enroller to the profile registry and engine.
func NewEnroller(reg *Registry, diar engine.Diarizer) *Enroller {
	return &Enroller{
		reg:       reg,
		diar:      diar,
		randIndex: rand.IntN,
		now:       time.Now,
	}
}

// Enroll extracts an embedding from samples (canonical-format PCM) and
// appends a new profile. Input shorter than the minimum enrollment duration
// fails fast with ErrInsufficientAudio before any engine call.
func (e *Enroller) Enroll(ctx context.Context, samples []float32, name, role, group string) (*Profile, error) {
	if len(samples) < MinEnrollSamples {
		return nil, fmt.Errorf("%w: %.1fs, need %ds",
			ErrInsufficientAudio, audio.Duration(len(samples), audio.SampleRate), MinEnrollSeconds)
	}
	if !e.diar.Ready() {
		return nil, engine.ErrModelsNotLoaded
	}

	emb, err := e.extractLayered(ctx, NormalizeGain(samples))
	if err != nil {
		return nil, err
	}

	now := e.now()
	p := &Profile{
		ID:         uuid.NewString(),
		Name:       name,
		Role:       role,
		Group:      group,
		Color:      pickColor(e.reg.All(), e.randIndex),
		Embedding:  emb,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	if err := e.reg.add(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReEnroll refreshes the embedding of an existing profile. Only Embedding
// and UpdatedAt change. Unlike first-time enrollment this makes a single
// offline extraction attempt and fails fast on error: a refresh can always
// be retried by the user, so there is no layered fallback here.
func (e *Enroller) ReEnroll(ctx context.Context, id string, samples []float32) (*Profile, error) {
	if len(samples) < MinEnrollSamples {
		return nil, fmt.Errorf("%w: %.1fs, need %ds",
			ErrInsufficientAudio, audio.Duration(len(samples), audio.SampleRate), MinEnrollSeconds)
	}
	p, ok := e.reg.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	if !e.diar.Ready() {
		return nil, engine.ErrModelsNotLoaded
	}

	res, err := e.diar.Diarize(ctx, NormalizeGain(samples))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingExtraction, err)
	}
	emb := firstEmbedding(res)
	if emb == nil {
		return nil, ErrEmbeddingExtraction
	}
	if dim := len(p.Embedding); dim > 0 && len(emb) != dim {
		return nil, fmt.Errorf("voiceprint: embedding dimension %d, registry uses %d", len(emb), dim)
	}

	prevEmb, prevAt := p.Embedding, p.UpdatedAt
	p.Embedding = emb
	p.UpdatedAt = e.now()
	if err := e.reg.save(); err != nil {
		p.Embedding, p.UpdatedAt = prevEmb, prevAt
		return nil, err
	}
	return p, nil
}

// extractLayered runs the three-attempt fallback chain, stopping at the
// first attempt that yields a usable embedding. Per-attempt errors fall
// through to the next layer.
func (e *Enroller) extractLayered(ctx context.Context, samples []float32) ([]float32, error) {
	attempts := []func(context.Context, []float32) (*engine.DiarizationResult, error){
		e.diar.Diarize,
		e.diar.DiarizeStream,
		func(ctx context.Context, s []float32) (*engine.DiarizationResult, error) {
			return e.diar.DiarizeStream(ctx, padSilence(s))
		},
	}
	for _, attempt := range attempts {
		res, err := attempt(ctx, samples)
		if err != nil {
			continue
		}
		if emb := firstEmbedding(res); emb != nil {
			return emb, nil
		}
	}
	return nil, ErrEmbeddingExtraction
}

// firstEmbedding returns the first non-empty embedding from the result,
// keyed in sorted speaker order for determinism.
func firstEmbedding(res *engine.DiarizationResult) []float32 {
	if res == nil || len(res.Embeddings) == 0 {
		return nil
	}
	keys := make([]string, 0, len(res.Embeddings))
	for k := range res.Embeddings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if emb := res.Embeddings[k]; len(emb) > 0 {
			return emb
		}
	}
	return nil
}

// padSilence returns samples with one second of silence on each side.
func padSilence(samples []float32) []float32 {
	pad := audio.SampleRate
	out := make([]float32, len(samples)+2*pad)
	copy(out[pad:], samples)
	return out
}
