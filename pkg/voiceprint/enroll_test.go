package voiceprint_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/sonoscribe/sonoscribe/pkg/audio"
	"github.com/sonoscribe/sonoscribe/pkg/engine"
	"github.com/sonoscribe/sonoscribe/pkg/voiceprint"
)

// mockDiarizer counts extraction attempts and succeeds only on attempt
// succeedOn (1-based; 0 means never).
type mockDiarizer struct {
	ready     bool
	succeedOn int
	emb       map[string][]float32

	attempts   int
	callKinds  []string
	streamLens []int
}

func (m *mockDiarizer) Ready() bool { return m.ready }

func (m *mockDiarizer) LoadSpeakers(context.Context, map[string][]float32) error { return nil }

func (m *mockDiarizer) result() *engine.DiarizationResult {
	if m.attempts == m.succeedOn {
		return &engine.DiarizationResult{Embeddings: m.emb}
	}
	return &engine.DiarizationResult{}
}

func (m *mockDiarizer) Diarize(context.Context, []float32) (*engine.DiarizationResult, error) {
	m.attempts++
	m.callKinds = append(m.callKinds, "offline")
	return m.result(), nil
}

func (m *mockDiarizer) DiarizeStream(_ context.Context, samples []float32) (*engine.DiarizationResult, error) {
	m.attempts++
	m.callKinds = append(m.callKinds, "stream")
	m.streamLens = append(m.streamLens, len(samples))
	return m.result(), nil
}

func testEmb() map[string][]float32 {
	return map[string][]float32{"spk_0": {0.1, 0.2, 0.3}}
}

func newTestEnroller(t *testing.T, diar engine.Diarizer) (*voiceprint.Enroller, *voiceprint.Registry) {
	t.Helper()
	reg, err := voiceprint.LoadRegistry(filepath.Join(t.TempDir(), "speakers.json"))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	return voiceprint.NewEnroller(reg, diar), reg
}

func enrollAudio() []float32 {
	s := make([]float32, voiceprint.MinEnrollSamples)
	for i := range s {
		s[i] = 0.3
	}
	return s
}

func TestNormalizeGain(t *testing.T) {
	tests := []struct {
		name      string
		samples   []float32
		wantScale float32
	}{
		{"typical", []float32{0.45, -0.3}, 2},
		{"near silent capped", []float32{0.001}, 100},
		{"loud attenuated", []float32{1.8}, 0.5},
		{"silence unchanged", []float32{0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := voiceprint.NormalizeGain(tt.samples)
			for i, s := range tt.samples {
				want := s * tt.wantScale
				if math.Abs(float64(out[i]-want)) > 1e-6 {
					t.Fatalf("out[%d] = %v, want %v", i, out[i], want)
				}
			}
		})
	}
}

func TestEnrollInsufficientAudio(t *testing.T) {
	diar := &mockDiarizer{ready: true, succeedOn: 1, emb: testEmb()}
	enr, _ := newTestEnroller(t, diar)

	short := make([]float32, voiceprint.MinEnrollSamples-1)
	_, err := enr.Enroll(context.Background(), short, "Ada", "", "")
	if !errors.Is(err, voiceprint.ErrInsufficientAudio) {
		t.Fatalf("err = %v, want ErrInsufficientAudio", err)
	}
	if diar.attempts != 0 {
		t.Fatalf("extraction attempted %d times on short audio", diar.attempts)
	}
}

func TestReEnrollInsufficientAudio(t *testing.T) {
	diar := &mockDiarizer{ready: true, succeedOn: 1, emb: testEmb()}
	enr, _ := newTestEnroller(t, diar)
	p, err := enr.Enroll(context.Background(), enrollAudio(), "Ada", "", "")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	diar.attempts = 0

	short := make([]float32, voiceprint.MinEnrollSamples-1)
	_, err = enr.ReEnroll(context.Background(), p.ID, short)
	if !errors.Is(err, voiceprint.ErrInsufficientAudio) {
		t.Fatalf("err = %v, want ErrInsufficientAudio", err)
	}
	if diar.attempts != 0 {
		t.Fatalf("extraction attempted %d times on short audio", diar.attempts)
	}
}

func TestEnrollModelsNotLoaded(t *testing.T) {
	diar := &mockDiarizer{ready: false}
	enr, _ := newTestEnroller(t, diar)

	_, err := enr.Enroll(context.Background(), enrollAudio(), "Ada", "", "")
	if !errors.Is(err, engine.ErrModelsNotLoaded) {
		t.Fatalf("err = %v, want ErrModelsNotLoaded", err)
	}
}

func TestLayeredExtractionOrder(t *testing.T) {
	for succeedOn := 1; succeedOn <= 3; succeedOn++ {
		diar := &mockDiarizer{ready: true, succeedOn: succeedOn, emb: testEmb()}
		enr, _ := newTestEnroller(t, diar)

		p, err := enr.Enroll(context.Background(), enrollAudio(), "Ada", "eng", "core")
		if err != nil {
			t.Fatalf("succeedOn=%d: Enroll: %v", succeedOn, err)
		}
		if diar.attempts != succeedOn {
			t.Fatalf("succeedOn=%d: attempts = %d", succeedOn, diar.attempts)
		}
		wantKinds := []string{"offline", "stream", "stream"}[:succeedOn]
		for i, k := range wantKinds {
			if diar.callKinds[i] != k {
				t.Fatalf("succeedOn=%d: attempt %d kind = %s, want %s",
					succeedOn, i+1, diar.callKinds[i], k)
			}
		}
		if len(p.Embedding) != 3 {
			t.Fatalf("embedding = %v", p.Embedding)
		}
	}
}

func TestLayeredExtractionPadsThirdAttempt(t *testing.T) {
	diar := &mockDiarizer{ready: true, succeedOn: 3, emb: testEmb()}
	enr, _ := newTestEnroller(t, diar)

	if _, err := enr.Enroll(context.Background(), enrollAudio(), "Ada", "", ""); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if len(diar.streamLens) != 2 {
		t.Fatalf("stream calls = %d, want 2", len(diar.streamLens))
	}
	wantPadded := voiceprint.MinEnrollSamples + 2*audio.SampleRate
	if diar.streamLens[0] != voiceprint.MinEnrollSamples || diar.streamLens[1] != wantPadded {
		t.Fatalf("stream lens = %v, want [%d %d]",
			diar.streamLens, voiceprint.MinEnrollSamples, wantPadded)
	}
}

func TestLayeredExtractionExhausted(t *testing.T) {
	diar := &mockDiarizer{ready: true} // never succeeds
	enr, reg := newTestEnroller(t, diar)

	_, err := enr.Enroll(context.Background(), enrollAudio(), "Ada", "", "")
	if !errors.Is(err, voiceprint.ErrEmbeddingExtraction) {
		t.Fatalf("err = %v, want ErrEmbeddingExtraction", err)
	}
	if diar.attempts != 3 {
		t.Fatalf("attempts = %d, want 3", diar.attempts)
	}
	if reg.Len() != 0 {
		t.Fatal("profile persisted despite extraction failure")
	}
}

func TestReEnrollReplacesOnlyEmbedding(t *testing.T) {
	diar := &mockDiarizer{ready: true, succeedOn: 1, emb: testEmb()}
	enr, reg := newTestEnroller(t, diar)

	p, err := enr.Enroll(context.Background(), enrollAudio(), "Ada", "eng", "core")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	before := *p

	diar.succeedOn = diar.attempts + 1 // succeed on the next (single) attempt
	diar.emb = map[string][]float32{"spk_0": {0.9, 0.8, 0.7}}
	got, err := enr.ReEnroll(context.Background(), p.ID, enrollAudio())
	if err != nil {
		t.Fatalf("ReEnroll: %v", err)
	}

	if got.ID != before.ID || got.Name != before.Name || got.Role != before.Role ||
		got.Group != before.Group || got.Color != before.Color ||
		!got.EnrolledAt.Equal(before.EnrolledAt) {
		t.Fatalf("non-embedding fields changed: before %+v, after %+v", before, got)
	}
	if got.Embedding[0] != 0.9 {
		t.Fatalf("embedding not replaced: %v", got.Embedding)
	}
	if got.UpdatedAt.Before(before.UpdatedAt) {
		t.Fatalf("UpdatedAt moved backwards: %v → %v", before.UpdatedAt, got.UpdatedAt)
	}
	if _, ok := reg.Get(p.ID); !ok {
		t.Fatal("profile missing after re-enroll")
	}
}

func TestReEnrollSingleAttempt(t *testing.T) {
	diar := &mockDiarizer{ready: true, succeedOn: 1, emb: testEmb()}
	enr, _ := newTestEnroller(t, diar)
	p, err := enr.Enroll(context.Background(), enrollAudio(), "Ada", "", "")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	// Never succeeds again: re-enrollment must stop after one offline pass.
	attemptsBefore := diar.attempts
	diar.succeedOn = 0
	_, err = enr.ReEnroll(context.Background(), p.ID, enrollAudio())
	if !errors.Is(err, voiceprint.ErrEmbeddingExtraction) {
		t.Fatalf("err = %v, want ErrEmbeddingExtraction", err)
	}
	if got := diar.attempts - attemptsBefore; got != 1 {
		t.Fatalf("re-enroll attempts = %d, want 1", got)
	}
	if diar.callKinds[len(diar.callKinds)-1] != "offline" {
		t.Fatal("re-enroll did not use the offline pass")
	}
}

func TestReEnrollUnknownProfile(t *testing.T) {
	diar := &mockDiarizer{ready: true, succeedOn: 1, emb: testEmb()}
	enr, _ := newTestEnroller(t, diar)

	_, err := enr.ReEnroll(context.Background(), "ghost", enrollAudio())
	if !errors.Is(err, voiceprint.ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestEnrollDimensionInvariant(t *testing.T) {
	diar := &mockDiarizer{ready: true, succeedOn: 1, emb: testEmb()}
	enr, _ := newTestEnroller(t, diar)
	if _, err := enr.Enroll(context.Background(), enrollAudio(), "Ada", "", ""); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	diar.succeedOn = diar.attempts + 1
	diar.emb = map[string][]float32{"spk_0": {0.1, 0.2}} // wrong dimension
	if _, err := enr.Enroll(context.Background(), enrollAudio(), "Bob", "", ""); err == nil {
		t.Fatal("mismatched embedding dimension accepted")
	}
}
