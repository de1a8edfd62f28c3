package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sonoscribe/sonoscribe/pkg/audio"
)

// WSDiarizer is a Diarizer backed by a diarization sidecar over a websocket.
// It speaks the same session shape as WSTranscriber: config frame, binary
// PCM frames, eos, then a single result frame.
//
// Known speaker embeddings are carried in the config frame of every call, so
// the sidecar stays stateless between sessions.
type WSDiarizer struct {
	url    string
	dialer *websocket.Dialer

	mu    sync.Mutex
	ready bool
	known map[string][]float32
}

// NewWSDiarizer creates a client for the sidecar at url
// (e.g. "ws://127.0.0.1:8766/diarize").
func NewWSDiarizer(url string) *WSDiarizer {
	return &WSDiarizer{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 3 * time.Second,
		},
	}
}

// Ready probes the sidecar with a short-lived connection. A successful
// probe is cached for the lifetime of the client.
func (d *WSDiarizer) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ready {
		return true
	}
	conn, _, err := d.dialer.Dial(d.url, nil)
	if err != nil {
		return false
	}
	conn.Close()
	d.ready = true
	return true
}

// LoadSpeakers records the known embeddings sent with subsequent calls.
func (d *WSDiarizer) LoadSpeakers(ctx context.Context, known map[string][]float32) error {
	d.mu.Lock()
	d.known = known
	d.mu.Unlock()
	return nil
}

type wsDiarConfig struct {
	Type       string               `json:"type"`
	Mode       string               `json:"mode"`
	SampleRate int                  `json:"sample_rate"`
	Encoding   string               `json:"encoding"`
	Speakers   map[string][]float32 `json:"speakers,omitempty"`
}

type wsDiarSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

type wsDiarResult struct {
	Type       string               `json:"type"`
	Segments   []wsDiarSegment      `json:"segments,omitempty"`
	Embeddings map[string][]float32 `json:"embeddings,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Diarize runs a batch pass over the full audio.
func (d *WSDiarizer) Diarize(ctx context.Context, samples []float32) (*DiarizationResult, error) {
	return d.run(ctx, samples, "offline")
}

// DiarizeStream runs the sidecar's incremental pass over the same audio.
func (d *WSDiarizer) DiarizeStream(ctx context.Context, samples []float32) (*DiarizationResult, error) {
	return d.run(ctx, samples, "stream")
}

func (d *WSDiarizer) run(ctx context.Context, samples []float32, mode string) (*DiarizationResult, error) {
	if !d.Ready() {
		return nil, ErrModelsNotLoaded
	}

	conn, _, err := d.dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: dial diarizer: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	d.mu.Lock()
	known := d.known
	d.mu.Unlock()
	cfg := wsDiarConfig{
		Type:       "config",
		Mode:       mode,
		SampleRate: audio.SampleRate,
		Encoding:   "f32le",
		Speakers:   known,
	}
	if err := conn.WriteJSON(cfg); err != nil {
		return nil, fmt.Errorf("engine: send config: %w", err)
	}
	for start := 0; start < len(samples); start += wsChunkSamples {
		end := start + wsChunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, encodeSamples(samples[start:end])); err != nil {
			return nil, fmt.Errorf("engine: send audio: %w", err)
		}
	}
	if err := conn.WriteJSON(wsClientFrame{Type: "eos"}); err != nil {
		return nil, fmt.Errorf("engine: send eos: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var res wsDiarResult
		if err := conn.ReadJSON(&res); err != nil {
			return nil, fmt.Errorf("engine: read result: %w", err)
		}
		switch res.Type {
		case "result":
			out := &DiarizationResult{Embeddings: res.Embeddings}
			for _, s := range res.Segments {
				out.Segments = append(out.Segments, Segment{
					SpeakerID: s.Speaker,
					Start:     s.Start,
					End:       s.End,
				})
			}
			return out, nil
		case "error":
			return nil, fmt.Errorf("engine: diarizer: %s", res.Error)
		}
	}
}
