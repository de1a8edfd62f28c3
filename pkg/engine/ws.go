package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sonoscribe/sonoscribe/pkg/audio"
)

// wsChunkSamples is the number of samples per binary frame (~200ms).
const wsChunkSamples = 3200

// WSTranscriber is a Transcriber backed by a local inference sidecar over a
// websocket. The protocol is one session per call:
//
//  1. client sends a JSON config frame {"type":"config",...}
//  2. client streams binary frames of little-endian float32 PCM
//  3. client sends {"type":"eos"}
//  4. server replies with JSON result frames; {"type":"final"} ends the call
type WSTranscriber struct {
	url    string
	dialer *websocket.Dialer

	mu    sync.Mutex
	ready bool
}

// NewWSTranscriber creates a client for the sidecar at url
// (e.g. "ws://127.0.0.1:8765/asr").
func NewWSTranscriber(url string) *WSTranscriber {
	return &WSTranscriber{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 3 * time.Second,
		},
	}
}

// Ready probes the sidecar with a short-lived connection. A successful
// probe is cached for the lifetime of the client.
func (t *WSTranscriber) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		return true
	}
	conn, _, err := t.dialer.Dial(t.url, nil)
	if err != nil {
		return false
	}
	conn.Close()
	t.ready = true
	return true
}

type wsClientFrame struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
}

type wsResultFrame struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Transcribe streams samples to the sidecar and returns the trimmed final
// text.
func (t *WSTranscriber) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if !t.Ready() {
		return "", ErrTranscriberNotReady
	}

	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return "", fmt.Errorf("engine: dial transcriber: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	cfg := wsClientFrame{Type: "config", SampleRate: audio.SampleRate, Encoding: "f32le"}
	if err := conn.WriteJSON(cfg); err != nil {
		return "", fmt.Errorf("engine: send config: %w", err)
	}
	for start := 0; start < len(samples); start += wsChunkSamples {
		end := start + wsChunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, encodeSamples(samples[start:end])); err != nil {
			return "", fmt.Errorf("engine: send audio: %w", err)
		}
	}
	if err := conn.WriteJSON(wsClientFrame{Type: "eos"}); err != nil {
		return "", fmt.Errorf("engine: send eos: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		var res wsResultFrame
		if err := conn.ReadJSON(&res); err != nil {
			return "", fmt.Errorf("engine: read result: %w", err)
		}
		switch res.Type {
		case "partial":
			// Partial hypotheses are informational only.
		case "final":
			return strings.TrimSpace(res.Text), nil
		case "error":
			return "", fmt.Errorf("engine: transcriber: %s", res.Error)
		}
	}
}

// encodeSamples packs float32 samples as little-endian bytes.
func encodeSamples(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}
