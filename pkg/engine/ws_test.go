package engine_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sonoscribe/sonoscribe/pkg/engine"
)

// fakeSidecar implements the one-session transcription protocol and replies
// with the number of samples it received.
func fakeSidecar(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		samples := 0
		sawConfig := false
		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if typ == websocket.BinaryMessage {
				samples += len(data) / 4
				continue
			}
			var frame struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(data, &frame); err != nil {
				return
			}
			switch frame.Type {
			case "config":
				sawConfig = true
			case "eos":
				if !sawConfig {
					conn.WriteJSON(map[string]string{"type": "error", "error": "no config"})
					return
				}
				conn.WriteJSON(map[string]string{"type": "partial", "text": "got"})
				conn.WriteJSON(map[string]string{
					"type": "final",
					"text": fmt.Sprintf("  got %d samples  ", samples),
				})
				return
			}
		}
	}))
}

func TestWSTranscriber(t *testing.T) {
	srv := fakeSidecar(t)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	tr := engine.NewWSTranscriber(url)
	if !tr.Ready() {
		t.Fatal("Ready = false for live sidecar")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	text, err := tr.Transcribe(ctx, make([]float32, 5000))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "got 5000 samples" {
		t.Fatalf("text = %q, want trimmed %q", text, "got 5000 samples")
	}
}

func TestWSTranscriberNotReady(t *testing.T) {
	tr := engine.NewWSTranscriber("ws://127.0.0.1:1/asr")
	if tr.Ready() {
		t.Fatal("Ready = true for dead endpoint")
	}
}
