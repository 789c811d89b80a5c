package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeOllama is an httptest server speaking the Ollama HTTP API.
// It answers /api/generate with a fixed response and /api/embeddings
// with a fixed vector, recording every prompt it receives.
type FakeOllama struct {
	Server *httptest.Server

	mu       sync.Mutex
	prompts  []string
	Response string
	Vector   []float32
}

// NewFakeOllama starts a fake Ollama server. Callers own the returned
// server's lifetime via t.Cleanup.
func NewFakeOllama(t *testing.T, response string, vector []float32) *FakeOllama {
	t.Helper()

	f := &FakeOllama{Response: response, Vector: vector}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", f.handleGenerate)
	mux.HandleFunc("/api/embeddings", f.handleEmbeddings)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake server.
func (f *FakeOllama) URL() string { return f.Server.URL }

// Prompts returns a copy of every prompt received so far, in order.
func (f *FakeOllama) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

func (f *FakeOllama) record(prompt string) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
}

func (f *FakeOllama) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.record(req.Prompt)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"response": f.Response,
		"done":     true,
	})
}

func (f *FakeOllama) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.record(req.Prompt)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"embedding": f.Vector,
	})
}
