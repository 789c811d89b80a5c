// Package ollama provides HTTP clients for the Ollama runtime: a Generator
// for text generation and an Embedder for vector embeddings.
//
// Both clients speak Ollama's JSON API (/api/generate, /api/embeddings).
// Generation failures are reported as *UnavailableError so the HTTP layer
// can translate them to 503 responses naming the configured endpoint.
package ollama

import (
	"fmt"
)

// UnavailableError indicates the Ollama service could not serve a request:
// connection failure, timeout, or a non-2xx response.
//
// Endpoint is the full URL that was called, so operators can tell from a
// client-visible error which backend was unreachable.
type UnavailableError struct {
	Endpoint string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("ollama service unavailable at %s: %v", e.Endpoint, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
