package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/metalsur/catalogo/internal/log"
)

// DefaultGenerateTimeout bounds a single generation call when no timeout
// is configured. Local models can be slow on long prompts.
const DefaultGenerateTimeout = 120 * time.Second

// Generator calls Ollama's /api/generate endpoint with stream disabled.
//
// Generator is safe for concurrent use; the underlying http.Client
// handles connection pooling.
type Generator struct {
	baseURL string
	model   string
	client  *http.Client
	logger  log.Logger
}

// NewGenerator creates a Generator for the given Ollama host and model.
// A zero timeout falls back to DefaultGenerateTimeout.
func NewGenerator(baseURL, model string, timeout time.Duration, logger log.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Model returns the configured generation model identifier.
func (g *Generator) Model() string { return g.model }

// generateRequest is the Ollama generate API request body.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the Ollama generate API response body.
// Only the fields we consume are declared.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends the composed prompt and returns the generated text.
//
// Failure semantics:
//   - network error, timeout, or non-2xx status: *UnavailableError carrying
//     the endpoint URL and the underlying cause. The call is never retried
//     here; the caller decides whether the failure is worth surfacing.
///   - 2xx with a malformed or field-less payload: empty string, no error.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	endpoint := g.baseURL + "/api/generate"

	body, err := json.Marshal(generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", &UnavailableError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the error cause; Ollama error
		// payloads are short JSON objects.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &UnavailableError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet),
		}
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		// Graceful degradation: a 2xx with an undecodable payload is
		// treated like a missing response field, not a hard failure.
		g.logger.Warn("malformed generate response, returning empty answer",
			"endpoint", endpoint, "error", err)
		return "", nil
	}

	g.logger.Debug("generation completed",
		"model", g.model,
		"prompt_bytes", len(prompt),
		"answer_bytes", len(genResp.Response),
		"duration", time.Since(start))

	return genResp.Response, nil
}
