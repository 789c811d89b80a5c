package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/metalsur/catalogo/internal/log"
)

// DefaultEmbedTimeout bounds a single embedding call. Embeddings are much
// cheaper than generation, so the bound is tighter.
const DefaultEmbedTimeout = 60 * time.Second

// Embedder calls Ollama's /api/embeddings endpoint.
//
// The same model MUST be used at ingestion time and query time; see
// catalog.VerifySpace for the startup check that enforces this.
type Embedder struct {
	baseURL string
	model   string
	client  *http.Client
	logger  log.Logger
}

// NewEmbedder creates an Embedder for the given Ollama host and model.
func NewEmbedder(baseURL, model string, logger log.Logger) *Embedder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Embedder{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: DefaultEmbedTimeout},
		logger:  logger,
	}
}

// Model returns the configured embedding model identifier.
func (e *Embedder) Model() string { return e.model }

// embedRequest is the Ollama embeddings API request body.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the Ollama embeddings API response body.
type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed maps text to a fixed-dimension vector.
//
// Unlike Generate, failures here propagate as plain errors: the embedder is
// an internal collaborator and its failures are not given a client-facing
// translation.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	endpoint := e.baseURL + "/api/embeddings"

	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned by %s", endpoint)
	}

	e.logger.Debug("embedded text", "model", e.model, "dimensions", len(embedResp.Embedding))
	return embedResp.Embedding, nil
}
