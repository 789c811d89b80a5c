package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalsur/catalogo/internal/log"
)

func TestEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req["model"])
		assert.Equal(t, "torno paralelo", req["prompt"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float32{0.1, -0.2, 0.3},
		})
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "nomic-embed-text", log.NewNop())

	vec, err := e.Embed(context.Background(), "torno paralelo")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, -0.2, 0.3}, vec)
}

func TestEmbedder_EmptyEmbedding(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{}})
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "nomic-embed-text", log.NewNop())

	_, err := e.Embed(context.Background(), "texto")
	assert.ErrorContains(t, err, "empty embedding")
}

func TestEmbedder_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "nomic-embed-text", log.NewNop())

	_, err := e.Embed(context.Background(), "texto")
	assert.ErrorContains(t, err, "status 500")
}
