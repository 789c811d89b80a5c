package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalsur/catalogo/internal/catalog"
	"github.com/metalsur/catalogo/internal/conversation"
	"github.com/metalsur/catalogo/internal/log"
	"github.com/metalsur/catalogo/internal/ollama"
)

// fakeEmbedder returns a constant vector.
type fakeEmbedder struct {
	err   error
	calls []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeIndex returns scripted entries.
type fakeIndex struct {
	entries []catalog.Entry
	err     error
	gotK    int
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int) ([]catalog.Entry, error) {
	f.gotK = k
	return f.entries, f.err
}

// fakeGenerator captures the prompt and returns a scripted answer.
type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestEngine(t *testing.T, store *conversation.Store, idx *fakeIndex, gen *fakeGenerator) *Engine {
	t.Helper()
	e, err := New(Config{
		Conversations: store,
		Embedder:      &fakeEmbedder{},
		Index:         idx,
		Generator:     gen,
		TopK:          5,
		Logger:        log.NewNop(),
	})
	require.NoError(t, err)
	return e
}

func TestConverse_HappyPath(t *testing.T) {
	t.Parallel()

	store := conversation.NewStore(10)
	idx := &fakeIndex{entries: []catalog.Entry{
		{ID: "TOR-001", Content: "Codigo: TOR-001\nNombre: Torno\nPrecio: 4500000"},
	}}
	gen := &fakeGenerator{answer: "Te recomiendo el TOR-001."}
	e := newTestEngine(t, store, idx, gen)

	answer, id, err := e.Converse(context.Background(), "busco un torno", "")
	require.NoError(t, err)
	assert.Equal(t, "Te recomiendo el TOR-001.", answer)
	assert.NotEmpty(t, id)
	assert.Equal(t, 5, idx.gotK)

	// Retrieved context and query reach the prompt.
	assert.Contains(t, gen.prompt, "Codigo: TOR-001")
	assert.Contains(t, gen.prompt, "busco un torno")

	// The exchange was recorded.
	_, turns := store.Resolve(id)
	require.Len(t, turns, 1)
	assert.Equal(t, conversation.Turn{User: "busco un torno", Assistant: "Te recomiendo el TOR-001."}, turns[0])
}

func TestConverse_ReusesConversation(t *testing.T) {
	t.Parallel()

	store := conversation.NewStore(10)
	gen := &fakeGenerator{answer: "respuesta"}
	e := newTestEngine(t, store, &fakeIndex{}, gen)

	_, id, err := e.Converse(context.Background(), "primera pregunta", "")
	require.NoError(t, err)

	_, id2, err := e.Converse(context.Background(), "segunda pregunta", id)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	// The second prompt carries the first exchange as history.
	assert.Contains(t, gen.prompt, "Usuario: primera pregunta")

	_, turns := store.Resolve(id)
	assert.Len(t, turns, 2)
}

func TestConverse_GreetingWithEmptyIndex(t *testing.T) {
	t.Parallel()

	store := conversation.NewStore(10)
	gen := &fakeGenerator{answer: "¡Hola!"}
	e := newTestEngine(t, store, &fakeIndex{}, gen)

	answer, id, err := e.Converse(context.Background(), "hola", "")
	require.NoError(t, err)
	assert.Equal(t, "¡Hola!", answer)

	// A valid prompt was composed: preamble present, catalog block empty,
	// no history block.
	assert.True(t, strings.HasPrefix(gen.prompt, preamble))
	assert.NotContains(t, gen.prompt, historyHeader)
	assert.Contains(t, gen.prompt, catalogHeader)

	_, turns := store.Resolve(id)
	assert.Len(t, turns, 1, "answer recorded as a turn")
}

func TestConverse_GenerationFailureLeavesHistoryUntouched(t *testing.T) {
	t.Parallel()

	store := conversation.NewStore(10)
	upstreamErr := &ollama.UnavailableError{
		Endpoint: "http://localhost:11434/api/generate",
		Err:      errors.New("connection refused"),
	}
	e := newTestEngine(t, store, &fakeIndex{}, &fakeGenerator{err: upstreamErr})

	_, id, err := e.Converse(context.Background(), "busco un torno", "")

	var unavailable *ollama.UnavailableError
	require.ErrorAs(t, err, &unavailable, "upstream error passes through untranslated")
	assert.NotEmpty(t, id)
	assert.Equal(t, 0, store.Len(id), "no turn recorded for a failed exchange")
}

func TestConverse_EmbedderFailure(t *testing.T) {
	t.Parallel()

	store := conversation.NewStore(10)
	e, err := New(Config{
		Conversations: store,
		Embedder:      &fakeEmbedder{err: errors.New("model not loaded")},
		Index:         &fakeIndex{},
		Generator:     &fakeGenerator{},
		Logger:        log.NewNop(),
	})
	require.NoError(t, err)

	_, id, err := e.Converse(context.Background(), "consulta", "")
	assert.ErrorContains(t, err, "embedding query")
	assert.Equal(t, 0, store.Len(id))
}

func TestConverse_IndexFailure(t *testing.T) {
	t.Parallel()

	store := conversation.NewStore(10)
	idx := &fakeIndex{err: errors.New("connection reset")}
	e := newTestEngine(t, store, idx, &fakeGenerator{})

	_, _, err := e.Converse(context.Background(), "consulta", "")
	assert.ErrorContains(t, err, "searching catalog")
}

func TestConverse_EmptyQuery(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, conversation.NewStore(10), &fakeIndex{}, &fakeGenerator{})

	_, _, err := e.Converse(context.Background(), "", "c1")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	assert.ErrorContains(t, err, "conversation store is required")

	_, err = New(Config{Conversations: conversation.NewStore(10)})
	assert.ErrorContains(t, err, "embedder is required")
}
