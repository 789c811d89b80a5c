// Package engine implements the retrieval-augmented dialogue pipeline.
//
// One Converse call runs the whole exchange: resolve conversation state,
// embed the query, retrieve the top-K catalog entries, compose the prompt,
// invoke the generation service, and record the completed turn. A failed
// exchange leaves the conversation history untouched.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/metalsur/catalogo/internal/catalog"
	"github.com/metalsur/catalogo/internal/conversation"
	"github.com/metalsur/catalogo/internal/log"
)

// ErrEmptyQuery indicates a blank query reached the engine.
var ErrEmptyQuery = errors.New("empty query")

// Embedder maps text to a fixed-dimension vector. Implemented by
// ollama.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index performs top-K similarity search. Implemented by catalog.Store.
type Index interface {
	Search(ctx context.Context, embedding []float32, k int) ([]catalog.Entry, error)
}

// Generator produces text from a composed prompt. Implemented by
// ollama.Generator.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Conversations is the conversation-store capability the engine needs.
// Implemented by conversation.Store.
type Conversations interface {
	Resolve(id string) (string, []conversation.Turn)
	Append(id string, turn conversation.Turn)
}

// Config contains all required parameters for the Engine.
type Config struct {
	Conversations Conversations
	Embedder      Embedder
	Index         Index
	Generator     Generator
	TopK          int
	Logger        log.Logger
}

// validate checks that all required collaborators are present.
func (cfg Config) validate() error {
	if cfg.Conversations == nil {
		return errors.New("conversation store is required")
	}
	if cfg.Embedder == nil {
		return errors.New("embedder is required")
	}
	if cfg.Index == nil {
		return errors.New("index is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	return nil
}

// Engine orchestrates the retrieval-augmented dialogue pipeline.
//
// Engine is stateless apart from its injected collaborators and safe for
// concurrent use: each Converse call runs independently, sharing only the
// conversation store.
type Engine struct {
	conversations Conversations
	embedder      Embedder
	index         Index
	generator     Generator
	topK          int
	logger        log.Logger
}

// New creates an Engine. TopK <= 0 falls back to 5.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	return &Engine{
		conversations: cfg.Conversations,
		embedder:      cfg.Embedder,
		index:         cfg.Index,
		generator:     cfg.Generator,
		topK:          cfg.TopK,
		logger:        cfg.Logger,
	}, nil
}

// Converse answers one user query within a conversation.
//
// conversationID may be empty; the returned id is then freshly assigned and
// must be echoed back by the caller on the next turn. On error the returned
// id is still valid (the conversation exists, just without a new turn), so
// callers can retry under the same identity.
func (e *Engine) Converse(ctx context.Context, query, conversationID string) (string, string, error) {
	if query == "" {
		return "", conversationID, ErrEmptyQuery
	}

	start := time.Now()

	id, history := e.conversations.Resolve(conversationID)

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return "", id, fmt.Errorf("embedding query: %w", err)
	}

	entries, err := e.index.Search(ctx, embedding, e.topK)
	if err != nil {
		return "", id, fmt.Errorf("searching catalog: %w", err)
	}

	docs := make([]string, len(entries))
	for i, entry := range entries {
		docs[i] = entry.Content
	}

	prompt := buildPrompt(history, docs, query)

	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		// No turn is recorded for a failed exchange.
		return "", id, err
	}

	e.conversations.Append(id, conversation.Turn{User: query, Assistant: answer})

	e.logger.Debug("exchange completed",
		"conversation_id", id,
		"retrieved", len(entries),
		"history_turns", len(history),
		"duration", time.Since(start))

	return answer, id, nil
}
