// Package catalog provides the vector index over product catalog entries.
//
// Entries are textualized product rows stored in PostgreSQL with a pgvector
// embedding column. The package owns two contracts:
//
//   - Top-K similarity search used by the dialogue engine.
//   - The embedding-space contract: the embedder model and dimension used at
//     ingestion time are registered alongside the index, and VerifySpace
//     checks them at serve startup. Without this check a model mismatch
//     degrades retrieval silently, with no error signal.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// Sentinel errors for the embedding-space contract.
var (
	// ErrSpaceUnregistered indicates the index has no registered embedding
	// space yet (nothing was ever ingested).
	ErrSpaceUnregistered = errors.New("embedding space not registered")

	// ErrSpaceMismatch indicates the configured embedder differs from the
	// one the index was built with.
	ErrSpaceMismatch = errors.New("embedding space mismatch")
)

// Entry is one catalog item's textualized attributes. The content blob is
// what retrieval returns and what the prompt renders; the engine never
// parses it.
type Entry struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Space describes the embedding configuration an index was built with.
type Space struct {
	EmbedderModel string
	Dimension     int
	RegisteredAt  time.Time
}

// NewPool opens a pgx connection pool with pgvector types registered on
// every connection.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	return pool, nil
}
