package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/metalsur/catalogo/internal/log"
)

// searchTimeout bounds a single vector search so a degraded index cannot
// stall the whole request pipeline.
const searchTimeout = 10 * time.Second

// Store manages catalog entries with vector search using PostgreSQL + pgvector.
//
// Store is safe for concurrent use; all state lives in the database.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a Store on the given connection pool.
func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Add upserts a catalog entry with its embedding.
func (s *Store) Add(ctx context.Context, entry Entry, embedding []float32) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO catalog_entries (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content   = EXCLUDED.content,
			metadata  = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`,
		entry.ID, entry.Content, metadataJSON, pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("upserting catalog entry %q: %w", entry.ID, err)
	}

	s.logger.Debug("added catalog entry", "id", entry.ID, "content_bytes", len(entry.Content))
	return nil
}

// Search returns up to k entries ordered by ascending cosine distance to
// the query embedding. Tie order among equally distant entries is whatever
// the index produces.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]Entry, error) {
	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, `
		SELECT id, content, metadata
		FROM catalog_entries
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(embedding), k,
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry        Entry
			metadataJSON []byte
		)
		if err := rows.Scan(&entry.ID, &entry.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			s.logger.Warn("unparsable entry metadata", "id", entry.ID, "error", err)
			entry.Metadata = map[string]string{}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}

	return entries, nil
}

// Count returns the number of entries in the index.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM catalog_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting catalog entries: %w", err)
	}
	return count, nil
}

// RegisterSpace records the embedding configuration the index is being
// built with. Re-registering with the same model and dimension is a no-op;
// a different configuration overwrites the previous one (the caller is
// re-ingesting the catalog from scratch).
func (s *Store) RegisterSpace(ctx context.Context, embedderModel string, dimension int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO embedding_space (id, embedder_model, dimension)
		VALUES (TRUE, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			embedder_model = EXCLUDED.embedder_model,
			dimension      = EXCLUDED.dimension,
			registered_at  = now()`,
		embedderModel, dimension,
	)
	if err != nil {
		return fmt.Errorf("registering embedding space: %w", err)
	}
	return nil
}

// Space returns the registered embedding space, or ErrSpaceUnregistered.
func (s *Store) Space(ctx context.Context) (*Space, error) {
	var sp Space
	err := s.pool.QueryRow(ctx, `
		SELECT embedder_model, dimension, registered_at FROM embedding_space`,
	).Scan(&sp.EmbedderModel, &sp.Dimension, &sp.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSpaceUnregistered
	}
	if err != nil {
		return nil, fmt.Errorf("reading embedding space: %w", err)
	}
	return &sp, nil
}

// VerifySpace checks that the configured embedder matches the one the index
// was built with. Retrieval against a mismatched space produces meaningless
// similarity scores, so this is a startup error rather than a warning.
func (s *Store) VerifySpace(ctx context.Context, embedderModel string, dimension int) error {
	sp, err := s.Space(ctx)
	if err != nil {
		return err
	}
	if sp.EmbedderModel != embedderModel || sp.Dimension != dimension {
		return fmt.Errorf("%w: index built with %s/%d, configured %s/%d",
			ErrSpaceMismatch, sp.EmbedderModel, sp.Dimension, embedderModel, dimension)
	}
	return nil
}
