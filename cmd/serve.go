package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/metalsur/catalogo/db"
	"github.com/metalsur/catalogo/internal/api"
	"github.com/metalsur/catalogo/internal/catalog"
	"github.com/metalsur/catalogo/internal/config"
	"github.com/metalsur/catalogo/internal/conversation"
	"github.com/metalsur/catalogo/internal/engine"
	"github.com/metalsur/catalogo/internal/log"
	"github.com/metalsur/catalogo/internal/ollama"
)

// runServe initializes and starts the HTTP API server.
func runServe(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := parseServeAddr(cfg.Addr)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting catalogo server", "version", Version)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	pool, err := catalog.NewPool(ctx, cfg.PostgresConnString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	index := catalog.New(pool, logger)

	// Serving against an index built with a different embedder produces
	// meaningless retrieval, so a mismatch is fatal at startup.
	if err := index.VerifySpace(ctx, cfg.EmbedderModel, cfg.EmbeddingDim); err != nil {
		if errors.Is(err, catalog.ErrSpaceUnregistered) {
			return fmt.Errorf("catalog index is empty, run 'catalogo ingest' first: %w", err)
		}
		return fmt.Errorf("verifying embedding space: %w", err)
	}

	conversations := conversation.NewStore(cfg.MaxHistory)
	embedder := ollama.NewEmbedder(cfg.OllamaHost, cfg.EmbedderModel, logger)
	generator := ollama.NewGenerator(
		cfg.OllamaHost,
		cfg.ModelName,
		time.Duration(cfg.GenerateTimeoutSeconds)*time.Second,
		logger,
	)

	eng, err := engine.New(engine.Config{
		Conversations: conversations,
		Embedder:      embedder,
		Index:         index,
		Generator:     generator,
		TopK:          cfg.TopK,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	server, err := api.NewServer(api.ServerConfig{
		Engine:        eng,
		Conversations: conversations,
		Pool:          pool,
		Logger:        logger,
		RateBurst:     cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	logger.Info("catalogo server ready",
		"addr", addr,
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
		"top_k", cfg.TopK,
	)

	return server.Run(ctx, addr)
}
