package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/metalsur/catalogo/db"
	"github.com/metalsur/catalogo/internal/catalog"
	"github.com/metalsur/catalogo/internal/config"
	"github.com/metalsur/catalogo/internal/log"
	"github.com/metalsur/catalogo/internal/ollama"
)

// runIngest loads a product CSV into the vector index.
//
// The CSV must carry a header row; columns are matched by name (codigo,
// nombre, descripcion, material, categoria, dimensiones, stock, precio,
// proveedor), so column order does not matter. Rows are upserted by codigo,
// re-running ingest with an updated file refreshes existing products.
func runIngest(logger log.Logger) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: catalogo ingest <file.csv>")
	}
	path := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	pool, err := catalog.NewPool(ctx, cfg.PostgresConnString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	store := catalog.New(pool, logger)
	embedder := ollama.NewEmbedder(cfg.OllamaHost, cfg.EmbedderModel, logger)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	count, err := ingestCSV(ctx, f, store, embedder, logger)
	if err != nil {
		return err
	}

	// The space is registered after the rows so an interrupted ingest does
	// not leave a registered space over a partial index refresh.
	if err := store.RegisterSpace(ctx, cfg.EmbedderModel, cfg.EmbeddingDim); err != nil {
		return fmt.Errorf("registering embedding space: %w", err)
	}

	logger.Info("ingest completed",
		"file", path,
		"rows", count,
		"embedder", cfg.EmbedderModel,
		"duration", time.Since(start))
	fmt.Printf("Ingested %d products from %s\n", count, path)

	return nil
}

// rowEmbedder is the embedding capability ingest needs.
type rowEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// rowStore is the index capability ingest needs.
type rowStore interface {
	Add(ctx context.Context, entry catalog.Entry, embedding []float32) error
}

// ingestCSV reads product rows from r and upserts them into the store.
// Returns the number of rows ingested.
func ingestCSV(ctx context.Context, r io.Reader, store rowStore, embedder rowEmbedder, logger log.Logger) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("reading CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["codigo"]; !ok {
		return 0, fmt.Errorf("CSV header is missing the codigo column")
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("reading CSV row %d: %w", count+2, err)
		}

		row := catalog.Row{
			Codigo:      field(record, "codigo"),
			Nombre:      field(record, "nombre"),
			Descripcion: field(record, "descripcion"),
			Material:    field(record, "material"),
			Categoria:   field(record, "categoria"),
			Dimensiones: field(record, "dimensiones"),
			Stock:       field(record, "stock"),
			Precio:      field(record, "precio"),
			Proveedor:   field(record, "proveedor"),
		}
		if row.Codigo == "" {
			logger.Warn("skipping row without codigo", "row", count+2)
			continue
		}

		embedding, err := embedder.Embed(ctx, row.Text())
		if err != nil {
			return count, fmt.Errorf("embedding product %s: %w", row.Codigo, err)
		}
		if err := store.Add(ctx, row.Entry(), embedding); err != nil {
			return count, fmt.Errorf("storing product %s: %w", row.Codigo, err)
		}

		count++
		if count%50 == 0 {
			logger.Info("ingest progress", "rows", count)
		}
	}

	return count, nil
}
