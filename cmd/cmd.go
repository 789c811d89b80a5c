// Package cmd provides CLI commands for catalogo.
//
// Commands:
//   - serve: HTTP API answering catalog questions
//   - ingest: load a product CSV into the vector index
//
// Signal handling and graceful shutdown are implemented
// for all commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/metalsur/catalogo/internal/log"
)

// Execute is the main entry point for the catalogo CLI.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "ingest":
		return runIngest(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("catalogo - asistente conversacional del catálogo de productos")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  catalogo serve [addr]      Start HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  catalogo ingest <file.csv> Load a product CSV into the vector index")
	fmt.Println("  catalogo --version         Show version information")
	fmt.Println("  catalogo --help            Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  OLLAMA_URL                 Ollama endpoint (default: http://localhost:11434)")
	fmt.Println("  CATALOGO_MODEL             Generation model (default: llama3.1:8b)")
	fmt.Println("  CATALOGO_EMBEDDER_MODEL    Embedding model (default: nomic-embed-text)")
	fmt.Println("  DATABASE_URL               PostgreSQL connection URL")
	fmt.Println("  DEBUG                      Enable debug logging")
}
