// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./catalogo.yaml or ~/.catalogo/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Generation: Ollama host, generation model, request timeout
//   - Embedding: embedder model and vector dimension
//   - Retrieval: top-K, conversation history bound
//   - Storage: PostgreSQL connection for the catalog index
//   - Serve: HTTP listen address and rate limiting
//
// Error handling uses sentinel errors so callers can check with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidOllamaHost indicates the Ollama host URL is invalid.
	ErrInvalidOllamaHost = errors.New("invalid ollama host")

	// ErrInvalidModelName indicates the generation model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model name is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbeddingDim indicates the embedding dimension is out of range.
	ErrInvalidEmbeddingDim = errors.New("invalid embedding dimension")

	// ErrInvalidTopK indicates the retrieval top-K is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidMaxHistory indicates the history bound is out of range.
	ErrInvalidMaxHistory = errors.New("invalid max_history")

	// ErrInvalidTimeout indicates the generation timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid generate timeout")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")
)

// Defaults that mirror the catalog the index was built against.
const (
	// DefaultOllamaHost is the local Ollama runtime address.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultModelName is the generation model used when none is configured.
	DefaultModelName = "llama3.1:8b"

	// DefaultEmbedderModel is the embedding model. It MUST match the model
	// used at ingestion time; catalog.VerifySpace enforces this at startup.
	DefaultEmbedderModel = "nomic-embed-text"

	// DefaultEmbeddingDim is nomic-embed-text's output dimensionality and
	// must match the vector column width in db/migrations.
	DefaultEmbeddingDim = 768

	// DefaultTopK is the number of catalog entries retrieved per query.
	DefaultTopK = 5

	// DefaultMaxHistory bounds the number of turns kept per conversation.
	DefaultMaxHistory = 10

	// DefaultGenerateTimeoutSeconds bounds a single generation call.
	DefaultGenerateTimeoutSeconds = 120
)

// Config stores application configuration.
type Config struct {
	// Generation service configuration
	OllamaHost             string `mapstructure:"ollama_host" json:"ollama_host"`
	ModelName              string `mapstructure:"model_name" json:"model_name"`
	GenerateTimeoutSeconds int    `mapstructure:"generate_timeout_seconds" json:"generate_timeout_seconds"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbeddingDim  int    `mapstructure:"embedding_dim" json:"embedding_dim"`

	// Retrieval and conversation configuration
	TopK       int `mapstructure:"top_k" json:"top_k"`
	MaxHistory int `mapstructure:"max_history" json:"max_history"`

	// Serve configuration
	Addr      string `mapstructure:"addr" json:"addr"`
	RateBurst int    `mapstructure:"rate_burst" json:"rate_burst"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"`
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("catalogo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".catalogo"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"config_name", "catalogo.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ollama_host", DefaultOllamaHost)
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("generate_timeout_seconds", DefaultGenerateTimeoutSeconds)

	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedding_dim", DefaultEmbeddingDim)

	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("max_history", DefaultMaxHistory)

	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("rate_burst", 60)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "catalogo")
	v.SetDefault("postgres_password", "catalogo_dev_password")
	v.SetDefault("postgres_db_name", "catalogo")
	v.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds runtime override environment variables explicitly.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("ollama_host", "OLLAMA_URL")
	mustBind("model_name", "CATALOGO_MODEL")
	mustBind("embedder_model", "CATALOGO_EMBEDDER_MODEL")
	mustBind("addr", "CATALOGO_ADDR")
	mustBind("rate_burst", "CATALOGO_RATE_BURST")
	mustBind("postgres_password", "CATALOGO_POSTGRES_PASSWORD")
}
