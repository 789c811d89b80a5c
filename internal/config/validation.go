package config

import (
	"fmt"
	"net/url"
)

// Validation bounds. The upper bounds are generous; they exist to catch
// typos (e.g. top_k 500) rather than to enforce policy.
const (
	MaxTopK       = 50
	MaxMaxHistory = 1000
	MaxTimeoutSec = 3600
)

// Validate checks the configuration and fails fast with a sentinel error.
func (c *Config) Validate() error {
	if err := validateHostURL(c.OllamaHost); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidOllamaHost, c.OllamaHost, err)
	}
	if c.ModelName == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidEmbedderModel)
	}
	if c.EmbeddingDim < 1 || c.EmbeddingDim > 8192 {
		return fmt.Errorf("%w: %d (must be 1-8192)", ErrInvalidEmbeddingDim, c.EmbeddingDim)
	}
	if c.TopK < 1 || c.TopK > MaxTopK {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidTopK, c.TopK, MaxTopK)
	}
	if c.MaxHistory < 1 || c.MaxHistory > MaxMaxHistory {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidMaxHistory, c.MaxHistory, MaxMaxHistory)
	}
	if c.GenerateTimeoutSeconds < 1 || c.GenerateTimeoutSeconds > MaxTimeoutSec {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidTimeout, c.GenerateTimeoutSeconds, MaxTimeoutSec)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	return nil
}

// validateHostURL checks that s is an absolute http(s) URL.
func validateHostURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
