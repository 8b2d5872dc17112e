// Package ai defines the language-model interfaces consumed by the retrieval
// core: text completion for compression and query embedding for vector
// search. Implementations live in subpackages.
package ai

import (
	"context"
	"time"

	"github.com/rssebambulidde/QueryAI-sub001/internal/errors"
)

// Completer generates text from a prompt. Implementations must be safe for
// concurrent use and must honor the context deadline.
type Completer interface {
	// Complete returns the model's text for the prompt, bounded by
	// maxTokens. Temperature controls sampling randomness.
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Embedder produces the query embedding fed to the vector search service.
type Embedder interface {
	// EmbedQuery returns the embedding vector for a query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config holds connection settings for an OpenAI-compatible service.
type Config struct {
	// Host is the base URL. Empty uses the client's default endpoint.
	Host string `yaml:"host"`

	// Model is the model name to request.
	Model string `yaml:"model"`

	// APIKey authenticates requests. Empty is allowed for local services.
	APIKey string `yaml:"api_key"`

	// Timeout bounds each call. Zero means no per-call timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New(errors.ErrCodeConfigInvalid, "ai config is nil", nil)
	}
	if c.Model == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "ai model name is required", nil)
	}
	return nil
}
