// Package openai implements the ai interfaces against OpenAI-compatible
// chat and embedding APIs.
package openai

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rssebambulidde/QueryAI-sub001/internal/ai"
	qerrors "github.com/rssebambulidde/QueryAI-sub001/internal/errors"
)

// Completer implements ai.Completer using an OpenAI-compatible chat API.
type Completer struct {
	client  llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

var _ ai.Completer = (*Completer)(nil)

// NewCompleter creates a completion client from the config.
func NewCompleter(cfg *ai.Config) (*Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []openai.Option{openai.WithModel(cfg.Model)}
	if cfg.Host != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Host))
	}
	// Use "none" as token for local services that don't require auth.
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}
	opts = append(opts, openai.WithToken(token))

	client, err := openai.New(opts...)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.ErrCodeModelCall, err)
	}

	return &Completer{
		client:  client,
		timeout: cfg.Timeout,
		logger:  slog.Default().With("component", "openai-completer"),
	}, nil
}

// Complete sends the prompt as a single user message and returns the first
// choice's text.
func (c *Completer) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	response, err := c.client.GenerateContent(ctx, content,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", qerrors.Wrap(qerrors.ErrCodeModelTimeout, err)
		}
		return "", qerrors.Wrap(qerrors.ErrCodeModelCall, err)
	}
	if len(response.Choices) == 0 {
		return "", qerrors.New(qerrors.ErrCodeModelCall, "model returned no choices", nil)
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
