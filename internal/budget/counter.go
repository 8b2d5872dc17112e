package budget

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// Counter measures and cuts text in model tokens.
type Counter interface {
	// Count returns the token count of text.
	Count(text string) int

	// Truncate returns text cut to at most maxTokens tokens.
	Truncate(text string, maxTokens int) string
}

// charsPerToken is the heuristic used when no tokenizer is available for
// the model. Roughly four characters per token for English prose.
const charsPerToken = 4

// NewCounter returns a Counter for the model. Falls back to the cl100k_base
// encoding for unknown models, and to a character heuristic if no encoding
// can be loaded.
func NewCounter(modelName string) Counter {
	enc, err := tiktoken.EncodingForModel(modelName)
	if err == nil {
		return &tiktokenCounter{enc: enc}
	}
	enc, err = tiktoken.GetEncoding("cl100k_base")
	if err == nil {
		return &tiktokenCounter{enc: enc}
	}
	slog.Warn("tokenizer_unavailable, using character heuristic",
		slog.String("model", modelName),
		slog.Any("error", err))
	return heuristicCounter{}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *tiktokenCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return c.enc.Decode(tokens[:maxTokens])
}

type heuristicCounter struct{}

func (heuristicCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

func (heuristicCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * charsPerToken
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
