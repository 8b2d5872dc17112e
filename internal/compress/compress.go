// Package compress shrinks assembled contexts that exceed the soft
// compression threshold. Trimming remains the hard budget guarantee;
// compression is a quality-preserving pass applied before it.
package compress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/rssebambulidde/QueryAI-sub001/internal/ai"
	"github.com/rssebambulidde/QueryAI-sub001/internal/budget"
	qerrors "github.com/rssebambulidde/QueryAI-sub001/internal/errors"
	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
)

// Strategy selects how items are compressed.
type Strategy string

const (
	// StrategyTruncation cuts text without a language model.
	StrategyTruncation Strategy = "truncation"

	// StrategyExtraction asks the model for key bullet points.
	StrategyExtraction Strategy = "extraction"

	// StrategySummarization asks the model for a coherent summary.
	StrategySummarization Strategy = "summarization"

	// StrategyHybrid tries summarization and keeps it only when it reduces
	// tokens by at least 10%, falling back to truncation otherwise.
	StrategyHybrid Strategy = "hybrid"
)

// hybridMinReduction is the fraction a summary must save for hybrid mode
// to keep it.
const hybridMinReduction = 0.10

// Config holds compression parameters. Zero values fall back to defaults.
type Config struct {
	// Strategy applied to each item.
	Strategy Strategy `yaml:"strategy"`

	// TruncationMode used by the truncation strategy and fallbacks.
	TruncationMode TruncationMode `yaml:"truncation_mode"`

	// SoftThreshold in tokens. Contexts at or below it pass untouched.
	SoftThreshold int `yaml:"soft_threshold"`

	// TargetTokens is the desired total size after compression.
	TargetTokens int `yaml:"target_tokens"`

	// Deadline bounds the whole compression pass. Items not started before
	// it pass through uncompressed.
	Deadline time.Duration `yaml:"deadline"`

	// Concurrency caps in-flight per-item compressions.
	Concurrency int `yaml:"concurrency"`

	// ExtractionPoints is the bullet count requested from the model.
	ExtractionPoints int `yaml:"extraction_points"`

	// Temperature for model calls.
	Temperature float64 `yaml:"temperature"`
}

// DefaultConfig returns the stock compression parameters.
func DefaultConfig() Config {
	return Config{
		Strategy:         StrategyHybrid,
		TruncationMode:   TruncateSmart,
		SoftThreshold:    6000,
		TargetTokens:     4000,
		Deadline:         10 * time.Second,
		Concurrency:      4,
		ExtractionPoints: 5,
		Temperature:      0.3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	if c.TruncationMode == "" {
		c.TruncationMode = d.TruncationMode
	}
	if c.SoftThreshold <= 0 {
		c.SoftThreshold = d.SoftThreshold
	}
	if c.TargetTokens <= 0 {
		c.TargetTokens = d.TargetTokens
	}
	if c.Deadline <= 0 {
		c.Deadline = d.Deadline
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.ExtractionPoints <= 0 {
		c.ExtractionPoints = d.ExtractionPoints
	}
	if c.Temperature <= 0 {
		c.Temperature = d.Temperature
	}
	return c
}

// Compressor shrinks oversized contexts. Model failures and deadline
// overruns degrade to truncation or pass-through; Compress never fails.
type Compressor struct {
	cfg       Config
	counter   budget.Counter
	completer ai.Completer
	pool      *ants.Pool
	logger    *slog.Logger
}

// New creates a Compressor. The completer may be nil, in which case the
// model-backed strategies degrade to truncation.
func New(cfg Config, counter budget.Counter, completer ai.Completer) (*Compressor, error) {
	cfg = cfg.withDefaults()
	pool, err := ants.NewPool(cfg.Concurrency)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.ErrCodeInternal, err)
	}
	return &Compressor{
		cfg:       cfg,
		counter:   counter,
		completer: completer,
		pool:      pool,
		logger:    slog.Default().With("component", "compress"),
	}, nil
}

// Release frees the worker pool.
func (c *Compressor) Release() {
	c.pool.Release()
}

// Compress returns the context unchanged when it is at or below the soft
// threshold, and otherwise compresses each item toward an equal share of
// the target. Items not started before the deadline pass through
// uncompressed.
func (c *Compressor) Compress(ctx context.Context, assembled *retrieval.AssembledContext) *retrieval.AssembledContext {
	total := c.contextTokens(assembled)
	if total <= c.cfg.SoftThreshold || assembled.TotalItems() == 0 {
		return assembled
	}

	perItem := c.cfg.TargetTokens / assembled.TotalItems()
	deadline := time.Now().Add(c.cfg.Deadline)
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	out := &retrieval.AssembledContext{
		DocumentChunks: c.compressItems(callCtx, assembled.DocumentChunks, perItem, deadline),
		WebSnippets:    c.compressItems(callCtx, assembled.WebSnippets, perItem, deadline),
	}

	c.logger.Debug("compression_done",
		slog.Int("before_tokens", total),
		slog.Int("after_tokens", c.contextTokens(out)))
	return out
}

// QuickCompress applies deadline-free smart truncation toward the target,
// splitting it equally across items. The result never has more tokens than
// the input.
func (c *Compressor) QuickCompress(assembled *retrieval.AssembledContext, targetTokens int) *retrieval.AssembledContext {
	if assembled.TotalItems() == 0 || targetTokens <= 0 {
		return assembled
	}
	perItem := targetTokens / assembled.TotalItems()

	quick := func(items []retrieval.ContextItem) []retrieval.ContextItem {
		out := make([]retrieval.ContextItem, len(items))
		for i, item := range items {
			out[i] = item
			out[i].Content = truncate(c.counter, item.Content, perItem, TruncateSmart)
		}
		return out
	}
	return &retrieval.AssembledContext{
		DocumentChunks: quick(assembled.DocumentChunks),
		WebSnippets:    quick(assembled.WebSnippets),
	}
}

func (c *Compressor) compressItems(ctx context.Context, items []retrieval.ContextItem, target int, deadline time.Time) []retrieval.ContextItem {
	out := make([]retrieval.ContextItem, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		out[i] = item
		if c.counter.Count(item.Content) <= target {
			continue
		}
		// Past the deadline, remaining items pass through uncompressed.
		if !time.Now().Before(deadline) {
			continue
		}

		wg.Add(1)
		i, content := i, item.Content
		err := c.pool.Submit(func() {
			defer wg.Done()
			out[i].Content = c.compressItem(ctx, content, target)
		})
		if err != nil {
			wg.Done()
		}
	}
	wg.Wait()
	return out
}

// compressItem shrinks one item's content toward the target. Model failures
// fall back to truncation.
func (c *Compressor) compressItem(ctx context.Context, content string, target int) string {
	switch c.cfg.Strategy {
	case StrategyExtraction:
		if text, err := c.extract(ctx, content, target); err == nil {
			return text
		}
		return truncate(c.counter, content, target, c.cfg.TruncationMode)
	case StrategySummarization:
		if text, err := c.summarize(ctx, content, target); err == nil {
			return text
		}
		return truncate(c.counter, content, target, c.cfg.TruncationMode)
	case StrategyHybrid:
		original := c.counter.Count(content)
		if text, err := c.summarize(ctx, content, target); err == nil {
			if float64(c.counter.Count(text)) <= float64(original)*(1-hybridMinReduction) {
				return text
			}
		}
		return truncate(c.counter, content, target, c.cfg.TruncationMode)
	default:
		return truncate(c.counter, content, target, c.cfg.TruncationMode)
	}
}

func (c *Compressor) summarize(ctx context.Context, content string, target int) (string, error) {
	text, err := c.complete(ctx, fmt.Sprintf(
		"Summarize the following text in at most %d tokens. Preserve concrete facts, names, and numbers. Respond with the summary only.\n\n%s",
		target, content), target)
	if err != nil {
		c.logger.Warn("summarization_failed, falling back to truncation", slog.Any("error", err))
	}
	return text, err
}

func (c *Compressor) extract(ctx context.Context, content string, target int) (string, error) {
	text, err := c.complete(ctx, fmt.Sprintf(
		"Extract the %d most important points from the following text as short bullet points. Respond with the bullet points only.\n\n%s",
		c.cfg.ExtractionPoints, content), target)
	if err != nil {
		c.logger.Warn("extraction_failed, falling back to truncation", slog.Any("error", err))
	}
	return text, err
}

func (c *Compressor) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.completer == nil {
		return "", qerrors.New(qerrors.ErrCodeModelCall, "no completer configured", nil)
	}
	text, err := c.completer.Complete(ctx, prompt, maxTokens, c.cfg.Temperature)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", qerrors.New(qerrors.ErrCodeModelCall, "model returned empty text", nil)
	}
	return text, nil
}

func (c *Compressor) contextTokens(assembled *retrieval.AssembledContext) int {
	total := 0
	for _, item := range assembled.DocumentChunks {
		total += c.counter.Count(item.Content)
	}
	for _, item := range assembled.WebSnippets {
		total += c.counter.Count(item.Content)
	}
	return total
}
