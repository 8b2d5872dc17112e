package compress

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/rssebambulidde/QueryAI-sub001/internal/ai/mock"
	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
)

// testCounter is a fixed four-characters-per-token counter so tests do not
// depend on tokenizer data files.
type testCounter struct{}

func (testCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

func (testCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * 4
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

func testConfig(strategy Strategy) Config {
	cfg := DefaultConfig()
	cfg.Strategy = strategy
	cfg.SoftThreshold = 100
	cfg.TargetTokens = 50
	return cfg
}

func oversizeContext() *retrieval.AssembledContext {
	return &retrieval.AssembledContext{
		DocumentChunks: []retrieval.ContextItem{
			{ChunkID: "c1", Content: strings.Repeat("alpha text. ", 40), Score: 0.9},
		},
		WebSnippets: []retrieval.ContextItem{
			{Content: strings.Repeat("web snippet. ", 40), Score: 0.7, Source: retrieval.SourceWeb},
		},
	}
}

func totalTokens(ctx *retrieval.AssembledContext) int {
	c := testCounter{}
	total := 0
	for _, item := range ctx.DocumentChunks {
		total += c.Count(item.Content)
	}
	for _, item := range ctx.WebSnippets {
		total += c.Count(item.Content)
	}
	return total
}

func TestCompressBelowThresholdUntouched(t *testing.T) {
	c, err := New(testConfig(StrategyTruncation), testCounter{}, nil)
	require.NoError(t, err)
	defer c.Release()

	ctx := &retrieval.AssembledContext{
		DocumentChunks: []retrieval.ContextItem{{Content: "small"}},
	}

	out := c.Compress(context.Background(), ctx)

	assert.Same(t, ctx, out)
}

func TestCompressTruncationMeetsTarget(t *testing.T) {
	c, err := New(testConfig(StrategyTruncation), testCounter{}, nil)
	require.NoError(t, err)
	defer c.Release()

	ctx := oversizeContext()
	before := totalTokens(ctx)

	out := c.Compress(context.Background(), ctx)

	after := totalTokens(out)
	assert.Less(t, after, before)
	// Equal split: each of the two items gets 25 tokens.
	assert.LessOrEqual(t, after, 50)
}

func TestCompressHybridKeepsGoodSummary(t *testing.T) {
	completer := aimock.NewCompleter()
	completer.CompleteFunc = func(_ context.Context, _ string, _ int, _ float64) (string, error) {
		return "a short summary.", nil
	}
	c, err := New(testConfig(StrategyHybrid), testCounter{}, completer)
	require.NoError(t, err)
	defer c.Release()

	out := c.Compress(context.Background(), oversizeContext())

	assert.Equal(t, "a short summary.", out.DocumentChunks[0].Content)
	assert.Equal(t, "a short summary.", out.WebSnippets[0].Content)
	assert.Equal(t, 2, completer.CallCount())
}

func TestCompressHybridRejectsWeakSummary(t *testing.T) {
	// The summary barely shrinks the text, so hybrid must truncate instead.
	completer := aimock.NewCompleter()
	completer.CompleteFunc = func(_ context.Context, prompt string, _ int, _ float64) (string, error) {
		return strings.Repeat("alpha text. ", 39), nil
	}
	c, err := New(testConfig(StrategyHybrid), testCounter{}, completer)
	require.NoError(t, err)
	defer c.Release()

	out := c.Compress(context.Background(), oversizeContext())

	// Truncation fallback respects the 25-token per-item share.
	assert.LessOrEqual(t, totalTokens(out), 50)
}

func TestCompressModelFailureFallsBackToTruncation(t *testing.T) {
	completer := aimock.NewCompleter()
	completer.CompleteFunc = func(_ context.Context, _ string, _ int, _ float64) (string, error) {
		return "", errors.New("model unavailable")
	}
	c, err := New(testConfig(StrategySummarization), testCounter{}, completer)
	require.NoError(t, err)
	defer c.Release()

	ctx := oversizeContext()
	out := c.Compress(context.Background(), ctx)

	assert.Less(t, totalTokens(out), totalTokens(ctx))
}

func TestCompressNilCompleterDegrades(t *testing.T) {
	c, err := New(testConfig(StrategySummarization), testCounter{}, nil)
	require.NoError(t, err)
	defer c.Release()

	out := c.Compress(context.Background(), oversizeContext())

	assert.LessOrEqual(t, totalTokens(out), 50)
}

func TestCompressDeadlinePassesThrough(t *testing.T) {
	cfg := testConfig(StrategyTruncation)
	cfg.Deadline = time.Nanosecond
	c, err := New(cfg, testCounter{}, nil)
	require.NoError(t, err)
	defer c.Release()

	ctx := oversizeContext()
	out := c.Compress(context.Background(), ctx)

	// Past the deadline, items survive uncompressed, not dropped.
	require.Equal(t, ctx.TotalItems(), out.TotalItems())
	assert.Equal(t, ctx.DocumentChunks[0].Content, out.DocumentChunks[0].Content)
	assert.Equal(t, ctx.WebSnippets[0].Content, out.WebSnippets[0].Content)
}

func TestQuickCompressNeverGrows(t *testing.T) {
	c, err := New(testConfig(StrategyTruncation), testCounter{}, nil)
	require.NoError(t, err)
	defer c.Release()

	contexts := []*retrieval.AssembledContext{
		oversizeContext(),
		{DocumentChunks: []retrieval.ContextItem{{Content: "tiny."}}},
		{},
	}
	for _, ctx := range contexts {
		before := totalTokens(ctx)

		out := c.QuickCompress(ctx, 40)

		assert.LessOrEqual(t, totalTokens(out), before)
	}
}

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("First point. Second point! Third question? trailing words")

	require.Len(t, sentences, 4)
	assert.Equal(t, "First point. ", sentences[0])
	assert.Equal(t, "Second point! ", sentences[1])
	assert.Equal(t, "Third question? ", sentences[2])
	assert.Equal(t, "trailing words", sentences[3])
}

func TestTruncateModes(t *testing.T) {
	counter := testCounter{}
	content := strings.Repeat("abcd", 100)

	tests := []struct {
		name string
		mode TruncationMode
	}{
		{"start", TruncateStart},
		{"end", TruncateEnd},
		{"middle", TruncateMiddle},
		{"smart", TruncateSmart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := truncate(counter, content, 20, tt.mode)
			assert.LessOrEqual(t, counter.Count(out), 20)
			assert.NotEmpty(t, out)
		})
	}
}

func TestTruncateSmartKeepsWholeSentences(t *testing.T) {
	counter := testCounter{}
	content := "Alpha is first. Beta is second. Gamma is third. Delta is fourth."

	out := truncate(counter, content, 8, TruncateSmart)

	// 8 tokens = 32 characters: exactly the first two sentences.
	assert.Equal(t, "Alpha is first. Beta is second.", out)
}
