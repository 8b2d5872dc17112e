package fusion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rssebambulidde/QueryAI-sub001/internal/index"
)

// scriptedEncoder is a fake cross-encoder with canned scores.
type scriptedEncoder struct {
	scores    []float64
	err       error
	available bool
}

func (s *scriptedEncoder) Score(_ context.Context, _ string, documents []string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.scores[:len(documents)], nil
}

func (s *scriptedEncoder) Available(_ context.Context) bool {
	return s.available
}

func sampleCandidates() []Candidate {
	return []Candidate{
		{ChunkID: "c1", DocumentID: "d1", ChunkIndex: 0, Content: "database indexing strategies for search", Score: 0.9},
		{ChunkID: "c2", DocumentID: "d1", ChunkIndex: 1, Content: "unrelated cooking recipes", Score: 0.5},
		{ChunkID: "c3", DocumentID: "d2", ChunkIndex: 0, Content: "search engine database internals and indexing", Score: 0.7},
	}
}

func TestScoreRerankerOrdering(t *testing.T) {
	// Given candidates where keyword overlap favors a lower-scored item
	r := NewScoreReranker(DefaultWeights())

	// When reranking against a query matching the third candidate best
	results := r.Rerank("database indexing search", sampleCandidates())

	// Then all candidates survive with fused scores in descending order
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].FusedScore, results[i].FusedScore)
	}
	// The recipe chunk has no keyword overlap and should rank last
	assert.Equal(t, "c2", results[2].ChunkID)
}

func TestScoreRerankerRankChange(t *testing.T) {
	r := NewScoreReranker(DefaultWeights())

	results := r.Rerank("database indexing search", sampleCandidates())

	// Rank changes must be consistent with original positions
	total := 0
	for _, res := range results {
		total += res.RankChange
	}
	assert.Equal(t, 0, total, "rank changes sum to zero over a permutation")

	for newIndex, res := range results {
		originalIndex := res.RankChange + newIndex
		require.GreaterOrEqual(t, originalIndex, 0)
		require.Less(t, originalIndex, len(results))
	}
}

func TestScoreRerankerEmptyInput(t *testing.T) {
	r := NewScoreReranker(DefaultWeights())

	results := r.Rerank("anything", nil)

	assert.Empty(t, results)
}

func TestScoreRerankerStableTies(t *testing.T) {
	// Given identical candidates that fuse to identical scores
	candidates := []Candidate{
		{ChunkID: "a", DocumentID: "d1", ChunkIndex: 0, Content: "same text", Score: 0.5},
		{ChunkID: "b", DocumentID: "d1", ChunkIndex: 1, Content: "same text", Score: 0.5},
		{ChunkID: "c", DocumentID: "d1", ChunkIndex: 2, Content: "same text", Score: 0.5},
	}
	r := NewScoreReranker(DefaultWeights())

	// Length and keyword signals are equal, position favors earlier items
	results := r.Rerank("same", candidates)

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Equal(t, "b", results[1].ChunkID)
	assert.Equal(t, "c", results[2].ChunkID)
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		want    float64
	}{
		{"full overlap", "database index", "the database index layout", 1.0},
		{"half overlap", "database cooking", "the database index layout", 0.5},
		{"no overlap", "cooking recipes", "the database index layout", 0.0},
		{"empty query", "", "the database index layout", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := index.Tokenize(tt.query)
			assert.InDelta(t, tt.want, keywordScore(terms, tt.content), 1e-9)
		})
	}
}

func TestLengthScoreFavorsModerateLength(t *testing.T) {
	short := lengthScore(100)
	long := lengthScore(10000)

	assert.InDelta(t, 1.0, short, 1e-9)
	assert.Less(t, long, short)
	assert.Greater(t, long, 0.0)
}

func TestCrossEncoderStrategy(t *testing.T) {
	// Given an available encoder that inverts the score-based order
	encoder := &scriptedEncoder{scores: []float64{0.1, 0.9, 0.5}, available: true}
	f := New(WithStrategy(StrategyCrossEncoder), WithCrossEncoder(encoder))

	results := f.Rerank(context.Background(), "database", sampleCandidates())

	require.Len(t, results, 3)
	assert.Equal(t, "c2", results[0].ChunkID)
	assert.Equal(t, "c3", results[1].ChunkID)
	assert.Equal(t, "c1", results[2].ChunkID)
	assert.InDelta(t, 0.9, results[0].FusedScore, 1e-9)
}

func TestCrossEncoderDegradesWhenUnavailable(t *testing.T) {
	encoder := &scriptedEncoder{available: false}
	f := New(WithStrategy(StrategyCrossEncoder), WithCrossEncoder(encoder))
	baseline := NewScoreReranker(DefaultWeights()).Rerank("database indexing search", sampleCandidates())

	results := f.Rerank(context.Background(), "database indexing search", sampleCandidates())

	require.Len(t, results, len(baseline))
	for i := range results {
		assert.Equal(t, baseline[i].ChunkID, results[i].ChunkID)
		assert.InDelta(t, baseline[i].FusedScore, results[i].FusedScore, 1e-9)
	}
}

func TestCrossEncoderDegradesOnError(t *testing.T) {
	encoder := &scriptedEncoder{err: errors.New("model load failed"), available: true}
	f := New(WithStrategy(StrategyCrossEncoder), WithCrossEncoder(encoder))

	results := f.Rerank(context.Background(), "database", sampleCandidates())

	require.Len(t, results, 3)
}

func TestHybridBlendsScores(t *testing.T) {
	// Given an encoder that strongly prefers the second candidate
	encoder := &scriptedEncoder{scores: []float64{0.0, 1.0, 0.0}, available: true}
	f := New(WithStrategy(StrategyHybrid), WithCrossEncoder(encoder))

	results := f.Rerank(context.Background(), "database indexing search", sampleCandidates())

	require.Len(t, results, 3)
	// 70% weight on a 1.0 cross score outweighs the score-based signals
	assert.Equal(t, "c2", results[0].ChunkID)
	assert.GreaterOrEqual(t, results[0].FusedScore, 0.7)
}

func TestHybridFallsBackWhenEncoderFails(t *testing.T) {
	encoder := &scriptedEncoder{err: errors.New("timeout"), available: true}
	f := New(WithStrategy(StrategyHybrid), WithCrossEncoder(encoder))
	baseline := NewScoreReranker(DefaultWeights()).Rerank("database", sampleCandidates())

	results := f.Rerank(context.Background(), "database", sampleCandidates())

	require.Len(t, results, len(baseline))
	for i := range results {
		assert.Equal(t, baseline[i].ChunkID, results[i].ChunkID)
	}
}

func TestDefaultStrategyIsScoreBased(t *testing.T) {
	f := New()

	results := f.Rerank(context.Background(), "database indexing search", sampleCandidates())

	require.Len(t, results, 3)
	assert.Equal(t, "c2", results[2].ChunkID)
}
