package fusion

import (
	"context"
	"log/slog"
	"sort"
)

// CrossEncoder scores query-document pairs jointly. Cross-encoders are more
// accurate than the score-based signals but slower and may be unavailable.
type CrossEncoder interface {
	// Score returns one relevance score per document, aligned with the input.
	Score(ctx context.Context, queryText string, documents []string) ([]float64, error)

	// Available reports whether the encoder can serve requests.
	Available(ctx context.Context) bool
}

// Strategy selects how candidates are reranked.
type Strategy string

const (
	// StrategyScore uses the four-signal score-based reranker.
	StrategyScore Strategy = "score"

	// StrategyCrossEncoder uses a cross-encoder, degrading to score-based
	// when the encoder is unavailable or fails.
	StrategyCrossEncoder Strategy = "cross_encoder"

	// StrategyHybrid blends cross-encoder and score-based results 70/30 by
	// identity-matched score.
	StrategyHybrid Strategy = "hybrid"
)

// Blend ratio for the hybrid strategy.
const (
	hybridCrossWeight = 0.7
	hybridScoreWeight = 0.3
)

// Fuser reranks candidates according to its configured strategy. Stateless
// apart from configuration; safe for concurrent use.
type Fuser struct {
	strategy Strategy
	score    *ScoreReranker
	cross    CrossEncoder
	logger   *slog.Logger
}

// Option configures a Fuser.
type Option func(*Fuser)

// WithStrategy selects the reranking strategy (default: score-based).
func WithStrategy(s Strategy) Option {
	return func(f *Fuser) {
		f.strategy = s
	}
}

// WithCrossEncoder provides the optional cross-encoder backend.
func WithCrossEncoder(ce CrossEncoder) Option {
	return func(f *Fuser) {
		f.cross = ce
	}
}

// WithWeights overrides the score-based signal weights.
func WithWeights(w Weights) Option {
	return func(f *Fuser) {
		f.score = NewScoreReranker(w)
	}
}

// New creates a Fuser with the given options.
func New(opts ...Option) *Fuser {
	f := &Fuser{
		strategy: StrategyScore,
		score:    NewScoreReranker(DefaultWeights()),
		logger:   slog.Default().With("component", "fusion"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Rerank merges and reranks candidates into one ordered list. Strategy
// failures degrade transparently to the score-based path; Rerank never
// fails.
func (f *Fuser) Rerank(ctx context.Context, queryText string, candidates []Candidate) []Result {
	switch f.strategy {
	case StrategyCrossEncoder:
		if results, ok := f.crossEncoderRerank(ctx, queryText, candidates); ok {
			return results
		}
		return f.score.Rerank(queryText, candidates)
	case StrategyHybrid:
		return f.hybridRerank(ctx, queryText, candidates)
	default:
		return f.score.Rerank(queryText, candidates)
	}
}

// crossEncoderRerank reranks purely by cross-encoder score. Returns ok=false
// when the encoder is missing, unavailable, or fails.
func (f *Fuser) crossEncoderRerank(ctx context.Context, queryText string, candidates []Candidate) ([]Result, bool) {
	scores, ok := f.crossEncoderScores(ctx, queryText, candidates)
	if !ok {
		return nil, false
	}

	type ranked struct {
		candidate     Candidate
		originalIndex int
		fused         float64
	}
	items := make([]ranked, len(candidates))
	for i, c := range candidates {
		items[i] = ranked{candidate: c, originalIndex: i, fused: scores[i]}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].fused > items[j].fused
	})

	results := make([]Result, len(items))
	for newIndex, it := range items {
		results[newIndex] = Result{
			ChunkID:       it.candidate.ChunkID,
			DocumentID:    it.candidate.DocumentID,
			ChunkIndex:    it.candidate.ChunkIndex,
			Content:       it.candidate.Content,
			OriginalScore: it.candidate.Score,
			FusedScore:    it.fused,
			RankChange:    it.originalIndex - newIndex,
		}
	}
	return results, true
}

// hybridRerank blends cross-encoder and score-based scores 70/30 by
// identity. If the cross-encoder path fails entirely, the score-based
// results are the sole output.
func (f *Fuser) hybridRerank(ctx context.Context, queryText string, candidates []Candidate) []Result {
	scoreResults := f.score.Rerank(queryText, candidates)

	crossScores, ok := f.crossEncoderScores(ctx, queryText, candidates)
	if !ok {
		return scoreResults
	}

	crossByIdentity := make(map[string]float64, len(candidates))
	for i, c := range candidates {
		crossByIdentity[identity(c.DocumentID, c.ChunkIndex)] = crossScores[i]
	}

	type ranked struct {
		candidate     Candidate
		originalIndex int
		fused         float64
	}
	scoreByIdentity := make(map[string]float64, len(scoreResults))
	for _, r := range scoreResults {
		scoreByIdentity[identity(r.DocumentID, r.ChunkIndex)] = r.FusedScore
	}

	items := make([]ranked, len(candidates))
	for i, c := range candidates {
		id := identity(c.DocumentID, c.ChunkIndex)
		items[i] = ranked{
			candidate:     c,
			originalIndex: i,
			fused:         hybridCrossWeight*crossByIdentity[id] + hybridScoreWeight*scoreByIdentity[id],
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].fused > items[j].fused
	})

	results := make([]Result, len(items))
	for newIndex, it := range items {
		results[newIndex] = Result{
			ChunkID:       it.candidate.ChunkID,
			DocumentID:    it.candidate.DocumentID,
			ChunkIndex:    it.candidate.ChunkIndex,
			Content:       it.candidate.Content,
			OriginalScore: it.candidate.Score,
			FusedScore:    it.fused,
			RankChange:    it.originalIndex - newIndex,
		}
	}
	return results
}

// crossEncoderScores runs the cross-encoder over all candidate contents.
func (f *Fuser) crossEncoderScores(ctx context.Context, queryText string, candidates []Candidate) ([]float64, bool) {
	if f.cross == nil || len(candidates) == 0 {
		return nil, false
	}
	if !f.cross.Available(ctx) {
		f.logger.Debug("cross_encoder_unavailable, using score-based reranking")
		return nil, false
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Content
	}

	scores, err := f.cross.Score(ctx, queryText, documents)
	if err != nil || len(scores) != len(candidates) {
		f.logger.Warn("cross_encoder_failed, using score-based reranking",
			slog.Any("error", err))
		return nil, false
	}
	return scores, true
}
