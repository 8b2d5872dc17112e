// Package fusion merges candidate results from the retrieval paths into one
// ordered list with a single comparable score.
package fusion

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rssebambulidde/QueryAI-sub001/internal/index"
)

// Candidate is one retrieval result entering fusion. Score is the normalized
// relevance already fused from whichever retriever(s) produced it.
type Candidate struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Content    string
	Score      float64
}

// Result is a single reranked result.
type Result struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Content    string

	// OriginalScore is the pre-fusion relevance score.
	OriginalScore float64

	// FusedScore is the combined reranking score.
	FusedScore float64

	// RankChange is originalIndex - newIndex (positive = moved up).
	RankChange int
}

// Weights configures the four reranking signals. They are independent
// multipliers, not a partition of unity; they are not required to sum to 1.
type Weights struct {
	Semantic float64
	Keyword  float64
	Length   float64
	Position float64
}

// DefaultWeights returns the default signal weights.
func DefaultWeights() Weights {
	return Weights{
		Semantic: 0.6,
		Keyword:  0.3,
		Length:   0.2,
		Position: 0.2,
	}
}

// identity keys a candidate by documentId + chunkIndex so rank changes can
// be matched across input and output even when content is re-ordered or
// duplicated.
func identity(documentID string, chunkIndex int) string {
	return documentID + "#" + strconv.Itoa(chunkIndex)
}

// lengthScore favors shorter content: 1 / (1 + log10(max(1, length/100))).
func lengthScore(contentLength int) float64 {
	ratio := math.Max(1, float64(contentLength)/100)
	return 1 / (1 + math.Log10(ratio))
}

// keywordScore is the fraction of query terms present in the content.
func keywordScore(queryTerms []string, content string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, term := range queryTerms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

// ScoreReranker combines four signals with configurable weights: the
// candidate's relevance score (semantic proxy), query-term overlap (keyword
// proxy), a length score, and a position score.
type ScoreReranker struct {
	weights Weights
}

// NewScoreReranker creates a score-based reranker. Zero-value weights fall
// back to the defaults.
func NewScoreReranker(weights Weights) *ScoreReranker {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &ScoreReranker{weights: weights}
}

// Rerank scores and reorders candidates. Ties keep original order; rank
// changes are computed per identity after sorting.
func (r *ScoreReranker) Rerank(queryText string, candidates []Candidate) []Result {
	if len(candidates) == 0 {
		return []Result{}
	}

	queryTerms := index.Tokenize(queryText)
	total := len(candidates)

	type ranked struct {
		candidate     Candidate
		originalIndex int
		fused         float64
	}

	items := make([]ranked, total)
	for i, c := range candidates {
		positionScore := 1 - float64(i)/float64(total)
		fused := r.weights.Semantic*c.Score +
			r.weights.Keyword*keywordScore(queryTerms, c.Content) +
			r.weights.Length*lengthScore(len(c.Content)) +
			r.weights.Position*positionScore
		items[i] = ranked{candidate: c, originalIndex: i, fused: fused}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].fused > items[j].fused
	})

	results := make([]Result, total)
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
