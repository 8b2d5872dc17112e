// Package query classifies a query's type and complexity from text features
// alone. Analysis is stateless and recomputed per call; a small LRU cache
// avoids re-analyzing repeated queries.
package query

import (
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Type represents the classification category for a query.
type Type string

const (
	// TypeFactual indicates a direct fact-seeking question.
	TypeFactual Type = "factual"

	// TypeConceptual indicates a query about meaning or understanding.
	TypeConceptual Type = "conceptual"

	// TypeProcedural indicates a how-to or process question.
	TypeProcedural Type = "procedural"

	// TypeExploratory indicates an open-ended overview request.
	TypeExploratory Type = "exploratory"

	// TypeUnknown is the fallback when no pattern matches.
	TypeUnknown Type = "unknown"
)

// Intent represents the coarse complexity of what a query asks for.
type Intent string

const (
	IntentSimple   Intent = "simple"
	IntentModerate Intent = "moderate"
	IntentComplex  Intent = "complex"
)

// Complexity is the full analysis of a query's type and complexity.
type Complexity struct {
	// Length is the query length in characters.
	Length int

	// WordCount is the number of whitespace-separated words.
	WordCount int

	// Keywords are the significant terms after stop-word filtering.
	Keywords []string

	// Intent is the derived intent complexity.
	Intent Intent

	// QueryType is the pattern-based classification.
	QueryType Type

	// Score is the combined complexity score in [0, 1].
	Score float64
}

// DefaultCacheSize is the LRU cache size for query analyses.
const DefaultCacheSize = 1024

// Analyzer classifies queries. Safe for concurrent use.
type Analyzer struct {
	cache *lru.Cache[string, Complexity]
}

// NewAnalyzer creates a query analyzer with the default cache size.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithCacheSize(DefaultCacheSize)
}

// NewAnalyzerWithCacheSize creates a query analyzer with a custom cache size.
func NewAnalyzerWithCacheSize(size int) *Analyzer {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, Complexity](size)
	return &Analyzer{cache: cache}
}

// Analyze derives the query's type, intent, keywords, and complexity score.
func (a *Analyzer) Analyze(queryText string) Complexity {
	cacheKey := strings.ToLower(strings.TrimSpace(queryText))
	if c, ok := a.cache.Get(cacheKey); ok {
		return c
	}

	c := analyze(queryText)
	a.cache.Add(cacheKey, c)
	return c
}

// analyze performs the uncached analysis.
func analyze(queryText string) Complexity {
	trimmed := strings.TrimSpace(queryText)
	length := len(trimmed)
	words := strings.Fields(trimmed)
	keywords := ExtractKeywords(trimmed)
	queryType := ClassifyType(trimmed)
	intent := intentFor(length, len(keywords), queryType)

	return Complexity{
		Length:    length,
		WordCount: len(words),
		Keywords:  keywords,
		Intent:    intent,
		QueryType: queryType,
		Score:     complexityScore(length, len(keywords), intent, queryType),
	}
}

// intentFor derives intent complexity from query features.
func intentFor(length, keywordCount int, queryType Type) Intent {
	if length < 50 && keywordCount <= 2 && queryType == TypeFactual {
		return IntentSimple
	}
	if (length > 150 || keywordCount > 5) &&
		(queryType == TypeExploratory || queryType == TypeConceptual) {
		return IntentComplex
	}
	return IntentModerate
}

// Weighted components of the complexity score.
const (
	lengthWeight  = 0.2
	keywordWeight = 0.3
	intentWeight  = 0.3
	typeWeight    = 0.2
)

// complexityScore combines length, keyword density, intent, and type into a
// single score in [0, 1].
func complexityScore(length, keywordCount int, intent Intent, queryType Type) float64 {
	lengthScore := math.Min(float64(length)/200, 1)
	keywordScore := math.Min(float64(keywordCount)/10, 1)

	var intentScore float64
	switch intent {
	case IntentSimple:
		intentScore = 0.3
	case IntentModerate:
		intentScore = 0.6
	default:
		intentScore = 0.9
	}

	var typeScore float64
	switch queryType {
	case TypeFactual, TypeUnknown:
		typeScore = 0.5
	case TypeProcedural:
		typeScore = 0.7
	default: // conceptual, exploratory
		typeScore = 0.9
	}

	return lengthScore*lengthWeight +
		keywordScore*keywordWeight +
		intentScore*intentWeight +
		typeScore*typeWeight
}
