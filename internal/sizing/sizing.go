// Package sizing decides how many document chunks and web snippets to
// request for a query, from its complexity and the available token budget.
package sizing

import (
	"log/slog"
	"math"

	"github.com/rssebambulidde/QueryAI-sub001/internal/query"
)

// Preference overrides the document/web balance entirely.
type Preference string

const (
	PreferNone      Preference = ""
	PreferDocuments Preference = "documents"
	PreferWeb       Preference = "web"
)

// Intent multipliers applied to the base chunk count.
const (
	simpleMultiplier  = 0.6
	complexMultiplier = 1.5
)

// Length-bucket multipliers keyed by query character length.
const (
	shortMultiplier = 0.7
	longMultiplier  = 1.3
)

// ratioNudge shifts the document/web split toward the source a query type
// benefits from most.
const ratioNudge = 0.15

// Config holds sizing parameters. Zero values fall back to defaults.
type Config struct {
	// DefaultChunks is the starting chunk count before adjustments.
	DefaultChunks int `yaml:"default_chunks"`

	// MinChunks and MaxChunks clamp the final count.
	MinChunks int `yaml:"min_chunks"`
	MaxChunks int `yaml:"max_chunks"`

	// ShortQueryLength and LongQueryLength bound the length buckets in
	// characters. Queries below the first are short, above the second long.
	ShortQueryLength int `yaml:"short_query_length"`
	LongQueryLength  int `yaml:"long_query_length"`

	// DocumentRatio is the share of the combined budget given to document
	// chunks before per-type nudges.
	DocumentRatio float64 `yaml:"document_ratio"`

	// Per-item token cost estimates used when a budget is available.
	DocumentTokenEstimate int `yaml:"document_token_estimate"`
	WebTokenEstimate      int `yaml:"web_token_estimate"`

	// Upper bounds per source when scaling up under ample budget.
	MaxDocumentItems int `yaml:"max_document_items"`
	MaxWebItems      int `yaml:"max_web_items"`
}

// DefaultConfig returns the stock sizing parameters.
func DefaultConfig() Config {
	return Config{
		DefaultChunks:         5,
		MinChunks:             2,
		MaxChunks:             15,
		ShortQueryLength:      40,
		LongQueryLength:       120,
		DocumentRatio:         0.5,
		DocumentTokenEstimate: 300,
		WebTokenEstimate:      400,
		MaxDocumentItems:      10,
		MaxWebItems:           8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultChunks <= 0 {
		c.DefaultChunks = d.DefaultChunks
	}
	if c.MinChunks <= 0 {
		c.MinChunks = d.MinChunks
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = d.MaxChunks
	}
	if c.ShortQueryLength <= 0 {
		c.ShortQueryLength = d.ShortQueryLength
	}
	if c.LongQueryLength <= c.ShortQueryLength {
		c.LongQueryLength = d.LongQueryLength
	}
	if c.DocumentRatio <= 0 || c.DocumentRatio > 1 {
		c.DocumentRatio = d.DocumentRatio
	}
	if c.DocumentTokenEstimate <= 0 {
		c.DocumentTokenEstimate = d.DocumentTokenEstimate
	}
	if c.WebTokenEstimate <= 0 {
		c.WebTokenEstimate = d.WebTokenEstimate
	}
	if c.MaxDocumentItems <= 0 {
		c.MaxDocumentItems = d.MaxDocumentItems
	}
	if c.MaxWebItems <= 0 {
		c.MaxWebItems = d.MaxWebItems
	}
	return c
}

// Plan is the sizing decision for one query.
type Plan struct {
	TotalChunks   int
	DocumentCount int
	WebCount      int
}

// Sizer computes context sizes. Stateless; safe for concurrent use.
type Sizer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Sizer, filling missing config fields with defaults.
func New(cfg Config) *Sizer {
	return &Sizer{
		cfg:    cfg.withDefaults(),
		logger: slog.Default().With("component", "sizing"),
	}
}

// ChunkCount derives the total chunk count from query complexity. The
// result is always within [MinChunks, MaxChunks].
func (s *Sizer) ChunkCount(c query.Complexity) int {
	count := s.cfg.DefaultChunks

	switch c.Intent {
	case query.IntentSimple:
		count = roundToInt(float64(count) * simpleMultiplier)
	case query.IntentComplex:
		count = roundToInt(float64(count) * complexMultiplier)
	}

	switch {
	case c.Length < s.cfg.ShortQueryLength:
		count = roundToInt(float64(count) * shortMultiplier)
	case c.Length > s.cfg.LongQueryLength:
		count = roundToInt(float64(count) * longMultiplier)
	}

	switch c.QueryType {
	case query.TypeConceptual:
		count += 2
	case query.TypeExploratory:
		count += 3
	case query.TypeProcedural:
		count++
	}

	count += roundToInt((c.Score - 0.5) * 4)

	return clampInt(count, s.cfg.MinChunks, s.cfg.MaxChunks)
}

// Plan splits the chunk budget between document chunks and web snippets.
// remainingTokens <= 0 means no token budget is known and no token-based
// scaling is applied.
func (s *Sizer) Plan(c query.Complexity, pref Preference, remainingTokens int) Plan {
	total := s.ChunkCount(c)
	ratio := s.documentRatio(c.QueryType, pref)

	docCount := roundToInt(float64(total) * ratio)
	docCount = clampInt(docCount, 0, total)
	webCount := total - docCount

	if remainingTokens > 0 {
		maxDocs, maxWeb := s.cfg.MaxDocumentItems, s.cfg.MaxWebItems
		switch pref {
		case PreferDocuments:
			maxWeb = 0
		case PreferWeb:
			maxDocs = 0
		}
		docCount, webCount = s.scaleToBudget(docCount, webCount, maxDocs, maxWeb, remainingTokens)
	}

	plan := Plan{
		TotalChunks:   docCount + webCount,
		DocumentCount: docCount,
		WebCount:      webCount,
	}
	s.logger.Debug("sizing_plan",
		slog.String("query_type", string(c.QueryType)),
		slog.String("intent", string(c.Intent)),
		slog.Int("documents", plan.DocumentCount),
		slog.Int("web", plan.WebCount))
	return plan
}

func (s *Sizer) documentRatio(queryType query.Type, pref Preference) float64 {
	switch pref {
	case PreferDocuments:
		return 1.0
	case PreferWeb:
		return 0.0
	}

	ratio := s.cfg.DocumentRatio
	switch queryType {
	case query.TypeFactual:
		ratio += ratioNudge
	case query.TypeExploratory, query.TypeConceptual:
		ratio -= ratioNudge
	}
	return clampFloat(ratio, 0, 1)
}

// scaleToBudget shrinks the counts when their estimated token cost exceeds
// the remaining budget, and grows them (bounded by per-source maxima) when
// more than half the budget would go unused.
func (s *Sizer) scaleToBudget(docCount, webCount, maxDocs, maxWeb, remaining int) (int, int) {
	cost := func(docs, web int) int {
		return docs*s.cfg.DocumentTokenEstimate + web*s.cfg.WebTokenEstimate
	}

	for cost(docCount, webCount) > remaining && docCount+webCount > 0 {
		// Drop from the costlier side first.
		if webCount > 0 && (docCount == 0 || webCount*s.cfg.WebTokenEstimate >= docCount*s.cfg.DocumentTokenEstimate) {
			webCount--
		} else {
			docCount--
		}
	}

	for cost(docCount, webCount)*2 <= remaining {
		grew := false
		if docCount < maxDocs && cost(docCount+1, webCount)*2 <= remaining {
			docCount++
			grew = true
		}
		if webCount < maxWeb && cost(docCount, webCount+1)*2 <= remaining {
			webCount++
			grew = true
		}
		if !grew {
			break
		}
	}

	return docCount, webCount
}

func roundToInt(v float64) int {
	return int(math.Round(v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
