package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyType_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Type
	}{
		// Conceptual patterns win over factual ones
		{"what does X mean is conceptual", "what does photosynthesis mean", TypeConceptual},
		{"explain", "explain quantum tunneling", TypeConceptual},
		{"understand", "help me understand inflation", TypeConceptual},
		{"meaning", "the meaning of entropy", TypeConceptual},
		{"concept", "the concept of supply and demand", TypeConceptual},

		{"what is", "what is the boiling point of water", TypeFactual},
		{"who did", "who did the painting", TypeFactual},
		{"when was", "when was the treaty signed", TypeFactual},

		{"how to", "how to bake sourdough bread", TypeProcedural},
		{"steps", "steps for filing taxes", TypeProcedural},
		{"process", "the process of cell division", TypeProcedural},

		{"tell me about", "tell me something interesting", TypeUnknown},
		{"tell me about match", "tell me about the roman empire", TypeExploratory},
		{"overview", "overview of machine learning", TypeExploratory},

		{"no pattern", "blue whale migration patterns", TypeUnknown},
		{"empty", "", TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyType(tt.query))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"drops stop words and short tokens", "what is the speed of light", []string{"speed", "light"}},
		{"strips punctuation", "photosynthesis: how does it work?", []string{"photosynthesis", "work"}},
		{"lowercases", "Treaty Of VERSAILLES", []string{"treaty", "versailles"}},
		{"empty query", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.query))
		})
	}
}

func TestAnalyze_IntentRules(t *testing.T) {
	a := NewAnalyzer()

	// Short factual query with few keywords → simple
	simple := a.Analyze("what is gravity")
	assert.Equal(t, IntentSimple, simple.Intent)

	// Long exploratory query → complex
	long := "tell me about the complete history of the industrial revolution including " +
		"its causes its major inventions and its long term social consequences across europe"
	complexQ := a.Analyze(long)
	require.Equal(t, TypeExploratory, complexQ.QueryType)
	assert.Equal(t, IntentComplex, complexQ.Intent)

	// Everything else → moderate
	moderate := a.Analyze("how to assemble a bookshelf")
	assert.Equal(t, IntentModerate, moderate.Intent)
}

func TestAnalyze_ScoreBounds(t *testing.T) {
	a := NewAnalyzer()

	queries := []string{
		"",
		"what is gravity",
		"explain the meaning of life the universe and everything in detail",
		strings.Repeat("astronomy cosmology telescopes galaxies quasars pulsars ", 10),
	}

	for _, q := range queries {
		c := a.Analyze(q)
		assert.GreaterOrEqual(t, c.Score, 0.0, "query %q", q)
		assert.LessOrEqual(t, c.Score, 1.0, "query %q", q)
	}
}

func TestAnalyze_ScoreOrdering(t *testing.T) {
	a := NewAnalyzer()

	simple := a.Analyze("what is gravity")
	rich := a.Analyze("explain in depth the historical development of quantum field theory " +
		"covering renormalization gauge symmetry and spontaneous symmetry breaking")

	assert.Greater(t, rich.Score, simple.Score)
}

func TestAnalyze_Cached(t *testing.T) {
	a := NewAnalyzer()

	first := a.Analyze("what is gravity")
	second := a.Analyze("What Is Gravity  ")

	// Same normalized key returns the cached analysis
	assert.Equal(t, first, second)
}

func TestAnalyze_WordAndCharCounts(t *testing.T) {
	a := NewAnalyzer()

	c := a.Analyze("what is the speed of light")
	assert.Equal(t, 26, c.Length)
	assert.Equal(t, 6, c.WordCount)
	assert.Equal(t, []string{"speed", "light"}, c.Keywords)
}
