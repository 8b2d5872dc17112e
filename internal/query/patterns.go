package query

import (
	"regexp"
	"strings"
)

// Compiled classification patterns. Checked in strict precedence order:
// conceptual before factual before procedural before exploratory. The
// ordering is load-bearing: "what does photosynthesis mean" must classify
// as conceptual even though it starts like a factual question.
var (
	conceptualPattern  = regexp.MustCompile(`(?i)\b(explain|understand|mean(s|ing)?|concept)\b`)
	factualPattern     = regexp.MustCompile(`(?i)\b(what|who|when|where)\s+(is|are|was|were|did|does|do)\b`)
	proceduralPattern  = regexp.MustCompile(`(?i)\b(how\s+to|steps?|process)\b`)
	exploratoryPattern = regexp.MustCompile(`(?i)\b(tell\s+me\s+about|overview)\b`)
)

// ClassifyType determines the query type using pattern matching with fixed
// precedence. Unmatched queries classify as unknown.
func ClassifyType(queryText string) Type {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return TypeUnknown
	}

	switch {
	case conceptualPattern.MatchString(queryText):
		return TypeConceptual
	case factualPattern.MatchString(queryText):
		return TypeFactual
	case proceduralPattern.MatchString(queryText):
		return TypeProcedural
	case exploratoryPattern.MatchString(queryText):
		return TypeExploratory
	default:
		return TypeUnknown
	}
}

// punctRegex strips everything that is not a word character or whitespace.
var punctRegex = regexp.MustCompile(`[^\w\s]`)

// stopWords are never treated as keywords.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "are": {}, "was": {}, "were": {}, "for": {},
	"with": {}, "this": {}, "that": {}, "from": {}, "what": {}, "who": {},
	"when": {}, "where": {}, "why": {}, "how": {}, "does": {}, "did": {},
	"can": {}, "could": {}, "would": {}, "should": {}, "about": {},
	"tell": {}, "you": {}, "your": {}, "has": {}, "have": {}, "had": {},
	"not": {}, "but": {}, "all": {}, "its": {}, "into": {}, "them": {},
	"then": {}, "than": {}, "will": {}, "there": {}, "their": {},
}

// ExtractKeywords lowercases the query, strips punctuation, and returns the
// tokens longer than two characters that are not stop words.
func ExtractKeywords(queryText string) []string {
	cleaned := punctRegex.ReplaceAllString(strings.ToLower(queryText), "")

	keywords := make([]string, 0, 8)
	for _, token := range strings.Fields(cleaned) {
		if len(token) <= 2 {
			continue
		}
		if _, isStop := stopWords[token]; isStop {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}
