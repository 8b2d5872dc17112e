package index

import (
	"regexp"
	"strings"
)

// wordRegex matches runs of word characters. Everything in between
// (punctuation, whitespace) acts as a separator.
var wordRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// Tokenize lowercases text, treats non-word characters as separators, and
// returns the remaining terms. Returns an empty slice for text with no
// word characters.
func Tokenize(text string) []string {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)
	if words == nil {
		return []string{}
	}
	return words
}
