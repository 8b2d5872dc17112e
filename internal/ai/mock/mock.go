// Package mock provides test doubles for the ai interfaces. The mocks allow
// custom behavior injection via function fields and count calls for
// assertions.
package mock

import (
	"context"
	"hash/fnv"
	"sync"
)

// Completer is a test double for ai.Completer.
type Completer struct {
	// CompleteFunc is called by Complete if set. If nil, Complete returns
	// a deterministic shortened echo of the prompt.
	CompleteFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

	mu        sync.Mutex
	callCount int
}

// NewCompleter creates a mock completer with default behavior.
func NewCompleter() *Completer {
	return &Completer{}
}

// Complete returns the scripted response, or a deterministic truncation of
// the prompt when no script is set.
func (m *Completer) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, maxTokens, temperature)
	}

	limit := maxTokens * 4
	if limit <= 0 || limit >= len(prompt) {
		return prompt, nil
	}
	return prompt[:limit], nil
}

// CallCount returns how many times Complete was invoked.
func (m *Completer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Embedder is a test double for ai.Embedder.
type Embedder struct {
	// EmbedQueryFunc is called by EmbedQuery if set. If nil, a
	// deterministic vector derived from the text hash is returned.
	EmbedQueryFunc func(ctx context.Context, text string) ([]float32, error)

	mu        sync.Mutex
	callCount int
}

// NewEmbedder creates a mock embedder with default deterministic behavior.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// EmbedQuery returns the scripted embedding, or a hash-derived vector.
func (m *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.EmbedQueryFunc != nil {
		return m.EmbedQueryFunc(ctx, text)
	}
	return deterministicVector(text, 384), nil
}

// CallCount returns how many times EmbedQuery was invoked.
func (m *Embedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func deterministicVector(text string, dims int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dims)
	for i := range vector {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%1000)/500 - 1
	}
	return vector
}
