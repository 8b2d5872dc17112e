// Package index provides the in-memory lexical index: an inverted index over
// document chunks scored with Okapi BM25.
//
// The index is a per-process, single-tenant-process data structure. Reads are
// safe concurrently; mutations are serialized against reads and each other
// with a read-write lock.
package index

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
)

// BM25 parameters (Okapi defaults).
const (
	k1 = 1.2
	b  = 0.75
)

// idfFloor keeps ubiquitous terms contributing weakly instead of vanishing
// or going negative. Precision/recall trade-off.
const idfFloor = 0.1

// DefaultTopK is the result limit applied when filters do not set one.
const DefaultTopK = 10

// entry holds the per-chunk state owned by the index.
type entry struct {
	chunk      *retrieval.Chunk
	termCounts map[string]int
	length     int
	seq        uint64 // insertion order, used as the deterministic tie-break
}

// Stats describes the current state of the index.
type Stats struct {
	// ChunkCount is the number of indexed chunks.
	ChunkCount int

	// DocumentCount is the number of distinct documents with indexed chunks.
	DocumentCount int

	// TermCount is the number of distinct terms with postings.
	TermCount int

	// AverageLength is the running average chunk length in terms.
	AverageLength float64
}

// Index is an in-memory inverted index with BM25 scoring.
type Index struct {
	mu sync.RWMutex

	chunks      map[string]*entry
	postings    map[string]map[string]struct{}
	byDocument  map[string]map[string]struct{}
	totalLength int
	avgLength   float64
	nextSeq     uint64

	logger *slog.Logger
}

// New creates an empty lexical index.
func New() *Index {
	return &Index{
		chunks:     make(map[string]*entry),
		postings:   make(map[string]map[string]struct{}),
		byDocument: make(map[string]map[string]struct{}),
		logger:     slog.Default().With("component", "lexical-index"),
	}
}

// Add indexes a single chunk. Chunks that tokenize to zero terms are
// rejected with a log entry; this is a no-op, not an error. Re-adding an
// existing chunk ID replaces the previous entry.
func (idx *Index) Add(chunk *retrieval.Chunk) {
	if chunk == nil {
		return
	}

	terms := Tokenize(chunk.Content)
	if len(terms) == 0 {
		idx.logger.Warn("chunk_rejected_no_terms",
			slog.String("chunk_id", chunk.ID),
			slog.String("document_id", chunk.DocumentID))
		return
	}

	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.chunks[chunk.ID]; exists {
		idx.removeLocked(chunk.ID)
	}

	e := &entry{
		chunk:      chunk,
		termCounts: counts,
		length:     len(terms),
		seq:        idx.nextSeq,
	}
	idx.nextSeq++
	idx.chunks[chunk.ID] = e

	for term := range counts {
		set, ok := idx.postings[term]
		if !ok {
			set = make(map[string]struct{})
			idx.postings[term] = set
		}
		set[chunk.ID] = struct{}{}
	}

	docSet, ok := idx.byDocument[chunk.DocumentID]
	if !ok {
		docSet = make(map[string]struct{})
		idx.byDocument[chunk.DocumentID] = docSet
	}
	docSet[chunk.ID] = struct{}{}

	idx.totalLength += e.length
	idx.recomputeAverageLocked()
}

// AddBatch indexes multiple chunks. Empty or nil slices are no-ops.
func (idx *Index) AddBatch(chunks []*retrieval.Chunk) {
	for _, c := range chunks {
		idx.Add(c)
	}
}

// Remove deletes a chunk by ID. Unknown IDs are silently ignored.
func (idx *Index) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)
	idx.recomputeAverageLocked()
}

// RemoveByDocument deletes every chunk belonging to a document.
// Returns the number of chunks removed.
func (idx *Index) RemoveByDocument(documentID string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	set, ok := idx.byDocument[documentID]
	if !ok {
		return 0
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	for _, id := range ids {
		idx.removeLocked(id)
	}
	idx.recomputeAverageLocked()
	return len(ids)
}

// removeLocked deletes a chunk's entry, postings, and document membership.
// Callers must hold the write lock and recompute the average afterwards.
func (idx *Index) removeLocked(id string) {
	e, ok := idx.chunks[id]
	if !ok {
		return
	}

	for term := range e.termCounts {
		set := idx.postings[term]
		delete(set, id)
		// A term's posting set is removed entirely when it becomes empty.
		if len(set) == 0 {
			delete(idx.postings, term)
		}
	}

	docSet := idx.byDocument[e.chunk.DocumentID]
	delete(docSet, id)
	if len(docSet) == 0 {
		delete(idx.byDocument, e.chunk.DocumentID)
	}

	idx.totalLength -= e.length
	delete(idx.chunks, id)
}

// recomputeAverageLocked updates the running average chunk length.
// With chunks present but zero total length the average floors to 1 so the
// BM25 length normalization never divides by zero. Removing the last chunk
// resets the average to 0.
func (idx *Index) recomputeAverageLocked() {
	count := len(idx.chunks)
	if count == 0 {
		idx.avgLength = 0
		return
	}
	if idx.totalLength == 0 {
		idx.avgLength = 1
		return
	}
	idx.avgLength = float64(idx.totalLength) / float64(count)
}

// idfLocked computes the inverse document frequency for a term.
// Returns 0 for never-seen terms (the caller skips them), and clamps to
// idfFloor when the term is ubiquitous or the raw value would be <= 0.
func (idx *Index) idfLocked(term string) float64 {
	df := len(idx.postings[term])
	if df == 0 {
		return 0
	}

	n := len(idx.chunks)
	raw := math.Log((float64(n) - float64(df) + 0.5) / (float64(df) + 0.5))
	if df >= n || raw <= 0 {
		return idfFloor
	}
	return raw
}

// variantWeight discounts a match on a plural/singular variant of a query
// term relative to an exact match, so exact term frequency keeps its ranking
// advantage.
const variantWeight = 0.6

// pluralVariants returns simple English singular/plural folds of a term.
func pluralVariants(term string) []string {
	variants := []string{term + "s", term + "es"}
	if len(term) > 3 && strings.HasSuffix(term, "s") {
		variants = append(variants, strings.TrimSuffix(term, "s"))
	}
	return variants
}

// termMatch resolves a query term against a chunk's term counts. Exact
// matches return the full frequency; variant matches return a discounted
// frequency and the matched index term (for IDF lookup).
func termMatch(e *entry, term string) (tf float64, matched string) {
	if c := e.termCounts[term]; c > 0 {
		return float64(c), term
	}
	for _, v := range pluralVariants(term) {
		if c := e.termCounts[v]; c > 0 {
			return variantWeight * float64(c), v
		}
	}
	return 0, ""
}

// scoreLocked computes the BM25 score of one chunk against the query terms.
func (idx *Index) scoreLocked(e *entry, queryTerms []string) float64 {
	var score float64
	for _, term := range queryTerms {
		tf, matched := termMatch(e, term)
		if tf == 0 {
			continue
		}
		idf := idx.idfLocked(matched)
		if idf == 0 {
			continue
		}
		norm := 1 - b + b*(float64(e.length)/idx.avgLength)
		score += idf * tf * (k1 + 1) / (tf + k1*norm)
	}
	return score
}

// matchesFilters reports whether a chunk passes the exact-match predicates.
func matchesFilters(c *retrieval.Chunk, f retrieval.SearchFilters) bool {
	if f.OwnerID != "" && c.OwnerID != f.OwnerID {
		return false
	}
	if f.TopicID != "" && c.TopicID != f.TopicID {
		return false
	}
	if len(f.DocumentIDs) > 0 {
		found := false
		for _, id := range f.DocumentIDs {
			if c.DocumentID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Search scores all candidate chunks against the query and returns the
// ranked results. Candidates are filtered before scoring; chunks scoring
// <= 0 are skipped; ties preserve insertion order for determinism.
// Empty queries and empty indexes return empty result sets.
func (idx *Index) Search(query string, filters retrieval.SearchFilters) []retrieval.ScoredChunk {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return []retrieval.ScoredChunk{}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.chunks) == 0 {
		return []retrieval.ScoredChunk{}
	}

	type scored struct {
		e     *entry
		score float64
	}

	candidates := make([]scored, 0, len(idx.chunks))
	for _, e := range idx.chunks {
		if !matchesFilters(e.chunk, filters) {
			continue
		}
		s := idx.scoreLocked(e, queryTerms)
		if s <= 0 {
			continue
		}
		candidates = append(candidates, scored{e: e, score: s})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].e.seq < candidates[j].e.seq
	})

	topK := filters.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	results := make([]retrieval.ScoredChunk, 0, topK)
	for _, c := range candidates {
		if filters.MinScore > 0 && c.score < filters.MinScore {
			continue
		}
		results = append(results, retrieval.ScoredChunk{Chunk: c.e.chunk, Score: c.score})
		if len(results) >= topK {
			break
		}
	}

	return results
}

// Stats returns a snapshot of index statistics.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return Stats{
		ChunkCount:    len(idx.chunks),
		DocumentCount: len(idx.byDocument),
		TermCount:     len(idx.postings),
		AverageLength: idx.avgLength,
	}
}

// Clear removes all content from the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.chunks = make(map[string]*entry)
	idx.postings = make(map[string]map[string]struct{})
	idx.byDocument = make(map[string]map[string]struct{})
	idx.totalLength = 0
	idx.avgLength = 0
}
