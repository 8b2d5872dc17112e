// Package retrieval defines the shared domain model for the retrieval core:
// indexed chunks, search filters, scored results, and the assembled context
// handed to the answer-generation layer.
package retrieval

// IndexMetadata carries the fields the lexical index and filters consume.
type IndexMetadata struct {
	// Language is the document language code (e.g., "en").
	Language string
	// Section is the logical section within the source document.
	Section string
}

// DisplayMetadata carries the fields consumed when rendering a result.
type DisplayMetadata struct {
	// Title is the human-readable document title.
	Title string
	// SourceURL is the origin of the document or snippet, if any.
	SourceURL string
	// Page is the 1-based page number within the source document, 0 if unknown.
	Page int
}

// Chunk is a bounded span of a source document, the atomic unit of retrieval.
// A chunk is owned by the index once added and is immutable afterwards except
// via explicit removal.
type Chunk struct {
	// ID uniquely identifies the chunk.
	ID string

	// DocumentID identifies the source document.
	DocumentID string

	// Content is the chunk text.
	Content string

	// OwnerID identifies the tenant that owns the chunk.
	OwnerID string

	// TopicID optionally groups chunks by topic. Empty means no topic.
	TopicID string

	// ChunkIndex is the 0-based position of the chunk within its document.
	ChunkIndex int

	// Index carries metadata consumed by indexing and filtering.
	Index IndexMetadata

	// Display carries metadata consumed when rendering results.
	Display DisplayMetadata
}

// SearchFilters restricts candidate chunks before scoring.
// All predicates are exact-match; zero values disable a predicate.
type SearchFilters struct {
	// OwnerID restricts results to a single tenant.
	OwnerID string

	// TopicID restricts results to a single topic.
	TopicID string

	// DocumentIDs restricts results to the listed documents.
	DocumentIDs []string

	// TopK is the maximum number of results to return (default: 10).
	TopK int

	// MinScore drops results scoring below this value.
	MinScore float64
}

// ScoredChunk is a chunk paired with its relevance score from one retriever.
type ScoredChunk struct {
	Chunk *Chunk

	// Score is the retriever-assigned relevance score.
	Score float64
}

// ContextSource identifies which retrieval path produced a context item.
type ContextSource string

const (
	// SourceDocument marks items retrieved from indexed document chunks.
	SourceDocument ContextSource = "document"

	// SourceWeb marks items retrieved from web search snippets.
	SourceWeb ContextSource = "web"
)

// ContextItem is a single piece of evidence in an assembled context.
type ContextItem struct {
	// ChunkID identifies the originating chunk, empty for web snippets.
	ChunkID string

	// DocumentID identifies the source document, empty for web snippets.
	DocumentID string

	// ChunkIndex is the chunk's position within its document.
	ChunkIndex int

	// Content is the item text.
	Content string

	// Score is the fused relevance score used for trimming order.
	Score float64

	// Source identifies the retrieval path.
	Source ContextSource

	// Display carries rendering metadata (title, URL, page).
	Display DisplayMetadata
}

// AssembledContext is the artifact the pipeline produces: the bounded set of
// evidence handed to the (external) prompt builder.
type AssembledContext struct {
	// DocumentChunks are the selected document items, best first.
	DocumentChunks []ContextItem

	// WebSnippets are the selected web items, best first.
	WebSnippets []ContextItem
}

// TotalItems returns the number of items across both lists.
func (a *AssembledContext) TotalItems() int {
	return len(a.DocumentChunks) + len(a.WebSnippets)
}
