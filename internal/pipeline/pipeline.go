// Package pipeline wires the retrieval core together: it analyzes the
// query, retrieves candidates concurrently from the lexical index and the
// vector search service, fuses and thresholds them, sizes the context, and
// enforces the token budget. The produced artifact is the assembled context
// handed to the answer-generation layer.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rssebambulidde/QueryAI-sub001/internal/ai"
	"github.com/rssebambulidde/QueryAI-sub001/internal/budget"
	"github.com/rssebambulidde/QueryAI-sub001/internal/compress"
	qerrors "github.com/rssebambulidde/QueryAI-sub001/internal/errors"
	"github.com/rssebambulidde/QueryAI-sub001/internal/fusion"
	"github.com/rssebambulidde/QueryAI-sub001/internal/index"
	"github.com/rssebambulidde/QueryAI-sub001/internal/query"
	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
	"github.com/rssebambulidde/QueryAI-sub001/internal/sizing"
	"github.com/rssebambulidde/QueryAI-sub001/internal/telemetry"
	"github.com/rssebambulidde/QueryAI-sub001/internal/threshold"
	"github.com/rssebambulidde/QueryAI-sub001/internal/vector"
)

// candidatePoolFactor widens retrieval beyond the final document count so
// fusion and thresholding have candidates to discard.
const candidatePoolFactor = 3

// Options carries per-request knobs for context assembly.
type Options struct {
	// Preference overrides the document/web balance.
	Preference sizing.Preference

	// WebSnippets are externally retrieved web results to consider for the
	// web share of the context.
	WebSnippets []retrieval.ContextItem

	// SystemPrompt and UserPrompt are counted against their budget slices.
	SystemPrompt string
	UserPrompt   string
}

// Pipeline owns the retrieval components. Safe for concurrent use; shared
// mutable state is confined to the lexical index.
type Pipeline struct {
	index      *index.Index
	analyzer   *query.Analyzer
	optimizer  *threshold.Optimizer
	fuser      *fusion.Fuser
	sizer      *sizing.Sizer
	budgeter   *budget.Budgeter
	compressor *compress.Compressor
	embedder   ai.Embedder
	vector     vector.Searcher
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithVectorSearch enables the vector retrieval path.
func WithVectorSearch(embedder ai.Embedder, searcher vector.Searcher) Option {
	return func(p *Pipeline) {
		p.embedder = embedder
		p.vector = searcher
	}
}

// WithCompressor enables context compression before trimming.
func WithCompressor(c *compress.Compressor) Option {
	return func(p *Pipeline) {
		p.compressor = c
	}
}

// WithMetrics enables metric emission.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithOptimizer overrides the threshold optimizer.
func WithOptimizer(o *threshold.Optimizer) Option {
	return func(p *Pipeline) {
		p.optimizer = o
	}
}

// WithFuser overrides the result fuser.
func WithFuser(f *fusion.Fuser) Option {
	return func(p *Pipeline) {
		p.fuser = f
	}
}

// WithSizer overrides the context sizer.
func WithSizer(s *sizing.Sizer) Option {
	return func(p *Pipeline) {
		p.sizer = s
	}
}

// WithBudgeter overrides the token budgeter.
func WithBudgeter(b *budget.Budgeter) Option {
	return func(p *Pipeline) {
		p.budgeter = b
	}
}

// New creates a pipeline around the given lexical index. Components not
// overridden by options get defaults; the vector path and compression stay
// disabled unless provided.
func New(idx *index.Index, opts ...Option) *Pipeline {
	p := &Pipeline{
		index:     idx,
		analyzer:  query.NewAnalyzer(),
		optimizer: threshold.New(threshold.DefaultConfig()),
		fuser:     fusion.New(),
		sizer:     sizing.New(sizing.DefaultConfig()),
		budgeter:  budget.New(budget.DefaultConfig()),
		logger:    slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AssembleContext runs the full retrieval pipeline for one query. Empty
// queries and empty indexes produce an empty context, not an error; the
// vector path degrading produces a partial context. It fails only when no
// retrieval path is available at all.
func (p *Pipeline) AssembleContext(ctx context.Context, queryText string, filters retrieval.SearchFilters, modelName string, opts Options) (*retrieval.AssembledContext, error) {
	started := time.Now()
	log := p.logger.With(slog.String("request_id", uuid.NewString()))

	if queryText == "" {
		return &retrieval.AssembledContext{}, nil
	}
	if p.index == nil && p.vector == nil {
		p.countAssemble("error")
		return nil, qerrors.New(qerrors.ErrCodeAllPathsFailed, "no retrieval path configured", nil)
	}

	complexity := p.analyzer.Analyze(queryText)
	tokenBudget := p.budgeter.ForModel(modelName)
	plan := p.sizer.Plan(complexity, opts.Preference, tokenBudget.DocumentTokens+tokenBudget.WebTokens)
	log.Debug("assemble_planned",
		slog.String("query_type", string(complexity.QueryType)),
		slog.String("model", modelName),
		slog.Int("document_count", plan.DocumentCount),
		slog.Int("web_count", plan.WebCount))

	candidates, degraded, err := p.retrieve(ctx, queryText, filters, plan)
	if err != nil {
		p.countAssemble("error")
		return nil, err
	}

	cutoff := p.chooseThreshold(complexity.QueryType, candidates, plan.DocumentCount)
	kept := candidates[:0:0]
	for _, c := range candidates {
		if c.Score >= cutoff.Threshold {
			kept = append(kept, c)
		}
	}
	// An over-tight cutoff must not empty a non-empty candidate set.
	if len(kept) == 0 && len(candidates) > 0 {
		kept = candidates
	}

	fused := p.fuser.Rerank(ctx, queryText, kept)
	assembled := p.buildContext(fused, opts.WebSnippets, plan)

	if p.compressor != nil {
		before := contentBytes(assembled)
		assembled = p.compressor.Compress(ctx, assembled)
		p.countCompression(before, assembled)
	}
	assembled = p.budgeter.Trim(assembled, tokenBudget)

	// Budget verification is advisory here; strict mode rejects.
	check, err := p.budgeter.CheckBudget(tokenBudget, assembled, opts.SystemPrompt, opts.UserPrompt)
	if err != nil {
		p.countAssemble("error")
		return nil, err
	}
	p.observeAssembly(assembled, check, degraded, time.Since(started))
	log.Info("assemble_complete",
		slog.Int("items", assembled.TotalItems()),
		slog.Int("tokens", check.TotalUsed),
		slog.Bool("degraded", degraded),
		slog.Duration("elapsed", time.Since(started)))

	return assembled, nil
}

// retrieve runs the lexical and vector paths concurrently. Either path may
// come back empty or fail; only both being unavailable is fatal.
func (p *Pipeline) retrieve(ctx context.Context, queryText string, filters retrieval.SearchFilters, plan sizing.Plan) ([]fusion.Candidate, bool, error) {
	poolSize := plan.DocumentCount * candidatePoolFactor
	if poolSize < index.DefaultTopK {
		poolSize = index.DefaultTopK
	}

	var lexical, vectorHits []retrieval.ScoredChunk
	var lexicalErr, vectorErr error

	g, gctx := errgroup.WithContext(ctx)

	if p.index != nil {
		g.Go(func() error {
			lexStarted := time.Now()
			lexFilters := filters
			lexFilters.TopK = poolSize
			lexFilters.MinScore = 0
			lexical = p.index.Search(queryText, lexFilters)
			p.observeSearch("lexical", len(lexical), nil, time.Since(lexStarted))
			return nil
		})
	} else {
		lexicalErr = qerrors.New(qerrors.ErrCodeAllPathsFailed, "lexical index not configured", nil)
	}

	if p.vector != nil && p.embedder != nil {
		g.Go(func() error {
			vecStarted := time.Now()
			embedding, embedErr := p.embedder.EmbedQuery(gctx, queryText)
			if embedErr != nil {
				vectorErr = embedErr
				p.observeSearch("vector", 0, embedErr, time.Since(vecStarted))
				// Degrade this path, don't fail the group.
				return nil
			}

			vecFilters := filters
			vecFilters.TopK = poolSize
			hits, searchErr := p.vector.Search(gctx, embedding, vecFilters)
			if searchErr != nil {
				vectorErr = searchErr
				p.observeSearch("vector", 0, searchErr, time.Since(vecStarted))
				return nil
			}
			vectorHits = hits
			p.observeSearch("vector", len(hits), nil, time.Since(vecStarted))
			return nil
		})
	} else {
		vectorErr = qerrors.New(qerrors.ErrCodeVectorSearch, "vector path not configured", nil)
	}

	if waitErr := g.Wait(); waitErr != nil {
		return nil, false, waitErr
	}

	if lexicalErr != nil && vectorErr != nil && p.vector != nil {
		return nil, false, qerrors.New(qerrors.ErrCodeAllPathsFailed, "all retrieval paths failed", vectorErr)
	}

	degraded := vectorErr != nil && p.vector != nil
	if degraded {
		p.logger.Warn("vector_path_degraded", slog.Any("error", vectorErr))
	}
	return mergeCandidates(lexical, vectorHits), degraded, nil
}

// mergeCandidates normalizes lexical scores to [0,1], merges both paths,
// and deduplicates by document identity keeping the higher score.
func mergeCandidates(lexical, vectorHits []retrieval.ScoredChunk) []fusion.Candidate {
	maxLexical := 0.0
	for _, sc := range lexical {
		if sc.Score > maxLexical {
			maxLexical = sc.Score
		}
	}

	type slot struct {
		candidate fusion.Candidate
		order     int
	}
	seen := make(map[string]*slot)
	var order []string

	add := func(chunk *retrieval.Chunk, score float64) {
		key := chunk.DocumentID + "#" + chunk.ID
		if existing, ok := seen[key]; ok {
			if score > existing.candidate.Score {
				existing.candidate.Score = score
			}
			return
		}
		seen[key] = &slot{
			candidate: fusion.Candidate{
				ChunkID:    chunk.ID,
				DocumentID: chunk.DocumentID,
				ChunkIndex: chunk.ChunkIndex,
				Content:    chunk.Content,
				Score:      score,
			},
			order: len(order),
		}
		order = append(order, key)
	}

	for _, sc := range lexical {
		normalized := sc.Score
		if maxLexical > 0 {
			normalized = sc.Score / maxLexical
		}
		add(sc.Chunk, normalized)
	}
	for _, sc := range vectorHits {
		add(sc.Chunk, sc.Score)
	}

	merged := make([]fusion.Candidate, 0, len(order))
	for _, key := range order {
		merged = append(merged, seen[key].candidate)
	}
	return merged
}

// chooseThreshold seeds the cutoff from the candidate score distribution
// and applies one corrective pass against the desired document count.
func (p *Pipeline) chooseThreshold(qt query.Type, candidates []fusion.Candidate, wantDocs int) threshold.Result {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Score
	}

	result := p.optimizer.ForQuery(qt, scores)

	above := 0
	for _, s := range scores {
		if s >= result.Threshold {
			above++
		}
	}
	minDesired := wantDocs / 2
	if minDesired < 1 {
		minDesired = 1
	}
	result = p.optimizer.AdjustForCount(result, above, minDesired, wantDocs*candidatePoolFactor)

	if p.metrics != nil {
		p.metrics.ThresholdTotal.WithLabelValues(string(result.Strategy)).Inc()
	}
	return result
}

// buildContext takes the plan's share of fused documents and web snippets.
func (p *Pipeline) buildContext(fused []fusion.Result, webSnippets []retrieval.ContextItem, plan sizing.Plan) *retrieval.AssembledContext {
	docCount := plan.DocumentCount
	if docCount > len(fused) {
		docCount = len(fused)
	}
	documents := make([]retrieval.ContextItem, 0, docCount)
	for _, r := range fused[:docCount] {
		documents = append(documents, retrieval.ContextItem{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			ChunkIndex: r.ChunkIndex,
			Content:    r.Content,
			Score:      r.FusedScore,
			Source:     retrieval.SourceDocument,
		})
	}

	webCount := plan.WebCount
	if webCount > len(webSnippets) {
		webCount = len(webSnippets)
	}
	web := make([]retrieval.ContextItem, 0, webCount)
	for _, item := range webSnippets[:webCount] {
		item.Source = retrieval.SourceWeb
		web = append(web, item)
	}

	return &retrieval.AssembledContext{
		DocumentChunks: documents,
		WebSnippets:    web,
	}
}

// AddChunks indexes chunks for the ingestion layer.
func (p *Pipeline) AddChunks(chunks []*retrieval.Chunk) {
	p.index.AddBatch(chunks)
	p.updateIndexGauge()
}

// RemoveChunk removes one chunk by ID.
func (p *Pipeline) RemoveChunk(id string) {
	p.index.Remove(id)
	p.updateIndexGauge()
}

// RemoveDocument removes every chunk of a document and reports how many.
func (p *Pipeline) RemoveDocument(documentID string) int {
	removed := p.index.RemoveByDocument(documentID)
	p.updateIndexGauge()
	return removed
}

// Clear empties the lexical index.
func (p *Pipeline) Clear() {
	p.index.Clear()
	p.updateIndexGauge()
}

// Stats reports lexical index statistics.
func (p *Pipeline) Stats() index.Stats {
	return p.index.Stats()
}

func (p *Pipeline) updateIndexGauge() {
	if p.metrics == nil {
		return
	}
	p.metrics.IndexedChunks.Set(float64(p.index.Stats().ChunkCount))
}

func (p *Pipeline) observeSearch(path string, results int, err error, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case results == 0:
		status = "empty"
	}
	p.metrics.SearchesTotal.WithLabelValues(path, status).Inc()
	p.metrics.SearchLatency.WithLabelValues(path).Observe(elapsed.Seconds())
	p.metrics.SearchResults.WithLabelValues(path).Observe(float64(results))
}

func (p *Pipeline) countAssemble(status string) {
	if p.metrics == nil {
		return
	}
	p.metrics.AssembleTotal.WithLabelValues(status).Inc()
}

func contentBytes(assembled *retrieval.AssembledContext) int {
	total := 0
	for _, item := range assembled.DocumentChunks {
		total += len(item.Content)
	}
	for _, item := range assembled.WebSnippets {
		total += len(item.Content)
	}
	return total
}

func (p *Pipeline) countCompression(bytesBefore int, after *retrieval.AssembledContext) {
	if p.metrics == nil {
		return
	}
	outcome := "passthrough"
	if contentBytes(after) < bytesBefore {
		outcome = "compressed"
	}
	p.metrics.CompressionsTotal.WithLabelValues(outcome).Inc()
}

func (p *Pipeline) observeAssembly(assembled *retrieval.AssembledContext, check budget.Check, degraded bool, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	status := "ok"
	if degraded {
		status = "degraded"
	}
	p.metrics.AssembleTotal.WithLabelValues(status).Inc()
	p.metrics.AssembleDuration.Observe(elapsed.Seconds())
	p.metrics.ContextItems.Observe(float64(assembled.TotalItems()))
	p.metrics.ContextTokens.Observe(float64(check.TotalUsed))
	for range check.Warnings {
		p.metrics.BudgetViolationsTotal.WithLabelValues("slice").Inc()
	}
}
