package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/rssebambulidde/QueryAI-sub001/internal/ai"
	"github.com/rssebambulidde/QueryAI-sub001/internal/ai/openai"
	"github.com/rssebambulidde/QueryAI-sub001/internal/budget"
	"github.com/rssebambulidde/QueryAI-sub001/internal/compress"
	"github.com/rssebambulidde/QueryAI-sub001/internal/config"
	"github.com/rssebambulidde/QueryAI-sub001/internal/fusion"
	"github.com/rssebambulidde/QueryAI-sub001/internal/index"
	"github.com/rssebambulidde/QueryAI-sub001/internal/pipeline"
	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
	"github.com/rssebambulidde/QueryAI-sub001/internal/sizing"
	"github.com/rssebambulidde/QueryAI-sub001/internal/telemetry"
	"github.com/rssebambulidde/QueryAI-sub001/internal/threshold"
	"github.com/rssebambulidde/QueryAI-sub001/internal/vector"
)

// buildPipeline wires a pipeline from the loaded configuration. Optional
// paths degrade with a warning instead of failing: a missing vector service
// or AI host just narrows what the pipeline can do.
func buildPipeline(cfg *config.Config, idx *index.Index, metrics *telemetry.Metrics) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithOptimizer(threshold.New(cfg.Threshold.ThresholdOptions())),
		pipeline.WithFuser(fusion.New(cfg.Fusion.FusionOptions()...)),
		pipeline.WithSizer(sizing.New(cfg.Sizing)),
		pipeline.WithBudgeter(budget.New(cfg.Budget)),
	}

	if cfg.Vector.BaseURL != "" {
		client, err := vector.NewClient(cfg.Vector)
		if err != nil {
			slog.Warn("vector_client_unavailable", slog.Any("error", err))
		} else if embedder, err := openai.NewEmbedder(&cfg.Embedding); err != nil {
			slog.Warn("embedder_unavailable", slog.Any("error", err))
		} else {
			opts = append(opts, pipeline.WithVectorSearch(embedder, client))
		}
	}

	if compressor := buildCompressor(cfg); compressor != nil {
		opts = append(opts, pipeline.WithCompressor(compressor))
	}

	if metrics != nil {
		opts = append(opts, pipeline.WithMetrics(metrics))
	}

	return pipeline.New(idx, opts...)
}

// buildCompressor creates the context compressor. Without an AI host the
// compressor still works in truncation mode.
func buildCompressor(cfg *config.Config) *compress.Compressor {
	counter := budget.NewCounter(cfg.Model)

	compressor, err := compress.New(cfg.Compress, counter, buildCompleter(cfg))
	if err != nil {
		slog.Warn("compressor_unavailable", slog.Any("error", err))
		return nil
	}
	return compressor
}

// buildCompleter returns nil when no AI model is configured so the
// compressor falls back to truncation.
func buildCompleter(cfg *config.Config) ai.Completer {
	if cfg.AI.Model == "" {
		return nil
	}
	completer, err := openai.NewCompleter(&cfg.AI)
	if err != nil {
		slog.Warn("completer_unavailable", slog.Any("error", err))
		return nil
	}
	return completer
}

// chunkRecord is the on-disk JSON shape for one indexed chunk.
type chunkRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	OwnerID    string `json:"owner_id"`
	TopicID    string `json:"topic_id,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
	Language   string `json:"language,omitempty"`
	Section    string `json:"section,omitempty"`
	Title      string `json:"title,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
	Page       int    `json:"page,omitempty"`
}

// loadChunks reads a JSON array of chunk records from path.
func loadChunks(path string) ([]*retrieval.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks file %s: %w", path, err)
	}

	var records []chunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse chunks file %s: %w", path, err)
	}

	chunks := make([]*retrieval.Chunk, 0, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("chunk %d in %s has no id", i, path)
		}
		chunks = append(chunks, &retrieval.Chunk{
			ID:         r.ID,
			DocumentID: r.DocumentID,
			Content:    r.Content,
			OwnerID:    r.OwnerID,
			TopicID:    r.TopicID,
			ChunkIndex: r.ChunkIndex,
			Index: retrieval.IndexMetadata{
				Language: r.Language,
				Section:  r.Section,
			},
			Display: retrieval.DisplayMetadata{
				Title:     r.Title,
				SourceURL: r.SourceURL,
				Page:      r.Page,
			},
		})
	}
	return chunks, nil
}

// snippetRecord is the on-disk JSON shape for one web snippet.
type snippetRecord struct {
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
	Title     string  `json:"title,omitempty"`
	SourceURL string  `json:"source_url,omitempty"`
}

// loadSnippets reads a JSON array of web snippets from path.
func loadSnippets(path string) ([]retrieval.ContextItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snippets file %s: %w", path, err)
	}

	var records []snippetRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse snippets file %s: %w", path, err)
	}

	items := make([]retrieval.ContextItem, 0, len(records))
	for _, r := range records {
		items = append(items, retrieval.ContextItem{
			Content: r.Content,
			Score:   r.Score,
			Source:  retrieval.SourceWeb,
			Display: retrieval.DisplayMetadata{
				Title:     r.Title,
				SourceURL: r.SourceURL,
			},
		})
	}
	return items, nil
}
