// Package vector talks to the external vector search service. Failures are
// reported as errors to the caller, which treats them as zero results from
// this retrieval path.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	qerrors "github.com/rssebambulidde/QueryAI-sub001/internal/errors"
	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
)

// Searcher is the vector search contract consumed by the pipeline.
type Searcher interface {
	// Search returns chunks similar to the query embedding, subject to the
	// filters. An empty result is valid.
	Search(ctx context.Context, embedding []float32, filters retrieval.SearchFilters) ([]retrieval.ScoredChunk, error)
}

// Config holds connection settings for the vector search service.
type Config struct {
	// BaseURL of the service, without the trailing /search path.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	// Retry controls backoff on transient failures.
	Retry qerrors.RetryConfig `yaml:"retry"`
}

// DefaultConfig returns the stock client settings.
func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
		Retry:   qerrors.DefaultRetryConfig(),
	}
}

// Client is an HTTP implementation of Searcher.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ Searcher = (*Client)(nil)

// NewClient creates a vector search client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, qerrors.New(qerrors.ErrCodeConfigInvalid, "vector search base URL is required", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default().With("component", "vector-client"),
	}, nil
}

type searchRequest struct {
	Embedding   []float32 `json:"embedding"`
	OwnerID     string    `json:"ownerId"`
	TopicID     string    `json:"topicId,omitempty"`
	DocumentIDs []string  `json:"documentIds,omitempty"`
	TopK        int       `json:"topK"`
	MinScore    float64   `json:"minScore"`
}

type searchResult struct {
	ChunkID    string  `json:"chunkId"`
	DocumentID string  `json:"documentId"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Metadata   struct {
		ChunkIndex int    `json:"chunkIndex"`
		Title      string `json:"title"`
		SourceURL  string `json:"sourceUrl"`
		Page       int    `json:"page"`
	} `json:"metadata"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Search posts the query embedding and filters to the service. Transient
// failures are retried with backoff; the final error carries the vector
// search code so callers can degrade this path.
func (c *Client) Search(ctx context.Context, embedding []float32, filters retrieval.SearchFilters) ([]retrieval.ScoredChunk, error) {
	body, err := json.Marshal(searchRequest{
		Embedding:   embedding,
		OwnerID:     filters.OwnerID,
		TopicID:     filters.TopicID,
		DocumentIDs: filters.DocumentIDs,
		TopK:        filters.TopK,
		MinScore:    filters.MinScore,
	})
	if err != nil {
		return nil, qerrors.Wrap(qerrors.ErrCodeVectorSearch, err)
	}

	resp, err := qerrors.RetryWithResult(ctx, c.cfg.Retry, func() (*searchResponse, error) {
		return c.doSearch(ctx, body)
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, qerrors.Wrap(qerrors.ErrCodeVectorTimeout, err)
		}
		return nil, qerrors.Wrap(qerrors.ErrCodeVectorSearch, err)
	}

	chunks := make([]retrieval.ScoredChunk, 0, len(resp.Results))
	for _, r := range resp.Results {
		chunks = append(chunks, retrieval.ScoredChunk{
			Chunk: &retrieval.Chunk{
				ID:         r.ChunkID,
				DocumentID: r.DocumentID,
				Content:    r.Content,
				OwnerID:    filters.OwnerID,
				ChunkIndex: r.Metadata.ChunkIndex,
				Display: retrieval.DisplayMetadata{
					Title:     r.Metadata.Title,
					SourceURL: r.Metadata.SourceURL,
					Page:      r.Metadata.Page,
				},
			},
			Score: r.Score,
		})
	}
	c.logger.Debug("vector_search_done", slog.Int("results", len(chunks)))
	return chunks, nil
}

func (c *Client) doSearch(ctx context.Context, body []byte) (*searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("vector search returned %d: %s", resp.StatusCode, payload)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
