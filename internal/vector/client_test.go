package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/rssebambulidde/QueryAI-sub001/internal/errors"
	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
)

func noRetry() qerrors.RetryConfig {
	return qerrors.RetryConfig{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestSearchDecodesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "owner-1", req.OwnerID)
		assert.Equal(t, 5, req.TopK)

		json.NewEncoder(w).Encode(searchResponse{Results: []searchResult{
			{
				ChunkID:    "c1",
				DocumentID: "d1",
				Content:    "relevant passage",
				Score:      0.87,
				Metadata: struct {
					ChunkIndex int    `json:"chunkIndex"`
					Title      string `json:"title"`
					SourceURL  string `json:"sourceUrl"`
					Page       int    `json:"page"`
				}{ChunkIndex: 3, Title: "Doc One", Page: 12},
			},
		}})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: time.Second, Retry: noRetry()})
	require.NoError(t, err)

	results, err := client.Search(context.Background(), []float32{0.1, 0.2},
		retrieval.SearchFilters{OwnerID: "owner-1", TopK: 5})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "owner-1", results[0].Chunk.OwnerID)
	assert.Equal(t, 3, results[0].Chunk.ChunkIndex)
	assert.Equal(t, "Doc One", results[0].Chunk.Display.Title)
	assert.InDelta(t, 0.87, results[0].Score, 1e-9)
}

func TestSearchEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: time.Second, Retry: noRetry()})
	require.NoError(t, err)

	results, err := client.Search(context.Background(), []float32{0.1}, retrieval.SearchFilters{OwnerID: "o"})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchServerErrorCarriesVectorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "shard offline", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: time.Second, Retry: noRetry()})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), []float32{0.1}, retrieval.SearchFilters{OwnerID: "o"})

	require.Error(t, err)
	var rerr *qerrors.RetrievalError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, qerrors.ErrCodeVectorSearch, rerr.Code)
}

func TestSearchRetriesTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer server.Close()

	cfg := Config{BaseURL: server.URL, Timeout: time.Second}
	cfg.Retry = qerrors.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.Search(context.Background(), []float32{0.1}, retrieval.SearchFilters{OwnerID: "o"})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})

	require.Error(t, err)
	var rerr *qerrors.RetrievalError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, qerrors.ErrCodeConfigInvalid, rerr.Code)
}
