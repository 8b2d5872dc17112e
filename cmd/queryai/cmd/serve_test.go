package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rssebambulidde/QueryAI-sub001/internal/config"
	"github.com/rssebambulidde/QueryAI-sub001/internal/index"
	"github.com/rssebambulidde/QueryAI-sub001/internal/pipeline"
	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.NewConfig()
	p := pipeline.New(index.New())
	p.AddChunks([]*retrieval.Chunk{
		{ID: "c1", DocumentID: "d1", OwnerID: "o1", ChunkIndex: 0,
			Content: "photosynthesis converts light energy into chemical energy"},
		{ID: "c2", DocumentID: "d2", OwnerID: "o1", ChunkIndex: 0,
			Content: "the water cycle moves water between oceans and atmosphere"},
	})
	return newAPIHandler(p, cfg)
}

func TestAPIHandler_Assemble(t *testing.T) {
	handler := newTestHandler(t)

	body, _ := json.Marshal(assembleRequest{
		Query:   "what is photosynthesis",
		OwnerID: "o1",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/assemble", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var assembled retrieval.AssembledContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assembled))
	assert.NotEmpty(t, assembled.DocumentChunks)
}

func TestAPIHandler_AssembleRejectsBadJSON(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/assemble", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIHandler_AddAndRemoveChunks(t *testing.T) {
	handler := newTestHandler(t)

	body, _ := json.Marshal([]chunkRecord{
		{ID: "c9", DocumentID: "d9", OwnerID: "o1", Content: "new chunk content"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chunks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/v1/documents/d9", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var removed map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &removed))
	assert.Equal(t, 1, removed["removed"])

	req = httptest.NewRequest(http.MethodDelete, "/v1/chunks/c1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPIHandler_Stats(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats index.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.ChunkCount)
}

func TestAPIHandler_Healthz(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
