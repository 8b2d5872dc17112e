package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisterAndCount(t *testing.T) {
	m := New()

	m.SearchesTotal.WithLabelValues("lexical", "ok").Inc()
	m.SearchesTotal.WithLabelValues("vector", "error").Inc()
	m.SearchesTotal.WithLabelValues("vector", "error").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("lexical", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("vector", "error")))
}

func TestMetricsIndependentRegistries(t *testing.T) {
	// Two instances must not clash on registration.
	first := New()
	second := New()

	first.IndexedChunks.Set(3)
	second.IndexedChunks.Set(7)

	assert.Equal(t, 3.0, testutil.ToFloat64(first.IndexedChunks))
	assert.Equal(t, 7.0, testutil.ToFloat64(second.IndexedChunks))
}

func TestHandlerServesScrapes(t *testing.T) {
	m := New()
	m.AssembleTotal.WithLabelValues("ok").Inc()

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
