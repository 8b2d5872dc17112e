package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
	}{
		{"config code", ErrCodeConfigInvalid, CategoryConfig},
		{"index code", ErrCodeChunkEmpty, CategoryIndex},
		{"external code", ErrCodeVectorSearch, CategoryExternal},
		{"validation code", ErrCodeQueryEmpty, CategoryValidation},
		{"internal code", ErrCodeInternal, CategoryInternal},
		{"malformed code", "ERR", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestNew_RetryableExternalCodes(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeVectorSearch, "down", nil)))
	assert.True(t, IsRetryable(New(ErrCodeModelTimeout, "slow", nil)))
	assert.False(t, IsRetryable(New(ErrCodeQueryEmpty, "empty", nil)))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}

func TestIsFatal_AllPathsFailed(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeAllPathsFailed, "nothing available", nil)))
	assert.False(t, IsFatal(New(ErrCodeVectorSearch, "one path down", nil)))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeVectorSearch, cause)

	require.NotNil(t, err)
	assert.Equal(t, "connection refused", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeVectorSearch, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeModelCall, "first", nil)
	b := New(ErrCodeModelCall, "second", nil)
	wrapped := fmt.Errorf("outer: %w", a)

	assert.ErrorIs(t, wrapped, b)
}

func TestWithDetail_Chains(t *testing.T) {
	err := New(ErrCodeVectorSearch, "down", nil).
		WithDetail("host", "localhost:9200").
		WithDetail("topK", "10")

	assert.Equal(t, "localhost:9200", err.Details["host"])
	assert.Equal(t, "10", err.Details["topK"])
}

func TestRetryWithResult_SucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	attempts := 0
	result, err := RetryWithResult(context.Background(), cfg, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", stderrors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithResult_ExhaustsRetries(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2.0}

	attempts := 0
	_, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		attempts++
		return 0, stderrors.New("always fails")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial + 2 retries
	assert.Contains(t, err.Error(), "failed after 2 retries")
}

func TestRetryWithResult_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryWithResult(ctx, DefaultRetryConfig(), func() (int, error) {
		return 0, stderrors.New("never reached after cancel")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
