package threshold

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rssebambulidde/QueryAI-sub001/internal/query"
)

func TestComputeStats(t *testing.T) {
	scores := []float64{0.2, 0.4, 0.6, 0.8, 1.0}
	stats := ComputeStats(scores)

	assert.Equal(t, 5, stats.Count)
	assert.InDelta(t, 0.6, stats.Mean, 1e-9)
	assert.InDelta(t, 0.2828, stats.StdDev, 1e-3)
	assert.Equal(t, 0.4, stats.P25)
	assert.Equal(t, 0.6, stats.P50)
	assert.Equal(t, 0.8, stats.P75)
	assert.Equal(t, 1.0, stats.P90)
	assert.Equal(t, 1.0, stats.P95)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.Equal(t, 0, stats.Count)
	assert.Equal(t, 0.0, stats.Mean)
}

func TestForQuery_PerTypeDefaults(t *testing.T) {
	o := New(Config{})

	tests := []struct {
		qt   query.Type
		want float64
	}{
		{query.TypeFactual, 0.75},
		{query.TypeProcedural, 0.70},
		{query.TypeConceptual, 0.65},
		{query.TypeExploratory, 0.60},
		{query.TypeUnknown, 0.70},
	}

	for _, tt := range tests {
		t.Run(string(tt.qt), func(t *testing.T) {
			r := o.ForQuery(tt.qt, nil)
			assert.Equal(t, tt.want, r.Threshold)
			assert.Equal(t, StrategyDefault, r.Strategy)
			assert.Equal(t, tt.qt, r.QueryType)
		})
	}
}

func TestForQuery_DefaultsClampedToBounds(t *testing.T) {
	o := New(Config{
		Defaults: map[query.Type]float64{query.TypeFactual: 0.99, query.TypeUnknown: 0.1},
	})

	assert.Equal(t, 0.95, o.ForQuery(query.TypeFactual, nil).Threshold)
	assert.Equal(t, 0.3, o.ForQuery(query.TypeUnknown, nil).Threshold)
}

func TestForQuery_StatisticalUsesPercentile(t *testing.T) {
	o := New(Config{})

	scores := []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9}
	r := o.ForQuery(query.TypeFactual, scores)

	assert.Equal(t, StrategyStatistical, r.Strategy)
	// Nearest-rank p75 of 8 samples is the 6th sorted value.
	assert.Equal(t, 0.8, r.Threshold)
}

func TestForQuery_TightDistributionRaisesCandidate(t *testing.T) {
	o := New(Config{Percentile: 25})

	// Tight cluster around 0.8: stddev < 0.1, mean > 0.5
	scores := []float64{0.78, 0.79, 0.80, 0.81, 0.82}
	r := o.ForQuery(query.TypeConceptual, scores)

	stats := ComputeStats(scores)
	require.Less(t, stats.StdDev, 0.1)
	assert.GreaterOrEqual(t, r.Threshold, stats.Mean-0.1)
}

func TestAdjustForCount_SinglePass(t *testing.T) {
	o := New(Config{})
	base := o.ForQuery(query.TypeFactual, nil) // 0.75

	widened := o.AdjustForCount(base, 1, 3, 10)
	assert.InDelta(t, 0.65, widened.Threshold, 1e-9)
	assert.Equal(t, StrategyAdjusted, widened.Strategy)

	narrowed := o.AdjustForCount(base, 50, 3, 10)
	assert.InDelta(t, 0.80, narrowed.Threshold, 1e-9)

	inRange := o.AdjustForCount(base, 5, 3, 10)
	assert.Equal(t, base.Threshold, inRange.Threshold)
	assert.Equal(t, StrategyDefault, inRange.Strategy)
}

func TestOptimize_ConvergesWhenCountInRange(t *testing.T) {
	o := New(Config{})

	// Lowering the threshold yields more results.
	probe := func(_ context.Context, threshold float64) (int, error) {
		switch {
		case threshold >= 0.72:
			return 1, nil
		case threshold >= 0.66:
			return 4, nil
		default:
			return 20, nil
		}
	}

	r, err := o.Optimize(context.Background(), query.TypeFactual, probe, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, StrategyIterative, r.Strategy)
	assert.InDelta(t, 0.70, r.Threshold, 1e-6)
}

func TestOptimize_ReturnsBestSeenWithoutConvergence(t *testing.T) {
	o := New(Config{MaxRounds: 3})

	calls := 0
	// Always too few results; best-seen is the last (lowest) threshold.
	probe := func(_ context.Context, threshold float64) (int, error) {
		calls++
		return calls - 1, nil // 0, 1, 2 results — never reaches 5
	}

	r, err := o.Optimize(context.Background(), query.TypeUnknown, probe, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, StrategyIterative, r.Strategy)
	// Midpoint is 7.5; the closest count seen was 2 at the third threshold.
	assert.InDelta(t, 0.60, r.Threshold, 1e-6)
}

func TestOptimize_ProbeErrorPropagates(t *testing.T) {
	o := New(Config{})

	probe := func(_ context.Context, _ float64) (int, error) {
		return 0, errors.New("index unavailable")
	}

	_, err := o.Optimize(context.Background(), query.TypeFactual, probe, 3, 10)
	assert.Error(t, err)
}
