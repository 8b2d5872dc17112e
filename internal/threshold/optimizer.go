// Package threshold chooses a similarity cutoff per query, using query type,
// optional score-sample statistics, and bounded iterative fallback.
package threshold

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/rssebambulidde/QueryAI-sub001/internal/query"
)

// Strategy names the method that produced a threshold.
type Strategy string

const (
	// StrategyDefault is the per-query-type default threshold.
	StrategyDefault Strategy = "default"

	// StrategyStatistical derives the threshold from probe score statistics.
	StrategyStatistical Strategy = "statistical"

	// StrategyAdjusted marks a single corrective widening/narrowing pass.
	StrategyAdjusted Strategy = "adjusted"

	// StrategyIterative marks the bounded re-query loop.
	StrategyIterative Strategy = "iterative"
)

// Result is the chosen threshold for one query. Not persisted.
type Result struct {
	Threshold  float64
	Strategy   Strategy
	Confidence float64
	Reasoning  string
	QueryType  query.Type
}

// Config configures the optimizer.
type Config struct {
	// Defaults maps each query type to its starting threshold.
	Defaults map[query.Type]float64

	// Min and Max are the global threshold bounds.
	Min float64
	Max float64

	// Percentile selects which probe percentile seeds the statistical
	// candidate (default: 75).
	Percentile int

	// LowerStep is subtracted when too few results come back.
	LowerStep float64

	// RaiseStep is added when too many results come back.
	RaiseStep float64

	// IterativeStep is the per-round adjustment of the iterative variant.
	IterativeStep float64

	// MaxRounds bounds the iterative variant.
	MaxRounds int
}

// DefaultConfig returns the per-type defaults and adjustment steps.
func DefaultConfig() Config {
	return Config{
		Defaults: map[query.Type]float64{
			query.TypeFactual:     0.75,
			query.TypeProcedural:  0.70,
			query.TypeConceptual:  0.65,
			query.TypeExploratory: 0.60,
			query.TypeUnknown:     0.70,
		},
		Min:           0.3,
		Max:           0.95,
		Percentile:    75,
		LowerStep:     0.1,
		RaiseStep:     0.05,
		IterativeStep: 0.05,
		MaxRounds:     5,
	}
}

// Optimizer chooses relevance cutoffs. Stateless apart from configuration;
// safe for concurrent use.
type Optimizer struct {
	config Config
	logger *slog.Logger
}

// New creates an optimizer, filling unset config fields with defaults.
func New(config Config) *Optimizer {
	def := DefaultConfig()
	if config.Defaults == nil {
		config.Defaults = def.Defaults
	}
	if config.Max <= 0 {
		config.Min = def.Min
		config.Max = def.Max
	}
	if config.Percentile <= 0 {
		config.Percentile = def.Percentile
	}
	if config.LowerStep <= 0 {
		config.LowerStep = def.LowerStep
	}
	if config.RaiseStep <= 0 {
		config.RaiseStep = def.RaiseStep
	}
	if config.IterativeStep <= 0 {
		config.IterativeStep = def.IterativeStep
	}
	if config.MaxRounds <= 0 {
		config.MaxRounds = def.MaxRounds
	}
	return &Optimizer{
		config: config,
		logger: slog.Default().With("component", "threshold-optimizer"),
	}
}

// clamp bounds a threshold to the configured global range.
func (o *Optimizer) clamp(t float64) float64 {
	return math.Min(o.config.Max, math.Max(o.config.Min, t))
}

// defaultFor returns the configured default threshold for a query type.
func (o *Optimizer) defaultFor(qt query.Type) float64 {
	if t, ok := o.config.Defaults[qt]; ok {
		return o.clamp(t)
	}
	return o.clamp(o.config.Defaults[query.TypeUnknown])
}

// ForQuery chooses a threshold for a query type, optionally refined by
// sample scores from an initial probe.
func (o *Optimizer) ForQuery(qt query.Type, sampleScores []float64) Result {
	if len(sampleScores) == 0 {
		return Result{
			Threshold:  o.defaultFor(qt),
			Strategy:   StrategyDefault,
			Confidence: 0.6,
			Reasoning:  fmt.Sprintf("per-type default for %s queries", qt),
			QueryType:  qt,
		}
	}

	stats := ComputeStats(sampleScores)
	candidate := o.clamp(stats.Percentile(o.config.Percentile))
	reasoning := fmt.Sprintf("p%d of %d probe scores", o.config.Percentile, stats.Count)

	// A tight high-scoring distribution means the percentile alone can sit
	// below the bulk of good results; keep the cutoff near the mean.
	if stats.StdDev < 0.1 && stats.Mean > 0.5 {
		floor := o.clamp(stats.Mean - 0.1)
		if candidate < floor {
			candidate = floor
			reasoning = fmt.Sprintf("tight distribution (stddev %.3f), raised to mean-0.1", stats.StdDev)
		}
	}

	return Result{
		Threshold:  candidate,
		Strategy:   StrategyStatistical,
		Confidence: 0.8,
		Reasoning:  reasoning,
		QueryType:  qt,
	}
}

// AdjustForCount performs a single corrective pass: lower the threshold when
// too few results came back, raise it when too many did. Not iterative.
func (o *Optimizer) AdjustForCount(r Result, resultCount, minDesired, maxDesired int) Result {
	switch {
	case resultCount < minDesired:
		r.Threshold = o.clamp(r.Threshold - o.config.LowerStep)
		r.Strategy = StrategyAdjusted
		r.Reasoning = fmt.Sprintf("widened: %d results below desired minimum %d", resultCount, minDesired)
	case maxDesired > 0 && resultCount > maxDesired:
		r.Threshold = o.clamp(r.Threshold + o.config.RaiseStep)
		r.Strategy = StrategyAdjusted
		r.Reasoning = fmt.Sprintf("narrowed: %d results above desired maximum %d", resultCount, maxDesired)
	}
	return r
}

// ProbeFunc re-runs retrieval at a threshold and reports the result count.
type ProbeFunc func(ctx context.Context, threshold float64) (int, error)

// Optimize iteratively re-queries with adjusted thresholds until the result
// count falls inside [minDesired, maxDesired], up to MaxRounds rounds. If no
// round lands in range, the best-seen threshold (count closest to the range
// midpoint) is returned.
func (o *Optimizer) Optimize(ctx context.Context, qt query.Type, probe ProbeFunc, minDesired, maxDesired int) (Result, error) {
	current := o.defaultFor(qt)
	midpoint := float64(minDesired+maxDesired) / 2

	best := current
	bestDistance := math.Inf(1)

	for round := 0; round < o.config.MaxRounds; round++ {
		count, err := probe(ctx, current)
		if err != nil {
			return Result{}, fmt.Errorf("threshold probe: %w", err)
		}

		if count >= minDesired && count <= maxDesired {
			return Result{
				Threshold:  current,
				Strategy:   StrategyIterative,
				Confidence: 0.9,
				Reasoning:  fmt.Sprintf("converged in %d round(s) with %d results", round+1, count),
				QueryType:  qt,
			}, nil
		}

		if d := math.Abs(float64(count) - midpoint); d < bestDistance {
			bestDistance = d
			best = current
		}

		if count < minDesired {
			current = o.clamp(current - o.config.IterativeStep)
		} else {
			current = o.clamp(current + o.config.IterativeStep)
		}

		o.logger.Debug("threshold_round",
			slog.Int("round", round+1),
			slog.Int("results", count),
			slog.Float64("next_threshold", current))
	}

	return Result{
		Threshold:  best,
		Strategy:   StrategyIterative,
		Confidence: 0.5,
		Reasoning:  fmt.Sprintf("no convergence in %d rounds, best-seen threshold", o.config.MaxRounds),
		QueryType:  qt,
	}, nil
}
