package threshold

import (
	"math"
	"sort"
)

// SampleStats summarizes a sample of relevance scores from an initial probe.
type SampleStats struct {
	Count  int
	Mean   float64
	StdDev float64
	P25    float64
	P50    float64
	P75    float64
	P90    float64
	P95    float64
}

// ComputeStats computes mean, standard deviation, and percentiles for a
// score sample. Returns a zero-value SampleStats for empty input.
func ComputeStats(scores []float64) SampleStats {
	if len(scores) == 0 {
		return SampleStats{}
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	var sum float64
	for _, s := range sorted {
		sum += s
	}
	mean := sum / float64(len(sorted))

	var variance float64
	for _, s := range sorted {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(sorted))

	return SampleStats{
		Count:  len(sorted),
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		P25:    percentile(sorted, 25),
		P50:    percentile(sorted, 50),
		P75:    percentile(sorted, 75),
		P90:    percentile(sorted, 90),
		P95:    percentile(sorted, 95),
	}
}

// Percentile returns the requested percentile from the stats, falling back
// to P75 for unsupported values.
func (s SampleStats) Percentile(p int) float64 {
	switch p {
	case 25:
		return s.P25
	case 50:
		return s.P50
	case 75:
		return s.P75
	case 90:
		return s.P90
	case 95:
		return s.P95
	default:
		return s.P75
	}
}

// percentile computes the nearest-rank percentile of a sorted sample.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(float64(p) / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
