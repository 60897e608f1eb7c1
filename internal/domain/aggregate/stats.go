// Package aggregate reduces the evaluations of one (event, player, drill)
// into a summary and keeps the player snapshot in step with it.
package aggregate

import (
	"math"
	"slices"
)

// Stats is the reduction of a value set.
type Stats struct {
	Count      int
	Average    float64
	Median     float64
	Variance   float64
	FinalScore float64
}

// Summarize computes count, mean, median and sample variance of values.
// Variance is 0 when there are fewer than two values. FinalScore is the
// average.
func Summarize(values []float64) Stats {
	n := len(values)
	if n == 0 {
		return Stats{}
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	variance := 0.0
	if n > 1 {
		ss := 0.0
		for _, v := range values {
			d := v - mean
			ss += d * d
		}
		variance = ss / float64(n-1)
	}

	return Stats{
		Count:      n,
		Average:    mean,
		Median:     median,
		Variance:   variance,
		FinalScore: mean,
	}
}

// Close reports whether a and b agree within a relative tolerance.
func Close(a, b float64) bool {
	const eps = 1e-9
	return math.Abs(a-b) <= eps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
