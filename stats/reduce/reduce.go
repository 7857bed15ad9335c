// Package reduce provides scalar reduction statistics used to combine
// coherence values across frequency bins, epochs, or region constituents.
package reduce

import (
	"fmt"
	"math"
	"sort"
)

// Func collapses a non-empty sample slice into one scalar. Implementations
// must not modify the input slice.
type Func func(values []float64) float64

// Mean returns the arithmetic mean.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// Median returns the middle value, or the mean of the two middle values for
// even-length input.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// TrimmedMean returns a Func that discards the given fraction of samples
// from each tail before averaging. fraction must be in [0, 0.5).
func TrimmedMean(fraction float64) (Func, error) {
	if fraction < 0 || fraction >= 0.5 {
		return nil, fmt.Errorf("trim fraction must be in [0, 0.5): %f", fraction)
	}

	return func(values []float64) float64 {
		n := len(values)
		if n == 0 {
			return math.NaN()
		}

		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		trim := int(float64(n) * fraction)
		kept := sorted[trim : n-trim]

		return Mean(kept)
	}, nil
}
