// Package stats provides weighted-quantile computation over small samples,
// used to summarize confirmation latencies in batch runs.
package stats

import (
	"errors"
	"fmt"
	"sort"
)

// WeightedQuantiles computes quantiles of values under sample weights.
// Sorted values are placed at the midpoints of their normalized cumulative
// weights and quantiles are linearly interpolated between them, clamped to
// the extreme values outside that range. With equal weights this is the
// usual midpoint-interpolated percentile.
func WeightedQuantiles(values, weights, qs []float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, errors.New("values are empty")
	}
	if len(weights) != len(values) {
		return nil, fmt.Errorf("got %d weights for %d values", len(weights), len(values))
	}
	for _, q := range qs {
		if q < 0 || q > 1 {
			return nil, fmt.Errorf("quantile %v outside [0, 1]", q)
		}
	}

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	sortedValues := make([]float64, len(values))
	positions := make([]float64, len(values))
	total := 0.0
	for i, idx := range order {
		w := weights[idx]
		if w < 0 {
			return nil, errors.New("weights must be non-negative")
		}
		sortedValues[i] = values[idx]
		positions[i] = total + 0.5*w
		total += w
	}
	if total <= 0 {
		return nil, errors.New("total weight must be positive")
	}
	for i := range positions {
		positions[i] /= total
	}

	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = interp(q, positions, sortedValues)
	}
	return out, nil
}

// WeightedQuantile is the single-quantile convenience form.
func WeightedQuantile(values, weights []float64, q float64) (float64, error) {
	out, err := WeightedQuantiles(values, weights, []float64{q})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

func interp(q float64, xs, ys []float64) float64 {
	if q <= xs[0] {
		return ys[0]
	}
	last := len(xs) - 1
	if q >= xs[last] {
		return ys[last]
	}
	j := sort.SearchFloat64s(xs, q)
	if xs[j] == q {
		return ys[j]
	}
	x0, x1 := xs[j-1], xs[j]
	y0, y1 := ys[j-1], ys[j]
	if x1 == x0 {
		return y1
	}
	return y0 + (y1-y0)*(q-x0)/(x1-x0)
}
