package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMedianEqualWeights(t *testing.T) {
	got, err := WeightedQuantile([]float64{1, 2, 3}, []float64{1, 1, 1}, 0.5)
	if err != nil {
		t.Fatalf("WeightedQuantile error: %v", err)
	}
	if !almostEqual(got, 2) {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestEqualWeightsInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	weights := []float64{1, 1, 1, 1, 1}
	// Midpoints sit at 0.1, 0.3, 0.5, 0.7, 0.9: q=0.25 interpolates
	// three quarters of the way from 1 to 2.
	got, err := WeightedQuantile(values, weights, 0.25)
	if err != nil {
		t.Fatalf("WeightedQuantile error: %v", err)
	}
	if !almostEqual(got, 1.75) {
		t.Fatalf("expected 1.75, got %v", got)
	}
}

func TestUnequalWeights(t *testing.T) {
	// Midpoints: (0.5, 2.5)/4 = 0.125, 0.625.
	values := []float64{1, 2}
	weights := []float64{1, 3}
	cases := []struct{ q, want float64 }{
		{0.125, 1},
		{0.375, 1.5},
		{0.625, 2},
		{0.0, 1},
		{1.0, 2},
	}
	for _, c := range cases {
		got, err := WeightedQuantile(values, weights, c.q)
		if err != nil {
			t.Fatalf("WeightedQuantile(%v) error: %v", c.q, err)
		}
		if !almostEqual(got, c.want) {
			t.Fatalf("q=%v: expected %v, got %v", c.q, c.want, got)
		}
	}
}

func TestUnsortedInput(t *testing.T) {
	got, err := WeightedQuantile([]float64{3, 1, 2}, []float64{1, 1, 1}, 0.5)
	if err != nil {
		t.Fatalf("WeightedQuantile error: %v", err)
	}
	if !almostEqual(got, 2) {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestMultipleQuantiles(t *testing.T) {
	got, err := WeightedQuantiles([]float64{1, 2, 3}, []float64{1, 1, 1}, []float64{0, 0.5, 1})
	if err != nil {
		t.Fatalf("WeightedQuantiles error: %v", err)
	}
	want := []float64{1, 2, 3}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestInvalidInputs(t *testing.T) {
	if _, err := WeightedQuantile(nil, nil, 0.5); err == nil {
		t.Fatal("expected error for empty values")
	}
	if _, err := WeightedQuantile([]float64{1}, []float64{1, 2}, 0.5); err == nil {
		t.Fatal("expected error for length mismatch")
	}
	if _, err := WeightedQuantile([]float64{1}, []float64{1}, 1.5); err == nil {
		t.Fatal("expected error for quantile outside [0, 1]")
	}
	if _, err := WeightedQuantile([]float64{1}, []float64{0}, 0.5); err == nil {
		t.Fatal("expected error for zero total weight")
	}
	if _, err := WeightedQuantile([]float64{1, 2}, []float64{1, -1}, 0.5); err == nil {
		t.Fatal("expected error for negative weight")
	}
}
