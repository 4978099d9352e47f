// Package calc computes GPA and CGPA figures from subject and semester
// lists. All functions are pure and safe for concurrent use.
package calc

import "math"

// precision is the number of decimal places every average is rounded to.
const precision = 1000.0

// Pair is a single (weight, value) input to an average.
type Pair struct {
	Weight float64
	Value  float64
}

// Round3 rounds x to 3 decimal places, halves away from zero.
func Round3(x float64) float64 {
	return math.Round(x*precision) / precision
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// WeightedAverage returns Σ(w·v)/Σw over pairs with a positive finite
// weight and a finite value, rounded to 3 decimals. It returns 0 when no
// pair survives filtering.
func WeightedAverage(pairs []Pair) float64 {
	var sum, total float64
	for _, p := range pairs {
		if !finite(p.Weight) || p.Weight <= 0 || !finite(p.Value) {
			continue
		}
		sum += p.Weight * p.Value
		total += p.Weight
	}
	if total == 0 {
		return 0
	}
	return Round3(sum / total)
}

// FallbackAverage returns the arithmetic mean of the finite values,
// ignoring weights, rounded to 3 decimals. It returns 0 for an empty input.
func FallbackAverage(pairs []Pair) float64 {
	var sum float64
	var n int
	for _, p := range pairs {
		if !finite(p.Value) {
			continue
		}
		sum += p.Value
		n++
	}
	if n == 0 {
		return 0
	}
	return Round3(sum / float64(n))
}

// totalWeight sums the weights WeightedAverage would keep.
func totalWeight(pairs []Pair) float64 {
	var total float64
	for _, p := range pairs {
		if finite(p.Weight) && p.Weight > 0 && finite(p.Value) {
			total += p.Weight
		}
	}
	return total
}
