package neat

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// clamp restricts a value to a given range [minVal, maxVal].
func clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}

// sanitizeFitness maps evaluator output onto the finite, non-negative
// fitness domain.
func sanitizeFitness(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	return math.Min(f, math.MaxFloat64)
}

// mean returns the average of values, or 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// stdev returns the sample standard deviation, or 0 with fewer than two values.
func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// maxFloat returns the largest value, or negative infinity for an empty slice.
func maxFloat(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}
	return floats.Max(values)
}

// fitnesses extracts member fitness values in order.
func fitnesses(organisms []*Organism) []float64 {
	out := make([]float64, len(organisms))
	for i, o := range organisms {
		out[i] = o.Fitness
	}
	return out
}
