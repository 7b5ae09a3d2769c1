package nn

import (
	"fmt"
	"math"
	"sort"
)

// ActivationFunc maps a node's weighted input sum to its output.
type ActivationFunc func(x float64) float64

// SigmoidSteepness is the slope used by Sigmoid, taken from Stanley & Miikkulainen.
const SigmoidSteepness = 4.9

// ActivationFunctions maps names usable in configuration to activation functions.
var ActivationFunctions = map[string]ActivationFunc{
	"sigmoid":  Sigmoid,
	"tanh":     Tanh,
	"relu":     ReLU,
	"identity": Identity,
	"clamped":  Clamped,
	"gaussian": Gaussian,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationFunc, error) {
	if fn, ok := ActivationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function %q (known: %v)", name, activationNames())
}

func activationNames() []string {
	names := make([]string, 0, len(ActivationFunctions))
	for name := range ActivationFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sigmoid is the steepened logistic 1 / (1 + e^(-4.9x)).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-SigmoidSteepness*x))
}

// Tanh activation function.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// ReLU activation function.
func ReLU(x float64) float64 {
	return math.Max(0, x)
}

// Identity activation function (linear).
func Identity(x float64) float64 {
	return x
}

// Clamped clamps its input to [-1, 1].
func Clamped(x float64) float64 {
	return math.Max(-1.0, math.Min(x, 1.0))
}

// Gaussian activation function.
func Gaussian(x float64) float64 {
	return math.Exp(-x * x / 2.0)
}
