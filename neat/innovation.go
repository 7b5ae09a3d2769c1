package neat

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Innovations holds the engine-wide counters. Both only ever increase.
type Innovations struct {
	NextInnovation int `yaml:"next_innovation"`
	NextNode       int `yaml:"next_node"`
}

// NewInnovations starts numbering innovations at 1 and hidden nodes right
// after the last output id.
func NewInnovations(numInputs, numOutputs int) Innovations {
	return Innovations{NextInnovation: 1, NextNode: numInputs + numOutputs}
}

type nodeSplit struct {
	firstInnovation int
	node            int
}

// MutationContext carries the per-generation innovation registries. The engine
// creates one at the start of each generation and drops it at the end, so two
// organisms making the same structural change within a generation receive the
// same innovation numbers and can later be aligned by crossover.
//
// A MutationContext is not safe for concurrent use.
type MutationContext struct {
	config   *Config
	counters *Innovations
	rng      *rand.Rand
	weights  distuv.Normal

	connections map[ConnectionKey]int
	splits      map[int]nodeSplit
}

// NewMutationContext creates a context drawing numbers from counters.
func NewMutationContext(config *Config, counters *Innovations, rng *rand.Rand) *MutationContext {
	return &MutationContext{
		config:   config,
		counters: counters,
		rng:      rng,
		weights: distuv.Normal{
			Mu:    config.Genome.WeightInitMean,
			Sigma: config.Genome.WeightInitStdev,
			Src:   rng,
		},
		connections: make(map[ConnectionKey]int),
		splits:      make(map[int]nodeSplit),
	}
}

func (mc *MutationContext) newInnovation() int {
	n := mc.counters.NextInnovation
	mc.counters.NextInnovation++
	return n
}

// connectionInnovation looks up or allocates the innovation number for a new
// connection between key's endpoints.
func (mc *MutationContext) connectionInnovation(key ConnectionKey) int {
	if n, ok := mc.connections[key]; ok {
		return n
	}
	n := mc.newInnovation()
	mc.connections[key] = n
	return n
}

// splitInnovation looks up or allocates the hidden node and the pair of
// innovation numbers used when splitting the gene numbered innovation.
// A genome that already holds the registered node (it split an equivalent
// edge earlier this generation) gets fresh numbers that are not registered.
func (mc *MutationContext) splitInnovation(g *Genome, innovation int) nodeSplit {
	if s, ok := mc.splits[innovation]; ok {
		if _, taken := g.Hidden[s.node]; !taken {
			return s
		}
		return mc.allocateSplit()
	}
	s := mc.allocateSplit()
	mc.splits[innovation] = s
	return s
}

func (mc *MutationContext) allocateSplit() nodeSplit {
	s := nodeSplit{firstInnovation: mc.counters.NextInnovation, node: mc.counters.NextNode}
	mc.counters.NextInnovation += 2
	mc.counters.NextNode++
	return s
}

func (mc *MutationContext) sampleWeight() float64 {
	return clamp(mc.weights.Rand(), mc.config.Genome.WeightMinValue, mc.config.Genome.WeightMaxValue)
}
