package neat

import (
	"math/rand/v2"

	"github.com/baldhumanity/neat-evo/neat/nn"
)

func testConfig(numInputs, numOutputs int) *Config {
	c := DefaultConfig()
	c.Genome.NumInputs = numInputs
	c.Genome.NumOutputs = numOutputs
	c.Genome.BiasInput = -1
	return c
}

func newTestContext(config *Config, seed uint64) (*MutationContext, *Innovations) {
	counters := NewInnovations(config.Genome.NumInputs, config.Genome.NumOutputs)
	return NewMutationContext(config, &counters, rand.New(rand.NewPCG(seed, seed))), &counters
}

func organismWith(uid int, g *Genome, fitness float64) *Organism {
	o := NewOrganism(uid, g, nn.Sigmoid)
	o.Fitness = fitness
	return o
}
