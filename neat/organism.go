package neat

import (
	"fmt"

	"github.com/baldhumanity/neat-evo/neat/nn"
)

// Unevaluated is the fitness of an organism whose evaluation has not finished.
const Unevaluated = -1.0

// Organism pairs a genome with its compiled network and fitness.
type Organism struct {
	UID     int
	Genome  *Genome
	Network *nn.Network
	Fitness float64
}

// NewOrganism compiles genome into a network. The organism starts unevaluated.
func NewOrganism(uid int, genome *Genome, activation nn.ActivationFunc) *Organism {
	return &Organism{
		UID:     uid,
		Genome:  genome,
		Network: genome.Compile(activation),
		Fitness: Unevaluated,
	}
}

// Evaluated reports whether a fitness value has been assigned.
func (o *Organism) Evaluated() bool {
	return o.Fitness != Unevaluated
}

func (o *Organism) String() string {
	return fmt.Sprintf("Organism(uid: %d, fitness: %.4f, hidden: %d, genes: %d/%d)",
		o.UID, o.Fitness, len(o.Genome.Hidden), o.Genome.EnabledCount(), len(o.Genome.Genes))
}
