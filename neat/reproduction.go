package neat

import (
	"math"

	"github.com/baldhumanity/neat-evo/neat/nn"
)

// Reproduction handles the creation of offspring through elitism, crossover
// and mutation.
type Reproduction struct {
	Config  *ReproductionConfig
	NextUID int // Next organism UID (starts at 1).

	activation nn.ActivationFunc
}

// NewReproduction creates a new reproduction manager.
func NewReproduction(config *ReproductionConfig, activation nn.ActivationFunc) *Reproduction {
	return &Reproduction{
		Config:     config,
		NextUID:    1,
		activation: activation,
	}
}

func (r *Reproduction) nextUID() int {
	uid := r.NextUID
	r.NextUID++
	return uid
}

// newOrganism wraps genome in an unevaluated organism with a fresh UID.
func (r *Reproduction) newOrganism(genome *Genome) *Organism {
	return NewOrganism(r.nextUID(), genome, r.activation)
}

// Apportion splits popSize offspring among species in proportion to their
// average fitness. Each species receives the floor of its exact share plus the
// carried fraction of earlier species, and the last species absorbs whatever
// slack remains, so the quotas always sum to popSize. When every average is
// zero the population is split evenly.
func Apportion(averages []float64, popSize int) []int {
	quotas := make([]int, len(averages))
	if len(averages) == 0 {
		return quotas
	}

	// Averages are scaled by the largest one so the total cannot overflow.
	weights := make([]float64, len(averages))
	for i, a := range averages {
		weights[i] = sanitizeFitness(a)
	}
	top := maxFloat(weights)
	total := 0.0
	if top > 0 {
		for i := range weights {
			weights[i] /= top
			total += weights[i]
		}
	}

	assigned := 0
	carry := 0.0
	for i, w := range weights {
		share := float64(popSize) / float64(len(weights))
		if total > 0 {
			share = w / total * float64(popSize)
		}
		exact := share + carry
		q := int(math.Floor(exact + 1e-9))
		carry = exact - float64(q)
		quotas[i] = q
		assigned += q
	}

	last := len(quotas) - 1
	quotas[last] = max(0, quotas[last]+popSize-assigned)
	return quotas
}

// Reproduce breeds the next generation from species. Every new organism is
// handed to dispatch as soon as it is built; elites are carried over as the
// same organism and are not dispatched again. The returned slice holds exactly
// popSize organisms.
func (r *Reproduction) Reproduce(mc *MutationContext, species []*Species, popSize int, dispatch func(*Organism)) []*Organism {
	averages := make([]float64, len(species))
	for i, sp := range species {
		averages[i] = sp.AverageFitness()
	}
	quotas := Apportion(averages, popSize)

	pools := make([][]*Organism, len(species))
	for i, sp := range species {
		pools[i] = r.parents(sp)
	}

	offspring := make([]*Organism, 0, popSize)
	for i, sp := range species {
		quota := quotas[i]
		if quota <= 0 {
			continue
		}

		if len(sp.Members) > r.Config.ElitismMinSpeciesSize {
			offspring = append(offspring, sp.Champion())
			quota--
		}

		for ; quota > 0; quota-- {
			child := r.newOrganism(r.breed(mc, pools, i))
			dispatch(child)
			offspring = append(offspring, child)
		}
	}
	return offspring
}

// parents returns the top ceil(SurvivalThreshold*n) members of sp by fitness,
// never fewer than one.
func (r *Reproduction) parents(sp *Species) []*Organism {
	sorted := sp.sortedMembers()
	n := int(math.Ceil(r.Config.SurvivalThreshold * float64(len(sorted))))
	return sorted[:min(len(sorted), max(1, n))]
}

// breed builds one child genome for the species at index self.
func (r *Reproduction) breed(mc *MutationContext, pools [][]*Organism, self int) *Genome {
	pool := pools[self]
	first := pool[mc.rng.IntN(len(pool))]

	if mc.rng.Float64() < r.Config.MutateOnlyProb {
		return r.mutateOnly(mc, first)
	}

	var second *Organism
	if len(pools) > 1 && mc.rng.Float64() < r.Config.InterspeciesMateRate {
		other := mc.rng.IntN(len(pools) - 1)
		if other >= self {
			other++
		}
		second = pools[other][mc.rng.IntN(len(pools[other]))]
	} else if len(pool) > 1 {
		k := mc.rng.IntN(len(pool) - 1)
		if pool[k] == first {
			k = len(pool) - 1
		}
		second = pool[k]
	}
	if second == nil {
		return r.mutateOnly(mc, first)
	}

	child := mc.Crossover(first, second)
	if mc.rng.Float64() < r.Config.MateMutateProb {
		mc.Mutate(child)
	}
	return child
}

func (r *Reproduction) mutateOnly(mc *MutationContext, parent *Organism) *Genome {
	child := parent.Genome.Clone()
	mc.Mutate(child)
	return child
}
