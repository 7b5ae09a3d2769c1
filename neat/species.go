package neat

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Species represents a group of genetically similar organisms.
type Species struct {
	ID             int         // Unique identifier for the species.
	Created        int         // Generation number when the species was created.
	LastImproved   int         // Last generation where the best fitness improved.
	BestFitness    float64     // Best member fitness ever observed.
	Representative *Genome     // Private copy used for compatibility checks.
	Members        []*Organism // Current members, in assignment order.
}

// NewSpecies creates a species seeded by founder, whose genome is cloned as the
// representative.
func NewSpecies(id, generation int, founder *Organism) *Species {
	return &Species{
		ID:             id,
		Created:        generation,
		LastImproved:   generation,
		BestFitness:    math.Inf(-1),
		Representative: founder.Genome.Clone(),
		Members:        []*Organism{founder},
	}
}

// AverageFitness returns the mean member fitness, or 0 with no members.
func (s *Species) AverageFitness() float64 {
	return mean(fitnesses(s.Members))
}

// Champion returns the fittest member. Ties go to the earliest member.
func (s *Species) Champion() *Organism {
	var best *Organism
	for _, o := range s.Members {
		if best == nil || o.Fitness > best.Fitness {
			best = o
		}
	}
	return best
}

// sortedMembers returns the members ordered by descending fitness.
func (s *Species) sortedMembers() []*Organism {
	sorted := append([]*Organism(nil), s.Members...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Fitness > sorted[j].Fitness })
	return sorted
}

// updateImprovement records generation as the last improvement when a member
// beats the best fitness seen so far. Reports whether it did.
func (s *Species) updateImprovement(generation int) bool {
	best := maxFloat(fitnesses(s.Members))
	if best > s.BestFitness {
		s.BestFitness = best
		s.LastImproved = generation
		return true
	}
	return false
}

// --------------------------- SpeciesSet ---------------------------

// SpeciesSet manages the collection of species within a population.
type SpeciesSet struct {
	Species   []*Species
	Indexer   int     // Next species ID (starts at 1).
	Threshold float64 // Current compatibility threshold, adapted every generation.

	config       *SpeciesSetConfig
	genomeConfig *GenomeConfig
}

// NewSpeciesSet creates a new species set manager.
func NewSpeciesSet(config *SpeciesSetConfig, genomeConfig *GenomeConfig) *SpeciesSet {
	return &SpeciesSet{
		Indexer:      1,
		Threshold:    config.CompatibilityThreshold,
		config:       config,
		genomeConfig: genomeConfig,
	}
}

// Speciate assigns every organism in population to a species. Existing species
// are visited best-first, each with a fresh representative cloned from a random
// former member. An organism joins the first species whose representative is
// within the threshold, or founds a new one. Species left empty are dropped.
func (ss *SpeciesSet) Speciate(population []*Organism, rng *rand.Rand, generation int) {
	sort.SliceStable(ss.Species, func(i, j int) bool {
		return ss.Species[i].BestFitness > ss.Species[j].BestFitness
	})
	for _, sp := range ss.Species {
		if len(sp.Members) > 0 {
			sp.Representative = sp.Members[rng.IntN(len(sp.Members))].Genome.Clone()
		}
		sp.Members = nil
	}

	for _, o := range population {
		if sp := ss.find(o.Genome); sp != nil {
			sp.Members = append(sp.Members, o)
			continue
		}
		ss.Species = append(ss.Species, NewSpecies(ss.Indexer, generation, o))
		ss.Indexer++
	}

	alive := ss.Species[:0]
	for _, sp := range ss.Species {
		if len(sp.Members) > 0 {
			alive = append(alive, sp)
		}
	}
	clear(ss.Species[len(alive):])
	ss.Species = alive
}

func (ss *SpeciesSet) find(g *Genome) *Species {
	for _, sp := range ss.Species {
		if g.Distance(sp.Representative, ss.genomeConfig) < ss.Threshold {
			return sp
		}
	}
	return nil
}

// AdaptThreshold nudges the compatibility threshold towards the target species
// band: up when there are too many species, down when there are too few.
func (ss *SpeciesSet) AdaptThreshold() {
	switch n := len(ss.Species); {
	case n > ss.config.TargetSpeciesMax:
		ss.Threshold += ss.config.ThresholdStep
	case n < ss.config.TargetSpeciesMin:
		ss.Threshold = math.Max(ss.config.ThresholdMin, ss.Threshold-ss.config.ThresholdStep)
	}
}

// Organisms returns every member of every species, species by species.
func (ss *SpeciesSet) Organisms() []*Organism {
	var all []*Organism
	for _, sp := range ss.Species {
		all = append(all, sp.Members...)
	}
	return all
}

// Get returns the species with the given ID.
func (ss *SpeciesSet) Get(id int) (*Species, bool) {
	for _, sp := range ss.Species {
		if sp.ID == id {
			return sp, true
		}
	}
	return nil, false
}
