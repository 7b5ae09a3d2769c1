package neat

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// ErrExtinct is returned by Advance when every species has stagnated. The
// population is left exactly as it was before the call.
var ErrExtinct = errors.New("population extinct: every species stagnated")

// Population holds the state of the NEAT evolutionary process.
type Population struct {
	Config       *Config
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Innovations  Innovations
	Generation   int
	BestOrganism *Organism // Best organism found so far
	Seed         uint64

	fitness FitnessFunc
	pcg     *rand.PCG
	rng     *rand.Rand
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures optional Population collaborators.
type Option func(*Population)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Population) { p.logger = logger }
}

// WithMetrics publishes per-generation metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Population) { p.metrics = m }
}

// NewPopulation creates generation zero: PopSize random genomes, evaluated
// with fitness and grouped into species.
func NewPopulation(config *Config, fitness FitnessFunc, opts ...Option) (*Population, error) {
	p, err := newPopulation(config, fitness, opts...)
	if err != nil {
		return nil, err
	}
	p.initialize()
	return p, nil
}

// newPopulation wires the collaborators without creating any organisms.
func newPopulation(config *Config, fitness FitnessFunc, opts ...Option) (*Population, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if fitness == nil {
		return nil, errors.New("fitness function is required")
	}

	seed := config.Neat.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	pcg := rand.NewPCG(seed, seed)

	p := &Population{
		Config:       config,
		SpeciesSet:   NewSpeciesSet(&config.SpeciesSet, &config.Genome),
		Reproduction: NewReproduction(&config.Reproduction, config.Genome.activation()),
		Stagnation:   NewStagnation(&config.Stagnation),
		Innovations:  NewInnovations(config.Genome.NumInputs, config.Genome.NumOutputs),
		Seed:         seed,
		fitness:      fitness,
		pcg:          pcg,
		rng:          rand.New(pcg),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// initialize builds, evaluates and speciates a fresh random population.
// Innovation and UID counters carry on from their current values.
func (p *Population) initialize() {
	start := time.Now()
	mc := NewMutationContext(p.Config, &p.Innovations, p.rng)
	batch := newEvaluationBatch(p.Config.Neat.Workers, p.fitness, p.metrics)

	organisms := make([]*Organism, p.Config.Neat.PopSize)
	for i := range organisms {
		organisms[i] = p.Reproduction.newOrganism(mc.NewInitialGenome())
		batch.dispatch(organisms[i])
	}
	batch.wait()

	p.SpeciesSet.Speciate(organisms, p.rng, p.Generation)
	for _, sp := range p.SpeciesSet.Species {
		sp.updateImprovement(p.Generation)
	}
	p.trackBest(organisms)

	p.logger.Info("initial population created",
		"seed", p.Seed,
		"organisms", len(organisms),
		"species", len(p.SpeciesSet.Species),
		"best_fitness", p.BestOrganism.Fitness,
		"duration", time.Since(start))
	p.metrics.observeGeneration(p, time.Since(start))
}

// Advance runs one full generation: removes stagnant species, breeds and
// evaluates exactly PopSize offspring, re-speciates them and adapts the
// compatibility threshold. If every species is stagnant it returns an error
// wrapping ErrExtinct and changes nothing.
func (p *Population) Advance() error {
	start := time.Now()

	survivors, stagnant := p.Stagnation.Partition(p.SpeciesSet.Species, p.Generation)
	if len(survivors) == 0 {
		p.logger.Warn("all species stagnated", "generation", p.Generation, "species", len(stagnant))
		p.metrics.observeExtinction()
		return fmt.Errorf("generation %d: %w", p.Generation, ErrExtinct)
	}
	for _, sp := range stagnant {
		p.logger.Info("species removed due to stagnation",
			"generation", p.Generation,
			"species_id", sp.ID,
			"last_improved", sp.LastImproved,
			"best_fitness", sp.BestFitness)
	}
	p.SpeciesSet.Species = survivors

	mc := NewMutationContext(p.Config, &p.Innovations, p.rng)
	batch := newEvaluationBatch(p.Config.Neat.Workers, p.fitness, p.metrics)
	offspring := p.Reproduction.Reproduce(mc, survivors, p.Config.Neat.PopSize, batch.dispatch)
	batch.wait()

	p.Generation++
	previous := len(p.SpeciesSet.Species)
	p.SpeciesSet.Speciate(offspring, p.rng, p.Generation)
	p.SpeciesSet.AdaptThreshold()
	for _, sp := range p.SpeciesSet.Species {
		if sp.Created == p.Generation {
			p.logger.Debug("new species", "generation", p.Generation, "species_id", sp.ID, "members", len(sp.Members))
		}
		sp.updateImprovement(p.Generation)
	}
	p.trackBest(offspring)

	elapsed := time.Since(start)
	p.logger.Info("generation complete",
		"generation", p.Generation,
		"organisms", len(offspring),
		"species", len(p.SpeciesSet.Species),
		"species_before", previous,
		"threshold", p.SpeciesSet.Threshold,
		"best_fitness", p.BestOrganism.Fitness,
		"duration", elapsed)
	p.metrics.observeGeneration(p, elapsed)
	return nil
}

// RunGeneration advances one generation and returns the best organism when it
// reaches the fitness threshold. On extinction with ResetOnExtinction set, the
// population is rebuilt from scratch and no error is returned.
func (p *Population) RunGeneration() (*Organism, error) {
	if err := p.Advance(); err != nil {
		if errors.Is(err, ErrExtinct) && p.Config.Neat.ResetOnExtinction {
			p.logger.Warn("resetting population due to extinction", "generation", p.Generation)
			p.reset()
			return nil, nil
		}
		return p.BestOrganism, err
	}
	if winner := p.Winner(); winner != nil {
		return winner, nil
	}
	return nil, nil
}

// Winner returns the best organism if fitness termination is enabled and it
// has reached the threshold.
func (p *Population) Winner() *Organism {
	if p.Config.Neat.NoFitnessTermination || p.BestOrganism == nil {
		return nil
	}
	if p.BestOrganism.Fitness >= p.Config.Neat.FitnessThreshold {
		return p.BestOrganism
	}
	return nil
}

func (p *Population) reset() {
	p.SpeciesSet = NewSpeciesSet(&p.Config.SpeciesSet, &p.Config.Genome)
	p.initialize()
}

// Organisms returns the current generation, species by species.
func (p *Population) Organisms() []*Organism {
	return p.SpeciesSet.Organisms()
}

// Species returns the current species, best first as of the last speciation.
func (p *Population) Species() []*Species {
	return p.SpeciesSet.Species
}

// CurrentBest returns the fittest organism of the current generation.
func (p *Population) CurrentBest() *Organism {
	var best *Organism
	for _, o := range p.Organisms() {
		if best == nil || o.Fitness > best.Fitness {
			best = o
		}
	}
	return best
}

func (p *Population) trackBest(organisms []*Organism) {
	for _, o := range organisms {
		if p.BestOrganism == nil || o.Fitness > p.BestOrganism.Fitness {
			p.BestOrganism = o
			p.logger.Debug("new best organism", "generation", p.Generation, "uid", o.UID, "fitness", o.Fitness)
		}
	}
}
