package neat

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neat-evo/neat/nn"
)

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func TestApportion(t *testing.T) {
	tests := []struct {
		name     string
		averages []float64
		popSize  int
		want     []int
	}{
		{"proportional", []float64{3, 1}, 8, []int{6, 2}},
		{"even thirds", []float64{1, 1, 1}, 9, []int{3, 3, 3}},
		{"all zero splits evenly", []float64{0, 0, 0, 0}, 8, []int{2, 2, 2, 2}},
		{"single species", []float64{0.3}, 500, []int{500}},
		{"zero species", nil, 10, []int{}},
		{"one fit species", []float64{0, 5, 0}, 7, []int{0, 7, 0}},
		{"huge equal averages", []float64{1e308, 1e308}, 10, []int{5, 5}},
		{"huge and tiny averages", []float64{1e306, 1}, 500, []int{500, 0}},
		{"infinite average", []float64{math.Inf(1), 1}, 4, []int{4, 0}},
		{"NaN average counts as zero", []float64{math.NaN(), 2}, 6, []int{0, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apportion(tt.averages, tt.popSize))
		})
	}
}

func TestApportionAlwaysSumsToPopSize(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	for trial := 0; trial < 500; trial++ {
		averages := make([]float64, 1+rng.IntN(30))
		for i := range averages {
			if rng.Float64() < 0.8 {
				averages[i] = rng.Float64() * 100
			}
		}
		popSize := 1 + rng.IntN(1000)

		quotas := Apportion(averages, popSize)
		require.Equal(t, popSize, sum(quotas), "averages %v", averages)

		total := 0.0
		for _, a := range averages {
			total += a
		}
		for i, q := range quotas {
			require.GreaterOrEqual(t, q, 0)
			exact := float64(popSize) / float64(len(averages))
			if total > 0 {
				exact = averages[i] / total * float64(popSize)
			}
			assert.InDelta(t, exact, float64(q), 2.0)
		}
	}
}

// speciesOf builds a species whose members have the given fitness values and
// structurally identical genomes.
func speciesOf(id int, uid *int, fitness ...float64) *Species {
	var sp *Species
	for _, f := range fitness {
		g := NewGenome(2, 1)
		g.AddGene(NewConnectionGene(0, 2, 1, 1))
		g.AddGene(NewConnectionGene(1, 2, 1, 2))
		o := organismWith(*uid, g, f)
		*uid++
		if sp == nil {
			sp = NewSpecies(id, 0, o)
			continue
		}
		sp.Members = append(sp.Members, o)
	}
	return sp
}

func TestReproduceProducesExactlyPopSize(t *testing.T) {
	config := testConfig(2, 1)
	config.Reproduction.ElitismMinSpeciesSize = 5
	mc, counters := newTestContext(config, 3)
	counters.NextInnovation = 3

	uid := 1
	big := speciesOf(1, &uid, 1, 4, 9, 2, 2, 3, 1)
	small := speciesOf(2, &uid, 5, 5)
	r := NewReproduction(&config.Reproduction, nn.Sigmoid)
	r.NextUID = uid

	dispatched := map[*Organism]bool{}
	offspring := r.Reproduce(mc, []*Species{big, small}, 20, func(o *Organism) {
		assert.False(t, o.Evaluated())
		dispatched[o] = true
	})

	require.Len(t, offspring, 20)
	champion := big.Champion()
	assert.Contains(t, offspring, champion, "champion of a large species survives unchanged")
	assert.Equal(t, 9.0, champion.Fitness)
	assert.Len(t, dispatched, 19, "elites are not re-evaluated")
	assert.False(t, dispatched[champion])

	uids := map[int]bool{}
	for _, o := range offspring {
		assert.False(t, uids[o.UID], "duplicate uid %d", o.UID)
		uids[o.UID] = true
		require.NoError(t, o.Genome.Validate())
		if o != champion {
			assert.GreaterOrEqual(t, o.UID, 10)
		}
	}
}

func TestReproduceSkipsEliteWhenSpeciesIsSmall(t *testing.T) {
	config := testConfig(2, 1)
	config.Reproduction.ElitismMinSpeciesSize = 5
	mc, counters := newTestContext(config, 3)
	counters.NextInnovation = 3

	uid := 1
	sp := speciesOf(1, &uid, 3, 2, 1, 4, 5)
	r := NewReproduction(&config.Reproduction, nn.Sigmoid)
	r.NextUID = uid

	count := 0
	offspring := r.Reproduce(mc, []*Species{sp}, 10, func(*Organism) { count++ })
	assert.Len(t, offspring, 10)
	assert.Equal(t, 10, count)
	for _, o := range offspring {
		assert.NotContains(t, sp.Members, o)
	}
}

func TestParentsAreTopFraction(t *testing.T) {
	config := testConfig(2, 1)
	config.Reproduction.SurvivalThreshold = 0.4
	r := NewReproduction(&config.Reproduction, nn.Sigmoid)

	uid := 1
	sp := speciesOf(1, &uid, 1, 7, 3, 9, 5, 2)
	parents := r.parents(sp)
	require.Len(t, parents, 3)
	assert.Equal(t, []float64{9, 7, 5}, fitnesses(parents))

	config.Reproduction.SurvivalThreshold = 0.01
	assert.Len(t, r.parents(sp), 1)
}

func TestBreedChoosesDistinctSecondParent(t *testing.T) {
	config := testConfig(2, 1)
	config.Reproduction.MutateOnlyProb = 0
	config.Reproduction.InterspeciesMateRate = 0
	mc, _ := newTestContext(config, 8)
	r := NewReproduction(&config.Reproduction, nn.Sigmoid)

	// Parents differ only in which weight they carry, so a child with both
	// weights equal to one parent's value was bred from that parent alone.
	a, b := NewGenome(2, 1), NewGenome(2, 1)
	a.AddGene(NewConnectionGene(0, 2, 1, 1))
	b.AddGene(NewConnectionGene(0, 2, 3, 1))
	config.Reproduction.MateAverageProb = 1
	pools := [][]*Organism{{organismWith(1, a, 1), organismWith(2, b, 1)}}

	for i := 0; i < 50; i++ {
		child := r.breed(mc, pools, 0)
		assert.Equal(t, 2.0, child.Genes[0].Weight)
	}

	// A single-member pool falls back to mutation.
	config.Genome.WeightMutateProb = 0
	config.Genome.ConnAddProb = 0
	config.Genome.NodeAddProb = 0
	single := [][]*Organism{{organismWith(3, a, 1)}}
	child := r.breed(mc, single, 0)
	assert.Equal(t, a.Genes, child.Genes)
	assert.NotSame(t, a, child)
}

func TestBreedInterspecies(t *testing.T) {
	config := testConfig(2, 1)
	config.Reproduction.MutateOnlyProb = 0
	config.Reproduction.InterspeciesMateRate = 1
	config.Reproduction.MateAverageProb = 1
	mc, _ := newTestContext(config, 8)
	r := NewReproduction(&config.Reproduction, nn.Sigmoid)

	a, b := NewGenome(2, 1), NewGenome(2, 1)
	a.AddGene(NewConnectionGene(0, 2, 1, 1))
	b.AddGene(NewConnectionGene(0, 2, 5, 1))
	pools := [][]*Organism{{organismWith(1, a, 1)}, {organismWith(2, b, 1)}}

	for i := 0; i < 20; i++ {
		assert.Equal(t, 3.0, r.breed(mc, pools, 0).Genes[0].Weight)
		assert.Equal(t, 3.0, r.breed(mc, pools, 1).Genes[0].Weight)
	}
}
