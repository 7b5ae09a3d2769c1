package neat

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neat-evo/neat/nn"
)

// genomeWithInnovations returns a genome holding one gene per innovation
// number, each from the single input to a distinct output.
func genomeWithInnovations(innovations ...int) *Genome {
	g := NewGenome(1, 20000)
	for _, inn := range innovations {
		g.AddGene(NewConnectionGene(0, inn, 1, inn))
	}
	return g
}

func TestCompatibilityParts(t *testing.T) {
	tests := []struct {
		name                        string
		a, b                        []int
		disjoint, excess, matching int
	}{
		{"no overlap", []int{1, 2, 3, 4}, []int{5, 6, 7, 8}, 4, 4, 0},
		{"interleaved", []int{2, 4, 6, 8, 10}, []int{1, 3, 5, 7, 9}, 9, 1, 0},
		{"one high gene", []int{1, 2, 3, 9}, []int{5, 6, 7, 8}, 7, 1, 0},
		{"identical", []int{1, 2, 3, 4}, []int{1, 2, 3, 4}, 0, 0, 4},
		{"single low gene", []int{1}, []int{2, 3, 4, 5, 6, 7, 8, 9}, 1, 8, 0},
		{"empty", []int{}, []int{2, 3, 4, 5, 6, 7, 8, 9}, 0, 8, 0},
		{"sparse identical", []int{47, 48, 670, 10000}, []int{47, 48, 670, 10000}, 0, 0, 4},
		{"leading disjoint", []int{47, 48, 670, 10000}, []int{1, 47, 48, 670, 10000}, 1, 0, 4},
		{"gaps", []int{1, 2, 3, 4, 5, 8}, []int{1, 2, 3, 4, 5, 6, 7, 9}, 3, 1, 5},
		{"missing prefix", []int{4, 5, 8}, []int{1, 2, 3, 4, 5, 6, 7, 9}, 6, 1, 2},
		{"alternating prefix", []int{2, 4, 5, 8}, []int{1, 3, 4, 5, 6, 7, 9}, 6, 1, 2},
		{"partial prefix", []int{2, 4, 5, 8}, []int{1, 2, 3, 4, 5, 6, 7, 9}, 5, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := genomeWithInnovations(tt.a...), genomeWithInnovations(tt.b...)
			for _, pair := range [][2]*Genome{{a, b}, {b, a}} {
				disjoint, excess, weightDiff, matching := CompatibilityParts(pair[0], pair[1])
				assert.Equal(t, tt.disjoint, disjoint, "disjoint")
				assert.Equal(t, tt.excess, excess, "excess")
				assert.Equal(t, tt.matching, matching, "matching")
				assert.Zero(t, weightDiff)
			}
		})
	}
}

func TestCompatibilityPartsWeightDifference(t *testing.T) {
	a := NewGenome(1, 3)
	a.AddGene(NewConnectionGene(0, 1, 1.5, 1))
	a.AddGene(NewConnectionGene(0, 2, -1, 2))
	b := NewGenome(1, 3)
	b.AddGene(NewConnectionGene(0, 1, 0.5, 1))
	b.AddGene(NewConnectionGene(0, 2, 1, 2))

	_, _, weightDiff, matching := CompatibilityParts(a, b)
	assert.Equal(t, 2, matching)
	assert.InDelta(t, 3.0, weightDiff, 1e-12)
}

func TestDistance(t *testing.T) {
	config := &DefaultConfig().Genome
	a := genomeWithInnovations(1, 2, 3, 4)
	b := genomeWithInnovations(1, 2, 5, 6, 7)

	// 3 and 4 are disjoint; 5, 6 and 7 lie beyond a's last gene.
	disjoint, excess, _, _ := CompatibilityParts(a, b)
	require.Equal(t, 2, disjoint)
	require.Equal(t, 3, excess)

	assert.InDelta(t, (1.0*3+1.0*2)/5, a.Distance(b, config), 1e-12)
	assert.InDelta(t, a.Distance(b, config), b.Distance(a, config), 1e-12)
	assert.Zero(t, a.Distance(a, config))

	config.NormalizeBySize = false
	assert.InDelta(t, 5.0, a.Distance(b, config), 1e-12)
}

func TestDistanceEmptyGenomes(t *testing.T) {
	config := &DefaultConfig().Genome
	assert.Zero(t, NewGenome(2, 1).Distance(NewGenome(2, 1), config))
}

func TestAddGeneKeepsInnovationOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 20; trial++ {
		g := NewGenome(1, 50)
		for _, k := range rng.Perm(50) {
			g.AddGene(NewConnectionGene(0, k+1, 0, k+1))
		}
		require.Len(t, g.Genes, 50)
		for i := range g.Genes {
			assert.Equal(t, i+1, g.Genes[i].Innovation)
		}
		assert.NoError(t, g.Validate())
	}
}

func TestAddGeneTracksHiddenNodes(t *testing.T) {
	g := NewGenome(2, 1)
	g.AddGene(NewConnectionGene(0, 7, 1, 1))
	g.AddGene(NewConnectionGene(7, 2, 1, 2))
	g.AddGene(NewConnectionGene(1, 5, 1, 3))
	g.AddGene(NewConnectionGene(5, 7, 1, 4))

	assert.Equal(t, []int{5, 7}, g.HiddenNodes())
	assert.True(t, g.IsHidden(5))
	assert.True(t, g.IsOutput(2))
	assert.True(t, g.IsInput(1))
	assert.Equal(t, "hidden", g.Kind(7).String())
}

func TestNodeDependsOn(t *testing.T) {
	g := NewGenome(2, 1)
	g.AddGene(NewConnectionGene(0, 3, 1, 1))
	g.AddGene(NewConnectionGene(3, 4, 1, 2))
	g.AddGene(NewConnectionGene(4, 2, 1, 3))
	g.AddGene(NewConnectionGene(1, 5, 1, 4).WithEnabled(false))
	g.AddGene(NewConnectionGene(5, 4, 1, 5))

	assert.True(t, g.NodeDependsOn(2, 0))
	assert.True(t, g.NodeDependsOn(4, 3))
	assert.False(t, g.NodeDependsOn(3, 4))
	assert.False(t, g.NodeDependsOn(2, 6))
	// Reached only through a disabled gene.
	assert.True(t, g.NodeDependsOn(2, 1))

	assert.True(t, g.createsCycle(4, 3))
	assert.True(t, g.createsCycle(4, 5))
	assert.True(t, g.createsCycle(3, 3))
	assert.False(t, g.createsCycle(3, 5))
}

func TestValidate(t *testing.T) {
	valid := func() *Genome {
		g := NewGenome(2, 1)
		g.AddGene(NewConnectionGene(0, 3, 1, 1))
		g.AddGene(NewConnectionGene(3, 2, 1, 2))
		return g
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		breaks func(g *Genome)
		errMsg string
	}{
		{"out of order", func(g *Genome) { g.Genes[0], g.Genes[1] = g.Genes[1], g.Genes[0] }, "out of order"},
		{"duplicate innovation", func(g *Genome) { g.Genes[1].Innovation = 1 }, "duplicate innovation"},
		{"duplicate edge", func(g *Genome) {
			g.Genes = append(g.Genes, NewConnectionGene(0, 3, 2, 3))
		}, "duplicate connection"},
		{"output as source", func(g *Genome) {
			g.Genes = append(g.Genes, NewConnectionGene(2, 3, 1, 3))
		}, "output node 2 used as a source"},
		{"input as target", func(g *Genome) {
			g.Genes = append(g.Genes, NewConnectionGene(0, 1, 1, 3))
		}, "input node 1 used as a target"},
		{"unrecorded hidden", func(g *Genome) { delete(g.Hidden, 3) }, "referenced but not recorded"},
		{"orphan hidden", func(g *Genome) { g.Hidden[9] = struct{}{} }, "no references"},
		{"cycle", func(g *Genome) {
			g.Hidden[4] = struct{}{}
			g.Genes = append(g.Genes,
				NewConnectionGene(3, 4, 1, 3),
				NewConnectionGene(4, 3, 1, 4).WithEnabled(false))
		}, "closes a cycle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := valid()
			tt.breaks(g)
			err := g.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Panics(t, func() { g.mustValidate("test") })
		})
	}
}

func TestReplaceGeneRejectsDifferentGene(t *testing.T) {
	g := genomeWithInnovations(1, 2)
	g.replaceGene(0, g.Genes[0].WithWeight(3))
	assert.Equal(t, 3.0, g.Genes[0].Weight)

	assert.Panics(t, func() { g.replaceGene(0, NewConnectionGene(0, 5, 1, 1)) })
	assert.Panics(t, func() { g.replaceGene(0, g.Genes[1]) })
}

func TestCloneIsIndependent(t *testing.T) {
	g := NewGenome(2, 1)
	g.AddGene(NewConnectionGene(0, 3, 1, 1))
	g.AddGene(NewConnectionGene(3, 2, 1, 2))

	c := g.Clone()
	require.Equal(t, g.Genes, c.Genes)
	require.Equal(t, g.Hidden, c.Hidden)

	c.replaceGene(0, c.Genes[0].WithEnabled(false))
	c.AddGene(NewConnectionGene(1, 2, 1, 3))
	c.Hidden[4] = struct{}{}

	assert.True(t, g.Genes[0].Enabled)
	assert.Len(t, g.Genes, 2)
	assert.NotContains(t, g.Hidden, 4)
}

func TestGenomeCompileUsesEnabledGenesOnly(t *testing.T) {
	g := NewGenome(2, 1)
	g.AddGene(NewConnectionGene(0, 2, 1, 1))
	g.AddGene(NewConnectionGene(1, 2, 5, 2).WithEnabled(false))

	net := g.Compile(nn.Identity)
	out, err := net.FeedForward([]float64{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, out)
	assert.Equal(t, 1, g.EnabledCount())
}

func TestGenomeString(t *testing.T) {
	g := genomeWithInnovations(1)
	assert.Contains(t, g.String(), "1 in, 20000 out, 0 hidden nodes, 1/1 enabled connections")
	assert.Contains(t, g.String(), "ConnGene(0->1")
}
