package neat

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/baldhumanity/neat-evo/neat/nn"
)

// Genome is the genetic encoding of a network: input/output counts plus
// connection genes kept strictly ascending by innovation number.
//
// Invariants (checked by Validate):
//  1. Genes is strictly ascending by Innovation.
//  2. No two genes share an innovation number or an (in, out) pair.
//  3. Hidden is exactly the set of hidden ids referenced by some gene.
//  4. The graph of all genes, enabled or not, is acyclic.
type Genome struct {
	NumInputs  int
	NumOutputs int
	Hidden     map[int]struct{}
	Genes      []ConnectionGene
}

// NewGenome creates an empty genome with no connections and no hidden nodes.
func NewGenome(numInputs, numOutputs int) *Genome {
	return &Genome{
		NumInputs:  numInputs,
		NumOutputs: numOutputs,
		Hidden:     make(map[int]struct{}),
	}
}

// Clone returns a deep copy that shares no state with g.
func (g *Genome) Clone() *Genome {
	c := &Genome{
		NumInputs:  g.NumInputs,
		NumOutputs: g.NumOutputs,
		Hidden:     make(map[int]struct{}, len(g.Hidden)),
		Genes:      make([]ConnectionGene, len(g.Genes)),
	}
	for id := range g.Hidden {
		c.Hidden[id] = struct{}{}
	}
	copy(c.Genes, g.Genes)
	return c
}

// Kind reports whether node is an input, output or hidden node.
func (g *Genome) Kind(node int) NodeKind {
	switch {
	case node < g.NumInputs:
		return InputNode
	case node < g.NumInputs+g.NumOutputs:
		return OutputNode
	default:
		return HiddenNode
	}
}

func (g *Genome) IsInput(node int) bool  { return g.Kind(node) == InputNode }
func (g *Genome) IsOutput(node int) bool { return g.Kind(node) == OutputNode }
func (g *Genome) IsHidden(node int) bool { return g.Kind(node) == HiddenNode }

// HiddenNodes returns the hidden node ids in ascending order.
func (g *Genome) HiddenNodes() []int {
	ids := make([]int, 0, len(g.Hidden))
	for id := range g.Hidden {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AddGene inserts gene at the position that keeps Genes ascending by innovation
// number and records any hidden endpoint. Callers must only add legal genes;
// builds tagged neatdebug verify every invariant afterwards and panic on failure.
func (g *Genome) AddGene(gene ConnectionGene) {
	if g.IsHidden(gene.InNode) {
		g.Hidden[gene.InNode] = struct{}{}
	}
	if g.IsHidden(gene.OutNode) {
		g.Hidden[gene.OutNode] = struct{}{}
	}

	n := len(g.Genes)
	if n == 0 || g.Genes[n-1].Innovation < gene.Innovation {
		g.Genes = append(g.Genes, gene)
	} else {
		i := sort.Search(n, func(i int) bool { return g.Genes[i].Innovation >= gene.Innovation })
		g.Genes = append(g.Genes, ConnectionGene{})
		copy(g.Genes[i+1:], g.Genes[i:])
		g.Genes[i] = gene
	}

	if checkedBuild {
		g.mustValidate("AddGene")
	}
}

// replaceGene swaps the gene at index i for a new value describing the same
// edge and innovation, e.g. the same gene disabled or re-weighted.
func (g *Genome) replaceGene(i int, gene ConnectionGene) {
	old := g.Genes[i]
	if old.Innovation != gene.Innovation || old.Key() != gene.Key() {
		panic(fmt.Sprintf("replaceGene: %v cannot replace %v", gene, old))
	}
	g.Genes[i] = gene
}

// indexOf returns the position of the gene for key, or -1.
func (g *Genome) indexOf(key ConnectionKey) int {
	for i, gene := range g.Genes {
		if gene.InNode == key.InNode && gene.OutNode == key.OutNode {
			return i
		}
	}
	return -1
}

// HasConnection reports whether any gene, enabled or not, joins in to out.
func (g *Genome) HasConnection(in, out int) bool {
	return g.indexOf(ConnectionKey{InNode: in, OutNode: out}) >= 0
}

// incoming maps every node to the sources of its genes, enabled or not.
func (g *Genome) incoming() map[int][]int {
	in := make(map[int][]int)
	for _, gene := range g.Genes {
		in[gene.OutNode] = append(in[gene.OutNode], gene.InNode)
	}
	return in
}

// NodeDependsOn reports whether possibleAncestor reaches node by following genes
// backwards. Disabled genes count: they are still committed structure.
func (g *Genome) NodeDependsOn(node, possibleAncestor int) bool {
	return dependsOn(g.incoming(), node, possibleAncestor)
}

func dependsOn(incoming map[int][]int, node, possibleAncestor int) bool {
	stack := append([]int(nil), incoming[node]...)
	visited := make(map[int]bool)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == possibleAncestor {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		stack = append(stack, incoming[n]...)
	}
	return false
}

// createsCycle reports whether adding in->out to g would close a loop.
func (g *Genome) createsCycle(in, out int) bool {
	return in == out || g.NodeDependsOn(in, out)
}

// Validate checks the genome invariants and returns the first violation found.
func (g *Genome) Validate() error {
	seenEdges := make(map[ConnectionKey]int, len(g.Genes))
	referenced := make(map[int]struct{})
	for i, gene := range g.Genes {
		if i > 0 && g.Genes[i-1].Innovation >= gene.Innovation {
			if g.Genes[i-1].Innovation == gene.Innovation {
				return fmt.Errorf("duplicate innovation number %d", gene.Innovation)
			}
			return fmt.Errorf("genes out of order at index %d: innovation %d follows %d", i, gene.Innovation, g.Genes[i-1].Innovation)
		}
		if prev, dup := seenEdges[gene.Key()]; dup {
			return fmt.Errorf("duplicate connection %d->%d (innovations %d and %d)", gene.InNode, gene.OutNode, prev, gene.Innovation)
		}
		seenEdges[gene.Key()] = gene.Innovation

		if gene.InNode < 0 || gene.OutNode < 0 {
			return fmt.Errorf("negative node id in %v", gene)
		}
		if g.IsOutput(gene.InNode) {
			return fmt.Errorf("output node %d used as a source in %v", gene.InNode, gene)
		}
		if g.IsInput(gene.OutNode) {
			return fmt.Errorf("input node %d used as a target in %v", gene.OutNode, gene)
		}
		for _, id := range [2]int{gene.InNode, gene.OutNode} {
			if g.IsHidden(id) {
				referenced[id] = struct{}{}
			}
		}
	}

	for id := range referenced {
		if _, ok := g.Hidden[id]; !ok {
			return fmt.Errorf("hidden node %d is referenced but not recorded", id)
		}
	}
	for id := range g.Hidden {
		if _, ok := referenced[id]; !ok {
			return fmt.Errorf("hidden node %d is recorded but has no references", id)
		}
	}

	incoming := g.incoming()
	for _, gene := range g.Genes {
		if gene.InNode == gene.OutNode || dependsOn(incoming, gene.InNode, gene.OutNode) {
			return fmt.Errorf("connection %d->%d closes a cycle", gene.InNode, gene.OutNode)
		}
	}
	return nil
}

// mustValidate panics when an invariant is broken; op names the caller.
func (g *Genome) mustValidate(op string) {
	if err := g.Validate(); err != nil {
		panic(fmt.Sprintf("%s: genome invariant violated: %v\n%s", op, err, g))
	}
}

// CompatibilityParts merges the ascending gene sequences of a and b and returns
// the counts used by the compatibility distance. Genes skipped while both
// sequences still have genes are disjoint; whatever remains once one sequence
// is exhausted is excess. The result does not depend on argument order.
func CompatibilityParts(a, b *Genome) (numDisjoint, numExcess int, weightDiff float64, numMatching int) {
	i, j := 0, 0
	for {
		if i == len(a.Genes) {
			numExcess = len(b.Genes) - j
			return
		}
		if j == len(b.Genes) {
			numExcess = len(a.Genes) - i
			return
		}
		ga, gb := a.Genes[i], b.Genes[j]
		switch {
		case ga.Innovation < gb.Innovation:
			numDisjoint++
			i++
		case gb.Innovation < ga.Innovation:
			numDisjoint++
			j++
		default:
			numMatching++
			weightDiff += math.Abs(ga.Weight - gb.Weight)
			i++
			j++
		}
	}
}

// Distance calculates the compatibility distance between this genome and another:
// c1*E + c2*D + c3*W/max(1,M), with the structural terms divided by the larger
// gene count when NormalizeBySize is set.
func (g *Genome) Distance(other *Genome, config *GenomeConfig) float64 {
	disjoint, excess, weightDiff, matching := CompatibilityParts(g, other)

	structural := config.CompatibilityExcessCoefficient*float64(excess) +
		config.CompatibilityDisjointCoefficient*float64(disjoint)
	if config.NormalizeBySize {
		structural /= math.Max(1, float64(max(len(g.Genes), len(other.Genes))))
	}
	return structural + config.CompatibilityWeightCoefficient*weightDiff/math.Max(1, float64(matching))
}

// Compile builds the feed-forward phenotype from the enabled genes.
func (g *Genome) Compile(activation nn.ActivationFunc) *nn.Network {
	edges := make([]nn.Edge, 0, len(g.Genes))
	for _, gene := range g.Genes {
		if gene.Enabled {
			edges = append(edges, nn.Edge{In: gene.InNode, Out: gene.OutNode, Weight: gene.Weight})
		}
	}
	return nn.Compile(g.NumInputs, g.NumOutputs, edges, activation)
}

// EnabledCount returns the number of enabled genes.
func (g *Genome) EnabledCount() int {
	n := 0
	for _, gene := range g.Genes {
		if gene.Enabled {
			n++
		}
	}
	return n
}

// String returns a one-line summary followed by one line per gene.
func (g *Genome) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d in, %d out, %d hidden nodes, %d/%d enabled connections",
		g.NumInputs, g.NumOutputs, len(g.Hidden), g.EnabledCount(), len(g.Genes))
	for _, gene := range g.Genes {
		sb.WriteString("\n  ")
		sb.WriteString(gene.String())
	}
	return sb.String()
}
