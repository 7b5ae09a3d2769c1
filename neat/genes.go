package neat

import "fmt"

// NodeKind classifies a node id. Ids are partitioned as
// [0, numInputs) inputs, [numInputs, numInputs+numOutputs) outputs, and hidden above.
type NodeKind int

const (
	InputNode NodeKind = iota
	OutputNode
	HiddenNode
)

func (k NodeKind) String() string {
	switch k {
	case InputNode:
		return "input"
	case OutputNode:
		return "output"
	default:
		return "hidden"
	}
}

// ConnectionKey identifies a directed edge between two nodes.
type ConnectionKey struct {
	InNode  int
	OutNode int
}

// ConnectionGene is a directed, weighted edge carrying a historical innovation number.
// Genes are values: mutating one means replacing it in its genome, never editing
// a shared instance.
type ConnectionGene struct {
	InNode     int     `yaml:"in"`
	OutNode    int     `yaml:"out"`
	Weight     float64 `yaml:"weight"`
	Enabled    bool    `yaml:"enabled"`
	Innovation int     `yaml:"innovation"`
}

// NewConnectionGene returns an enabled gene.
func NewConnectionGene(in, out int, weight float64, innovation int) ConnectionGene {
	return ConnectionGene{InNode: in, OutNode: out, Weight: weight, Enabled: true, Innovation: innovation}
}

// Key returns the (in, out) pair of the gene.
func (cg ConnectionGene) Key() ConnectionKey {
	return ConnectionKey{InNode: cg.InNode, OutNode: cg.OutNode}
}

// WithEnabled returns a copy of the gene with the enabled flag set.
func (cg ConnectionGene) WithEnabled(enabled bool) ConnectionGene {
	cg.Enabled = enabled
	return cg
}

// WithWeight returns a copy of the gene carrying weight.
func (cg ConnectionGene) WithWeight(weight float64) ConnectionGene {
	cg.Weight = weight
	return cg
}

// String returns a string representation of the ConnectionGene.
func (cg ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(%d->%d, Weight: %.3f, Enabled: %t, Inn: %d)",
		cg.InNode, cg.OutNode, cg.Weight, cg.Enabled, cg.Innovation)
}
