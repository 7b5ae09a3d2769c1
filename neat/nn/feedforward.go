package nn

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Edge is an enabled connection handed to the compiler.
// Node ids follow the genome convention: [0, numInputs) are inputs,
// the next numOutputs ids are outputs, everything above is hidden.
type Edge struct {
	In     int
	Out    int
	Weight float64
}

// Link is one weighted source feeding a compiled node.
type Link struct {
	Source int
	Weight float64
	slot   int // index of Source in the activation buffer
}

// Node is a non-input node of a compiled network.
type Node struct {
	ID      int
	Sources []Link
	slot    int
}

// Network is the executable phenotype of a genome: the surviving non-input
// nodes in dependency order. It is immutable once compiled and safe for
// concurrent FeedForward calls.
type Network struct {
	NumInputs  int
	NumOutputs int
	// Nodes holds every node that survived pruning, in evaluation order.
	Nodes []Node

	outputSlots []int // -1 for outputs pruned away
	activation  ActivationFunc
}

// Compile builds a Network from the enabled edges of a genome.
// Nodes left without any source are pruned transitively before ordering.
// A nil activation selects Sigmoid.
//
// Compile panics if the edges contain a cycle: acyclicity is guaranteed by
// the mutation operators, so an unorderable graph is a bug upstream.
func Compile(numInputs, numOutputs int, edges []Edge, activation ActivationFunc) *Network {
	if activation == nil {
		activation = Sigmoid
	}

	sources := make(map[int][]Link)
	for _, e := range edges {
		sources[e.Out] = append(sources[e.Out], Link{Source: e.In, Weight: e.Weight})
	}
	pruneDeadNodes(numInputs, sources)

	net := &Network{
		NumInputs:   numInputs,
		NumOutputs:  numOutputs,
		Nodes:       make([]Node, 0, len(sources)),
		outputSlots: make([]int, numOutputs),
		activation:  activation,
	}

	slots := make(map[int]int, len(sources))
	for _, id := range orderNodes(numInputs, sources) {
		slot := numInputs + len(net.Nodes)
		slots[id] = slot
		links := sources[id]
		for i := range links {
			if links[i].Source < numInputs {
				links[i].slot = links[i].Source
			} else {
				links[i].slot = slots[links[i].Source]
			}
		}
		net.Nodes = append(net.Nodes, Node{ID: id, Sources: links, slot: slot})
	}

	for i := range net.outputSlots {
		if slot, ok := slots[numInputs+i]; ok {
			net.outputSlots[i] = slot
		} else {
			net.outputSlots[i] = -1
		}
	}
	return net
}

// pruneDeadNodes removes nodes whose source list is empty, together with every
// link that references a removed node, until nothing else changes.
func pruneDeadNodes(numInputs int, sources map[int][]Link) {
	for changed := true; changed; {
		changed = false
		for id, links := range sources {
			kept := links[:0]
			for _, l := range links {
				if l.Source < numInputs {
					kept = append(kept, l)
					continue
				}
				if _, alive := sources[l.Source]; alive {
					kept = append(kept, l)
				}
			}
			if len(kept) != len(links) {
				changed = true
			}
			if len(kept) == 0 {
				delete(sources, id)
				changed = true
				continue
			}
			sources[id] = kept
		}
	}
}

// orderNodes returns the non-input node ids of sources in topological order,
// breaking ties by ascending id so compilation is deterministic.
func orderNodes(numInputs int, sources map[int][]Link) []int {
	g := simple.NewDirectedGraph()
	for id := range sources {
		if g.Node(int64(id)) == nil {
			g.AddNode(simple.Node(id))
		}
	}
	for id, links := range sources {
		for _, l := range links {
			if l.Source == id {
				panic(fmt.Sprintf("nn: node %d feeds itself", id))
			}
			g.SetEdge(g.NewEdge(simple.Node(l.Source), simple.Node(id)))
		}
	}

	sorted, err := topo.SortStabilized(g, byID)
	if err != nil {
		panic(fmt.Sprintf("nn: cannot order %d network nodes: %v", len(sources), err))
	}

	order := make([]int, 0, len(sources))
	for _, n := range sorted {
		if id := int(n.ID()); id >= numInputs {
			order = append(order, id)
		}
	}
	return order
}

func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

// FeedForward evaluates the network once for the given input vector and
// returns one value per output id. Outputs with no path from any input read 0.
func (net *Network) FeedForward(inputs []float64) ([]float64, error) {
	if len(inputs) != net.NumInputs {
		return nil, fmt.Errorf("mismatch between input count (%d) and network input nodes (%d)", len(inputs), net.NumInputs)
	}

	activations := make([]float64, net.NumInputs+len(net.Nodes))
	copy(activations, inputs)

	for _, node := range net.Nodes {
		sum := 0.0
		for _, l := range node.Sources {
			sum += activations[l.slot] * l.Weight
		}
		activations[node.slot] = net.activation(sum)
	}

	outputs := make([]float64, net.NumOutputs)
	for i, slot := range net.outputSlots {
		if slot >= 0 {
			outputs[i] = activations[slot]
		}
	}
	return outputs, nil
}

// Activation returns the function applied at every non-input node.
func (net *Network) Activation() ActivationFunc {
	return net.activation
}
