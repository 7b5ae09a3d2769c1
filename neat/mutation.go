package neat

// AddConnection tries to add one new connection to g. Candidate pairs are
// drawn from {inputs, hidden} x {outputs, hidden} in random order; the first
// legal one wins. A pair already present as a disabled gene is re-enabled with
// a fresh weight and keeps its innovation number. Returns false, leaving g
// untouched, when no legal pair exists.
func (mc *MutationContext) AddConnection(g *Genome) bool {
	hidden := g.HiddenNodes()

	sources := make([]int, 0, g.NumInputs+len(hidden))
	for i := 0; i < g.NumInputs; i++ {
		sources = append(sources, i)
	}
	sources = append(sources, hidden...)

	targets := make([]int, 0, g.NumOutputs+len(hidden))
	for i := g.NumInputs; i < g.NumInputs+g.NumOutputs; i++ {
		targets = append(targets, i)
	}
	targets = append(targets, hidden...)

	for _, k := range mc.rng.Perm(len(sources) * len(targets)) {
		in, out := sources[k/len(targets)], targets[k%len(targets)]
		if in == out {
			continue
		}

		key := ConnectionKey{InNode: in, OutNode: out}
		if idx := g.indexOf(key); idx >= 0 {
			if g.Genes[idx].Enabled {
				continue
			}
			g.replaceGene(idx, g.Genes[idx].WithEnabled(true).WithWeight(mc.sampleWeight()))
			return true
		}

		// Only hidden->hidden edges can close a loop: inputs have no
		// predecessors and outputs have no successors.
		if g.IsHidden(in) && g.IsHidden(out) && g.NodeDependsOn(in, out) {
			continue
		}

		g.AddGene(NewConnectionGene(in, out, mc.sampleWeight(), mc.connectionInnovation(key)))
		return true
	}
	return false
}

// AddNode splits a random enabled connection in->out: the original gene is
// disabled and replaced by in->new (weight 1) and new->out (the original
// weight). Connections leaving the bias input are never split. Returns false
// when g has no connection to split.
func (mc *MutationContext) AddNode(g *Genome) bool {
	bias := mc.config.Genome.BiasInput
	candidates := make([]int, 0, len(g.Genes))
	for i, gene := range g.Genes {
		if gene.Enabled && !(bias >= 0 && gene.InNode == bias) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return false
	}

	idx := candidates[mc.rng.IntN(len(candidates))]
	gene := g.Genes[idx]
	split := mc.splitInnovation(g, gene.Innovation)

	g.replaceGene(idx, gene.WithEnabled(false))
	g.AddGene(NewConnectionGene(gene.InNode, split.node, 1, split.firstInnovation))
	g.AddGene(NewConnectionGene(split.node, gene.OutNode, gene.Weight, split.firstInnovation+1))
	return true
}

// MutateWeights walks every gene and either perturbs its weight by a uniform
// amount in [-power, power] or, failing that, replaces it with a fresh sample.
// Results are clamped to the configured weight range.
func (mc *MutationContext) MutateWeights(g *Genome) {
	cfg := &mc.config.Genome
	for i, gene := range g.Genes {
		var w float64
		switch {
		case mc.rng.Float64() < cfg.WeightPerturbProb:
			w = gene.Weight + (mc.rng.Float64()*2-1)*cfg.WeightPerturbPower
		case mc.rng.Float64() < cfg.WeightReplaceProb:
			w = mc.weights.Rand()
		default:
			continue
		}
		g.replaceGene(i, gene.WithWeight(clamp(w, cfg.WeightMinValue, cfg.WeightMaxValue)))
	}
}

// Mutate applies the configured structural and weight mutations to g.
func (mc *MutationContext) Mutate(g *Genome) {
	cfg := &mc.config.Genome

	structural := false
	if mc.rng.Float64() < cfg.NodeAddProb {
		structural = mc.AddNode(g)
	}
	if !(cfg.SingleStructuralMutation && structural) && mc.rng.Float64() < cfg.ConnAddProb {
		mc.AddConnection(g)
	}
	if mc.rng.Float64() < cfg.WeightMutateProb {
		mc.MutateWeights(g)
	}
}

// NewInitialGenome builds a generation-zero genome: a handful of random
// connections and, occasionally, one split.
func (mc *MutationContext) NewInitialGenome() *Genome {
	cfg := &mc.config.Genome
	g := NewGenome(cfg.NumInputs, cfg.NumOutputs)

	n := cfg.InitialConnectionsMin + mc.rng.IntN(cfg.InitialConnectionsMax-cfg.InitialConnectionsMin+1)
	for i := 0; i < n; i++ {
		if !mc.AddConnection(g) {
			break
		}
	}
	if mc.rng.Float64() < cfg.InitialNodeAddProb {
		mc.AddNode(g)
	}
	return g
}
