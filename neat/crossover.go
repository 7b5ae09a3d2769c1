package neat

// Crossover produces a child genome from two parents. Matching genes are always
// inherited; disjoint and excess genes come from the fitter parent only, or
// from either with even odds when fitness is tied. A gene whose edge is
// already in the child or would close a cycle there is skipped.
func (mc *MutationContext) Crossover(a, b *Organism) *Genome {
	ga, gb := a.Genome.Genes, b.Genome.Genes

	// 1: a is fitter, -1: b is fitter, 0: tie.
	fitter := 0
	switch {
	case a.Fitness > b.Fitness:
		fitter = 1
	case b.Fitness > a.Fitness:
		fitter = -1
	}

	child := NewGenome(a.Genome.NumInputs, a.Genome.NumOutputs)
	i, j := 0, 0
	for i < len(ga) || j < len(gb) {
		switch {
		case j == len(gb) || (i < len(ga) && ga[i].Innovation < gb[j].Innovation):
			if mc.inheritUnmatched(fitter, 1) {
				mc.inherit(child, ga[i])
			}
			i++
		case i == len(ga) || gb[j].Innovation < ga[i].Innovation:
			if mc.inheritUnmatched(fitter, -1) {
				mc.inherit(child, gb[j])
			}
			j++
		default:
			mc.inherit(child, mc.mergeMatching(ga[i], gb[j]))
			i++
			j++
		}
	}

	child.mustValidate("Crossover")
	return child
}

// inheritUnmatched decides whether a gene present only in the parent on the
// given side is passed on.
func (mc *MutationContext) inheritUnmatched(fitter, side int) bool {
	if fitter == 0 {
		return mc.rng.Float64() < 0.5
	}
	return fitter == side
}

// mergeMatching combines two genes sharing an innovation number.
func (mc *MutationContext) mergeMatching(x, y ConnectionGene) ConnectionGene {
	rc := &mc.config.Reproduction

	gene := x
	if mc.rng.Float64() < rc.MateAverageProb {
		gene.Weight = (x.Weight + y.Weight) / 2
	} else if mc.rng.Float64() < 0.5 {
		gene.Weight = y.Weight
	}

	gene.Enabled = true
	if !x.Enabled || !y.Enabled {
		gene.Enabled = mc.rng.Float64() >= rc.DisabledInheritProb
	}
	return gene
}

func (mc *MutationContext) inherit(child *Genome, gene ConnectionGene) {
	if child.HasConnection(gene.InNode, gene.OutNode) || child.createsCycle(gene.InNode, gene.OutNode) {
		return
	}
	child.AddGene(gene)
}
