package neat

// Stagnation manages the detection of stagnant species.
type Stagnation struct {
	Config *StagnationConfig
}

// NewStagnation creates a new stagnation manager.
func NewStagnation(config *StagnationConfig) *Stagnation {
	return &Stagnation{Config: config}
}

// IsStagnant reports whether sp has gone more than MaxStagnation generations
// without improving its best fitness.
func (s *Stagnation) IsStagnant(sp *Species, generation int) bool {
	return generation-sp.LastImproved > s.Config.MaxStagnation
}

// Partition splits species into survivors and stagnant ones, preserving order.
func (s *Stagnation) Partition(species []*Species, generation int) (survivors, stagnant []*Species) {
	for _, sp := range species {
		if s.IsStagnant(sp, generation) {
			stagnant = append(stagnant, sp)
		} else {
			survivors = append(survivors, sp)
		}
	}
	return survivors, stagnant
}
