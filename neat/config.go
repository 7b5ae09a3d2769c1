package neat

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/baldhumanity/neat-evo/neat/nn"
)

// Config stores the configuration parameters for the NEAT algorithm.
type Config struct {
	Neat         NeatConfig
	Genome       GenomeConfig
	Reproduction ReproductionConfig
	SpeciesSet   SpeciesSetConfig
	Stagnation   StagnationConfig
}

// NeatConfig holds parameters specific to the NEAT algorithm itself.
type NeatConfig struct {
	PopSize              int     `ini:"pop_size"`
	FitnessThreshold     float64 `ini:"fitness_threshold"`
	NoFitnessTermination bool    `ini:"no_fitness_termination"`
	ResetOnExtinction    bool    `ini:"reset_on_extinction"`
	Seed                 uint64  `ini:"seed"`    // 0 picks a random seed
	Workers              int     `ini:"workers"` // concurrent evaluations; 0 means GOMAXPROCS
}

// GenomeConfig holds parameters specific to the structure and mutation of genomes.
type GenomeConfig struct {
	NumInputs  int    `ini:"num_inputs"`
	NumOutputs int    `ini:"num_outputs"`
	BiasInput  int    `ini:"bias_input"` // input id never split by add-node; -1 for none
	Activation string `ini:"activation"`

	// Generation zero.
	InitialConnectionsMin int     `ini:"initial_connections_min"`
	InitialConnectionsMax int     `ini:"initial_connections_max"`
	InitialNodeAddProb    float64 `ini:"initial_node_add_prob"`

	CompatibilityExcessCoefficient   float64 `ini:"compatibility_excess_coefficient"`   // c1
	CompatibilityDisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient"` // c2
	CompatibilityWeightCoefficient   float64 `ini:"compatibility_weight_coefficient"`   // c3
	NormalizeBySize                  bool    `ini:"normalize_by_size"`

	ConnAddProb              float64 `ini:"conn_add_prob"`
	NodeAddProb              float64 `ini:"node_add_prob"`
	SingleStructuralMutation bool    `ini:"single_structural_mutation"`

	WeightInitMean     float64 `ini:"weight_init_mean"`
	WeightInitStdev    float64 `ini:"weight_init_stdev"`
	WeightMutateProb   float64 `ini:"weight_mutate_prob"`   // chance a genome's weights are mutated at all
	WeightPerturbProb  float64 `ini:"weight_perturb_prob"`  // per gene
	WeightPerturbPower float64 `ini:"weight_perturb_power"` // perturbation is uniform in [-power, power]
	WeightReplaceProb  float64 `ini:"weight_replace_prob"`  // per gene, when not perturbed
	WeightMinValue     float64 `ini:"weight_min_value"`
	WeightMaxValue     float64 `ini:"weight_max_value"`
}

// ReproductionConfig holds parameters related to reproduction.
type ReproductionConfig struct {
	SurvivalThreshold     float64 `ini:"survival_threshold"`
	ElitismMinSpeciesSize int     `ini:"elitism_min_species_size"` // champion is copied when members exceed this
	MutateOnlyProb        float64 `ini:"mutate_only_prob"`
	InterspeciesMateRate  float64 `ini:"interspecies_mate_rate"`
	MateAverageProb       float64 `ini:"mate_average_prob"`
	DisabledInheritProb   float64 `ini:"disabled_inherit_prob"` // chance a gene disabled in either parent stays disabled
	MateMutateProb        float64 `ini:"mate_mutate_prob"`      // chance a crossover child is also mutated
}

// SpeciesSetConfig holds parameters related to speciation.
type SpeciesSetConfig struct {
	CompatibilityThreshold float64 `ini:"compatibility_threshold"`
	TargetSpeciesMin       int     `ini:"target_species_min"`
	TargetSpeciesMax       int     `ini:"target_species_max"`
	ThresholdStep          float64 `ini:"threshold_step"`
	ThresholdMin           float64 `ini:"threshold_min"`
}

// StagnationConfig holds parameters related to species stagnation.
type StagnationConfig struct {
	MaxStagnation int `ini:"max_stagnation"`
}

// DefaultConfig returns the reference configuration: a 20x10 board encoded as
// 200 cell inputs plus a bias input, driving four action outputs.
func DefaultConfig() *Config {
	return &Config{
		Neat: NeatConfig{
			PopSize:              500,
			NoFitnessTermination: true,
		},
		Genome: GenomeConfig{
			NumInputs:  201,
			NumOutputs: 4,
			BiasInput:  200,
			Activation: "sigmoid",

			InitialConnectionsMin: 2,
			InitialConnectionsMax: 4,
			InitialNodeAddProb:    0.1,

			CompatibilityExcessCoefficient:   1.0,
			CompatibilityDisjointCoefficient: 1.0,
			CompatibilityWeightCoefficient:   0.4,
			NormalizeBySize:                  true,

			ConnAddProb: 0.2,
			NodeAddProb: 0.03,

			WeightInitMean:     0.0,
			WeightInitStdev:    1.0,
			WeightMutateProb:   0.8,
			WeightPerturbProb:  0.9,
			WeightPerturbPower: 0.5,
			WeightReplaceProb:  1.0,
			WeightMinValue:     -30,
			WeightMaxValue:     30,
		},
		Reproduction: ReproductionConfig{
			SurvivalThreshold:     0.4,
			ElitismMinSpeciesSize: 5,
			MutateOnlyProb:        0.25,
			InterspeciesMateRate:  0.001,
			MateAverageProb:       0.6,
			DisabledInheritProb:   0.75,
			MateMutateProb:        0.0,
		},
		SpeciesSet: SpeciesSetConfig{
			CompatibilityThreshold: 3.0,
			TargetSpeciesMin:       5,
			TargetSpeciesMax:       20,
			ThresholdStep:          0.1,
			ThresholdMin:           0.1,
		},
		Stagnation: StagnationConfig{
			MaxStagnation: 15,
		},
	}
}

var configSections = []struct {
	name   string
	target func(*Config) any
}{
	{"NEAT", func(c *Config) any { return &c.Neat }},
	{"DefaultGenome", func(c *Config) any { return &c.Genome }},
	{"DefaultReproduction", func(c *Config) any { return &c.Reproduction }},
	{"DefaultSpeciesSet", func(c *Config) any { return &c.SpeciesSet }},
	{"DefaultStagnation", func(c *Config) any { return &c.Stagnation }},
}

// LoadConfig loads configuration parameters from an INI file. Keys absent from
// the file keep their DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         false,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := DefaultConfig()
	for _, s := range configSections {
		if err := cfg.Section(s.name).MapTo(s.target(config)); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}
	config.Genome.Activation = strings.TrimSpace(config.Genome.Activation)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config '%s': %w", filePath, err)
	}
	return config, nil
}

// WriteConfig saves config as an INI file readable by LoadConfig.
func WriteConfig(filePath string, config *Config) error {
	file := ini.Empty()
	for _, s := range configSections {
		if err := file.Section(s.name).ReflectFrom(s.target(config)); err != nil {
			return fmt.Errorf("failed to reflect [%s] section: %w", s.name, err)
		}
	}
	if err := file.SaveTo(filePath); err != nil {
		return fmt.Errorf("failed to write config file '%s': %w", filePath, err)
	}
	return nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	prob := func(name string, v float64) {
		check(v >= 0 && v <= 1, "%s must be between 0 and 1, got %v", name, v)
	}

	check(c.Neat.PopSize > 0, "pop_size must be positive")
	check(c.Neat.Workers >= 0, "workers cannot be negative")

	g := &c.Genome
	check(g.NumInputs > 0, "num_inputs must be positive")
	check(g.NumOutputs > 0, "num_outputs must be positive")
	check(g.BiasInput >= -1 && g.BiasInput < g.NumInputs, "bias_input %d is not an input id", g.BiasInput)
	if _, err := nn.GetActivation(g.Activation); err != nil {
		errs = append(errs, err)
	}
	check(g.InitialConnectionsMin >= 0, "initial_connections_min cannot be negative")
	check(g.InitialConnectionsMax >= g.InitialConnectionsMin, "initial_connections_max cannot be less than initial_connections_min")
	prob("initial_node_add_prob", g.InitialNodeAddProb)
	check(g.CompatibilityExcessCoefficient >= 0, "compatibility_excess_coefficient cannot be negative")
	check(g.CompatibilityDisjointCoefficient >= 0, "compatibility_disjoint_coefficient cannot be negative")
	check(g.CompatibilityWeightCoefficient >= 0, "compatibility_weight_coefficient cannot be negative")
	prob("conn_add_prob", g.ConnAddProb)
	prob("node_add_prob", g.NodeAddProb)
	check(g.WeightInitStdev >= 0, "weight_init_stdev cannot be negative")
	prob("weight_mutate_prob", g.WeightMutateProb)
	prob("weight_perturb_prob", g.WeightPerturbProb)
	prob("weight_replace_prob", g.WeightReplaceProb)
	check(g.WeightPerturbPower >= 0, "weight_perturb_power cannot be negative")
	check(g.WeightMaxValue >= g.WeightMinValue, "weight_max_value cannot be less than weight_min_value")

	r := &c.Reproduction
	check(r.SurvivalThreshold > 0 && r.SurvivalThreshold <= 1, "survival_threshold must be in (0, 1]")
	check(r.ElitismMinSpeciesSize >= 0, "elitism_min_species_size cannot be negative")
	prob("mutate_only_prob", r.MutateOnlyProb)
	prob("interspecies_mate_rate", r.InterspeciesMateRate)
	prob("mate_average_prob", r.MateAverageProb)
	prob("disabled_inherit_prob", r.DisabledInheritProb)
	prob("mate_mutate_prob", r.MateMutateProb)

	s := &c.SpeciesSet
	check(s.CompatibilityThreshold > 0, "compatibility_threshold must be positive")
	check(s.TargetSpeciesMin >= 0, "target_species_min cannot be negative")
	check(s.TargetSpeciesMax >= s.TargetSpeciesMin, "target_species_max cannot be less than target_species_min")
	check(s.ThresholdStep >= 0, "threshold_step cannot be negative")
	check(s.ThresholdMin > 0, "threshold_min must be positive")

	check(c.Stagnation.MaxStagnation > 0, "max_stagnation must be positive")

	if len(errs) > 0 {
		return fmt.Errorf("config error: %w", errors.Join(errs...))
	}
	return nil
}

// activation resolves the configured activation function. Validate has already
// rejected unknown names.
func (gc *GenomeConfig) activation() nn.ActivationFunc {
	fn, err := nn.GetActivation(gc.Activation)
	if err != nil {
		panic(fmt.Sprintf("unvalidated genome config: %v", err))
	}
	return fn
}
