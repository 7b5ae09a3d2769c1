package neat

import (
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// GenomeRecord is the serialised form of a Genome.
type GenomeRecord struct {
	NumInputs  int              `yaml:"num_inputs"`
	NumOutputs int              `yaml:"num_outputs"`
	Genes      []ConnectionGene `yaml:"genes"`
}

type organismRecord struct {
	UID     int          `yaml:"uid"`
	Fitness float64      `yaml:"fitness"`
	Genome  GenomeRecord `yaml:"genome"`
}

type speciesRecord struct {
	ID             int              `yaml:"id"`
	Created        int              `yaml:"created"`
	LastImproved   int              `yaml:"last_improved"`
	BestFitness    float64          `yaml:"best_fitness"`
	Representative GenomeRecord     `yaml:"representative"`
	Members        []organismRecord `yaml:"members"`
}

// checkpointData holds the parts of Population needed to resume a run. The
// Config is not saved; it is supplied again on load.
type checkpointData struct {
	Generation    int             `yaml:"generation"`
	Seed          uint64          `yaml:"seed"`
	RandState     string          `yaml:"rand_state"`
	Innovations   Innovations     `yaml:"innovations"`
	NextUID       int             `yaml:"next_uid"`
	NextSpeciesID int             `yaml:"next_species_id"`
	Threshold     float64         `yaml:"compatibility_threshold"`
	Best          *organismRecord `yaml:"best,omitempty"`
	Species       []speciesRecord `yaml:"species"`
}

func recordGenome(g *Genome) GenomeRecord {
	return GenomeRecord{
		NumInputs:  g.NumInputs,
		NumOutputs: g.NumOutputs,
		Genes:      append([]ConnectionGene(nil), g.Genes...),
	}
}

// Genome rebuilds and validates the genome described by the record.
func (r GenomeRecord) Genome() (*Genome, error) {
	g := NewGenome(r.NumInputs, r.NumOutputs)
	g.Genes = append([]ConnectionGene(nil), r.Genes...)
	for _, gene := range g.Genes {
		for _, id := range [2]int{gene.InNode, gene.OutNode} {
			if g.IsHidden(id) {
				g.Hidden[id] = struct{}{}
			}
		}
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genome: %w", err)
	}
	return g, nil
}

// EncodeGenome writes g as YAML.
func EncodeGenome(w io.Writer, g *Genome) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(recordGenome(g)); err != nil {
		return fmt.Errorf("failed to encode genome: %w", err)
	}
	return enc.Close()
}

// DecodeGenome reads a genome written by EncodeGenome and checks its invariants.
func DecodeGenome(r io.Reader) (*Genome, error) {
	var rec GenomeRecord
	if err := yaml.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode genome: %w", err)
	}
	return rec.Genome()
}

// SaveCheckpoint saves the current state of the Population to a file.
// Uses gzip compression for smaller file size.
func (p *Population) SaveCheckpoint(filePath string) (err error) {
	randState, err := p.pcg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal random state: %w", err)
	}

	data := checkpointData{
		Generation:    p.Generation,
		Seed:          p.Seed,
		RandState:     base64.StdEncoding.EncodeToString(randState),
		Innovations:   p.Innovations,
		NextUID:       p.Reproduction.NextUID,
		NextSpeciesID: p.SpeciesSet.Indexer,
		Threshold:     p.SpeciesSet.Threshold,
	}
	if p.BestOrganism != nil {
		best := recordOrganism(p.BestOrganism)
		data.Best = &best
	}
	for _, sp := range p.SpeciesSet.Species {
		rec := speciesRecord{
			ID:             sp.ID,
			Created:        sp.Created,
			LastImproved:   sp.LastImproved,
			BestFitness:    sp.BestFitness,
			Representative: recordGenome(sp.Representative),
		}
		for _, o := range sp.Members {
			rec.Members = append(rec.Members, recordOrganism(o))
		}
		data.Species = append(data.Species, rec)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close checkpoint file '%s': %w", filePath, cerr)
		}
	}()

	gzWriter := gzip.NewWriter(file)
	enc := yaml.NewEncoder(gzWriter)
	if err := enc.Encode(&data); err != nil {
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to compress checkpoint: %w", err)
	}

	p.logger.Info("checkpoint saved", "path", filePath, "generation", p.Generation)
	return nil
}

func recordOrganism(o *Organism) organismRecord {
	return organismRecord{UID: o.UID, Fitness: o.Fitness, Genome: recordGenome(o.Genome)}
}

// LoadCheckpoint restores a Population saved by SaveCheckpoint. The caller
// supplies the configuration and fitness function again; networks are
// recompiled and fitness values are restored without re-evaluation.
func LoadCheckpoint(checkpointPath string, config *Config, fitness FitnessFunc, opts ...Option) (*Population, error) {
	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	var data checkpointData
	if err := yaml.NewDecoder(gzReader).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}

	p, err := newPopulation(config, fitness, opts...)
	if err != nil {
		return nil, err
	}

	randState, err := base64.StdEncoding.DecodeString(data.RandState)
	if err != nil {
		return nil, fmt.Errorf("failed to decode random state: %w", err)
	}
	if err := p.pcg.UnmarshalBinary(randState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal random state: %w", err)
	}

	p.Generation = data.Generation
	p.Seed = data.Seed
	p.Innovations = data.Innovations
	p.Reproduction.NextUID = data.NextUID
	p.SpeciesSet.Indexer = data.NextSpeciesID
	p.SpeciesSet.Threshold = data.Threshold

	for _, rec := range data.Species {
		rep, err := rec.Representative.Genome()
		if err != nil {
			return nil, fmt.Errorf("species %d representative: %w", rec.ID, err)
		}
		sp := &Species{
			ID:             rec.ID,
			Created:        rec.Created,
			LastImproved:   rec.LastImproved,
			BestFitness:    rec.BestFitness,
			Representative: rep,
		}
		for _, m := range rec.Members {
			o, err := p.restoreOrganism(m)
			if err != nil {
				return nil, fmt.Errorf("species %d: %w", rec.ID, err)
			}
			sp.Members = append(sp.Members, o)
		}
		p.SpeciesSet.Species = append(p.SpeciesSet.Species, sp)
	}
	if data.Best != nil {
		if p.BestOrganism, err = p.restoreOrganism(*data.Best); err != nil {
			return nil, fmt.Errorf("best organism: %w", err)
		}
	}

	p.logger.Info("checkpoint loaded", "path", checkpointPath, "generation", p.Generation)
	return p, nil
}

func (p *Population) restoreOrganism(rec organismRecord) (*Organism, error) {
	g, err := rec.Genome.Genome()
	if err != nil {
		return nil, fmt.Errorf("organism %d: %w", rec.UID, err)
	}
	o := NewOrganism(rec.UID, g, p.Reproduction.activation)
	o.Fitness = rec.Fitness
	return o, nil
}
