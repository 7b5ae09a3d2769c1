package neat

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// GenerationStats summarises one generation.
type GenerationStats struct {
	RunID           string  `csv:"run_id"`
	Generation      int     `csv:"generation"`
	Organisms       int     `csv:"organisms"`
	Species         int     `csv:"species"`
	BestFitness     float64 `csv:"best_fitness"`
	MeanFitness     float64 `csv:"mean_fitness"`
	StdevFitness    float64 `csv:"stdev_fitness"`
	BestEverFitness float64 `csv:"best_ever_fitness"`
	Threshold       float64 `csv:"compatibility_threshold"`
	MeanHiddenNodes float64 `csv:"mean_hidden_nodes"`
	MeanGenes       float64 `csv:"mean_genes"`
	Innovations     int     `csv:"innovations"`
}

// Stats computes the summary of the current generation.
func (p *Population) Stats() GenerationStats {
	organisms := p.Organisms()
	fit := fitnesses(organisms)
	hidden := make([]float64, len(organisms))
	genes := make([]float64, len(organisms))
	for i, o := range organisms {
		hidden[i] = float64(len(o.Genome.Hidden))
		genes[i] = float64(len(o.Genome.Genes))
	}

	s := GenerationStats{
		Generation:      p.Generation,
		Organisms:       len(organisms),
		Species:         len(p.SpeciesSet.Species),
		MeanFitness:     mean(fit),
		StdevFitness:    stdev(fit),
		Threshold:       p.SpeciesSet.Threshold,
		MeanHiddenNodes: mean(hidden),
		MeanGenes:       mean(genes),
		Innovations:     p.Innovations.NextInnovation - 1,
	}
	if len(fit) > 0 {
		s.BestFitness = maxFloat(fit)
	}
	if p.BestOrganism != nil {
		s.BestEverFitness = p.BestOrganism.Fitness
	}
	return s
}

// StatsWriter appends GenerationStats rows as CSV, writing the header once.
type StatsWriter struct {
	w             io.Writer
	runID         string
	headerWritten bool
}

// NewStatsWriter returns a writer that stamps every row with runID.
func NewStatsWriter(w io.Writer, runID string) *StatsWriter {
	return &StatsWriter{w: w, runID: runID}
}

// Write appends one row.
func (sw *StatsWriter) Write(stats GenerationStats) error {
	stats.RunID = sw.runID
	records := []GenerationStats{stats}
	if !sw.headerWritten {
		if err := gocsv.Marshal(records, sw.w); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		sw.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, sw.w); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}
