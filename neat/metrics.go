package neat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes evolution progress to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	generation         prometheus.Gauge
	species            prometheus.Gauge
	bestFitness        prometheus.Gauge
	currentBestFitness prometheus.Gauge
	meanFitness        prometheus.Gauge
	threshold          prometheus.Gauge
	hiddenNodes        prometheus.Gauge
	evaluations        prometheus.Counter
	extinctions        prometheus.Counter
	evaluationDuration prometheus.Histogram
	generationDuration prometheus.Histogram
}

// NewMetrics registers the NEAT collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		generation: f.NewGauge(prometheus.GaugeOpts{
			Name: "neat_generation",
			Help: "Current generation number",
		}),
		species: f.NewGauge(prometheus.GaugeOpts{
			Name: "neat_species",
			Help: "Number of species in the current generation",
		}),
		bestFitness: f.NewGauge(prometheus.GaugeOpts{
			Name: "neat_best_fitness",
			Help: "Best fitness found so far",
		}),
		currentBestFitness: f.NewGauge(prometheus.GaugeOpts{
			Name: "neat_generation_best_fitness",
			Help: "Best fitness in the current generation",
		}),
		meanFitness: f.NewGauge(prometheus.GaugeOpts{
			Name: "neat_mean_fitness",
			Help: "Mean fitness of the current generation",
		}),
		threshold: f.NewGauge(prometheus.GaugeOpts{
			Name: "neat_compatibility_threshold",
			Help: "Current speciation compatibility threshold",
		}),
		hiddenNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "neat_mean_hidden_nodes",
			Help: "Mean number of hidden nodes per genome",
		}),
		evaluations: f.NewCounter(prometheus.CounterOpts{
			Name: "neat_evaluations_total",
			Help: "Total fitness evaluations",
		}),
		extinctions: f.NewCounter(prometheus.CounterOpts{
			Name: "neat_extinctions_total",
			Help: "Generations that ended with every species stagnated",
		}),
		evaluationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "neat_evaluation_duration_seconds",
			Help:    "Time spent in one fitness evaluation",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),
		generationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "neat_generation_duration_seconds",
			Help:    "Wall time of one generation including evaluation",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}),
	}
}

func (m *Metrics) observeEvaluation(d time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.Inc()
	m.evaluationDuration.Observe(d.Seconds())
}

func (m *Metrics) observeExtinction() {
	if m == nil {
		return
	}
	m.extinctions.Inc()
}

func (m *Metrics) observeGeneration(p *Population, d time.Duration) {
	if m == nil {
		return
	}
	s := p.Stats()
	m.generation.Set(float64(s.Generation))
	m.species.Set(float64(s.Species))
	m.bestFitness.Set(s.BestEverFitness)
	m.currentBestFitness.Set(s.BestFitness)
	m.meanFitness.Set(s.MeanFitness)
	m.threshold.Set(s.Threshold)
	m.hiddenNodes.Set(s.MeanHiddenNodes)
	m.generationDuration.Observe(d.Seconds())
}
