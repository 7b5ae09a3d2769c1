package neat

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/baldhumanity/neat-evo/neat/nn"
)

// FitnessFunc scores a compiled network. It must return a non-negative value
// and is called concurrently from several goroutines; each call gets its own
// network, which it may use freely.
type FitnessFunc func(net *nn.Network) float64

// evaluationBatch runs fitness evaluations on a bounded worker pool while the
// caller keeps breeding. wait is the barrier: it returns only after every
// dispatched evaluation has written its fitness.
type evaluationBatch struct {
	pool    *pool.Pool
	fitness FitnessFunc
	metrics *Metrics

	dispatched int
	completed  atomic.Int64
}

func newEvaluationBatch(workers int, fitness FitnessFunc, metrics *Metrics) *evaluationBatch {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &evaluationBatch{
		pool:    pool.New().WithMaxGoroutines(workers),
		fitness: fitness,
		metrics: metrics,
	}
}

// dispatch schedules o for evaluation. Must not be called after wait.
func (b *evaluationBatch) dispatch(o *Organism) {
	b.dispatched++
	b.pool.Go(func() {
		start := time.Now()
		o.Fitness = sanitizeFitness(b.fitness(o.Network))
		b.metrics.observeEvaluation(time.Since(start))
		b.completed.Add(1)
	})
}

// wait blocks until all dispatched evaluations are done. A panic in the fitness
// function is re-raised here.
func (b *evaluationBatch) wait() {
	b.pool.Wait()
	if done := b.completed.Load(); done != int64(b.dispatched) {
		panic(fmt.Sprintf("evaluation barrier released with %d of %d evaluations complete", done, b.dispatched))
	}
}
