package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
	"github.com/jason-traum/stride-os-sub002/internal/observability"
)

// ProgressFunc receives (completed, total) after each workout finishes.
type ProgressFunc func(completed, total int)

// BatchSummary aggregates one batch run.
type BatchSummary struct {
	Total       int
	Succeeded   int
	Partial     int // completed with at least one tolerated stage failure
	Failed      int // aborted (workout not found)
	StageErrors int
}

// BatchRunner applies the pipeline across many workouts. Workouts are
// independent units; the only shared state is the canonical-route table,
// which the processor serializes per route identity, so runs may fan out
// across a bounded worker pool.
type BatchRunner struct {
	processor *Processor
	store     domain.Store
	workers   int
	logger    *log.Logger
}

// NewBatchRunner constructs a runner. workers < 2 means strictly sequential
// processing, the reference behaviour.
func NewBatchRunner(processor *Processor, store domain.Store, workers int) *BatchRunner {
	if workers < 1 {
		workers = 1
	}
	return &BatchRunner{
		processor: processor,
		store:     store,
		workers:   workers,
		logger:    log.New(log.Writer(), "[batch] ", log.LstdFlags),
	}
}

// Run processes each workout end-to-end. A batch may be interrupted between
// workouts without corrupting any single workout's state: each workout's
// projection commits only after all of its stages have returned.
func (b *BatchRunner) Run(ctx context.Context, ids []string, opts Options, progress ProgressFunc) BatchSummary {
	start := time.Now()
	summary := BatchSummary{Total: len(ids)}
	defer func() { observability.ObserveBatchDuration(time.Since(start)) }()

	if b.workers < 2 {
		completed := 0
		for _, id := range ids {
			if ctx.Err() != nil {
				break
			}
			b.runOne(ctx, id, opts, &summary)
			completed++
			if progress != nil {
				progress(completed, len(ids))
			}
		}
		return summary
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		completed int
	)
	sem := make(chan struct{}, b.workers)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(workoutID string) {
			defer wg.Done()
			defer func() { <-sem }()

			var local BatchSummary
			b.runOne(ctx, workoutID, opts, &local)

			mu.Lock()
			summary.Succeeded += local.Succeeded
			summary.Partial += local.Partial
			summary.Failed += local.Failed
			summary.StageErrors += local.StageErrors
			completed++
			done := completed
			mu.Unlock()

			if progress != nil {
				progress(done, len(ids))
			}
		}(id)
	}
	wg.Wait()
	return summary
}

func (b *BatchRunner) runOne(ctx context.Context, id string, opts Options, summary *BatchSummary) {
	result, err := b.processor.ProcessWorkout(ctx, id, opts)
	switch {
	case err != nil:
		summary.Failed++
		b.logger.Printf("workout %s failed: %v", id, err)
	case len(result.Errors) > 0:
		summary.Partial++
		summary.StageErrors += len(result.Errors)
	default:
		summary.Succeeded++
	}
}

// ReprocessAll re-runs the pipeline across every workout of a profile. This
// is the upgrade/migration entry point after algorithm changes.
func (b *BatchRunner) ReprocessAll(ctx context.Context, profileID string, opts Options, progress ProgressFunc) (BatchSummary, error) {
	ids, err := b.store.ListWorkoutIDs(ctx, profileID)
	if err != nil {
		return BatchSummary{}, err
	}
	b.logger.Printf("reprocessing %d workouts for profile %s", len(ids), profileID)
	return b.Run(ctx, ids, opts, progress), nil
}
