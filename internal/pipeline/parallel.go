package pipeline

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ParallelConfig holds configuration for batch processing.
type ParallelConfig struct {
	// MaxWorkers bounds concurrent invoice pipelines. Zero means
	// runtime.NumCPU(). Invoices share no mutable state, so the bound
	// exists only to respect upstream OCR/LLM concurrency limits.
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`

	// ProgressCallback receives batch progress updates. Optional.
	ProgressCallback ProgressCallback `mapstructure:"-" yaml:"-" json:"-"`
}

// DefaultParallelConfig returns sensible defaults for batch processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// BatchInput is one invoice in a batch: an optional ID and the raw
// image bytes.
type BatchInput struct {
	InvoiceID string
	Image     []byte
}

// BatchItem pairs one input with its outcome. Exactly one of Result
// and Err is set.
type BatchItem struct {
	Index  int
	Result *Result
	Err    error
}

// ProcessBatch runs every input through the pipeline using a bounded
// worker pool and returns one item per input, in input order. A failed
// invoice does not affect the others. Cancellation stops scheduling;
// items never started are reported with the context error, while
// finished items keep their results and their already persisted
// stages.
func (o *Orchestrator) ProcessBatch(ctx context.Context, inputs []BatchInput) ([]BatchItem, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no inputs provided")
	}

	workers := o.cfg.Parallel.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	progress := o.cfg.Parallel.ProgressCallback
	if progress != nil {
		progress.OnStart(len(inputs))
		defer progress.OnComplete()
	}

	jobs := make(chan int, len(inputs))
	results := make(chan BatchItem, len(inputs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case idx, ok := <-jobs:
					if !ok {
						return
					}
					in := inputs[idx]
					res, err := o.Process(ctx, in.InvoiceID, in.Image)
					select {
					case results <- BatchItem{Index: idx, Result: res, Err: err}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range inputs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	items := make([]BatchItem, len(inputs))
	for i := range items {
		items[i].Index = i
	}
	done := 0
	for item := range results {
		items[item.Index] = item
		done++
		if progress != nil {
			progress.OnProgress(done, len(inputs))
			if item.Err != nil {
				progress.OnError(item.Index, item.Err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		for i := range items {
			if items[i].Result == nil && items[i].Err == nil {
				items[i].Err = err
			}
		}
		return items, err
	}
	return items, nil
}
