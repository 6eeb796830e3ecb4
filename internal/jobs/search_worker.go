package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/cloo-solutions/movewise/internal/domain"
)

// SearchJobRunner claims pending search jobs and runs them to a terminal status.
type SearchJobRunner interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.SearchJob, error)
	Execute(ctx context.Context, job *domain.SearchJob) error
}

// SearchJobWorker dispatches pending search jobs with bounded concurrency.
type SearchJobWorker struct {
	runner      SearchJobRunner
	concurrency int
}

// NewSearchJobWorker creates a SearchJobWorker running at most concurrency jobs at a time.
func NewSearchJobWorker(runner SearchJobRunner, concurrency int) *SearchJobWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SearchJobWorker{runner: runner, concurrency: concurrency}
}

// ProcessJobs implements the JobProcessor interface. It claims up to one batch of jobs and
// returns once every claimed job has finished.
func (w *SearchJobWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.runner.ClaimPending(ctx, w.concurrency)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	log.Printf("worker: processing %d search jobs", len(jobs))

	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(job *domain.SearchJob) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("job %s: panic in worker: %v", job.ID, r)
				}
			}()
			if err := w.runner.Execute(ctx, job); err != nil {
				log.Printf("job %s: %v", job.ID, err)
			}
		}(job)
	}
	wg.Wait()
	return nil
}
