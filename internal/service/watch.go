package service

import (
	"context"
	"log"
	"time"

	"github.com/cloo-solutions/movewise/internal/domain"
)

// DefaultWatchPollInterval is the reload period when no notice arrives.
const DefaultWatchPollInterval = time.Second

// JobWatcher follows a job until it reaches a terminal status.
type JobWatcher struct {
	repo         SearchJobRepository
	subscriber   Subscriber
	pollInterval time.Duration
}

// NewJobWatcher creates a JobWatcher. subscriber may be nil, which leaves polling only.
func NewJobWatcher(repo SearchJobRepository, subscriber Subscriber) *JobWatcher {
	return &JobWatcher{repo: repo, subscriber: subscriber, pollInterval: DefaultWatchPollInterval}
}

// WithPollInterval overrides the reload period.
func (w *JobWatcher) WithPollInterval(d time.Duration) *JobWatcher {
	if d > 0 {
		w.pollInterval = d
	}
	return w
}

// Watch calls emit with the current snapshot and again after every change. It returns nil
// after emitting a terminal snapshot, ctx.Err() when ctx ends first, or emit's error.
func (w *JobWatcher) Watch(ctx context.Context, id string, emit func(*domain.SearchJob) error) error {
	if id == "" {
		return domain.ErrJobNotFound
	}

	var notices <-chan domain.JobUpdate
	if w.subscriber != nil {
		ch, cancel, err := w.subscriber.Subscribe(ctx, id)
		if err != nil {
			log.Printf("job %s: subscribe failed, polling only: %v", id, err)
		} else {
			defer cancel()
			notices = ch
		}
	}

	job, err := w.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := emit(job); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for !job.Status.IsTerminal() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-notices:
			if !ok {
				notices = nil
				continue
			}
		case <-ticker.C:
		}

		next, err := w.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !changed(job, next) {
			continue
		}
		job = next
		if err := emit(job); err != nil {
			return err
		}
	}
	return nil
}

func changed(prev, next *domain.SearchJob) bool {
	return prev.Status != next.Status || !prev.UpdatedAt.Equal(next.UpdatedAt) ||
		len(prev.Results) != len(next.Results) || len(prev.Errors) != len(next.Errors)
}
