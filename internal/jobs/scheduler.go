package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Task is one periodic maintenance step. It returns how many records it touched.
type Task func(ctx context.Context) (int64, error)

// Scheduler runs maintenance tasks on cron specs.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a Scheduler. Overlapping runs of the same task are skipped.
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Add registers task under spec, e.g. "@every 5m".
func (s *Scheduler) Add(ctx context.Context, name, spec string, task Task) error {
	_, err := s.cron.AddFunc(spec, func() {
		n, err := task(ctx)
		if err != nil {
			log.Printf("scheduler: %s: %v", name, err)
			return
		}
		if n > 0 {
			log.Printf("scheduler: %s touched %d records", name, n)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	log.Printf("scheduler: %s scheduled %s", name, spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running tasks until ctx ends.
// It returns ctx.Err() when tasks were still running at that point.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
