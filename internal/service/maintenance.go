package service

import (
	"context"
	"log"
	"time"

	"github.com/cloo-solutions/movewise/internal/domain"
)

// StaleJobMessage is recorded under the job error key for runs abandoned by a dead host.
const StaleJobMessage = "job abandoned: exceeded maximum run time"

// MaintenanceService repairs job records and drops expired cache rows.
type MaintenanceService struct {
	repo       SearchJobRepository
	pruners    []Pruner
	staleAfter time.Duration
	now        func() time.Time
}

func NewMaintenanceService(repo SearchJobRepository, staleAfter time.Duration, pruners ...Pruner) *MaintenanceService {
	return &MaintenanceService{
		repo:       repo,
		pruners:    pruners,
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SweepStaleJobs marks jobs running for longer than the stale threshold as failed.
// It only rewrites records; it never touches a live run.
func (s *MaintenanceService) SweepStaleJobs(ctx context.Context) (int64, error) {
	if s.staleAfter <= 0 {
		return 0, nil
	}
	n, err := s.repo.FailStale(ctx, s.now().Add(-s.staleAfter), StaleJobMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("maintenance: marked %d stale %s jobs as %s", n, domain.JobStatusRunning, domain.JobStatusError)
	}
	return n, nil
}

// PruneCache drops expired entries from every configured cache.
func (s *MaintenanceService) PruneCache(ctx context.Context) (int64, error) {
	var total int64
	for _, p := range s.pruners {
		n, err := p.Prune(ctx)
		if err != nil {
			return total, err
		}
		total += n
	}
	if total > 0 {
		log.Printf("maintenance: pruned %d expired cache entries", total)
	}
	return total, nil
}
