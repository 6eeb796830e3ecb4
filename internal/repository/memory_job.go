package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/pagination"
)

// MemorySearchJobRepository keeps jobs in process memory. Every method holds the lock
// for the whole read-merge-write, so patches to different keys never lose each other.
type MemorySearchJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.SearchJob
	now  func() time.Time
}

func NewMemorySearchJobRepository() *MemorySearchJobRepository {
	return &MemorySearchJobRepository{
		jobs: make(map[string]*domain.SearchJob),
		now:  time.Now,
	}
}

// WithClock replaces the timestamp source.
func (r *MemorySearchJobRepository) WithClock(now func() time.Time) *MemorySearchJobRepository {
	r.now = now
	return r
}

func (r *MemorySearchJobRepository) Create(ctx context.Context, job *domain.SearchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *MemorySearchJobRepository) GetByID(ctx context.Context, id string) (*domain.SearchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (r *MemorySearchJobRepository) MarkRunning(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusPending {
		return false, nil
	}
	job.Status = domain.JobStatusRunning
	job.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *MemorySearchJobRepository) PatchResults(ctx context.Context, id string, category domain.Category, items []domain.SourceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Results[string(category)] = append([]domain.SourceRecord{}, items...)
	job.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemorySearchJobRepository) PatchError(ctx context.Context, id, key, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Errors[key] = message
	job.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemorySearchJobRepository) SetStatus(ctx context.Context, id string, status domain.JobStatus) error {
	if !status.IsValid() {
		return domain.ErrInvalidJobStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusRunning {
		return domain.ErrJobNotRunning
	}
	job.Status = status
	job.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemorySearchJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.SearchJob, error) {
	if limit <= 0 {
		limit = 10
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*domain.SearchJob, 0)
	for _, job := range r.jobs {
		if job.Status == domain.JobStatusPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	now := r.now().UTC()
	claimed := make([]*domain.SearchJob, 0, len(pending))
	for _, job := range pending {
		job.Status = domain.JobStatusRunning
		job.UpdatedAt = now
		claimed = append(claimed, job.Clone())
	}
	return claimed, nil
}

func (r *MemorySearchJobRepository) List(ctx context.Context, status domain.JobStatus, cursor *pagination.Cursor, limit int) (pagination.PageResult[*domain.SearchJob], error) {
	limit = pagination.NormalizeLimit(limit)
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.SearchJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		if status != "" && job.Status != status {
			continue
		}
		if cursor != nil && !before(job, cursor) {
			continue
		}
		all = append(all, job)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > limit+1 {
		all = all[:limit+1]
	}

	out := make([]*domain.SearchJob, len(all))
	for i, job := range all {
		out[i] = job.Clone()
	}
	return pagination.NewPage(out, limit,
		func(j *domain.SearchJob) string { return j.ID },
		func(j *domain.SearchJob) time.Time { return j.CreatedAt },
	), nil
}

func (r *MemorySearchJobRepository) FailStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	var n int64
	for _, job := range r.jobs {
		if job.Status == domain.JobStatusRunning && job.UpdatedAt.Before(cutoff) {
			job.Status = domain.JobStatusError
			job.Errors[domain.JobErrorKey] = message
			job.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// before reports whether job sorts strictly after the cursor position in newest-first order.
func before(job *domain.SearchJob, c *pagination.Cursor) bool {
	if job.CreatedAt.Equal(c.Timestamp) {
		return job.ID < c.LastID
	}
	return job.CreatedAt.Before(c.Timestamp)
}
