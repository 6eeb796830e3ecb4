package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/exa"
	"github.com/cloo-solutions/movewise/internal/pagination"
	"github.com/cloo-solutions/movewise/internal/telemetry"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// JobSearchOptions are the provider options for every job query.
var JobSearchOptions = exa.SearchOptions{
	NumResults:         5,
	Type:               exa.SearchTypeNeural,
	StartPublishedDate: "2024-01-01",
	MaxCharacters:      800,
}

// SearchJobService creates search jobs and runs their category fan-out.
type SearchJobService struct {
	repo      SearchJobRepository
	search    SearchProvider
	publisher Publisher
	uuidGen   UUIDGenerator
	now       func() time.Time
}

// NewSearchJobService creates a new SearchJobService. publisher may be nil.
func NewSearchJobService(repo SearchJobRepository, search SearchProvider, publisher Publisher) *SearchJobService {
	return &SearchJobService{
		repo:      repo,
		search:    search,
		publisher: publisher,
		uuidGen:   &DefaultUUIDGenerator{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewSearchJobServiceWithUUIDGen creates a SearchJobService with custom UUID generator (for testing)
func NewSearchJobServiceWithUUIDGen(repo SearchJobRepository, search SearchProvider, publisher Publisher, uuidGen UUIDGenerator) *SearchJobService {
	s := NewSearchJobService(repo, search, publisher)
	s.uuidGen = uuidGen
	return s
}

// CreateJob validates params and stores a pending job. No search is issued.
func (s *SearchJobService) CreateJob(ctx context.Context, params domain.SearchParams) (*domain.SearchJob, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	job := domain.NewSearchJob(s.uuidGen.NewString(), params, s.now())
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	s.publish(ctx, domain.JobUpdate{JobID: job.ID, Kind: domain.JobUpdateStatus, Status: job.Status})
	return job, nil
}

// GetJob returns ErrJobNotFound for an empty or unknown id.
func (s *SearchJobService) GetJob(ctx context.Context, id string) (*domain.SearchJob, error) {
	if id == "" {
		return nil, domain.ErrJobNotFound
	}
	return s.repo.GetByID(ctx, id)
}

type ListJobsInput struct {
	Status domain.JobStatus
	Cursor string
	Limit  int
}

type ListJobsOutput struct {
	Items   []*domain.SearchJob
	Cursor  string
	HasMore bool
}

// ListJobs lists jobs newest first, optionally filtered by status.
func (s *SearchJobService) ListJobs(ctx context.Context, input ListJobsInput) (*ListJobsOutput, error) {
	if input.Status != "" && !input.Status.IsValid() {
		return nil, domain.ErrInvalidJobStatus
	}

	var cursor *pagination.Cursor
	if input.Cursor != "" {
		c, err := pagination.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
		}
		cursor = c
	}

	page, err := s.repo.List(ctx, input.Status, cursor, pagination.NormalizeLimit(input.Limit))
	if err != nil {
		return nil, err
	}
	return &ListJobsOutput{Items: page.Items, Cursor: page.Cursor, HasMore: page.HasMore}, nil
}

// RunJob moves a pending job to running and executes it to a terminal status.
// Running it again on a job that already left pending is a no-op.
func (s *SearchJobService) RunJob(ctx context.Context, id string) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}

	started, err := s.repo.MarkRunning(ctx, id)
	if err != nil {
		return err
	}
	if !started {
		log.Printf("job %s: run skipped, status is %s", id, job.Status)
		return nil
	}
	job.Status = domain.JobStatusRunning
	s.publish(ctx, domain.JobUpdate{JobID: id, Kind: domain.JobUpdateStatus, Status: domain.JobStatusRunning})

	return s.Execute(ctx, job)
}

// ClaimPending moves up to limit pending jobs, oldest first, to running and announces each.
// The caller is expected to Execute every returned job.
func (s *SearchJobService) ClaimPending(ctx context.Context, limit int) ([]*domain.SearchJob, error) {
	jobs, err := s.repo.ClaimPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		s.publish(ctx, domain.JobUpdate{JobID: job.ID, Kind: domain.JobUpdateStatus, Status: domain.JobStatusRunning})
	}
	return jobs, nil
}

// Execute runs the fan-out for a job that is already running and finalizes its status.
// Caller cancellation does not stop a started run.
func (s *SearchJobService) Execute(ctx context.Context, job *domain.SearchJob) error {
	ctx = context.WithoutCancel(ctx)
	ctx, span := telemetry.StartSpan(ctx, "SearchJobs.Execute", telemetry.SpanAttributes{
		JobID:     job.ID,
		Scenario:  string(job.Params.Scenario),
		Operation: "execute",
	})
	defer span.End()

	plan := BuildQueryPlan(job.Params, domain.CategorySetStandard)
	span.SetData("queries", plan.Total())

	if err := s.fanOut(ctx, job.ID, plan); err != nil {
		span.SetError(err)
		log.Printf("job %s: failed: %v", job.ID, err)
		return s.failJob(ctx, job.ID, err)
	}

	if err := s.setStatus(ctx, job.ID, domain.JobStatusCompleted); err != nil {
		if errors.Is(err, domain.ErrJobNotRunning) {
			log.Printf("job %s: finalized elsewhere before completion", job.ID)
			return nil
		}
		span.SetError(err)
		return s.failJob(ctx, job.ID, err)
	}
	log.Printf("job %s: completed (%d queries)", job.ID, plan.Total())
	return nil
}

// fanOut runs every category concurrently and returns the first error that could not be
// recorded against its own category.
func (s *SearchJobService) fanOut(ctx context.Context, jobID string, plan QueryPlan) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, category := range plan.Categories {
		wg.Add(1)
		go func(category domain.Category, queries []string) {
			defer wg.Done()
			if err := s.processCategory(ctx, jobID, category, queries); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(category, plan.Queries[category])
	}
	wg.Wait()
	return firstErr
}

// processCategory searches and records one category. An error is returned only when
// neither the results nor the error could be stored.
func (s *SearchJobService) processCategory(ctx context.Context, jobID string, category domain.Category, queries []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("category %s: panic: %v", category, r)
		}
	}()

	ctx, span := telemetry.StartSpan(ctx, "SearchJobs.Category", telemetry.SpanAttributes{
		JobID:     jobID,
		Category:  string(category),
		Operation: "category",
	})
	defer span.End()

	result := s.searchCategory(ctx, category, queries)
	if result.OK() {
		perr := s.repo.PatchResults(ctx, jobID, category, result.Items)
		if perr == nil {
			span.SetData("results", len(result.Items))
			s.publish(ctx, domain.JobUpdate{JobID: jobID, Kind: domain.JobUpdateCategory, Key: string(category)})
			return nil
		}
		result = domain.ErrorResult(category, perr.Error())
	}

	span.SetError(errors.New(result.Message))
	log.Printf("job %s: category %s failed: %s", jobID, category, result.Message)
	if perr := s.repo.PatchError(ctx, jobID, string(category), result.Message); perr != nil {
		return fmt.Errorf("category %s: record error: %w", category, perr)
	}
	s.publish(ctx, domain.JobUpdate{JobID: jobID, Kind: domain.JobUpdateError, Key: string(category)})
	return nil
}

// searchCategory issues all queries of a category concurrently. A failed query contributes
// nothing; the merge keeps query order, not completion order.
func (s *SearchJobService) searchCategory(ctx context.Context, category domain.Category, queries []string) (result domain.CategoryResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.ErrorResult(category, fmt.Sprintf("panic: %v", r))
		}
	}()

	if len(queries) == 0 {
		return domain.OKResult(category, nil)
	}

	batches := make([][]domain.SourceRecord, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			batches[i] = searchOrEmpty(ctx, s.search, q, JobSearchOptions)
		}(i, q)
	}
	wg.Wait()

	var flat []domain.SourceRecord
	for _, batch := range batches {
		flat = append(flat, batch...)
	}
	return domain.OKResult(category, domain.DedupeByURL(flat))
}

// searchOrEmpty never fails: errors and panics yield an empty batch.
func searchOrEmpty(ctx context.Context, provider SearchProvider, query string, opts exa.SearchOptions) (records []domain.SourceRecord) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("search %q: panic: %v", query, r)
			records = nil
		}
	}()

	found, err := provider.Search(ctx, query, opts)
	if err != nil {
		log.Printf("search %q: %v", query, err)
		return nil
	}
	return found
}

func (s *SearchJobService) failJob(ctx context.Context, jobID string, cause error) error {
	telemetry.CaptureError(ctx, cause)
	if err := s.repo.PatchError(ctx, jobID, domain.JobErrorKey, cause.Error()); err != nil {
		log.Printf("job %s: record job error: %v", jobID, err)
	} else {
		s.publish(ctx, domain.JobUpdate{JobID: jobID, Kind: domain.JobUpdateError, Key: domain.JobErrorKey})
	}
	if err := s.setStatus(ctx, jobID, domain.JobStatusError); err != nil && !errors.Is(err, domain.ErrJobNotRunning) {
		return fmt.Errorf("job %s: %w (and failed to mark error: %v)", jobID, cause, err)
	}
	return cause
}

func (s *SearchJobService) setStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	if err := s.repo.SetStatus(ctx, jobID, status); err != nil {
		return err
	}
	s.publish(ctx, domain.JobUpdate{JobID: jobID, Kind: domain.JobUpdateStatus, Status: status})
	return nil
}

func (s *SearchJobService) publish(ctx context.Context, u domain.JobUpdate) {
	if s.publisher == nil {
		return
	}
	u.At = s.now()
	if err := s.publisher.Publish(ctx, u); err != nil {
		log.Printf("job %s: publish %s: %v", u.JobID, u.Kind, err)
	}
}
