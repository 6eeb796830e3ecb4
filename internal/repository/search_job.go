package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/pagination"
)

const searchJobColumns = `id, status, params, results, errors, created_at, updated_at`

type SearchJobRepository struct {
	db  dbtx
	now func() time.Time
}

func NewSearchJobRepository(pool *pgxpool.Pool) *SearchJobRepository {
	return &SearchJobRepository{db: pool, now: time.Now}
}

func (r *SearchJobRepository) Create(ctx context.Context, job *domain.SearchJob) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	results, err := json.Marshal(job.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	errs, err := json.Marshal(job.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO search_jobs (id, status, params, results, errors, created_at, updated_at)
		 VALUES ($1, $2, $3::jsonb, $4::jsonb, $5::jsonb, $6, $7)`,
		job.ID, job.Status, string(params), string(results), string(errs), job.CreatedAt, job.UpdatedAt,
	)
	return err
}

func (r *SearchJobRepository) GetByID(ctx context.Context, id string) (*domain.SearchJob, error) {
	job, err := scanSearchJob(r.db.QueryRow(ctx,
		`SELECT `+searchJobColumns+` FROM search_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// MarkRunning moves a pending job to running. It reports false when the job was not pending.
func (r *SearchJobRepository) MarkRunning(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE search_jobs SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		id, domain.JobStatusRunning, r.now().UTC(), domain.JobStatusPending,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// PatchResults replaces results[category] in a single statement. Other keys are untouched.
func (r *SearchJobRepository) PatchResults(ctx context.Context, id string, category domain.Category, items []domain.SourceRecord) error {
	if items == nil {
		items = []domain.SourceRecord{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s results: %w", category, err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE search_jobs
		 SET results = results || jsonb_build_object($2::text, $3::jsonb),
		     updated_at = $4
		 WHERE id = $1`,
		id, string(category), string(payload), r.now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// PatchError sets errors[key], last write wins.
func (r *SearchJobRepository) PatchError(ctx context.Context, id, key, message string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE search_jobs
		 SET errors = errors || jsonb_build_object($2::text, $3::text),
		     updated_at = $4
		 WHERE id = $1`,
		id, key, message, r.now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// SetStatus finalizes a running job. A job that already left running, for example one
// failed by FailStale, is left unchanged and ErrJobNotRunning is returned.
func (r *SearchJobRepository) SetStatus(ctx context.Context, id string, status domain.JobStatus) error {
	if !status.IsValid() {
		return domain.ErrInvalidJobStatus
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE search_jobs SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'running'`,
		id, status, r.now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM search_jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrJobNotFound
	}
	return domain.ErrJobNotRunning
}

// ClaimPending atomically moves up to limit pending jobs to running, oldest first.
func (r *SearchJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.SearchJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM search_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE search_jobs
		 SET status = $3,
		     updated_at = $4
		 FROM cte
		 WHERE search_jobs.id = cte.id
		 RETURNING search_jobs.id, search_jobs.status, search_jobs.params, search_jobs.results,
		           search_jobs.errors, search_jobs.created_at, search_jobs.updated_at`,
		domain.JobStatusPending, limit, domain.JobStatusRunning, r.now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	return collectSearchJobs(rows)
}

// List returns jobs newest first, optionally filtered by status.
func (r *SearchJobRepository) List(ctx context.Context, status domain.JobStatus, cursor *pagination.Cursor, limit int) (pagination.PageResult[*domain.SearchJob], error) {
	limit = pagination.NormalizeLimit(limit)

	query := `SELECT ` + searchJobColumns + ` FROM search_jobs WHERE ($1 = '' OR status = $1)`
	args := []any{string(status)}
	if cursor != nil {
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, cursor.Timestamp, cursor.LastID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return pagination.PageResult[*domain.SearchJob]{}, err
	}
	jobs, err := collectSearchJobs(rows)
	if err != nil {
		return pagination.PageResult[*domain.SearchJob]{}, err
	}

	return pagination.NewPage(jobs, limit,
		func(j *domain.SearchJob) string { return j.ID },
		func(j *domain.SearchJob) time.Time { return j.CreatedAt },
	), nil
}

// FailStale marks jobs running since before cutoff as error and records message under the job key.
func (r *SearchJobRepository) FailStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE search_jobs
		 SET status = $1,
		     errors = errors || jsonb_build_object($2::text, $3::text),
		     updated_at = $4
		 WHERE status = $5 AND updated_at < $6`,
		domain.JobStatusError, domain.JobErrorKey, message, r.now().UTC(), domain.JobStatusRunning, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectSearchJobs(rows pgx.Rows) ([]*domain.SearchJob, error) {
	defer rows.Close()

	var jobs []*domain.SearchJob
	for rows.Next() {
		job, err := scanSearchJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanSearchJob(row pgx.Row) (*domain.SearchJob, error) {
	var job domain.SearchJob
	var params, results, errs []byte
	if err := row.Scan(&job.ID, &job.Status, &params, &results, &errs, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &job.Params); err != nil {
		return nil, fmt.Errorf("decode params of job %s: %w", job.ID, err)
	}
	if err := json.Unmarshal(results, &job.Results); err != nil {
		return nil, fmt.Errorf("decode results of job %s: %w", job.ID, err)
	}
	if err := json.Unmarshal(errs, &job.Errors); err != nil {
		return nil, fmt.Errorf("decode errors of job %s: %w", job.ID, err)
	}
	if job.Results == nil {
		job.Results = map[string][]domain.SourceRecord{}
	}
	if job.Errors == nil {
		job.Errors = map[string]string{}
	}
	return &job, nil
}
