package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/exa"
	"github.com/cloo-solutions/movewise/internal/pagination"
)

// SearchProvider returns ordered source records for one query.
type SearchProvider interface {
	Search(ctx context.Context, query string, opts exa.SearchOptions) ([]domain.SourceRecord, error)
}

// LLM is the completion capability used for analysis, narratives and timelines.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
	CompleteJSON(ctx context.Context, system, user string, out any) error
	Stream(ctx context.Context, system, user string, onChunk func(string) error) (string, error)
}

// SearchJobRepository is the job record store. Each mutation is a single atomic update.
type SearchJobRepository interface {
	Create(ctx context.Context, job *domain.SearchJob) error
	GetByID(ctx context.Context, id string) (*domain.SearchJob, error)
	MarkRunning(ctx context.Context, id string) (bool, error)
	PatchResults(ctx context.Context, id string, category domain.Category, items []domain.SourceRecord) error
	PatchError(ctx context.Context, id, key, message string) error
	SetStatus(ctx context.Context, id string, status domain.JobStatus) error
	ClaimPending(ctx context.Context, limit int) ([]*domain.SearchJob, error)
	List(ctx context.Context, status domain.JobStatus, cursor *pagination.Cursor, limit int) (pagination.PageResult[*domain.SearchJob], error)
	FailStale(ctx context.Context, cutoff time.Time, message string) (int64, error)
}

// Publisher announces job mutations.
type Publisher interface {
	Publish(ctx context.Context, u domain.JobUpdate) error
}

// Subscriber delivers job mutation notices until cancel is called.
type Subscriber interface {
	Subscribe(ctx context.Context, jobID string) (<-chan domain.JobUpdate, func(), error)
}

// Cache stores expiring text payloads.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, payload string, ttl time.Duration) error
}

// Pruner drops expired cache entries.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// ObjectStore holds generated report artifacts.
type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}
