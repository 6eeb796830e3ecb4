package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/movewise/internal/cache"
	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/repository"
)

// MockObjectStore is a mock implementation of ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	args := m.Called(ctx, key, contentType, body)
	return args.Error(0)
}

func (m *MockObjectStore) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func TestCreateReport(t *testing.T) {
	store := new(MockObjectStore)
	store.On("PutObject", mock.Anything, "reports/r-1.md", reportContentType, mock.MatchedBy(func(body []byte) bool {
		md := string(body)
		return strings.Contains(md, "# Relocation report: London to Lisbon") &&
			strings.Contains(md, "The Balanced Mover") &&
			strings.Contains(md, "## Simulation") &&
			strings.Contains(md, "| Visa | 0-2 | Apply for D7 |") &&
			strings.Contains(md, "- [Guide](https://a)")
	})).Return(nil)
	store.On("PresignDownload", mock.Anything, "reports/r-1.md", DefaultReportURLTTL).Return("https://s3/reports/r-1.md?sig", nil)
	svc := NewReportServiceWithUUIDGen(store, nil, NewMockUUIDGenerator("r-1"))

	report, err := svc.CreateReport(context.Background(), ReportRequest{
		Params:    lisbonParams(""),
		Narrative: "Move in June.",
		Timeline: &domain.Timeline{
			BudgetTotalUSD:  25000,
			TimeframeMonths: 4,
			Phases:          []domain.Phase{{Name: "Visa", StartMonth: 0, EndMonth: 2, Summary: "Apply for D7"}},
			Confidence:      0.7,
		},
		Sources: map[string][]domain.SourceRecord{
			string(domain.CategoryVisaRequirements): {{Title: "Guide", URL: "https://a"}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "reports/r-1.md", report.Key)
	assert.Equal(t, "https://s3/reports/r-1.md?sig", report.URL)
	assert.Positive(t, report.Bytes)
	store.AssertExpectations(t)
}

func TestCreateReport_FromJob(t *testing.T) {
	repo := repository.NewMemorySearchJobRepository()
	require.NoError(t, repo.Create(context.Background(), domain.NewSearchJob("job-1", lisbonParams(""), time.Now())))
	require.NoError(t, repo.PatchResults(context.Background(), "job-1", domain.CategoryHousingMarket,
		[]domain.SourceRecord{{Title: "Rents", URL: "https://rent"}}))
	store := new(MockObjectStore)
	store.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(body []byte) bool {
		return strings.Contains(string(body), "- [Rents](https://rent)")
	})).Return(nil)
	store.On("PresignDownload", mock.Anything, mock.Anything, mock.Anything).Return("https://signed", nil)

	report, err := NewReportService(store, repo).CreateReport(context.Background(), ReportRequest{JobID: "job-1"})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(report.Key, "reports/"))
	assert.True(t, strings.HasSuffix(report.Key, ".md"))
}

func TestCreateReport_Errors(t *testing.T) {
	_, err := NewReportService(nil, nil).CreateReport(context.Background(), ReportRequest{})
	assert.ErrorIs(t, err, domain.ErrServiceNotConfigured)

	store := new(MockObjectStore)
	svc := NewReportService(store, repository.NewMemorySearchJobRepository())

	_, err = svc.CreateReport(context.Background(), ReportRequest{Params: lisbonParams("")})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)

	_, err = svc.CreateReport(context.Background(), ReportRequest{JobID: "missing"})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	store.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket missing"))
	_, err = svc.CreateReport(context.Background(), ReportRequest{Params: lisbonParams(""), Narrative: "x"})
	assert.ErrorContains(t, err, "bucket missing")
}

func TestMaintenance_SweepStaleJobs(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now.Add(-time.Hour)
	repo := repository.NewMemorySearchJobRepository().WithClock(func() time.Time { return clock })
	require.NoError(t, repo.Create(context.Background(), domain.NewSearchJob("old", lisbonParams(""), clock)))
	ok, err := repo.MarkRunning(context.Background(), "old")
	require.NoError(t, err)
	require.True(t, ok)

	svc := NewMaintenanceService(repo, 15*time.Minute)
	svc.now = func() time.Time { return now }

	n, err := svc.SweepStaleJobs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	job, err := repo.GetByID(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusError, job.Status)
	assert.Equal(t, StaleJobMessage, job.Errors[domain.JobErrorKey])
}

func TestMaintenance_PruneCache(t *testing.T) {
	c := cache.NewMemoryCache()
	require.NoError(t, c.Set(context.Background(), "k", "v", time.Nanosecond))
	time.Sleep(time.Millisecond)

	n, err := NewMaintenanceService(repository.NewMemorySearchJobRepository(), time.Minute, c).PruneCache(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
