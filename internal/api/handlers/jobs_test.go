package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/service"
)

type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) CreateJob(ctx context.Context, params domain.SearchParams) (*domain.SearchJob, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchJob), args.Error(1)
}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*domain.SearchJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchJob), args.Error(1)
}

func (m *MockJobService) ListJobs(ctx context.Context, input service.ListJobsInput) (*service.ListJobsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListJobsOutput), args.Error(1)
}

func (m *MockJobService) RunJob(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockJobWatcher struct {
	mock.Mock
}

func (m *MockJobWatcher) Watch(ctx context.Context, id string, emit func(*domain.SearchJob) error) error {
	args := m.Called(ctx, id, emit)
	return args.Error(0)
}

func newTestJob() *domain.SearchJob {
	return domain.NewSearchJob("job-123", domain.SearchParams{
		OriginCity:      "London",
		DestinationCity: "Lisbon",
		Scenario:        domain.ScenarioBalanced,
	}, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func withJobID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestJobHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockJobService)
	handler := NewJobHandler(mockSvc, nil)

	mockSvc.On("CreateJob", mock.Anything, mock.MatchedBy(func(p domain.SearchParams) bool {
		return p.OriginCity == "London" && p.DestinationCity == "Lisbon"
	})).Return(newTestJob(), nil)

	body := `{"originCity":"London","destinationCity":"Lisbon","scenario":"balanced"}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "job-123", data["jobId"])
	assert.Equal(t, "pending", data["status"])
	mockSvc.AssertExpectations(t)
}

func TestJobHandler_Create_InvalidJSON(t *testing.T) {
	handler := NewJobHandler(new(MockJobService), nil)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader([]byte(`{invalid`)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestJobHandler_Create_ValidationError(t *testing.T) {
	mockSvc := new(MockJobService)
	handler := NewJobHandler(mockSvc, nil)

	mockSvc.On("CreateJob", mock.Anything, mock.Anything).Return(nil, domain.ErrMissingRequiredField)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrCodeValidation)
}

func TestJobHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockJobService)
	handler := NewJobHandler(mockSvc, nil)

	mockSvc.On("GetJob", mock.Anything, "job-123").Return(newTestJob(), nil)

	req := withJobID(httptest.NewRequest(http.MethodGet, "/jobs/job-123", nil), "job-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"destinationCity":"Lisbon"`)
	mockSvc.AssertExpectations(t)
}

func TestJobHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockJobService)
	handler := NewJobHandler(mockSvc, nil)

	mockSvc.On("GetJob", mock.Anything, "job-999").Return(nil, domain.ErrJobNotFound)

	req := withJobID(httptest.NewRequest(http.MethodGet, "/jobs/job-999", nil), "job-999")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobHandler_List(t *testing.T) {
	mockSvc := new(MockJobService)
	handler := NewJobHandler(mockSvc, nil)

	mockSvc.On("ListJobs", mock.Anything, service.ListJobsInput{
		Status: domain.JobStatusCompleted,
		Cursor: "abc",
		Limit:  5,
	}).Return(&service.ListJobsOutput{
		Items:   []*domain.SearchJob{newTestJob()},
		Cursor:  "next",
		HasMore: true,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs?status=completed&cursor=abc&limit=5", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data JobListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "next", resp.Data.Cursor)
	assert.True(t, resp.Data.HasMore)
	mockSvc.AssertExpectations(t)
}

func TestJobHandler_List_DefaultLimit(t *testing.T) {
	mockSvc := new(MockJobService)
	handler := NewJobHandler(mockSvc, nil)

	mockSvc.On("ListJobs", mock.Anything, service.ListJobsInput{Limit: 20}).
		Return(&service.ListJobsOutput{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs?limit=nope", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestJobHandler_Run_Accepted(t *testing.T) {
	mockSvc := new(MockJobService)
	handler := NewJobHandler(mockSvc, nil)

	mockSvc.On("GetJob", mock.Anything, "job-123").Return(newTestJob(), nil)
	mockSvc.On("RunJob", mock.Anything, "job-123").Return(nil)

	req := withJobID(httptest.NewRequest(http.MethodPost, "/jobs/job-123/run", nil), "job-123")
	w := httptest.NewRecorder()

	handler.Run(w, req)
	handler.Wait()

	assert.Equal(t, http.StatusAccepted, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestJobHandler_Run_NotFound(t *testing.T) {
	mockSvc := new(MockJobService)
	handler := NewJobHandler(mockSvc, nil)

	mockSvc.On("GetJob", mock.Anything, "job-999").Return(nil, domain.ErrJobNotFound)

	req := withJobID(httptest.NewRequest(http.MethodPost, "/jobs/job-999/run", nil), "job-999")
	w := httptest.NewRecorder()

	handler.Run(w, req)
	handler.Wait()

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertNotCalled(t, "RunJob", mock.Anything, mock.Anything)
}

func TestJobHandler_Events_StreamsSnapshots(t *testing.T) {
	watcher := new(MockJobWatcher)
	handler := NewJobHandler(new(MockJobService), watcher)

	running := newTestJob()
	running.Status = domain.JobStatusRunning
	done := newTestJob()
	done.Status = domain.JobStatusCompleted

	watcher.On("Watch", mock.Anything, "job-123", mock.Anything).
		Run(func(args mock.Arguments) {
			emit := args.Get(2).(func(*domain.SearchJob) error)
			_ = emit(running)
			_ = emit(done)
		}).
		Return(nil)

	req := withJobID(httptest.NewRequest(http.MethodGet, "/jobs/job-123/events", nil), "job-123")
	w := httptest.NewRecorder()

	handler.Events(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Equal(t, 2, bytes.Count([]byte(body), []byte("event: job\n")))
	assert.Contains(t, body, `"status":"completed"`)
	assert.Contains(t, body, "event: end\ndata: {\"jobId\":\"job-123\"}\n\n")
}

func TestJobHandler_Events_NotFoundBeforeStream(t *testing.T) {
	watcher := new(MockJobWatcher)
	handler := NewJobHandler(new(MockJobService), watcher)

	watcher.On("Watch", mock.Anything, "job-999", mock.Anything).Return(domain.ErrJobNotFound)

	req := withJobID(httptest.NewRequest(http.MethodGet, "/jobs/job-999/events", nil), "job-999")
	w := httptest.NewRecorder()

	handler.Events(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestJobHandler_Events_FailureAfterStream(t *testing.T) {
	watcher := new(MockJobWatcher)
	handler := NewJobHandler(new(MockJobService), watcher)

	watcher.On("Watch", mock.Anything, "job-123", mock.Anything).
		Run(func(args mock.Arguments) {
			emit := args.Get(2).(func(*domain.SearchJob) error)
			_ = emit(newTestJob())
		}).
		Return(errors.New("redis gone"))

	req := withJobID(httptest.NewRequest(http.MethodGet, "/jobs/job-123/events", nil), "job-123")
	w := httptest.NewRecorder()

	handler.Events(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event: error\n")
	assert.NotContains(t, w.Body.String(), "redis gone")
}
