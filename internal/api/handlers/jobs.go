package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/movewise/internal/api"
	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/service"
)

type JobService interface {
	CreateJob(ctx context.Context, params domain.SearchParams) (*domain.SearchJob, error)
	GetJob(ctx context.Context, id string) (*domain.SearchJob, error)
	ListJobs(ctx context.Context, input service.ListJobsInput) (*service.ListJobsOutput, error)
	RunJob(ctx context.Context, id string) error
}

type JobWatcher interface {
	Watch(ctx context.Context, id string, emit func(*domain.SearchJob) error) error
}

type JobHandler struct {
	svc     JobService
	watcher JobWatcher
	runs    sync.WaitGroup
}

func NewJobHandler(svc JobService, watcher JobWatcher) *JobHandler {
	return &JobHandler{svc: svc, watcher: watcher}
}

type CreateJobResponse struct {
	JobID  string           `json:"jobId"`
	Status domain.JobStatus `json:"status"`
}

type JobListResponse struct {
	Items   []*domain.SearchJob `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var params domain.SearchParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.svc.CreateJob(r.Context(), params)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, CreateJobResponse{JobID: job.ID, Status: job.Status})
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, job)
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 20
	if limitStr := q.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.ListJobs(r.Context(), service.ListJobsInput{
		Status: domain.JobStatus(q.Get("status")),
		Cursor: q.Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, JobListResponse{
		Items:   output.Items,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

// Run starts a pending job in the background and answers 202 right away.
func (h *JobHandler) Run(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	h.runs.Add(1)
	go func() {
		defer h.runs.Done()
		if err := h.svc.RunJob(ctx, id); err != nil {
			log.Printf("job %s: run: %v", id, err)
		}
	}()

	api.Success(w, http.StatusAccepted, CreateJobResponse{JobID: job.ID, Status: job.Status})
}

// Wait blocks until every run started through Run has returned.
func (h *JobHandler) Wait() {
	h.runs.Wait()
}

// Events streams job snapshots as Server-Sent Events until the job is terminal or the client
// goes away.
func (h *JobHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var stream *eventStream

	err := h.watcher.Watch(r.Context(), id, func(job *domain.SearchJob) error {
		if stream == nil {
			s, err := newEventStream(w)
			if err != nil {
				return err
			}
			stream = s
		}
		return stream.send("job", job)
	})

	switch {
	case err == nil:
		if stream != nil {
			_ = stream.send("end", map[string]string{"jobId": id})
		}
	case stream == nil:
		api.HandleError(w, err)
	case r.Context().Err() == nil:
		log.Printf("job %s: event stream: %v", id, err)
		_ = stream.send("error", api.ErrorResponse{Error: "stream interrupted"})
	}
}
