package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/movewise/internal/api"
	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/service"
)

type ReportService interface {
	CreateReport(ctx context.Context, req service.ReportRequest) (*service.Report, error)
}

type ReportHandler struct {
	svc ReportService
}

func NewReportHandler(svc ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

type CreateReportRequest struct {
	Params    domain.SearchParams              `json:"params"`
	JobID     string                           `json:"jobId"`
	Narrative string                           `json:"narrative"`
	Timeline  *domain.Timeline                 `json:"timeline"`
	Sources   map[string][]domain.SourceRecord `json:"sources"`
}

func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.svc.CreateReport(r.Context(), service.ReportRequest{
		Params:    req.Params,
		JobID:     req.JobID,
		Narrative: req.Narrative,
		Timeline:  req.Timeline,
		Sources:   req.Sources,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, report)
}
