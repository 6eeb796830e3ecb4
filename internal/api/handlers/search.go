package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/movewise/internal/api"
	"github.com/cloo-solutions/movewise/internal/domain"
)

type SearchService interface {
	PerformSearch(ctx context.Context, p domain.SearchParams) (*domain.StructuredSearchOutput, error)
	PerformRelocationSearch(ctx context.Context, p domain.SearchParams) (*domain.RelocationSearchOutput, error)
	SearchAndEnrich(ctx context.Context, p domain.SearchParams) (*domain.RelocationSearchOutput, domain.EnrichedInsights, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type EnrichedSearchResponse struct {
	Search   *domain.RelocationSearchOutput `json:"search"`
	Insights domain.EnrichedInsights        `json:"insights"`
}

// Search runs the analyzed structured search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var params domain.SearchParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.svc.PerformSearch(r.Context(), params)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, out)
}

// Relocation runs the lite search; ?enrich=true adds the top sources and confidence.
func (h *SearchHandler) Relocation(w http.ResponseWriter, r *http.Request) {
	var params domain.SearchParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if enrich, _ := strconv.ParseBool(r.URL.Query().Get("enrich")); enrich {
		out, insights, err := h.svc.SearchAndEnrich(r.Context(), params)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusOK, EnrichedSearchResponse{Search: out, Insights: insights})
		return
	}

	out, err := h.svc.PerformRelocationSearch(r.Context(), params)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, out)
}
