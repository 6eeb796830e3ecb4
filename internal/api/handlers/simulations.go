package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/cloo-solutions/movewise/internal/api"
	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/service"
)

type NarrativeStreamer interface {
	StreamNarrative(ctx context.Context, req service.NarrativeRequest, onChunk func(string) error) (*service.NarrativeResult, error)
}

type TimelineNormalizer interface {
	NormalizeTimeline(ctx context.Context, req service.TimelineRequest) (*domain.Timeline, error)
}

type SimulationHandler struct {
	narratives NarrativeStreamer
	timelines  TimelineNormalizer
}

func NewSimulationHandler(narratives NarrativeStreamer, timelines TimelineNormalizer) *SimulationHandler {
	return &SimulationHandler{narratives: narratives, timelines: timelines}
}

type NarrativeRequest struct {
	domain.SearchParams
	BudgetRange string `json:"budgetRange,omitempty"`
	Enrich      bool   `json:"enrich"`
}

type TimelineRequest struct {
	ScenarioKey   string         `json:"scenarioKey"`
	ScenarioTitle string         `json:"scenarioTitle"`
	Narrative     string         `json:"narrative"`
	Preferences   map[string]any `json:"preferences"`
}

type narrativeChunk struct {
	Text string `json:"text"`
}

// Narrative streams the simulation as Server-Sent Events: "chunk" events while the model
// writes, then one "result" event with the full narrative, sources and analysis.
func (h *SimulationHandler) Narrative(w http.ResponseWriter, r *http.Request) {
	var req NarrativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var stream *eventStream
	result, err := h.narratives.StreamNarrative(r.Context(), service.NarrativeRequest{
		Params:      req.SearchParams,
		BudgetRange: req.BudgetRange,
		Enrich:      req.Enrich,
	}, func(chunk string) error {
		if stream == nil {
			s, err := newEventStream(w)
			if err != nil {
				return err
			}
			stream = s
		}
		return stream.send("chunk", narrativeChunk{Text: chunk})
	})

	if err != nil {
		if stream == nil {
			api.HandleError(w, err)
			return
		}
		log.Printf("narrative: stream failed: %v", err)
		_ = stream.send("error", api.ErrorResponse{Error: "narrative generation failed"})
		return
	}
	if stream == nil {
		s, err := newEventStream(w)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		stream = s
	}
	_ = stream.send("result", result)
}

func (h *SimulationHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	var req TimelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	timeline, err := h.timelines.NormalizeTimeline(r.Context(), service.TimelineRequest{
		ScenarioKey:   req.ScenarioKey,
		ScenarioTitle: req.ScenarioTitle,
		Narrative:     req.Narrative,
		Preferences:   req.Preferences,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, timeline)
}
