package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/telemetry"
)

// MaxNarrativeChars bounds the narrative text sent for timeline extraction.
const MaxNarrativeChars = 12000

const timelineSystemPrompt = "You are a relocation timeline extractor. Read the scenario text and produce a concise, normalized timeline JSON matching the provided schema. Use reasonable defaults when needed. Return strictly valid JSON with no prose. Strictly output JSON only."

var timelineSchema = map[string]any{
	"headline":         "string",
	"budget_total_usd": "number",
	"timeframe_months": "integer",
	"phases": []any{map[string]any{
		"name":        "string",
		"start_month": "integer",
		"end_month":   "integer",
		"summary":     "string",
		"tasks": []any{map[string]any{
			"title":          "string",
			"desc":           "string",
			"cost_usd":       "number",
			"duration_weeks": "number",
			"milestone":      "boolean",
		}},
	}},
	"milestones": []any{map[string]any{"title": "string", "month": "number", "note": "string"}},
	"notes":      "string",
	"confidence": "number between 0 and 1",
}

var timelineRules = []string{
	"Infer total budget (USD) and timeframe (months) if implied",
	"Limit tasks per phase to at most 6 concise items",
	"Mark key steps as milestone: true",
	"Clamp negative numbers to zero and omit impossible fields",
	"Omit null fields where not applicable",
}

// TimelineRequest carries a narrative and the scenario it was generated for.
type TimelineRequest struct {
	ScenarioKey   string
	ScenarioTitle string
	Narrative     string
	Preferences   map[string]any
}

type timelineUserPayload struct {
	ScenarioKey   string         `json:"scenario_key,omitempty"`
	ScenarioTitle string         `json:"scenario_title,omitempty"`
	Preferences   map[string]any `json:"preferences"`
	Schema        map[string]any `json:"schema"`
	ScenarioText  string         `json:"scenario_text"`
	Rules         []string       `json:"rules"`
}

// TimelineService extracts structured timelines from narratives.
type TimelineService struct {
	llm LLM
}

func NewTimelineService(llm LLM) *TimelineService {
	return &TimelineService{llm: llm}
}

// NormalizeTimeline asks the LLM for timeline JSON and clamps it. Months are non-negative
// integers and no phase ends before it starts, whatever the model returned.
func (s *TimelineService) NormalizeTimeline(ctx context.Context, req TimelineRequest) (*domain.Timeline, error) {
	if s.llm == nil {
		return nil, domain.ErrServiceNotConfigured
	}
	text := strings.TrimSpace(req.Narrative)
	if text == "" {
		return nil, domain.ErrEmptyNarrative
	}
	text = domain.Excerpt(text, MaxNarrativeChars)

	ctx, span := telemetry.StartSpan(ctx, "Timeline.Normalize", telemetry.SpanAttributes{
		Scenario:  req.ScenarioKey,
		Operation: "timeline",
	})
	defer span.End()

	title := req.ScenarioTitle
	if title == "" && req.ScenarioKey != "" {
		if sc := domain.Scenario(req.ScenarioKey); sc.IsValid() {
			title = sc.Label()
		}
	}
	prefs := req.Preferences
	if prefs == nil {
		prefs = map[string]any{}
	}
	user, err := json.Marshal(timelineUserPayload{
		ScenarioKey:   req.ScenarioKey,
		ScenarioTitle: title,
		Preferences:   prefs,
		Schema:        timelineSchema,
		ScenarioText:  text,
		Rules:         timelineRules,
	})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid timeline preferences", err)
	}

	var raw domain.RawTimeline
	if err := s.llm.CompleteJSON(ctx, timelineSystemPrompt, string(user), &raw); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "timeline extraction failed", err)
	}
	timeline := raw.Normalize()
	return &timeline, nil
}
