package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/movewise/internal/domain"
)

func TestStreamNarrative_AccumulatesChunks(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Stream", mock.Anything, mock.MatchedBy(func(system string) bool {
		return strings.Contains(system, "- Origin: London") &&
			strings.Contains(system, "- Budget Range: $20,000 to $40,000") &&
			strings.Contains(system, "Scenario: The Balanced Mover") &&
			strings.Contains(system, "A feasibility score (1-10)") &&
			!strings.Contains(system, "RESEARCH NOTES")
	}), narrativeUserPrompt).Return([]string{"# Lisbon", " plan", "\nScore: 7"}, nil)
	svc := NewNarrativeService(llm, nil)

	var got []string
	res, err := svc.StreamNarrative(context.Background(), NarrativeRequest{Params: lisbonParams("")}, func(c string) error {
		got = append(got, c)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"# Lisbon", " plan", "\nScore: 7"}, got)
	assert.Equal(t, "# Lisbon plan\nScore: 7", res.Narrative)
	assert.Equal(t, "The Balanced Mover", res.Label)
	assert.Nil(t, res.Analysis)
	llm.AssertExpectations(t)
}

func TestStreamNarrative_EnrichedWithAnalysis(t *testing.T) {
	provider := new(MockSearchProvider)
	provider.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SourceRecord{
			{Title: "a", URL: "https://a", Text: "long text", Snippet: "long"},
			{Title: "b", URL: "https://b"},
			{Title: "c", URL: "https://c"},
		}, nil)
	llm := new(MockLLM)
	llm.On("CompleteJSON", mock.Anything, analyzerSystemPrompt, mock.Anything).
		Return(`{"visaSummary": "D7 visa fits remote workers."}`, nil)
	llm.On("Stream", mock.Anything, mock.MatchedBy(func(system string) bool {
		return strings.Contains(system, "- Visa: D7 visa fits remote workers.")
	}), narrativeUserPrompt).Return([]string{"ok"}, nil)
	search := NewStructuredSearchService(provider, NewAnalyzer(llm))
	svc := NewNarrativeService(llm, search)

	res, err := svc.StreamNarrative(context.Background(), NarrativeRequest{Params: lisbonParams(""), Enrich: true}, func(string) error { return nil })

	require.NoError(t, err)
	require.NotNil(t, res.Analysis)
	assert.Equal(t, "D7 visa fits remote workers.", res.Analysis.VisaSummary)
	visa := res.TopSources[string(domain.CategoryVisaRequirements)]
	require.Len(t, visa, 2)
	assert.Empty(t, visa[0].Text)
	assert.Equal(t, "long", visa[0].Snippet)
	assert.Empty(t, res.SearchError)
}

func TestStreamNarrative_ProceedsWhenSearchUnavailable(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Stream", mock.Anything, mock.Anything, narrativeUserPrompt).Return([]string{"plan"}, nil)
	svc := NewNarrativeService(llm, nil)

	res, err := svc.StreamNarrative(context.Background(), NarrativeRequest{Params: lisbonParams(""), Enrich: true}, func(string) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, "plan", res.Narrative)
	assert.NotEmpty(t, res.SearchError)
	assert.Nil(t, res.Analysis)
}

func TestStreamNarrative_ProceedsWhenSearchPanics(t *testing.T) {
	provider := new(MockSearchProvider)
	provider.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]domain.SourceRecord{}, nil)
	llm := new(MockLLM)
	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Panic("analyzer bug")
	llm.On("Stream", mock.Anything, mock.Anything, narrativeUserPrompt).Return([]string{"plan"}, nil)
	svc := NewNarrativeService(llm, NewStructuredSearchService(provider, NewAnalyzer(llm)))

	res, err := svc.StreamNarrative(context.Background(), NarrativeRequest{Params: lisbonParams(""), Enrich: true}, func(string) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, "plan", res.Narrative)
	assert.Contains(t, res.SearchError, "analyzer bug")
}

func TestStreamNarrative_Errors(t *testing.T) {
	_, err := NewNarrativeService(nil, nil).StreamNarrative(context.Background(), NarrativeRequest{Params: lisbonParams("")}, nil)
	assert.ErrorIs(t, err, domain.ErrServiceNotConfigured)

	llm := new(MockLLM)
	llm.On("Stream", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("stream reset"))
	_, err = NewNarrativeService(llm, nil).StreamNarrative(context.Background(), NarrativeRequest{Params: lisbonParams("")}, func(string) error { return nil })
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeUnavailable, de.Code)

	_, err = NewNarrativeService(llm, nil).StreamNarrative(context.Background(), NarrativeRequest{}, nil)
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestNormalizeTimeline(t *testing.T) {
	llm := new(MockLLM)
	llm.On("CompleteJSON", mock.Anything, timelineSystemPrompt, mock.MatchedBy(func(user string) bool {
		var payload map[string]any
		if err := json.Unmarshal([]byte(user), &payload); err != nil {
			return false
		}
		return payload["scenario_title"] == "The Frugal Mover" &&
			len(payload["scenario_text"].(string)) == MaxNarrativeChars &&
			len(payload["rules"].([]any)) == 5
	})).Return(`{
		"headline": "Lisbon on a budget",
		"timeframe_months": 5.6,
		"phases": [
			{"name": "Visa", "start_month": -1, "end_month": 2},
			{"name": "Move", "start_month": 4, "end_month": 3.2}
		],
		"confidence": 1.4
	}`, nil)
	svc := NewTimelineService(llm)

	tl, err := svc.NormalizeTimeline(context.Background(), TimelineRequest{
		ScenarioKey: "cheapest",
		Narrative:   strings.Repeat("x", MaxNarrativeChars+500),
	})

	require.NoError(t, err)
	assert.Equal(t, 6, tl.TimeframeMonths)
	require.Len(t, tl.Phases, 2)
	assert.Equal(t, 0, tl.Phases[0].StartMonth)
	assert.Equal(t, 2, tl.Phases[0].EndMonth)
	assert.Equal(t, 4, tl.Phases[1].StartMonth)
	assert.Equal(t, 4, tl.Phases[1].EndMonth)
	assert.Equal(t, 1.0, tl.Confidence)
	llm.AssertExpectations(t)
}

func TestNormalizeTimeline_Errors(t *testing.T) {
	llm := new(MockLLM)
	svc := NewTimelineService(llm)

	_, err := svc.NormalizeTimeline(context.Background(), TimelineRequest{Narrative: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyNarrative)

	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Return("not json", nil)
	_, err = svc.NormalizeTimeline(context.Background(), TimelineRequest{Narrative: "plan"})
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeUnavailable, de.Code)

	_, err = NewTimelineService(nil).NormalizeTimeline(context.Background(), TimelineRequest{Narrative: "plan"})
	assert.ErrorIs(t, err, domain.ErrServiceNotConfigured)
}
