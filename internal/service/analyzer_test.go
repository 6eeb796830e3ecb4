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

// MockLLM is a mock implementation of LLM. CompleteJSON decodes its first return value
// into out, so malformed payloads fail the way the real client does.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) CompleteJSON(ctx context.Context, system, user string, out any) error {
	args := m.Called(ctx, system, user)
	if err := args.Error(1); err != nil {
		return err
	}
	return json.Unmarshal([]byte(args.String(0)), out)
}

func (m *MockLLM) Stream(ctx context.Context, system, user string, onChunk func(string) error) (string, error) {
	args := m.Called(ctx, system, user)
	chunks, _ := args.Get(0).([]string)
	var b strings.Builder
	for _, c := range chunks {
		if err := onChunk(c); err != nil {
			return b.String(), err
		}
		b.WriteString(c)
	}
	return b.String(), args.Error(1)
}

func assertFallback(t *testing.T, a domain.Analysis) {
	t.Helper()
	assert.Equal(t, FallbackConfidence, a.ConfidenceScore)
	assert.NotEmpty(t, a.VisaSummary)
	assert.NotEmpty(t, a.HousingSummary)
	assert.NotEmpty(t, a.CostSummary)
	assert.NotEmpty(t, a.TransportSummary)
	assert.Equal(t, "$10,000 - $30,000", a.TotalEstimatedCost)
	assert.Equal(t, "2-6 months", a.EstimatedTimeline)
}

func TestAnalyze_ParsesResponse(t *testing.T) {
	llm := new(MockLLM)
	llm.On("CompleteJSON", mock.Anything, analyzerSystemPrompt, mock.MatchedBy(func(user string) bool {
		return strings.Contains(user, "relocating from London to Lisbon") &&
			strings.Contains(user, "Budget: $20000-$40000") &&
			strings.Contains(user, "- Visa Requirements: 1 sources found") &&
			strings.Contains(user, "Visa guide: D7 visa")
	})).Return(`{
		"visaSummary": "D7 works.",
		"housingSummary": "Rents rose.",
		"costSummary": "Cheaper than London.",
		"transportSummary": "Ship by sea.",
		"petSummary": "Microchip the cat.",
		"totalEstimatedCost": "$15,000 - $25,000",
		"estimatedTimeline": "3-4 months",
		"confidenceScore": 0.8
	}`, nil)
	results := map[string][]domain.SourceRecord{
		string(domain.CategoryVisaRequirements): {{Title: "Visa guide", URL: "https://a", Text: "D7 visa"}},
	}

	got := NewAnalyzer(llm).Analyze(context.Background(), results, lisbonParams("moving with my cat"))

	assert.Equal(t, "D7 works.", got.VisaSummary)
	assert.Equal(t, "Microchip the cat.", got.PetSummary)
	assert.Empty(t, got.EducationSummary)
	assert.Equal(t, "3-4 months", got.EstimatedTimeline)
	assert.Equal(t, 0.8, got.ConfidenceScore)
	llm.AssertExpectations(t)
}

func TestAnalyze_FillsMissingFields(t *testing.T) {
	llm := new(MockLLM)
	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Return(`{"visaSummary": "Only visa."}`, nil)

	got := NewAnalyzer(llm).Analyze(context.Background(), nil, lisbonParams(""))

	assert.Equal(t, "Only visa.", got.VisaSummary)
	assert.Equal(t, "Housing market analysis pending.", got.HousingSummary)
	assert.Equal(t, "Cost of living analysis pending.", got.CostSummary)
	assert.Equal(t, "Transport options analysis pending.", got.TransportSummary)
	assert.Equal(t, "TBD", got.TotalEstimatedCost)
	assert.Equal(t, "TBD", got.EstimatedTimeline)
	assert.Equal(t, 0.5, got.ConfidenceScore)
}

func TestAnalyze_ClampsConfidence(t *testing.T) {
	llm := new(MockLLM)
	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Return(`{"confidenceScore": 7}`, nil)

	got := NewAnalyzer(llm).Analyze(context.Background(), nil, lisbonParams(""))

	assert.Equal(t, 1.0, got.ConfidenceScore)
}

func TestAnalyze_FallbackOnError(t *testing.T) {
	llm := new(MockLLM)
	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("timeout"))

	got := NewAnalyzer(llm).Analyze(context.Background(), nil, lisbonParams("family with two kids and a dog"))

	assertFallback(t, got)
	assert.Equal(t, "International schools available.", got.EducationSummary)
	assert.Equal(t, "Pet relocation requires advance planning.", got.PetSummary)
}

func TestAnalyze_FallbackOnMalformedJSON(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":        "the visa is easy",
		"schema mismatch": `{"visaSummary": 42}`,
	} {
		t.Run(name, func(t *testing.T) {
			llm := new(MockLLM)
			llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Return(payload, nil)

			got := NewAnalyzer(llm).Analyze(context.Background(), nil, lisbonParams("alone"))

			assertFallback(t, got)
			assert.Empty(t, got.EducationSummary)
			assert.Empty(t, got.PetSummary)
		})
	}
}

func TestAnalyze_NilLLM(t *testing.T) {
	got := NewAnalyzer(nil).Analyze(context.Background(), nil, lisbonParams(""))
	assertFallback(t, got)
}

func TestBuildAnalysisPrompt_Defaults(t *testing.T) {
	p := lisbonParams("")
	p.BudgetMin = nil
	p.MoveMonth = ""
	p.OriginCountry = "United Kingdom"

	prompt := buildAnalysisPrompt(map[string][]domain.SourceRecord{}, p)

	require.Contains(t, prompt, "from London, United Kingdom to Lisbon.")
	assert.Contains(t, prompt, "Budget: Not specified")
	assert.Contains(t, prompt, "Timeline: Not specified")
	assert.Contains(t, prompt, "Context: Individual relocation")
}
