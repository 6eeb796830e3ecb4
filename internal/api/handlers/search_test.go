package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/movewise/internal/domain"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) PerformSearch(ctx context.Context, p domain.SearchParams) (*domain.StructuredSearchOutput, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StructuredSearchOutput), args.Error(1)
}

func (m *MockSearchService) PerformRelocationSearch(ctx context.Context, p domain.SearchParams) (*domain.RelocationSearchOutput, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RelocationSearchOutput), args.Error(1)
}

func (m *MockSearchService) SearchAndEnrich(ctx context.Context, p domain.SearchParams) (*domain.RelocationSearchOutput, domain.EnrichedInsights, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, domain.EnrichedInsights{}, args.Error(2)
	}
	return args.Get(0).(*domain.RelocationSearchOutput), args.Get(1).(domain.EnrichedInsights), args.Error(2)
}

const searchBody = `{"originCity":"London","destinationCity":"Lisbon","scenario":"cheapest"}`

func TestSearchHandler_Search(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("PerformSearch", mock.Anything, mock.MatchedBy(func(p domain.SearchParams) bool {
		return p.Scenario == domain.ScenarioCheapest
	})).Return(&domain.StructuredSearchOutput{
		Analysis: domain.Analysis{VisaSummary: "D7 visa", ConfidenceScore: 0.7},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(searchBody)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"visaSummary":"D7 visa"`)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_ValidationError(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("PerformSearch", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidScenario)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte(`{"scenario":"slowest"}`)))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid scenario")
}

func TestSearchHandler_Relocation(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("PerformRelocationSearch", mock.Anything, mock.Anything).Return(&domain.RelocationSearchOutput{
		ScenarioKey: domain.ScenarioCheapest,
		Summary:     domain.LiteSummary{VisaPath: "Digital nomad visa"},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/search/relocation", bytes.NewReader([]byte(searchBody)))
	w := httptest.NewRecorder()

	handler.Relocation(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"visaPath":"Digital nomad visa"`)
	mockSvc.AssertNotCalled(t, "SearchAndEnrich", mock.Anything, mock.Anything)
}

func TestSearchHandler_Relocation_Enriched(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("SearchAndEnrich", mock.Anything, mock.Anything).Return(
		&domain.RelocationSearchOutput{ScenarioKey: domain.ScenarioCheapest},
		domain.EnrichedInsights{Confidence: 0.9},
		nil,
	)

	req := httptest.NewRequest(http.MethodPost, "/search/relocation?enrich=true", bytes.NewReader([]byte(searchBody)))
	w := httptest.NewRecorder()

	handler.Relocation(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data EnrichedSearchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Search)
	assert.Equal(t, domain.ScenarioCheapest, resp.Data.Search.ScenarioKey)
	assert.Equal(t, 0.9, resp.Data.Insights.Confidence)
	mockSvc.AssertNotCalled(t, "PerformRelocationSearch", mock.Anything, mock.Anything)
}
