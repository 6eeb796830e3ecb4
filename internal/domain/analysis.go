package domain

import (
	"math"
	"time"
)

// Analysis is the condensed view of a structured search.
type Analysis struct {
	VisaSummary        string  `json:"visaSummary"`
	HousingSummary     string  `json:"housingSummary"`
	CostSummary        string  `json:"costSummary"`
	TransportSummary   string  `json:"transportSummary"`
	EducationSummary   string  `json:"educationSummary,omitempty"`
	PetSummary         string  `json:"petSummary,omitempty"`
	TotalEstimatedCost string  `json:"totalEstimatedCost"`
	EstimatedTimeline  string  `json:"estimatedTimeline"`
	ConfidenceScore    float64 `json:"confidenceScore"`
}

// SearchMetadata describes one structured search run.
type SearchMetadata struct {
	SearchTimestamp   time.Time `json:"searchTimestamp"`
	TotalResultsFound int       `json:"totalResultsFound"`
	Confidence        float64   `json:"confidence"`
}

// StructuredSearchOutput is the response of the analyzed structured search. It is never persisted.
type StructuredSearchOutput struct {
	Params   SearchParams              `json:"params"`
	Results  map[string][]SourceRecord `json:"results"`
	Analysis Analysis                  `json:"analysis"`
	Metadata SearchMetadata            `json:"metadata"`
}

// LiteSummary is the regex-extracted summary of the lite relocation search.
type LiteSummary struct {
	TotalCost       string `json:"totalCost,omitempty"`
	Timeline        string `json:"timeline,omitempty"`
	VisaPath        string `json:"visaPath"`
	HousingStrategy string `json:"housingStrategy"`
	PetProcess      string `json:"petProcess,omitempty"`
}

// RelocationSearchOutput is the response of the lite relocation search.
type RelocationSearchOutput struct {
	ScenarioKey Scenario                  `json:"scenarioKey"`
	Results     map[string][]SourceRecord `json:"results"`
	Summary     LiteSummary               `json:"summary"`
	Metadata    SearchMetadata            `json:"metadata"`
}

// EnrichedInsights is the trimmed citation view built on top of a lite search.
type EnrichedInsights struct {
	TopVisaSources    []SourceRecord `json:"topVisaSources"`
	TopHousingSources []SourceRecord `json:"topHousingSources"`
	TopCostSources    []SourceRecord `json:"topCostSources"`
	Confidence        float64        `json:"confidence"`
}

// ConfidenceForCount maps a total result count onto the fixed confidence steps.
func ConfidenceForCount(total int) float64 {
	switch {
	case total > 20:
		return 0.9
	case total > 10:
		return 0.7
	default:
		return 0.5
	}
}

// TotalResults sums the lengths of every category list.
func TotalResults(results map[string][]SourceRecord) int {
	total := 0
	for _, items := range results {
		total += len(items)
	}
	return total
}

// NewSearchMetadata derives metadata from the collected results.
func NewSearchMetadata(results map[string][]SourceRecord, now time.Time) SearchMetadata {
	total := TotalResults(results)
	return SearchMetadata{
		SearchTimestamp:   now,
		TotalResultsFound: total,
		Confidence:        ConfidenceForCount(total),
	}
}

// ClampUnit clamps v into [0,1]. NaN becomes 0.
func ClampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
