package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/telemetry"
)

const analyzerSystemPrompt = "You are a relocation expert analyzing search data. Respond only with valid JSON."

const (
	analysisExcerptLength = 300
	analysisTopSources    = 2

	// FallbackConfidence marks an analysis built without the LLM.
	FallbackConfidence = 0.3
	defaultConfidence  = 0.5
)

// Analyzer condenses categorized search results into an Analysis with one JSON completion.
type Analyzer struct {
	llm LLM
}

// NewAnalyzer creates an Analyzer. A nil llm always yields the fallback analysis.
func NewAnalyzer(llm LLM) *Analyzer {
	return &Analyzer{llm: llm}
}

type rawAnalysis struct {
	VisaSummary        string   `json:"visaSummary"`
	HousingSummary     string   `json:"housingSummary"`
	CostSummary        string   `json:"costSummary"`
	TransportSummary   string   `json:"transportSummary"`
	EducationSummary   *string  `json:"educationSummary"`
	PetSummary         *string  `json:"petSummary"`
	TotalEstimatedCost string   `json:"totalEstimatedCost"`
	EstimatedTimeline  string   `json:"estimatedTimeline"`
	ConfidenceScore    *float64 `json:"confidenceScore"`
}

// Analyze never fails. Any LLM, transport or decoding problem yields FallbackAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, results map[string][]domain.SourceRecord, p domain.SearchParams) domain.Analysis {
	ctx, span := telemetry.StartSpan(ctx, "Analyzer.Analyze", telemetry.SpanAttributes{
		Scenario:  string(p.Scenario),
		Operation: "analyze",
	})
	defer span.End()

	if a.llm == nil {
		return FallbackAnalysis(p)
	}

	var raw rawAnalysis
	if err := a.llm.CompleteJSON(ctx, analyzerSystemPrompt, buildAnalysisPrompt(results, p), &raw); err != nil {
		span.SetError(err)
		log.Printf("analyzer: falling back: %v", err)
		return FallbackAnalysis(p)
	}
	return raw.toAnalysis()
}

func (r rawAnalysis) toAnalysis() domain.Analysis {
	confidence := defaultConfidence
	if r.ConfidenceScore != nil && *r.ConfidenceScore != 0 {
		confidence = domain.ClampUnit(*r.ConfidenceScore)
	}
	out := domain.Analysis{
		VisaSummary:        orDefault(r.VisaSummary, "Visa requirements analysis pending."),
		HousingSummary:     orDefault(r.HousingSummary, "Housing market analysis pending."),
		CostSummary:        orDefault(r.CostSummary, "Cost of living analysis pending."),
		TransportSummary:   orDefault(r.TransportSummary, "Transport options analysis pending."),
		TotalEstimatedCost: orDefault(r.TotalEstimatedCost, "TBD"),
		EstimatedTimeline:  orDefault(r.EstimatedTimeline, "TBD"),
		ConfidenceScore:    confidence,
	}
	if r.EducationSummary != nil {
		out.EducationSummary = *r.EducationSummary
	}
	if r.PetSummary != nil {
		out.PetSummary = *r.PetSummary
	}
	return out
}

// FallbackAnalysis is the fixed placeholder analysis used when the LLM is unavailable.
func FallbackAnalysis(p domain.SearchParams) domain.Analysis {
	out := domain.Analysis{
		VisaSummary:        "Visa requirements vary based on nationality and purpose of stay.",
		HousingSummary:     "Housing costs depend on location and accommodation type.",
		CostSummary:        "Cost of living varies by lifestyle and location within the city.",
		TransportSummary:   "Multiple transport and moving options available.",
		TotalEstimatedCost: "$10,000 - $30,000",
		EstimatedTimeline:  "2-6 months",
		ConfidenceScore:    FallbackConfidence,
	}
	if HasFamily(p.Context, domain.CategorySetExtended) {
		out.EducationSummary = "International schools available."
	}
	if HasPets(p.Context) {
		out.PetSummary = "Pet relocation requires advance planning."
	}
	return out
}

func buildAnalysisPrompt(results map[string][]domain.SourceRecord, p domain.SearchParams) string {
	budget := "Not specified"
	if p.BudgetMin != nil && p.BudgetMax != nil {
		budget = fmt.Sprintf("$%d-$%d", *p.BudgetMin, *p.BudgetMax)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these search results for relocating from %s to %s.\n\n",
		place(p.OriginCity, p.OriginCountry), place(p.DestinationCity, p.DestinationCountry))
	fmt.Fprintf(&b, "Scenario: %s\n", p.Scenario)
	fmt.Fprintf(&b, "Budget: %s\n", budget)
	fmt.Fprintf(&b, "Timeline: %s\n", orDefault(p.MoveMonth, "Not specified"))
	fmt.Fprintf(&b, "Context: %s\n\n", orDefault(p.Context, "Individual relocation"))

	b.WriteString("Search Results Summary:\n")
	fmt.Fprintf(&b, "- Visa Requirements: %d sources found\n", len(results[string(domain.CategoryVisaRequirements)]))
	fmt.Fprintf(&b, "- Housing Market: %d sources found\n", len(results[string(domain.CategoryHousingMarket)]))
	fmt.Fprintf(&b, "- Cost of Living: %d sources found\n", len(results[string(domain.CategoryCostOfLiving)]))
	fmt.Fprintf(&b, "- Transport Options: %d sources found\n\n", len(results[string(domain.CategoryTransportOptions)]))

	writeTop := func(heading string, c domain.Category) {
		fmt.Fprintf(&b, "%s:\n", heading)
		for i, r := range results[string(c)] {
			if i == analysisTopSources {
				break
			}
			fmt.Fprintf(&b, "%s: %s\n", r.Title, domain.Excerpt(r.Text, analysisExcerptLength))
		}
		b.WriteString("\n")
	}
	writeTop("Top Visa Information", domain.CategoryVisaRequirements)
	writeTop("Top Housing Information", domain.CategoryHousingMarket)
	writeTop("Top Cost Information", domain.CategoryCostOfLiving)

	b.WriteString(`Please provide a JSON response with:
{
  "visaSummary": "2-3 sentence summary of visa requirements and process",
  "housingSummary": "2-3 sentence summary of housing options and costs",
  "costSummary": "2-3 sentence summary of overall cost of living",
  "transportSummary": "2-3 sentence summary of moving/transport options",
  "educationSummary": "2-3 sentence summary if family context, otherwise null",
  "petSummary": "2-3 sentence summary if pets mentioned, otherwise null",
  "totalEstimatedCost": "Range in USD format like '$15,000 - $25,000'",
  "estimatedTimeline": "Timeline like '2-3 months' or '6-8 weeks'",
  "confidenceScore": 0.1 to 1.0 based on data quality
}`)
	return b.String()
}

func place(city, country string) string {
	if strings.TrimSpace(country) == "" {
		return city
	}
	return city + ", " + country
}
