package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/telemetry"
)

const narrativeUserPrompt = "Using the inputs above, produce the simulation. Be concrete and avoid filler."

const narrativeTopSources = 2

// NarrativeRequest describes one scenario simulation.
type NarrativeRequest struct {
	Params domain.SearchParams
	// BudgetRange overrides the range rendered from the budget bounds.
	BudgetRange string
	// Enrich runs the analyzed structured search first and feeds its analysis to the prompt.
	Enrich bool
}

// NarrativeResult is the accumulated narrative plus the citation view used to enrich it.
type NarrativeResult struct {
	Scenario    domain.Scenario                  `json:"scenario"`
	Label       string                           `json:"label"`
	Narrative   string                           `json:"narrative"`
	TopSources  map[string][]domain.SourceRecord `json:"topSources,omitempty"`
	Analysis    *domain.Analysis                 `json:"analysis,omitempty"`
	SearchError string                           `json:"searchError,omitempty"`
}

// NarrativeService streams scenario simulations from the LLM.
type NarrativeService struct {
	llm    LLM
	search *StructuredSearchService
}

// NewNarrativeService creates a NarrativeService. search may be nil, which disables enrichment.
func NewNarrativeService(llm LLM, search *StructuredSearchService) *NarrativeService {
	return &NarrativeService{llm: llm, search: search}
}

// StreamNarrative delivers the narrative through onChunk as it is generated and returns the
// combined result. Enrichment failures never stop the narrative.
func (s *NarrativeService) StreamNarrative(ctx context.Context, req NarrativeRequest, onChunk func(string) error) (*NarrativeResult, error) {
	if s.llm == nil {
		return nil, domain.ErrServiceNotConfigured
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	p := req.Params

	ctx, span := telemetry.StartSpan(ctx, "Narrative.Stream", telemetry.SpanAttributes{
		Scenario:  string(p.Scenario),
		Operation: "narrative",
	})
	defer span.End()

	result := &NarrativeResult{Scenario: p.Scenario, Label: p.Scenario.Label()}
	if req.Enrich {
		s.enrich(ctx, p, result)
	}

	budget := req.BudgetRange
	if strings.TrimSpace(budget) == "" {
		budget = budgetRange(p.BudgetMin, p.BudgetMax)
	}
	system := buildNarrativePrompt(p, budget, result.Analysis)

	text, err := s.llm.Stream(ctx, system, narrativeUserPrompt, onChunk)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "narrative generation failed", err)
	}
	result.Narrative = text
	return result, nil
}

func (s *NarrativeService) enrich(ctx context.Context, p domain.SearchParams, result *NarrativeResult) {
	if s.search == nil {
		result.SearchError = "search not configured"
		return
	}
	defer func() {
		if r := recover(); r != nil {
			result.SearchError = fmt.Sprintf("search failed: %v", r)
			log.Printf("narrative: enrichment panic: %v", r)
		}
	}()

	out, err := s.search.PerformSearch(ctx, p)
	if err != nil {
		result.SearchError = err.Error()
		log.Printf("narrative: enrichment failed: %v", err)
		return
	}
	analysis := out.Analysis
	result.Analysis = &analysis
	result.TopSources = make(map[string][]domain.SourceRecord, len(out.Results))
	for category, items := range out.Results {
		result.TopSources[category] = citations(top(items, narrativeTopSources))
	}
}

// citations drops page text, keeping what a UI needs to link a source.
func citations(items []domain.SourceRecord) []domain.SourceRecord {
	out := make([]domain.SourceRecord, len(items))
	for i, r := range items {
		out[i] = domain.SourceRecord{
			Title:         r.Title,
			URL:           r.URL,
			Snippet:       r.Snippet,
			PublishedDate: r.PublishedDate,
			Score:         r.Score,
		}
	}
	return out
}

func buildNarrativePrompt(p domain.SearchParams, budget string, analysis *domain.Analysis) string {
	var b strings.Builder
	b.WriteString("ROLE AND GOAL\n")
	b.WriteString("You are an expert relocation logistics simulator. Your goal is to generate one distinct, realistic simulation for the mover based on the provided inputs and the specified scenario style.\n\n")

	b.WriteString("CORE VARIABLES (INPUTS)\n")
	b.WriteString("- Profile: Not provided explicitly; infer a reasonable baseline family profile unless context specifies otherwise.\n")
	fmt.Fprintf(&b, "- Origin: %s\n", place(p.OriginCity, p.OriginCountry))
	fmt.Fprintf(&b, "- Destination: %s\n", place(p.DestinationCity, p.DestinationCountry))
	fmt.Fprintf(&b, "- Budget Range: %s\n", strings.TrimSpace(budget))
	fmt.Fprintf(&b, "- Ideal Move Month: %s\n", strings.TrimSpace(p.MoveMonth))
	fmt.Fprintf(&b, "- Additional Context: %s\n\n", strings.TrimSpace(p.Context))

	b.WriteString("SIMULATION LOGIC (PROCESS)\n")
	b.WriteString("For the destination, simulate the full relocation process and estimate both cost and time for:\n")
	b.WriteString("1) Visa & Immigration (path, docs, processing times, fees)\n")
	b.WriteString("2) Pet Relocation (requirements, costs, timeline) if relevant\n")
	b.WriteString("3) Housing (rental process, average rent, deposits, agent fees)\n")
	b.WriteString("4) Cost of Living Adjustment (salary vs. taxes and expenses)\n")
	b.WriteString("5) Setup Costs (shipping, flights, temporary housing)\n")
	b.WriteString("6) Timeline Estimation (Gantt-style phases with dependencies)\n\n")

	if analysis != nil {
		b.WriteString("RESEARCH NOTES (from current web sources)\n")
		fmt.Fprintf(&b, "- Visa: %s\n", analysis.VisaSummary)
		fmt.Fprintf(&b, "- Housing: %s\n", analysis.HousingSummary)
		fmt.Fprintf(&b, "- Cost of living: %s\n", analysis.CostSummary)
		fmt.Fprintf(&b, "- Transport: %s\n", analysis.TransportSummary)
		if analysis.EducationSummary != "" {
			fmt.Fprintf(&b, "- Education: %s\n", analysis.EducationSummary)
		}
		if analysis.PetSummary != "" {
			fmt.Fprintf(&b, "- Pets: %s\n", analysis.PetSummary)
		}
		fmt.Fprintf(&b, "- Estimated total cost: %s\n", analysis.TotalEstimatedCost)
		fmt.Fprintf(&b, "- Estimated timeline: %s\n\n", analysis.EstimatedTimeline)
	}

	b.WriteString("SCENARIO STYLE\n")
	fmt.Fprintf(&b, "Scenario: %s\n", p.Scenario.Label())
	fmt.Fprintf(&b, "Guidance: %s\n\n", p.Scenario.Guidance())

	b.WriteString("OUTPUT FORMAT\n")
	b.WriteString("Return a concise Markdown block containing:\n")
	b.WriteString("- A short headline for the scenario\n")
	b.WriteString("- Bullet summaries for each factor with concrete estimates\n")
	b.WriteString("- Total Estimated Cost (USD) and Estimated Timeline (months)\n")
	b.WriteString("- One major pro and one major con\n")
	b.WriteString("- A feasibility score (1-10)")
	return b.String()
}
