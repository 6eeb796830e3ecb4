package service

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/exa"
	"github.com/cloo-solutions/movewise/internal/telemetry"
)

// StructuredSearchOptions back the analyzed search.
var StructuredSearchOptions = exa.SearchOptions{
	NumResults:         5,
	Type:               exa.SearchTypeNeural,
	StartPublishedDate: "2024-01-01",
	MaxCharacters:      3000,
}

// RelocationSearchOptions back the lite search. Only the regex summary reads the text.
var RelocationSearchOptions = exa.SearchOptions{
	NumResults:         3,
	Type:               exa.SearchTypeNeural,
	StartPublishedDate: "2024-01-01",
	MaxCharacters:      500,
}

const (
	liteExcerptLength = 200
	liteDefaultScore  = 0.5
	enrichTopSources  = 2
)

var (
	costPattern     = regexp.MustCompile(`\$[\d,]+(?:\s*-\s*\$[\d,]+)?`)
	durationPattern = regexp.MustCompile(`(?i)\d+\s*(?:days?|weeks?|months?)`)
)

// StructuredSearchService runs the synchronous, job-less search strategies.
type StructuredSearchService struct {
	search   SearchProvider
	analyzer *Analyzer
	now      func() time.Time
}

func NewStructuredSearchService(search SearchProvider, analyzer *Analyzer) *StructuredSearchService {
	if analyzer == nil {
		analyzer = NewAnalyzer(nil)
	}
	return &StructuredSearchService{
		search:   search,
		analyzer: analyzer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PerformSearch runs the extended plan, one query per category, and adds an LLM analysis.
// Only invalid params return an error.
func (s *StructuredSearchService) PerformSearch(ctx context.Context, p domain.SearchParams) (*domain.StructuredSearchOutput, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "StructuredSearch.PerformSearch", telemetry.SpanAttributes{
		Scenario:  string(p.Scenario),
		Operation: "perform_search",
	})
	defer span.End()

	plan := BuildQueryPlan(p, domain.CategorySetExtended)
	results := gatherPlan(ctx, s.search, plan, StructuredSearchOptions)

	return &domain.StructuredSearchOutput{
		Params:   p,
		Results:  results,
		Analysis: s.analyzer.Analyze(ctx, results, p),
		Metadata: domain.NewSearchMetadata(results, s.now()),
	}, nil
}

// PerformRelocationSearch runs the standard plan with a regex-extracted summary instead of an
// LLM pass. Results are not deduplicated.
func (s *StructuredSearchService) PerformRelocationSearch(ctx context.Context, p domain.SearchParams) (*domain.RelocationSearchOutput, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, "StructuredSearch.PerformRelocationSearch", telemetry.SpanAttributes{
		Scenario:  string(p.Scenario),
		Operation: "relocation_search",
	})
	defer span.End()

	plan := BuildQueryPlan(p, domain.CategorySetStandard)
	results := gatherPlan(ctx, s.search, plan, RelocationSearchOptions)
	for category, items := range results {
		results[category] = liteRecords(items)
	}

	return &domain.RelocationSearchOutput{
		ScenarioKey: p.Scenario,
		Results:     results,
		Summary:     summarize(results),
		Metadata:    domain.NewSearchMetadata(results, s.now()),
	}, nil
}

// SearchAndEnrich runs the lite search and picks the top citation sources from it.
func (s *StructuredSearchService) SearchAndEnrich(ctx context.Context, p domain.SearchParams) (*domain.RelocationSearchOutput, domain.EnrichedInsights, error) {
	out, err := s.PerformRelocationSearch(ctx, p)
	if err != nil {
		return nil, domain.EnrichedInsights{}, err
	}
	return out, domain.EnrichedInsights{
		TopVisaSources:    top(out.Results[string(domain.CategoryVisaRequirements)], enrichTopSources),
		TopHousingSources: top(out.Results[string(domain.CategoryHousingMarket)], enrichTopSources),
		TopCostSources:    top(out.Results[string(domain.CategoryCostOfLiving)], enrichTopSources),
		Confidence:        out.Metadata.Confidence,
	}, nil
}

// SearchCategory runs the queries one category contributes to a plan and deduplicates
// the hits. workOpportunities comes from the extended set, every other category from the
// standard set. A category gated off by the context yields no records.
func (s *StructuredSearchService) SearchCategory(ctx context.Context, p domain.SearchParams, c domain.Category) ([]domain.SourceRecord, error) {
	if !c.IsValid() {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid category: "+string(c), domain.ErrInvalidCategory)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	set := domain.CategorySetStandard
	if c == domain.CategoryWorkOpportunities {
		set = domain.CategorySetExtended
	}
	full := BuildQueryPlan(p, set)
	plan := QueryPlan{
		Set:        set,
		Categories: []domain.Category{c},
		Queries:    map[domain.Category][]string{c: full.Queries[c]},
	}
	results := gatherPlan(ctx, s.search, plan, JobSearchOptions)
	return domain.DedupeByURL(results[string(c)]), nil
}

// gatherPlan issues every query of the plan concurrently. Each category keeps its queries'
// results in query order; failed queries contribute nothing.
func gatherPlan(ctx context.Context, provider SearchProvider, plan QueryPlan, opts exa.SearchOptions) map[string][]domain.SourceRecord {
	batches := make(map[domain.Category][][]domain.SourceRecord, len(plan.Categories))
	for _, c := range plan.Categories {
		batches[c] = make([][]domain.SourceRecord, len(plan.Queries[c]))
	}

	var wg sync.WaitGroup
	for _, c := range plan.Categories {
		for i, q := range plan.Queries[c] {
			wg.Add(1)
			go func(slot [][]domain.SourceRecord, i int, q string) {
				defer wg.Done()
				slot[i] = searchOrEmpty(ctx, provider, q, opts)
			}(batches[c], i, q)
		}
	}
	wg.Wait()

	results := make(map[string][]domain.SourceRecord, len(plan.Categories))
	for _, c := range plan.Categories {
		items := []domain.SourceRecord{}
		for _, batch := range batches[c] {
			items = append(items, batch...)
		}
		results[string(c)] = items
	}
	return results
}

// liteRecords keeps the citation fields only, folding the page text into the snippet.
func liteRecords(items []domain.SourceRecord) []domain.SourceRecord {
	out := make([]domain.SourceRecord, len(items))
	for i, r := range items {
		score := liteDefaultScore
		if r.Score != nil && *r.Score != 0 {
			score = *r.Score
		}
		summary := r.Text
		if summary == "" {
			summary = r.Snippet
		}
		out[i] = domain.SourceRecord{
			Title:         r.Title,
			URL:           r.URL,
			Snippet:       summary,
			PublishedDate: r.PublishedDate,
			Score:         &score,
		}
	}
	return out
}

func summarize(results map[string][]domain.SourceRecord) domain.LiteSummary {
	visa := firstSummary(results[string(domain.CategoryVisaRequirements)])
	housing := firstSummary(results[string(domain.CategoryHousingMarket)])
	pet := firstSummary(results[string(domain.CategoryPetRelocation)])

	cost := costPattern.FindString(housing)
	if cost == "" {
		cost = costPattern.FindString(visa)
	}
	summary := domain.LiteSummary{
		TotalCost:       cost,
		Timeline:        durationPattern.FindString(visa),
		VisaPath:        domain.Excerpt(visa, liteExcerptLength),
		HousingStrategy: domain.Excerpt(housing, liteExcerptLength),
	}
	if pet != "" {
		summary.PetProcess = domain.Excerpt(pet, liteExcerptLength)
	}
	return summary
}

func firstSummary(items []domain.SourceRecord) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].Summary()
}

func top(items []domain.SourceRecord, n int) []domain.SourceRecord {
	if len(items) > n {
		items = items[:n]
	}
	return append([]domain.SourceRecord{}, items...)
}
