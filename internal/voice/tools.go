// Package voice exposes relocation capabilities as single-shot tools for a voice agent.
// Every tool takes flat string, number and boolean arguments and answers with plain text
// meant to be read aloud.
package voice

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/service"
)

// DefaultCacheTTL is how long a relocation options answer is reused.
const DefaultCacheTTL = 24 * time.Hour

// Tool names.
const (
	ToolCategorySearch    = "category_search"
	ToolRelocationOptions = "relocation_options"
	ToolEstimateCosts     = "estimate_costs"
	ToolVisaRequirements  = "visa_requirements"
	ToolDocumentDetails   = "document_details"
)

// Args are the decoded arguments of one tool call. Values come straight from JSON, so
// numbers arrive as float64; string forms of numbers and booleans are accepted too.
type Args map[string]any

type handler func(ctx context.Context, t *Tools, a Args) (string, error)

var handlers = map[string]handler{
	ToolCategorySearch:    callCategorySearch,
	ToolRelocationOptions: callRelocationOptions,
	ToolEstimateCosts:     callEstimateCosts,
	ToolVisaRequirements:  callVisaRequirements,
	ToolDocumentDetails:   callDocumentDetails,
}

// Tools serves the voice tool calls. Any collaborator may be nil; tools that need a missing
// one fall back to their static answers.
type Tools struct {
	provider service.SearchProvider
	search   *service.StructuredSearchService
	llm      service.LLM
	cache    service.Cache
	cacheTTL time.Duration
}

func NewTools(provider service.SearchProvider, llm service.LLM, cache service.Cache) *Tools {
	t := &Tools{
		provider: provider,
		llm:      llm,
		cache:    cache,
		cacheTTL: DefaultCacheTTL,
	}
	if provider != nil {
		t.search = service.NewStructuredSearchService(provider, nil)
	}
	return t
}

// WithCacheTTL overrides DefaultCacheTTL.
func (t *Tools) WithCacheTTL(ttl time.Duration) *Tools {
	if ttl > 0 {
		t.cacheTTL = ttl
	}
	return t
}

// Names lists the registered tools in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the named tool.
func (t *Tools) Call(ctx context.Context, name string, args Args) (string, error) {
	h, ok := handlers[name]
	if !ok {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, "unknown tool: "+name, domain.ErrUnknownTool)
	}
	if args == nil {
		args = Args{}
	}
	return h(ctx, t, args)
}

func callCategorySearch(ctx context.Context, t *Tools, a Args) (string, error) {
	category, err := a.required("category")
	if err != nil {
		return "", err
	}
	origin, err := a.required("origin_city")
	if err != nil {
		return "", err
	}
	dest, err := a.required("destination_city")
	if err != nil {
		return "", err
	}
	return t.CategorySearch(ctx, domain.Category(category), origin, dest, a.str("scenario"))
}

func callRelocationOptions(ctx context.Context, t *Tools, a Args) (string, error) {
	var loc Locations
	var err error
	if loc.OriginCity, err = a.required("origin_city"); err != nil {
		return "", err
	}
	if loc.OriginCountry, err = a.required("origin_country"); err != nil {
		return "", err
	}
	if loc.DestinationCity, err = a.required("destination_city"); err != nil {
		return "", err
	}
	if loc.DestinationCountry, err = a.required("destination_country"); err != nil {
		return "", err
	}
	return t.RelocationOptions(ctx, loc), nil
}

func callEstimateCosts(ctx context.Context, t *Tools, a Args) (string, error) {
	city, err := a.required("destination_city")
	if err != nil {
		return "", err
	}
	return t.EstimateCosts(ctx, CostRequest{
		DestinationCity: city,
		IncludeFlight:   a.boolean("include_flight", true),
		IncludeHousing:  a.boolean("include_housing", true),
		IncludeMoving:   a.boolean("include_moving", true),
		FamilySize:      a.integer("family_size", 1),
	}), nil
}

func callVisaRequirements(_ context.Context, _ *Tools, a Args) (string, error) {
	origin, err := a.required("origin_country")
	if err != nil {
		return "", err
	}
	dest, err := a.required("destination_country")
	if err != nil {
		return "", err
	}
	return VisaRequirements(origin, dest, a.str("visa_type")), nil
}

func callDocumentDetails(_ context.Context, _ *Tools, a Args) (string, error) {
	doc, err := a.required("document_type")
	if err != nil {
		return "", err
	}
	return DocumentDetails(doc, a.str("country")), nil
}

func (a Args) str(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (a Args) required(key string) (string, error) {
	v := a.str(key)
	if v == "" {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, key+" is required", domain.ErrMissingRequiredField)
	}
	return v, nil
}

func (a Args) boolean(key string, fallback bool) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func (a Args) integer(key string, fallback int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}
