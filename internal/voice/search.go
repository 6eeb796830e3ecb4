package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/movewise/internal/cache"
	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/exa"
)

const categorySearchLimit = 5

var categoryTopics = map[domain.Category]string{
	domain.CategoryVisaRequirements:  "visa requirements",
	domain.CategoryHousingMarket:     "the housing market",
	domain.CategoryCostOfLiving:      "the cost of living",
	domain.CategoryTransportOptions:  "moving and shipping",
	domain.CategorySchoolsEducation:  "schools and education",
	domain.CategoryPetRelocation:     "pet relocation",
	domain.CategoryLocalInsights:     "local life",
	domain.CategoryWorkOpportunities: "work opportunities",
}

// gateContext opens the family and pet categories, which are otherwise only planned when the
// traveller's context mentions them.
var gateContext = map[domain.Category]string{
	domain.CategorySchoolsEducation: "moving with family",
	domain.CategoryPetRelocation:    "moving with a pet",
}

var optionsSearch = exa.SearchOptions{
	NumResults:         10,
	StartPublishedDate: "2023-01-01",
	MaxCharacters:      2000,
}

const optionsSystemPrompt = `You are a relocation expert analyzing visa options from %s to %s.
Based on the search results, extract and organize information about:
1. Different visa types available (tourist, work, student, etc.)
2. Costs for each visa type
3. Processing times
4. Key requirements
Respond with a JSON object with the keys "cheapest", "fastest", "convenient" and "premium". Each value is an object with the string fields "visa", "cost", "timeline" and "description".`

const optionsUserPrompt = `Based on these search results about visas from %s to %s, provide 4 relocation options:

Search Results:
%s

Please structure as:
1. Cheapest option (budget-conscious)
2. Fastest option (urgent relocation)
3. Most convenient (balanced approach)
4. Premium option (comprehensive service)

Include visa type, estimated costs, timeline, and key details for each.`

// Locations names both ends of a move.
type Locations struct {
	OriginCity         string
	OriginCountry      string
	DestinationCity    string
	DestinationCountry string
}

type relocationOption struct {
	Visa        string `json:"visa"`
	Cost        string `json:"cost"`
	Timeline    string `json:"timeline"`
	Description string `json:"description"`
}

func (o relocationOption) complete() bool {
	return o.Visa != "" && o.Cost != "" && o.Timeline != ""
}

type relocationOptions struct {
	Cheapest   relocationOption `json:"cheapest"`
	Fastest    relocationOption `json:"fastest"`
	Convenient relocationOption `json:"convenient"`
	Premium    relocationOption `json:"premium"`
}

var fallbackOptions = relocationOptions{
	Cheapest:   relocationOption{Visa: "Working Holiday/Tourist Visa", Cost: "£3,500 - £5,000", Timeline: "2-3 months", Description: "Most affordable with basic visa and budget travel"},
	Fastest:    relocationOption{Visa: "Priority Business Visa", Cost: "£15,000 - £20,000", Timeline: "2-3 weeks", Description: "Expedited processing throughout"},
	Convenient: relocationOption{Visa: "Skilled Worker Visa", Cost: "£8,000 - £12,000", Timeline: "6-8 weeks", Description: "Good balance of cost and convenience"},
	Premium:    relocationOption{Visa: "Investor/Entrepreneur Visa", Cost: "£25,000+", Timeline: "4-6 weeks", Description: "Complete white-glove service"},
}

// CategorySearch runs one category's searches and narrates the top sources.
func (t *Tools) CategorySearch(ctx context.Context, category domain.Category, originCity, destinationCity, scenario string) (string, error) {
	if t.search == nil {
		return "", domain.ErrServiceNotConfigured
	}
	p := domain.SearchParams{
		OriginCity:      originCity,
		DestinationCity: destinationCity,
		Scenario:        domain.Scenario(strings.ToLower(scenario)),
		Context:         gateContext[category],
	}
	items, err := t.search.SearchCategory(ctx, p, category)
	if err != nil {
		return "", err
	}

	topic := categoryTopics[category]
	if len(items) == 0 {
		return fmt.Sprintf("I couldn't find current sources on %s for %s right now. Would you like me to try another topic?", topic, destinationCity), nil
	}
	if len(items) > categorySearchLimit {
		items = items[:categorySearchLimit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here is what I found on %s for moving from %s to %s:\n", topic, originCity, destinationCity)
	for i, r := range items {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, title, r.URL)
		if s := domain.Excerpt(r.Summary(), domain.SnippetLength); s != "" {
			fmt.Fprintf(&b, "\n   %s", strings.Join(strings.Fields(s), " "))
		}
	}
	b.WriteString("\n\nWould you like more detail on any of these?")
	return b.String(), nil
}

// RelocationOptions summarizes four relocation approaches between two places. Answers built
// from live search are cached by location; any failure yields the fixed fallback options.
func (t *Tools) RelocationOptions(ctx context.Context, loc Locations) string {
	key := "options:" + cache.LocationKey(loc.OriginCity, loc.OriginCountry, loc.DestinationCity, loc.DestinationCountry)
	if t.cache != nil {
		cached, ok, err := t.cache.Get(ctx, key)
		if err != nil {
			log.Printf("voice: cache get %s: %v", key, err)
		} else if ok {
			return cached
		}
	}

	opts, err := t.analyzeOptions(ctx, loc)
	if err != nil {
		log.Printf("voice: relocation options %s to %s: %v", loc.OriginCountry, loc.DestinationCountry, err)
		return formatFallbackOptions(loc)
	}

	answer := formatOptions(loc, opts)
	if t.cache != nil {
		if err := t.cache.Set(ctx, key, answer, t.cacheTTL); err != nil {
			log.Printf("voice: cache set %s: %v", key, err)
		}
	}
	return answer
}

func (t *Tools) analyzeOptions(ctx context.Context, loc Locations) (relocationOptions, error) {
	if t.provider == nil || t.llm == nil {
		return relocationOptions{}, domain.ErrServiceNotConfigured
	}
	q := fmt.Sprintf("visa requirements costs %s to %s 2024 2025 immigration work permit student visa tourist visa processing time fees",
		loc.OriginCountry, loc.DestinationCountry)
	results, err := t.provider.Search(ctx, q, optionsSearch)
	if err != nil {
		return relocationOptions{}, err
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, r.Title+"\n"+r.Summary())
	}
	var opts relocationOptions
	err = t.llm.CompleteJSON(ctx,
		fmt.Sprintf(optionsSystemPrompt, loc.OriginCountry, loc.DestinationCountry),
		fmt.Sprintf(optionsUserPrompt, loc.OriginCountry, loc.DestinationCountry, strings.Join(blocks, "\n\n")),
		&opts)
	if err != nil {
		return relocationOptions{}, err
	}
	for _, o := range []relocationOption{opts.Cheapest, opts.Fastest, opts.Convenient, opts.Premium} {
		if !o.complete() {
			return relocationOptions{}, errors.New("incomplete relocation options")
		}
	}
	return opts, nil
}

func formatOptions(loc Locations, o relocationOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I've analyzed current visa options and costs for relocating from %s, %s to %s, %s.\n\n",
		loc.OriginCity, loc.OriginCountry, loc.DestinationCity, loc.DestinationCountry)
	b.WriteString("Here are your four main relocation approaches:\n\n")
	writeOptions(&b, o)
	b.WriteString(`Would you like me to:
📧 **Send you a detailed PDF report** with complete visa requirements, documentation checklists, and step-by-step guides to your email?
💬 **Discuss specific options** in more detail right now?

Just let me know your preference!`)
	return b.String()
}

func formatFallbackOptions(loc Locations) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I've analyzed relocation options from %s, %s to %s, %s.\n\n",
		loc.OriginCity, loc.OriginCountry, loc.DestinationCity, loc.DestinationCountry)
	b.WriteString("Here are your four main approaches:\n\n")
	writeOptions(&b, fallbackOptions)
	b.WriteString(`Would you like me to:
📧 **Send you a detailed PDF report** with complete visa requirements to your email?
💬 **Discuss specific options** in more detail right now?

Just let me know your preference!`)
	return b.String()
}

func writeOptions(b *strings.Builder, o relocationOptions) {
	sections := []struct {
		title string
		opt   relocationOption
	}{
		{"Budget Option", o.Cheapest},
		{"Express Option", o.Fastest},
		{"Balanced Option", o.Convenient},
		{"Premium Option", o.Premium},
	}
	for i, s := range sections {
		fmt.Fprintf(b, "**%d. %s** (%s)\n", i+1, s.title, s.opt.Cost)
		fmt.Fprintf(b, "   • Visa: %s\n", s.opt.Visa)
		fmt.Fprintf(b, "   • Timeline: %s\n", s.opt.Timeline)
		if s.opt.Description != "" {
			fmt.Fprintf(b, "   • %s\n", s.opt.Description)
		}
		b.WriteString("\n")
	}
}
