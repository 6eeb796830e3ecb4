package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/exa"
	"github.com/cloo-solutions/movewise/internal/service"
)

const costExcerptLength = 500

var costSearch = exa.SearchOptions{
	NumResults:         5,
	StartPublishedDate: "2023-01-01",
	MaxCharacters:      costExcerptLength,
}

// CostRequest selects which parts of a move to price.
type CostRequest struct {
	DestinationCity string
	IncludeFlight   bool
	IncludeHousing  bool
	IncludeMoving   bool
	FamilySize      int
}

// BaseCosts are the reference prices in GBP used by the offline estimate and quoted to the LLM.
type BaseCosts struct {
	Flight struct {
		Economy  int `json:"economy"`
		Premium  int `json:"premium"`
		Business int `json:"business"`
	} `json:"flight"`
	Housing struct {
		Shared int `json:"shared"`
		OneBed int `json:"one_bed"`
		TwoBed int `json:"two_bed"`
		Family int `json:"family"`
	} `json:"housing"`
	Moving struct {
		Minimal  int `json:"minimal"`
		Standard int `json:"standard"`
		Full     int `json:"full"`
		Premium  int `json:"premium"`
	} `json:"moving"`
	Setup struct {
		Utilities        int `json:"utilities"`
		Deposits         int `json:"deposits"`
		InitialGroceries int `json:"initial_groceries"`
		TransportSetup   int `json:"transport_setup"`
		PhoneInternet    int `json:"phone_internet"`
	} `json:"setup"`
}

// NewBaseCosts returns the reference prices for a household of familySize people.
func NewBaseCosts(familySize int) BaseCosts {
	var c BaseCosts
	c.Flight.Economy = 600 * familySize
	c.Flight.Premium = 1500 * familySize
	c.Flight.Business = 3500 * familySize
	c.Housing.Shared = 800
	c.Housing.OneBed = 1500
	c.Housing.TwoBed = 2200
	c.Housing.Family = 3500
	c.Moving.Minimal = 500
	c.Moving.Standard = 2500
	c.Moving.Full = 5000
	c.Moving.Premium = 8000
	c.Setup.Utilities = 300
	c.Setup.Deposits = 2500
	c.Setup.InitialGroceries = 500
	c.Setup.TransportSetup = 200
	c.Setup.PhoneInternet = 150
	return c
}

// SetupTotal sums every setup cost, deposits included.
func (c BaseCosts) SetupTotal() int {
	s := c.Setup
	return s.Utilities + s.Deposits + s.InitialGroceries + s.TransportSetup + s.PhoneInternet
}

func (c BaseCosts) housingFor(familySize int) int {
	switch familySize {
	case 1:
		return c.Housing.OneBed
	case 2:
		return c.Housing.TwoBed
	default:
		return c.Housing.Family
	}
}

const costSystemPrompt = `You are a relocation cost expert. Analyze the provided data and estimate relocation costs.
Consider:
1. Current market rates for the destination city
2. Family size impact on costs
3. Seasonal variations
4. Hidden costs often overlooked
5. Currency conversions if applicable

Base your estimates on real data when available, otherwise use these baseline costs as reference:
%s

Provide practical, actionable cost breakdowns with ranges.`

const costUserPrompt = `Estimate relocation costs to %s for %d %s.

Include costs for:
- Flights: %s
- Housing: %s
- Moving services: %s

%s

Provide:
1. Total cost range (min-max)
2. Detailed breakdown by category
3. Money-saving tips specific to this destination
4. Hidden costs to watch for
5. Best timing for relocation to save money

Format as a clear, structured response with emojis for categories.`

// EstimateCosts prices a move. The LLM answers when available, grounded on recent market
// data if search works; otherwise the estimate is computed from BaseCosts.
func (t *Tools) EstimateCosts(ctx context.Context, req CostRequest) string {
	if req.FamilySize < 1 {
		req.FamilySize = 1
	}
	base := NewBaseCosts(req.FamilySize)

	if t.llm != nil {
		answer, err := t.llm.Complete(ctx, buildCostSystemPrompt(base), buildCostUserPrompt(req, t.marketData(ctx, req.DestinationCity)))
		if err != nil {
			log.Printf("voice: cost analysis for %s: %v", req.DestinationCity, err)
		} else if strings.TrimSpace(answer) != "" {
			return answer
		}
	}
	return FallbackCostEstimate(req, base)
}

func (t *Tools) marketData(ctx context.Context, city string) string {
	if t.provider == nil {
		return ""
	}
	q := fmt.Sprintf("%s cost of living 2024 2025 apartment rent prices flight costs moving expenses utilities groceries", city)
	results, err := t.provider.Search(ctx, q, costSearch)
	if err != nil {
		log.Printf("voice: market data for %s: %v", city, err)
		return ""
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, r.Title+": "+domain.Excerpt(r.Summary(), costExcerptLength))
	}
	return strings.Join(lines, "\n\n")
}

func buildCostSystemPrompt(base BaseCosts) string {
	data, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	return fmt.Sprintf(costSystemPrompt, data)
}

func buildCostUserPrompt(req CostRequest, market string) string {
	data := "Use standard estimates for this city."
	if market != "" {
		data = fmt.Sprintf("Recent market data for %s:\n%s", req.DestinationCity, market)
	}
	return fmt.Sprintf(costUserPrompt, req.DestinationCity, req.FamilySize, people(req.FamilySize),
		yesNo(req.IncludeFlight), yesNo(req.IncludeHousing), yesNo(req.IncludeMoving), data)
}

// FallbackCostEstimate computes a range from the reference prices, with a 10% contingency on
// both ends. Setup costs are always included.
func FallbackCostEstimate(req CostRequest, base BaseCosts) string {
	var lo, hi int
	var breakdown []string

	if req.IncludeFlight {
		lo += base.Flight.Economy
		hi += base.Flight.Business
		breakdown = append(breakdown, fmt.Sprintf("✈️ Flights: %s - %s", pounds(base.Flight.Economy), pounds(base.Flight.Business)))
	}
	if req.IncludeHousing {
		housing := base.housingFor(req.FamilySize)
		lo += housing
		hi += plusHalf(housing)
		breakdown = append(breakdown, fmt.Sprintf("🏠 First month housing: %s - %s", pounds(housing), pounds(plusHalf(housing))))

		lo += base.Setup.Deposits
		hi += plusHalf(base.Setup.Deposits)
		breakdown = append(breakdown, fmt.Sprintf("💰 Security deposits: %s", pounds(base.Setup.Deposits)))
	}
	if req.IncludeMoving {
		lo += base.Moving.Minimal
		hi += base.Moving.Premium
		breakdown = append(breakdown, fmt.Sprintf("📦 Moving services: %s - %s", pounds(base.Moving.Minimal), pounds(base.Moving.Premium)))
	}

	setup := base.SetupTotal()
	lo += setup
	hi += setup
	breakdown = append(breakdown, fmt.Sprintf("🔧 Setup costs (utilities, groceries, etc.): %s", pounds(setup)))

	contingency := tenth(lo)
	lo += contingency
	hi += tenth(hi)
	breakdown = append(breakdown, fmt.Sprintf("📊 10%% contingency fund: %s+", pounds(contingency)))

	return fmt.Sprintf(`Estimated relocation costs to %s for %d %s:

**Total Range: %s - %s**

**Breakdown:**
%s

**Money-saving tips:**
• Book flights 2-3 months in advance
• Consider temporary accommodation initially
• Ship only essential items
• Research tax treaties to avoid double taxation

Would you like me to provide more details on any specific cost category?`,
		req.DestinationCity, req.FamilySize, people(req.FamilySize), pounds(lo), pounds(hi), strings.Join(breakdown, "\n"))
}

// plusHalf returns n increased by half, rounded.
func plusHalf(n int) int {
	return int(math.Round(float64(n) * 1.5))
}

func tenth(n int) int {
	return int(math.Round(float64(n) * 0.1))
}

func pounds(n int) string {
	return "£" + service.GroupThousands(n)
}

func people(n int) string {
	if n == 1 {
		return "person"
	}
	return "people"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
