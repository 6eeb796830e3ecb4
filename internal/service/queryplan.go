package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloo-solutions/movewise/internal/domain"
)

// FallbackMoveYear is substituted into queries when no move month is given.
// It is a fixed literal, not the current year.
const FallbackMoveYear = "2025"

const petContext = "pet dog cat animal"

var (
	petPattern = regexp.MustCompile(`(?i)pet|dog|cat`)
	// negatedMention strips phrases like "no pets" or "without kids" before keyword gating.
	negatedMention = regexp.MustCompile(`(?i)\b(?:no|without|not\s+bringing|not\s+taking)\s+(?:any\s+)?(?:pets?|dogs?|cats?|family|kids|child(?:ren)?)\b`)
)

// QueryPlan maps every category of a set to its queries, in category order.
// A category with no queries is still present and resolves to an empty list.
type QueryPlan struct {
	Set        domain.CategorySet
	Categories []domain.Category
	Queries    map[domain.Category][]string
}

// Total returns the number of queries in the plan.
func (p QueryPlan) Total() int {
	n := 0
	for _, qs := range p.Queries {
		n += len(qs)
	}
	return n
}

// HasPets reports whether free-text context mentions a pet.
func HasPets(text string) bool {
	return petPattern.MatchString(negatedMention.ReplaceAllString(text, " "))
}

// HasFamily reports whether free-text context mentions a family. The extended set
// also treats children and schools as family signals.
func HasFamily(text string, set domain.CategorySet) bool {
	lower := strings.ToLower(negatedMention.ReplaceAllString(text, " "))
	if strings.Contains(lower, "family") {
		return true
	}
	if set == domain.CategorySetExtended {
		return strings.Contains(lower, "child") || strings.Contains(lower, "school")
	}
	return false
}

// BudgetPhrase renders "budget $MIN-$MAX" when both bounds are present.
func BudgetPhrase(lo, hi *int) string {
	if lo == nil || hi == nil {
		return ""
	}
	return fmt.Sprintf("budget $%d-$%d", *lo, *hi)
}

func budgetRange(lo, hi *int) string {
	if lo == nil || hi == nil {
		return ""
	}
	return fmt.Sprintf("$%s to $%s", GroupThousands(*lo), GroupThousands(*hi))
}

// GroupThousands formats n with comma thousand separators.
func GroupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func moveMonthOrFallback(month string) string {
	if strings.TrimSpace(month) == "" {
		return FallbackMoveYear
	}
	return month
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// query joins the parts and collapses the gaps left by empty phrases.
func query(format string, args ...any) string {
	return strings.Join(strings.Fields(fmt.Sprintf(format, args...)), " ")
}

// BuildQueryPlan is deterministic in its inputs.
func BuildQueryPlan(p domain.SearchParams, set domain.CategorySet) QueryPlan {
	plan := QueryPlan{
		Set:        set,
		Categories: set.Categories(),
		Queries:    make(map[domain.Category][]string),
	}
	for _, c := range plan.Categories {
		plan.Queries[c] = []string{}
	}

	if set == domain.CategorySetExtended {
		buildExtended(p, plan.Queries)
	} else {
		buildStandard(p, plan.Queries)
	}
	return plan
}

func buildStandard(p domain.SearchParams, q map[domain.Category][]string) {
	origin, dest := p.OriginCity, p.DestinationCity
	modifier := p.Scenario.Modifier()
	budget := BudgetPhrase(p.BudgetMin, p.BudgetMax)
	month := moveMonthOrFallback(p.MoveMonth)
	family := ""
	if HasFamily(p.Context, domain.CategorySetStandard) {
		family = "family"
	}

	q[domain.CategoryVisaRequirements] = []string{
		query("%s visa requirements immigration process from %s %s", dest, origin, modifier),
		query("relocating to %s visa pathways residency permits %s", dest, month),
	}
	q[domain.CategoryHousingMarket] = []string{
		query("%s rental housing apartments %s %s %s", dest, modifier, budget, family),
		query("%s real estate rental prices neighborhoods expat areas %s", dest, month),
	}
	q[domain.CategoryCostOfLiving] = []string{
		query("%s cost of living expenses %s compared to %s", dest, budget, origin),
		query("%s monthly expenses utilities groceries transportation %s", dest, modifier),
	}
	q[domain.CategoryTransportOptions] = []string{
		query("%s to %s moving shipping relocation services %s", origin, dest, modifier),
		query("international moving companies shipping costs %s %s", origin, dest),
	}
	if family != "" {
		q[domain.CategorySchoolsEducation] = []string{
			query("%s international schools education %s %s", dest, family, modifier),
			query("%s school districts family neighborhoods children education", dest),
		}
	}
	if HasPets(p.Context) {
		q[domain.CategoryPetRelocation] = []string{
			query("%s pet relocation import requirements %s from %s", dest, petContext, origin),
			query("bringing pets to %s quarantine vaccination requirements %s", dest, petContext),
		}
	}
	q[domain.CategoryLocalInsights] = []string{
		query("%s expat community living experience tips advice %s", dest, month),
		query("%s neighborhoods safety quality of life %s %s", dest, family, modifier),
	}
}

func buildExtended(p domain.SearchParams, q map[domain.Category][]string) {
	originCity, destCity := p.OriginCity, p.DestinationCity
	originCountry := orDefault(p.OriginCountry, originCity)
	destCountry := orDefault(p.DestinationCountry, destCity)
	modifier := p.Scenario.Modifier()
	budget := budgetRange(p.BudgetMin, p.BudgetMax)
	month := moveMonthOrFallback(p.MoveMonth)

	q[domain.CategoryVisaRequirements] = []string{
		query("%s visa requirements immigration %s citizens %s %s work permit residence", destCountry, originCountry, modifier, month),
	}
	q[domain.CategoryHousingMarket] = []string{
		query("%s rental housing apartments %s %s expat neighborhoods %s", destCity, modifier, budget, month),
	}
	q[domain.CategoryCostOfLiving] = []string{
		query("%s cost of living expenses monthly budget %s compared to %s", destCity, budget, originCity),
	}
	q[domain.CategoryTransportOptions] = []string{
		query("moving from %s to %s international relocation shipping %s services", originCity, destCity, modifier),
	}
	q[domain.CategoryWorkOpportunities] = []string{
		query("%s job market employment opportunities %s expats salary ranges", destCity, originCountry),
	}
	q[domain.CategoryLocalInsights] = []string{
		query("%s expat community living experience quality of life safety %s", destCity, modifier),
	}
	if HasFamily(p.Context, domain.CategorySetExtended) {
		q[domain.CategorySchoolsEducation] = []string{
			query("%s international schools education family children %s tuition fees", destCity, modifier),
		}
	}
	if HasPets(p.Context) {
		q[domain.CategoryPetRelocation] = []string{
			query("bringing pets from %s to %s requirements quarantine vaccination import", originCountry, destCountry),
		}
	}
}
