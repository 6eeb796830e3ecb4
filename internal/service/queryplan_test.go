package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/movewise/internal/domain"
)

func intPtr(v int) *int { return &v }

func lisbonParams(context string) domain.SearchParams {
	return domain.SearchParams{
		OriginCity:      "London",
		DestinationCity: "Lisbon",
		BudgetMin:       intPtr(20000),
		BudgetMax:       intPtr(40000),
		MoveMonth:       "2025-06",
		Context:         context,
		Scenario:        domain.ScenarioBalanced,
	}
}

func TestBuildQueryPlan_StandardAlwaysPresent(t *testing.T) {
	plan := BuildQueryPlan(lisbonParams("traveling alone, no pets"), domain.CategorySetStandard)

	require.Len(t, plan.Categories, 7)
	for _, c := range []domain.Category{
		domain.CategoryVisaRequirements,
		domain.CategoryHousingMarket,
		domain.CategoryCostOfLiving,
		domain.CategoryTransportOptions,
		domain.CategoryLocalInsights,
	} {
		assert.Len(t, plan.Queries[c], 2, c)
	}
}

func TestBuildQueryPlan_GatingAlone(t *testing.T) {
	plan := BuildQueryPlan(lisbonParams("traveling alone, no pets"), domain.CategorySetStandard)

	qs, ok := plan.Queries[domain.CategoryPetRelocation]
	assert.True(t, ok)
	assert.Empty(t, qs)
	qs, ok = plan.Queries[domain.CategorySchoolsEducation]
	assert.True(t, ok)
	assert.Empty(t, qs)
}

func TestBuildQueryPlan_GatingFamilyWithDog(t *testing.T) {
	plan := BuildQueryPlan(lisbonParams("Family with two kids and a dog"), domain.CategorySetStandard)

	assert.Len(t, plan.Queries[domain.CategorySchoolsEducation], 2)
	assert.Len(t, plan.Queries[domain.CategoryPetRelocation], 2)
	assert.Equal(t, 14, plan.Total())
}

func TestBuildQueryPlan_LisbonScenario(t *testing.T) {
	plan := BuildQueryPlan(lisbonParams("moving with my cat"), domain.CategorySetStandard)

	pets := plan.Queries[domain.CategoryPetRelocation]
	require.Len(t, pets, 2)
	assert.Contains(t, pets[0], "cat")

	for _, q := range plan.Queries[domain.CategoryVisaRequirements][:1] {
		assert.Contains(t, q, "reasonable practical moderate standard")
	}
	assert.Equal(t,
		"Lisbon visa requirements immigration process from London reasonable practical moderate standard",
		plan.Queries[domain.CategoryVisaRequirements][0])
	assert.Equal(t,
		"relocating to Lisbon visa pathways residency permits 2025-06",
		plan.Queries[domain.CategoryVisaRequirements][1])
	assert.Equal(t,
		"Lisbon rental housing apartments reasonable practical moderate standard budget $20000-$40000",
		plan.Queries[domain.CategoryHousingMarket][0])
}

func TestBuildQueryPlan_MoveMonthFallback(t *testing.T) {
	p := lisbonParams("")
	p.MoveMonth = ""

	plan := BuildQueryPlan(p, domain.CategorySetStandard)

	assert.True(t, strings.HasSuffix(plan.Queries[domain.CategoryVisaRequirements][1], FallbackMoveYear))
}

func TestBuildQueryPlan_NoBudgetPhraseWithOneBound(t *testing.T) {
	p := lisbonParams("")
	p.BudgetMax = nil

	plan := BuildQueryPlan(p, domain.CategorySetStandard)

	assert.NotContains(t, plan.Queries[domain.CategoryCostOfLiving][0], "budget $")
	assert.NotContains(t, plan.Queries[domain.CategoryCostOfLiving][0], "  ")
}

func TestBuildQueryPlan_Extended(t *testing.T) {
	p := lisbonParams("two children")
	p.OriginCountry = "United Kingdom"
	p.DestinationCountry = "Portugal"

	plan := BuildQueryPlan(p, domain.CategorySetExtended)

	require.Len(t, plan.Categories, 8)
	for _, c := range plan.Categories {
		if c == domain.CategoryPetRelocation {
			assert.Empty(t, plan.Queries[c])
			continue
		}
		assert.Len(t, plan.Queries[c], 1, c)
	}
	assert.Contains(t, plan.Queries[domain.CategoryVisaRequirements][0], "Portugal visa requirements immigration United Kingdom citizens")
	assert.Contains(t, plan.Queries[domain.CategoryHousingMarket][0], "$20,000 to $40,000")
	assert.Contains(t, plan.Queries[domain.CategoryWorkOpportunities][0], "Lisbon job market")
}

func TestHasFamily(t *testing.T) {
	assert.True(t, HasFamily("FAMILY of four", domain.CategorySetStandard))
	assert.False(t, HasFamily("two children", domain.CategorySetStandard))
	assert.True(t, HasFamily("two children", domain.CategorySetExtended))
	assert.True(t, HasFamily("school age kid", domain.CategorySetExtended))
	assert.False(t, HasFamily("no family, just me", domain.CategorySetStandard))
}

func TestHasPets(t *testing.T) {
	assert.True(t, HasPets("my DOG"))
	assert.True(t, HasPets("a cat"))
	assert.False(t, HasPets("alone"))
	assert.False(t, HasPets("traveling alone, no pets"))
	assert.False(t, HasPets("moving without any dogs"))
	assert.True(t, HasPets("no kids but two cats"))
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "999", GroupThousands(999))
	assert.Equal(t, "20,000", GroupThousands(20000))
	assert.Equal(t, "1,234,567", GroupThousands(1234567))
}
