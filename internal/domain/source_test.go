package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeByURL(t *testing.T) {
	records := []SourceRecord{
		{Title: "a1", URL: "https://a"},
		{Title: "b1", URL: "https://b"},
		{Title: "a2", URL: "https://a"},
		{Title: "c1", URL: "https://c"},
		{Title: "b2", URL: "https://b"},
	}

	got := DedupeByURL(records)

	assert.Len(t, got, 3)
	assert.Equal(t, "a1", got[0].Title)
	assert.Equal(t, "b1", got[1].Title)
	assert.Equal(t, "c1", got[2].Title)
}

func TestDedupeByURL_DropsMissingURL(t *testing.T) {
	got := DedupeByURL([]SourceRecord{{Title: "no url"}, {Title: "a", URL: "https://a"}})
	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Title)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "abc", Excerpt("abc", 5))
	assert.Equal(t, "ab", Excerpt("abc", 2))
	assert.Equal(t, "ção", Excerpt("çãoxyz", 3))
}

func TestDedupeByURL_Empty(t *testing.T) {
	got := DedupeByURL(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSourceRecordSummary(t *testing.T) {
	assert.Equal(t, "snip", SourceRecord{Snippet: "snip", Text: "text"}.Summary())
	assert.Equal(t, "text", SourceRecord{Text: "text"}.Summary())
}

func TestCategorySets(t *testing.T) {
	standard := CategorySetStandard.Categories()
	extended := CategorySetExtended.Categories()

	assert.Len(t, standard, 7)
	assert.NotContains(t, standard, CategoryWorkOpportunities)
	assert.Len(t, extended, 8)
	assert.Contains(t, extended, CategoryWorkOpportunities)
}

func TestCategoryResult(t *testing.T) {
	ok := OKResult(CategoryHousingMarket, nil)
	assert.True(t, ok.OK())
	assert.NotNil(t, ok.Items)

	failed := ErrorResult(CategoryHousingMarket, "boom")
	assert.False(t, failed.OK())
	assert.Equal(t, "boom", failed.Message)
}
