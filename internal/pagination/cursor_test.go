package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id string
	at time.Time
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 123456000, time.UTC)

	c, err := DecodeCursor(EncodeCursor("job-1", ts))

	require.NoError(t, err)
	assert.Equal(t, "job-1", c.LastID)
	assert.True(t, ts.Equal(c.Timestamp))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, raw := range []string{"%%%", "bm9waXBl", EncodeCursor("x", time.Now())[:4]} {
		_, err := DecodeCursor(raw)
		assert.ErrorIs(t, err, ErrInvalidCursor, raw)
	}

	c, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, 5, NormalizeLimit(5))
	assert.Equal(t, MaxLimit, NormalizeLimit(1000))
}

func TestNewPage(t *testing.T) {
	now := time.Now().UTC()
	items := []item{{"a", now}, {"b", now.Add(-time.Minute)}, {"c", now.Add(-2 * time.Minute)}}
	getID := func(i item) string { return i.id }
	getTs := func(i item) time.Time { return i.at }

	page := NewPage(items, 2, getID, getTs)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	c, err := DecodeCursor(page.Cursor)
	require.NoError(t, err)
	assert.Equal(t, "b", c.LastID)

	last := NewPage(items[:2], 2, getID, getTs)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.Cursor)

	empty := NewPage[item](nil, 2, getID, getTs)
	assert.NotNil(t, empty.Items)
}
