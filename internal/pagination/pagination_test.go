package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEmptyListing(t *testing.T) {
	page := Resolve("", 0)

	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 1, page.NumPages)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrev)
	assert.Equal(t, 0, page.Offset())
}

func TestResolveClampsOverflowToLastPage(t *testing.T) {
	// 25 posts = 3 pages
	page := Resolve("99", 25)

	assert.Equal(t, 3, page.Number)
	assert.Equal(t, 3, page.NumPages)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)
	assert.Equal(t, 20, page.Offset())
}

func TestResolveMalformedPageDefaultsToFirst(t *testing.T) {
	for _, raw := range []string{"", "abc", "-1", "0"} {
		page := Resolve(raw, 42)
		assert.Equal(t, 1, page.Number, "raw=%q", raw)
		assert.True(t, page.HasNext)
	}
}

func TestResolveMiddlePage(t *testing.T) {
	page := Resolve("2", 35)

	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 4, page.NumPages)
	assert.Equal(t, 10, page.Offset())
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)
}
