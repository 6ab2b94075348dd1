package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPageCacheRoundTrip(t *testing.T) {
	c := NewPageCache(time.Minute)

	_, ok := c.Get("index:1")
	assert.False(t, ok)

	c.Set("index:1", []byte("payload"))
	got, ok := c.Get("index:1")
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), got)
}

func TestPageCacheExpiry(t *testing.T) {
	c := NewPageCache(10 * time.Millisecond)

	c.Set("index:1", []byte("payload"))
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("index:1")
	assert.False(t, ok)
}

func TestPageCacheClear(t *testing.T) {
	c := NewPageCache(time.Minute)

	c.Set("index:1", []byte("a"))
	c.Set("index:2", []byte("b"))
	c.Clear()

	_, ok := c.Get("index:1")
	assert.False(t, ok)
	_, ok = c.Get("index:2")
	assert.False(t, ok)
}
