package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/pkg/compare"
	"github.com/agentstation/matchrules/pkg/match"
)

func result(first, second string) compare.Result {
	return compare.Result{First: first, Second: second, Agreed: []match.Match{match.New("1", "10")}}
}

func TestCache_Comparison(t *testing.T) {
	c := New(time.Minute, time.Minute)

	_, ok := c.Comparison("plant", 3, "default", "curated")
	assert.False(t, ok)

	c.StoreComparison("plant", 3, result("default", "curated"))

	got, ok := c.Comparison("plant", 3, "default", "curated")
	require.True(t, ok)
	assert.Equal(t, result("default", "curated"), got)

	t.Run("other versions and pairs miss", func(t *testing.T) {
		_, ok := c.Comparison("plant", 4, "default", "curated")
		assert.False(t, ok)
		_, ok = c.Comparison("plant", 3, "curated", "default")
		assert.False(t, ok)
		_, ok = c.Comparison("refinery", 3, "default", "curated")
		assert.False(t, ok)
	})

	assert.Equal(t, Stats{Items: 1, Hits: 1, Misses: 4}, c.Stats())
}

func TestCache_Invalidate(t *testing.T) {
	c := New(time.Minute, time.Minute)
	c.StoreComparison("plant", 1, result("default", "curated"))
	c.StoreComparison("plant", 2, result("rule_output", "default"))
	c.StoreComparison("plant-2", 1, result("default", "curated"))

	assert.Equal(t, 2, c.Invalidate("plant"))
	assert.Equal(t, 1, c.Stats().Items)
	_, ok := c.Comparison("plant-2", 1, "default", "curated")
	assert.True(t, ok)

	c.Clear()
	assert.Zero(t, c.Stats().Items)
}

func TestCache_Expiry(t *testing.T) {
	c := New(50*time.Millisecond, time.Minute)
	c.StoreComparison("plant", 1, result("default", "curated"))

	assert.Eventually(t, func() bool {
		_, ok := c.Comparison("plant", 1, "default", "curated")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestCache_Concurrent(t *testing.T) {
	c := New(time.Minute, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session := fmt.Sprintf("s%d", i%4)
			c.StoreComparison(session, uint64(i), result("default", "curated"))
			c.Comparison(session, uint64(i), "default", "curated")
			if i%5 == 0 {
				c.Invalidate(session)
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.Equal(t, uint64(20), stats.Hits+stats.Misses)
}
