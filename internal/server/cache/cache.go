// Package cache keeps comparison results of hosted sessions in memory. It
// uses patrickmn/go-cache for TTL-based expiry; entries are keyed by session
// version, so a mutation of the session makes its older entries unreachable.
package cache

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/matchrules/pkg/compare"
)

// Cache holds comparison results per session, version and key pair.
type Cache struct {
	store  *gocache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache whose entries expire after ttl. Expired entries are
// removed every cleanupInterval.
func New(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{store: gocache.New(ttl, cleanupInterval)}
}

func sessionPrefix(session string) string {
	return "compare:" + session + ":"
}

func comparisonKey(session string, version uint64, first, second string) string {
	return sessionPrefix(session) + strconv.FormatUint(version, 10) + ":" + first + ":" + second
}

// Comparison returns the cached comparison of first and second for the given
// session version.
func (c *Cache) Comparison(session string, version uint64, first, second string) (compare.Result, bool) {
	v, ok := c.store.Get(comparisonKey(session, version, first, second))
	if !ok {
		c.misses.Add(1)
		return compare.Result{}, false
	}
	c.hits.Add(1)
	return v.(compare.Result), true
}

// StoreComparison caches result for the given session version.
func (c *Cache) StoreComparison(session string, version uint64, result compare.Result) {
	c.store.SetDefault(comparisonKey(session, version, result.First, result.Second), result)
}

// Invalidate drops every entry of session and returns how many were removed.
func (c *Cache) Invalidate(session string) int {
	prefix := sessionPrefix(session)
	n := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.store.Flush()
}

// Stats describes the cache for the readiness endpoint.
type Stats struct {
	Items  int    `json:"items"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Stats returns the current entry count and lookup counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Items:  c.store.ItemCount(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}
