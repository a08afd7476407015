package api

import (
	"fmt"

	"github.com/goodtune/focustime/internal/report"
	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheKey identifies a computed breakdown. Day-bounded ranges also depend
// on the current date, so it is part of the key.
type cacheKey struct {
	revision    uint64
	today       string
	application string
	scoped      bool
	rng         report.Range
}

// breakdownCache memoizes breakdowns per timeline revision. Entries for old
// revisions are never hit again and age out of the LRU.
type breakdownCache struct {
	entries *lru.Cache[cacheKey, report.Breakdown]
}

func newBreakdownCache(size int) (*breakdownCache, error) {
	if size <= 0 {
		size = 128
	}
	entries, err := lru.New[cacheKey, report.Breakdown](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create breakdown cache: %w", err)
	}
	return &breakdownCache{entries: entries}, nil
}

// getOrCompute returns the cached breakdown for key, computing it on a miss.
func (c *breakdownCache) getOrCompute(key cacheKey, compute func() report.Breakdown) (report.Breakdown, bool) {
	if b, ok := c.entries.Get(key); ok {
		return b, true
	}
	b := compute()
	c.entries.Add(key, b)
	return b, false
}

func (c *breakdownCache) len() int {
	return c.entries.Len()
}
