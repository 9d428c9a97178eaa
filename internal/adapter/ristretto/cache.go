// Package ristretto keeps recently completed tier-change results in memory so
// idempotent replays skip the run table.
package ristretto

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
)

// ResultCache stores JSON-encoded results keyed by idempotency key.
type ResultCache struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration
}

// New creates a cache holding roughly maxEntries results for ttl each.
func New(maxEntries int64, ttl time.Duration) (*ResultCache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	// Results are a few hundred bytes; budget 1KiB each.
	maxCost := maxEntries * 1024
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ResultCache{c: c, ttl: ttl}, nil
}

func (r *ResultCache) Get(_ context.Context, key string) (*workflow.TierChangeResult, bool) {
	raw, found := r.c.Get(key)
	if !found {
		return nil, false
	}
	var res workflow.TierChangeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		r.c.Del(key)
		return nil, false
	}
	return &res, true
}

func (r *ResultCache) Set(_ context.Context, key string, res *workflow.TierChangeResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	r.c.SetWithTTL(key, raw, int64(len(raw)), r.ttl)
}

// Wait blocks until pending writes are visible to Get.
func (r *ResultCache) Wait() {
	r.c.Wait()
}

// Close shuts down the cache and releases resources.
func (r *ResultCache) Close() {
	r.c.Close()
}
