package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Counters is an in-process implementation of every hook family. The API
// server installs one and reports its snapshot on /healthz.
type Counters struct {
	layouts      atomic.Int64
	rejected     atomic.Int64
	layoutErrors atomic.Int64
	renders      atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	exports      atomic.Int64
	exportErrors atomic.Int64
	batches      atomic.Int64
	requests     atomic.Int64
	serverErrors atomic.Int64
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters { return &Counters{} }

// Hooks returns c installed for every event family.
func (c *Counters) Hooks() Hooks {
	return Hooks{Layout: c, Cache: c, Export: c, HTTP: c}
}

func (c *Counters) OnLayout(_ context.Context, _, _ string, _, issues int, _ time.Duration, err error) {
	switch {
	case err != nil:
		c.layoutErrors.Add(1)
	case issues > 0:
		c.layouts.Add(1)
		c.rejected.Add(1)
	default:
		c.layouts.Add(1)
	}
}

func (c *Counters) OnRender(_ context.Context, _ []string, _ time.Duration, err error) {
	if err == nil {
		c.renders.Add(1)
	}
}

func (c *Counters) OnCacheHit(context.Context, string)      { c.cacheHits.Add(1) }
func (c *Counters) OnCacheMiss(context.Context, string)     { c.cacheMisses.Add(1) }
func (c *Counters) OnCacheSet(context.Context, string, int) {}

func (c *Counters) OnExport(_ context.Context, _, _ string, _ int, err error) {
	if err != nil {
		c.exportErrors.Add(1)
		return
	}
	c.exports.Add(1)
}

func (c *Counters) OnBatch(context.Context, int, int, time.Duration) { c.batches.Add(1) }

func (c *Counters) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	c.requests.Add(1)
	if status >= 500 {
		c.serverErrors.Add(1)
	}
}

// Snapshot returns the current values keyed by name.
func (c *Counters) Snapshot() map[string]int64 {
	return map[string]int64{
		"layouts":          c.layouts.Load(),
		"layouts_rejected": c.rejected.Load(),
		"layout_errors":    c.layoutErrors.Load(),
		"renders":          c.renders.Load(),
		"cache_hits":       c.cacheHits.Load(),
		"cache_misses":     c.cacheMisses.Load(),
		"exports":          c.exports.Load(),
		"export_errors":    c.exportErrors.Load(),
		"batches":          c.batches.Load(),
		"requests":         c.requests.Load(),
		"server_errors":    c.serverErrors.Load(),
	}
}
