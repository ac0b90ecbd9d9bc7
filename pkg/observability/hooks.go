// Package observability lets a binary watch reportflow at work without the
// libraries depending on a metrics backend.
//
// Libraries report events through the accessors [Layout], [Cache], [Export]
// and [HTTP]. A binary installs implementations once at startup with [Set];
// until then every event goes to a no-op. Libraries never call Set.
//
//	counters := observability.NewCounters()
//	observability.Set(counters.Hooks())
//	defer observability.Reset()
package observability

import (
	"context"
	"sync"
	"time"
)

// LayoutHooks receives events from the layout pipeline.
type LayoutHooks interface {
	// OnLayout reports one adapt, flow and validate run. issues is zero for
	// an accepted layout. err is set only when the run could not produce a
	// layout at all (malformed payload, unknown page size).
	OnLayout(ctx context.Context, employeeID, pageSize string, pages, issues int, d time.Duration, err error)

	// OnRender reports one render of an accepted layout.
	OnRender(ctx context.Context, formats []string, d time.Duration, err error)
}

// CacheHooks receives events from the runner's cache lookups. kind is
// "result" or "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, kind string)
	OnCacheMiss(ctx context.Context, kind string)
	OnCacheSet(ctx context.Context, kind string, size int)
}

// ExportHooks receives events from the exporter.
type ExportHooks interface {
	// OnExport reports one report export attempt.
	OnExport(ctx context.Context, reportID, format string, size int, err error)

	// OnBatch reports a finished batch.
	OnBatch(ctx context.Context, exported, failed int, d time.Duration)
}

// HTTPHooks receives events from the API server.
type HTTPHooks interface {
	// OnResponse reports a served request. route is the matched pattern,
	// not the raw path, so ids do not explode cardinality.
	OnResponse(ctx context.Context, method, route string, status int, d time.Duration)
}

// Hooks bundles one implementation per event family. [Set] ignores nil
// fields.
type Hooks struct {
	Layout LayoutHooks
	Cache  CacheHooks
	Export ExportHooks
	HTTP   HTTPHooks
}

// Noop implements every hook interface and does nothing.
type Noop struct{}

func (Noop) OnLayout(context.Context, string, string, int, int, time.Duration, error) {}
func (Noop) OnRender(context.Context, []string, time.Duration, error)                 {}
func (Noop) OnCacheHit(context.Context, string)                                       {}
func (Noop) OnCacheMiss(context.Context, string)                                      {}
func (Noop) OnCacheSet(context.Context, string, int)                                  {}
func (Noop) OnExport(context.Context, string, string, int, error)                     {}
func (Noop) OnBatch(context.Context, int, int, time.Duration)                         {}
func (Noop) OnResponse(context.Context, string, string, int, time.Duration)           {}

func defaults() Hooks {
	return Hooks{Layout: Noop{}, Cache: Noop{}, Export: Noop{}, HTTP: Noop{}}
}

var (
	mu      sync.RWMutex
	current = defaults()
)

// Set installs h. Call it once at startup, before serving or running
// pipelines.
func Set(h Hooks) {
	mu.Lock()
	defer mu.Unlock()
	if h.Layout != nil {
		current.Layout = h.Layout
	}
	if h.Cache != nil {
		current.Cache = h.Cache
	}
	if h.Export != nil {
		current.Export = h.Export
	}
	if h.HTTP != nil {
		current.HTTP = h.HTTP
	}
}

// Reset restores the no-op defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults()
}

// Layout returns the installed layout hooks.
func Layout() LayoutHooks {
	mu.RLock()
	defer mu.RUnlock()
	return current.Layout
}

// Cache returns the installed cache hooks.
func Cache() CacheHooks {
	mu.RLock()
	defer mu.RUnlock()
	return current.Cache
}

// Export returns the installed export hooks.
func Export() ExportHooks {
	mu.RLock()
	defer mu.RUnlock()
	return current.Export
}

// HTTP returns the installed HTTP hooks.
func HTTP() HTTPHooks {
	mu.RLock()
	defer mu.RUnlock()
	return current.HTTP
}
