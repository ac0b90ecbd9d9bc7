package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/reportflow/pkg/cache"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different inputs.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// RunWithCacheInfo runs the pipeline with caching and returns cache hit info.
// Results are cached whether or not the layout validated: both are
// deterministic for a given input.
func (r *Runner) RunWithCacheInfo(ctx context.Context, in Input) (Result, bool, error) {
	if err := in.ValidateAndSetDefaults(); err != nil {
		return Result{}, false, err
	}

	payloadData, err := json.Marshal(in.Payload)
	if err != nil {
		return Result{}, false, fmt.Errorf("serialize payload for cache key: %w", err)
	}
	cacheKey := r.Keyer.ResultKey(cache.Hash(payloadData), in.ResultKeyOpts())

	// Try cache first
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		var cached Result
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(ctx, "result")
			r.Logger.Debug("result cache hit", "key", cacheKey, "ok", cached.OK)
			return cached, true, nil
		}
		// If deserialization fails, fall through to recompute
	}
	observability.Cache().OnCacheMiss(ctx, "result")

	subject := in.Payload.Meta.EmployeeID
	start := time.Now()

	b, err := Build(in)
	if err != nil {
		observability.Layout().OnLayout(ctx, subject, in.PageSize, 0, 0, time.Since(start), err)
		return Result{}, false, err
	}
	r.Logger.Debug("built layout",
		"pages", len(b.Flow.Pages),
		"style", b.Preset.Name,
		"duration", time.Since(start))

	res := Check(b)
	observability.Layout().OnLayout(ctx, subject, in.PageSize, res.Audit.PageCount, len(res.Issues), time.Since(start), nil)

	if res.OK {
		r.Logger.Info("layout accepted",
			"employee", subject,
			"pages", res.Audit.PageCount,
			"nodes", res.Audit.NodeCount)
	} else {
		r.Logger.Warn("layout rejected",
			"employee", subject,
			"overlaps", res.Audit.IssueCounts["OVERLAP"],
			"bounds", res.Audit.IssueCounts["BOUNDS"])
	}

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLResult); err == nil {
			observability.Cache().OnCacheSet(ctx, "result", len(data))
		}
	}

	return res, false, nil
}

// Run is a convenience wrapper that calls RunWithCacheInfo and discards the cache hit info.
func (r *Runner) Run(ctx context.Context, in Input) (Result, error) {
	res, _, err := r.RunWithCacheInfo(ctx, in)
	return res, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, pages []layout.Page, opts RenderOptions) (map[string][]byte, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}

	// Compute cache key from layout data
	var buf bytes.Buffer
	if err := layout.EncodePages(&buf, pages); err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(buf.Bytes())

	useCache := opts.cacheable()

	// Try to get all formats from cache
	if useCache {
		artifacts := make(map[string][]byte)
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return artifacts, true, nil // All artifacts from cache
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	start := time.Now()
	rendered, err := Render(pages, opts)
	observability.Layout().OnRender(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	r.Logger.Debug("rendered artifacts", "formats", opts.Formats, "duration", time.Since(start))

	if useCache {
		for format, data := range rendered {
			key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
				observability.Cache().OnCacheSet(ctx, "artifact", len(data))
			}
		}
	}

	return rendered, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, pages []layout.Page, opts RenderOptions) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, pages, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
