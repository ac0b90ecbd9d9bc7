// Package pkg provides the core libraries for Reportflow health report layout.
//
// # Overview
//
// Reportflow turns an employee health report payload into fixed-size pages of
// absolutely positioned nodes, proves that no content overlaps or leaves the
// printable area, and only then lets the pages be exported. The pkg directory
// is organized into four main areas:
//
//  1. [core] - Domain logic (payload adaptation, page flow, validation, rendering)
//  2. [pipeline] - Orchestration (adapt → flow → validate, then render)
//  3. [store] and [export] - Persisted reports, single and batch exports
//  4. [api] - The HTTP surface over the store and exporter
//
// # Architecture
//
// The typical data flow through Reportflow:
//
//	Report payload (JSON/YAML)
//	         ↓
//	    [core/content] package (validate meta, build sections)
//	         ↓
//	    [core/layout/flow] package (paginate sections onto pages)
//	         ↓
//	    [core/layout/validate] package (overlap + bounds checks)
//	         ↓
//	    [core/render/sink] package (SVG/PDF/PNG/JSON), accepted layouts only
//
// # Quick Start
//
// Lay out a payload and render it:
//
//	import (
//	    "github.com/matzehuels/reportflow/pkg/core/content"
//	    "github.com/matzehuels/reportflow/pkg/core/render/sink"
//	    "github.com/matzehuels/reportflow/pkg/pipeline"
//	)
//
//	// 1. Decode the payload
//	p, _ := content.DecodePayloadBytes(data)
//
//	// 2. Run the pipeline
//	res, _ := pipeline.Run(pipeline.Input{Payload: p, PageSize: "A4"})
//	if !res.OK {
//	    // res.Issues lists every OVERLAP and BOUNDS finding
//	}
//
//	// 3. Render to SVG
//	svg := sink.RenderSVG(res.Layout)
//
// # Main Packages
//
// ## Core Domain Logic
//
// [core/content] - Payload types and the adapter that turns a payload into
// ordered report sections (hero, KPI grid, score trend, tables, paragraphs).
//
// [core/layout] - The layout DSL: pages, nodes, bounds, page sizes and style
// presets. Geometry is in millimetres and rounded to two decimals.
//
// [core/layout/flow] - Pagination. Sections are flowed top to bottom, split
// across pages and shrunk to fit where the intent allows it.
//
// [core/layout/validate] - The acceptance rule: content nodes must not
// overlap meaningfully and must stay inside the page margins.
//
// [core/render] - Format conversion (SVG to PDF/PNG via rsvg-convert).
//
// ## Infrastructure
//
// [pipeline] - Complete layout pipeline used by CLI, API and store. Ensures
// consistent behavior across all entry points.
//
// [cache] - Result and artifact caching with file, Redis and null backends.
//
// [store] - Report records with memory, SQLite and MongoDB backends, plus the
// service that creates and regenerates them.
//
// [config] - TOML configuration with REPORTFLOW_* environment overrides.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/core/layout/...        # Specific package
//	go test -run Example                 # Examples only
//
// [core]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/core
// [core/content]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/core/content
// [core/layout]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/core/layout
// [core/layout/flow]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/core/layout/flow
// [core/layout/validate]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/core/layout/validate
// [core/render]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/core/render
// [core/render/sink]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/core/render/sink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/store
// [export]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/export
// [config]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/config
// [api]: https://pkg.go.dev/github.com/matzehuels/reportflow/pkg/api
package pkg
