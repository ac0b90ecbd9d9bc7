// Package sink provides output format renderers for report layouts.
//
// # Overview
//
// A "sink" transforms the pages of a computed layout into a final output
// format. This package provides renderers for:
//
//   - SVG: one combined sheet, or one document per page
//   - PDF: print-ready output, one PDF page per layout page (requires rsvg-convert)
//   - PNG: raster image of the combined sheet (requires rsvg-convert)
//   - JSON: the layout DSL itself
//
// SVG documents use millimetres as user units, so node geometry is written
// through unchanged. Font sizes are converted from points.
//
// # SVG Options
//
//   - [WithDebugBounds]: outline every node
//   - [WithHighlight]: outline selected nodes in red, typically the node ids
//     of validation issues
//
// Basic usage:
//
//	svg := sink.RenderSVG(pages, sink.WithHighlight("trend-chart"))
//	pdf, err := sink.RenderPDF(pages)
//	png, err := sink.RenderPNG(pages, sink.WithScale(2))
//
// [RenderPDF] and [RenderPNG] require librsvg to be installed:
//   - macOS: brew install librsvg
//   - Linux: apt install librsvg2-bin
//
// Renderers never inspect validation results: rendering an invalid layout is
// allowed and is how overlaps are diagnosed. Refusing to export a failed
// layout is the job of the export package.
package sink
