package pipeline

import (
	"fmt"

	"github.com/matzehuels/reportflow/pkg/cache"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/render/sink"
)

// RenderOptions configures artifact rendering.
type RenderOptions struct {
	Formats []string `json:"formats,omitempty"`
	// Scale is the PNG scale factor.
	Scale float64 `json:"scale,omitempty"`
	// Highlight outlines the given node ids, typically issue nodes.
	Highlight []string `json:"highlight,omitempty"`
	// Debug outlines every node.
	Debug bool `json:"debug,omitempty"`
}

// SetDefaults applies default formats and scale.
func (o *RenderOptions) SetDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
}

// Validate applies defaults and checks the formats.
func (o *RenderOptions) Validate() error {
	o.SetDefaults()
	return ValidateFormats(o.Formats)
}

// ArtifactKeyOpts returns cache key options for one format.
func (o *RenderOptions) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format}
	if format == FormatPNG {
		k.Scale = o.Scale
	}
	return k
}

// cacheable reports whether artifacts rendered with o may be cached.
// Diagnostic renders are never cached.
func (o *RenderOptions) cacheable() bool {
	return !o.Debug && len(o.Highlight) == 0
}

// Render generates output artifacts in the requested formats.
func Render(pages []layout.Page, opts RenderOptions) (map[string][]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var svgOpts []sink.SVGOption
	if opts.Debug {
		svgOpts = append(svgOpts, sink.WithDebugBounds())
	}
	if len(opts.Highlight) > 0 {
		svgOpts = append(svgOpts, sink.WithHighlight(opts.Highlight...))
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = sink.RenderSVG(pages, svgOpts...)
		case FormatPDF:
			data, err = sink.RenderPDF(pages, sink.WithPDFSVGOptions(svgOpts...))
		case FormatPNG:
			data, err = sink.RenderPNG(pages, sink.WithScale(opts.Scale), sink.WithPNGSVGOptions(svgOpts...))
		case FormatJSON:
			data, err = sink.RenderJSON(pages)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
