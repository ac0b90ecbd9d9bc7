package sink

import (
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/render"
)

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	svgOpts []SVGOption
	scale   float64
}

// WithPNGSVGOptions passes options through to the underlying SVG renderer.
func WithPNGSVGOptions(opts ...SVGOption) PNGOption {
	return func(r *pngRenderer) { r.svgOpts = opts }
}

// WithScale sets the PNG scale factor (default 4.0, roughly 100 dpi since
// the SVG is sized in millimetres).
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) { r.scale = s }
}

// RenderPNG renders all pages as one PNG sheet.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(pages []layout.Page, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{scale: 4.0}
	for _, opt := range opts {
		opt(&r)
	}
	svg := RenderSVG(pages, r.svgOpts...)
	return render.ToPNG(svg, r.scale)
}
