package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/matzehuels/reportflow/pkg/core/layout"
)

// ptToMm converts a font size in points to millimetres.
const ptToMm = 0.3528

// sheetGapMm separates pages in a combined sheet.
const sheetGapMm = 8.0

const fontFamily = `'Inter', 'Helvetica Neue', Arial, sans-serif`

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	debug     bool
	highlight map[string]bool
}

// WithDebugBounds outlines every node with a thin dashed stroke.
func WithDebugBounds() SVGOption { return func(r *svgRenderer) { r.debug = true } }

// WithHighlight outlines the given nodes in red. Node ids of validation
// issues are the usual input.
func WithHighlight(ids ...string) SVGOption {
	return func(r *svgRenderer) {
		if r.highlight == nil {
			r.highlight = make(map[string]bool, len(ids))
		}
		for _, id := range ids {
			r.highlight[id] = true
		}
	}
}

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	var r svgRenderer
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RenderPageSVG renders a single page as a standalone SVG document sized in
// millimetres.
func RenderPageSVG(p layout.Page, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.2fmm" height="%.2fmm">`+"\n",
		p.WidthMm, p.HeightMm, p.WidthMm, p.HeightMm)
	r.renderPage(&buf, p)
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// RenderSVG renders all pages stacked vertically into one SVG sheet.
func RenderSVG(pages []layout.Page, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)

	var width, height float64
	for i, p := range pages {
		width = max(width, p.WidthMm)
		height += p.HeightMm
		if i > 0 {
			height += sheetGapMm
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.2fmm" height="%.2fmm">`+"\n",
		width, height, width, height)

	var y float64
	for _, p := range pages {
		fmt.Fprintf(&buf, `  <g id="%s" transform="translate(0, %.2f)">`+"\n", escapeXML(p.ID), y)
		r.renderPage(&buf, p)
		buf.WriteString("  </g>\n")
		y += p.HeightMm + sheetGapMm
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r svgRenderer) renderPage(buf *bytes.Buffer, p layout.Page) {
	fmt.Fprintf(buf, `    <rect class="page" x="0" y="0" width="%.2f" height="%.2f" fill="#FFFFFF" stroke="#D1D5DB" stroke-width="0.2"/>`+"\n",
		p.WidthMm, p.HeightMm)

	for _, n := range p.Nodes {
		switch n.Content.Kind {
		case layout.KindRect:
			renderRect(buf, n)
		case layout.KindText:
			renderText(buf, n)
		case layout.KindRow:
			renderRow(buf, n)
		case layout.KindChart:
			renderChart(buf, n)
		}
		if r.highlight[n.ID] {
			renderOutline(buf, n, "#DC2626", "0.5", "")
		} else if r.debug {
			renderOutline(buf, n, "#9CA3AF", "0.15", ` stroke-dasharray="1,1"`)
		}
	}
}

func renderRect(buf *bytes.Buffer, n layout.Node) {
	fmt.Fprintf(buf, `    <rect id="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="1.5" fill="%s"/>`+"\n",
		escapeXML(n.ID), n.X, n.Y, n.W, n.H, color(n.Content.Fill, "F3F4F6"))
}

func renderText(buf *bytes.Buffer, n layout.Node) {
	c := n.Content
	if c.Fill != "" {
		renderRect(buf, n)
	}
	sizeMm := fontSizeMm(c.FontPt)
	x, anchor := anchorFor(n, c.Align)
	fmt.Fprintf(buf, `    <text id="%s" x="%.2f" y="%.2f" font-family="%s" font-size="%.2f"%s fill="%s"%s>%s</text>`+"\n",
		escapeXML(n.ID), x, baseline(n, sizeMm), fontFamily, sizeMm, weight(c.Bold),
		color(c.Color, "111827"), anchor, escapeXML(c.Text))
}

func renderRow(buf *bytes.Buffer, n layout.Node) {
	c := n.Content
	if c.Fill != "" {
		renderRect(buf, n)
	}
	sizeMm := fontSizeMm(c.FontPt)
	fmt.Fprintf(buf, `    <g id="%s" font-family="%s" font-size="%.2f"%s fill="%s">`+"\n",
		escapeXML(n.ID), fontFamily, sizeMm, weight(c.Bold), color(c.Color, "111827"))
	y := baseline(n, sizeMm)
	for _, cell := range c.Cells {
		fmt.Fprintf(buf, `      <text x="%.2f" y="%.2f">%s</text>`+"\n", n.X+cell.X+1, y, escapeXML(cell.Text))
	}
	fmt.Fprintf(buf, `      <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#E5E7EB" stroke-width="0.2"/>`+"\n",
		n.X, n.Y+n.H, n.X+n.W, n.Y+n.H)
	buf.WriteString("    </g>\n")
}

// renderChart draws the series as vertical bars with labels under each bar.
func renderChart(buf *bytes.Buffer, n layout.Node) {
	c := n.Content
	fmt.Fprintf(buf, `    <g id="%s">`+"\n", escapeXML(n.ID))
	defer buf.WriteString("    </g>\n")

	if len(c.Series) == 0 {
		return
	}

	maxValue := c.MaxValue
	for _, pt := range c.Series {
		maxValue = max(maxValue, pt.Value)
	}
	if maxValue <= 0 {
		maxValue = 1
	}

	const pad = 3.0
	labelMm := fontSizeMm(c.FontPt)
	plotH := n.H - 2*pad - labelMm - 1
	if plotH <= 0 {
		return
	}
	slot := (n.W - 2*pad) / float64(len(c.Series))
	barW := slot * 0.6
	bottom := n.Y + pad + plotH

	for i, pt := range c.Series {
		h := max(0, pt.Value/maxValue*plotH)
		x := n.X + pad + float64(i)*slot + (slot-barW)/2
		fmt.Fprintf(buf, `      <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"/>`+"\n",
			x, bottom-h, barW, h, color(c.Color, "2F80ED"))
		fmt.Fprintf(buf, `      <text x="%.2f" y="%.2f" font-family="%s" font-size="%.2f" fill="#6B7280" text-anchor="middle">%s</text>`+"\n",
			x+barW/2, bottom+1+labelMm*0.8, fontFamily, labelMm, escapeXML(pt.Label))
	}
}

func renderOutline(buf *bytes.Buffer, n layout.Node, stroke, width, extra string) {
	fmt.Fprintf(buf, `    <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="none" stroke="%s" stroke-width="%s"%s/>`+"\n",
		n.X, n.Y, n.W, n.H, stroke, width, extra)
}

func fontSizeMm(pt float64) float64 {
	if pt <= 0 {
		pt = 10
	}
	return pt * ptToMm
}

// baseline centres a single line of text vertically in the node.
func baseline(n layout.Node, sizeMm float64) float64 {
	return n.Y + (n.H+sizeMm*0.7)/2
}

func anchorFor(n layout.Node, align string) (float64, string) {
	switch align {
	case "center":
		return n.X + n.W/2, ` text-anchor="middle"`
	case "right":
		return n.X + n.W, ` text-anchor="end"`
	}
	return n.X, ""
}

func weight(bold bool) string {
	if bold {
		return ` font-weight="bold"`
	}
	return ""
}

func color(hex, fallback string) string {
	if hex == "" {
		hex = fallback
	}
	return "#" + strings.TrimPrefix(hex, "#")
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
