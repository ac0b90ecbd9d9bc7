// Package flow lays a report out onto pages.
//
// [Build] walks the sections of a content report in order and emits
// positioned nodes onto a growing list of pages. A single open page is kept
// at a time; whenever the next indivisible unit of a section (a heading
// together with its first row, a tile row, a chart, one wrapped line of text)
// would cross the bottom margin, a new page is opened first. Text sections
// re-check per line, so long paragraphs flow across pages while tables, KPI
// rows and charts are never split.
//
// Build is pure: identical inputs produce identical pages. It never fails;
// whether the result is acceptable is decided by the validate package.
package flow

import (
	"fmt"

	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/text"
)

// Intent says what a layout is for.
type Intent string

// Layout intents.
const (
	IntentExport  Intent = "export"
	IntentPreview Intent = "preview"
)

const (
	headingGapMm = 2
	itemGapMm    = 1
	bulletIndent = 5
	tilePadMm    = 3
	heroPadMm    = 4
	badgeWidthMm = 36
)

// Options tunes a build.
type Options struct {
	Intent Intent
}

// Result is the output of Build.
type Result struct {
	Pages []layout.Page
	// Sections lists every input section in order, including empty ones.
	Sections []SectionStat
	// Shrunk lists the ids of nodes that were shrunk to fit a page.
	Shrunk []string
}

// SectionStat records what a section contributed to the layout.
type SectionStat struct {
	Key       string `json:"key"`
	Kind      string `json:"kind"`
	Items     int    `json:"items"`
	Nodes     int    `json:"nodes"`
	FirstPage string `json:"firstPage,omitempty"`
	LastPage  string `json:"lastPage,omitempty"`
	Empty     bool   `json:"empty"`
}

// Build lays out r on pages of the given size using preset. variantIndex
// selects the KPI grid column count.
func Build(r content.Report, size layout.PageSize, preset layout.Preset, variantIndex int, opts Options) Result {
	b := &builder{
		size:    size,
		preset:  preset,
		variant: variantIndex,
		opts:    opts,
	}
	b.newPage()
	for _, s := range r.Sections {
		b.section(s)
	}
	return Result{Pages: b.pages, Sections: b.stats, Shrunk: b.shrunk}
}

// KPIColumns returns the KPI grid column count for a variant.
func KPIColumns(variantIndex int) int {
	cols := [...]int{3, 2, 4}
	return cols[layout.PickStylePreset(variantIndex, len(cols))]
}

// builder is the flow context of one Build call.
type builder struct {
	size    layout.PageSize
	preset  layout.Preset
	variant int
	opts    Options

	pages   []layout.Page
	cursorY float64

	stats  []SectionStat
	shrunk []string
	cur    *SectionStat
}

func (b *builder) margin() float64   { return b.preset.MarginMm }
func (b *builder) maxY() float64     { return b.size.HeightMm - b.preset.MarginMm }
func (b *builder) contentW() float64 { return b.size.WidthMm - 2*b.preset.MarginMm }

// usableH is the height of the content box of an empty page.
func (b *builder) usableH() float64 { return b.size.HeightMm - 2*b.preset.MarginMm }

func (b *builder) page() *layout.Page { return &b.pages[len(b.pages)-1] }

func (b *builder) newPage() {
	id := fmt.Sprintf("page-%d", len(b.pages)+1)
	b.pages = append(b.pages, layout.Page{
		ID:       id,
		WidthMm:  b.size.WidthMm,
		HeightMm: b.size.HeightMm,
		MarginMm: b.preset.MarginMm,
		Nodes:    []layout.Node{},
	})
	b.cursorY = b.margin()
	if b.opts.Intent == IntentPreview {
		b.watermark(id)
	}
}

// pageEmpty reports whether nothing has been placed on the open page yet.
func (b *builder) pageEmpty() bool {
	return b.cursorY <= b.margin()
}

// ensurePageSpace opens a new page when h does not fit below the cursor. A
// fresh page is never abandoned: if h does not fit there either, the caller
// must shrink its content.
func (b *builder) ensurePageSpace(h float64) {
	if layout.Round2(b.cursorY+h) <= b.maxY() || b.pageEmpty() {
		return
	}
	b.newPage()
}

// advance moves the cursor down, never past the bottom margin.
func (b *builder) advance(h float64) {
	b.cursorY = layout.Round2(min(b.cursorY+h, b.maxY()))
}

func (b *builder) add(n layout.Node) {
	p := b.page()
	if b.cur != nil {
		n.Section = b.cur.Key
		b.cur.Nodes++
		if b.cur.FirstPage == "" {
			b.cur.FirstPage = p.ID
		}
		b.cur.LastPage = p.ID
	}
	p.Nodes = append(p.Nodes, n)
}

func (b *builder) watermark(pageID string) {
	box := layout.Bounds{X: b.margin(), Y: b.margin(), W: b.contentW(), H: b.usableH()}
	b.pages[len(b.pages)-1].Nodes = append(b.pages[len(b.pages)-1].Nodes, layout.NewNode(
		pageID+"-watermark", box, layout.RoleDecorative, layout.Content{
			Kind:   layout.KindText,
			Text:   "PREVIEW",
			FontPt: 48,
			Bold:   true,
			Color:  "E5E7EB",
			Align:  "center",
		}))
}

func (b *builder) section(s content.Section) {
	b.stats = append(b.stats, SectionStat{
		Key:   s.Key(),
		Kind:  s.Kind(),
		Items: s.Len(),
		Empty: s.Len() == 0,
	})
	b.cur = &b.stats[len(b.stats)-1]
	defer func() { b.cur = nil }()

	switch s := s.(type) {
	case content.Hero:
		b.hero(s)
	case content.KPIGrid:
		b.kpiGrid(s)
	case content.ScoreTrend:
		b.scoreTrend(s)
	case content.Table:
		b.table(s)
	case content.Paragraph:
		b.paragraph(s)
	case content.BulletList:
		b.bulletList(s)
	}
	b.advance(b.preset.SectionGapMm)
}

// headingHeight is the vertical space a heading takes including the gap
// below it. It is zero for sections without a heading.
func (b *builder) headingHeight(title string) float64 {
	if title == "" {
		return 0
	}
	return text.LineHeightMm(b.preset.HeadingPt, 1) + headingGapMm
}

func (b *builder) heading(key, title string) {
	if title == "" {
		return
	}
	h := text.LineHeightMm(b.preset.HeadingPt, 1)
	w := b.contentW()
	b.add(layout.NewNode(key+"-heading", layout.Bounds{X: b.margin(), Y: b.cursorY, W: w, H: h}, layout.RoleContent, layout.Content{
		Kind:   layout.KindText,
		Text:   text.Truncate(title, text.CharsPerLine(w, b.preset.HeadingPt)),
		FontPt: b.preset.HeadingPt,
		Bold:   true,
		Color:  b.preset.Accent,
	}))
	b.advance(h + headingGapMm)
}

// textNode emits a single-line text node truncated to its width.
func (b *builder) textNode(id string, box layout.Bounds, s string, pt float64, bold bool, color string) {
	b.add(layout.NewNode(id, box, layout.RoleContent, layout.Content{
		Kind:   layout.KindText,
		Text:   text.Truncate(s, text.CharsPerLine(box.W, pt)),
		FontPt: pt,
		Bold:   bold,
		Color:  color,
	}))
}

func (b *builder) rect(id string, box layout.Bounds, fill string) {
	b.add(layout.NewNode(id, box, layout.RoleBackground, layout.Content{
		Kind: layout.KindRect,
		Fill: fill,
	}))
}
