package flow

import (
	"fmt"
	"strconv"

	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/text"
)

func (b *builder) hero(s content.Hero) {
	p := b.preset
	band := p.HeaderHeightMm
	b.ensurePageSpace(band)

	x, y, w := b.margin(), b.cursorY, b.contentW()
	b.rect(s.SectionKey+"-band", layout.Bounds{X: x, Y: y, W: w, H: band}, p.AccentSoft)

	textW := w - 2*heroPadMm
	if s.Score != nil {
		textW -= badgeWidthMm + heroPadMm
	}
	titleH := text.LineHeightMm(p.TitlePt, 1)
	subH := text.LineHeightMm(p.BodyPt, 1)
	b.textNode(s.SectionKey+"-title",
		layout.Bounds{X: x + heroPadMm, Y: y + heroPadMm, W: textW, H: titleH},
		s.Title, p.TitlePt, true, p.Accent)
	if s.Subtitle != "" {
		b.textNode(s.SectionKey+"-subtitle",
			layout.Bounds{X: x + heroPadMm, Y: y + heroPadMm + titleH + 2, W: textW, H: subH},
			s.Subtitle, p.BodyPt, false, p.Text)
	}

	if s.Score != nil {
		bx := x + w - heroPadMm - badgeWidthMm
		by := y + heroPadMm
		b.rect(s.SectionKey+"-badge", layout.Bounds{X: bx, Y: by, W: badgeWidthMm, H: band - 2*heroPadMm}, p.Accent)
		labelH := text.LineHeightMm(p.SmallPt, 1)
		b.textNode(s.SectionKey+"-score",
			layout.Bounds{X: bx + 2, Y: by + 2, W: badgeWidthMm - 4, H: titleH},
			strconv.FormatFloat(*s.Score, 'f', -1, 64), p.TitlePt, true, "FFFFFF")
		b.textNode(s.SectionKey+"-score-label",
			layout.Bounds{X: bx + 2, Y: by + 2 + titleH, W: badgeWidthMm - 4, H: labelH},
			s.ScoreLabel, p.SmallPt, false, "FFFFFF")
	}
	b.advance(band)
}

func (b *builder) kpiGrid(s content.KPIGrid) {
	p := b.preset
	tileH := p.KPITileHeightMm
	if len(s.Items) > 0 {
		b.ensurePageSpace(b.headingHeight(s.Title) + tileH)
	} else {
		b.ensurePageSpace(b.headingHeight(s.Title))
	}
	b.heading(s.SectionKey, s.Title)

	cols := KPIColumns(b.variant)
	gap := p.KPIGapMm
	tileW := (b.contentW() - float64(cols-1)*gap) / float64(cols)
	labelH := text.LineHeightMm(p.SmallPt, 1)
	valueH := text.LineHeightMm(p.HeadingPt, 1)

	for start := 0; start < len(s.Items); start += cols {
		if start > 0 {
			b.advance(gap)
		}
		b.ensurePageSpace(tileH)
		y := b.cursorY
		for i := start; i < min(start+cols, len(s.Items)); i++ {
			it := s.Items[i]
			x := b.margin() + float64(i-start)*(tileW+gap)
			id := fmt.Sprintf("%s-tile-%d", s.SectionKey, i)
			inner := tileW - 2*tilePadMm
			b.rect(id+"-card", layout.Bounds{X: x, Y: y, W: tileW, H: tileH}, p.AccentSoft)
			b.textNode(id+"-label",
				layout.Bounds{X: x + tilePadMm, Y: y + tilePadMm, W: inner, H: labelH},
				it.Label, p.SmallPt, false, p.Muted)
			b.textNode(id+"-value",
				layout.Bounds{X: x + tilePadMm, Y: y + tilePadMm + labelH + itemGapMm, W: inner, H: valueH},
				it.Value, p.HeadingPt, true, p.Text)
			if it.Status != "" {
				b.textNode(id+"-status",
					layout.Bounds{X: x + tilePadMm, Y: y + tilePadMm + labelH + valueH + 2*itemGapMm, W: inner, H: labelH},
					it.Status, p.SmallPt, false, p.Accent)
			}
		}
		b.advance(tileH)
	}
}

func (b *builder) scoreTrend(s content.ScoreTrend) {
	p := b.preset
	headH := b.headingHeight(s.Title)
	if len(s.Points) == 0 {
		b.ensurePageSpace(headH)
		b.heading(s.SectionKey, s.Title)
		return
	}

	id := s.SectionKey + "-chart"
	chartH := p.ChartHeightMm
	if s.HeightMm > 0 {
		chartH = s.HeightMm
	}
	if limit := b.usableH() - headH; chartH > limit {
		chartH = limit
		b.shrunk = append(b.shrunk, id)
	}
	b.ensurePageSpace(headH + chartH)
	b.heading(s.SectionKey, s.Title)

	series := make([]layout.SeriesPoint, len(s.Points))
	for i, pt := range s.Points {
		series[i] = layout.SeriesPoint{Label: pt.Label, Value: pt.Value}
	}
	box := layout.Bounds{X: b.margin(), Y: b.cursorY, W: b.contentW(), H: chartH}
	b.rect(id+"-card", box, p.AccentSoft)
	b.add(layout.NewNode(id, box, layout.RoleContent, layout.Content{
		Kind:     layout.KindChart,
		FontPt:   p.SmallPt,
		Color:    p.Accent,
		Series:   series,
		MaxValue: s.Max,
	}))
	b.advance(chartH)
}

func (b *builder) table(s content.Table) {
	p := b.preset
	rowH := p.RowHeightMm
	if len(s.Rows) == 0 {
		b.ensurePageSpace(b.headingHeight(s.Title))
		b.heading(s.SectionKey, s.Title)
		return
	}
	b.ensurePageSpace(b.headingHeight(s.Title) + 2*rowH)
	b.heading(s.SectionKey, s.Title)

	widths := columnWidths(s.Columns, b.contentW())
	header := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		header[i] = c.Title
	}

	b.tableHeader(s.SectionKey+"-header", header, widths)
	for i, row := range s.Rows {
		if layout.Round2(b.cursorY+rowH) > b.maxY() {
			b.newPage()
			b.tableHeader(fmt.Sprintf("%s-header-%s", s.SectionKey, b.page().ID), header, widths)
		}
		b.tableRow(fmt.Sprintf("%s-row-%d", s.SectionKey, i), row, widths, false, p.Text)
	}
}

func (b *builder) tableHeader(id string, cells []string, widths []float64) {
	box := layout.Bounds{X: b.margin(), Y: b.cursorY, W: b.contentW(), H: b.preset.RowHeightMm}
	b.rect(id+"-fill", box, b.preset.AccentSoft)
	b.tableRow(id, cells, widths, true, b.preset.Accent)
}

func (b *builder) tableRow(id string, cells []string, widths []float64, bold bool, color string) {
	p := b.preset
	out := make([]layout.Cell, len(widths))
	x := 0.0
	for i, w := range widths {
		var s string
		if i < len(cells) {
			s = cells[i]
		}
		// One cell of padding keeps adjacent cells apart.
		out[i] = layout.Cell{
			Text: text.Truncate(s, max(1, text.CharsPerLine(w, p.BodyPt)-1)),
			X:    layout.Round2(x),
			W:    layout.Round2(w),
		}
		x += w
	}
	b.add(layout.NewNode(id, layout.Bounds{X: b.margin(), Y: b.cursorY, W: b.contentW(), H: p.RowHeightMm}, layout.RoleContent, layout.Content{
		Kind:   layout.KindRow,
		FontPt: p.BodyPt,
		Bold:   bold,
		Color:  color,
		Cells:  out,
	}))
	b.advance(p.RowHeightMm)
}

func columnWidths(cols []content.Column, total float64) []float64 {
	var sum float64
	for _, c := range cols {
		sum += weight(c)
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = total * weight(c) / sum
	}
	return out
}

func weight(c content.Column) float64 {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}

func (b *builder) paragraph(s content.Paragraph) {
	p := b.preset
	w := b.contentW()
	lines := text.WrapText(s.Body, text.CharsPerLine(w, p.BodyPt))
	lineH := text.LineHeightMm(p.BodyPt, p.Leading)

	first := b.headingHeight(s.Title)
	if len(lines) > 0 {
		first += lineH
	}
	b.ensurePageSpace(first)
	b.heading(s.SectionKey, s.Title)

	for i, line := range lines {
		b.ensurePageSpace(lineH)
		b.add(layout.NewNode(fmt.Sprintf("%s-line-%d", s.SectionKey, i),
			layout.Bounds{X: b.margin(), Y: b.cursorY, W: w, H: lineH}, layout.RoleContent, layout.Content{
				Kind:   layout.KindText,
				Text:   line,
				FontPt: p.BodyPt,
				Color:  p.Text,
			}))
		b.advance(lineH)
	}
}

func (b *builder) bulletList(s content.BulletList) {
	p := b.preset
	w := b.contentW() - bulletIndent
	cpl := text.CharsPerLine(w, p.BodyPt)
	lineH := text.LineHeightMm(p.BodyPt, p.Leading)

	first := b.headingHeight(s.Title)
	if len(s.Items) > 0 {
		first += lineH
	}
	b.ensurePageSpace(first)
	b.heading(s.SectionKey, s.Title)

	for i, item := range s.Items {
		if i > 0 {
			b.advance(itemGapMm)
		}
		for j, line := range text.WrapText(item, cpl) {
			b.ensurePageSpace(lineH)
			id := fmt.Sprintf("%s-item-%d-line-%d", s.SectionKey, i, j)
			if j == 0 {
				b.add(layout.NewNode(fmt.Sprintf("%s-item-%d-marker", s.SectionKey, i),
					layout.Bounds{X: b.margin(), Y: b.cursorY, W: bulletIndent, H: lineH}, layout.RoleContent, layout.Content{
						Kind:   layout.KindText,
						Text:   "•",
						FontPt: p.BodyPt,
						Color:  p.Accent,
					}))
			}
			b.add(layout.NewNode(id,
				layout.Bounds{X: b.margin() + bulletIndent, Y: b.cursorY, W: w, H: lineH}, layout.RoleContent, layout.Content{
					Kind:   layout.KindText,
					Text:   line,
					FontPt: p.BodyPt,
					Color:  p.Text,
				}))
			b.advance(lineH)
		}
	}
}
