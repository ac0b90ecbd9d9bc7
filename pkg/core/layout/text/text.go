// Package text estimates the extent of text in millimetres and wraps it into
// lines for the flow builder.
//
// Measurement is deliberately coarse: every character occupies a fixed cell
// whose width depends only on the font size, and East Asian wide characters
// occupy two cells. The estimate errs on the wide side so that wrapped lines
// never overrun their box in the rendered document.
package text

import (
	"math"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
)

const (
	minCharWidthMm  = 1.8
	charWidthPerPt  = 0.16
	minLineHeightMm = 4.0
	lineHeightPerPt = 0.42
)

// cond is fixed so that measurement does not depend on the host locale.
var cond = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

// CharWidthMm returns the estimated width of one cell at fontPt.
func CharWidthMm(fontPt float64) float64 {
	return math.Max(minCharWidthMm, fontPt*charWidthPerPt)
}

// CharsPerLine returns how many cells fit in widthMm at fontPt. It is at
// least 1.
func CharsPerLine(widthMm, fontPt float64) int {
	n := int(math.Floor(widthMm / CharWidthMm(fontPt)))
	if n < 1 {
		return 1
	}
	return n
}

// LineHeightMm returns the height of one line at fontPt scaled by leading.
// A non-positive leading is treated as 1.
func LineHeightMm(fontPt, leading float64) float64 {
	if leading <= 0 {
		leading = 1
	}
	return math.Max(minLineHeightMm, fontPt*lineHeightPerPt) * leading
}

// Cells returns the number of cells s occupies.
func Cells(s string) int {
	return cond.StringWidth(s)
}

// WidthMm returns the estimated width of s at fontPt.
func WidthMm(s string, fontPt float64) float64 {
	return float64(Cells(s)) * CharWidthMm(fontPt)
}

// WrapLine greedily packs the words of line into lines of at most maxCells
// cells. A word wider than maxCells is sliced into maxCells-wide chunks; the
// last chunk stays open so that following words may join it. Whitespace
// runs collapse to single spaces. An empty or blank line yields no lines.
func WrapLine(line string, maxCells int) []string {
	if maxCells < 1 {
		maxCells = 1
	}
	var (
		out   []string
		cur   strings.Builder
		width int
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			width = 0
		}
	}
	for _, word := range strings.Fields(line) {
		w := Cells(word)
		if w > maxCells {
			flush()
			chunks := slice(word, maxCells)
			out = append(out, chunks[:len(chunks)-1]...)
			last := chunks[len(chunks)-1]
			cur.WriteString(last)
			width = Cells(last)
			continue
		}
		// A zero-width token (a lone combining mark) still occupies the
		// line, so emptiness is judged by content, not width.
		if cur.Len() > 0 && width+1+w > maxCells {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
			width++
		}
		cur.WriteString(word)
		width += w
	}
	flush()
	return out
}

// WrapText wraps each hard line of s with WrapLine. Blank hard lines are
// dropped.
func WrapText(s string, maxCells int) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		out = append(out, WrapLine(line, maxCells)...)
	}
	return out
}

// slice cuts word into chunks of at most maxCells cells. A rune wider than
// maxCells gets a chunk of its own.
func slice(word string, maxCells int) []string {
	var (
		chunks []string
		cur    strings.Builder
		width  int
	)
	for _, r := range word {
		rw := cond.RuneWidth(r)
		if width > 0 && width+rw > maxCells {
			chunks = append(chunks, cur.String())
			cur.Reset()
			width = 0
		}
		cur.WriteRune(r)
		width += rw
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// Truncate shortens s to at most maxCells cells, ending in an ellipsis when
// anything was cut.
func Truncate(s string, maxCells int) string {
	if Cells(s) <= maxCells {
		return s
	}
	if maxCells < 1 {
		return ""
	}
	return cond.Truncate(s, maxCells, "…")
}

// MaybeAppendUnit joins value and unit with a space unless value already
// mentions the unit. The comparison ignores case and whitespace, so
// "120 MMHG" already carries "mmHg".
func MaybeAppendUnit(value, unit string) string {
	u := normalize(unit)
	if u == "" {
		return value
	}
	if strings.Contains(normalize(value), u) {
		return value
	}
	if strings.TrimSpace(value) == "" {
		return value
	}
	return value + " " + unit
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cases.Fold().String(s))
}
