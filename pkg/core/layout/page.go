package layout

import (
	"math"
	"strings"

	"github.com/matzehuels/reportflow/pkg/errors"
)

// PageSizeKey identifies a supported paper size.
type PageSizeKey string

// Supported page sizes.
const (
	PageA4     PageSizeKey = "A4"
	PageLetter PageSizeKey = "LETTER"
)

// PageSize is a paper size in millimetres.
type PageSize struct {
	Key      PageSizeKey `json:"key"`
	WidthMm  float64     `json:"widthMm"`
	HeightMm float64     `json:"heightMm"`
}

var pageSizes = map[PageSizeKey]PageSize{
	PageA4:     {Key: PageA4, WidthMm: 210, HeightMm: 297},
	PageLetter: {Key: PageLetter, WidthMm: 215.9, HeightMm: 279.4},
}

// PageSizeKeys lists the supported page size keys in a stable order.
func PageSizeKeys() []PageSizeKey { return []PageSizeKey{PageA4, PageLetter} }

// ResolvePageSize maps a page size key to its dimensions. Keys are matched
// case-insensitively; an empty key resolves to A4.
func ResolvePageSize(key string) (PageSize, error) {
	k := PageSizeKey(strings.ToUpper(strings.TrimSpace(key)))
	if k == "" {
		k = PageA4
	}
	ps, ok := pageSizes[k]
	if !ok {
		return PageSize{}, errors.New(errors.ErrCodeInvalidPageSize, "invalid page size: %q (must be one of: A4, LETTER)", key)
	}
	return ps, nil
}

// Page is one page of the layout DSL.
type Page struct {
	ID       string  `json:"id"`
	WidthMm  float64 `json:"widthMm"`
	HeightMm float64 `json:"heightMm"`
	MarginMm float64 `json:"marginMm"`
	Nodes    []Node  `json:"nodes"`
}

// ContentBox returns the rectangle inside the page margins.
func (p Page) ContentBox() Bounds {
	return Bounds{
		X: p.MarginMm,
		Y: p.MarginMm,
		W: p.WidthMm - 2*p.MarginMm,
		H: p.HeightMm - 2*p.MarginMm,
	}
}

// CountContent returns the number of nodes on the page that take part in
// collision checks.
func (p Page) CountContent() int {
	n := 0
	for _, node := range p.Nodes {
		if !node.IsBackgroundLike() {
			n++
		}
	}
	return n
}

// Bounds is a millimetre rectangle with its origin at the top-left corner.
type Bounds struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the x coordinate of the right edge.
func (b Bounds) Right() float64 { return b.X + b.W }

// Bottom returns the y coordinate of the bottom edge.
func (b Bounds) Bottom() float64 { return b.Y + b.H }

// Rounded returns b with every component rounded to two decimals.
func (b Bounds) Rounded() Bounds {
	return Bounds{X: Round2(b.X), Y: Round2(b.Y), W: Round2(b.W), H: Round2(b.H)}
}

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // normalise -0
	}
	return r
}
