// Package validate checks a layout for colliding and out-of-bounds nodes.
//
// Validation works on millimetre bounding boxes rounded to two decimals.
// Overlaps are tolerant: two content nodes collide only when the shared
// rectangle is wider than 0.4 mm, taller than 0.3 mm and larger than
// 0.35 mm², which absorbs rounding noise and small horizontal text overhang
// while still catching stacked or clipped elements. Background-like nodes
// (see [layout.Node.IsBackgroundLike]) are exempt from both checks.
//
// The pairwise check is quadratic per page. Report pages carry tens of
// nodes, so this is not a concern at the intended scale.
package validate

import (
	"fmt"

	"github.com/matzehuels/reportflow/pkg/core/layout"
)

// Code classifies an issue.
type Code string

// Issue codes.
const (
	CodeBounds  Code = "BOUNDS"
	CodeOverlap Code = "OVERLAP"
)

// Tolerances in millimetres.
const (
	MinOverlapWidthMm  = 0.4
	MinOverlapHeightMm = 0.3
	MinOverlapAreaMm2  = 0.35
	BoundsSlackMm      = 0.5
)

// Issue is one validation finding.
type Issue struct {
	Code   Code   `json:"code"`
	PageID string `json:"pageId"`
	// NodeID is the offending node, or "a|b" for an overlapping pair.
	NodeID     string          `json:"nodeId"`
	NodeIDs    []string        `json:"nodeIds"`
	Detail     string          `json:"detail"`
	NodeBounds []layout.Bounds `json:"nodeBounds"`
}

// Overlap describes the shared rectangle of two boxes.
type Overlap struct {
	Width  float64
	Height float64
	Area   float64
}

// ToBounds returns the node's box rounded to two decimals.
func ToBounds(n layout.Node) layout.Bounds {
	return n.Bounds().Rounded()
}

// Intersects reports whether a and b share interior area. Touching edges do
// not intersect.
func Intersects(a, b layout.Bounds) bool {
	return a.X < b.Right() && b.X < a.Right() && a.Y < b.Bottom() && b.Y < a.Bottom()
}

// OverlapMetrics measures the shared rectangle of a and b. Disjoint boxes
// yield zeros.
func OverlapMetrics(a, b layout.Bounds) Overlap {
	w := max(0, min(a.Right(), b.Right())-max(a.X, b.X))
	h := max(0, min(a.Bottom(), b.Bottom())-max(a.Y, b.Y))
	return Overlap{Width: layout.Round2(w), Height: layout.Round2(h), Area: layout.Round2(w * h)}
}

// IsMeaningfulOverlapMm reports whether a and b overlap beyond the rounding
// tolerances.
func IsMeaningfulOverlapMm(a, b layout.Bounds) bool {
	o := OverlapMetrics(a, b)
	return o.Width > MinOverlapWidthMm && o.Height > MinOverlapHeightMm && o.Area > MinOverlapAreaMm2
}

// ShouldIgnoreOverlap reports whether a pair is exempt from overlap checks.
func ShouldIgnoreOverlap(a, b layout.Node) bool {
	return a.IsBackgroundLike() || b.IsBackgroundLike()
}

// Result holds the issues found in a layout.
type Result struct {
	Issues []Issue `json:"issues"`
}

// OK reports whether no issues were found.
func (r Result) OK() bool { return len(r.Issues) == 0 }

// Count returns the number of issues with the given code.
func (r Result) Count(code Code) int {
	n := 0
	for _, is := range r.Issues {
		if is.Code == code {
			n++
		}
	}
	return n
}

// Validate checks every page. Issues are ordered by page, then by the kind
// of check (overlaps before bounds), then by node order. It never fails; an
// empty issue list means the layout is acceptable.
func Validate(pages []layout.Page) Result {
	issues := []Issue{}
	for _, p := range pages {
		issues = append(issues, ValidatePage(p)...)
	}
	return Result{Issues: issues}
}

// ValidatePage checks a single page.
func ValidatePage(p layout.Page) []Issue {
	var issues []Issue
	boxes := make([]layout.Bounds, len(p.Nodes))
	for i, n := range p.Nodes {
		boxes[i] = ToBounds(n)
	}

	for i := 0; i < len(p.Nodes); i++ {
		for j := i + 1; j < len(p.Nodes); j++ {
			a, b := p.Nodes[i], p.Nodes[j]
			if ShouldIgnoreOverlap(a, b) {
				continue
			}
			if !Intersects(boxes[i], boxes[j]) || !IsMeaningfulOverlapMm(boxes[i], boxes[j]) {
				continue
			}
			o := OverlapMetrics(boxes[i], boxes[j])
			issues = append(issues, Issue{
				Code:       CodeOverlap,
				PageID:     p.ID,
				NodeID:     a.ID + "|" + b.ID,
				NodeIDs:    []string{a.ID, b.ID},
				Detail:     fmt.Sprintf("%s overlaps %s by %.2fx%.2f mm (%.2f mm²)", a.ID, b.ID, o.Width, o.Height, o.Area),
				NodeBounds: []layout.Bounds{boxes[i], boxes[j]},
			})
		}
	}

	for i, n := range p.Nodes {
		if n.IsBackgroundLike() {
			continue
		}
		if detail := boundsProblem(p, boxes[i]); detail != "" {
			issues = append(issues, Issue{
				Code:       CodeBounds,
				PageID:     p.ID,
				NodeID:     n.ID,
				NodeIDs:    []string{n.ID},
				Detail:     n.ID + " " + detail,
				NodeBounds: []layout.Bounds{boxes[i]},
			})
		}
	}
	return issues
}

// boundsProblem describes why b does not sit inside the page's margin box,
// or returns "" when it does.
func boundsProblem(p layout.Page, b layout.Bounds) string {
	if b.W <= 0 || b.H <= 0 {
		return fmt.Sprintf("has non-positive size %.2fx%.2f mm", b.W, b.H)
	}
	box := p.ContentBox()
	var parts []string
	if b.X < box.X-BoundsSlackMm {
		parts = append(parts, fmt.Sprintf("left edge %.2f < %.2f", b.X, box.X))
	}
	if b.Y < box.Y-BoundsSlackMm {
		parts = append(parts, fmt.Sprintf("top edge %.2f < %.2f", b.Y, box.Y))
	}
	if b.Right() > box.Right()+BoundsSlackMm {
		parts = append(parts, fmt.Sprintf("right edge %.2f > %.2f", b.Right(), box.Right()))
	}
	if b.Bottom() > box.Bottom()+BoundsSlackMm {
		parts = append(parts, fmt.Sprintf("bottom edge %.2f > %.2f", b.Bottom(), box.Bottom()))
	}
	if len(parts) == 0 {
		return ""
	}
	out := "exceeds the margin box: " + parts[0]
	for _, s := range parts[1:] {
		out += ", " + s
	}
	return out
}
