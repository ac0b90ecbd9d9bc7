package sink_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/render/sink"
)

func examplePage() layout.Page {
	return layout.Page{
		ID: "page-1", WidthMm: 210, HeightMm: 297, MarginMm: 12,
		Nodes: []layout.Node{
			layout.NewNode("hero-band", layout.Bounds{X: 12, Y: 12, W: 186, H: 28}, layout.RoleBackground,
				layout.Content{Kind: layout.KindRect, Fill: "EAF3FF"}),
			layout.NewNode("hero-title", layout.Bounds{X: 16, Y: 16, W: 150, H: 8}, layout.RoleContent,
				layout.Content{Kind: layout.KindText, Text: "Employee Health Report", FontPt: 16, Bold: true}),
		},
	}
}

func ExampleRenderPageSVG() {
	svg := sink.RenderPageSVG(examplePage())

	fmt.Println("SVG starts with:", string(svg[:4]))
	fmt.Println("Sized in mm:", strings.Contains(string(svg), `width="210.00mm"`))
	// Output:
	// SVG starts with: <svg
	// Sized in mm: true
}

func ExampleRenderSVG_withHighlight() {
	pages := []layout.Page{examplePage()}

	svg := sink.RenderSVG(pages, sink.WithHighlight("hero-title"))

	fmt.Println("Highlighted:", strings.Contains(string(svg), `stroke="#DC2626"`))
	// Output:
	// Highlighted: true
}
