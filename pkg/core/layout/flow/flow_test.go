package flow

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/text"
)

func mustSize(t *testing.T, key string) layout.PageSize {
	t.Helper()
	s, err := layout.ResolvePageSize(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustPreset(t *testing.T, name layout.StylePreset) layout.Preset {
	t.Helper()
	p, err := layout.ResolvePreset(string(name))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func score(v float64) *float64 { return &v }

func sampleReport(rows, recs int) content.Report {
	table := content.Table{
		SectionKey: "health-metrics",
		Title:      "Health Checkup",
		Columns:    []content.Column{{Title: "Metric", Weight: 2}, {Title: "Value"}},
	}
	for i := 0; i < rows; i++ {
		table.Rows = append(table.Rows, []string{fmt.Sprintf("Metric %d", i), fmt.Sprintf("%d mg/dL", 80+i)})
	}
	list := content.BulletList{SectionKey: "recommendations", Title: "Recommendations"}
	for i := 0; i < recs; i++ {
		list.Items = append(list.Items, strings.Repeat("Keep a steady routine and drink water. ", 1+i%4))
	}
	return content.Report{
		Title: "Employee Health Report_Test",
		Sections: []content.Section{
			content.Hero{SectionKey: "hero", Title: "Employee Personal Health Report", Subtitle: "Test | 2025-06", Score: score(74), ScoreLabel: "Overall"},
			content.KPIGrid{SectionKey: "core-metrics", Title: "Key Indicators", Items: []content.KPI{
				{Label: "BMI", Value: "23.1 kg/m2", Status: "normal"},
				{Label: "Blood pressure", Value: "128/84 mmHg", Status: "caution"},
				{Label: "Glucose", Value: "92 mg/dL"},
				{Label: "Sleep", Value: "6.5 h"},
				{Label: "Steps", Value: "7,400"},
			}},
			content.ScoreTrend{SectionKey: "score-trend", Title: "Score Trend", Max: 100, Points: []content.TrendPoint{
				{Label: "2025-04", Value: 68}, {Label: "2025-05", Value: 70}, {Label: "2025-06", Value: 74},
			}},
			table,
			list,
			content.Paragraph{SectionKey: "pharmacist-notes", Title: "Pharmacist Notes", Body: strings.Repeat("Take medication with food and keep a log. ", 12)},
		},
	}
}

func TestBuildDeterministic(t *testing.T) {
	r := sampleReport(40, 12)
	for _, size := range []string{"A4", "LETTER"} {
		for _, preset := range layout.PresetNames() {
			for variant := 0; variant < 3; variant++ {
				a := Build(r, mustSize(t, size), mustPreset(t, preset), variant, Options{Intent: IntentExport})
				b := Build(r, mustSize(t, size), mustPreset(t, preset), variant, Options{Intent: IntentExport})
				ja, _ := json.Marshal(a)
				jb, _ := json.Marshal(b)
				if string(ja) != string(jb) {
					t.Errorf("%s/%s/%d: two builds differ", size, preset, variant)
				}
			}
		}
	}
}

func TestBuildPaginationMonotonic(t *testing.T) {
	r := sampleReport(80, 30)
	for _, size := range []string{"A4", "LETTER"} {
		for _, name := range layout.PresetNames() {
			preset := mustPreset(t, name)
			res := Build(r, mustSize(t, size), preset, 1, Options{})
			if len(res.Pages) < 2 {
				t.Errorf("%s/%s: expected multiple pages, got %d", size, name, len(res.Pages))
			}
			for _, p := range res.Pages {
				maxY := p.HeightMm - p.MarginMm
				for _, n := range p.Nodes {
					if n.Y+n.H > maxY+0.01 {
						t.Errorf("%s/%s: node %s on %s ends at %.2f past %.2f", size, name, n.ID, p.ID, n.Y+n.H, maxY)
					}
					if n.Y < p.MarginMm-0.01 {
						t.Errorf("%s/%s: node %s on %s starts at %.2f above margin", size, name, n.ID, p.ID, n.Y)
					}
				}
			}
		}
	}
}

func TestBuildUniqueIDs(t *testing.T) {
	res := Build(sampleReport(80, 30), mustSize(t, "A4"), mustPreset(t, layout.PresetCalm), 2, Options{Intent: IntentPreview})
	seen := make(map[string]bool)
	for _, p := range res.Pages {
		for _, n := range p.Nodes {
			if seen[n.ID] {
				t.Errorf("duplicate node id %s", n.ID)
			}
			seen[n.ID] = true
			if n.W <= 0 || n.H <= 0 {
				t.Errorf("node %s has non-positive size %vx%v", n.ID, n.W, n.H)
			}
		}
	}
}

func TestBuildScenarioA(t *testing.T) {
	body := strings.Repeat("x", 400)
	r := content.Report{Sections: []content.Section{
		content.KPIGrid{SectionKey: "kpis", Title: "Key Indicators", Items: []content.KPI{
			{Label: "A", Value: "1"}, {Label: "B", Value: "2"}, {Label: "C", Value: "3"},
		}},
		content.Paragraph{SectionKey: "para", Title: "Notes", Body: body},
	}}
	preset := mustPreset(t, layout.PresetFresh)
	if preset.MarginMm != 12 {
		t.Fatalf("fresh margin = %v, want 12", preset.MarginMm)
	}
	size := mustSize(t, "A4")
	res := Build(r, size, preset, 0, Options{})

	cpl := text.CharsPerLine(size.WidthMm-2*preset.MarginMm, preset.BodyPt)
	wantLines := int(math.Ceil(400 / float64(cpl)))
	lines := 0
	for _, p := range res.Pages {
		for _, n := range p.Nodes {
			if strings.HasPrefix(n.ID, "para-line-") {
				lines++
			}
		}
	}
	if lines != wantLines {
		t.Errorf("paragraph lines = %d, want %d", lines, wantLines)
	}

	head := text.LineHeightMm(preset.HeadingPt, 1) + headingGapMm
	total := 2*head + preset.KPITileHeightMm + preset.SectionGapMm +
		float64(wantLines)*text.LineHeightMm(preset.BodyPt, preset.Leading)
	wantPages := 1
	if total > size.HeightMm-2*preset.MarginMm {
		wantPages = 2
	}
	if len(res.Pages) != wantPages {
		t.Errorf("pages = %d, want %d (estimated height %.2f)", len(res.Pages), wantPages, total)
	}

	tiles := 0
	for _, n := range res.Pages[0].Nodes {
		if strings.HasSuffix(n.ID, "-card") {
			tiles++
		}
	}
	if tiles != 3 {
		t.Errorf("kpi tiles = %d, want 3", tiles)
	}
}

func TestBuildTallChartShrinks(t *testing.T) {
	r := content.Report{Sections: []content.Section{
		content.Paragraph{SectionKey: "intro", Title: "Intro", Body: "Short intro."},
		content.ScoreTrend{SectionKey: "trend", Title: "Trend", HeightMm: 500, Points: []content.TrendPoint{{Label: "a", Value: 1}}},
	}}
	size := mustSize(t, "A4")
	preset := mustPreset(t, layout.PresetFresh)
	res := Build(r, size, preset, 0, Options{})

	if len(res.Shrunk) != 1 || res.Shrunk[0] != "trend-chart" {
		t.Fatalf("Shrunk = %v, want [trend-chart]", res.Shrunk)
	}
	if len(res.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(res.Pages))
	}
	var chart *layout.Node
	for i, n := range res.Pages[1].Nodes {
		if n.ID == "trend-chart" {
			chart = &res.Pages[1].Nodes[i]
		}
	}
	if chart == nil {
		t.Fatal("chart not on second page")
	}
	if bottom := chart.Y + chart.H; bottom > size.HeightMm-preset.MarginMm+0.01 {
		t.Errorf("chart bottom = %.2f, past margin", bottom)
	}
}

func TestBuildEmptySections(t *testing.T) {
	r := content.Report{Sections: []content.Section{
		content.KPIGrid{SectionKey: "kpis", Title: "Key Indicators"},
		content.Table{SectionKey: "meds", Title: "Medications", Columns: []content.Column{{Title: "Name"}}},
		content.Paragraph{SectionKey: "notes"},
	}}
	res := Build(r, mustSize(t, "A4"), mustPreset(t, layout.PresetFocus), 0, Options{})
	if len(res.Sections) != 3 {
		t.Fatalf("section stats = %d, want 3", len(res.Sections))
	}
	for _, s := range res.Sections {
		if !s.Empty || s.Items != 0 {
			t.Errorf("section %s: Empty=%v Items=%d", s.Key, s.Empty, s.Items)
		}
	}
	if res.Sections[0].Nodes != 1 || res.Sections[1].Nodes != 1 {
		t.Errorf("empty titled sections should emit only a heading: %+v", res.Sections)
	}
	if res.Sections[2].Nodes != 0 {
		t.Errorf("untitled empty paragraph emitted %d nodes", res.Sections[2].Nodes)
	}
}

func TestBuildTableRepeatsHeader(t *testing.T) {
	r := content.Report{Sections: []content.Section{sampleReport(120, 0).Sections[3]}}
	res := Build(r, mustSize(t, "A4"), mustPreset(t, layout.PresetFresh), 0, Options{})
	if len(res.Pages) < 3 {
		t.Fatalf("pages = %d, want at least 3", len(res.Pages))
	}
	for _, p := range res.Pages[1:] {
		if len(p.Nodes) < 2 || !strings.HasPrefix(p.Nodes[1].ID, "health-metrics-header-") {
			t.Errorf("%s does not start with a repeated header", p.ID)
		}
	}
}

func TestBuildPreviewWatermark(t *testing.T) {
	res := Build(sampleReport(60, 0), mustSize(t, "LETTER"), mustPreset(t, layout.PresetCalm), 0, Options{Intent: IntentPreview})
	for _, p := range res.Pages {
		n := p.Nodes[0]
		if n.ID != p.ID+"-watermark" || n.Role != layout.RoleDecorative {
			t.Errorf("%s first node = %s (%s), want decorative watermark", p.ID, n.ID, n.Role)
		}
	}
	exp := Build(sampleReport(60, 0), mustSize(t, "LETTER"), mustPreset(t, layout.PresetCalm), 0, Options{Intent: IntentExport})
	for _, p := range exp.Pages {
		for _, n := range p.Nodes {
			if strings.HasSuffix(n.ID, "-watermark") {
				t.Errorf("export layout has watermark %s", n.ID)
			}
		}
	}
}

func TestKPIColumns(t *testing.T) {
	tests := []struct{ variant, want int }{{0, 3}, {1, 2}, {2, 4}, {3, 3}, {-1, 2}}
	for _, tt := range tests {
		if got := KPIColumns(tt.variant); got != tt.want {
			t.Errorf("KPIColumns(%d) = %d, want %d", tt.variant, got, tt.want)
		}
	}
}
