package auditmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

func TestWriteAccepted(t *testing.T) {
	res, err := pipeline.Run(pipeline.Input{Payload: content.Payload{
		Meta: content.PayloadMeta{EmployeeID: "emp-9", EmployeeName: "Ada Moss", PeriodKey: "2025-05"},
		Health: content.PayloadHealth{
			CoreMetrics: []content.CoreMetric{{Key: "bmi", Label: "BMI", Value: "21.4"}},
		},
		Analysis: content.PayloadAnalysis{Recommendations: []string{"Stretch twice a day"}},
	}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.OK {
		t.Fatalf("Run() rejected fixture: %+v", res.Issues)
	}

	var buf bytes.Buffer
	if err := Write(&buf, res); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# " + res.Audit.Title,
		"| Status",
		"ready",
		"emp-9",
		"## Pages",
		"`page-1`",
		"## Sections",
		"[!TIP]",
		"No issues.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Write() output missing %q\n%s", want, out)
		}
	}
}

func TestWriteRejected(t *testing.T) {
	pages := []layout.Page{{
		ID: "page-1", WidthMm: 210, HeightMm: 297, MarginMm: 12,
		Nodes: []layout.Node{
			layout.NewNode("a", layout.Bounds{X: 20, Y: 20, W: 20, H: 10}, "", layout.Content{Kind: layout.KindText, Text: "a"}),
			layout.NewNode("b", layout.Bounds{X: 38, Y: 28, W: 20, H: 10}, "", layout.Content{Kind: layout.KindText, Text: "b"}),
		},
	}}
	res := pipeline.ValidateLayout(pages)

	var buf bytes.Buffer
	if err := Write(&buf, res); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Layout audit",
		"validation_failed",
		"[!CAUTION]",
		"OVERLAP",
		"`a\\|b`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Write() output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "## Sections") {
		t.Error("Write() printed sections for a bare layout")
	}
}

func TestHelpers(t *testing.T) {
	if got := shortHash("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("shortHash() = %q", got)
	}
	if got := orDash(""); got != "—" {
		t.Errorf("orDash(\"\") = %q", got)
	}
	if got := styleText(pipeline.Audit{StylePreset: "calm", StyleSource: "variant"}); got != "calm (variant)" {
		t.Errorf("styleText() = %q", got)
	}
}
