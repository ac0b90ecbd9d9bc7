// Package auditmd writes a pipeline result as a GitHub-flavored Markdown
// audit report: run summary, per-page statistics, section placement and
// the validation issues, if any.
package auditmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

// Write renders res to w.
func Write(w io.Writer, res pipeline.Result) error {
	md := markdown.NewMarkdown(w)
	a := res.Audit

	title := a.Title
	if title == "" {
		title = "Layout audit"
	}
	md.H1(title)
	md.PlainText("")

	writeSummary(md, res)
	writeStatus(md, res)
	writePages(md, a)
	writeSections(md, a)
	writeIssues(md, res.Issues)

	return md.Build()
}

func writeSummary(md *markdown.Markdown, res pipeline.Result) {
	a := res.Audit
	status := "✅ " + string(pipeline.StatusReady)
	if !res.OK {
		status = "❌ " + string(pipeline.StatusValidationFailed)
	}

	rows := [][]string{
		{"Status", status},
		{"Engine", "`" + a.Engine + "`"},
		{"Employee", orDash(a.EmployeeID)},
		{"Period", orDash(a.PeriodKey)},
		{"Page size", orDash(a.PageSize)},
		{"Intent", orDash(a.Intent)},
		{"Variant", strconv.Itoa(a.VariantIndex)},
		{"Style", styleText(a)},
		{"KPI columns", strconv.Itoa(a.KPIColumns)},
		{"Pages", strconv.Itoa(a.PageCount)},
		{"Nodes", fmt.Sprintf("%d (%d content)", a.NodeCount, a.ContentNodeCount)},
	}
	if a.LayoutHash != "" {
		rows = append(rows, []string{"Layout hash", "`" + shortHash(a.LayoutHash) + "`"})
	}

	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")
}

func writeStatus(md *markdown.Markdown, res pipeline.Result) {
	a := res.Audit
	switch {
	case !res.OK:
		md.Cautionf("Layout rejected with %d issue(s): %d overlap, %d bounds. The report cannot be exported.",
			len(res.Issues), a.IssueCounts[validate.CodeOverlap], a.IssueCounts[validate.CodeBounds])
	case len(a.ShrunkNodes) > 0:
		md.Note(fmt.Sprintf("Layout accepted. %d node(s) were shrunk to fit one page: %s.",
			len(a.ShrunkNodes), strings.Join(a.ShrunkNodes, ", ")))
	default:
		md.Tip("Layout accepted without issues.")
	}
	md.PlainText("")
}

func writePages(md *markdown.Markdown, a pipeline.Audit) {
	md.H2("Pages")
	md.PlainText("")
	if len(a.Pages) == 0 {
		md.PlainText("No pages.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(a.Pages))
	for _, p := range a.Pages {
		rows = append(rows, []string{
			"`" + p.ID + "`",
			strconv.Itoa(p.Nodes),
			strconv.Itoa(p.ContentNodes),
			strconv.Itoa(p.Issues),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Nodes", "Content", "Issues"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(a.Pages) > 1 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Content nodes per page"),
			piechart.WithShowData(true),
		)
		for _, p := range a.Pages {
			if p.ContentNodes > 0 {
				chart.LabelAndIntValue(p.ID, uint64(p.ContentNodes))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

func writeSections(md *markdown.Markdown, a pipeline.Audit) {
	if len(a.Sections) == 0 {
		return
	}
	md.H2("Sections")
	md.PlainText("")

	rows := make([][]string, 0, len(a.Sections))
	for _, s := range a.Sections {
		placed := "—"
		switch {
		case s.Empty:
			placed = "empty"
		case s.FirstPage != "" && s.FirstPage == s.LastPage:
			placed = s.FirstPage
		case s.FirstPage != "":
			placed = s.FirstPage + " → " + s.LastPage
		}
		rows = append(rows, []string{s.Key, s.Kind, strconv.Itoa(s.Items), strconv.Itoa(s.Nodes), placed})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Section", "Kind", "Items", "Nodes", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeIssues(md *markdown.Markdown, issues []validate.Issue) {
	md.H2("Issues")
	md.PlainText("")
	if len(issues) == 0 {
		md.PlainText("No issues.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(issues))
	for _, iss := range issues {
		rows = append(rows, []string{
			string(iss.Code),
			"`" + iss.PageID + "`",
			"`" + escapePipes(iss.NodeID) + "`",
			escapePipes(iss.Detail),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Code", "Page", "Node", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

func styleText(a pipeline.Audit) string {
	if a.StylePreset == "" {
		return "—"
	}
	s := a.StylePreset
	if a.StyleSource != "" {
		s += " (" + a.StyleSource + ")"
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
