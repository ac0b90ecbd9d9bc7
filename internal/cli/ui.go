package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

// Palette (ANSI 256).
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// Styles shared by the command output and the inspect view.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleLink      = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorCyan)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCached      = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed    = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleTableHeader = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// uiOut receives all human-readable output.
var uiOut io.Writer = os.Stdout

// keepStdoutClean moves human-readable output to stderr when a command
// writes its data to stdout.
func keepStdoutClean(dataOnStdout bool) {
	if dataOnStdout {
		uiOut = os.Stderr
	}
}

func printStatus(icon string, iconStyle lipgloss.Style, msg string) {
	fmt.Fprintln(uiOut, iconStyle.Render(icon)+" "+msg)
}

func printSuccess(format string, args ...any) {
	printStatus(iconSuccess, styleIconSuccess, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	printStatus(iconError, styleIconError, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	printStatus(iconWarning, styleIconWarning, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	printStatus(iconInfo, styleIconInfo, fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line under a status line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(uiOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile announces a file the command wrote.
func printFile(path string) {
	fmt.Fprintln(uiOut, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(uiOut, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printStats prints the audit of a run on one line, e.g.
// "3 pages · 41 nodes · calm · fresh".
func printStats(a pipeline.Audit, cached bool) {
	parts := []string{
		fmt.Sprintf("%d pages", a.PageCount),
		fmt.Sprintf("%d nodes", a.NodeCount),
	}
	if a.StylePreset != "" {
		parts = append(parts, a.StylePreset)
	}
	if n := a.IssueCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d issues", n))
	}
	for i, p := range parts {
		parts[i] = StyleDim.Render(p)
	}
	if cached {
		parts = append(parts, styleCached.Render(iconCached))
	} else {
		parts = append(parts, styleComputed.Render(iconFresh))
	}
	fmt.Fprintln(uiOut, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// maxIssueRows caps the issue table; the full list stays in the result file.
const maxIssueRows = 20

func printIssues(issues []validate.Issue) {
	if len(issues) == 0 {
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StyleDim).
		Headers("PAGE", "CODE", "NODE", "DETAIL").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row < 0: // header
				return styleTableHeader
			case col == 1:
				return StyleWarning
			}
			return StyleValue
		})
	for _, iss := range issues[:min(len(issues), maxIssueRows)] {
		t.Row(iss.PageID, string(iss.Code), iss.NodeID, iss.Detail)
	}
	fmt.Fprintln(uiOut, t.Render())
	if extra := len(issues) - maxIssueRows; extra > 0 {
		printDetail("… and %d more", extra)
	}
}

func printNextStep(description, cmd string) {
	fmt.Fprintln(uiOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// printInline prints a dim message without a trailing newline.
func printInline(format string, args ...any) {
	fmt.Fprint(uiOut, StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printNewline() { fmt.Fprintln(uiOut) }
