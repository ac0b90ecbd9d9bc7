package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// InspectModel - Interactive page and issue browser
// =============================================================================

// inspectView is the pane currently shown by the inspector.
type inspectView int

const (
	viewPages inspectView = iota
	viewIssues
	viewNodes
)

// InspectModel is the bubbletea model for browsing a pipeline result.
type InspectModel struct {
	Result pipeline.Result
	Pane   inspectView
	Cursor int
	Offset int
	Height int

	// Page is the page whose nodes or issues are listed, or "" for all.
	Page string
}

// NewInspectModel creates an inspector positioned on the page list.
func NewInspectModel(res pipeline.Result) InspectModel {
	return InspectModel{Result: res, Height: 15}
}

func (m InspectModel) Init() tea.Cmd {
	return nil
}

func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "backspace":
			if m.Pane == viewPages {
				return m, tea.Quit
			}
			m = m.show(viewPages, "")
		case "tab":
			if m.Pane == viewPages {
				m = m.show(viewIssues, "")
			} else {
				m = m.show(viewPages, "")
			}
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < m.rowCount()-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if m.Pane != viewPages || m.Cursor >= len(m.Result.Audit.Pages) {
				return m, nil
			}
			id := m.Result.Audit.Pages[m.Cursor].ID
			if m.page(id) != nil {
				m = m.show(viewNodes, id)
			} else {
				m = m.show(viewIssues, id)
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m InspectModel) show(v inspectView, page string) InspectModel {
	m.Pane = v
	m.Page = page
	m.Cursor = 0
	m.Offset = 0
	return m
}

func (m InspectModel) rowCount() int {
	switch m.Pane {
	case viewIssues:
		return len(m.issues())
	case viewNodes:
		if p := m.page(m.Page); p != nil {
			return len(p.Nodes)
		}
		return 0
	default:
		return len(m.Result.Audit.Pages)
	}
}

// page returns the laid out page with the given id. Rejected results carry
// no layout.
func (m InspectModel) page(id string) *layout.Page {
	for i := range m.Result.Layout {
		if m.Result.Layout[i].ID == id {
			return &m.Result.Layout[i]
		}
	}
	return nil
}

func (m InspectModel) issues() []validate.Issue {
	if m.Page == "" {
		return m.Result.Issues
	}
	var out []validate.Issue
	for _, iss := range m.Result.Issues {
		if iss.PageID == m.Page {
			out = append(out, iss)
		}
	}
	return out
}

func (m InspectModel) View() string {
	var b strings.Builder

	a := m.Result.Audit
	title := a.Title
	if title == "" {
		title = "Layout"
	}
	status := StyleSuccess.Render(iconSuccess + " ready")
	if !m.Result.OK {
		status = styleIconError.Render(iconError + " validation failed")
	}
	b.WriteString(StyleTitle.Render(title) + "  " + status)
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open page  tab pages/issues  esc back  q quit"))
	b.WriteString("\n\n")

	var headers []string
	var rows [][]string
	switch m.Pane {
	case viewIssues:
		headers = []string{"", "Page", "Code", "Node", "Detail"}
		for i, iss := range m.issues() {
			rows = append(rows, []string{cursorMark(i == m.Cursor), iss.PageID, string(iss.Code), iss.NodeID, iss.Detail})
		}
	case viewNodes:
		headers = []string{"", "Node", "Role", "Kind", "Bounds (mm)", "Text"}
		if p := m.page(m.Page); p != nil {
			for i, n := range p.Nodes {
				rows = append(rows, []string{
					cursorMark(i == m.Cursor), n.ID, string(n.Role), string(n.Content.Kind),
					fmt.Sprintf("%.1f,%.1f %.1f×%.1f", n.X, n.Y, n.W, n.H),
					truncate(n.Content.Text, 32),
				})
			}
		}
	default:
		headers = []string{"", "Page", "Nodes", "Content", "Issues"}
		for i, p := range a.Pages {
			rows = append(rows, []string{
				cursorMark(i == m.Cursor), p.ID,
				fmt.Sprint(p.Nodes), fmt.Sprint(p.ContentNodes), fmt.Sprint(p.Issues),
			})
		}
	}

	end := m.Offset + m.Height
	if end > len(rows) {
		end = len(rows)
	}
	visible := rows
	if m.Offset < end {
		visible = rows[m.Offset:end]
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(visible...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	label := m.Page
	if label == "" {
		label = "all pages"
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %s", min(m.Cursor+1, len(rows)), len(rows), label)))

	return b.String()
}

func cursorMark(current bool) string {
	if current {
		return "▸"
	}
	return " "
}

// =============================================================================
// Helpers
// =============================================================================

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatRelativeTime(t time.Time, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
