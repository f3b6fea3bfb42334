package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"piprobe/pkg/puller"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listSkippedStyle  = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// depListModel - Interactive result inspection
// =============================================================================

// depRow is one line in the inspector: a kept dependency, a skipped
// declaration, or a top-level module name.
type depRow struct {
	kind   string // "dep", "skip", or "module"
	name   string
	detail string
}

// depListModel is the bubbletea model for browsing a resolve result.
type depListModel struct {
	pkg    string
	rows   []depRow
	cursor int
	height int
	offset int
}

// newDepListModel builds the inspector model from a resolve result.
func newDepListModel(pkg string, res *puller.Result) depListModel {
	var rows []depRow
	for _, dep := range res.Deps {
		rows = append(rows, depRow{kind: "dep", name: dep})
	}
	for _, skip := range res.Skipped {
		rows = append(rows, depRow{
			kind:   "skip",
			name:   skip.Name,
			detail: fmt.Sprintf("%s (%s)", skip.Marker, skip.Reason),
		})
	}
	for _, name := range res.TopLevel {
		rows = append(rows, depRow{kind: "module", name: name})
	}
	return depListModel{
		pkg:    pkg,
		rows:   rows,
		height: 15,
	}
}

func (m depListModel) Init() tea.Cmd {
	return nil
}

func (m depListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 6
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m depListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.pkg))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(listDimStyle.Render("no dependencies, no top-level modules"))
		b.WriteString("\n")
		return b.String()
	}

	end := m.offset + m.height
	if end > len(m.rows) {
		end = len(m.rows)
	}

	for i := m.offset; i < end; i++ {
		row := m.rows[i]
		line := m.renderRow(row)
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		if i == m.cursor && row.detail != "" {
			b.WriteString(listDimStyle.Render("    " + row.detail))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m depListModel) renderRow(row depRow) string {
	switch row.kind {
	case "skip":
		return listSkippedStyle.Render(iconWarning+" "+row.name) + listDimStyle.Render(" skipped")
	case "module":
		return listNormalStyle.Render(row.name) + listDimStyle.Render(" module")
	default:
		return listNormalStyle.Render(row.name)
	}
}

// runInspector opens the interactive result browser.
func runInspector(pkg string, res *puller.Result) error {
	_, err := tea.NewProgram(newDepListModel(pkg, res)).Run()
	return err
}
