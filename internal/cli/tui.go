package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/depvet/pkg/scan"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PackageListModel - Interactive report browser
// =============================================================================

// PackageListModel is the bubbletea model for browsing scan findings.
// The cursor moves through the package list; the detail pane below shows
// the full license and score breakdown for the selected package.
type PackageListModel struct {
	Report *scan.Report
	Cursor int
	Height int
	Offset int
}

// NewPackageListModel creates a browser over a finished report.
func NewPackageListModel(report *scan.Report) PackageListModel {
	return PackageListModel{
		Report: report,
		Cursor: 0,
		Height: 15,
		Offset: 0,
	}
}

func (m PackageListModel) Init() tea.Cmd {
	return nil
}

func (m PackageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Report.Packages)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m PackageListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("%s@%s", m.Report.Root, m.Report.RootVersion)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Report.Packages) {
		end = len(m.Report.Packages)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Report.Packages[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		rows = append(rows, []string{
			cursor + r.Name,
			r.Version,
			r.License.License,
			string(r.License.Severity),
			fmt.Sprintf("%d", r.Score.Overall),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Package", "Version", "License", "Severity", "Score").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return listDimStyle.Bold(true)
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return listNormalStyle
		})
	b.WriteString(t.Render())
	b.WriteString("\n\n")

	if len(m.Report.Packages) > 0 {
		b.WriteString(m.detailView(m.Report.Packages[m.Cursor]))
	}
	return b.String()
}

// detailView renders the analysis breakdown for one package.
func (m PackageListModel) detailView(r scan.PackageRecord) string {
	var b strings.Builder

	b.WriteString(StyleHighlight.Render(r.Name + "@" + r.Version))
	b.WriteString("\n")
	if r.License.Reason != "" {
		b.WriteString(listDimStyle.Render(r.License.Reason))
		b.WriteString("\n")
	}

	dims := r.Score.Dimensions
	b.WriteString(listDimStyle.Render(fmt.Sprintf(
		"age %.2f · deprecation %.2f · license %.2f · vulnerability %.2f · popularity %.2f",
		dims.Age, dims.Deprecation, dims.License, dims.Vulnerability, dims.Popularity)))
	b.WriteString("\n")

	if flags := recordFlags(r); len(flags) > 0 {
		b.WriteString(StyleWarning.Render(strings.Join(flags, ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

// browseReport runs the interactive report browser until the user quits.
func browseReport(report *scan.Report) error {
	_, err := tea.NewProgram(NewPackageListModel(report)).Run()
	return err
}
