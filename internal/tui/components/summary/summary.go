package summary

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/activitytracker/internal/viewmodel"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Width(30)

	hoursStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Width(10)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

type Model struct {
	viewport viewport.Model
	totals   []viewmodel.ActivityTotal
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.totals) == 0 {
		return "No activities recorded yet."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

func (m *Model) SetTotals(totals []viewmodel.ActivityTotal) {
	m.totals = totals
	m.Render()
}

func (m *Model) Render() {
	var b strings.Builder
	var total float64
	for _, t := range m.totals {
		label := t.Activity
		if label == "" {
			label = "(unlabelled)"
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			labelStyle.Render(label),
			hoursStyle.Render(fmt.Sprintf("%.2f h", t.Hours)),
			countStyle.Render(fmt.Sprintf("%d entries", t.Entries)),
		)
		total += t.Hours
	}
	fmt.Fprintf(&b, "\n%s %s\n", labelStyle.Render("Total"), hoursStyle.Render(fmt.Sprintf("%.2f h", total)))
	m.viewport.SetContent(b.String())
}
