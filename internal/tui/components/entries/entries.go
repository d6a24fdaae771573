package entries

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/activitytracker/internal/models"
)

// AddEntryMsg asks the parent model to open the add form
type AddEntryMsg struct{}

type KeyMap struct {
	Add key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add entry"),
		),
	}
}

type Model struct {
	table table.Model
	keys  KeyMap
	count int
}

func columns(width int) []table.Column {
	// Fixed columns for the timestamps and hours; the rest is shared
	rest := width - 2*20 - 8 - 8
	if rest < 20 {
		rest = 20
	}
	return []table.Column{
		{Title: "Start", Width: 20},
		{Title: "Stop", Width: 20},
		{Title: "Hours", Width: 8},
		{Title: "Activity", Width: rest / 2},
		{Title: "Notes", Width: rest - rest/2},
	}
}

func New(entries []models.ActivityEntry, width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := Model{table: t, keys: DefaultKeyMap()}
	m.SetEntries(entries)
	return m
}

// SetEntries replaces the rows and moves the cursor to the newest entry
func (m *Model) SetEntries(entries []models.ActivityEntry) {
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		hours := fmt.Sprintf("%.2f", e.Duration())
		if e.IsNegative() {
			hours += "!"
		}
		rows[i] = table.Row{e.Start(), e.Stop(), hours, e.Activity(), e.Notes()}
	}
	m.table.SetRows(rows)
	m.count = len(rows)
	if m.count > 0 {
		m.table.SetCursor(m.count - 1)
	}
}

// Len returns the number of rows shown
func (m Model) Len() int { return m.count }

// Selected returns the row under the cursor
func (m Model) Selected() table.Row { return m.table.SelectedRow() }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Add) {
		return m, func() tea.Msg { return AddEntryMsg{} }
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.count == 0 {
		return "\n  No entries yet.\n  Press 'a' to add one."
	}
	return m.table.View()
}

func (m *Model) SetSize(width, height int) {
	m.table.SetColumns(columns(width))
	m.table.SetWidth(width)
	m.table.SetHeight(height)
}
