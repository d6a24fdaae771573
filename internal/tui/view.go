package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/activitytracker/internal/constants"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string

	switch m.state {
	case constants.StateEntries:
		content = m.entryList.View()
	case constants.StateSummary:
		content = m.summaryModel.View()
	case constants.StateAdding, constants.StateConfirmation:
		content = m.form.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewHeader(),
		docStyle.Render(content),
		m.viewStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) viewHeader() string {
	current := m.state
	if current == constants.StateAdding || current == constants.StateConfirmation {
		current = m.previousState
	}

	var tabs []string
	for i, title := range []string{"Entries", "Summary"} {
		if current == constants.SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}

	info := fmt.Sprintf("%s · %d entries", m.vm.StoreURI(), m.entryList.Len())
	if owner := m.vm.OwnerLabel(); owner != "" {
		info = owner + " · " + info
	}
	parts := []string{lipgloss.JoinHorizontal(lipgloss.Top, tabs...), headerStyle.Render(info)}
	if m.dirty {
		parts = append(parts, warningStyle.Render("● unsaved"))
	}
	if m.validationWarning != "" {
		parts = append(parts, warningStyle.Render(m.validationWarning))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) viewStatus() string {
	if m.status.Text == "" {
		return ""
	}
	if m.status.Error {
		return dangerStyle.Render(m.status.Text)
	}
	return statusStyle.Render(m.status.Text)
}
