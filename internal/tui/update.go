package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/models"
	"github.com/julianstephens/activitytracker/internal/tui/components/entries"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case modelEventMsg:
		m.applyEvent(msg.Event)
		return m, waitForEvent(m.events)

	case constants.StatusMsg:
		m.status = msg
		return m, nil

	case constants.ConfirmationMsg:
		m.openConfirmation(msg)
		return m, m.form.Init()

	case entries.AddEntryMsg:
		m.openEntryForm()
		return m, m.form.Init()
	}

	switch m.state {
	case constants.StateAdding:
		return m.updateEntryForm(msg)
	case constants.StateConfirmation:
		return m.updateConfirmation(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.dirty {
				return m, confirm("Unsaved entries will be lost. Quit anyway?", func() tea.Cmd { return tea.Quit })
			}
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab), key.Matches(msg, m.keys.ShiftTab):
			if m.state == constants.StateEntries {
				m.state = constants.StateSummary
			} else {
				m.state = constants.StateEntries
			}
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Save):
			m.save()
			return m, nil
		case key.Matches(msg, m.keys.Reload):
			m.reload()
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case constants.StateEntries:
		m.entryList, cmd = m.entryList.Update(msg)
	case constants.StateSummary:
		m.summaryModel, cmd = m.summaryModel.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize() {
	// tabs, status, help and padding
	h := m.height - 8
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	m.entryList.SetSize(w, h)
	m.summaryModel.SetSize(w, h)
}

func (m Model) updateEntryForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = m.previousState
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		in := models.EntryInput{
			Start:    strings.TrimSpace(m.entryForm.Start),
			Stop:     strings.TrimSpace(m.entryForm.Stop),
			Activity: strings.TrimSpace(m.entryForm.Activity),
			Notes:    m.entryForm.Notes,
		}
		if added, err := m.vm.AddEntry(in); err != nil {
			m.status = constants.StatusMsg{Text: "Add failed: " + err.Error(), Error: true}
		} else {
			m.dirty = true
			m.refresh()
			m.status = constants.StatusMsg{Text: "Added " + added.Activity()}
		}
		m.state = m.previousState
	case huh.StateAborted:
		m.state = m.previousState
	}
	return m, cmd
}

func (m Model) updateConfirmation(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.pendingAction = nil
		m.state = m.previousState
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		if m.confirmForm.Confirmed && m.pendingAction != nil {
			cmds = append(cmds, m.pendingAction())
		}
		m.pendingAction = nil
		m.state = m.previousState
	case huh.StateAborted:
		m.pendingAction = nil
		m.state = m.previousState
	}
	return m, tea.Batch(cmds...)
}
