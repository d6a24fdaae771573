package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/event"
	"github.com/julianstephens/activitytracker/internal/tui/components/entries"
	"github.com/julianstephens/activitytracker/internal/tui/components/summary"
	"github.com/julianstephens/activitytracker/internal/utils"
	"github.com/julianstephens/activitytracker/internal/validation"
	"github.com/julianstephens/activitytracker/internal/viewmodel"
)

type EntryFormModel struct {
	Activity string
	Start    string
	Stop     string
	Notes    string
}

type ConfirmationFormModel struct {
	Confirmed bool
}

// modelEventMsg carries a model.events notification into the update loop
type modelEventMsg struct {
	Event event.Event
}

type Model struct {
	vm                *viewmodel.ViewModel
	state             constants.SessionState
	previousState     constants.SessionState
	keys              KeyMap
	help              help.Model
	entryList         entries.Model
	summaryModel      summary.Model
	form              *huh.Form
	entryForm         *EntryFormModel
	confirmForm       *ConfirmationFormModel
	pendingAction     func() tea.Cmd
	status            constants.StatusMsg
	validationWarning string
	dirty             bool
	quitting          bool
	width             int
	height            int
	events            chan event.Event
	subscription      string
}

// New builds the TUI over vm and subscribes to its model events. The
// dispatcher must be running for external changes to show up.
func New(vm *viewmodel.ViewModel) Model {
	events := make(chan event.Event, 64)
	id := vm.Subscribe(constants.EventsModel, func(e event.Event) {
		select {
		case events <- e:
		default:
		}
	})

	m := Model{
		vm:           vm,
		state:        constants.StateEntries,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		entryList:    entries.New(nil, 0, 0),
		summaryModel: summary.New(0, 0),
		events:       events,
		subscription: id,
	}
	m.refresh()
	return m
}

// Close drops the event subscription
func (m Model) Close() {
	m.vm.Dispatcher().Unsubscribe(m.subscription)
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(ch <-chan event.Event) tea.Cmd {
	return func() tea.Msg {
		return modelEventMsg{Event: <-ch}
	}
}

func confirm(message string, action func() tea.Cmd) tea.Cmd {
	return func() tea.Msg {
		return constants.ConfirmationMsg{Message: message, Action: action}
	}
}

// refresh re-reads entries and totals from the viewmodel
func (m *Model) refresh() {
	m.entryList.SetEntries(m.vm.Entries())
	m.summaryModel.SetTotals(m.vm.Summary())
	m.updateValidationStatus()
}

// updateValidationStatus runs validation and updates the warning message
func (m *Model) updateValidationStatus() {
	result := validation.NewWith(m.vm.Timestamps()).ValidateEntries(m.vm.Entries())
	if result.HasConflicts() {
		m.validationWarning = fmt.Sprintf("⚠ %d validation warning(s)", len(result.Conflicts))
	} else {
		m.validationWarning = ""
	}
}

func (m *Model) applyEvent(e event.Event) {
	switch e.Type {
	case constants.EventEntryAdded:
		m.dirty = true
	case constants.EventModelSaved, constants.EventModelLoaded, constants.EventModelChanged:
		m.dirty = false
	}
	if e.Type == constants.EventModelChanged {
		m.status = constants.StatusMsg{Text: "Store changed on disk, reloaded"}
	}
	m.refresh()
}

func (m *Model) save() {
	if err := m.vm.Save(""); err != nil {
		m.status = constants.StatusMsg{Text: "Save failed: " + err.Error(), Error: true}
		return
	}
	m.dirty = false
	m.status = constants.StatusMsg{Text: fmt.Sprintf("Saved %d entries to %s", len(m.vm.Entries()), m.vm.StoreURI())}
}

func (m *Model) reload() {
	if err := m.vm.Reload(); err != nil {
		m.status = constants.StatusMsg{Text: "Reload failed: " + err.Error(), Error: true}
		return
	}
	m.dirty = false
	m.refresh()
	m.status = constants.StatusMsg{Text: "Reloaded from " + m.vm.StoreURI()}
}

func (m *Model) openEntryForm() {
	m.entryForm = &EntryFormModel{}
	m.form = NewEntryForm(m.entryForm, m.vm.Timestamps())
	m.previousState = m.state
	m.state = constants.StateAdding
}

func (m *Model) openConfirmation(msg constants.ConfirmationMsg) {
	m.confirmForm = &ConfirmationFormModel{}
	m.pendingAction = msg.Action
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(msg.Message).
				Affirmative("Yes").
				Negative("No").
				Value(&m.confirmForm.Confirmed),
		),
	).WithTheme(huh.ThemeDracula())
	if m.state != constants.StateAdding && m.state != constants.StateConfirmation {
		m.previousState = m.state
	}
	m.state = constants.StateConfirmation
}

// NewEntryForm creates the add-entry form. Blank timestamps take the
// usual defaults when the entry is built.
func NewEntryForm(fm *EntryFormModel, ts *utils.Timestamps) *huh.Form {
	optionalTimestamp := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return ts.ValidateText(strings.TrimSpace(s))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Activity").
				Value(&fm.Activity),
			huh.NewInput().
				Title("Start").
				Description("YYYY-MM-DDTHH:MM:SS, blank for now").
				Value(&fm.Start).
				Validate(optionalTimestamp),
			huh.NewInput().
				Title("Stop").
				Description(fmt.Sprintf("blank for start + %.0f min", ts.DefaultDuration(utils.Minutes))).
				Value(&fm.Stop).
				Validate(optionalTimestamp),
			huh.NewText().
				Title("Notes").
				Value(&fm.Notes),
		),
	).WithTheme(huh.ThemeDracula())
}
