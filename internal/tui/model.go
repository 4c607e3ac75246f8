// Package tui is the operator surface: a filterable import queue beside the
// three-step reconciliation wizard.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dstern/pledgematch/internal/common"
	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/queue"
	"github.com/dstern/pledgematch/internal/session"
)

// panel identifies which modal panel, if any, owns keyboard input.
type panel int

const (
	panelNone panel = iota
	panelManualSearch
	panelCreatePledge
)

// filterCycle is the order the f key steps through status filters.
var filterCycle = []model.ImportStatus{
	model.StatusNew,
	model.StatusContactMatched,
	model.StatusAll,
	model.StatusCompleted,
	model.StatusDuplicate,
	model.StatusSkipped,
}

// Model holds the TUI state. Queue and session state live in their
// controllers; the model tracks cursors, panels, and the last action's
// outcome.
type Model struct {
	ctrl        *queue.Controller
	toast       string
	searchInput textinput.Model
	dateInput   textinput.Model
	keymap      KeyMap
	spin        spinner.Model
	cursor      int
	panelCursor int
	width       int
	height      int
	activePanel panel
	dateFocused bool
	toastIsErr  bool
	ready       bool
	quitting    bool
}

func newModel(ctrl *queue.Controller) Model {
	search := textinput.New()
	search.Placeholder = "type at least 2 characters"
	search.CharLimit = 64

	date := textinput.New()
	date.Placeholder = "YYYY-MM-DD"
	date.CharLimit = 10

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctrl:        ctrl,
		keymap:      DefaultKeyMap(),
		searchInput: search,
		dateInput:   date,
		spin:        sp,
	}
}

// Init loads the queue.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, m.spin.Tick, m.refreshCmd())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case queueRefreshedMsg:
		m.ready = true
		if msg.err != nil {
			return m.withErrorToast(msg.err), nil
		}
		return m, nil

	case itemSelectedMsg:
		m.cursor = 0
		m.closePanel()
		if msg.err != nil && !common.IsStale(msg.err) {
			return m.withErrorToast(msg.err), nil
		}
		return m, nil

	case actionDoneMsg:
		if common.IsStale(msg.err) {
			return m, nil
		}
		if msg.err != nil {
			return m.withErrorToast(msg.err), nil
		}
		m.toast = msg.label
		m.toastIsErr = false
		m.cursor = 0
		return m, nil

	case searchDoneMsg:
		m.panelCursor = 0
		if msg.err != nil && !common.IsStale(msg.err) {
			return m.withErrorToast(msg.err), nil
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.activePanel != panelNone {
			return m.updatePanel(msg)
		}
		return m.updateMain(msg)
	}

	return m, nil
}

func (m Model) withErrorToast(err error) Model {
	m.toast = err.Error()
	m.toastIsErr = true
	return m
}

func (m *Model) closePanel() {
	m.activePanel = panelNone
	m.panelCursor = 0
	m.dateFocused = false
	m.searchInput.Reset()
	m.searchInput.Blur()
	m.dateInput.Reset()
	m.dateInput.Blur()
}

// updateMain handles keys when no panel is open.
func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session().Snapshot()

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.QueueUp):
		return m, m.moveCmd(queue.Previous)

	case key.Matches(msg, m.keymap.QueueDown):
		return m, m.moveCmd(queue.Next)

	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keymap.Down):
		if m.cursor < m.stepListLen(s)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keymap.Select):
		return m.selectAtCursor(s)

	case key.Matches(msg, m.keymap.Confirm):
		return m, m.actionCmd("Household matched", m.ctrl.ConfirmHousehold)

	case key.Matches(msg, m.keymap.Duplicate):
		return m, m.actionCmd("Marked duplicate", m.ctrl.MarkDuplicate)

	case key.Matches(msg, m.keymap.NotDuplicate):
		return m, m.actionCmd("Not a duplicate", m.session().ProceedNotDuplicate)

	case key.Matches(msg, m.keymap.Apply):
		return m, m.actionCmd("Payment created", m.ctrl.ApplyToPledge)

	case key.Matches(msg, m.keymap.NewPledge):
		if err := m.session().ToggleCreatePledge(); err != nil {
			return m.withErrorToast(err), nil
		}
		if m.session().Snapshot().ShowCreatePledge {
			m.activePanel = panelCreatePledge
			m.searchInput.Focus()
			m.dateInput.SetValue(m.session().Snapshot().PledgeDate.Format("2006-01-02"))
		} else {
			m.closePanel()
		}
		return m, nil

	case key.Matches(msg, m.keymap.Skip):
		return m, m.actionCmd("Skipped", m.ctrl.Skip)

	case key.Matches(msg, m.keymap.Back):
		if err := m.session().Back(); err != nil {
			return m.withErrorToast(err), nil
		}
		m.cursor = 0
		return m, nil

	case key.Matches(msg, m.keymap.ManualSearch):
		if s.Import == nil || s.Step != session.StepMatchHousehold {
			return m, nil
		}
		m.session().ToggleManualSearch()
		m.activePanel = panelManualSearch
		m.searchInput.Focus()
		return m, nil

	case key.Matches(msg, m.keymap.CycleFilter):
		return m, m.cycleFilterCmd()

	case key.Matches(msg, m.keymap.Refresh):
		return m, m.refreshCmd()
	}

	return m, nil
}

// selectAtCursor applies Enter on the wizard's list for the current step.
func (m Model) selectAtCursor(s session.Session) (tea.Model, tea.Cmd) {
	switch s.Step {
	case session.StepMatchHousehold:
		if m.cursor < len(s.HouseholdMatches) {
			if err := m.session().SelectHousehold(s.HouseholdMatches[m.cursor].ID); err != nil {
				return m.withErrorToast(err), nil
			}
		}
	case session.StepApplyPledge:
		if m.cursor < len(s.Pledges) {
			if err := m.session().SelectPledge(s.Pledges[m.cursor].ID); err != nil {
				return m.withErrorToast(err), nil
			}
		}
	}
	return m, nil
}

// updatePanel handles keys while a modal panel owns input: list navigation
// moves the result cursor, Enter selects, Esc closes, anything else feeds
// the focused text input and may trigger a search.
func (m Model) updatePanel(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session().Snapshot()

	switch {
	case key.Matches(msg, m.keymap.ClosePanel):
		if m.activePanel == panelManualSearch {
			m.session().ToggleManualSearch()
		} else if s.ShowCreatePledge {
			if err := m.session().ToggleCreatePledge(); err != nil {
				return m.withErrorToast(err), nil
			}
		}
		m.closePanel()
		return m, nil

	case msg.String() == "up":
		if m.panelCursor > 0 {
			m.panelCursor--
		}
		return m, nil

	case msg.String() == "down":
		if m.panelCursor < m.panelListLen(s)-1 {
			m.panelCursor++
		}
		return m, nil

	case msg.String() == "tab" && m.activePanel == panelCreatePledge:
		m.dateFocused = !m.dateFocused
		if m.dateFocused {
			m.searchInput.Blur()
			m.dateInput.Focus()
		} else {
			m.dateInput.Blur()
			m.searchInput.Focus()
		}
		return m, nil

	case msg.String() == "enter":
		return m.submitPanel(s)
	}

	if m.activePanel == panelCreatePledge && m.dateFocused {
		var cmd tea.Cmd
		m.dateInput, cmd = m.dateInput.Update(msg)
		return m, cmd
	}

	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	term := m.searchInput.Value()
	if term == before {
		return m, cmd
	}

	// Every keystroke re-runs the search; short terms clear results without
	// a remote call, which the manager enforces.
	if m.activePanel == panelManualSearch {
		return m, tea.Batch(cmd, m.searchHouseholdsCmd(term))
	}
	return m, tea.Batch(cmd, m.searchCampaignsCmd(term))
}

func (m Model) submitPanel(s session.Session) (tea.Model, tea.Cmd) {
	switch m.activePanel {
	case panelManualSearch:
		if m.panelCursor < len(s.ManualResults) {
			if err := m.session().SelectManualHousehold(s.ManualResults[m.panelCursor].ID); err != nil {
				return m.withErrorToast(err), nil
			}
			m.closePanel()
		}
		return m, nil

	case panelCreatePledge:
		if m.dateFocused {
			date, err := time.Parse("2006-01-02", m.dateInput.Value())
			if err != nil {
				return m.withErrorToast(common.NewValidationError("pledge date must be YYYY-MM-DD")), nil
			}
			m.session().SetPledgeDate(date)
			m.closePanel()
			return m, m.actionCmd("Pledge and payment created", m.ctrl.CreatePledgeAndPayment)
		}
		if m.panelCursor < len(s.CampaignResults) {
			if err := m.session().SelectCampaign(s.CampaignResults[m.panelCursor].ID); err != nil {
				return m.withErrorToast(err), nil
			}
			// Move on to the date field.
			m.dateFocused = true
			m.searchInput.Blur()
			m.dateInput.Focus()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) session() *session.Manager {
	return m.ctrl.Session()
}

// stepListLen is the length of the list the wizard cursor ranges over.
func (m Model) stepListLen(s session.Session) int {
	switch s.Step {
	case session.StepMatchHousehold:
		return len(s.HouseholdMatches)
	case session.StepCheckDuplicate:
		return len(s.ExistingPayments)
	case session.StepApplyPledge:
		return len(s.Pledges)
	}
	return 0
}

func (m Model) panelListLen(s session.Session) int {
	if m.activePanel == panelManualSearch {
		return len(s.ManualResults)
	}
	return len(s.CampaignResults)
}
