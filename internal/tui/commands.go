package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dstern/pledgematch/internal/queue"
)

// actionTimeout bounds every remote call made from the UI.
const actionTimeout = 30 * time.Second

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return queueRefreshedMsg{err: m.ctrl.Refresh(ctx)}
	}
}

func (m Model) moveCmd(dir queue.Direction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return itemSelectedMsg{err: m.ctrl.MoveRelative(ctx, dir)}
	}
}

func (m Model) cycleFilterCmd() tea.Cmd {
	current := m.ctrl.Filter()
	next := filterCycle[0]
	for i, st := range filterCycle {
		if st == current {
			next = filterCycle[(i+1)%len(filterCycle)]
			break
		}
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return queueRefreshedMsg{err: m.ctrl.SetFilter(ctx, next)}
	}
}

// actionCmd runs a workflow action and reports its outcome with the toast
// label to show on success.
func (m Model) actionCmd(label string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{label: label, err: fn(ctx)}
	}
}

func (m Model) searchHouseholdsCmd(term string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return searchDoneMsg{err: m.session().SearchHouseholds(ctx, term)}
	}
}

func (m Model) searchCampaignsCmd(term string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return searchDoneMsg{err: m.session().SearchCampaigns(ctx, term)}
	}
}
