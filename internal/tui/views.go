package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dstern/pledgematch/internal/format"
	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/rules"
	"github.com/dstern/pledgematch/internal/session"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.spin.View() + " loading queue..."
	}

	left := m.renderQueue()
	right := m.renderWizard()

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusLine())
}

func (m Model) paneWidth() (queueW, wizardW int) {
	w := m.width
	if w < 60 {
		w = 120
	}
	queueW = w * 2 / 5
	wizardW = w - queueW - 6
	return queueW, wizardW
}

func (m Model) renderQueue() string {
	queueW, _ := m.paneWidth()
	var b strings.Builder

	counts := m.ctrl.Counts()
	filter := m.ctrl.Filter()
	b.WriteString(titleStyle.Render("Payment Imports"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("filter: %s (%d)", filter, counts[filter])))
	b.WriteString("\n\n")

	imports := m.ctrl.Imports()
	selectedID := m.ctrl.SelectedID()
	if len(imports) == 0 {
		b.WriteString(dimStyle.Render("no imports for this filter"))
	}
	for _, imp := range imports {
		marker := "  "
		line := fmt.Sprintf("%s  %s  %s",
			format.Date(imp.PaymentDate),
			format.Currency(imp.Amount),
			imp.DonorName(),
		)
		if imp.ID == selectedID {
			marker = cursorStyle.Render("> ")
			line = cursorStyle.Render(line)
		}
		b.WriteString(marker + line + "  " + format.StatusBadge(imp.Status) + "\n")
	}

	b.WriteString("\n")
	for _, st := range model.AllStatuses {
		b.WriteString(format.StatusStyle(st).Render(fmt.Sprintf("%s %d", st, counts[st])))
		b.WriteString("  ")
	}

	style := paneStyle
	if m.activePanel == panelNone {
		style = activePaneStyle
	}
	return style.Width(queueW).Render(b.String())
}

func (m Model) renderWizard() string {
	_, wizardW := m.paneWidth()
	s := m.session().Snapshot()

	var b strings.Builder
	if s.Import == nil {
		b.WriteString(dimStyle.Render("Select an import to begin reconciliation."))
		return paneStyle.Width(wizardW).Render(b.String())
	}

	imp := s.Import
	b.WriteString(titleStyle.Render(imp.DonorName()))
	b.WriteString("  " + format.Currency(imp.Amount) + "  " + format.Date(imp.PaymentDate))
	if imp.Email != "" {
		b.WriteString("\n" + dimStyle.Render(imp.Email))
	}
	b.WriteString("\n" + format.StatusBadge(imp.Status) + "\n\n")

	if imp.Status.Terminal() {
		b.WriteString(dimStyle.Render("This import is already resolved."))
		return paneStyle.Width(wizardW).Render(b.String())
	}

	b.WriteString(m.renderSteps(s.Step))
	b.WriteString("\n\n")

	switch m.activePanel {
	case panelManualSearch:
		b.WriteString(m.renderManualSearch(s))
	case panelCreatePledge:
		b.WriteString(m.renderCreatePledge(s))
	default:
		switch s.Step {
		case session.StepMatchHousehold:
			b.WriteString(m.renderMatchStep(s))
		case session.StepCheckDuplicate:
			b.WriteString(m.renderDuplicateStep(s))
		case session.StepApplyPledge:
			b.WriteString(m.renderPledgeStep(s))
		}
	}

	style := paneStyle
	if m.activePanel != panelNone {
		style = activePaneStyle
	}
	return style.Width(wizardW).Render(b.String())
}

func (m Model) renderSteps(active session.Step) string {
	steps := []session.Step{
		session.StepMatchHousehold,
		session.StepCheckDuplicate,
		session.StepApplyPledge,
	}
	parts := make([]string, 0, len(steps))
	for _, st := range steps {
		if st == active {
			parts = append(parts, stepActiveStyle.Render(st.Label()))
		} else {
			parts = append(parts, dimStyle.Render(st.Label()))
		}
	}
	return strings.Join(parts, dimStyle.Render("  >  "))
}

func (m Model) renderMatchStep(s session.Session) string {
	var b strings.Builder
	if len(s.HouseholdMatches) == 0 {
		b.WriteString(dimStyle.Render("No candidate households. Press / to search manually, or s to skip."))
		return b.String()
	}

	for i, c := range s.HouseholdMatches {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%s  %s", c.Name, format.Confidence(c.Confidence))
		if c.Email != "" {
			line += "  " + dimStyle.Render(c.Email)
		}
		if c.ID == s.SelectedHouseholdID {
			line += "  " + selectedStyle.Render("[selected]")
		}
		b.WriteString(marker + line + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("Enter select · c confirm · / manual search · s skip"))
	return b.String()
}

func (m Model) renderDuplicateStep(s session.Session) string {
	var b strings.Builder
	if len(s.ExistingPayments) == 0 {
		b.WriteString(okStyle.Render("No payments recorded near this date."))
		b.WriteString("\n")
	}
	for _, p := range s.ExistingPayments {
		line := fmt.Sprintf("  %s  %s  %d days away",
			format.Date(p.PaymentDate), format.Currency(p.Amount), p.DaysDifference)
		if rules.IsPotentialDuplicate(p, *s.Import) {
			line += "  " + warnStyle.Render("possible duplicate")
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("d mark duplicate · n not a duplicate · b back · s skip"))
	return b.String()
}

func (m Model) renderPledgeStep(s session.Session) string {
	var b strings.Builder
	if len(s.Pledges) == 0 {
		b.WriteString(dimStyle.Render("No open pledges for this household. Press N to create one."))
		b.WriteString("\n")
	}
	for i, p := range s.Pledges {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%s  %s of %s outstanding",
			p.CampaignName, format.Currency(p.AmountOutstanding), format.Currency(p.Amount))
		if !rules.CanApplyToPledge(p, *s.Import) {
			line += "  " + warnStyle.Render("too small")
		}
		if p.ID == s.SelectedPledgeID {
			line += "  " + selectedStyle.Render("[selected]")
		}
		b.WriteString(marker + line + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("Enter select · p apply payment · N new pledge · b back · s skip"))
	return b.String()
}

func (m Model) renderManualSearch(s session.Session) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Manual household search"))
	b.WriteString("\n" + m.searchInput.View() + "\n\n")
	for i, c := range s.ManualResults {
		marker := "  "
		if i == m.panelCursor {
			marker = cursorStyle.Render("> ")
		}
		line := c.Name
		if c.Email != "" {
			line += "  " + dimStyle.Render(c.Email)
		}
		b.WriteString(marker + line + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("Enter select · Esc close"))
	return b.String()
}

func (m Model) renderCreatePledge(s session.Session) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Create pledge"))
	b.WriteString("\n\nCampaign: ")
	if s.SelectedCampaignName != "" {
		b.WriteString(selectedStyle.Render(s.SelectedCampaignName))
	} else {
		b.WriteString(dimStyle.Render("none selected"))
	}
	b.WriteString("\n" + m.searchInput.View() + "\n")
	for i, c := range s.CampaignResults {
		marker := "  "
		if i == m.panelCursor {
			marker = cursorStyle.Render("> ")
		}
		b.WriteString(marker + c.DisplayName() + "\n")
	}
	b.WriteString("\nPledge date: " + m.dateInput.View() + "\n")
	b.WriteString("\n" + helpStyle.Render("Tab switch field · Enter select/create · Esc close"))
	return b.String()
}

func (m Model) renderStatusLine() string {
	var parts []string
	if m.session().Loading() {
		parts = append(parts, m.spin.View()+" working...")
	}
	if m.toast != "" {
		if m.toastIsErr {
			parts = append(parts, warnStyle.Render(m.toast))
		} else {
			parts = append(parts, okStyle.Render(m.toast))
		}
	}
	parts = append(parts, helpStyle.Render("↑/↓ queue · f filter · r refresh · q quit"))
	return " " + strings.Join(parts, "   ")
}
