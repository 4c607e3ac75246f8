package session

import (
	"context"
	"sync"
	"time"

	"github.com/dstern/pledgematch/internal/common"
	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/rules"
	"github.com/dstern/pledgematch/internal/service"
)

// Manager owns the reconciliation session and enforces its legal
// transitions. All remote calls for a step run sequentially; a loading flag
// rejects re-entrant actions with ErrBusy rather than queuing them, and an
// epoch counter drops responses that arrive after the session has moved to a
// different import.
type Manager struct {
	svc     service.Reconciler
	s       Session
	epoch   uint64
	mu      sync.Mutex
	loading bool
}

// NewManager creates a workflow manager backed by the given registry service.
func NewManager(svc service.Reconciler) *Manager {
	return &Manager{svc: svc}
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.s
	if s.Import != nil {
		imp := *s.Import
		s.Import = &imp
	}
	return s
}

// Loading reports whether a remote call for the current step is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Reset discards the session entirely. Any in-flight responses for the old
// import are dropped when they land.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.s = Session{}
	m.loading = false
}

// Start loads an import into a fresh session and enters the step implied by
// its status: New imports start on household matching with candidates
// fetched eagerly; already-matched imports jump to duplicate screening with
// the known household pre-selected; terminal imports open inert.
//
// Start supersedes whatever the session was doing: it bumps the epoch so a
// previous step's delayed response is ignored when it arrives.
func (m *Manager) Start(ctx context.Context, imp model.PaymentImport) error {
	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	cp := imp
	m.s = Session{Import: &cp, Step: StepMatchHousehold}

	switch imp.Status {
	case model.StatusNew:
		m.loading = true
		m.mu.Unlock()
		matches, err := m.svc.FindHouseholdCandidates(ctx, imp.Email, imp.FirstName, imp.LastName)
		return m.applyHouseholdMatches(epoch, matches, err)

	case model.StatusContactMatched:
		m.s.Step = StepCheckDuplicate
		m.s.SelectedHouseholdID = imp.MatchedHouseholdID
		m.loading = true
		m.mu.Unlock()
		payments, err := m.svc.ListExistingPayments(ctx, imp.MatchedHouseholdID, imp.PaymentDate, imp.Amount)
		return m.applyExistingPayments(epoch, payments, err)

	default:
		m.loading = false
		m.mu.Unlock()
		return nil
	}
}

func (m *Manager) applyHouseholdMatches(epoch uint64, matches []model.HouseholdCandidate, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return common.ErrStaleResponse
	}
	m.loading = false
	if err != nil {
		return common.NewRemoteError("finding households", err)
	}
	m.s.HouseholdMatches = matches
	if id, ok := rules.AutoSelect(matches); ok {
		m.s.SelectedHouseholdID = id
	}
	return nil
}

func (m *Manager) applyExistingPayments(epoch uint64, payments []model.ExistingPayment, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return common.ErrStaleResponse
	}
	m.loading = false
	if err != nil {
		return common.NewRemoteError("loading payments", err)
	}
	m.s.ExistingPayments = payments
	return nil
}

func (m *Manager) applyPledges(epoch uint64, pledges []model.PledgeCandidate, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return common.ErrStaleResponse
	}
	m.loading = false
	if err != nil {
		return common.NewRemoteError("loading pledges", err)
	}
	m.s.Pledges = pledges
	return nil
}

// beginRemote acquires the loading flag for a step action. It fails when no
// import is active or another action is still in flight.
func (m *Manager) beginRemote(step Step) (uint64, Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.Import == nil {
		return 0, Session{}, common.ErrNoSelection
	}
	if m.loading {
		return 0, Session{}, common.ErrBusy
	}
	if step != "" && m.s.Step != step {
		return 0, Session{}, common.NewValidationError("action not available on this step")
	}
	m.loading = true
	snap := m.s
	imp := *snap.Import
	snap.Import = &imp
	return m.epoch, snap, nil
}

// SelectHousehold records the operator's choice from the candidate list,
// overriding any auto-selection.
func (m *Manager) SelectHousehold(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.Import == nil {
		return common.ErrNoSelection
	}
	if m.loading {
		return common.ErrBusy
	}
	if m.s.Step != StepMatchHousehold {
		return common.NewValidationError("household selection is only available on the matching step")
	}
	for _, c := range m.s.HouseholdMatches {
		if c.ID == id {
			m.s.SelectedHouseholdID = id
			return nil
		}
	}
	return common.NewValidationError("unknown household %q", id)
}

// ToggleManualSearch shows or hides the manual household search panel.
func (m *Manager) ToggleManualSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.ShowManualSearch = !m.s.ShowManualSearch
	if !m.s.ShowManualSearch {
		m.s.ManualResults = nil
	}
}

// SearchHouseholds runs the manual household search. Terms below the minimum
// length clear the results without querying the registry.
func (m *Manager) SearchHouseholds(ctx context.Context, term string) error {
	m.mu.Lock()
	if m.s.Import == nil {
		m.mu.Unlock()
		return common.ErrNoSelection
	}
	epoch := m.epoch
	if !rules.ShouldSearch(term) {
		m.s.ManualResults = nil
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	results, err := m.svc.SearchHouseholds(ctx, term)

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return common.ErrStaleResponse
	}
	if err != nil {
		return common.NewRemoteError("searching households", err)
	}
	m.s.ManualResults = results
	return nil
}

// SelectManualHousehold sets the matched household directly from a manual
// search result and closes the panel.
func (m *Manager) SelectManualHousehold(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.Import == nil {
		return common.ErrNoSelection
	}
	if m.loading {
		return common.ErrBusy
	}
	if id == "" {
		return common.NewValidationError("no household selected")
	}
	m.s.SelectedHouseholdID = id
	m.s.ShowManualSearch = false
	m.s.ManualResults = nil
	return nil
}

// ConfirmHousehold persists the selected household match, merges the updated
// record into the session, and advances to duplicate screening with stage-2
// data loaded eagerly. On a remote failure the session stays on the matching
// step untouched.
func (m *Manager) ConfirmHousehold(ctx context.Context) error {
	epoch, snap, err := m.beginRemote(StepMatchHousehold)
	if err != nil {
		return err
	}
	if snap.SelectedHouseholdID == "" {
		m.release(epoch)
		return common.NewValidationError("select a household before confirming")
	}

	updated, err := m.svc.ConfirmHouseholdMatch(ctx, snap.Import.ID, snap.SelectedHouseholdID)

	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		return common.ErrStaleResponse
	}
	m.loading = false
	if err != nil {
		m.mu.Unlock()
		return common.NewRemoteError("matching household", err)
	}

	merged := *updated
	if merged.MatchedHouseholdID == "" {
		merged.MatchedHouseholdID = snap.SelectedHouseholdID
	}
	m.s.Import = &merged
	m.s.Step = StepCheckDuplicate

	// Forward entry: discard anything accumulated in later steps.
	m.s.ExistingPayments = nil
	m.clearPledgeStepLocked()

	m.loading = true
	m.mu.Unlock()

	payments, err := m.svc.ListExistingPayments(ctx, merged.MatchedHouseholdID, merged.PaymentDate, merged.Amount)
	return m.applyExistingPayments(epoch, payments, err)
}

// ProceedNotDuplicate advances from duplicate screening to pledge
// application, discarding all stage-3 state before entry.
func (m *Manager) ProceedNotDuplicate(ctx context.Context) error {
	epoch, snap, err := m.beginRemote(StepCheckDuplicate)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.clearPledgeStepLocked()
	m.s.Step = StepApplyPledge
	m.mu.Unlock()

	imp := snap.Import
	pledges, err := m.svc.ListUnpaidPledges(ctx, imp.MatchedHouseholdID, imp.PaymentDate, imp.IsMembership, imp.Amount)
	return m.applyPledges(epoch, pledges, err)
}

// Back navigates one step backwards without refetching: the prior step's
// candidate sets are still cached.
func (m *Manager) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.Import == nil {
		return common.ErrNoSelection
	}
	if m.loading {
		return common.ErrBusy
	}
	switch m.s.Step {
	case StepCheckDuplicate:
		m.s.Step = StepMatchHousehold
	case StepApplyPledge:
		m.s.Step = StepCheckDuplicate
	}
	return nil
}

// SelectPledge records the operator's pledge choice. Pledges without enough
// outstanding to absorb the payment are rejected with no state change.
func (m *Manager) SelectPledge(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.Import == nil {
		return common.ErrNoSelection
	}
	if m.loading {
		return common.ErrBusy
	}
	if m.s.Step != StepApplyPledge {
		return common.NewValidationError("pledge selection is only available on the pledge step")
	}
	for _, p := range m.s.Pledges {
		if p.ID == id {
			if !rules.CanApplyToPledge(p, *m.s.Import) {
				return common.NewValidationError("pledge outstanding amount is less than payment amount")
			}
			m.s.SelectedPledgeID = id
			return nil
		}
	}
	return common.NewValidationError("unknown pledge %q", id)
}

// ToggleCreatePledge shows or hides the create-pledge panel. Opening it
// defaults the pledge date to the import's payment date and clears any prior
// campaign search state.
func (m *Manager) ToggleCreatePledge() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.Import == nil {
		return common.ErrNoSelection
	}
	if m.s.Step != StepApplyPledge {
		return common.NewValidationError("create pledge is only available on the pledge step")
	}
	m.s.ShowCreatePledge = !m.s.ShowCreatePledge
	if m.s.ShowCreatePledge {
		m.s.PledgeDate = m.s.Import.PaymentDate
		m.s.CampaignSearchTerm = ""
		m.s.CampaignResults = nil
		m.s.SelectedCampaignID = ""
		m.s.SelectedCampaignName = ""
	}
	return nil
}

// SearchCampaigns updates the campaign search term. Each keystroke below the
// minimum length clears the results without issuing a remote call.
func (m *Manager) SearchCampaigns(ctx context.Context, term string) error {
	m.mu.Lock()
	if m.s.Import == nil {
		m.mu.Unlock()
		return common.ErrNoSelection
	}
	epoch := m.epoch
	m.s.CampaignSearchTerm = term
	if !rules.ShouldSearch(term) {
		m.s.CampaignResults = nil
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	results, err := m.svc.SearchCampaigns(ctx, term)

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return common.ErrStaleResponse
	}
	if err != nil {
		return common.NewRemoteError("searching campaigns", err)
	}
	m.s.CampaignResults = results
	return nil
}

// SelectCampaign records the campaign the new pledge will be created under.
func (m *Manager) SelectCampaign(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.Import == nil {
		return common.ErrNoSelection
	}
	for _, c := range m.s.CampaignResults {
		if c.ID == id {
			m.s.SelectedCampaignID = id
			m.s.SelectedCampaignName = c.DisplayName()
			return nil
		}
	}
	return common.NewValidationError("unknown campaign %q", id)
}

// SetPledgeDate sets the date for the pledge being created.
func (m *Manager) SetPledgeDate(d time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.PledgeDate = d
}

// MarkDuplicate flags the active import as a duplicate. Always available
// from the duplicate-screening step; the duplicate heuristic is advisory
// only.
func (m *Manager) MarkDuplicate(ctx context.Context) error {
	return m.terminal(ctx, StepCheckDuplicate, "marking duplicate", func(ctx context.Context, imp *model.PaymentImport) error {
		return m.svc.MarkDuplicate(ctx, imp.ID)
	})
}

// Skip marks the active import as skipped. Available from any step and
// requires no household selection.
func (m *Manager) Skip(ctx context.Context) error {
	return m.terminal(ctx, "", "skipping import", func(ctx context.Context, imp *model.PaymentImport) error {
		return m.svc.MarkSkipped(ctx, imp.ID)
	})
}

// ApplyToPledge creates a payment against the selected pledge and completes
// the import.
func (m *Manager) ApplyToPledge(ctx context.Context) error {
	m.mu.Lock()
	if m.s.Import != nil && !m.loading && m.s.Step == StepApplyPledge && m.s.SelectedPledgeID == "" {
		m.mu.Unlock()
		return common.NewValidationError("select a pledge before creating a payment")
	}
	pledgeID := m.s.SelectedPledgeID
	m.mu.Unlock()

	return m.terminal(ctx, StepApplyPledge, "creating payment", func(ctx context.Context, imp *model.PaymentImport) error {
		return m.svc.CreatePayment(ctx, imp.ID, pledgeID)
	})
}

// CreatePledgeAndPayment atomically creates a new pledge under the selected
// campaign and a payment against it.
func (m *Manager) CreatePledgeAndPayment(ctx context.Context) error {
	m.mu.Lock()
	campaignID := m.s.SelectedCampaignID
	pledgeDate := m.s.PledgeDate
	if m.s.Import != nil && !m.loading && m.s.Step == StepApplyPledge {
		if campaignID == "" || pledgeDate.IsZero() {
			m.mu.Unlock()
			return common.NewValidationError("a campaign and pledge date are required")
		}
	}
	m.mu.Unlock()

	return m.terminal(ctx, StepApplyPledge, "creating pledge and payment", func(ctx context.Context, imp *model.PaymentImport) error {
		return m.svc.CreatePledgeAndPayment(ctx, imp.ID, campaignID, pledgeDate)
	})
}

// terminal runs a session-ending remote mutation with the standard loading
// gate and stale-response guard. The queue controller refreshes and advances
// after it returns.
func (m *Manager) terminal(ctx context.Context, step Step, op string, call func(context.Context, *model.PaymentImport) error) error {
	epoch, snap, err := m.beginRemote(step)
	if err != nil {
		return err
	}

	err = call(ctx, snap.Import)

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return common.ErrStaleResponse
	}
	m.loading = false
	if err != nil {
		return common.NewRemoteError(op, err)
	}
	return nil
}

// release clears the loading flag acquired by beginRemote when the action
// bails out before its remote call.
func (m *Manager) release(epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch == m.epoch {
		m.loading = false
	}
}

// clearPledgeStepLocked resets everything the pledge step accumulates.
// Caller holds the mutex.
func (m *Manager) clearPledgeStepLocked() {
	m.s.Pledges = nil
	m.s.SelectedPledgeID = ""
	m.s.ShowCreatePledge = false
	m.s.CampaignSearchTerm = ""
	m.s.CampaignResults = nil
	m.s.SelectedCampaignID = ""
	m.s.SelectedCampaignName = ""
	m.s.PledgeDate = time.Time{}
}
