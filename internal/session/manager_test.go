package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstern/pledgematch/internal/common"
	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/service"
)

func newImport(status model.ImportStatus) model.PaymentImport {
	return model.PaymentImport{
		ID:          "imp-1",
		FirstName:   "Dana",
		LastName:    "Stern",
		Email:       "dana@example.com",
		Amount:      250.00,
		PaymentDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:      status,
	}
}

func TestStartNewImportFetchesCandidates(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.FindHouseholdCandidatesFn = func(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error) {
		assert.Equal(t, "dana@example.com", email)
		return []model.HouseholdCandidate{
			{ID: "hh-1", Name: "Stern Household", Confidence: 95},
			{ID: "hh-2", Name: "Sterner Household", Confidence: 40},
		}, nil
	}
	mgr := NewManager(mock)

	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusNew)))

	s := mgr.Snapshot()
	assert.Equal(t, StepMatchHousehold, s.Step)
	assert.Len(t, s.HouseholdMatches, 2)
	assert.Equal(t, "hh-1", s.SelectedHouseholdID, "high-confidence top candidate should be auto-selected")
	assert.False(t, mgr.Loading())
}

func TestStartNewImportNoAutoSelectBelowThreshold(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.FindHouseholdCandidatesFn = func(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error) {
		return []model.HouseholdCandidate{{ID: "hh-1", Confidence: 79.9}}, nil
	}
	mgr := NewManager(mock)

	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusNew)))
	assert.Empty(t, mgr.Snapshot().SelectedHouseholdID)
}

func TestStartContactMatchedEntersDuplicateStep(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListExistingPaymentsFn = func(ctx context.Context, householdID string, paymentDate time.Time, amount float64) ([]model.ExistingPayment, error) {
		assert.Equal(t, "hh-9", householdID)
		return []model.ExistingPayment{{ID: "pay-1", Amount: 250, DaysDifference: 2}}, nil
	}
	mgr := NewManager(mock)

	imp := newImport(model.StatusContactMatched)
	imp.MatchedHouseholdID = "hh-9"
	require.NoError(t, mgr.Start(context.Background(), imp))

	s := mgr.Snapshot()
	assert.Equal(t, StepCheckDuplicate, s.Step)
	assert.Equal(t, "hh-9", s.SelectedHouseholdID)
	assert.Len(t, s.ExistingPayments, 1)
	assert.Equal(t, 0, mock.CallCount("FindHouseholdCandidates"))
}

func TestStartTerminalImportIsInert(t *testing.T) {
	mock := service.NewMockReconciler()
	mgr := NewManager(mock)

	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusCompleted)))

	assert.Equal(t, 0, mock.CallCount("FindHouseholdCandidates"))
	assert.Equal(t, 0, mock.CallCount("ListExistingPayments"))
	assert.False(t, mgr.Loading())
}

func TestConfirmHouseholdAdvancesAndLoadsPayments(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.FindHouseholdCandidatesFn = func(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error) {
		return []model.HouseholdCandidate{{ID: "hh-1", Confidence: 95}}, nil
	}
	mgr := NewManager(mock)
	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusNew)))

	require.NoError(t, mgr.ConfirmHousehold(context.Background()))

	s := mgr.Snapshot()
	assert.Equal(t, StepCheckDuplicate, s.Step)
	assert.Equal(t, model.StatusContactMatched, s.Import.Status)
	assert.Equal(t, "hh-1", s.Import.MatchedHouseholdID)
	assert.Equal(t, 1, mock.CallCount("ConfirmHouseholdMatch"))
	assert.Equal(t, 1, mock.CallCount("ListExistingPayments"))
}

func TestConfirmHouseholdRequiresSelection(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.FindHouseholdCandidatesFn = func(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error) {
		return nil, nil
	}
	mgr := NewManager(mock)
	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusNew)))

	err := mgr.ConfirmHousehold(context.Background())
	assert.True(t, common.IsValidation(err))
	assert.Equal(t, 0, mock.CallCount("ConfirmHouseholdMatch"))
	assert.False(t, mgr.Loading(), "failed validation must release the loading gate")
}

func TestConfirmHouseholdRemoteFailureStaysOnStep(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.FindHouseholdCandidatesFn = func(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error) {
		return []model.HouseholdCandidate{{ID: "hh-1", Confidence: 95}}, nil
	}
	mock.ConfirmHouseholdMatchFn = func(ctx context.Context, importID, householdID string) (*model.PaymentImport, error) {
		return nil, errors.New("boom")
	}
	mgr := NewManager(mock)
	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusNew)))

	err := mgr.ConfirmHousehold(context.Background())
	require.Error(t, err)

	s := mgr.Snapshot()
	assert.Equal(t, StepMatchHousehold, s.Step)
	assert.Equal(t, model.StatusNew, s.Import.Status)
	assert.False(t, mgr.Loading())
}

func TestProceedNotDuplicateClearsPledgeState(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListUnpaidPledgesFn = func(ctx context.Context, householdID string, paymentDate time.Time, isMembership bool, amount float64) ([]model.PledgeCandidate, error) {
		return []model.PledgeCandidate{{ID: "pl-1", Amount: 500, AmountOutstanding: 300}}, nil
	}
	mgr := NewManager(mock)
	imp := newImport(model.StatusContactMatched)
	imp.MatchedHouseholdID = "hh-1"
	require.NoError(t, mgr.Start(context.Background(), imp))

	require.NoError(t, mgr.ProceedNotDuplicate(context.Background()))
	require.NoError(t, mgr.SelectPledge("pl-1"))
	assert.Equal(t, "pl-1", mgr.Snapshot().SelectedPledgeID)

	// Going back and forward again must not preserve the stale selection.
	require.NoError(t, mgr.Back())
	require.NoError(t, mgr.ProceedNotDuplicate(context.Background()))

	s := mgr.Snapshot()
	assert.Equal(t, StepApplyPledge, s.Step)
	assert.Empty(t, s.SelectedPledgeID)
	assert.Equal(t, 2, mock.CallCount("ListUnpaidPledges"))
}

func TestBackDoesNotRefetch(t *testing.T) {
	mock := service.NewMockReconciler()
	mgr := NewManager(mock)
	imp := newImport(model.StatusContactMatched)
	imp.MatchedHouseholdID = "hh-1"
	require.NoError(t, mgr.Start(context.Background(), imp))
	require.NoError(t, mgr.ProceedNotDuplicate(context.Background()))

	payments := mock.CallCount("ListExistingPayments")
	candidates := mock.CallCount("FindHouseholdCandidates")

	require.NoError(t, mgr.Back())
	assert.Equal(t, StepCheckDuplicate, mgr.Snapshot().Step)
	require.NoError(t, mgr.Back())
	assert.Equal(t, StepMatchHousehold, mgr.Snapshot().Step)

	assert.Equal(t, payments, mock.CallCount("ListExistingPayments"))
	assert.Equal(t, candidates, mock.CallCount("FindHouseholdCandidates"))
}

func TestSelectPledgeRejectsOverCommitted(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListUnpaidPledgesFn = func(ctx context.Context, householdID string, paymentDate time.Time, isMembership bool, amount float64) ([]model.PledgeCandidate, error) {
		return []model.PledgeCandidate{{ID: "pl-1", Amount: 500, AmountOutstanding: 100}}, nil
	}
	mgr := NewManager(mock)
	imp := newImport(model.StatusContactMatched)
	imp.MatchedHouseholdID = "hh-1"
	imp.Amount = 250
	require.NoError(t, mgr.Start(context.Background(), imp))
	require.NoError(t, mgr.ProceedNotDuplicate(context.Background()))

	err := mgr.SelectPledge("pl-1")
	assert.True(t, common.IsValidation(err))
	assert.Empty(t, mgr.Snapshot().SelectedPledgeID, "rejected selection must leave state unchanged")
}

func TestSelectPledgeExactOutstandingAllowed(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListUnpaidPledgesFn = func(ctx context.Context, householdID string, paymentDate time.Time, isMembership bool, amount float64) ([]model.PledgeCandidate, error) {
		return []model.PledgeCandidate{{ID: "pl-1", Amount: 250, AmountOutstanding: 250}}, nil
	}
	mgr := NewManager(mock)
	imp := newImport(model.StatusContactMatched)
	imp.MatchedHouseholdID = "hh-1"
	imp.Amount = 250
	require.NoError(t, mgr.Start(context.Background(), imp))
	require.NoError(t, mgr.ProceedNotDuplicate(context.Background()))

	require.NoError(t, mgr.SelectPledge("pl-1"))
	assert.Equal(t, "pl-1", mgr.Snapshot().SelectedPledgeID)
}

func TestSearchCampaignsShortTermSkipsRemote(t *testing.T) {
	mock := service.NewMockReconciler()
	mgr := NewManager(mock)
	imp := newImport(model.StatusContactMatched)
	imp.MatchedHouseholdID = "hh-1"
	require.NoError(t, mgr.Start(context.Background(), imp))
	require.NoError(t, mgr.ProceedNotDuplicate(context.Background()))
	require.NoError(t, mgr.ToggleCreatePledge())

	require.NoError(t, mgr.SearchCampaigns(context.Background(), "an"))
	assert.Equal(t, 1, mock.CallCount("SearchCampaigns"))

	require.NoError(t, mgr.SearchCampaigns(context.Background(), "a"))
	assert.Equal(t, 1, mock.CallCount("SearchCampaigns"), "a one-character term must not query")
	assert.Empty(t, mgr.Snapshot().CampaignResults)
}

func TestToggleCreatePledgeDefaultsDate(t *testing.T) {
	mock := service.NewMockReconciler()
	mgr := NewManager(mock)
	imp := newImport(model.StatusContactMatched)
	imp.MatchedHouseholdID = "hh-1"
	require.NoError(t, mgr.Start(context.Background(), imp))
	require.NoError(t, mgr.ProceedNotDuplicate(context.Background()))

	require.NoError(t, mgr.ToggleCreatePledge())
	s := mgr.Snapshot()
	assert.True(t, s.ShowCreatePledge)
	assert.Equal(t, imp.PaymentDate, s.PledgeDate)
}

func TestSearchHouseholdsShortTermClearsResults(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.SearchHouseholdsFn = func(ctx context.Context, term string) ([]model.HouseholdCandidate, error) {
		return []model.HouseholdCandidate{{ID: "hh-5", Name: "Stern"}}, nil
	}
	mgr := NewManager(mock)
	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusNew)))
	mgr.ToggleManualSearch()

	require.NoError(t, mgr.SearchHouseholds(context.Background(), "st"))
	assert.Len(t, mgr.Snapshot().ManualResults, 1)

	require.NoError(t, mgr.SearchHouseholds(context.Background(), "s"))
	assert.Empty(t, mgr.Snapshot().ManualResults)
	assert.Equal(t, 1, mock.CallCount("SearchHouseholds"))
}

func TestSelectManualHouseholdClosesPanel(t *testing.T) {
	mock := service.NewMockReconciler()
	mgr := NewManager(mock)
	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusNew)))
	mgr.ToggleManualSearch()

	require.NoError(t, mgr.SelectManualHousehold("hh-7"))

	s := mgr.Snapshot()
	assert.Equal(t, "hh-7", s.SelectedHouseholdID)
	assert.False(t, s.ShowManualSearch)
	assert.Nil(t, s.ManualResults)
}

func TestBusyGateRejectsConcurrentAction(t *testing.T) {
	mock := service.NewMockReconciler()
	block := make(chan struct{})
	entered := make(chan struct{})
	mock.MarkSkippedFn = func(ctx context.Context, importID string) error {
		close(entered)
		<-block
		return nil
	}
	mgr := NewManager(mock)
	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusNew)))

	done := make(chan error, 1)
	go func() { done <- mgr.Skip(context.Background()) }()
	<-entered

	assert.ErrorIs(t, mgr.Skip(context.Background()), common.ErrBusy)
	assert.ErrorIs(t, mgr.SelectHousehold("hh-1"), common.ErrBusy)

	close(block)
	require.NoError(t, <-done)
	assert.False(t, mgr.Loading())
}

func TestStaleResponseDroppedAfterNewStart(t *testing.T) {
	mock := service.NewMockReconciler()
	block := make(chan struct{})
	entered := make(chan struct{})
	mock.MarkDuplicateFn = func(ctx context.Context, importID string) error {
		close(entered)
		<-block
		return nil
	}
	mgr := NewManager(mock)
	imp := newImport(model.StatusContactMatched)
	imp.MatchedHouseholdID = "hh-1"
	require.NoError(t, mgr.Start(context.Background(), imp))

	done := make(chan error, 1)
	go func() { done <- mgr.MarkDuplicate(context.Background()) }()
	<-entered

	// The operator moves on to a different import while the call is in flight.
	next := newImport(model.StatusCompleted)
	next.ID = "imp-2"
	require.NoError(t, mgr.Start(context.Background(), next))

	close(block)
	assert.ErrorIs(t, <-done, common.ErrStaleResponse)

	s := mgr.Snapshot()
	assert.Equal(t, "imp-2", s.Import.ID, "the superseding session must be untouched")
}

func TestActionsWithoutActiveImport(t *testing.T) {
	mgr := NewManager(service.NewMockReconciler())

	assert.ErrorIs(t, mgr.ConfirmHousehold(context.Background()), common.ErrNoSelection)
	assert.ErrorIs(t, mgr.Skip(context.Background()), common.ErrNoSelection)
	assert.ErrorIs(t, mgr.SelectHousehold("hh-1"), common.ErrNoSelection)
	assert.ErrorIs(t, mgr.Back(), common.ErrNoSelection)
}

func TestApplyToPledgeRequiresSelection(t *testing.T) {
	mock := service.NewMockReconciler()
	mgr := NewManager(mock)
	imp := newImport(model.StatusContactMatched)
	imp.MatchedHouseholdID = "hh-1"
	require.NoError(t, mgr.Start(context.Background(), imp))
	require.NoError(t, mgr.ProceedNotDuplicate(context.Background()))

	err := mgr.ApplyToPledge(context.Background())
	assert.True(t, common.IsValidation(err))
	assert.Equal(t, 0, mock.CallCount("CreatePayment"))
}

func TestCreatePledgeAndPaymentRequiresCampaign(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.SearchCampaignsFn = func(ctx context.Context, term string) ([]model.Campaign, error) {
		return []model.Campaign{{ID: "cmp-1", Name: "Annual Fund", Type: "Operating"}}, nil
	}
	mgr := NewManager(mock)
	imp := newImport(model.StatusContactMatched)
	imp.MatchedHouseholdID = "hh-1"
	require.NoError(t, mgr.Start(context.Background(), imp))
	require.NoError(t, mgr.ProceedNotDuplicate(context.Background()))
	require.NoError(t, mgr.ToggleCreatePledge())

	err := mgr.CreatePledgeAndPayment(context.Background())
	assert.True(t, common.IsValidation(err))

	require.NoError(t, mgr.SearchCampaigns(context.Background(), "annual"))
	require.NoError(t, mgr.SelectCampaign("cmp-1"))
	require.NoError(t, mgr.CreatePledgeAndPayment(context.Background()))
	assert.Equal(t, 1, mock.CallCount("CreatePledgeAndPayment"))
}

func TestSkipAvailableFromAnyStep(t *testing.T) {
	mock := service.NewMockReconciler()
	mgr := NewManager(mock)
	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusNew)))

	require.NoError(t, mgr.Skip(context.Background()))
	assert.Equal(t, 1, mock.CallCount("MarkSkipped"))
}

func TestMarkDuplicateOnlyOnDuplicateStep(t *testing.T) {
	mock := service.NewMockReconciler()
	mgr := NewManager(mock)
	require.NoError(t, mgr.Start(context.Background(), newImport(model.StatusNew)))

	err := mgr.MarkDuplicate(context.Background())
	assert.True(t, common.IsValidation(err))
	assert.Equal(t, 0, mock.CallCount("MarkDuplicate"))
}
