package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/service"
	"github.com/dstern/pledgematch/internal/session"
)

func fixedQueue() []model.PaymentImport {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []model.PaymentImport{
		{ID: "i1", Status: model.StatusCompleted, PaymentDate: date},
		{ID: "i2", Status: model.StatusNew, PaymentDate: date.AddDate(0, 0, 1)},
		{ID: "i3", Status: model.StatusSkipped, PaymentDate: date.AddDate(0, 0, 2)},
		{ID: "i4", Status: model.StatusContactMatched, MatchedHouseholdID: "hh-4", PaymentDate: date.AddDate(0, 0, 3)},
	}
}

func newController(mock *service.MockReconciler) *Controller {
	return NewController(mock, session.NewManager(mock))
}

func TestRefreshLoadsListAndCounts(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		assert.Equal(t, model.StatusNew, statusFilter)
		return fixedQueue()[1:2], nil
	}
	mock.GetStatusCountsFn = func(ctx context.Context) (map[model.ImportStatus]int, error) {
		return map[model.ImportStatus]int{model.StatusAll: 4, model.StatusNew: 1}, nil
	}
	c := newController(mock)

	require.NoError(t, c.Refresh(context.Background()))
	assert.Len(t, c.Imports(), 1)
	assert.Equal(t, 4, c.Counts()[model.StatusAll])
}

func TestSetFilterClearsSelectionAndResetsSession(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		return fixedQueue(), nil
	}
	c := newController(mock)
	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.SelectItem(context.Background(), "i2"))
	require.Equal(t, "i2", c.SelectedID())

	require.NoError(t, c.SetFilter(context.Background(), model.StatusAll))

	assert.Equal(t, model.StatusAll, c.Filter())
	assert.Empty(t, c.SelectedID())
	assert.Nil(t, c.Session().Snapshot().Import)
}

func TestSetFilterSameFilterStillReloads(t *testing.T) {
	mock := service.NewMockReconciler()
	c := newController(mock)
	require.NoError(t, c.Refresh(context.Background()))
	lists := mock.CallCount("ListImports")

	require.NoError(t, c.SetFilter(context.Background(), c.Filter()))
	assert.Equal(t, lists+1, mock.CallCount("ListImports"), "same-filter set does exactly one standard reload")
}

func TestSelectItemPrefersInMemoryCopy(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		return fixedQueue(), nil
	}
	c := newController(mock)
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, c.SelectItem(context.Background(), "i2"))

	assert.Equal(t, 0, mock.CallCount("GetImport"))
	assert.Equal(t, 1, mock.CallCount("FindHouseholdCandidates"), "selecting a New import loads stage-1 data")
	assert.Equal(t, 1, c.SelectedIndex())
}

func TestSelectItemFetchesUnknownID(t *testing.T) {
	mock := service.NewMockReconciler()
	c := newController(mock)

	require.NoError(t, c.SelectItem(context.Background(), "i99"))
	assert.Equal(t, 1, mock.CallCount("GetImport"))
	assert.Equal(t, "i99", c.SelectedID())
}

func TestSelectContactMatchedStartsOnDuplicateStep(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		return fixedQueue(), nil
	}
	c := newController(mock)
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, c.SelectItem(context.Background(), "i4"))

	s := c.Session().Snapshot()
	assert.Equal(t, session.StepCheckDuplicate, s.Step)
	assert.Equal(t, "hh-4", s.SelectedHouseholdID)
	assert.Equal(t, 1, mock.CallCount("ListExistingPayments"))
}

func TestAdvanceToNextSkipsResolvedItems(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		return fixedQueue(), nil
	}
	c := newController(mock)
	require.NoError(t, c.SetFilter(context.Background(), model.StatusAll))
	require.NoError(t, c.SelectItem(context.Background(), "i1"))

	require.NoError(t, c.AdvanceToNext(context.Background()))
	assert.Equal(t, "i2", c.SelectedID())
}

func TestAdvanceToNextNeverWraps(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		return []model.PaymentImport{
			{ID: "i1", Status: model.StatusNew},
			{ID: "i2", Status: model.StatusCompleted},
		}, nil
	}
	c := newController(mock)
	require.NoError(t, c.SetFilter(context.Background(), model.StatusAll))
	require.NoError(t, c.SelectItem(context.Background(), "i2"))

	// i1 precedes the current item and must not be auto-visited.
	require.NoError(t, c.AdvanceToNext(context.Background()))
	assert.Empty(t, c.SelectedID())
	assert.Nil(t, c.Session().Snapshot().Import)
}

func TestMoveRelativeWrapsBothWays(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		return fixedQueue(), nil
	}
	c := newController(mock)
	require.NoError(t, c.SetFilter(context.Background(), model.StatusAll))

	// With no selection, Next lands on the first item and Previous on the
	// last.
	require.NoError(t, c.MoveRelative(context.Background(), Next))
	assert.Equal(t, "i1", c.SelectedID())

	require.NoError(t, c.MoveRelative(context.Background(), Previous))
	assert.Equal(t, "i4", c.SelectedID())

	require.NoError(t, c.MoveRelative(context.Background(), Next))
	assert.Equal(t, "i1", c.SelectedID(), "Next wraps from the end")
}

func TestMoveRelativeVisitsResolvedItems(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		return fixedQueue(), nil
	}
	c := newController(mock)
	require.NoError(t, c.SetFilter(context.Background(), model.StatusAll))
	require.NoError(t, c.SelectItem(context.Background(), "i2"))

	require.NoError(t, c.MoveRelative(context.Background(), Next))
	assert.Equal(t, "i3", c.SelectedID(), "keyboard navigation does not skip terminal items")
}

func TestMoveRelativeEmptyListNoop(t *testing.T) {
	mock := service.NewMockReconciler()
	c := newController(mock)
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, c.MoveRelative(context.Background(), Next))
	assert.Empty(t, c.SelectedID())
	assert.Equal(t, 0, mock.CallCount("GetImport"))
}

func TestTerminalActionRefreshesBeforeAdvance(t *testing.T) {
	queue := fixedQueue()
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		out := make([]model.PaymentImport, len(queue))
		copy(out, queue)
		return out, nil
	}
	mock.MarkSkippedFn = func(ctx context.Context, importID string) error {
		for i := range queue {
			if queue[i].ID == importID {
				queue[i].Status = model.StatusSkipped
			}
		}
		return nil
	}
	c := newController(mock)
	require.NoError(t, c.SetFilter(context.Background(), model.StatusAll))
	require.NoError(t, c.SelectItem(context.Background(), "i2"))

	lists := mock.CallCount("ListImports")
	counts := mock.CallCount("GetStatusCounts")

	require.NoError(t, c.Skip(context.Background()))

	assert.Equal(t, 1, mock.CallCount("MarkSkipped"))
	assert.Equal(t, lists+1, mock.CallCount("ListImports"))
	assert.Equal(t, counts+1, mock.CallCount("GetStatusCounts"))
	assert.Equal(t, "i4", c.SelectedID(), "the just-skipped item's refreshed status is honored during advance")
	assert.Equal(t, model.StatusSkipped, c.Imports()[1].Status)
}

func TestConfirmHouseholdRefreshesWithoutAdvancing(t *testing.T) {
	queue := fixedQueue()
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		out := make([]model.PaymentImport, len(queue))
		copy(out, queue)
		return out, nil
	}
	mock.FindHouseholdCandidatesFn = func(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error) {
		return []model.HouseholdCandidate{{ID: "hh-9", Name: "Stern Household", Confidence: 95}}, nil
	}
	mock.ConfirmHouseholdMatchFn = func(ctx context.Context, importID, householdID string) (*model.PaymentImport, error) {
		for i := range queue {
			if queue[i].ID == importID {
				queue[i].Status = model.StatusContactMatched
				queue[i].MatchedHouseholdID = householdID
				out := queue[i]
				return &out, nil
			}
		}
		return nil, assert.AnError
	}
	c := newController(mock)
	require.NoError(t, c.SetFilter(context.Background(), model.StatusAll))
	require.NoError(t, c.SelectItem(context.Background(), "i2"))

	lists := mock.CallCount("ListImports")
	counts := mock.CallCount("GetStatusCounts")

	require.NoError(t, c.ConfirmHousehold(context.Background()))

	assert.Equal(t, "i2", c.SelectedID(), "confirming keeps the import selected")
	assert.Equal(t, lists+1, mock.CallCount("ListImports"))
	assert.Equal(t, counts+1, mock.CallCount("GetStatusCounts"))
	assert.Equal(t, model.StatusContactMatched, c.Imports()[1].Status)
	assert.Equal(t, session.StepCheckDuplicate, c.Session().Snapshot().Step)

	// Arrowing away and back re-enters at the duplicate step with the
	// household pre-selected, because the refreshed copy carries the
	// persisted status.
	require.NoError(t, c.MoveRelative(context.Background(), Next))
	require.NoError(t, c.MoveRelative(context.Background(), Previous))

	s := c.Session().Snapshot()
	assert.Equal(t, session.StepCheckDuplicate, s.Step)
	assert.Equal(t, "hh-9", s.SelectedHouseholdID)
}

func TestTerminalActionFailureDoesNotAdvance(t *testing.T) {
	mock := service.NewMockReconciler()
	mock.ListImportsFn = func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
		return fixedQueue(), nil
	}
	mock.MarkDuplicateFn = func(ctx context.Context, importID string) error {
		return assert.AnError
	}
	c := newController(mock)
	require.NoError(t, c.SetFilter(context.Background(), model.StatusAll))
	require.NoError(t, c.SelectItem(context.Background(), "i4"))
	lists := mock.CallCount("ListImports")

	err := c.MarkDuplicate(context.Background())
	require.Error(t, err)

	assert.Equal(t, "i4", c.SelectedID())
	assert.Equal(t, lists, mock.CallCount("ListImports"), "a failed action must not refresh or advance")
}
