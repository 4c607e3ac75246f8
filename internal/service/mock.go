package service

import (
	"context"
	"sync"
	"time"

	"github.com/dstern/pledgematch/internal/model"
)

// MockReconciler is a mock implementation of Reconciler for testing.
// Behavior is controlled by setting the Fn fields; every call is counted so
// tests can assert which remote operations were (or were not) issued.
type MockReconciler struct {
	// Functions that can be set by tests to control behavior.
	ListImportsFn             func(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error)
	GetImportFn               func(ctx context.Context, id string) (*model.PaymentImport, error)
	GetStatusCountsFn         func(ctx context.Context) (map[model.ImportStatus]int, error)
	FindHouseholdCandidatesFn func(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error)
	SearchHouseholdsFn        func(ctx context.Context, term string) ([]model.HouseholdCandidate, error)
	ConfirmHouseholdMatchFn   func(ctx context.Context, importID, householdID string) (*model.PaymentImport, error)
	ListExistingPaymentsFn    func(ctx context.Context, householdID string, paymentDate time.Time, amount float64) ([]model.ExistingPayment, error)
	ListUnpaidPledgesFn       func(ctx context.Context, householdID string, paymentDate time.Time, isMembership bool, amount float64) ([]model.PledgeCandidate, error)
	SearchCampaignsFn         func(ctx context.Context, term string) ([]model.Campaign, error)
	MarkDuplicateFn           func(ctx context.Context, importID string) error
	MarkSkippedFn             func(ctx context.Context, importID string) error
	CreatePaymentFn           func(ctx context.Context, importID, pledgeID string) error
	CreatePledgeAndPaymentFn  func(ctx context.Context, importID, campaignID string, pledgeDate time.Time) error

	// Call tracking.
	Calls map[string]int

	mu sync.Mutex
}

// NewMockReconciler creates a new mock registry service.
func NewMockReconciler() *MockReconciler {
	return &MockReconciler{Calls: make(map[string]int)}
}

func (m *MockReconciler) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[op]++
}

// CallCount returns how many times the named operation was invoked.
func (m *MockReconciler) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[op]
}

// ListImports implements Reconciler.
func (m *MockReconciler) ListImports(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
	m.record("ListImports")
	if m.ListImportsFn != nil {
		return m.ListImportsFn(ctx, statusFilter)
	}
	return []model.PaymentImport{}, nil
}

// GetImport implements Reconciler.
func (m *MockReconciler) GetImport(ctx context.Context, id string) (*model.PaymentImport, error) {
	m.record("GetImport")
	if m.GetImportFn != nil {
		return m.GetImportFn(ctx, id)
	}
	return &model.PaymentImport{ID: id, Status: model.StatusNew}, nil
}

// GetStatusCounts implements Reconciler.
func (m *MockReconciler) GetStatusCounts(ctx context.Context) (map[model.ImportStatus]int, error) {
	m.record("GetStatusCounts")
	if m.GetStatusCountsFn != nil {
		return m.GetStatusCountsFn(ctx)
	}
	return map[model.ImportStatus]int{}, nil
}

// FindHouseholdCandidates implements Reconciler.
func (m *MockReconciler) FindHouseholdCandidates(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error) {
	m.record("FindHouseholdCandidates")
	if m.FindHouseholdCandidatesFn != nil {
		return m.FindHouseholdCandidatesFn(ctx, email, firstName, lastName)
	}
	return []model.HouseholdCandidate{}, nil
}

// SearchHouseholds implements Reconciler.
func (m *MockReconciler) SearchHouseholds(ctx context.Context, term string) ([]model.HouseholdCandidate, error) {
	m.record("SearchHouseholds")
	if m.SearchHouseholdsFn != nil {
		return m.SearchHouseholdsFn(ctx, term)
	}
	return []model.HouseholdCandidate{}, nil
}

// ConfirmHouseholdMatch implements Reconciler.
func (m *MockReconciler) ConfirmHouseholdMatch(ctx context.Context, importID, householdID string) (*model.PaymentImport, error) {
	m.record("ConfirmHouseholdMatch")
	if m.ConfirmHouseholdMatchFn != nil {
		return m.ConfirmHouseholdMatchFn(ctx, importID, householdID)
	}
	return &model.PaymentImport{
		ID:                 importID,
		Status:             model.StatusContactMatched,
		MatchedHouseholdID: householdID,
	}, nil
}

// ListExistingPayments implements Reconciler.
func (m *MockReconciler) ListExistingPayments(ctx context.Context, householdID string, paymentDate time.Time, amount float64) ([]model.ExistingPayment, error) {
	m.record("ListExistingPayments")
	if m.ListExistingPaymentsFn != nil {
		return m.ListExistingPaymentsFn(ctx, householdID, paymentDate, amount)
	}
	return []model.ExistingPayment{}, nil
}

// ListUnpaidPledges implements Reconciler.
func (m *MockReconciler) ListUnpaidPledges(ctx context.Context, householdID string, paymentDate time.Time, isMembership bool, amount float64) ([]model.PledgeCandidate, error) {
	m.record("ListUnpaidPledges")
	if m.ListUnpaidPledgesFn != nil {
		return m.ListUnpaidPledgesFn(ctx, householdID, paymentDate, isMembership, amount)
	}
	return []model.PledgeCandidate{}, nil
}

// SearchCampaigns implements Reconciler.
func (m *MockReconciler) SearchCampaigns(ctx context.Context, term string) ([]model.Campaign, error) {
	m.record("SearchCampaigns")
	if m.SearchCampaignsFn != nil {
		return m.SearchCampaignsFn(ctx, term)
	}
	return []model.Campaign{}, nil
}

// MarkDuplicate implements Reconciler.
func (m *MockReconciler) MarkDuplicate(ctx context.Context, importID string) error {
	m.record("MarkDuplicate")
	if m.MarkDuplicateFn != nil {
		return m.MarkDuplicateFn(ctx, importID)
	}
	return nil
}

// MarkSkipped implements Reconciler.
func (m *MockReconciler) MarkSkipped(ctx context.Context, importID string) error {
	m.record("MarkSkipped")
	if m.MarkSkippedFn != nil {
		return m.MarkSkippedFn(ctx, importID)
	}
	return nil
}

// CreatePayment implements Reconciler.
func (m *MockReconciler) CreatePayment(ctx context.Context, importID, pledgeID string) error {
	m.record("CreatePayment")
	if m.CreatePaymentFn != nil {
		return m.CreatePaymentFn(ctx, importID, pledgeID)
	}
	return nil
}

// CreatePledgeAndPayment implements Reconciler.
func (m *MockReconciler) CreatePledgeAndPayment(ctx context.Context, importID, campaignID string, pledgeDate time.Time) error {
	m.record("CreatePledgeAndPayment")
	if m.CreatePledgeAndPaymentFn != nil {
		return m.CreatePledgeAndPaymentFn(ctx, importID, campaignID, pledgeDate)
	}
	return nil
}
