// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/dstern/pledgematch/internal/model"
)

// Reconciler is the registry service the reconciliation workflow talks to.
// It executes parameterized queries and record operations against the
// donor/household registry and the financial records behind it. The workflow
// engine never touches persistence directly; every remote call goes through
// this contract.
type Reconciler interface {
	// Queue reads.
	ListImports(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error)
	GetImport(ctx context.Context, id string) (*model.PaymentImport, error)
	GetStatusCounts(ctx context.Context) (map[model.ImportStatus]int, error)

	// Step 1: household matching.
	FindHouseholdCandidates(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error)
	SearchHouseholds(ctx context.Context, term string) ([]model.HouseholdCandidate, error)
	ConfirmHouseholdMatch(ctx context.Context, importID, householdID string) (*model.PaymentImport, error)

	// Step 2: duplicate screening.
	ListExistingPayments(ctx context.Context, householdID string, paymentDate time.Time, amount float64) ([]model.ExistingPayment, error)

	// Step 3: pledge application.
	ListUnpaidPledges(ctx context.Context, householdID string, paymentDate time.Time, isMembership bool, amount float64) ([]model.PledgeCandidate, error)
	SearchCampaigns(ctx context.Context, term string) ([]model.Campaign, error)

	// Terminal actions.
	MarkDuplicate(ctx context.Context, importID string) error
	MarkSkipped(ctx context.Context, importID string) error
	CreatePayment(ctx context.Context, importID, pledgeID string) error
	CreatePledgeAndPayment(ctx context.Context, importID, campaignID string, pledgeDate time.Time) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
