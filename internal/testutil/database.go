// Package testutil provides test fixtures for the pledgematch registry.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dstern/pledgematch/internal/storage"
)

// SetupTestDB creates a migrated in-memory registry with cleanup registered
// on the test.
func SetupTestDB(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.NewStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Date is shorthand for a UTC midnight timestamp in fixtures.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SeedBasic loads a small registry covering the common reconciliation paths:
// two households, a campaign, an open pledge, a prior payment, and a handful
// of imports in assorted statuses.
func SeedBasic(t *testing.T, store *storage.Store) {
	t.Helper()

	seed := &storage.Seed{
		Households: []storage.SeedHousehold{
			{ID: "hh-stern", Name: "Dana Stern Household", LastName: "Stern", Email: "dana@example.com"},
			{ID: "hh-alvarez", Name: "Alvarez Household", LastName: "Alvarez", Email: "m.alvarez@example.com", SecondaryEmail: "alvarez.family@example.com"},
		},
		Campaigns: []storage.SeedCampaign{
			{ID: "cmp-annual", Name: "Annual Fund", Type: "Operating"},
			{ID: "cmp-building", Name: "Building Fund"},
		},
		Pledges: []storage.SeedPledge{
			{ID: "pl-stern", HouseholdID: "hh-stern", CampaignID: "cmp-annual", Amount: 1000, AmountPaid: 400, PledgeDate: Date(2024, 1, 15)},
			{ID: "pl-alvarez-paid", HouseholdID: "hh-alvarez", CampaignID: "cmp-annual", Amount: 500, AmountPaid: 500, PledgeDate: Date(2024, 1, 20)},
		},
		Payments: []storage.SeedPayment{
			{ID: "pay-stern-1", HouseholdID: "hh-stern", PledgeID: "pl-stern", Amount: 400, PaymentDate: Date(2024, 2, 10)},
		},
		Imports: []storage.SeedImport{
			{ID: "imp-new", Email: "dana@example.com", FirstName: "Dana", LastName: "Stern", Amount: 250, PaymentDate: Date(2024, 3, 15)},
			{ID: "imp-matched", Email: "m.alvarez@example.com", FirstName: "Maria", LastName: "Alvarez", Amount: 100, PaymentDate: Date(2024, 3, 16), Status: "Contact Matched", MatchedHouseholdID: "hh-alvarez"},
			{ID: "imp-done", Email: "done@example.com", FirstName: "Old", LastName: "Record", Amount: 75, PaymentDate: Date(2024, 3, 1), Status: "Completed"},
		},
	}
	if err := store.LoadSeed(context.Background(), seed); err != nil {
		t.Fatalf("failed to seed registry: %v", err)
	}
}
