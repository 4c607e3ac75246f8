package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dstern/pledgematch/internal/model"
)

// Seed is the declarative registry fixture loaded by the seed command. IDs
// are caller-assigned so fixtures can reference each other.
type Seed struct {
	Households []SeedHousehold `yaml:"households"`
	Campaigns  []SeedCampaign  `yaml:"campaigns"`
	Pledges    []SeedPledge    `yaml:"pledges"`
	Payments   []SeedPayment   `yaml:"payments"`
	Imports    []SeedImport    `yaml:"imports"`
}

type SeedHousehold struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	LastName       string `yaml:"lastName"`
	Email          string `yaml:"email"`
	SecondaryEmail string `yaml:"secondaryEmail"`
}

type SeedCampaign struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type SeedPledge struct {
	PledgeDate   time.Time `yaml:"pledgeDate"`
	ID           string    `yaml:"id"`
	HouseholdID  string    `yaml:"householdId"`
	CampaignID   string    `yaml:"campaignId"`
	Amount       float64   `yaml:"amount"`
	AmountPaid   float64   `yaml:"amountPaid"`
	IsMembership bool      `yaml:"isMembership"`
}

type SeedPayment struct {
	PaymentDate time.Time `yaml:"paymentDate"`
	ID          string    `yaml:"id"`
	HouseholdID string    `yaml:"householdId"`
	PledgeID    string    `yaml:"pledgeId"`
	Amount      float64   `yaml:"amount"`
}

type SeedImport struct {
	PaymentDate        time.Time `yaml:"paymentDate"`
	ID                 string    `yaml:"id"`
	Email              string    `yaml:"email"`
	FirstName          string    `yaml:"firstName"`
	LastName           string    `yaml:"lastName"`
	Status             string    `yaml:"status"`
	MatchedHouseholdID string    `yaml:"matchedHouseholdId"`
	Amount             float64   `yaml:"amount"`
	IsMembership       bool      `yaml:"isMembership"`
}

// LoadSeed writes a fixture into the registry in one transaction. Existing
// rows with the same ids are replaced.
func (s *Store) LoadSeed(ctx context.Context, seed *Seed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, h := range seed.Households {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO households (id, name, last_name, email, secondary_email)
			VALUES (?, ?, ?, ?, ?)
		`, h.ID, h.Name, h.LastName, h.Email, h.SecondaryEmail)
		if err != nil {
			return fmt.Errorf("failed to seed household %s: %w", h.ID, err)
		}
	}

	for _, c := range seed.Campaigns {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO campaigns (id, name, campaign_type)
			VALUES (?, ?, ?)
		`, c.ID, c.Name, c.Type)
		if err != nil {
			return fmt.Errorf("failed to seed campaign %s: %w", c.ID, err)
		}
	}

	for _, p := range seed.Pledges {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO pledges (id, household_id, campaign_id, amount, amount_paid, pledge_date, is_membership)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.HouseholdID, nullIfEmpty(p.CampaignID), p.Amount, p.AmountPaid, p.PledgeDate, p.IsMembership)
		if err != nil {
			return fmt.Errorf("failed to seed pledge %s: %w", p.ID, err)
		}
	}

	for _, p := range seed.Payments {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO payments (id, household_id, pledge_id, import_id, amount, payment_date)
			VALUES (?, ?, ?, NULL, ?, ?)
		`, p.ID, p.HouseholdID, nullIfEmpty(p.PledgeID), p.Amount, p.PaymentDate)
		if err != nil {
			return fmt.Errorf("failed to seed payment %s: %w", p.ID, err)
		}
	}

	for _, imp := range seed.Imports {
		status := imp.Status
		if status == "" {
			status = string(model.StatusNew)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO payment_imports (id, email, first_name, last_name, amount, payment_date, is_membership, status, matched_household_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, imp.ID, imp.Email, imp.FirstName, imp.LastName, imp.Amount, imp.PaymentDate, imp.IsMembership, status, nullIfEmpty(imp.MatchedHouseholdID))
		if err != nil {
			return fmt.Errorf("failed to seed import %s: %w", imp.ID, err)
		}
	}

	return tx.Commit()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
