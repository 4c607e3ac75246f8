package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dstern/pledgematch/internal/common"
	"github.com/dstern/pledgematch/internal/model"
)

// ListUnpaidPledges returns the household's pledges with outstanding balance,
// filtered to membership or non-membership pledges to match the import.
// Ordered by pledge date, oldest first, so long-standing commitments are
// offered first.
func (s *Store) ListUnpaidPledges(ctx context.Context, householdID string, paymentDate time.Time, isMembership bool, amount float64) ([]model.PledgeCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.amount, p.amount - p.amount_paid AS outstanding, p.pledge_date,
			COALESCE(c.name, '')
		FROM pledges p
		LEFT JOIN campaigns c ON c.id = p.campaign_id
		WHERE p.household_id = ?
			AND p.is_membership = ?
			AND p.amount - p.amount_paid > 0
		ORDER BY p.pledge_date, p.id
	`, householdID, isMembership)
	if err != nil {
		return nil, fmt.Errorf("failed to list pledges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	pledges := []model.PledgeCandidate{}
	for rows.Next() {
		var p model.PledgeCandidate
		if err := rows.Scan(&p.ID, &p.Amount, &p.AmountOutstanding, &p.PledgeDate, &p.CampaignName); err != nil {
			return nil, fmt.Errorf("failed to scan pledge: %w", err)
		}
		pledges = append(pledges, p)
	}
	return pledges, rows.Err()
}

// SearchCampaigns matches campaigns by name substring.
func (s *Store) SearchCampaigns(ctx context.Context, term string) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(campaign_type, '')
		FROM campaigns
		WHERE name LIKE '%' || ? || '%'
		ORDER BY name
		LIMIT 20
	`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to search campaigns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	campaigns := []model.Campaign{}
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// CreatePayment applies an import to an existing pledge in one transaction:
// a payment row is recorded, the pledge balance moves, and the import
// completes. The pledge must belong to the import's matched household and
// have enough outstanding to absorb the full amount.
func (s *Store) CreatePayment(ctx context.Context, importID, pledgeID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	imp, err := s.getImportTx(ctx, tx, importID)
	if err != nil {
		return err
	}
	if !imp.Status.Actionable() {
		return common.NewValidationError("import %s is already %s", importID, imp.Status)
	}
	if imp.MatchedHouseholdID == "" {
		return common.NewValidationError("import %s has no matched household", importID)
	}

	var householdID string
	var outstanding float64
	err = tx.QueryRowContext(ctx, `
		SELECT household_id, amount - amount_paid FROM pledges WHERE id = ?
	`, pledgeID).Scan(&householdID, &outstanding)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load pledge: %w", err)
	}
	if householdID != imp.MatchedHouseholdID {
		return common.NewValidationError("pledge %s does not belong to the matched household", pledgeID)
	}
	if outstanding < imp.Amount {
		return common.NewValidationError("pledge outstanding amount is less than payment amount")
	}

	if err := s.recordPaymentTx(ctx, tx, imp, pledgeID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreatePledgeAndPayment creates a new pledge under the given campaign sized
// to the import's amount, then applies the import against it, all in one
// transaction.
func (s *Store) CreatePledgeAndPayment(ctx context.Context, importID, campaignID string, pledgeDate time.Time) error {
	if campaignID == "" {
		return common.NewValidationError("campaignID cannot be empty")
	}
	if pledgeDate.IsZero() {
		return common.NewValidationError("pledgeDate cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	imp, err := s.getImportTx(ctx, tx, importID)
	if err != nil {
		return err
	}
	if !imp.Status.Actionable() {
		return common.NewValidationError("import %s is already %s", importID, imp.Status)
	}
	if imp.MatchedHouseholdID == "" {
		return common.NewValidationError("import %s has no matched household", importID)
	}

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns WHERE id = ?`, campaignID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check campaign: %w", err)
	}
	if exists == 0 {
		return common.ErrNotFound
	}

	pledgeID := uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO pledges (id, household_id, campaign_id, amount, amount_paid, pledge_date, is_membership)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, pledgeID, imp.MatchedHouseholdID, campaignID, imp.Amount, pledgeDate, imp.IsMembership)
	if err != nil {
		return fmt.Errorf("failed to create pledge: %w", err)
	}

	if err := s.recordPaymentTx(ctx, tx, imp, pledgeID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) getImportTx(ctx context.Context, tx *sql.Tx, importID string) (*model.PaymentImport, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+importColumns+` FROM payment_imports WHERE id = ?`, importID)
	imp, err := scanImport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import: %w", err)
	}
	return imp, nil
}

// recordPaymentTx inserts the payment row, moves the pledge balance, and
// completes the import. Caller owns the transaction.
func (s *Store) recordPaymentTx(ctx context.Context, tx *sql.Tx, imp *model.PaymentImport, pledgeID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, household_id, pledge_id, import_id, amount, payment_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), imp.MatchedHouseholdID, pledgeID, imp.ID, imp.Amount, imp.PaymentDate)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE pledges SET amount_paid = amount_paid + ? WHERE id = ?
	`, imp.Amount, pledgeID)
	if err != nil {
		return fmt.Errorf("failed to update pledge balance: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payment_imports SET status = ? WHERE id = ?
	`, string(model.StatusCompleted), imp.ID)
	if err != nil {
		return fmt.Errorf("failed to complete import: %w", err)
	}
	return nil
}
