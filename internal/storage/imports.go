package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dstern/pledgematch/internal/common"
	"github.com/dstern/pledgematch/internal/model"
)

const importColumns = `id, email, first_name, last_name, amount, payment_date, is_membership, status, matched_household_id, created_at`

func scanImport(row interface{ Scan(...any) error }) (*model.PaymentImport, error) {
	var imp model.PaymentImport
	var matched sql.NullString
	err := row.Scan(
		&imp.ID, &imp.Email, &imp.FirstName, &imp.LastName,
		&imp.Amount, &imp.PaymentDate, &imp.IsMembership,
		&imp.Status, &matched, &imp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	imp.MatchedHouseholdID = matched.String
	return &imp, nil
}

// ListImports returns imports matching the status filter ordered by payment
// date, oldest first. StatusAll returns everything.
func (s *Store) ListImports(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
	query := `SELECT ` + importColumns + ` FROM payment_imports`
	var args []any
	if statusFilter != "" && statusFilter != model.StatusAll {
		query += ` WHERE status = ?`
		args = append(args, string(statusFilter))
	}
	query += ` ORDER BY payment_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	imports := []model.PaymentImport{}
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		imports = append(imports, *imp)
	}
	return imports, rows.Err()
}

// GetImport returns a single import by id.
func (s *Store) GetImport(ctx context.Context, id string) (*model.PaymentImport, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+importColumns+` FROM payment_imports WHERE id = ?`, id)
	imp, err := scanImport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import: %w", err)
	}
	return imp, nil
}

// GetStatusCounts returns per-status totals. Every status appears in the
// result even when its count is zero; All holds the grand total.
func (s *Store) GetStatusCounts(ctx context.Context) (map[model.ImportStatus]int, error) {
	counts := make(map[model.ImportStatus]int, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		counts[st] = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM payment_imports GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	total := 0
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[model.ImportStatus(status)] = n
		total += n
	}
	counts[model.StatusAll] = total
	return counts, rows.Err()
}

// SaveImports inserts imports, skipping ids already present. It returns the
// number of rows actually inserted.
func (s *Store) SaveImports(ctx context.Context, imports []model.PaymentImport) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO payment_imports (
			id, email, first_name, last_name, amount, payment_date, is_membership, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for i := range imports {
		imp := &imports[i]
		status := imp.Status
		if status == "" {
			status = model.StatusNew
		}
		check := *imp
		check.Status = status
		if err := check.Validate(); err != nil {
			return inserted, err
		}
		res, err := stmt.ExecContext(ctx,
			imp.ID, imp.Email, imp.FirstName, imp.LastName,
			imp.Amount, imp.PaymentDate, imp.IsMembership, string(status),
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to save import %s: %w", imp.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit imports: %w", err)
	}
	return inserted, nil
}

// ConfirmHouseholdMatch records the matched household on an import, moves it
// to Contact Matched, and returns the updated record.
func (s *Store) ConfirmHouseholdMatch(ctx context.Context, importID, householdID string) (*model.PaymentImport, error) {
	if householdID == "" {
		return nil, common.NewValidationError("householdID cannot be empty")
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM households WHERE id = ?`, householdID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check household: %w", err)
	}
	if exists == 0 {
		return nil, common.ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_imports
		SET matched_household_id = ?, status = ?
		WHERE id = ? AND status IN (?, ?)
	`, householdID, string(model.StatusContactMatched), importID,
		string(model.StatusNew), string(model.StatusContactMatched))
	if err != nil {
		return nil, fmt.Errorf("failed to match household: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.rejectTransition(ctx, importID)
	}
	return s.GetImport(ctx, importID)
}

// MarkDuplicate moves an import to the Duplicate status.
func (s *Store) MarkDuplicate(ctx context.Context, importID string) error {
	return s.setStatus(ctx, importID, model.StatusDuplicate)
}

// MarkSkipped moves an import to the Skipped status.
func (s *Store) MarkSkipped(ctx context.Context, importID string) error {
	return s.setStatus(ctx, importID, model.StatusSkipped)
}

func (s *Store) setStatus(ctx context.Context, importID string, status model.ImportStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_imports
		SET status = ?
		WHERE id = ? AND status IN (?, ?)
	`, string(status), importID,
		string(model.StatusNew), string(model.StatusContactMatched))
	if err != nil {
		return fmt.Errorf("failed to update import status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.rejectTransition(ctx, importID)
	}
	return nil
}

// rejectTransition classifies a zero-row status update: the import is either
// missing or already resolved.
func (s *Store) rejectTransition(ctx context.Context, importID string) error {
	imp, err := s.GetImport(ctx, importID)
	if err != nil {
		return err
	}
	return common.NewValidationError("import %s is already %s", importID, imp.Status)
}
