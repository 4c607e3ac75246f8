package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dstern/pledgematch/internal/model"
)

// duplicateScanWindowDays bounds how far from the import's payment date
// existing payments are fetched for duplicate screening. Wide enough that
// the 7-day duplicate window always has context around it.
const duplicateScanWindowDays = 60

// ListExistingPayments returns the household's recorded payments near the
// import's payment date, closest first. DaysDifference is computed against
// the given date; amount is unused for filtering, the duplicate heuristic is
// applied by the caller.
func (s *Store) ListExistingPayments(ctx context.Context, householdID string, paymentDate time.Time, amount float64) ([]model.ExistingPayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, payment_date,
			CAST(abs(julianday(payment_date) - julianday(?)) AS INTEGER) AS days_diff
		FROM payments
		WHERE household_id = ?
			AND abs(julianday(payment_date) - julianday(?)) <= ?
		ORDER BY days_diff, payment_date
	`, paymentDate, householdID, paymentDate, duplicateScanWindowDays)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payments := []model.ExistingPayment{}
	for rows.Next() {
		var p model.ExistingPayment
		if err := rows.Scan(&p.ID, &p.Amount, &p.PaymentDate, &p.DaysDifference); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
