// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"time"
)

// ImportStatus tracks where a payment import sits in the reconciliation
// lifecycle. The stored values match what the registry displays.
type ImportStatus string

// Import status constants.
const (
	StatusAll            ImportStatus = "All"
	StatusNew            ImportStatus = "New"
	StatusContactMatched ImportStatus = "Contact Matched"
	StatusCompleted      ImportStatus = "Completed"
	StatusDuplicate      ImportStatus = "Duplicate"
	StatusSkipped        ImportStatus = "Skipped"
)

// AllStatuses lists the six fixed statuses reported by GetStatusCounts,
// in display order.
var AllStatuses = []ImportStatus{
	StatusAll,
	StatusNew,
	StatusContactMatched,
	StatusCompleted,
	StatusDuplicate,
	StatusSkipped,
}

// Actionable reports whether an import still needs operator attention.
func (s ImportStatus) Actionable() bool {
	return s == StatusNew || s == StatusContactMatched
}

// Terminal reports whether an import has reached a final status.
func (s ImportStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusDuplicate || s == StatusSkipped
}

// PaymentImport is an unreconciled payment record pending reconciliation.
// Imports are created by an external import process and mutated only through
// the workflow's terminal actions.
type PaymentImport struct {
	PaymentDate        time.Time    `json:"paymentDate"`
	CreatedAt          time.Time    `json:"createdAt,omitempty"`
	ID                 string       `json:"id"`
	Email              string       `json:"email"`
	FirstName          string       `json:"firstName"`
	LastName           string       `json:"lastName"`
	Status             ImportStatus `json:"status"`
	MatchedHouseholdID string       `json:"matchedHouseholdId,omitempty"`
	Amount             float64      `json:"amount"`
	IsMembership       bool         `json:"isMembership"`
}

// Validate checks the fields required before an import can be stored.
func (p *PaymentImport) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("import ID is required")
	}
	if p.PaymentDate.IsZero() {
		return fmt.Errorf("payment date is required")
	}
	if p.Status == "" {
		return fmt.Errorf("status is required")
	}
	return nil
}

// DonorName returns the donor hint as a single display string.
func (p *PaymentImport) DonorName() string {
	switch {
	case p.FirstName == "" && p.LastName == "":
		return ""
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}
