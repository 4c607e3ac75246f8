// Package rules implements the pure decision logic of the reconciliation
// workflow: confidence interpretation, duplicate screening, and pledge
// applicability. Nothing here issues remote calls or holds mutable state.
package rules

import (
	"math"
	"unicode/utf8"

	"github.com/dstern/pledgematch/internal/model"
)

// Decision thresholds. Confidence scores are computed by the registry on a
// 0-100 scale; this package only interprets them.
const (
	HighConfidenceThreshold   = 80.0
	MediumConfidenceThreshold = 50.0

	// An existing payment within this many days and less than one currency
	// unit apart is flagged as a potential duplicate. Advisory only.
	DuplicateWindowDays      = 7
	DuplicateAmountTolerance = 1.0

	// Search terms shorter than this never reach the registry.
	MinSearchTermLen = 2
)

// ConfidenceBand is the display banding for a match score.
type ConfidenceBand string

// Confidence bands.
const (
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

// IsHighConfidence reports whether a match score is trusted enough to
// pre-select its candidate.
func IsHighConfidence(score float64) bool {
	return score >= HighConfidenceThreshold
}

// BandFor returns the display band for a confidence score.
func BandFor(score float64) ConfidenceBand {
	switch {
	case score >= HighConfidenceThreshold:
		return BandHigh
	case score >= MediumConfidenceThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// IsPotentialDuplicate reports whether an existing payment looks like the
// same payment as the import being reconciled: recorded within a week and
// less than one currency unit apart.
func IsPotentialDuplicate(existing model.ExistingPayment, target model.PaymentImport) bool {
	return existing.DaysDifference <= DuplicateWindowDays &&
		math.Abs(existing.Amount-target.Amount) < DuplicateAmountTolerance
}

// CanApplyToPledge reports whether a pledge has enough outstanding to absorb
// the full import amount.
func CanApplyToPledge(pledge model.PledgeCandidate, target model.PaymentImport) bool {
	return pledge.AmountOutstanding >= target.Amount
}

// AutoSelect returns the household to pre-select from a candidate set:
// the top-ranked candidate, and only when its score is high confidence.
// Candidates arrive ordered by descending confidence.
func AutoSelect(candidates []model.HouseholdCandidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	if !IsHighConfidence(candidates[0].Confidence) {
		return "", false
	}
	return candidates[0].ID, true
}

// ShouldSearch reports whether a campaign or manual-search term is long
// enough to dispatch; below the minimum the caller clears results without
// querying. Length is counted in characters, not bytes, so a single
// multi-byte letter does not trigger a query.
func ShouldSearch(term string) bool {
	return utf8.RuneCountInString(term) >= MinSearchTermLen
}
