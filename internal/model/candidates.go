package model

import "time"

// HouseholdCandidate is a candidate household produced by fuzzy matching
// against a payment import's donor hints. Confidence is computed by the
// registry service on a 0-100 scale; this side only interprets thresholds.
type HouseholdCandidate struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ExistingPayment is a previously recorded payment against the matched
// household, used for duplicate screening. DaysDifference is the absolute
// distance in days from the import's payment date, precomputed by the
// registry.
type ExistingPayment struct {
	PaymentDate    time.Time `json:"paymentDate"`
	ID             string    `json:"id"`
	Amount         float64   `json:"amount"`
	DaysDifference int       `json:"daysDifference"`
}

// PledgeCandidate is an outstanding commitment against the matched household
// that could receive this payment.
type PledgeCandidate struct {
	PledgeDate        time.Time `json:"pledgeDate"`
	ID                string    `json:"id"`
	CampaignName      string    `json:"campaignName,omitempty"`
	Amount            float64   `json:"amount"`
	AmountOutstanding float64   `json:"amountOutstanding"`
}

// Campaign is a fundraising campaign a new pledge can be created under.
type Campaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// DisplayName renders the campaign the way operators see it in search
// results.
func (c Campaign) DisplayName() string {
	if c.Type == "" {
		return c.Name + " (No Type)"
	}
	return c.Name + " (" + c.Type + ")"
}
