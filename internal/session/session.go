// Package session implements the reconciliation workflow state machine: a
// bounded three-step wizard that walks one payment import from household
// matching through duplicate screening to pledge application.
package session

import (
	"time"

	"github.com/dstern/pledgematch/internal/model"
)

// Step identifies a wizard stage. Transitions are forward-only except for
// explicit back navigation.
type Step string

// Workflow steps, in order.
const (
	StepMatchHousehold Step = "match_household"
	StepCheckDuplicate Step = "check_duplicate"
	StepApplyPledge    Step = "apply_pledge"
)

// Label returns the operator-facing name of the step.
func (s Step) Label() string {
	switch s {
	case StepMatchHousehold:
		return "1. Match Household"
	case StepCheckDuplicate:
		return "2. Check Duplicates"
	case StepApplyPledge:
		return "3. Apply to Pledge"
	default:
		return string(s)
	}
}

// Session is the full workflow state for one payment import. It is owned by
// the Manager and reset whenever a different import becomes active; callers
// observe it through Manager.Snapshot and must treat the slices as
// immutable.
type Session struct {
	PledgeDate time.Time

	Import *model.PaymentImport

	Step Step

	// Step 1: household matching.
	HouseholdMatches    []model.HouseholdCandidate
	SelectedHouseholdID string
	ManualResults       []model.HouseholdCandidate

	// Step 2: duplicate screening.
	ExistingPayments []model.ExistingPayment

	// Step 3: pledge application.
	Pledges          []model.PledgeCandidate
	SelectedPledgeID string

	// Create-pledge sub-form, used only within StepApplyPledge.
	CampaignSearchTerm   string
	CampaignResults      []model.Campaign
	SelectedCampaignID   string
	SelectedCampaignName string

	ShowManualSearch bool
	ShowCreatePledge bool
}

// Active reports whether an import is loaded into the session.
func (s Session) Active() bool {
	return s.Import != nil
}
