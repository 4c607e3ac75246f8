package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dstern/pledgematch/internal/model"
)

// Confidence scores assigned to the matching signals, strongest first. Only
// an exact email match clears the auto-select threshold.
const (
	scoreEmailMatch     = 95
	scoreNameAndInitial = 75
	scoreLastNameOnly   = 40
)

// FindHouseholdCandidates fuzzy-matches households against an import's donor
// hints. An exact email match (primary or secondary) scores highest, a shared
// last name plus first-initial next, a bare last name match lowest. Results
// are ordered by descending confidence.
func (s *Store) FindHouseholdCandidates(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(last_name, ''), COALESCE(email, ''), COALESCE(secondary_email, '')
		FROM households
		WHERE (? != '' AND (lower(email) = lower(?) OR lower(secondary_email) = lower(?)))
		   OR (? != '' AND lower(last_name) = lower(?))
	`, email, email, email, lastName, lastName)
	if err != nil {
		return nil, fmt.Errorf("failed to find households: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := []model.HouseholdCandidate{}
	for rows.Next() {
		var id, name, hhLast, hhEmail, hhSecondary string
		if err := rows.Scan(&id, &name, &hhLast, &hhEmail, &hhSecondary); err != nil {
			return nil, fmt.Errorf("failed to scan household: %w", err)
		}
		candidates = append(candidates, model.HouseholdCandidate{
			ID:         id,
			Name:       name,
			Email:      hhEmail,
			Confidence: scoreCandidate(email, firstName, lastName, hhEmail, hhSecondary, hhLast, name),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates, nil
}

func scoreCandidate(email, firstName, lastName, hhEmail, hhSecondary, hhLast, hhName string) float64 {
	if email != "" && (strings.EqualFold(email, hhEmail) || strings.EqualFold(email, hhSecondary)) {
		return scoreEmailMatch
	}
	if lastName != "" && strings.EqualFold(lastName, hhLast) {
		if firstName != "" && strings.HasPrefix(strings.ToLower(hhName), strings.ToLower(firstName[:1])) {
			return scoreNameAndInitial
		}
		return scoreLastNameOnly
	}
	return 0
}

// SearchHouseholds matches households by name substring for the manual
// search panel. Results carry no confidence score.
func (s *Store) SearchHouseholds(ctx context.Context, term string) ([]model.HouseholdCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email, '')
		FROM households
		WHERE name LIKE '%' || ? || '%'
		ORDER BY name
		LIMIT 20
	`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to search households: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []model.HouseholdCandidate{}
	for rows.Next() {
		var c model.HouseholdCandidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Email); err != nil {
			return nil, fmt.Errorf("failed to scan household: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}
