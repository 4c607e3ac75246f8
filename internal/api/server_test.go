package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/testutil"
)

// setupServer builds the full stack: migrated in-memory registry behind the
// real router.
func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := testutil.SetupTestDB(t)
	testutil.SeedBasic(t, store)
	srv := httptest.NewServer(NewServer(store, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(srv.URL+path, "application/json", &buf)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupServer(t)
	resp := getJSON(t, srv, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListImportsWithFilter(t *testing.T) {
	srv := setupServer(t)

	var all []model.PaymentImport
	resp := getJSON(t, srv, "/api/imports", &all)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, all, 3)

	var fresh []model.PaymentImport
	resp = getJSON(t, srv, "/api/imports?status=New", &fresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, fresh, 1)
	assert.Equal(t, "imp-new", fresh[0].ID)
}

func TestGetImportNotFound(t *testing.T) {
	srv := setupServer(t)
	resp := getJSON(t, srv, "/api/imports/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusCounts(t *testing.T) {
	srv := setupServer(t)

	var counts map[model.ImportStatus]int
	resp := getJSON(t, srv, "/api/imports/counts", &counts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, counts[model.StatusAll])
	assert.Equal(t, 1, counts[model.StatusNew])
}

func TestHouseholdCandidates(t *testing.T) {
	srv := setupServer(t)

	var candidates []model.HouseholdCandidate
	resp := getJSON(t, srv, "/api/households/candidates?email=dana%40example.com&firstName=Dana&lastName=Stern", &candidates)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "hh-stern", candidates[0].ID)
	assert.InDelta(t, 95, candidates[0].Confidence, 0.01)
}

func TestFullReconciliationOverHTTP(t *testing.T) {
	srv := setupServer(t)

	// Match the household.
	resp := postJSON(t, srv, "/api/imports/imp-new/match", map[string]string{"householdId": "hh-stern"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Duplicate screening sees the prior payment.
	var payments []model.ExistingPayment
	resp = getJSON(t, srv, "/api/households/hh-stern/payments?paymentDate=2024-03-15&amount=250", &payments)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, payments, 1)

	// Pledge step offers the open pledge.
	var pledges []model.PledgeCandidate
	resp = getJSON(t, srv, "/api/households/hh-stern/pledges?paymentDate=2024-03-15&amount=250", &pledges)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, pledges, 1)

	// Apply to the pledge.
	resp = postJSON(t, srv, "/api/imports/imp-new/payment", map[string]string{"pledgeId": pledges[0].ID})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var imp model.PaymentImport
	resp = getJSON(t, srv, "/api/imports/imp-new", &imp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusCompleted, imp.Status)
}

func TestCreatePledgeAndPaymentOverHTTP(t *testing.T) {
	srv := setupServer(t)

	resp := postJSON(t, srv, "/api/imports/imp-matched/pledge-payment", map[string]any{
		"campaignId": "cmp-building",
		"pledgeDate": "2024-03-16T00:00:00Z",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var imp model.PaymentImport
	getJSON(t, srv, "/api/imports/imp-matched", &imp)
	assert.Equal(t, model.StatusCompleted, imp.Status)
}

func TestValidationErrorsMapToBadRequest(t *testing.T) {
	srv := setupServer(t)

	// Payment against an unmatched import is a local precondition failure.
	resp := postJSON(t, srv, "/api/imports/imp-new/payment", map[string]string{"pledgeId": "pl-stern"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Missing body field.
	resp = postJSON(t, srv, "/api/imports/imp-new/match", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Bad date parameter.
	resp = getJSON(t, srv, "/api/households/hh-stern/payments?paymentDate=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMarkDuplicateAndSkip(t *testing.T) {
	srv := setupServer(t)

	resp := postJSON(t, srv, "/api/imports/imp-new/duplicate", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = postJSON(t, srv, "/api/imports/imp-matched/skip", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var counts map[model.ImportStatus]int
	getJSON(t, srv, "/api/imports/counts", &counts)
	assert.Equal(t, 1, counts[model.StatusDuplicate])
	assert.Equal(t, 1, counts[model.StatusSkipped])
}

func TestSearchCampaignsEndpoint(t *testing.T) {
	srv := setupServer(t)

	var campaigns []model.Campaign
	resp := getJSON(t, srv, "/api/campaigns?q=Annual", &campaigns)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "Annual Fund (Operating)", campaigns[0].DisplayName())
}
