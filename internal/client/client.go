// Package client implements service.Reconciler over the HTTP facade exposed
// by the api package, letting a local operator client drive a shared remote
// registry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dstern/pledgematch/internal/common"
	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/service"
)

// Remote is an HTTP-backed Reconciler. Read calls retry transient failures;
// mutations are issued exactly once so a timed-out action is never silently
// replayed.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client against the registry API at baseURL.
func New(baseURL string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// do issues one request and decodes the response into out (when non-nil).
// Non-2xx responses become errors carrying the server's message; 5xx and
// transport failures are marked retryable.
func (r *Remote) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var eb errorBody
		msg := resp.Status
		if decodeErr := json.NewDecoder(resp.Body).Decode(&eb); decodeErr == nil && eb.Error != "" {
			msg = eb.Error
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return &common.RetryableError{Err: fmt.Errorf("%s: %w", msg, common.ErrNotFound)}
		case resp.StatusCode == http.StatusBadRequest:
			return &common.RetryableError{Err: common.NewValidationError("%s", msg)}
		case resp.StatusCode >= 500:
			return &common.RetryableError{Err: fmt.Errorf("registry error: %s", msg), Retryable: true}
		default:
			return &common.RetryableError{Err: fmt.Errorf("registry error: %s", msg)}
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// get wraps read calls in the standard retry policy.
func (r *Remote) get(ctx context.Context, path string, out any) error {
	return common.WithRetry(ctx, func() error {
		return r.do(ctx, http.MethodGet, path, nil, out)
	}, service.RetryOptions{})
}

// ListImports implements service.Reconciler.
func (r *Remote) ListImports(ctx context.Context, statusFilter model.ImportStatus) ([]model.PaymentImport, error) {
	path := "/api/imports"
	if statusFilter != "" {
		path += "?status=" + url.QueryEscape(string(statusFilter))
	}
	var imports []model.PaymentImport
	if err := r.get(ctx, path, &imports); err != nil {
		return nil, err
	}
	return imports, nil
}

// GetImport implements service.Reconciler.
func (r *Remote) GetImport(ctx context.Context, id string) (*model.PaymentImport, error) {
	var imp model.PaymentImport
	if err := r.get(ctx, "/api/imports/"+url.PathEscape(id), &imp); err != nil {
		return nil, err
	}
	return &imp, nil
}

// GetStatusCounts implements service.Reconciler.
func (r *Remote) GetStatusCounts(ctx context.Context) (map[model.ImportStatus]int, error) {
	var counts map[model.ImportStatus]int
	if err := r.get(ctx, "/api/imports/counts", &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// FindHouseholdCandidates implements service.Reconciler.
func (r *Remote) FindHouseholdCandidates(ctx context.Context, email, firstName, lastName string) ([]model.HouseholdCandidate, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("firstName", firstName)
	q.Set("lastName", lastName)
	var candidates []model.HouseholdCandidate
	if err := r.get(ctx, "/api/households/candidates?"+q.Encode(), &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// SearchHouseholds implements service.Reconciler.
func (r *Remote) SearchHouseholds(ctx context.Context, term string) ([]model.HouseholdCandidate, error) {
	var results []model.HouseholdCandidate
	if err := r.get(ctx, "/api/households?q="+url.QueryEscape(term), &results); err != nil {
		return nil, err
	}
	return results, nil
}

// ConfirmHouseholdMatch implements service.Reconciler.
func (r *Remote) ConfirmHouseholdMatch(ctx context.Context, importID, householdID string) (*model.PaymentImport, error) {
	var imp model.PaymentImport
	err := r.do(ctx, http.MethodPost, "/api/imports/"+url.PathEscape(importID)+"/match",
		map[string]string{"householdId": householdID}, &imp)
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// ListExistingPayments implements service.Reconciler.
func (r *Remote) ListExistingPayments(ctx context.Context, householdID string, paymentDate time.Time, amount float64) ([]model.ExistingPayment, error) {
	q := url.Values{}
	q.Set("paymentDate", paymentDate.Format(time.RFC3339))
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	var payments []model.ExistingPayment
	if err := r.get(ctx, "/api/households/"+url.PathEscape(householdID)+"/payments?"+q.Encode(), &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// ListUnpaidPledges implements service.Reconciler.
func (r *Remote) ListUnpaidPledges(ctx context.Context, householdID string, paymentDate time.Time, isMembership bool, amount float64) ([]model.PledgeCandidate, error) {
	q := url.Values{}
	q.Set("paymentDate", paymentDate.Format(time.RFC3339))
	q.Set("isMembership", strconv.FormatBool(isMembership))
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	var pledges []model.PledgeCandidate
	if err := r.get(ctx, "/api/households/"+url.PathEscape(householdID)+"/pledges?"+q.Encode(), &pledges); err != nil {
		return nil, err
	}
	return pledges, nil
}

// SearchCampaigns implements service.Reconciler.
func (r *Remote) SearchCampaigns(ctx context.Context, term string) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	if err := r.get(ctx, "/api/campaigns?q="+url.QueryEscape(term), &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// MarkDuplicate implements service.Reconciler.
func (r *Remote) MarkDuplicate(ctx context.Context, importID string) error {
	return r.do(ctx, http.MethodPost, "/api/imports/"+url.PathEscape(importID)+"/duplicate", nil, nil)
}

// MarkSkipped implements service.Reconciler.
func (r *Remote) MarkSkipped(ctx context.Context, importID string) error {
	return r.do(ctx, http.MethodPost, "/api/imports/"+url.PathEscape(importID)+"/skip", nil, nil)
}

// CreatePayment implements service.Reconciler.
func (r *Remote) CreatePayment(ctx context.Context, importID, pledgeID string) error {
	return r.do(ctx, http.MethodPost, "/api/imports/"+url.PathEscape(importID)+"/payment",
		map[string]string{"pledgeId": pledgeID}, nil)
}

// CreatePledgeAndPayment implements service.Reconciler.
func (r *Remote) CreatePledgeAndPayment(ctx context.Context, importID, campaignID string, pledgeDate time.Time) error {
	return r.do(ctx, http.MethodPost, "/api/imports/"+url.PathEscape(importID)+"/pledge-payment",
		map[string]any{"campaignId": campaignID, "pledgeDate": pledgeDate}, nil)
}
