package cron

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/services/billing"
	"github.com/kevin07696/billing-service/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

type stubJob struct {
	summary *billing.RunSummary
	err     error
	calls   int
	ctx     context.Context
}

func (j *stubJob) Run(ctx context.Context) (*billing.RunSummary, error) {
	j.calls++
	j.ctx = ctx
	return j.summary, j.err
}

func newMux(job ChargeJob, secret string) *http.ServeMux {
	mux := http.NewServeMux()
	NewBillingHandler(job, mocks.NewMockLogger(), secret, time.Minute).Routes(mux)
	return mux
}

func trigger(mux *http.ServeMux, method string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/cron/charge-subscriptions", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestBillingHandler_ChargeSubscriptions(t *testing.T) {
	job := &stubJob{summary: &billing.RunSummary{
		CurrentDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Pages:       2,
		Scanned:     60,
		Enqueued:    12,
	}}
	mux := newMux(job, testSecret)

	rec := trigger(mux, http.MethodPost, map[string]string{"X-Cron-Secret": testSecret})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChargeSubscriptionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "2025-06-15", resp.CurrentDate)
	assert.Equal(t, 2, resp.Pages)
	assert.Equal(t, 60, resp.Scanned)
	assert.Equal(t, 12, resp.Enqueued)

	_, hasDeadline := job.ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestBillingHandler_Authentication(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		headers  map[string]string
		expected int
	}{
		{"header secret", testSecret, map[string]string{"X-Cron-Secret": testSecret}, http.StatusOK},
		{"bearer token", testSecret, map[string]string{"Authorization": "Bearer " + testSecret}, http.StatusOK},
		{"wrong secret", testSecret, map[string]string{"X-Cron-Secret": "nope"}, http.StatusUnauthorized},
		{"wrong header wins over bearer", testSecret, map[string]string{"X-Cron-Secret": "nope", "Authorization": "Bearer " + testSecret}, http.StatusUnauthorized},
		{"no credentials", testSecret, nil, http.StatusUnauthorized},
		{"unconfigured secret rejects everything", "", map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &stubJob{summary: &billing.RunSummary{}}
			rec := trigger(newMux(job, tt.secret), http.MethodPost, tt.headers)

			assert.Equal(t, tt.expected, rec.Code)
			if tt.expected != http.StatusOK {
				assert.Zero(t, job.calls)
			}
		})
	}
}

func TestBillingHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"run in progress", billing.ErrJobAlreadyRunning, http.StatusConflict},
		{"missing entity", domain.ErrSubscriptionPlanNotFound, http.StatusNotFound},
		{"rule violation", domain.ErrInvalidRecurrenceType, http.StatusUnprocessableEntity},
		{"infrastructure", errors.New("broker down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &stubJob{err: tt.err}
			rec := trigger(newMux(job, testSecret), http.MethodPost, map[string]string{"X-Cron-Secret": testSecret})
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestBillingHandler_MethodNotAllowed(t *testing.T) {
	job := &stubJob{}
	rec := trigger(newMux(job, testSecret), http.MethodGet, map[string]string{"X-Cron-Secret": testSecret})

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, job.calls)
}

func TestBillingHandler_HealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	newMux(&stubJob{}, testSecret).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
