package cron

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/kevin07696/billing-service/internal/handlers/respond"
	"github.com/kevin07696/billing-service/internal/services/billing"
	"github.com/kevin07696/billing-service/pkg/timeutil"
)

// ChargeJob is the job triggered by the billing endpoint
type ChargeJob interface {
	Run(ctx context.Context) (*billing.RunSummary, error)
}

// BillingHandler handles cron job endpoints for subscription billing
type BillingHandler struct {
	job        ChargeJob
	logger     ports.Logger
	cronSecret string
	timeout    time.Duration
}

// NewBillingHandler creates a new billing cron handler. An empty secret rejects every trigger.
func NewBillingHandler(job ChargeJob, logger ports.Logger, cronSecret string, timeout time.Duration) *BillingHandler {
	return &BillingHandler{
		job:        job,
		logger:     logger,
		cronSecret: cronSecret,
		timeout:    timeout,
	}
}

// ChargeSubscriptionsResponse reports one triggered run
type ChargeSubscriptionsResponse struct {
	Success      bool   `json:"success"`
	CurrentDate  string `json:"current_date"`
	Pages        int    `json:"pages"`
	Scanned      int    `json:"scanned"`
	Enqueued     int    `json:"enqueued"`
	MissingPlans int    `json:"missing_plans"`
	ProcessedAt  string `json:"processed_at"`
}

// Routes registers the cron endpoints on mux
func (h *BillingHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/cron/charge-subscriptions", h.ChargeSubscriptions)
	mux.HandleFunc("GET /cron/health", h.HealthCheck)
}

// ChargeSubscriptions handles POST /cron/charge-subscriptions.
// Called by an external scheduler as an alternative to the in-process one.
func (h *BillingHandler) ChargeSubscriptions(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Billing cron job triggered",
		ports.String("method", r.Method),
		ports.String("remote_addr", r.RemoteAddr),
		ports.String("user_agent", r.UserAgent()),
	)

	if r.Method != http.MethodPost {
		respond.Message(w, http.StatusMethodNotAllowed, "only POST method is allowed", h.logger)
		return
	}

	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized cron request", ports.String("remote_addr", r.RemoteAddr))
		respond.Message(w, http.StatusUnauthorized, "unauthorized", h.logger)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	summary, err := h.job.Run(ctx)
	if errors.Is(err, billing.ErrJobAlreadyRunning) {
		respond.ErrorWithStatus(w, http.StatusConflict, err, h.logger)
		return
	}
	if err != nil {
		respond.Error(w, err, h.logger)
		return
	}

	respond.JSON(w, http.StatusOK, ChargeSubscriptionsResponse{
		Success:      true,
		CurrentDate:  summary.CurrentDate.Format(domain.BillingDateLayout),
		Pages:        summary.Pages,
		Scanned:      summary.Scanned,
		Enqueued:     summary.Enqueued,
		MissingPlans: summary.MissingPlans,
		ProcessedAt:  timeutil.Now().Format(time.RFC3339),
	}, h.logger)
}

// authenticateRequest accepts the secret in X-Cron-Secret or as a Bearer token
func (h *BillingHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}

	if secret := r.Header.Get("X-Cron-Secret"); secret != "" {
		return secretsEqual(secret, h.cronSecret)
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && secretsEqual(token, h.cronSecret)
}

func secretsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// HealthCheck handles GET /cron/health for monitoring
func (h *BillingHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   timeutil.Now().Format(time.RFC3339),
	}, h.logger)
}
