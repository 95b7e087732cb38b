package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/kevin07696/billing-service/internal/handlers/respond"
	"github.com/kevin07696/billing-service/internal/mediator"
	"github.com/kevin07696/billing-service/internal/services/subscription"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Service is the subscription use case surface served over HTTP
type Service interface {
	CreateSubscription(ctx context.Context, req subscription.CreateSubscriptionRequest) (*domain.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*domain.Subscription, error)
	ListSubscriptions(ctx context.Context, filter domain.SubscriptionFilter) (*domain.SubscriptionPage, error)
	UpdateSubscription(ctx context.Context, cmd mediator.UpdateSubscriptionCommand) (*domain.Subscription, error)
	CancelSubscription(ctx context.Context, id string) (*domain.Subscription, error)
	CreateSubscriptionPlan(ctx context.Context, req subscription.CreateSubscriptionPlanRequest) (*domain.SubscriptionPlan, error)
}

// Handler serves the subscription JSON API
type Handler struct {
	service Service
	logger  ports.Logger
}

// NewHandler creates a new subscription handler
func NewHandler(service Service, logger ports.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// ListSubscriptionsResponse is one page of subscriptions
type ListSubscriptionsResponse struct {
	Subscriptions []*domain.Subscription `json:"subscriptions"`
	NextPage      *int                   `json:"next_page,omitempty"`
	TotalOfPages  *int                   `json:"total_of_pages,omitempty"`
}

// Routes registers the API on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /subscriptions", h.CreateSubscription)
	mux.HandleFunc("GET /subscriptions", h.ListSubscriptions)
	mux.HandleFunc("GET /subscriptions/{id}", h.GetSubscription)
	mux.HandleFunc("POST /subscriptions/{id}/pause", h.PauseSubscription)
	mux.HandleFunc("POST /subscriptions/{id}/resume", h.ResumeSubscription)
	mux.HandleFunc("POST /subscriptions/{id}/cancel", h.CancelSubscription)
	mux.HandleFunc("POST /subscription-plans", h.CreateSubscriptionPlan)
}

// CreateSubscription handles POST /subscriptions
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscription.CreateSubscriptionRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.logger.Info("CreateSubscription request received",
		ports.String("tenant_id", req.TenantID),
		ports.String("subscriber_id", req.SubscriberID),
		ports.String("subscription_plan_id", req.SubscriptionPlanID),
	)

	sub, err := h.service.CreateSubscription(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, sub, h.logger)
}

// GetSubscription handles GET /subscriptions/{id}
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.GetSubscription(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, sub, h.logger)
}

// ListSubscriptions handles GET /subscriptions?status=&tenant_id=&page=&limit=
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	page, err := h.service.ListSubscriptions(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := ListSubscriptionsResponse{Subscriptions: page.Results}
	if resp.Subscriptions == nil {
		resp.Subscriptions = []*domain.Subscription{}
	}
	if page.PageResult != nil {
		resp.NextPage = &page.PageResult.NextPage
		resp.TotalOfPages = &page.PageResult.TotalOfPages
	}
	respond.JSON(w, http.StatusOK, resp, h.logger)
}

// PauseSubscription handles POST /subscriptions/{id}/pause
func (h *Handler) PauseSubscription(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

// ResumeSubscription handles POST /subscriptions/{id}/resume
func (h *Handler) ResumeSubscription(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, pause bool) {
	id := r.PathValue("id")
	h.logger.Info("UpdateSubscription request received",
		ports.String("subscription_id", id),
		ports.Bool("pause", pause),
	)

	sub, err := h.service.UpdateSubscription(r.Context(), mediator.UpdateSubscriptionCommand{
		SubscriptionID:    id,
		PauseSubscription: pause,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, sub, h.logger)
}

// CancelSubscription handles POST /subscriptions/{id}/cancel
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.CancelSubscription(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, sub, h.logger)
}

// CreateSubscriptionPlan handles POST /subscription-plans
func (h *Handler) CreateSubscriptionPlan(w http.ResponseWriter, r *http.Request) {
	var req subscription.CreateSubscriptionPlanRequest
	if !h.decode(w, r, &req) {
		return
	}

	plan, err := h.service.CreateSubscriptionPlan(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, plan, h.logger)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respond.Message(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), h.logger)
		return false
	}
	return true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, subscription.ErrSubscriptionBusy) {
		respond.ErrorWithStatus(w, http.StatusConflict, err, h.logger)
		return
	}
	respond.Error(w, err, h.logger)
}

func parseFilter(r *http.Request) (domain.SubscriptionFilter, error) {
	q := r.URL.Query()
	filter := domain.SubscriptionFilter{
		Status:   domain.SubscriptionStatus(q.Get("status")),
		TenantID: q.Get("tenant_id"),
	}

	if q.Get("page") == "" && q.Get("limit") == "" {
		return filter, nil
	}

	opts := domain.PageOptions{Page: 1, Limit: defaultPageLimit}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return filter, fmt.Errorf("page must be a positive integer")
		}
		opts.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return filter, fmt.Errorf("limit must be between 1 and %d", maxPageLimit)
		}
		opts.Limit = limit
	}
	filter.Page = &opts
	return filter, nil
}
