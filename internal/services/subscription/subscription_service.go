package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/kevin07696/billing-service/internal/mediator"
	"github.com/kevin07696/billing-service/pkg/observability"
	"github.com/kevin07696/billing-service/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// CreateSubscriptionRequest contains parameters for subscribing a subscriber to a plan
type CreateSubscriptionRequest struct {
	SubscriberID       string `json:"subscriber_id" validate:"required"`
	TenantID           string `json:"tenant_id" validate:"required"`
	SubscriptionPlanID string `json:"subscription_plan_id" validate:"required"`
}

// CreateSubscriptionPlanRequest contains parameters for a new plan
type CreateSubscriptionPlanRequest struct {
	Amount           decimal.Decimal       `json:"amount"`
	FirstBillingDate *time.Time            `json:"first_billing_date"`
	TermURL          *string               `json:"term_url" validate:"omitempty,url"`
	TenantID         string                `json:"tenant_id" validate:"required"`
	Currency         string                `json:"currency" validate:"omitempty,iso4217"`
	RecurrenceType   domain.RecurrenceType `json:"recurrence_type" validate:"required"`
	Items            []string              `json:"items" validate:"dive,required"`
}

// Service coordinates subscription use cases
type Service struct {
	subRepo  ports.SubscriptionRepository
	planRepo ports.SubscriptionPlanRepository
	mediator mediator.Mediator
	validate *validator.Validate
	logger   ports.Logger
	clock    ports.Clock
}

// NewService creates a new subscription service
func NewService(
	subRepo ports.SubscriptionRepository,
	planRepo ports.SubscriptionPlanRepository,
	m mediator.Mediator,
	logger ports.Logger,
) *Service {
	return &Service{
		subRepo:  subRepo,
		planRepo: planRepo,
		mediator: m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		clock:    timeutil.Now,
	}
}

// CreateSubscription checks the subscriber, the tenant and the plan, in that order,
// then stores a PENDING subscription
func (s *Service) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*domain.Subscription, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.NewValidationError(err)
	}

	subscriber, err := mediator.Send[*domain.Subscriber](ctx, s.mediator, mediator.GetSubscriberCommand{SubscriberID: req.SubscriberID})
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	if subscriber == nil {
		return nil, domain.ErrSubscriberNotFound.WithDetail("subscriber_id", req.SubscriberID)
	}

	if err := s.ensureTenant(ctx, req.TenantID); err != nil {
		return nil, err
	}

	plan, err := s.planRepo.GetSubscriptionPlanByID(ctx, req.SubscriptionPlanID)
	if err != nil {
		return nil, fmt.Errorf("get subscription plan: %w", err)
	}
	if plan == nil || plan.TenantID != req.TenantID {
		return nil, domain.ErrSubscriptionPlanNotFound.WithDetail("subscription_plan_id", req.SubscriptionPlanID)
	}

	sub := domain.NewSubscription(req.SubscriberID, plan.ID, req.TenantID, s.clock())
	if err := s.subRepo.CreateSubscription(ctx, sub); err != nil {
		s.logger.Error("create subscription failed",
			ports.String("tenant_id", req.TenantID),
			ports.String("subscriber_id", req.SubscriberID),
			ports.Err(err))
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	s.logger.Info("subscription created",
		ports.String("subscription_id", sub.ID),
		ports.String("subscriber_id", sub.SubscriberID),
		ports.String("subscription_plan_id", sub.SubscriptionPlanID))

	return sub, nil
}

// GetSubscription returns a subscription or a subscription_not_found error
func (s *Service) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, err := s.subRepo.GetSubscriptionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound.WithDetail("subscription_id", id)
	}
	return sub, nil
}

// ListSubscriptions returns subscriptions matching filter
func (s *Service) ListSubscriptions(ctx context.Context, filter domain.SubscriptionFilter) (*domain.SubscriptionPage, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.NewValidationError(fmt.Errorf("unknown status %q", filter.Status))
	}
	return s.subRepo.GetSubscriptions(ctx, filter)
}

// UpdateSubscription pauses or resumes through the command handler
func (s *Service) UpdateSubscription(ctx context.Context, cmd mediator.UpdateSubscriptionCommand) (*domain.Subscription, error) {
	return mediator.Send[*domain.Subscription](ctx, s.mediator, cmd)
}

// CancelSubscription moves a subscription to CANCELED
func (s *Service) CancelSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, err := s.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}

	from := sub.Status
	if err := sub.Cancel(s.clock()); err != nil {
		return nil, err
	}
	if err := s.subRepo.UpdateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	observability.RecordSubscriptionTransition(string(from), string(sub.Status))
	s.logger.Info("subscription canceled",
		ports.String("subscription_id", sub.ID),
		ports.String("from", string(from)))

	return sub, nil
}

// CreateSubscriptionPlan stores a new plan for an existing tenant
func (s *Service) CreateSubscriptionPlan(ctx context.Context, req CreateSubscriptionPlanRequest) (*domain.SubscriptionPlan, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.NewValidationError(err)
	}
	if err := s.ensureTenant(ctx, req.TenantID); err != nil {
		return nil, err
	}

	plan, err := domain.NewSubscriptionPlan(req.TenantID, req.Amount, req.Currency, req.RecurrenceType, req.Items, req.TermURL, s.clock())
	if err != nil {
		return nil, err
	}
	if req.FirstBillingDate != nil {
		first := timeutil.StartOfDay(*req.FirstBillingDate)
		plan.NextBillingDate = &first
	}

	if err := s.planRepo.CreateSubscriptionPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("create subscription plan: %w", err)
	}

	s.logger.Info("subscription plan created",
		ports.String("subscription_plan_id", plan.ID),
		ports.String("tenant_id", plan.TenantID),
		ports.String("recurrence_type", string(plan.RecurrenceType)))

	return plan, nil
}

func (s *Service) ensureTenant(ctx context.Context, tenantID string) error {
	exists, err := mediator.Send[bool](ctx, s.mediator, mediator.UserExistsCommand{UserID: tenantID})
	if err != nil {
		return fmt.Errorf("check tenant: %w", err)
	}
	if !exists {
		return domain.ErrCompanyNotFound.WithDetail("tenant_id", tenantID)
	}
	return nil
}
