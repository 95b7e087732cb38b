package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/kevin07696/billing-service/internal/mediator"
	"github.com/kevin07696/billing-service/pkg/observability"
	"github.com/kevin07696/billing-service/pkg/timeutil"
)

// ErrSubscriptionBusy is returned when another update of the same subscription is in progress
var ErrSubscriptionBusy = errors.New("subscription is being updated")

const defaultLockTTL = 30 * time.Second

// UpdateHandler owns pause, resume and renewal of subscriptions
type UpdateHandler struct {
	subRepo  ports.SubscriptionRepository
	planRepo ports.SubscriptionPlanRepository
	locker   ports.Locker
	logger   ports.Logger
	clock    ports.Clock
	lockTTL  time.Duration
}

// HandlerOption configures an UpdateHandler
type HandlerOption func(*UpdateHandler)

// WithLocker serializes updates of one subscription across processes
func WithLocker(locker ports.Locker, ttl time.Duration) HandlerOption {
	return func(h *UpdateHandler) {
		h.locker = locker
		if ttl > 0 {
			h.lockTTL = ttl
		}
	}
}

// WithClock overrides the time source
func WithClock(clock ports.Clock) HandlerOption {
	return func(h *UpdateHandler) {
		h.clock = clock
	}
}

// NewUpdateHandler creates the handler
func NewUpdateHandler(
	subRepo ports.SubscriptionRepository,
	planRepo ports.SubscriptionPlanRepository,
	logger ports.Logger,
	opts ...HandlerOption,
) *UpdateHandler {
	h := &UpdateHandler{
		subRepo:  subRepo,
		planRepo: planRepo,
		logger:   logger,
		clock:    timeutil.Now,
		lockTTL:  defaultLockTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register binds the handler's commands on bus
func (h *UpdateHandler) Register(bus *mediator.Bus) error {
	if err := mediator.Handle(bus, h.Handle); err != nil {
		return err
	}
	return mediator.Handle(bus, h.HandleRenewal)
}

// Handle pauses or resumes a subscription.
// Resuming also moves the plan's billing date forward by one period.
func (h *UpdateHandler) Handle(ctx context.Context, cmd mediator.UpdateSubscriptionCommand) (*domain.Subscription, error) {
	release, err := h.lock(ctx, cmd.SubscriptionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sub, err := h.loadSubscription(ctx, cmd.SubscriptionID)
	if err != nil {
		return nil, err
	}

	now := h.clock()
	from := sub.Status

	if cmd.PauseSubscription {
		if err := sub.Pause(now); err != nil {
			return nil, err
		}
	} else {
		if err := sub.Activate(now); err != nil {
			return nil, err
		}

		plan, err := h.loadPlan(ctx, sub.SubscriptionPlanID)
		if err != nil {
			return nil, err
		}
		if err := plan.UpdateNextBillingDate(now); err != nil {
			return nil, err
		}
		if err := h.planRepo.UpdateSubscriptionPlan(ctx, plan); err != nil {
			return nil, fmt.Errorf("update subscription plan: %w", err)
		}
	}

	if err := h.subRepo.UpdateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	observability.RecordSubscriptionTransition(string(from), string(sub.Status))
	h.logger.Info("Subscription updated",
		ports.String("subscription_id", sub.ID),
		ports.String("from", string(from)),
		ports.String("to", string(sub.Status)),
	)

	return sub, nil
}

// HandleRenewal closes the billing cycle that was charged for cmd.BillingDate.
// A cycle that was already closed is left untouched.
func (h *UpdateHandler) HandleRenewal(ctx context.Context, cmd mediator.RenewSubscriptionCommand) (*domain.Subscription, error) {
	release, err := h.lock(ctx, cmd.SubscriptionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sub, err := h.loadSubscription(ctx, cmd.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive() {
		return nil, domain.ErrSubscriptionNotActive.WithDetail("status", string(sub.Status))
	}

	plan, err := h.loadPlan(ctx, sub.SubscriptionPlanID)
	if err != nil {
		return nil, err
	}

	if !plan.IsDueOn(cmd.BillingDate) {
		h.logger.Info("Billing cycle already renewed",
			ports.String("subscription_id", sub.ID),
			ports.String("billing_date", cmd.BillingDate.Format(domain.BillingDateLayout)),
		)
		return sub, nil
	}

	now := h.clock()
	if err := plan.UpdateNextBillingDate(now); err != nil {
		return nil, err
	}
	if err := h.planRepo.UpdateSubscriptionPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("update subscription plan: %w", err)
	}

	sub.UpdatedAt = now
	if err := h.subRepo.UpdateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	h.logger.Info("Subscription renewed",
		ports.String("subscription_id", sub.ID),
		ports.String("next_billing_date", plan.NextBillingDate.Format(domain.BillingDateLayout)),
	)
	return sub, nil
}

func (h *UpdateHandler) lock(ctx context.Context, subscriptionID string) (func(), error) {
	if h.locker == nil {
		return func() {}, nil
	}

	release, acquired, err := h.locker.TryAcquire(ctx, "subscriptions:"+subscriptionID, h.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock subscription %s: %w", subscriptionID, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionBusy, subscriptionID)
	}
	return release, nil
}

func (h *UpdateHandler) loadSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, err := h.subRepo.GetSubscriptionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound.WithDetail("subscription_id", id)
	}
	return sub, nil
}

func (h *UpdateHandler) loadPlan(ctx context.Context, id string) (*domain.SubscriptionPlan, error) {
	plan, err := h.planRepo.GetSubscriptionPlanByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get subscription plan: %w", err)
	}
	if plan == nil {
		return nil, domain.ErrSubscriptionPlanNotFound.WithDetail("subscription_plan_id", id)
	}
	return plan, nil
}
