// Package billing scans due subscriptions and charges them asynchronously.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/kevin07696/billing-service/pkg/observability"
	"github.com/kevin07696/billing-service/pkg/timeutil"
	"github.com/samber/lo"
)

const (
	// ChargeJobName identifies the job in metrics, logs and the lease key
	ChargeJobName = "charge-active-subscriptions"

	// ChargeQueueName is the topic charge messages are published to
	ChargeQueueName = "charge-active-subscription"

	DefaultPageSize = 50
	DefaultAttempts = 3
	DefaultLeaseTTL = 15 * time.Minute

	leaseKey = "jobs:" + ChargeJobName
)

// ErrJobAlreadyRunning is returned when another runner holds the job lease
var ErrJobAlreadyRunning = errors.New("charge job is already running")

// JobConfig tunes one ChargeSubscriptionJob
type JobConfig struct {
	PageSize  int
	Attempts  int
	QueueName string
	LeaseTTL  time.Duration
}

// DefaultJobConfig returns the production settings
func DefaultJobConfig() JobConfig {
	return JobConfig{
		PageSize:  DefaultPageSize,
		Attempts:  DefaultAttempts,
		QueueName: ChargeQueueName,
		LeaseTTL:  DefaultLeaseTTL,
	}
}

// RunSummary describes what one run did
type RunSummary struct {
	CurrentDate  time.Time
	Pages        int
	Scanned      int
	Enqueued     int
	MissingPlans int
}

// ChargeSubscriptionJob enqueues one charge message per ACTIVE subscription
// whose plan bills today
type ChargeSubscriptionJob struct {
	subRepo  ports.SubscriptionRepository
	planRepo ports.SubscriptionPlanRepository
	queues   ports.QueueFactory
	lease    ports.Locker
	logger   ports.Logger
	clock    ports.Clock
	cfg      JobConfig
}

// JobOption configures a ChargeSubscriptionJob
type JobOption func(*ChargeSubscriptionJob)

// WithLease makes runs single-flight across processes
func WithLease(locker ports.Locker) JobOption {
	return func(j *ChargeSubscriptionJob) {
		j.lease = locker
	}
}

// WithJobClock overrides the time source
func WithJobClock(clock ports.Clock) JobOption {
	return func(j *ChargeSubscriptionJob) {
		j.clock = clock
	}
}

// WithJobConfig overrides page size, attempts, queue name and lease TTL.
// Zero fields keep their defaults.
func WithJobConfig(cfg JobConfig) JobOption {
	return func(j *ChargeSubscriptionJob) {
		if cfg.PageSize > 0 {
			j.cfg.PageSize = cfg.PageSize
		}
		if cfg.Attempts > 0 {
			j.cfg.Attempts = cfg.Attempts
		}
		if cfg.QueueName != "" {
			j.cfg.QueueName = cfg.QueueName
		}
		if cfg.LeaseTTL > 0 {
			j.cfg.LeaseTTL = cfg.LeaseTTL
		}
	}
}

// NewChargeSubscriptionJob creates the job
func NewChargeSubscriptionJob(
	subRepo ports.SubscriptionRepository,
	planRepo ports.SubscriptionPlanRepository,
	queues ports.QueueFactory,
	logger ports.Logger,
	opts ...JobOption,
) *ChargeSubscriptionJob {
	j := &ChargeSubscriptionJob{
		subRepo:  subRepo,
		planRepo: planRepo,
		queues:   queues,
		logger:   logger,
		clock:    timeutil.Now,
		cfg:      DefaultJobConfig(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name returns the job name used by the scheduler
func (j *ChargeSubscriptionJob) Name() string {
	return ChargeJobName
}

// Execute runs the job and discards the summary
func (j *ChargeSubscriptionJob) Execute(ctx context.Context) error {
	_, err := j.Run(ctx)
	return err
}

// Run scans every page of ACTIVE subscriptions and enqueues the ones due today.
// Fetch, plan load and enqueue failures abort the run.
func (j *ChargeSubscriptionJob) Run(ctx context.Context) (summary *RunSummary, err error) {
	start := time.Now()

	if j.lease != nil {
		release, acquired, lockErr := j.lease.TryAcquire(ctx, leaseKey, j.cfg.LeaseTTL)
		if lockErr != nil {
			observability.RecordJobRun(ChargeJobName, "failed", time.Since(start).Seconds())
			return nil, fmt.Errorf("acquire job lease: %w", lockErr)
		}
		if !acquired {
			j.logger.Warn("Charge job skipped, lease held by another runner",
				ports.String("job", ChargeJobName))
			observability.RecordJobRun(ChargeJobName, "skipped", time.Since(start).Seconds())
			return nil, ErrJobAlreadyRunning
		}
		defer release()
	}

	summary = &RunSummary{CurrentDate: timeutil.StartOfDay(j.clock())}

	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failed"
		}
		observability.RecordJobRun(ChargeJobName, outcome, time.Since(start).Seconds())
	}()

	queue, err := j.queues.NewQueue(ctx, ports.QueueOptions{
		Name:     j.cfg.QueueName,
		Attempts: j.cfg.Attempts,
	})
	if err != nil {
		j.logger.Error("Failed to open charge queue", ports.Err(err))
		return summary, fmt.Errorf("open queue %s: %w", j.cfg.QueueName, err)
	}
	defer func() {
		if closeErr := queue.Close(); closeErr != nil {
			j.logger.Warn("Failed to close charge queue", ports.Err(closeErr))
			if err == nil {
				err = fmt.Errorf("close queue %s: %w", j.cfg.QueueName, closeErr)
			}
		}
	}()

	j.logger.Info("Charge job started",
		ports.String("current_date", summary.CurrentDate.Format(domain.BillingDateLayout)))

	page := 1
	for page != domain.LastPage {
		next, pageErr := j.processPage(ctx, queue, page, summary)
		if pageErr != nil {
			j.logger.Error("Charge job aborted",
				ports.Int("page", page),
				ports.Int("enqueued", summary.Enqueued),
				ports.Err(pageErr))
			return summary, pageErr
		}
		page = next
	}

	j.logger.Info("Charge job finished",
		ports.Int("pages", summary.Pages),
		ports.Int("scanned", summary.Scanned),
		ports.Int("enqueued", summary.Enqueued),
		ports.Int("missing_plans", summary.MissingPlans))

	return summary, nil
}

// processPage handles one page and returns the next page number
func (j *ChargeSubscriptionJob) processPage(ctx context.Context, queue ports.Queue, page int, summary *RunSummary) (int, error) {
	result, err := j.subRepo.GetSubscriptions(ctx, domain.SubscriptionFilter{
		Status: domain.SubscriptionStatusActive,
		Page:   &domain.PageOptions{Page: page, Limit: j.cfg.PageSize},
	})
	if err != nil {
		return 0, fmt.Errorf("fetch active subscriptions page %d: %w", page, err)
	}

	summary.Pages++
	summary.Scanned += len(result.Results)

	messages, err := j.dueMessages(ctx, result.Results, summary)
	if err != nil {
		return 0, fmt.Errorf("page %d: %w", page, err)
	}

	if len(messages) > 0 {
		if err := queue.AddMessages(ctx, messages); err != nil {
			return 0, fmt.Errorf("enqueue page %d: %w", page, err)
		}
		summary.Enqueued += len(messages)
	}
	observability.RecordJobPage(ChargeJobName, len(messages))

	if result.PageResult == nil {
		return domain.LastPage, nil
	}
	return result.PageResult.NextPage, nil
}

// dueMessages loads the page's plans in one call and builds messages in row order
func (j *ChargeSubscriptionJob) dueMessages(ctx context.Context, subs []*domain.Subscription, summary *RunSummary) ([]domain.QueueMessage, error) {
	if len(subs) == 0 {
		return nil, nil
	}

	planIDs := lo.Uniq(lo.Map(subs, func(s *domain.Subscription, _ int) string {
		return s.SubscriptionPlanID
	}))

	plans, err := j.planRepo.GetSubscriptionPlansByIDs(ctx, planIDs)
	if err != nil {
		return nil, fmt.Errorf("load subscription plans: %w", err)
	}
	plansByID := lo.KeyBy(plans, func(p *domain.SubscriptionPlan) string {
		return p.ID
	})

	var messages []domain.QueueMessage
	for _, sub := range subs {
		plan, ok := plansByID[sub.SubscriptionPlanID]
		if !ok {
			summary.MissingPlans++
			j.logger.Warn("Skipping subscription without plan",
				ports.String("subscription_id", sub.ID),
				ports.String("subscription_plan_id", sub.SubscriptionPlanID))
			continue
		}
		if !plan.IsDueOn(summary.CurrentDate) {
			continue
		}
		messages = append(messages, domain.NewChargeMessage(sub, plan, summary.CurrentDate))
	}
	return messages, nil
}
