package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kevin07696/billing-service/internal/adapters/lock"
	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/kevin07696/billing-service/test/mocks"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var jobNow = time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type jobFixture struct {
	subRepo  *mocks.MockSubscriptionRepository
	planRepo *mocks.MockSubscriptionPlanRepository
	queues   *mocks.MockQueueFactory
	logger   *mocks.MockLogger
}

func newJobFixture() *jobFixture {
	return &jobFixture{
		subRepo:  new(mocks.MockSubscriptionRepository),
		planRepo: new(mocks.MockSubscriptionPlanRepository),
		queues:   mocks.NewMockQueueFactory(),
		logger:   mocks.NewMockLogger(),
	}
}

func (f *jobFixture) job(opts ...JobOption) *ChargeSubscriptionJob {
	opts = append([]JobOption{WithJobClock(func() time.Time { return jobNow })}, opts...)
	return NewChargeSubscriptionJob(f.subRepo, f.planRepo, f.queues, f.logger, opts...)
}

func activeFilter(page, limit int) domain.SubscriptionFilter {
	return domain.SubscriptionFilter{
		Status: domain.SubscriptionStatusActive,
		Page:   &domain.PageOptions{Page: page, Limit: limit},
	}
}

func (f *jobFixture) expectPage(page, limit int, subs []*domain.Subscription, next int) {
	f.subRepo.On("GetSubscriptions", mock.Anything, activeFilter(page, limit)).
		Return(&domain.SubscriptionPage{
			Results:    subs,
			PageResult: &domain.PageResult{NextPage: next},
		}, nil).Once()
}

// expectPlans answers every batch lookup from the given catalog
func (f *jobFixture) expectPlans(catalog ...*domain.SubscriptionPlan) {
	byID := lo.KeyBy(catalog, func(p *domain.SubscriptionPlan) string { return p.ID })
	f.planRepo.On("GetSubscriptionPlansByIDs", mock.Anything, mock.Anything).
		Return(func(_ context.Context, ids []string) []*domain.SubscriptionPlan {
			return lo.FilterMap(ids, func(id string, _ int) (*domain.SubscriptionPlan, bool) {
				p, ok := byID[id]
				return p, ok
			})
		}, nil)
}

func activeSub(id, planID string) *domain.Subscription {
	started := day(2025, 1, 1)
	return &domain.Subscription{
		ID:                 id,
		Status:             domain.SubscriptionStatusActive,
		SubscriberID:       "subscriber-" + id,
		SubscriptionPlanID: planID,
		TenantID:           "tenant-1",
		StartedAt:          &started,
	}
}

func planDueOn(id string, next time.Time, amount string) *domain.SubscriptionPlan {
	return &domain.SubscriptionPlan{
		ID:              id,
		TenantID:        "tenant-1",
		Amount:          decimal.RequireFromString(amount),
		Currency:        "USD",
		RecurrenceType:  domain.RecurrenceMonthly,
		NextBillingDate: &next,
	}
}

func subscriptionIDs(messages []domain.QueueMessage) []string {
	return lo.Map(messages, func(m domain.QueueMessage, _ int) string {
		return m.Payload.(domain.ChargePayload).SubscriptionID
	})
}

func TestChargeSubscriptionJob_Run_EnqueuesOnlyDueSubscriptions(t *testing.T) {
	f := newJobFixture()
	today := day(2025, 6, 15)

	f.expectPage(1, DefaultPageSize, []*domain.Subscription{
		activeSub("sub-a", "plan-a"),
		activeSub("sub-b", "plan-b"),
		activeSub("sub-c", "plan-c"),
	}, domain.LastPage)
	f.expectPlans(
		planDueOn("plan-a", today, "10.00"),
		planDueOn("plan-b", today, "25.50"),
		planDueOn("plan-c", today.AddDate(0, 0, 1), "99.00"),
	)

	summary, err := f.job().Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 2, summary.Enqueued)
	assert.Equal(t, today, summary.CurrentDate)

	require.Equal(t, []ports.QueueOptions{{Name: ChargeQueueName, Attempts: DefaultAttempts}}, f.queues.Opened)
	assert.Equal(t, 1, f.queues.Queue.AddCalls)
	assert.Equal(t, 1, f.queues.Queue.CloseCalls)

	messages := f.queues.Queue.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, []string{"sub-a", "sub-b"}, subscriptionIDs(messages))

	first := messages[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, domain.ChargeActiveSubscriptionMessage, first.Name)
	assert.Equal(t, domain.ChargePayload{
		SubscriptionID: "sub-a",
		SubscriberID:   "subscriber-sub-a",
		TenantID:       "tenant-1",
		Amount:         decimal.RequireFromString("10.00"),
		Currency:       "USD",
		BillingDate:    "2025-06-15",
	}, first.Payload)
	assert.Equal(t, "25.5", messages[1].Payload.(domain.ChargePayload).Amount.String())
}

func TestChargeSubscriptionJob_Run_VisitsEveryPage(t *testing.T) {
	f := newJobFixture()
	today := day(2025, 6, 15)

	f.expectPage(1, 2, []*domain.Subscription{activeSub("s1", "p1"), activeSub("s2", "p2")}, 2)
	f.expectPage(2, 2, []*domain.Subscription{activeSub("s3", "p1"), activeSub("s4", "p3")}, 3)
	f.expectPage(3, 2, []*domain.Subscription{activeSub("s5", "p2")}, domain.LastPage)
	f.expectPlans(planDueOn("p1", today, "1"), planDueOn("p2", today, "2"), planDueOn("p3", today, "3"))

	summary, err := f.job(WithJobConfig(JobConfig{PageSize: 2})).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, 5, summary.Enqueued)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4", "s5"}, subscriptionIDs(f.queues.Queue.Messages()))

	// one plan lookup and one enqueue per page
	f.planRepo.AssertNumberOfCalls(t, "GetSubscriptionPlansByIDs", 3)
	assert.Equal(t, 3, f.queues.Queue.AddCalls)
	f.subRepo.AssertExpectations(t)
}

func TestChargeSubscriptionJob_Run_DeduplicatesPlanIDs(t *testing.T) {
	f := newJobFixture()
	today := day(2025, 6, 15)

	f.expectPage(1, DefaultPageSize, []*domain.Subscription{
		activeSub("s1", "shared"),
		activeSub("s2", "shared"),
		activeSub("s3", "other"),
	}, domain.LastPage)
	f.expectPlans(planDueOn("shared", today, "5"), planDueOn("other", today, "7"))

	_, err := f.job().Run(context.Background())

	require.NoError(t, err)
	f.planRepo.AssertCalled(t, "GetSubscriptionPlansByIDs", mock.Anything, []string{"shared", "other"})
	assert.Len(t, f.queues.Queue.Messages(), 3)
}

func TestChargeSubscriptionJob_Run_SkipsSubscriptionsWithoutPlan(t *testing.T) {
	f := newJobFixture()
	today := day(2025, 6, 15)

	f.expectPage(1, DefaultPageSize, []*domain.Subscription{
		activeSub("s1", "gone"),
		activeSub("s2", "p1"),
	}, domain.LastPage)
	f.expectPlans(planDueOn("p1", today, "5"))

	summary, err := f.job().Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.MissingPlans)
	assert.Equal(t, []string{"s2"}, subscriptionIDs(f.queues.Queue.Messages()))
	assert.True(t, f.logger.Warned("without plan"))
}

func TestChargeSubscriptionJob_Run_NothingDue(t *testing.T) {
	t.Run("page without due plans enqueues nothing", func(t *testing.T) {
		f := newJobFixture()
		f.expectPage(1, DefaultPageSize, []*domain.Subscription{activeSub("s1", "p1")}, domain.LastPage)
		f.expectPlans(planDueOn("p1", day(2025, 7, 15), "5"))

		summary, err := f.job().Run(context.Background())

		require.NoError(t, err)
		assert.Zero(t, summary.Enqueued)
		assert.Zero(t, f.queues.Queue.AddCalls)
		assert.Equal(t, 1, f.queues.Queue.CloseCalls)
	})

	t.Run("empty page skips the plan lookup", func(t *testing.T) {
		f := newJobFixture()
		f.expectPage(1, DefaultPageSize, nil, domain.LastPage)

		_, err := f.job().Run(context.Background())

		require.NoError(t, err)
		f.planRepo.AssertNotCalled(t, "GetSubscriptionPlansByIDs", mock.Anything, mock.Anything)
		assert.Equal(t, 1, f.queues.Queue.CloseCalls)
	})

	t.Run("missing page result ends the loop", func(t *testing.T) {
		f := newJobFixture()
		f.subRepo.On("GetSubscriptions", mock.Anything, activeFilter(1, DefaultPageSize)).
			Return(&domain.SubscriptionPage{}, nil).Once()

		summary, err := f.job().Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Pages)
		f.subRepo.AssertNumberOfCalls(t, "GetSubscriptions", 1)
	})
}

func TestChargeSubscriptionJob_Run_IsRepeatableWithinADay(t *testing.T) {
	f := newJobFixture()
	today := day(2025, 6, 15)
	subs := []*domain.Subscription{activeSub("s1", "p1"), activeSub("s2", "p2")}

	f.subRepo.On("GetSubscriptions", mock.Anything, activeFilter(1, DefaultPageSize)).
		Return(&domain.SubscriptionPage{Results: subs, PageResult: &domain.PageResult{NextPage: domain.LastPage}}, nil)
	f.expectPlans(planDueOn("p1", today, "5"), planDueOn("p2", today, "6"))

	job := f.job()
	_, err := job.Run(context.Background())
	require.NoError(t, err)
	_, err = job.Run(context.Background())
	require.NoError(t, err)

	batches := f.queues.Queue.Batches
	require.Len(t, batches, 2)
	keys := func(batch []domain.QueueMessage) []string {
		return lo.Map(batch, func(m domain.QueueMessage, _ int) string {
			return m.Payload.(domain.ChargePayload).IdempotencyKey()
		})
	}
	assert.Equal(t, keys(batches[0]), keys(batches[1]), "reruns target the same billing cycles")
	assert.Equal(t, 2, f.queues.Queue.CloseCalls)
}

func TestChargeSubscriptionJob_Run_Failures(t *testing.T) {
	ctx := context.Background()
	today := day(2025, 6, 15)
	dbDown := errors.New("db down")

	t.Run("queue cannot be opened", func(t *testing.T) {
		f := newJobFixture()
		f.queues.Err = errors.New("broker unreachable")

		_, err := f.job().Run(ctx)

		assert.ErrorIs(t, err, f.queues.Err)
		f.subRepo.AssertNotCalled(t, "GetSubscriptions", mock.Anything, mock.Anything)
	})

	t.Run("fetch failure aborts and closes the queue", func(t *testing.T) {
		f := newJobFixture()
		f.subRepo.On("GetSubscriptions", mock.Anything, activeFilter(1, DefaultPageSize)).Return(nil, dbDown)

		_, err := f.job().Run(ctx)

		assert.ErrorIs(t, err, dbDown)
		assert.Equal(t, 1, f.queues.Queue.CloseCalls)
	})

	t.Run("plan lookup failure aborts", func(t *testing.T) {
		f := newJobFixture()
		f.expectPage(1, DefaultPageSize, []*domain.Subscription{activeSub("s1", "p1")}, domain.LastPage)
		f.planRepo.On("GetSubscriptionPlansByIDs", mock.Anything, mock.Anything).Return(nil, dbDown)

		_, err := f.job().Run(ctx)

		assert.ErrorIs(t, err, dbDown)
		assert.Zero(t, f.queues.Queue.AddCalls)
		assert.Equal(t, 1, f.queues.Queue.CloseCalls)
	})

	t.Run("enqueue failure stops before the next page", func(t *testing.T) {
		f := newJobFixture()
		brokerDown := errors.New("broker down")
		f.queues.Queue.SetAddError(2, brokerDown)
		f.expectPage(1, 1, []*domain.Subscription{activeSub("s1", "p1")}, 2)
		f.expectPage(2, 1, []*domain.Subscription{activeSub("s2", "p1")}, 3)
		f.expectPlans(planDueOn("p1", today, "5"))

		summary, err := f.job(WithJobConfig(JobConfig{PageSize: 1})).Run(ctx)

		assert.ErrorIs(t, err, brokerDown)
		assert.Equal(t, 1, summary.Enqueued)
		f.subRepo.AssertNotCalled(t, "GetSubscriptions", mock.Anything, activeFilter(3, 1))
		assert.Equal(t, 1, f.queues.Queue.CloseCalls)
	})

	t.Run("close failure is reported on an otherwise clean run", func(t *testing.T) {
		f := newJobFixture()
		closeErr := errors.New("flush failed")
		f.queues.Queue.SetCloseError(closeErr)
		f.expectPage(1, DefaultPageSize, nil, domain.LastPage)

		_, err := f.job().Run(ctx)

		assert.ErrorIs(t, err, closeErr)
	})

	t.Run("close failure does not mask the run error", func(t *testing.T) {
		f := newJobFixture()
		f.queues.Queue.SetCloseError(errors.New("flush failed"))
		f.subRepo.On("GetSubscriptions", mock.Anything, mock.Anything).Return(nil, dbDown)

		_, err := f.job().Run(ctx)

		assert.ErrorIs(t, err, dbDown)
	})
}

func TestChargeSubscriptionJob_Run_Lease(t *testing.T) {
	ctx := context.Background()

	t.Run("skips while another runner holds the lease", func(t *testing.T) {
		f := newJobFixture()
		locker := lock.NewMemoryLocker()
		release, acquired, err := locker.TryAcquire(ctx, "jobs:"+ChargeJobName, time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)
		defer release()

		_, err = f.job(WithLease(locker)).Run(ctx)

		assert.ErrorIs(t, err, ErrJobAlreadyRunning)
		assert.Zero(t, f.queues.OpenCalls)
	})

	t.Run("releases the lease after the run", func(t *testing.T) {
		f := newJobFixture()
		locker := lock.NewMemoryLocker()
		f.expectPage(1, DefaultPageSize, nil, domain.LastPage)

		require.NoError(t, f.job(WithLease(locker)).Execute(ctx))

		release, acquired, err := locker.TryAcquire(ctx, "jobs:"+ChargeJobName, time.Minute)
		require.NoError(t, err)
		assert.True(t, acquired)
		release()
	})
}

func TestChargeSubscriptionJob_Name(t *testing.T) {
	assert.Equal(t, ChargeJobName, newJobFixture().job().Name())
	assert.Equal(t, "jobs:charge-active-subscriptions", leaseKey)
}
