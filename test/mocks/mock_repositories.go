package mocks

import (
	"context"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockSubscriptionRepository is a testify mock of ports.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) GetSubscriptions(ctx context.Context, filter domain.SubscriptionFilter) (*domain.SubscriptionPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubscriptionPage), args.Error(1)
}

func (m *MockSubscriptionRepository) GetSubscriptionByID(ctx context.Context, id string) (*domain.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

// MockSubscriptionPlanRepository is a testify mock of ports.SubscriptionPlanRepository
type MockSubscriptionPlanRepository struct {
	mock.Mock
}

func (m *MockSubscriptionPlanRepository) GetSubscriptionPlansByIDs(ctx context.Context, ids []string) ([]*domain.SubscriptionPlan, error) {
	args := m.Called(ctx, ids)
	if fn, ok := args.Get(0).(func(context.Context, []string) []*domain.SubscriptionPlan); ok {
		return fn(ctx, ids), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SubscriptionPlan), args.Error(1)
}

func (m *MockSubscriptionPlanRepository) GetSubscriptionPlanByID(ctx context.Context, id string) (*domain.SubscriptionPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubscriptionPlan), args.Error(1)
}

func (m *MockSubscriptionPlanRepository) CreateSubscriptionPlan(ctx context.Context, plan *domain.SubscriptionPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockSubscriptionPlanRepository) UpdateSubscriptionPlan(ctx context.Context, plan *domain.SubscriptionPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

// MockChargeRepository is a testify mock of ports.ChargeRepository
type MockChargeRepository struct {
	mock.Mock
}

func (m *MockChargeRepository) RecordCharge(ctx context.Context, charge *domain.Charge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}

func (m *MockChargeRepository) GetChargeByIdempotencyKey(ctx context.Context, key string) (*domain.Charge, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Charge), args.Error(1)
}

// MockDirectory is a testify mock of ports.Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetSubscriber(ctx context.Context, id string) (*domain.Subscriber, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscriber), args.Error(1)
}

func (m *MockDirectory) UserExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
