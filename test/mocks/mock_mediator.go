package mocks

import (
	"context"

	"github.com/kevin07696/billing-service/internal/mediator"
	"github.com/stretchr/testify/mock"
)

// MockMediator is a testify mock of mediator.Mediator
type MockMediator struct {
	mock.Mock
}

func (m *MockMediator) Send(ctx context.Context, cmd mediator.Command) (interface{}, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0), args.Error(1)
}
