package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/mediator"
	"github.com/kevin07696/billing-service/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBus(t *testing.T) (*mediator.Bus, *mocks.MockDirectory, *mocks.MockLogger) {
	t.Helper()
	directory := new(mocks.MockDirectory)
	logger := mocks.NewMockLogger()
	bus := mediator.NewBus()
	require.NoError(t, NewHandlers(directory, logger).Register(bus))
	return bus, directory, logger
}

func TestHandlers_GetSubscriber(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		bus, directory, _ := setupBus(t)
		expected := &domain.Subscriber{ID: "subscriber-1", GatewayCustomerID: "cus_123"}
		directory.On("GetSubscriber", ctx, "subscriber-1").Return(expected, nil)

		got, err := mediator.Send[*domain.Subscriber](ctx, bus, mediator.GetSubscriberCommand{SubscriberID: "subscriber-1"})

		require.NoError(t, err)
		assert.Same(t, expected, got)
	})

	t.Run("absent", func(t *testing.T) {
		bus, directory, _ := setupBus(t)
		directory.On("GetSubscriber", ctx, "ghost").Return(nil, nil)

		got, err := mediator.Send[*domain.Subscriber](ctx, bus, mediator.GetSubscriberCommand{SubscriberID: "ghost"})

		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("lookup failure is wrapped and logged", func(t *testing.T) {
		bus, directory, logger := setupBus(t)
		dbDown := errors.New("db down")
		directory.On("GetSubscriber", ctx, "subscriber-1").Return(nil, dbDown)

		_, err := mediator.Send[*domain.Subscriber](ctx, bus, mediator.GetSubscriberCommand{SubscriberID: "subscriber-1"})

		assert.ErrorIs(t, err, dbDown)
		assert.True(t, logger.Errored("Subscriber lookup failed"))
	})
}

func TestHandlers_UserExists(t *testing.T) {
	ctx := context.Background()
	bus, directory, _ := setupBus(t)
	directory.On("UserExists", ctx, "tenant-1").Return(true, nil)
	directory.On("UserExists", ctx, "tenant-2").Return(false, nil)

	exists, err := mediator.Send[bool](ctx, bus, mediator.UserExistsCommand{UserID: "tenant-1"})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = mediator.Send[bool](ctx, bus, mediator.UserExistsCommand{UserID: "tenant-2"})
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHandlers_Register_Twice(t *testing.T) {
	bus := mediator.NewBus()
	h := NewHandlers(new(mocks.MockDirectory), mocks.NewMockLogger())

	require.NoError(t, h.Register(bus))
	assert.ErrorIs(t, h.Register(bus), mediator.ErrHandlerExists)
}
