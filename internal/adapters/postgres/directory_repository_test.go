package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kevin07696/billing-service/internal/adapters/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := seedDirectory(t, pool)
	repo := postgres.NewDirectoryRepository(pool)

	t.Run("subscriber found", func(t *testing.T) {
		subscriber, err := repo.GetSubscriber(ctx, f.subscriberID)
		require.NoError(t, err)
		require.NotNil(t, subscriber)
		assert.Equal(t, f.tenantID, subscriber.TenantID)
		assert.Equal(t, "cus_123", subscriber.GatewayCustomerID)
		assert.Equal(t, "pm_123", subscriber.GatewayPaymentMethodID)
	})

	t.Run("subscriber missing", func(t *testing.T) {
		subscriber, err := repo.GetSubscriber(ctx, uuid.New().String())
		require.NoError(t, err)
		assert.Nil(t, subscriber)
	})

	t.Run("user exists", func(t *testing.T) {
		exists, err := repo.UserExists(ctx, f.tenantID)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.UserExists(ctx, uuid.New().String())
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = repo.UserExists(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
