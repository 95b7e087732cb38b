package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "billing:lock:"

// RedisLocker implements ports.Locker with redsync over a single redis client
type RedisLocker struct {
	rs     *redsync.Redsync
	logger ports.Logger
}

var _ ports.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker backed by rdb
func NewRedisLocker(rdb redis.UniversalClient, logger ports.Logger) *RedisLocker {
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(rdb)),
		logger: logger,
	}
}

// TryAcquire takes key for ttl with a single attempt
func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	mutex := l.rs.NewMutex(
		keyPrefix+key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	release := func() {
		// Release with a fresh context; the caller's may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if ok, err := mutex.UnlockContext(ctx); err != nil || !ok {
			l.logger.Warn("Failed to release lock",
				ports.String("key", key),
				ports.Bool("released", ok),
				ports.Err(err),
			)
		}
	}
	return release, true, nil
}

// NewRedisClient creates a go-redis client from a redis:// URL
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
