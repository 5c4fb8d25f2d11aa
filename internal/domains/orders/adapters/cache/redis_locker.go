package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

var _ ports.OrderLocker = (*RedisLocker)(nil)

const lockKeyPrefix = "orders:lock:"

// unlockScript deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker guards per-order read-validate-write cycles across API and worker processes.
// The lease expires after ttl so a crashed holder cannot block an order forever.
type RedisLocker struct {
	client  redis.UniversalClient
	ttl     time.Duration
	wait    time.Duration
	backoff time.Duration
	logger  *slog.Logger
}

type LockerOption func(*RedisLocker)

// WithMaxWait bounds how long Lock polls before giving up.
func WithMaxWait(d time.Duration) LockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.wait = d
		}
	}
}

// WithRetryInterval sets the poll interval while the lock is held elsewhere.
func WithRetryInterval(d time.Duration) LockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.backoff = d
		}
	}
}

// WithLogger reports failed releases; the lease still expires on its own.
func WithLogger(logger *slog.Logger) LockerOption {
	return func(l *RedisLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, opts ...LockerOption) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	l := &RedisLocker{client: client, ttl: ttl, wait: ttl, backoff: 25 * time.Millisecond, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	key := lockKeyPrefix + orderID
	token := uuid.NewString()
	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire order lock %s: %w", orderID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ports.ErrLockNotAcquired, orderID, ctx.Err())
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %s", ports.ErrLockNotAcquired, orderID)
		case <-time.After(l.backoff):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; release must still reach Redis.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			if err := unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.LogAttrs(releaseCtx, slog.LevelWarn, "order lock release failed",
					slog.String("order.id", orderID), slog.String("error", err.Error()))
			}
		})
	}, nil
}
