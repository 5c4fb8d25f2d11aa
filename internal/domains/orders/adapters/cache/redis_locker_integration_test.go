//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	return client, func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client, cleanup := setupRedisContainer(t)
	defer cleanup()

	locker := NewRedisLocker(client, 5*time.Second, WithMaxWait(100*time.Millisecond), WithRetryInterval(10*time.Millisecond))
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "o-1")
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "o-1")
	require.ErrorIs(t, err, ports.ErrLockNotAcquired)

	other, err := locker.Lock(ctx, "o-2")
	require.NoError(t, err)
	other()

	unlock()
	unlock()

	again, err := locker.Lock(ctx, "o-1")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ReleaseKeepsForeignLease(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client, cleanup := setupRedisContainer(t)
	defer cleanup()

	locker := NewRedisLocker(client, 50*time.Millisecond, WithMaxWait(time.Second), WithRetryInterval(10*time.Millisecond))
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "o-1")
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	fresh, err := locker.Lock(ctx, "o-1")
	require.NoError(t, err)
	stale()

	exists, err := client.Exists(ctx, lockKeyPrefix+"o-1").Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), exists)
	fresh()
}
