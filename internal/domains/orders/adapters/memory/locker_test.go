package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

func TestLocker_SerializesSameOrder(t *testing.T) {
	locker := NewLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "o-1")
			require.NoError(t, err)
			defer unlock()
			mu.Lock()
			active++
			maxSeen = max(maxSeen, active)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
	require.Empty(t, locker.slots)
}

func TestLocker_DifferentOrdersDoNotBlock(t *testing.T) {
	locker := NewLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "o-1")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := locker.Lock(ctx, "o-2")
	require.NoError(t, err)
	unlockB()
	unlockB()
}

func TestLocker_HonoursContext(t *testing.T) {
	locker := NewLocker()
	unlock, err := locker.Lock(context.Background(), "o-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "o-1")
	require.ErrorIs(t, err, ports.ErrLockNotAcquired)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
