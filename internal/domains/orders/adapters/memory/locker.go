package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

var _ ports.OrderLocker = (*Locker)(nil)

// Locker serializes work per order id inside a single process.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocker returns a locker with no orders held.
func NewLocker() *Locker {
	return &Locker{slots: map[string]*slot{}}
}

// Lock waits for the slot of orderID or returns ports.ErrLockNotAcquired once ctx is done.
func (l *Locker) Lock(ctx context.Context, orderID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[orderID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[orderID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(orderID, s)
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrLockNotAcquired, orderID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(orderID, s)
		})
	}, nil
}

func (l *Locker) release(orderID string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, orderID)
	}
}
