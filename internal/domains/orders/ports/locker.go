package ports

//go:generate mockgen -source=locker.go -destination=mock/locker.go -package=mock

import (
	"context"
	"errors"
)

// ErrLockNotAcquired is returned when the per-order guard could not be taken in time.
var ErrLockNotAcquired = errors.New("order lock not acquired")

// OrderLocker serializes read-validate-write cycles against the same order.
type OrderLocker interface {
	// Lock blocks until the guard for orderID is held or ctx is done. The returned
	// function releases the guard and is safe to call more than once.
	Lock(ctx context.Context, orderID string) (func(), error)
}
