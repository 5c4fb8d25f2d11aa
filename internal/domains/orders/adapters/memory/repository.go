package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

var _ ports.Store = (*Repository)(nil)

// Repository is an in-memory order persistence adapter for development and tests.
type Repository struct {
	mu      sync.RWMutex
	orders  map[string]*domain.Order
	numbers map[string]string
	refunds map[string][]domain.Refund
	notes   map[string][]domain.OrderNote
	bulkOps map[string]ordertypes.BulkOperation
	now     func() time.Time
}

// NewRepository returns an empty store.
func NewRepository() *Repository {
	return &Repository{
		orders:  map[string]*domain.Order{},
		numbers: map[string]string{},
		refunds: map[string][]domain.Refund{},
		notes:   map[string][]domain.OrderNote{},
		bulkOps: map[string]ordertypes.BulkOperation{},
		now:     time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (r *Repository) WithClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *Repository) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return nil, ports.ErrDuplicate
	}
	if _, ok := r.numbers[order.Number]; ok {
		return nil, ports.ErrDuplicate
	}
	clone := order.Clone()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = r.now()
	}
	if clone.UpdatedAt.IsZero() {
		clone.UpdatedAt = clone.CreatedAt
	}
	clone.Version = 1
	r.orders[clone.ID] = clone
	r.numbers[clone.Number] = clone.ID
	return clone.Clone(), nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *Repository) Update(_ context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[order.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if current.Version != order.Version {
		return nil, ports.ErrConflict
	}
	if len(order.History) < len(current.History) || len(order.PaymentHistory) < len(current.PaymentHistory) {
		return nil, errors.New("order history is append-only")
	}
	clone := order.Clone()
	clone.Number = current.Number
	clone.CreatedAt = current.CreatedAt
	clone.Version = current.Version + 1
	r.orders[clone.ID] = clone
	return clone.Clone(), nil
}

func (r *Repository) List(_ context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, order.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !slices.Contains(filter.Priorities, order.Priority) {
			continue
		}
		list = append(list, order.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (r *Repository) SaveRefund(_ context.Context, refund domain.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[refund.OrderID]; !ok {
		return ports.ErrNotFound
	}
	for _, existing := range r.refunds[refund.OrderID] {
		if existing.ID == refund.ID {
			return ports.ErrDuplicate
		}
	}
	r.refunds[refund.OrderID] = append(r.refunds[refund.OrderID], refund)
	return nil
}

func (r *Repository) ListRefunds(_ context.Context, orderID string) ([]domain.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.refunds[orderID]), nil
}

func (r *Repository) AddNote(_ context.Context, note domain.OrderNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[note.OrderID]; !ok {
		return ports.ErrNotFound
	}
	r.notes[note.OrderID] = append(r.notes[note.OrderID], note)
	return nil
}

func (r *Repository) ListNotes(_ context.Context, orderID string) ([]domain.OrderNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.notes[orderID]), nil
}

func (r *Repository) SaveBulkOperation(_ context.Context, op ordertypes.BulkOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	op.OrderIDs = slices.Clone(op.OrderIDs)
	op.Result.Items = slices.Clone(op.Result.Items)
	r.bulkOps[op.ID] = op
	return nil
}

func (r *Repository) GetBulkOperation(_ context.Context, id string) (*ordertypes.BulkOperation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.bulkOps[id]
	if !ok {
		return nil, ports.ErrBulkOperationNotFound
	}
	op.OrderIDs = slices.Clone(op.OrderIDs)
	op.Result.Items = slices.Clone(op.Result.Items)
	return &op, nil
}
