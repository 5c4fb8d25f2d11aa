package ports

import (
	"context"
	"errors"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrConflict reports a lost update: the stored version moved since the order was read.
	ErrConflict = errors.New("order was modified concurrently")
	// ErrDuplicate reports a second order with an existing id or order number.
	ErrDuplicate = errors.New("order already exists")
	// ErrBulkOperationNotFound is returned for unknown bulk operation ids.
	ErrBulkOperationNotFound = errors.New("bulk operation not found")
)

// ListFilter narrows order listings for operator triage. Empty slices match everything.
type ListFilter struct {
	Statuses   []domain.Status
	Priorities []domain.Priority
	Limit      int
}

// Repository persists the order aggregate together with its status and payment history.
type Repository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// Update stores order only when the persisted version still equals order.Version and
	// returns the stored copy with the version advanced. History entries are append-only.
	Update(ctx context.Context, order *domain.Order) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.Order, error)
}

// RefundRepository stores refund records created by the refund authorizer.
type RefundRepository interface {
	SaveRefund(ctx context.Context, refund domain.Refund) error
	ListRefunds(ctx context.Context, orderID string) ([]domain.Refund, error)
}

// NoteRepository stores append-only order notes.
type NoteRepository interface {
	AddNote(ctx context.Context, note domain.OrderNote) error
	ListNotes(ctx context.Context, orderID string) ([]domain.OrderNote, error)
}

// BulkOperationStore keeps the audit record of bulk requests.
type BulkOperationStore interface {
	SaveBulkOperation(ctx context.Context, op ordertypes.BulkOperation) error
	GetBulkOperation(ctx context.Context, id string) (*ordertypes.BulkOperation, error)
}

// Store is the full persistence collaborator required by the orders service.
type Store interface {
	Repository
	RefundRepository
	NoteRepository
	BulkOperationStore
}
