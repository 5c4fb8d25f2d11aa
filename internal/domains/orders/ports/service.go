package ports

import (
	"context"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

// Service exposes the order lifecycle use cases to adapters (inbound/driving port).
type Service interface {
	CreateOrder(ctx context.Context, cmd ordertypes.CreateOrderCommand) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]*domain.Order, error)
	AllowedTransitions(ctx context.Context, id string) ([]domain.Status, error)
	TransitionOrder(ctx context.Context, cmd ordertypes.TransitionCommand) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, cmd ordertypes.PaymentStatusCommand) (*domain.Order, error)
	UpdateFulfillment(ctx context.Context, cmd ordertypes.FulfillmentCommand) (*domain.Order, error)
	RequestRefund(ctx context.Context, cmd ordertypes.RefundCommand) (*domain.Refund, error)
	ListRefunds(ctx context.Context, orderID string) ([]domain.Refund, error)
	AddNote(ctx context.Context, cmd ordertypes.NoteCommand) (*domain.OrderNote, error)
	ListNotes(ctx context.Context, orderID string) ([]domain.OrderNote, error)
	ApplyBulk(ctx context.Context, cmd ordertypes.BulkTransitionCommand) (*ordertypes.BulkResult, error)
	GetBulkOperation(ctx context.Context, id string) (*ordertypes.BulkOperation, error)
}
