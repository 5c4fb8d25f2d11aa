package ports

//go:generate mockgen -source=events.go -destination=mock/events.go -package=mock

import (
	"context"

	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

// EventPublisher delivers order domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
