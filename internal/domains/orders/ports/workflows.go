package ports

import (
	"context"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
)

// BulkOrchestrator runs bulk transitions, either durably or inline.
type BulkOrchestrator interface {
	ApplyBulk(ctx context.Context, cmd ordertypes.BulkTransitionCommand) (*ordertypes.BulkResult, error)
}
