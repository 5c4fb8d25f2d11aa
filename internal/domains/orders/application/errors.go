package application

import (
	"errors"
	"fmt"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant unrelated to lifecycle rules.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrTooManyItems rejects bulk requests above the configured ceiling.
	ErrTooManyItems = fmt.Errorf("%w: too many orders in bulk request", ErrInvalidInput)
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyOrderNumber) ||
		errors.Is(err, domain.ErrEmptyCustomer) ||
		errors.Is(err, domain.ErrEmptyActor) ||
		errors.Is(err, domain.ErrNegativeAmount) ||
		errors.Is(err, domain.ErrAmountPrecision) ||
		errors.Is(err, domain.ErrInvalidCreation) ||
		errors.Is(err, domain.ErrEmptyNote) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

// ErrorCode classifies err for bulk item reporting.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidTransition):
		return ordertypes.CodeInvalidTransition
	case errors.Is(err, domain.ErrUnknownStatus):
		return ordertypes.CodeUnknownStatus
	case errors.Is(err, ErrInvalidInput):
		return ordertypes.CodeInvalidInput
	case errors.Is(err, ports.ErrNotFound):
		return ordertypes.CodeNotFound
	case errors.Is(err, ports.ErrConflict), errors.Is(err, ports.ErrLockNotAcquired), errors.Is(err, ports.ErrIdempotencyConflict):
		return ordertypes.CodeConflict
	default:
		return ordertypes.CodeInternal
	}
}

// ItemOutcome converts the result of one transition into a bulk item.
func ItemOutcome(orderID string, order *domain.Order, err error) ordertypes.BulkItemResult {
	if err != nil {
		return ordertypes.BulkItemResult{
			OrderID:   orderID,
			Error:     err.Error(),
			ErrorCode: ErrorCode(err),
		}
	}
	item := ordertypes.BulkItemResult{OrderID: orderID, Success: true}
	if order != nil {
		item.NewStatus = order.Status
	}
	return item
}
