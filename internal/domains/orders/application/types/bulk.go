package types

import (
	"time"

	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

// Item error codes let callers branch without parsing messages.
const (
	CodeInvalidTransition = "invalid_transition"
	CodeUnknownStatus     = "unknown_status"
	CodeInvalidInput      = "invalid_input"
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeInternal          = "internal"
)

// BulkItemResult is the outcome for one occurrence of an order id.
type BulkItemResult struct {
	OrderID   string        `json:"orderId"`
	Success   bool          `json:"success"`
	NewStatus domain.Status `json:"newStatus,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorCode string        `json:"errorCode,omitempty"`
}

// BulkResult aggregates per-item outcomes. Items keep the order of the request.
type BulkResult struct {
	OperationID string           `json:"operationId,omitempty"`
	Total       int              `json:"total"`
	Successful  int              `json:"successful"`
	Failed      int              `json:"failed"`
	Items       []BulkItemResult `json:"items"`
}

// NewBulkResult counts successes and failures over items.
func NewBulkResult(operationID string, items []BulkItemResult) BulkResult {
	result := BulkResult{OperationID: operationID, Total: len(items), Items: items}
	for _, item := range items {
		if item.Success {
			result.Successful++
		} else {
			result.Failed++
		}
	}
	return result
}

// BulkOperation is the persisted audit record of one bulk request.
type BulkOperation struct {
	ID          string
	Actor       string
	Target      domain.Status
	Reason      string
	OrderIDs    []string
	Result      BulkResult
	StartedAt   time.Time
	CompletedAt time.Time
}
