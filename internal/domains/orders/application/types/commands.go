package types

import (
	"github.com/govalues/decimal"

	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

// CreateOrderCommand is issued by checkout once pricing has been settled.
type CreateOrderCommand struct {
	ID            string
	Number        string
	CustomerID    string
	PaymentStatus domain.PaymentStatus
	Priority      domain.Priority
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
}

// TransitionCommand requests one status transition for one order.
type TransitionCommand struct {
	OrderID string
	To      domain.Status
	Actor   string
	Reason  string
}

// PaymentStatusCommand requests a payment status change for one order.
type PaymentStatusCommand struct {
	OrderID string
	To      domain.PaymentStatus
	Actor   string
	Reason  string
}

// FulfillmentCommand updates tracking metadata without touching status.
type FulfillmentCommand struct {
	OrderID string
	Actor   string
	Update  domain.FulfillmentUpdate
}

// RefundCommand asks the refund authorizer for a new refund record. A non-empty
// IdempotencyKey makes retries return the refund created by the first attempt.
type RefundCommand struct {
	OrderID        string
	Amount         decimal.Decimal
	Actor          string
	Reason         string
	IdempotencyKey string
}

// NoteCommand appends an operator note.
type NoteCommand struct {
	OrderID  string
	Author   string
	Body     string
	Internal bool
}

// BulkTransitionCommand applies one transition to many orders. Duplicate ids are processed
// once per occurrence. Concurrency <= 0 selects the service default.
type BulkTransitionCommand struct {
	OperationID string
	OrderIDs    []string
	To          domain.Status
	Actor       string
	Reason      string
	Concurrency int
}
