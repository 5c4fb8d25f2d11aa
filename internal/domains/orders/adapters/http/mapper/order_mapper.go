package mapper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/govalues/decimal"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

// CreateOrder is the checkout hand-off payload. Money travels as decimal strings.
type CreateOrder struct {
	ID            string `json:"id,omitempty"`
	OrderNumber   string `json:"orderNumber"`
	CustomerID    string `json:"customerId"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	Priority      string `json:"priority,omitempty"`
	Subtotal      string `json:"subtotal,omitempty"`
	Tax           string `json:"tax,omitempty"`
	Shipping      string `json:"shipping,omitempty"`
	Total         string `json:"total"`
}

// Transition requests one status change.
type Transition struct {
	ToStatus string `json:"toStatus"`
	Reason   string `json:"reason,omitempty"`
}

// PaymentStatusChange requests one payment status change.
type PaymentStatusChange struct {
	PaymentStatus string `json:"paymentStatus"`
	Reason        string `json:"reason,omitempty"`
}

// FulfillmentPatch keeps field presence so absent fields are left untouched.
type FulfillmentPatch struct {
	TrackingNumber    *string    `json:"trackingNumber,omitempty"`
	TrackingURL       *string    `json:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
}

// RefundRequest asks for a refund of amount.
type RefundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// NoteRequest appends an operator note.
type NoteRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// BulkTransition applies one target status to many orders.
type BulkTransition struct {
	OrderIDs    []string `json:"orderIds"`
	ToStatus    string   `json:"toStatus"`
	Reason      string   `json:"reason,omitempty"`
	Concurrency int      `json:"concurrency,omitempty"`
}

// Fulfillment is the outbound shipping metadata.
type Fulfillment struct {
	TrackingNumber    string     `json:"trackingNumber,omitempty"`
	TrackingURL       string     `json:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
}

// Order is the outbound order representation.
type Order struct {
	ID            string      `json:"id"`
	OrderNumber   string      `json:"orderNumber"`
	CustomerID    string      `json:"customerId"`
	Status        string      `json:"status"`
	PaymentStatus string      `json:"paymentStatus"`
	Priority      string      `json:"priority"`
	Subtotal      string      `json:"subtotal"`
	Tax           string      `json:"tax"`
	Shipping      string      `json:"shipping"`
	Total         string      `json:"total"`
	Fulfillment   Fulfillment `json:"fulfillment"`
	DeliveredAt   *time.Time  `json:"deliveredAt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	Version       int64       `json:"version"`
}

// HistoryEntry is one row of either the status or the payment history.
type HistoryEntry struct {
	ID     string    `json:"id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Reason string    `json:"reason,omitempty"`
}

// History bundles both histories of an order.
type History struct {
	OrderID        string         `json:"orderId"`
	Status         []HistoryEntry `json:"status"`
	PaymentStatus  []HistoryEntry `json:"paymentStatus"`
	CurrentStatus  string         `json:"currentStatus"`
	CurrentPayment string         `json:"currentPaymentStatus"`
}

// AllowedTransitions lists the targets reachable from the current status.
type AllowedTransitions struct {
	OrderID string   `json:"orderId"`
	Allowed []string `json:"allowed"`
}

// Refund is the outbound refund record.
type Refund struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Note is the outbound note record.
type Note struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"createdAt"`
}

// BulkOperation is the stored audit record of a bulk request.
type BulkOperation struct {
	ID          string                `json:"id"`
	Actor       string                `json:"actor"`
	ToStatus    string                `json:"toStatus"`
	Reason      string                `json:"reason,omitempty"`
	OrderIDs    []string              `json:"orderIds"`
	Result      ordertypes.BulkResult `json:"result"`
	StartedAt   time.Time             `json:"startedAt"`
	CompletedAt time.Time             `json:"completedAt"`
}

var errMissing = errors.New("is required")

// FieldError names the payload field that failed to parse.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ToCreateCommand parses the money fields of payload. Blank components default to zero.
func ToCreateCommand(payload CreateOrder) (ordertypes.CreateOrderCommand, error) {
	cmd := ordertypes.CreateOrderCommand{
		ID:            payload.ID,
		Number:        payload.OrderNumber,
		CustomerID:    payload.CustomerID,
		PaymentStatus: domain.PaymentStatus(strings.TrimSpace(payload.PaymentStatus)),
		Priority:      domain.Priority(strings.TrimSpace(payload.Priority)),
	}
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"subtotal", payload.Subtotal, &cmd.Subtotal},
		{"tax", payload.Tax, &cmd.Tax},
		{"shipping", payload.Shipping, &cmd.Shipping},
		{"total", payload.Total, &cmd.Total},
	}
	for _, f := range fields {
		value, err := parseMoney(f.name, f.raw, f.name != "total")
		if err != nil {
			return ordertypes.CreateOrderCommand{}, err
		}
		if !domain.CentPrecise(value) {
			return ordertypes.CreateOrderCommand{}, &FieldError{Field: f.name, Err: domain.ErrAmountPrecision}
		}
		*f.dst = value
	}
	return cmd, nil
}

// ToRefundCommand builds a refund command for orderID.
func ToRefundCommand(orderID, actor, idempotencyKey string, payload RefundRequest) (ordertypes.RefundCommand, error) {
	amount, err := parseMoney("amount", payload.Amount, false)
	if err != nil {
		return ordertypes.RefundCommand{}, err
	}
	return ordertypes.RefundCommand{
		OrderID:        orderID,
		Amount:         amount,
		Actor:          actor,
		Reason:         payload.Reason,
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}, nil
}

// ToFulfillmentUpdate copies only the fields present in payload.
func ToFulfillmentUpdate(payload FulfillmentPatch) domain.FulfillmentUpdate {
	return domain.FulfillmentUpdate{
		TrackingNumber:    payload.TrackingNumber,
		TrackingURL:       payload.TrackingURL,
		EstimatedDelivery: payload.EstimatedDelivery,
	}
}

// ToBulkCommand maps a bulk payload. A nil id list is treated as empty.
func ToBulkCommand(actor string, payload BulkTransition) ordertypes.BulkTransitionCommand {
	ids := payload.OrderIDs
	if ids == nil {
		ids = []string{}
	}
	return ordertypes.BulkTransitionCommand{
		OrderIDs:    ids,
		To:          domain.Status(strings.TrimSpace(payload.ToStatus)),
		Actor:       actor,
		Reason:      payload.Reason,
		Concurrency: payload.Concurrency,
	}
}

func parseMoney(field, raw string, optional bool) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if optional {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, &FieldError{Field: field, Err: errMissing}
	}
	value, err := decimal.Parse(raw)
	if err != nil {
		return decimal.Decimal{}, &FieldError{Field: field, Err: err}
	}
	return value, nil
}

// FromDomainOrder converts an order aggregate to its transport shape.
func FromDomainOrder(order *domain.Order) Order {
	if order == nil {
		return Order{}
	}
	return Order{
		ID:            order.ID,
		OrderNumber:   order.Number,
		CustomerID:    order.CustomerID,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Priority:      string(order.Priority),
		Subtotal:      order.Subtotal.String(),
		Tax:           order.Tax.String(),
		Shipping:      order.Shipping.String(),
		Total:         order.Total.String(),
		Fulfillment: Fulfillment{
			TrackingNumber:    order.Fulfillment.TrackingNumber,
			TrackingURL:       order.Fulfillment.TrackingURL,
			EstimatedDelivery: order.Fulfillment.EstimatedDelivery,
		},
		DeliveredAt: order.DeliveredAt,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		Version:     order.Version,
	}
}

// FromDomainOrders converts a listing.
func FromDomainOrders(orders []*domain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, FromDomainOrder(order))
	}
	return out
}

// FromOrderHistory collects both histories of order.
func FromOrderHistory(order *domain.Order) History {
	history := History{
		OrderID:        order.ID,
		Status:         make([]HistoryEntry, 0, len(order.History)),
		PaymentStatus:  make([]HistoryEntry, 0, len(order.PaymentHistory)),
		CurrentStatus:  string(order.Status),
		CurrentPayment: string(order.PaymentStatus),
	}
	for _, entry := range order.History {
		history.Status = append(history.Status, HistoryEntry{
			ID: entry.ID, From: string(entry.From), To: string(entry.To),
			At: entry.At, Actor: entry.Actor, Reason: entry.Reason,
		})
	}
	for _, entry := range order.PaymentHistory {
		history.PaymentStatus = append(history.PaymentStatus, HistoryEntry{
			ID: entry.ID, From: string(entry.From), To: string(entry.To),
			At: entry.At, Actor: entry.Actor, Reason: entry.Reason,
		})
	}
	return history
}

// FromAllowed lists allowed targets as strings.
func FromAllowed(orderID string, allowed []domain.Status) AllowedTransitions {
	out := AllowedTransitions{OrderID: orderID, Allowed: make([]string, 0, len(allowed))}
	for _, status := range allowed {
		out.Allowed = append(out.Allowed, string(status))
	}
	return out
}

func FromDomainRefund(refund domain.Refund) Refund {
	return Refund{
		ID:        refund.ID,
		OrderID:   refund.OrderID,
		Amount:    refund.Amount.String(),
		Status:    string(refund.Status),
		Reason:    refund.Reason,
		CreatedAt: refund.CreatedAt,
	}
}

func FromDomainRefunds(refunds []domain.Refund) []Refund {
	out := make([]Refund, 0, len(refunds))
	for _, refund := range refunds {
		out = append(out, FromDomainRefund(refund))
	}
	return out
}

func FromDomainNote(note domain.OrderNote) Note {
	return Note{
		ID:        note.ID,
		OrderID:   note.OrderID,
		Author:    note.Author,
		Body:      note.Body,
		Internal:  note.Internal,
		CreatedAt: note.CreatedAt,
	}
}

func FromDomainNotes(notes []domain.OrderNote) []Note {
	out := make([]Note, 0, len(notes))
	for _, note := range notes {
		out = append(out, FromDomainNote(note))
	}
	return out
}

// FromBulkOperation converts the audit record of a bulk request.
func FromBulkOperation(op *ordertypes.BulkOperation) BulkOperation {
	if op == nil {
		return BulkOperation{}
	}
	ids := op.OrderIDs
	if ids == nil {
		ids = []string{}
	}
	return BulkOperation{
		ID:          op.ID,
		Actor:       op.Actor,
		ToStatus:    string(op.Target),
		Reason:      op.Reason,
		OrderIDs:    ids,
		Result:      op.Result,
		StartedAt:   op.StartedAt,
		CompletedAt: op.CompletedAt,
	}
}
