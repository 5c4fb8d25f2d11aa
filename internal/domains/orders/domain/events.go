package domain

import "time"

// Event is the base interface for all order domain events.
type Event interface {
	EventName() string
	OccurredAt() time.Time
	AggregateID() string
}

// BaseEvent provides common event metadata.
type BaseEvent struct {
	OrderID   string
	Timestamp time.Time
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the order the event belongs to.
func (e BaseEvent) AggregateID() string {
	return e.OrderID
}

// OrderStatusChanged is raised after a transition is persisted.
type OrderStatusChanged struct {
	BaseEvent
	OrderNumber string
	FromStatus  Status
	ToStatus    Status
	Actor       string
	Reason      string
}

// EventName returns the event type identifier.
func (e OrderStatusChanged) EventName() string {
	return "orders.order.status_changed"
}

// PaymentStatusChanged is raised after a payment status change is persisted.
type PaymentStatusChanged struct {
	BaseEvent
	OrderNumber string
	FromStatus  PaymentStatus
	ToStatus    PaymentStatus
	Actor       string
	Reason      string
}

// EventName returns the event type identifier.
func (e PaymentStatusChanged) EventName() string {
	return "orders.payment.status_changed"
}

// RefundRequested is raised when a refund record has been created.
type RefundRequested struct {
	BaseEvent
	RefundID string
	Amount   string
	Actor    string
	Reason   string
}

// EventName returns the event type identifier.
func (e RefundRequested) EventName() string {
	return "orders.refund.requested"
}
