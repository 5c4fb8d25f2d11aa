package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

// Fulfillment carries shipping metadata. Updating it never touches status.
type Fulfillment struct {
	TrackingNumber    string
	TrackingURL       string
	EstimatedDelivery *time.Time
}

// FulfillmentUpdate lists the fulfillment fields to overwrite; nil fields are left alone.
type FulfillmentUpdate struct {
	TrackingNumber    *string
	TrackingURL       *string
	EstimatedDelivery *time.Time
}

// Order is the aggregate root of the lifecycle engine.
type Order struct {
	ID            string
	Number        string
	CustomerID    string
	Status        Status
	PaymentStatus PaymentStatus
	Priority      Priority

	// Total is maintained by the pricing collaborator and trusted as-is.
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal

	Fulfillment Fulfillment
	DeliveredAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	// Version increases on every persisted mutation and guards against lost updates.
	Version int64

	History        []StatusHistoryEntry
	PaymentHistory []PaymentStatusEntry
}

// NewOrderParams describes an order handed over by checkout.
type NewOrderParams struct {
	ID            string
	Number        string
	CustomerID    string
	PaymentStatus PaymentStatus
	Priority      Priority
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
}

// NewOrder validates checkout input and constructs a PENDING order.
func NewOrder(params NewOrderParams, now time.Time) (*Order, error) {
	number := strings.TrimSpace(params.Number)
	if number == "" {
		return nil, ErrEmptyOrderNumber
	}
	customer := strings.TrimSpace(params.CustomerID)
	if customer == "" {
		return nil, ErrEmptyCustomer
	}
	payment := params.PaymentStatus
	if payment == "" {
		payment = PaymentPending
	}
	if payment != PaymentPending && payment != PaymentPaid {
		return nil, ErrInvalidCreation
	}
	priority := params.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.Valid() {
		return nil, &UnknownStatusError{Kind: "priority", Value: string(priority)}
	}
	for _, amount := range []decimal.Decimal{params.Subtotal, params.Tax, params.Shipping, params.Total} {
		if amount.IsNeg() {
			return nil, ErrNegativeAmount
		}
		if !CentPrecise(amount) {
			return nil, ErrAmountPrecision
		}
	}
	id := strings.TrimSpace(params.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return &Order{
		ID:            id,
		Number:        number,
		CustomerID:    customer,
		Status:        StatusPending,
		PaymentStatus: payment,
		Priority:      priority,
		Subtotal:      params.Subtotal,
		Tax:           params.Tax,
		Shipping:      params.Shipping,
		Total:         params.Total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ApplyTransition moves the order to status to and appends one history entry.
// On error the order is left untouched.
func (o *Order) ApplyTransition(to Status, actor, reason string, now time.Time) (StatusHistoryEntry, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return StatusHistoryEntry{}, ErrEmptyActor
	}
	if err := ValidateTransition(o.Status, to); err != nil {
		return StatusHistoryEntry{}, err
	}
	entry := StatusHistoryEntry{
		ID:      uuid.NewString(),
		OrderID: o.ID,
		From:    o.Status,
		To:      to,
		At:      now,
		Actor:   actor,
		Reason:  strings.TrimSpace(reason),
	}
	o.Status = to
	if to == StatusDelivered && o.DeliveredAt == nil {
		delivered := now
		o.DeliveredAt = &delivered
	}
	o.UpdatedAt = now
	o.History = append(o.History, entry)
	return entry, nil
}

// UpdatePaymentStatus is the explicit coupling point between fulfillment and payment:
// callers decide when a fulfillment change also moves money state.
func (o *Order) UpdatePaymentStatus(to PaymentStatus, actor, reason string, now time.Time) (PaymentStatusEntry, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return PaymentStatusEntry{}, ErrEmptyActor
	}
	if err := ValidatePaymentTransition(o.PaymentStatus, to); err != nil {
		return PaymentStatusEntry{}, err
	}
	entry := PaymentStatusEntry{
		ID:      uuid.NewString(),
		OrderID: o.ID,
		From:    o.PaymentStatus,
		To:      to,
		At:      now,
		Actor:   actor,
		Reason:  strings.TrimSpace(reason),
	}
	o.PaymentStatus = to
	o.UpdatedAt = now
	o.PaymentHistory = append(o.PaymentHistory, entry)
	return entry, nil
}

// UpdateFulfillment overwrites the provided tracking fields.
func (o *Order) UpdateFulfillment(update FulfillmentUpdate, now time.Time) {
	if update.TrackingNumber != nil {
		o.Fulfillment.TrackingNumber = strings.TrimSpace(*update.TrackingNumber)
	}
	if update.TrackingURL != nil {
		o.Fulfillment.TrackingURL = strings.TrimSpace(*update.TrackingURL)
	}
	if update.EstimatedDelivery != nil {
		eta := *update.EstimatedDelivery
		o.Fulfillment.EstimatedDelivery = &eta
	}
	o.UpdatedAt = now
}

// Clone returns a deep copy safe to hand across goroutines and adapters.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.DeliveredAt = cloneTime(o.DeliveredAt)
	clone.Fulfillment.EstimatedDelivery = cloneTime(o.Fulfillment.EstimatedDelivery)
	clone.History = slices.Clone(o.History)
	clone.PaymentHistory = slices.Clone(o.PaymentHistory)
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copy := *t
	return &copy
}
