package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

// RefundStatus tracks the approval workflow of a refund. Only creation is handled here.
type RefundStatus string

const (
	RefundPending   RefundStatus = "PENDING"
	RefundApproved  RefundStatus = "APPROVED"
	RefundProcessed RefundStatus = "PROCESSED"
	RefundRejected  RefundStatus = "REJECTED"
)

// Valid reports whether s is a member of the refund status enumeration.
func (s RefundStatus) Valid() bool {
	switch s {
	case RefundPending, RefundApproved, RefundProcessed, RefundRejected:
		return true
	default:
		return false
	}
}

// Refund is owned by an order; zero or more per order.
type Refund struct {
	ID        string
	OrderID   string
	Amount    decimal.Decimal
	Status    RefundStatus
	Reason    string
	CreatedAt time.Time
}

// MoneyScale is the number of decimal places stored for every monetary amount.
const MoneyScale = 2

// CentPrecise reports whether d is representable in MoneyScale decimal places. Trailing
// zeros do not count, so 0.100 is accepted.
func CentPrecise(d decimal.Decimal) bool {
	return d.Trim(MoneyScale).Scale() <= MoneyScale
}

// RefundEligible reports whether the order's status pair admits a refund.
func RefundEligible(o *Order) bool {
	return o != nil && o.Status == StatusDelivered && o.PaymentStatus == PaymentPaid
}

// AuthorizeRefund gates refund creation. It never changes the order.
func AuthorizeRefund(o *Order, amount decimal.Decimal, reason string, now time.Time) (Refund, error) {
	if !RefundEligible(o) {
		return Refund{}, ErrRefundNotEligible
	}
	if !amount.IsPos() {
		return Refund{}, ErrRefundAmountNonPositive
	}
	if !CentPrecise(amount) {
		return Refund{}, ErrRefundAmountPrecision
	}
	if amount.Cmp(o.Total) > 0 {
		return Refund{}, ErrRefundAmountExceedsTotal
	}
	return Refund{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		Amount:    amount,
		Status:    RefundPending,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: now,
	}, nil
}

// CheckCumulativeRefunds rejects amount when, together with the existing non-rejected
// refunds, it would exceed total.
func CheckCumulativeRefunds(existing []Refund, amount, total decimal.Decimal) error {
	sum := amount
	for _, refund := range existing {
		if refund.Status == RefundRejected {
			continue
		}
		next, err := sum.Add(refund.Amount)
		if err != nil {
			return err
		}
		sum = next
	}
	if sum.Cmp(total) > 0 {
		return ErrRefundCumulativeExceeded
	}
	return nil
}
