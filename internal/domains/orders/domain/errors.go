package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStatus is matched by every UnknownStatusError.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrInvalidTransition is matched by every InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrRefundNotEligible = errors.New("order is not eligible for a refund")
	// ErrRefundInvalidAmount is the parent of the two amount diagnostics below.
	ErrRefundInvalidAmount      = errors.New("invalid refund amount")
	ErrRefundAmountNonPositive  = fmt.Errorf("%w: amount must be greater than zero", ErrRefundInvalidAmount)
	ErrRefundAmountExceedsTotal = fmt.Errorf("%w: amount exceeds order total", ErrRefundInvalidAmount)
	ErrRefundCumulativeExceeded = fmt.Errorf("%w: refunds would exceed order total", ErrRefundInvalidAmount)
	ErrRefundAmountPrecision    = fmt.Errorf("%w: amount has more than %d decimal places", ErrRefundInvalidAmount, MoneyScale)

	ErrEmptyOrderNumber = errors.New("order number is required")
	ErrEmptyCustomer    = errors.New("customer id is required")
	ErrEmptyActor       = errors.New("actor is required")
	ErrNegativeAmount   = errors.New("monetary amounts must not be negative")
	ErrAmountPrecision  = fmt.Errorf("monetary amounts must not have more than %d decimal places", MoneyScale)
	ErrInvalidCreation  = errors.New("orders must be created as PENDING with payment PENDING or PAID")
	ErrEmptyNote        = errors.New("note body is required")
)

// UnknownStatusError reports a value outside one of the closed enumerations.
type UnknownStatusError struct {
	Kind  string
	Value string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Value)
}

func (e *UnknownStatusError) Unwrap() error { return ErrUnknownStatus }

// InvalidTransitionError reports a requested edge missing from a transition table.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move %s → %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
