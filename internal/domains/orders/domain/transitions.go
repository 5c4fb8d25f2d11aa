package domain

import "slices"

// transitions is the adjacency table for order statuses. Terminal states map to an empty set.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// paymentTransitions is validated separately so that fulfillment and payment never move
// each other implicitly.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPaid, PaymentFailed},
	PaymentFailed:   {PaymentPending, PaymentPaid},
	PaymentPaid:     {PaymentRefunded},
	PaymentRefunded: {},
}

// ValidateTransition decides whether to is reachable from from in one step.
func ValidateTransition(from, to Status) error {
	if !from.Valid() {
		return &UnknownStatusError{Kind: "order status", Value: string(from)}
	}
	if !to.Valid() {
		return &UnknownStatusError{Kind: "order status", Value: string(to)}
	}
	if !slices.Contains(transitions[from], to) {
		return &InvalidTransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// CanTransition is the boolean form of ValidateTransition.
func CanTransition(from, to Status) bool {
	return ValidateTransition(from, to) == nil
}

// AllowedTargets returns the statuses reachable from from in one step. The result is a copy.
func AllowedTargets(from Status) []Status {
	return slices.Clone(transitions[from])
}

// IsTerminal reports whether status has no outgoing transitions.
func IsTerminal(status Status) bool {
	targets, ok := transitions[status]
	return ok && len(targets) == 0
}

// ValidatePaymentTransition decides whether a payment status change is legal.
func ValidatePaymentTransition(from, to PaymentStatus) error {
	if !from.Valid() {
		return &UnknownStatusError{Kind: "payment status", Value: string(from)}
	}
	if !to.Valid() {
		return &UnknownStatusError{Kind: "payment status", Value: string(to)}
	}
	if !slices.Contains(paymentTransitions[from], to) {
		return &InvalidTransitionError{From: string(from), To: string(to)}
	}
	return nil
}
