package domain

import (
	"fmt"
	"slices"
	"time"
)

// StatusHistoryEntry records one successful status transition. Entries are never edited.
type StatusHistoryEntry struct {
	ID      string
	OrderID string
	From    Status
	To      Status
	At      time.Time
	Actor   string
	Reason  string
}

// PaymentStatusEntry records one successful payment status change.
type PaymentStatusEntry struct {
	ID      string
	OrderID string
	From    PaymentStatus
	To      PaymentStatus
	At      time.Time
	Actor   string
	Reason  string
}

// HistoryViolationError pinpoints the first entry that breaks the walk.
type HistoryViolationError struct {
	Index  int
	Reason string
}

func (e *HistoryViolationError) Error() string {
	return fmt.Sprintf("history entry %d: %s", e.Index, e.Reason)
}

// VerifyHistory checks that entries, ordered by timestamp, describe a walk over the legal
// transition graph that starts at initial and ends at current.
func VerifyHistory(initial, current Status, entries []StatusHistoryEntry) error {
	ordered := slices.Clone(entries)
	slices.SortStableFunc(ordered, func(a, b StatusHistoryEntry) int {
		return a.At.Compare(b.At)
	})
	position := initial
	for i, entry := range ordered {
		if entry.From != position {
			return &HistoryViolationError{
				Index:  i,
				Reason: fmt.Sprintf("starts at %s but order was %s", entry.From, position),
			}
		}
		if err := ValidateTransition(entry.From, entry.To); err != nil {
			return &HistoryViolationError{Index: i, Reason: err.Error()}
		}
		position = entry.To
	}
	if position != current {
		return &HistoryViolationError{
			Index:  len(ordered),
			Reason: fmt.Sprintf("walk ends at %s but order is %s", position, current),
		}
	}
	return nil
}

// VerifyOrderHistory applies VerifyHistory to an order created as PENDING.
func VerifyOrderHistory(o *Order) error {
	return VerifyHistory(StatusPending, o.Status, o.History)
}
