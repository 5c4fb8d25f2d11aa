package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifyOrderHistory_LegalWalk(t *testing.T) {
	order := newTestOrder(t)
	base := order.CreatedAt
	for i, next := range []Status{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusRefunded} {
		_, err := order.ApplyTransition(next, "ops", "", base.Add(time.Duration(i+1)*time.Minute))
		require.NoError(t, err)
	}
	require.NoError(t, VerifyOrderHistory(order))
}

func TestVerifyHistory_OrdersByTimestamp(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []StatusHistoryEntry{
		{From: StatusConfirmed, To: StatusCancelled, At: base.Add(2 * time.Minute)},
		{From: StatusPending, To: StatusConfirmed, At: base.Add(time.Minute)},
	}
	require.NoError(t, VerifyHistory(StatusPending, StatusCancelled, entries))
}

func TestVerifyHistory_DetectsBrokenWalk(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	gap := []StatusHistoryEntry{
		{From: StatusPending, To: StatusConfirmed, At: base},
		{From: StatusProcessing, To: StatusShipped, At: base.Add(time.Minute)},
	}
	err := VerifyHistory(StatusPending, StatusShipped, gap)
	var violation *HistoryViolationError
	require.ErrorAs(t, err, &violation)
	require.Equal(t, 1, violation.Index)

	illegal := []StatusHistoryEntry{{From: StatusPending, To: StatusShipped, At: base}}
	require.ErrorAs(t, VerifyHistory(StatusPending, StatusShipped, illegal), &violation)
	require.Equal(t, 0, violation.Index)

	require.ErrorAs(t, VerifyHistory(StatusPending, StatusConfirmed, nil), &violation)
}
