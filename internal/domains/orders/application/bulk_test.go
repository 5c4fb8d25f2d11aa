package application

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

func TestApplyBulk_MixedOutcomes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedOrder(t, svc, "A")
	seedOrder(t, svc, "B", domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped)

	result, err := svc.ApplyBulk(ctx, ordertypes.BulkTransitionCommand{
		OrderIDs: []string{"A", "B"},
		To:       domain.StatusConfirmed,
		Actor:    "ops",
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Equal(t, 1, result.Successful)
	require.Equal(t, 1, result.Failed)

	require.Equal(t, "A", result.Items[0].OrderID)
	require.True(t, result.Items[0].Success)
	require.Equal(t, domain.StatusConfirmed, result.Items[0].NewStatus)

	require.Equal(t, "B", result.Items[1].OrderID)
	require.False(t, result.Items[1].Success)
	require.Equal(t, ordertypes.CodeInvalidTransition, result.Items[1].ErrorCode)
	require.Equal(t, "cannot move SHIPPED → CONFIRMED", result.Items[1].Error)

	b, err := svc.GetOrder(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, domain.StatusShipped, b.Status)
}

func TestApplyBulk_CountsMatchInvalidItems(t *testing.T) {
	svc, _ := newTestService(t, WithBulkConcurrency(4))
	ctx := context.Background()

	const n, k = 25, 7
	ids := make([]string, 0, n)
	for i := range n {
		id := fmt.Sprintf("o-%02d", i)
		if i < k {
			seedOrder(t, svc, id, domain.StatusCancelled)
		} else {
			seedOrder(t, svc, id)
		}
		ids = append(ids, id)
	}

	result, err := svc.ApplyBulk(ctx, ordertypes.BulkTransitionCommand{OrderIDs: ids, To: domain.StatusConfirmed, Actor: "ops"})
	require.NoError(t, err)
	require.Equal(t, n, result.Total)
	require.Equal(t, n-k, result.Successful)
	require.Equal(t, k, result.Failed)

	for i, id := range ids {
		require.Equal(t, id, result.Items[i].OrderID)
		order, err := svc.GetOrder(ctx, id)
		require.NoError(t, err)
		if i < k {
			require.Equal(t, domain.StatusCancelled, order.Status)
		} else {
			require.Equal(t, domain.StatusConfirmed, order.Status)
			require.Len(t, order.History, 1)
		}
	}
}

func TestApplyBulk_DuplicatesProcessedPerOccurrence(t *testing.T) {
	svc, _ := newTestService(t)
	seedOrder(t, svc, "A")

	result, err := svc.ApplyBulk(context.Background(), ordertypes.BulkTransitionCommand{
		OrderIDs: []string{"A", "A"},
		To:       domain.StatusConfirmed,
		Actor:    "ops",
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Equal(t, 1, result.Successful)
	require.Equal(t, 1, result.Failed)

	order, err := svc.GetOrder(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, order.History, 1)
	require.NoError(t, domain.VerifyOrderHistory(order))
}

func TestApplyBulk_EmptyInput(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.ApplyBulk(context.Background(), ordertypes.BulkTransitionCommand{To: domain.StatusConfirmed, Actor: "ops"})
	require.NoError(t, err)
	require.Zero(t, result.Total)
	require.Zero(t, result.Successful)
	require.Zero(t, result.Failed)
	require.Empty(t, result.Items)
}

func TestApplyBulk_MissingOrderReportedPerItem(t *testing.T) {
	svc, _ := newTestService(t)
	seedOrder(t, svc, "A")

	result, err := svc.ApplyBulk(context.Background(), ordertypes.BulkTransitionCommand{
		OrderIDs: []string{"ghost", "A"},
		To:       domain.StatusConfirmed,
		Actor:    "ops",
	})
	require.NoError(t, err)
	require.Equal(t, ordertypes.CodeNotFound, result.Items[0].ErrorCode)
	require.True(t, result.Items[1].Success)
}

func TestApplyBulk_RequestValidation(t *testing.T) {
	svc, _ := newTestService(t, WithMaxBulkItems(2))
	ctx := context.Background()

	_, err := svc.ApplyBulk(ctx, ordertypes.BulkTransitionCommand{OrderIDs: []string{"A"}, To: "NOPE", Actor: "ops"})
	require.ErrorIs(t, err, domain.ErrUnknownStatus)

	_, err = svc.ApplyBulk(ctx, ordertypes.BulkTransitionCommand{OrderIDs: []string{"A"}, To: domain.StatusConfirmed})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ApplyBulk(ctx, ordertypes.BulkTransitionCommand{OrderIDs: []string{"A", "B", "C"}, To: domain.StatusConfirmed, Actor: "ops"})
	require.ErrorIs(t, err, ErrTooManyItems)
}

func TestApplyBulk_RecordsOperation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedOrder(t, svc, "A")

	result, err := svc.ApplyBulk(ctx, ordertypes.BulkTransitionCommand{
		OperationID: "op-1",
		OrderIDs:    []string{"A"},
		To:          domain.StatusConfirmed,
		Actor:       "ops",
		Reason:      "batch confirm",
	})
	require.NoError(t, err)
	require.Equal(t, "op-1", result.OperationID)

	op, err := svc.GetBulkOperation(ctx, "op-1")
	require.NoError(t, err)
	require.Equal(t, "ops", op.Actor)
	require.Equal(t, domain.StatusConfirmed, op.Target)
	require.Equal(t, []string{"A"}, op.OrderIDs)
	require.Equal(t, 1, op.Result.Successful)
}

func TestApplyBulk_IgnoresCallerCancellation(t *testing.T) {
	svc, _ := newTestService(t)
	seedOrder(t, svc, "A")
	seedOrder(t, svc, "B")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.ApplyBulk(ctx, ordertypes.BulkTransitionCommand{
		OrderIDs: []string{"A", "B"},
		To:       domain.StatusConfirmed,
		Actor:    "ops",
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Successful)
}

func TestResumeTransitionItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cmd := ordertypes.BulkTransitionCommand{To: domain.StatusConfirmed, Actor: "ops", Reason: "batch"}

	seedOrder(t, svc, "fresh")
	item := svc.ResumeTransitionItem(ctx, "fresh", cmd)
	require.True(t, item.Success)

	item = svc.ResumeTransitionItem(ctx, "fresh", cmd)
	require.True(t, item.Success, "the committed attempt is recognised")

	seedOrder(t, svc, "other-reason")
	_, err := svc.TransitionOrder(ctx, ordertypes.TransitionCommand{OrderID: "other-reason", To: domain.StatusConfirmed, Actor: "ops", Reason: "manual"})
	require.NoError(t, err)
	item = svc.ResumeTransitionItem(ctx, "other-reason", cmd)
	require.False(t, item.Success)
	require.Equal(t, ordertypes.CodeInvalidTransition, item.ErrorCode)

	seedOrder(t, svc, "moved-on", domain.StatusConfirmed, domain.StatusProcessing)
	item = svc.ResumeTransitionItem(ctx, "moved-on", cmd)
	require.Equal(t, ordertypes.CodeInvalidTransition, item.ErrorCode)

	item = svc.ResumeTransitionItem(ctx, "missing", cmd)
	require.Equal(t, ordertypes.CodeNotFound, item.ErrorCode)
}
