package orders

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
)

const (
	// TransitionItemActivityName applies the bulk transition to a single order.
	TransitionItemActivityName = "orders.activities.TransitionItem"
	// RecordBulkOperationActivityName stores the audit record of a finished bulk run.
	RecordBulkOperationActivityName = "orders.activities.RecordBulkOperation"
)

// ItemRunner is the slice of the orders service the bulk activities need.
type ItemRunner interface {
	TransitionItem(ctx context.Context, orderID string, cmd ordertypes.BulkTransitionCommand) ordertypes.BulkItemResult
	ResumeTransitionItem(ctx context.Context, orderID string, cmd ordertypes.BulkTransitionCommand) ordertypes.BulkItemResult
	RecordBulkOperation(ctx context.Context, op ordertypes.BulkOperation) error
}

// TransitionItemInput carries one occurrence of an order id from the bulk request.
type TransitionItemInput struct {
	OrderID string
	Command ordertypes.BulkTransitionCommand
}

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	runner ItemRunner
}

// NewActivities wires the orders service into the Temporal activities bundle.
func NewActivities(runner ItemRunner) *Activities {
	return &Activities{runner: runner}
}

// TransitionItem reports lifecycle failures as item results. Only conflicts and internal
// failures surface as activity errors so Temporal retries them. Retries go through
// ResumeTransitionItem since the previous attempt may have committed.
func (a *Activities) TransitionItem(ctx context.Context, input TransitionItemInput) (ordertypes.BulkItemResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.runner == nil {
		logger.Error("order bulk activity not initialized", "orderId", input.OrderID)
		return ordertypes.BulkItemResult{}, errors.New("order bulk activity not initialized")
	}
	var item ordertypes.BulkItemResult
	if activity.GetInfo(ctx).Attempt > 1 {
		item = a.runner.ResumeTransitionItem(ctx, input.OrderID, input.Command)
	} else {
		item = a.runner.TransitionItem(ctx, input.OrderID, input.Command)
	}
	if retryable(item.ErrorCode) {
		logger.Warn("TransitionItem attempt failed", "orderId", input.OrderID, "code", item.ErrorCode, "error", item.Error)
		return item, fmt.Errorf("transition %s: %s", input.OrderID, item.Error)
	}
	logger.Info("TransitionItem completed", "orderId", input.OrderID, "success", item.Success)
	return item, nil
}

// RecordBulkOperation persists the audit record; it is an upsert so retries are safe.
func (a *Activities) RecordBulkOperation(ctx context.Context, op ordertypes.BulkOperation) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.runner == nil {
		return errors.New("order bulk activity not initialized")
	}
	if err := a.runner.RecordBulkOperation(ctx, op); err != nil {
		logger.Error("RecordBulkOperation failed", "operationId", op.ID, "error", err)
		return err
	}
	logger.Info("RecordBulkOperation completed", "operationId", op.ID, "successful", op.Result.Successful, "failed", op.Result.Failed)
	return nil
}

func retryable(code string) bool {
	return code == ordertypes.CodeConflict || code == ordertypes.CodeInternal
}
