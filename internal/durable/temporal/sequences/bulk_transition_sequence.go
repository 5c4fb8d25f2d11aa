package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	orderactivities "github.com/Apurer/storefront-orders/internal/platform/temporal/activities/orders"
)

// DefaultWaveSize bounds in-flight item activities when the command does not choose.
const DefaultWaveSize = 8

// RunBulkTransitionSequence fans the transition out in waves of at most Concurrency
// activities. Every item is reported in input order; an item whose activity exhausts its
// retries is recorded as an internal failure instead of failing the run.
func RunBulkTransitionSequence(ctx workflow.Context, operationID string, cmd ordertypes.BulkTransitionCommand) ordertypes.BulkResult {
	logger := workflow.GetLogger(ctx)
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})

	wave := cmd.Concurrency
	if wave <= 0 {
		wave = DefaultWaveSize
	}
	items := make([]ordertypes.BulkItemResult, len(cmd.OrderIDs))
	for start := 0; start < len(cmd.OrderIDs); start += wave {
		end := min(start+wave, len(cmd.OrderIDs))
		futures := make([]workflow.Future, 0, end-start)
		for _, id := range cmd.OrderIDs[start:end] {
			futures = append(futures, workflow.ExecuteActivity(ctx, orderactivities.TransitionItemActivityName,
				orderactivities.TransitionItemInput{OrderID: id, Command: cmd}))
		}
		for offset, future := range futures {
			idx := start + offset
			var item ordertypes.BulkItemResult
			if err := future.Get(ctx, &item); err != nil {
				logger.Warn("bulk item failed after retries", "operationId", operationID, "orderId", cmd.OrderIDs[idx], "error", err)
				item = ordertypes.BulkItemResult{
					OrderID:   cmd.OrderIDs[idx],
					Error:     err.Error(),
					ErrorCode: ordertypes.CodeInternal,
				}
			}
			items[idx] = item
		}
	}
	return ordertypes.NewBulkResult(operationID, items)
}

// RecordBulkOperation stores the audit record of a finished run.
func RecordBulkOperation(ctx workflow.Context, op ordertypes.BulkOperation) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	})
	return workflow.ExecuteActivity(ctx, orderactivities.RecordBulkOperationActivityName, op).Get(ctx, nil)
}
