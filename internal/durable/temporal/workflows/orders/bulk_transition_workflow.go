package orders

import (
	"strings"

	"go.temporal.io/sdk/workflow"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/durable/temporal/sequences"
)

const (
	// BulkTransitionWorkflowName is the public identifier for registering the workflow.
	BulkTransitionWorkflowName = "orders.workflows.BulkTransition"
	// BulkTransitionTaskQueue is the queue consumed by the worker processing bulk runs.
	BulkTransitionTaskQueue = "ORDER_BULK_TRANSITIONS"
)

// BulkTransitionWorkflowInput captures one bulk request. OperationID doubles as the workflow id suffix.
type BulkTransitionWorkflowInput struct {
	OperationID string
	Command     ordertypes.BulkTransitionCommand
	TraceID     string
}

// BulkTransitionWorkflow applies the transition to every order and records the audit entry.
// The result is returned even when recording fails so callers still see the item outcomes.
func BulkTransitionWorkflow(ctx workflow.Context, input BulkTransitionWorkflowInput) (*ordertypes.BulkResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("BulkTransitionWorkflow started", withTraceID(input.TraceID, "operationId", input.OperationID, "orders", len(input.Command.OrderIDs))...)

	startedAt := workflow.Now(ctx)
	result := sequences.RunBulkTransitionSequence(ctx, input.OperationID, input.Command)

	err := sequences.RecordBulkOperation(ctx, ordertypes.BulkOperation{
		ID:          input.OperationID,
		Actor:       strings.TrimSpace(input.Command.Actor),
		Target:      input.Command.To,
		Reason:      strings.TrimSpace(input.Command.Reason),
		OrderIDs:    input.Command.OrderIDs,
		Result:      result,
		StartedAt:   startedAt,
		CompletedAt: workflow.Now(ctx),
	})
	if err != nil {
		logger.Error("BulkTransitionWorkflow failed to record operation", withTraceID(input.TraceID, "operationId", input.OperationID, "error", err)...)
	}
	logger.Info("BulkTransitionWorkflow completed", withTraceID(input.TraceID,
		"operationId", input.OperationID, "successful", result.Successful, "failed", result.Failed)...)
	return &result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
