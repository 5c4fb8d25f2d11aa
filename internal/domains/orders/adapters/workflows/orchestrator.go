package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
	orderworkflows "github.com/Apurer/storefront-orders/internal/durable/temporal/workflows/orders"
)

var (
	_ ports.BulkOrchestrator = (*TemporalBulkOrchestrator)(nil)
	_ ports.BulkOrchestrator = (*InlineBulkOrchestrator)(nil)
)

// BulkValidator rejects malformed bulk requests before any work is scheduled.
type BulkValidator interface {
	ValidateBulk(cmd ordertypes.BulkTransitionCommand) error
}

// TemporalBulkOrchestrator runs bulk transitions as Temporal workflows.
type TemporalBulkOrchestrator struct {
	client      client.Client
	validator   BulkValidator
	taskQueue   string
	concurrency int
}

// NewTemporalBulkOrchestrator wires a Temporal client into the orchestrator. concurrency is
// used when a request does not choose its own.
func NewTemporalBulkOrchestrator(c client.Client, validator BulkValidator, concurrency int) *TemporalBulkOrchestrator {
	return &TemporalBulkOrchestrator{
		client:      c,
		validator:   validator,
		taskQueue:   orderworkflows.BulkTransitionTaskQueue,
		concurrency: concurrency,
	}
}

// ApplyBulk starts the workflow and waits for its result. Reusing an operation id attaches
// to the run already started for it.
func (o *TemporalBulkOrchestrator) ApplyBulk(ctx context.Context, cmd ordertypes.BulkTransitionCommand) (*ordertypes.BulkResult, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal bulk orchestrator not configured")
	}
	if o.validator != nil {
		if err := o.validator.ValidateBulk(cmd); err != nil {
			return nil, err
		}
	}
	cmd.OperationID = strings.TrimSpace(cmd.OperationID)
	if cmd.OperationID == "" {
		cmd.OperationID = uuid.NewString()
	}
	if len(cmd.OrderIDs) == 0 {
		result := ordertypes.NewBulkResult(cmd.OperationID, []ordertypes.BulkItemResult{})
		return &result, nil
	}
	if cmd.Concurrency <= 0 {
		cmd.Concurrency = o.concurrency
	}

	workflowID := bulkWorkflowID(cmd.OperationID)
	run, err := o.client.ExecuteWorkflow(
		ctx,
		client.StartWorkflowOptions{ID: workflowID, TaskQueue: o.taskQueue},
		orderworkflows.BulkTransitionWorkflowName,
		orderworkflows.BulkTransitionWorkflowInput{
			OperationID: cmd.OperationID,
			Command:     cmd,
			TraceID:     workflowTraceID(ctx),
		},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) {
			return nil, err
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	var result ordertypes.BulkResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InlineBulkOrchestrator executes the service directly without Temporal, useful for tests or dev fallbacks.
type InlineBulkOrchestrator struct {
	service ports.Service
}

func NewInlineBulkOrchestrator(service ports.Service) *InlineBulkOrchestrator {
	return &InlineBulkOrchestrator{service: service}
}

// ApplyBulk delegates to the application service without durable orchestration.
func (o *InlineBulkOrchestrator) ApplyBulk(ctx context.Context, cmd ordertypes.BulkTransitionCommand) (*ordertypes.BulkResult, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline bulk orchestrator not configured")
	}
	return o.service.ApplyBulk(ctx, cmd)
}

func bulkWorkflowID(operationID string) string {
	return fmt.Sprintf("order-bulk-%s", operationID)
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
