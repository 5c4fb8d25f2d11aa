// Package worker hosts the Temporal worker that executes bulk transition workflows.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/storefront-orders/internal/app/api"
	orderworkflows "github.com/Apurer/storefront-orders/internal/durable/temporal/workflows/orders"
	platformobservability "github.com/Apurer/storefront-orders/internal/platform/observability"
	platformtemporal "github.com/Apurer/storefront-orders/internal/platform/temporal"
	orderactivities "github.com/Apurer/storefront-orders/internal/platform/temporal/activities/orders"
)

const serviceName = "orders-worker"

// Registrar is the part of worker.Worker used to register workflows and activities.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register installs the bulk workflow and its activities under their stable names.
func Register(r Registrar, activities *orderactivities.Activities) {
	r.RegisterWorkflowWithOptions(orderworkflows.BulkTransitionWorkflow, workflow.RegisterOptions{Name: orderworkflows.BulkTransitionWorkflowName})
	r.RegisterActivityWithOptions(activities.TransitionItem, activity.RegisterOptions{Name: orderactivities.TransitionItemActivityName})
	r.RegisterActivityWithOptions(activities.RecordBulkOperation, activity.RegisterOptions{Name: orderactivities.RecordBulkOperationActivityName})
}

// Run connects to Temporal and processes bulk transitions until interrupted.
func Run(ctx context.Context) error {
	cfg, err := api.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, api.ObservabilityConfig(cfg, serviceName))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	components, err := api.BuildDurableComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.Warn("failed to close order components", slog.String("error", err.Error()))
		}
	}()
	service := api.NewOrderService(cfg, components, logger)

	temporalClient, err := platformtemporal.Dial(platformtemporal.Options{
		Address:   cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Disabled:  cfg.TemporalDisabled,
		Logger:    logger,
		Tracer:    instruments.Tracer("temporal-worker"),
	})
	if err != nil {
		return fmt.Errorf("create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.BulkTransitionTaskQueue, worker.Options{})
	Register(w, orderactivities.NewActivities(service))

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.BulkTransitionTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	interrupt := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(interrupt)
	}()
	if err := w.Run(interrupt); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Temporal worker stopped")
	return nil
}
