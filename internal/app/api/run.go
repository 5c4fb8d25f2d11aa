package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	orderhttp "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/http"
	orderobs "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/observability"
	orderworkflows "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/workflows"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
	platformobservability "github.com/Apurer/storefront-orders/internal/platform/observability"
	platformtemporal "github.com/Apurer/storefront-orders/internal/platform/temporal"
)

const serviceName = "orders-api"

// Run boots the orders HTTP API with observability, storage, and workflows wired.
// It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, ObservabilityConfig(cfg, serviceName))
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
	slog.SetDefault(logger)

	components := BuildComponents(ctx, cfg, logger)
	defer func() {
		if err := components.Close(); err != nil {
			logger.Warn("failed to close order components", slog.String("error", err.Error()))
		}
	}()
	core := NewOrderService(cfg, components, logger)
	service := orderobs.New(
		core,
		orderobs.WithLogger(logger),
		orderobs.WithTracer(instruments.Tracer("internal.orders.application")),
		orderobs.WithMeter(instruments.Meter("internal.orders.application")),
	)

	var bulk ports.BulkOrchestrator = orderworkflows.NewInlineBulkOrchestrator(service)
	if !components.Shared {
		logger.Warn("order store is process-local, running bulk transitions inline")
	} else {
		temporalClient, err := platformtemporal.Dial(platformtemporal.Options{
			Address:   cfg.TemporalAddress,
			Namespace: cfg.TemporalNamespace,
			Disabled:  cfg.TemporalDisabled,
			Logger:    logger,
			Tracer:    instruments.Tracer("temporal-client"),
		})
		if err != nil {
			logger.Warn("Temporal workflows unavailable, running bulk transitions inline", slog.String("error", err.Error()))
		} else {
			defer temporalClient.Close()
			bulk = orderworkflows.NewTemporalBulkOrchestrator(temporalClient, core, cfg.BulkConcurrency)
			logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
		}
	}

	router := NewRouter(orderhttp.NewOrdersAPI(service, bulk, orderhttp.NewActorResolver(cfg.ActorJWTSecret)))
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("orders API listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("orders API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("orders API shutting down")
	return server.Shutdown(shutdownCtx)
}

// NewRouter mounts the orders API under /v1 behind tracing middleware.
func NewRouter(orders *orderhttp.OrdersAPI) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	orders.Register(router.Group("/v1"))
	return router
}

// ObservabilityConfig projects the process config onto the telemetry settings.
func ObservabilityConfig(cfg Config, service string) platformobservability.Config {
	return platformobservability.Config{
		ServiceName:  service,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
		LogLevel:     cfg.LogLevel,
	}
}
