// Package audit runs the offline history audit over every stored order.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Apurer/storefront-orders/internal/app/api"
	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
	platformobservability "github.com/Apurer/storefront-orders/internal/platform/observability"
)

// ErrViolations is returned when at least one order failed the audit.
var ErrViolations = errors.New("order history violations found")

// Auditor is the audit use case of the orders service.
type Auditor interface {
	AuditHistories(ctx context.Context, filter ports.ListFilter) (*ordertypes.AuditReport, error)
}

// Execute audits, logs each violation and writes the JSON report to out.
func Execute(ctx context.Context, auditor Auditor, filter ports.ListFilter, logger *slog.Logger, out io.Writer) error {
	report, err := auditor.AuditHistories(ctx, filter)
	if err != nil {
		return fmt.Errorf("audit order histories: %w", err)
	}
	for _, v := range report.Violations {
		logger.Warn("order history violation",
			slog.String("order.id", v.OrderID),
			slog.String("order.number", v.OrderNumber),
			slog.String("order.status", string(v.Status)),
			slog.Int("entry", v.EntryIndex),
			slog.String("reason", v.Reason),
		)
	}
	logger.Info("order history audit completed", slog.Int("scanned", report.Scanned), slog.Int("violations", len(report.Violations)))
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("write audit report: %w", err)
	}
	if !report.Clean() {
		return ErrViolations
	}
	return nil
}

// Run loads configuration, connects to the order store and audits it.
func Run(ctx context.Context, out io.Writer) error {
	cfg, err := api.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := platformobservability.NewLogger(cfg.LogLevel).With(slog.String("service", "orders-history-audit"))
	if cfg.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN not set; nothing to audit")
	}
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
	return Execute(ctx, service, ports.ListFilter{Limit: cfg.AuditBatchSize}, logger, out)
}
