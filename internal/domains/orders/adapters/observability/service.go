package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

const tracerName = "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/observability/service"

// Service decorates the orders application port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, cmd ordertypes.CreateOrderCommand) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "OrderService.CreateOrder", attribute.String("order.number", cmd.Number))
	defer span.End()

	s.logInfo(ctx, "creating order", slog.String("order.number", cmd.Number), slog.String("customer.id", cmd.CustomerID))
	result, err := s.inner.CreateOrder(ctx, cmd)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create order", slog.String("order.number", cmd.Number))
	}
	span.SetAttributes(attribute.String("order.id", result.ID))
	s.logInfo(ctx, "order created", slog.String("order.id", result.ID), slog.String("priority", string(result.Priority)))
	return result, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "OrderService.GetOrder", attribute.String("order.id", id))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.id", id))
	}
	return result, nil
}

func (s *Service) ListOrders(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "OrderService.ListOrders", attribute.Int("filter.limit", filter.Limit))
	defer span.End()

	result, err := s.inner.ListOrders(ctx, filter)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders")
	}
	span.SetAttributes(attribute.Int("orders.count", len(result)))
	return result, nil
}

func (s *Service) AllowedTransitions(ctx context.Context, id string) ([]domain.Status, error) {
	ctx, span := s.startSpan(ctx, "OrderService.AllowedTransitions", attribute.String("order.id", id))
	defer span.End()

	result, err := s.inner.AllowedTransitions(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to resolve allowed transitions", slog.String("order.id", id))
	}
	return result, nil
}

// TransitionOrder records one transition with its outcome.
func (s *Service) TransitionOrder(ctx context.Context, cmd ordertypes.TransitionCommand) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "OrderService.TransitionOrder",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.status.target", string(cmd.To)),
		attribute.String("actor", cmd.Actor),
	)
	defer span.End()

	s.logInfo(ctx, "transitioning order", slog.String("order.id", cmd.OrderID), slog.String("to", string(cmd.To)), slog.String("actor", cmd.Actor))
	result, err := s.inner.TransitionOrder(ctx, cmd)
	if err != nil {
		s.metrics.recordTransition(ctx, cmd.To, "rejected")
		return nil, s.handleError(ctx, span, err, "order transition failed", slog.String("order.id", cmd.OrderID), slog.String("to", string(cmd.To)))
	}
	s.metrics.recordTransition(ctx, result.Status, "applied")
	s.logInfo(ctx, "order transitioned", slog.String("order.id", result.ID), slog.String("status", string(result.Status)), slog.Int64("version", result.Version))
	return result, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, cmd ordertypes.PaymentStatusCommand) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "OrderService.UpdatePaymentStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.payment_status.target", string(cmd.To)),
	)
	defer span.End()

	s.logInfo(ctx, "updating payment status", slog.String("order.id", cmd.OrderID), slog.String("to", string(cmd.To)))
	result, err := s.inner.UpdatePaymentStatus(ctx, cmd)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "payment status update failed", slog.String("order.id", cmd.OrderID))
	}
	return result, nil
}

func (s *Service) UpdateFulfillment(ctx context.Context, cmd ordertypes.FulfillmentCommand) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "OrderService.UpdateFulfillment", attribute.String("order.id", cmd.OrderID))
	defer span.End()

	result, err := s.inner.UpdateFulfillment(ctx, cmd)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "fulfillment update failed", slog.String("order.id", cmd.OrderID))
	}
	s.logInfo(ctx, "fulfillment updated", slog.String("order.id", result.ID), slog.String("tracking", result.Fulfillment.TrackingNumber))
	return result, nil
}

// RequestRefund records authorization outcomes; amounts go to logs only.
func (s *Service) RequestRefund(ctx context.Context, cmd ordertypes.RefundCommand) (*domain.Refund, error) {
	ctx, span := s.startSpan(ctx, "OrderService.RequestRefund", attribute.String("order.id", cmd.OrderID))
	defer span.End()

	s.logInfo(ctx, "requesting refund", slog.String("order.id", cmd.OrderID), slog.String("amount", cmd.Amount.String()))
	result, err := s.inner.RequestRefund(ctx, cmd)
	if err != nil {
		s.metrics.recordRefund(ctx, "rejected")
		return nil, s.handleError(ctx, span, err, "refund rejected", slog.String("order.id", cmd.OrderID))
	}
	s.metrics.recordRefund(ctx, "authorized")
	span.SetAttributes(attribute.String("refund.id", result.ID))
	s.logInfo(ctx, "refund authorized", slog.String("order.id", result.OrderID), slog.String("refund.id", result.ID))
	return result, nil
}

func (s *Service) ListRefunds(ctx context.Context, orderID string) ([]domain.Refund, error) {
	ctx, span := s.startSpan(ctx, "OrderService.ListRefunds", attribute.String("order.id", orderID))
	defer span.End()

	result, err := s.inner.ListRefunds(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list refunds", slog.String("order.id", orderID))
	}
	return result, nil
}

func (s *Service) AddNote(ctx context.Context, cmd ordertypes.NoteCommand) (*domain.OrderNote, error) {
	ctx, span := s.startSpan(ctx, "OrderService.AddNote", attribute.String("order.id", cmd.OrderID), attribute.Bool("note.internal", cmd.Internal))
	defer span.End()

	result, err := s.inner.AddNote(ctx, cmd)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to add note", slog.String("order.id", cmd.OrderID))
	}
	return result, nil
}

func (s *Service) ListNotes(ctx context.Context, orderID string) ([]domain.OrderNote, error) {
	ctx, span := s.startSpan(ctx, "OrderService.ListNotes", attribute.String("order.id", orderID))
	defer span.End()

	result, err := s.inner.ListNotes(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list notes", slog.String("order.id", orderID))
	}
	return result, nil
}

// ApplyBulk counts per-item outcomes; item failures are not span errors.
func (s *Service) ApplyBulk(ctx context.Context, cmd ordertypes.BulkTransitionCommand) (*ordertypes.BulkResult, error) {
	ctx, span := s.startSpan(ctx, "OrderService.ApplyBulk",
		attribute.Int("bulk.requested", len(cmd.OrderIDs)),
		attribute.String("order.status.target", string(cmd.To)),
	)
	defer span.End()

	s.logInfo(ctx, "applying bulk transition", slog.Int("orders", len(cmd.OrderIDs)), slog.String("to", string(cmd.To)), slog.String("actor", cmd.Actor))
	result, err := s.inner.ApplyBulk(ctx, cmd)
	if result != nil {
		s.metrics.recordBulk(ctx, result)
		span.SetAttributes(
			attribute.String("bulk.operation_id", result.OperationID),
			attribute.Int("bulk.successful", result.Successful),
			attribute.Int("bulk.failed", result.Failed),
		)
	}
	if err != nil {
		return result, s.handleError(ctx, span, err, "bulk transition failed", slog.Int("orders", len(cmd.OrderIDs)))
	}
	s.logInfo(ctx, "bulk transition finished",
		slog.String("operation.id", result.OperationID),
		slog.Int("successful", result.Successful),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) GetBulkOperation(ctx context.Context, id string) (*ordertypes.BulkOperation, error) {
	ctx, span := s.startSpan(ctx, "OrderService.GetBulkOperation", attribute.String("bulk.operation_id", id))
	defer span.End()

	result, err := s.inner.GetBulkOperation(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load bulk operation", slog.String("operation.id", id))
	}
	return result, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	transitions metric.Int64Counter
	refunds     metric.Int64Counter
	bulkItems   metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	transitions, _ := m.Int64Counter("orders.service.transitions", metric.WithDescription("Order status transitions by outcome"))
	refunds, _ := m.Int64Counter("orders.service.refunds", metric.WithDescription("Refund requests by outcome"))
	bulkItems, _ := m.Int64Counter("orders.service.bulk_items", metric.WithDescription("Bulk transition items by outcome"))
	return serviceMetrics{transitions: transitions, refunds: refunds, bulkItems: bulkItems}
}

func (m serviceMetrics) recordTransition(ctx context.Context, status domain.Status, outcome string) {
	addCounter(ctx, m.transitions, 1, attribute.String("order.status", string(status)), attribute.String("outcome", outcome))
}

func (m serviceMetrics) recordRefund(ctx context.Context, outcome string) {
	addCounter(ctx, m.refunds, 1, attribute.String("outcome", outcome))
}

func (m serviceMetrics) recordBulk(ctx context.Context, result *ordertypes.BulkResult) {
	addCounter(ctx, m.bulkItems, int64(result.Successful), attribute.String("outcome", "success"))
	addCounter(ctx, m.bulkItems, int64(result.Failed), attribute.String("outcome", "failure"))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil || value == 0 {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
