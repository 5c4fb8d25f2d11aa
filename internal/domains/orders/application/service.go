package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

// DefaultBulkConcurrency bounds bulk fan-out when neither caller nor config chooses.
const DefaultBulkConcurrency = 8

// Service orchestrates the order lifecycle use cases.
type Service struct {
	store       ports.Store
	idempotency ports.IdempotencyStore
	locker      ports.OrderLocker
	events      ports.EventPublisher
	logger      *slog.Logger
	now         func() time.Time

	bulkConcurrency     int
	maxBulkItems        int
	cumulativeRefundCap bool
}

// Option configures optional collaborators and policies.
type Option func(*Service)

// WithLocker installs the per-order guard used around read-validate-write cycles.
func WithLocker(locker ports.OrderLocker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithIdempotencyStore enables Idempotency-Key handling for refund requests.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

// WithEventPublisher installs the downstream event sink.
func WithEventPublisher(publisher ports.EventPublisher) Option {
	return func(s *Service) {
		s.events = publisher
	}
}

// WithLogger sets the logger used for failures that must not fail the request.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBulkConcurrency sets the default worker count for ApplyBulk.
func WithBulkConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bulkConcurrency = n
		}
	}
}

// WithMaxBulkItems caps the number of ids accepted by ApplyBulk. Zero disables the cap.
func WithMaxBulkItems(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxBulkItems = n
		}
	}
}

// WithCumulativeRefundCap rejects refunds whose running total would exceed the order total.
func WithCumulativeRefundCap(enabled bool) Option {
	return func(s *Service) {
		s.cumulativeRefundCap = enabled
	}
}

// NewService wires the orders service with its dependencies.
func NewService(store ports.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		locker:          noopLocker{},
		logger:          slog.New(slog.DiscardHandler),
		now:             time.Now,
		bulkConcurrency: DefaultBulkConcurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateOrder records an order handed over by checkout.
func (s *Service) CreateOrder(ctx context.Context, cmd ordertypes.CreateOrderCommand) (*domain.Order, error) {
	order, err := domain.NewOrder(domain.NewOrderParams{
		ID:            cmd.ID,
		Number:        cmd.Number,
		CustomerID:    cmd.CustomerID,
		PaymentStatus: cmd.PaymentStatus,
		Priority:      cmd.Priority,
		Subtotal:      cmd.Subtotal,
		Tax:           cmd.Tax,
		Shipping:      cmd.Shipping,
		Total:         cmd.Total,
	}, s.now())
	if err != nil {
		return nil, mapError(err)
	}
	saved, err := s.store.Create(ctx, order)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// GetOrder loads a single order including its history.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

// ListOrders returns orders matching filter.
func (s *Service) ListOrders(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	orders, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return orders, nil
}

// AllowedTransitions lists the statuses the order can move to next.
func (s *Service) AllowedTransitions(ctx context.Context, id string) ([]domain.Status, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.AllowedTargets(order.Status), nil
}

// TransitionOrder applies one validated transition under the per-order guard.
// A rejected transition leaves the persisted order and its history unchanged.
func (s *Service) TransitionOrder(ctx context.Context, cmd ordertypes.TransitionCommand) (*domain.Order, error) {
	var entry domain.StatusHistoryEntry
	saved, err := s.mutate(ctx, cmd.OrderID, func(order *domain.Order, now time.Time) error {
		var err error
		entry, err = order.ApplyTransition(cmd.To, cmd.Actor, cmd.Reason, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.OrderStatusChanged{
		BaseEvent:   domain.BaseEvent{OrderID: saved.ID, Timestamp: entry.At},
		OrderNumber: saved.Number,
		FromStatus:  entry.From,
		ToStatus:    entry.To,
		Actor:       entry.Actor,
		Reason:      entry.Reason,
	})
	return saved, nil
}

// UpdatePaymentStatus moves the payment state machine. It is the only way payment status
// changes; fulfillment transitions never touch it.
func (s *Service) UpdatePaymentStatus(ctx context.Context, cmd ordertypes.PaymentStatusCommand) (*domain.Order, error) {
	var entry domain.PaymentStatusEntry
	saved, err := s.mutate(ctx, cmd.OrderID, func(order *domain.Order, now time.Time) error {
		var err error
		entry, err = order.UpdatePaymentStatus(cmd.To, cmd.Actor, cmd.Reason, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.PaymentStatusChanged{
		BaseEvent:   domain.BaseEvent{OrderID: saved.ID, Timestamp: entry.At},
		OrderNumber: saved.Number,
		FromStatus:  entry.From,
		ToStatus:    entry.To,
		Actor:       entry.Actor,
		Reason:      entry.Reason,
	})
	return saved, nil
}

// UpdateFulfillment overwrites tracking metadata.
func (s *Service) UpdateFulfillment(ctx context.Context, cmd ordertypes.FulfillmentCommand) (*domain.Order, error) {
	if strings.TrimSpace(cmd.Actor) == "" {
		return nil, mapError(domain.ErrEmptyActor)
	}
	return s.mutate(ctx, cmd.OrderID, func(order *domain.Order, now time.Time) error {
		order.UpdateFulfillment(cmd.Update, now)
		return nil
	})
}

// RequestRefund authorizes and records a refund against the order's current persisted state.
//
// With an idempotency key the key is reserved, bound to the new refund's id, before the refund
// is written. A retry after any partial failure therefore resolves to that same refund id and
// either replays the stored refund or finishes writing it; it never authorizes a second one.
func (s *Service) RequestRefund(ctx context.Context, cmd ordertypes.RefundCommand) (*domain.Refund, error) {
	if strings.TrimSpace(cmd.Actor) == "" {
		return nil, mapError(domain.ErrEmptyActor)
	}
	id, err := requireID(cmd.OrderID)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	key, hash, reserved, err := s.lookupIdempotentRefund(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	if reserved != nil {
		stored, err := s.findRefund(ctx, id, reserved.RefundID)
		if err != nil || stored != nil {
			return stored, err
		}
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	refund, err := domain.AuthorizeRefund(order, cmd.Amount, cmd.Reason, s.now())
	if err != nil {
		return nil, err
	}
	if s.cumulativeRefundCap {
		existing, err := s.store.ListRefunds(ctx, id)
		if err != nil {
			return nil, mapError(err)
		}
		if err := domain.CheckCumulativeRefunds(existing, cmd.Amount, order.Total); err != nil {
			return nil, err
		}
	}

	if reserved == nil && key != "" {
		reserved, err = s.idempotency.Save(ctx, ports.IdempotencyRecord{
			Key:         key,
			RequestHash: hash,
			OrderID:     id,
			RefundID:    refund.ID,
		})
		if err != nil {
			return nil, err
		}
		if reserved.RefundID != refund.ID {
			stored, err := s.findRefund(ctx, id, reserved.RefundID)
			if err != nil || stored != nil {
				return stored, err
			}
		}
	}
	if reserved != nil {
		refund.ID = reserved.RefundID
	}

	if err := s.store.SaveRefund(ctx, refund); err != nil {
		if reserved != nil && errors.Is(err, ports.ErrDuplicate) {
			if stored, findErr := s.findRefund(ctx, id, refund.ID); findErr == nil && stored != nil {
				return stored, nil
			}
		}
		return nil, mapError(err)
	}
	s.publish(ctx, domain.RefundRequested{
		BaseEvent: domain.BaseEvent{OrderID: order.ID, Timestamp: refund.CreatedAt},
		RefundID:  refund.ID,
		Amount:    refund.Amount.String(),
		Actor:     strings.TrimSpace(cmd.Actor),
		Reason:    refund.Reason,
	})
	return &refund, nil
}

// lookupIdempotentRefund returns the normalized key and request hash, plus the record an
// earlier request with the same key reserved. A key reused for another payload or order is
// ErrIdempotencyConflict.
func (s *Service) lookupIdempotentRefund(ctx context.Context, orderID string, cmd ordertypes.RefundCommand) (string, string, *ports.IdempotencyRecord, error) {
	key := strings.TrimSpace(cmd.IdempotencyKey)
	if key == "" || s.idempotency == nil {
		return "", "", nil, nil
	}
	hash, err := FingerprintRefund(cmd)
	if err != nil {
		return "", "", nil, err
	}
	record, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return "", "", nil, err
	}
	if record != nil && (record.RequestHash != hash || record.OrderID != orderID) {
		return "", "", nil, ports.ErrIdempotencyConflict
	}
	return key, hash, record, nil
}

// findRefund returns the order's refund with refundID, or nil when it was never written.
func (s *Service) findRefund(ctx context.Context, orderID, refundID string) (*domain.Refund, error) {
	refunds, err := s.store.ListRefunds(ctx, orderID)
	if err != nil {
		return nil, mapError(err)
	}
	for i := range refunds {
		if refunds[i].ID == refundID {
			return &refunds[i], nil
		}
	}
	return nil, nil
}

// ListRefunds returns the refunds recorded for an order.
func (s *Service) ListRefunds(ctx context.Context, orderID string) ([]domain.Refund, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	refunds, err := s.store.ListRefunds(ctx, order.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return refunds, nil
}

// AddNote appends an operator note to an existing order.
func (s *Service) AddNote(ctx context.Context, cmd ordertypes.NoteCommand) (*domain.OrderNote, error) {
	order, err := s.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	note, err := domain.NewNote(order.ID, cmd.Author, cmd.Body, cmd.Internal, s.now())
	if err != nil {
		return nil, mapError(err)
	}
	if err := s.store.AddNote(ctx, note); err != nil {
		return nil, mapError(err)
	}
	return &note, nil
}

// ListNotes returns the notes of an order, oldest first.
func (s *Service) ListNotes(ctx context.Context, orderID string) ([]domain.OrderNote, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, order.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return notes, nil
}

// GetBulkOperation loads the audit record of a bulk request.
func (s *Service) GetBulkOperation(ctx context.Context, id string) (*ordertypes.BulkOperation, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	return s.store.GetBulkOperation(ctx, id)
}

// mutate runs fn against the freshly loaded order while holding the per-order guard and
// persists the result with an optimistic version check.
func (s *Service) mutate(ctx context.Context, rawID string, fn func(order *domain.Order, now time.Time) error) (*domain.Order, error) {
	id, err := requireID(rawID)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	if err := fn(order, s.now()); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.store.Update(ctx, order)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

func (s *Service) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "order event publish failed",
			slog.String("event", event.EventName()),
			slog.String("order.id", event.AggregateID()),
			slog.String("error", err.Error()),
		)
	}
}

func requireID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	return id, nil
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

var _ ports.Service = (*Service)(nil)
