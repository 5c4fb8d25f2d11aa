package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/require"

	ordermemory "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/memory"
	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports/mock"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *ordermemory.Repository) {
	t.Helper()
	repo := ordermemory.NewRepository()
	opts = append([]Option{
		WithLocker(ordermemory.NewLocker()),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	return NewService(repo, opts...), repo
}

// seedOrder creates a paid order with total 100.00 and walks it through path.
func seedOrder(t *testing.T, svc *Service, id string, path ...domain.Status) *domain.Order {
	t.Helper()
	ctx := context.Background()
	order, err := svc.CreateOrder(ctx, ordertypes.CreateOrderCommand{
		ID:            id,
		Number:        "ORD-" + id,
		CustomerID:    "cust-1",
		PaymentStatus: domain.PaymentPaid,
		Subtotal:      decimal.MustParse("90.00"),
		Tax:           decimal.MustParse("5.00"),
		Shipping:      decimal.MustParse("5.00"),
		Total:         decimal.MustParse("100.00"),
	})
	require.NoError(t, err)
	for _, next := range path {
		order, err = svc.TransitionOrder(ctx, ordertypes.TransitionCommand{OrderID: id, To: next, Actor: "seed"})
		require.NoError(t, err)
	}
	return order
}

func TestCreateOrder_Success(t *testing.T) {
	svc, _ := newTestService(t)

	order := seedOrder(t, svc, "o-1")
	require.Equal(t, domain.StatusPending, order.Status)
	require.Equal(t, domain.PriorityNormal, order.Priority)
	require.Equal(t, int64(1), order.Version)
	require.Equal(t, testNow, order.CreatedAt)
}

func TestCreateOrder_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), ordertypes.CreateOrderCommand{CustomerID: "c"})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrEmptyOrderNumber)
}

func TestCreateOrder_Duplicate(t *testing.T) {
	svc, _ := newTestService(t)
	seedOrder(t, svc, "o-1")

	_, err := svc.CreateOrder(context.Background(), ordertypes.CreateOrderCommand{
		ID: "o-1", Number: "other", CustomerID: "c",
	})
	require.ErrorIs(t, err, ports.ErrDuplicate)
}

func TestTransitionOrder_IllegalLeavesOrderUnchanged(t *testing.T) {
	svc, repo := newTestService(t)
	seedOrder(t, svc, "o-1")

	_, err := svc.TransitionOrder(context.Background(), ordertypes.TransitionCommand{
		OrderID: "o-1", To: domain.StatusShipped, Actor: "ops",
	})
	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	require.Equal(t, "PENDING", transitionErr.From)
	require.Equal(t, "SHIPPED", transitionErr.To)

	stored, err := repo.GetByID(context.Background(), "o-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, stored.Status)
	require.Empty(t, stored.History)
	require.Equal(t, int64(1), stored.Version)
}

func TestTransitionOrder_PersistsHistory(t *testing.T) {
	svc, repo := newTestService(t)
	seedOrder(t, svc, "o-1")

	updated, err := svc.TransitionOrder(context.Background(), ordertypes.TransitionCommand{
		OrderID: "o-1", To: domain.StatusConfirmed, Actor: "ops", Reason: "stock reserved",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusConfirmed, updated.Status)
	require.Len(t, updated.History, 1)
	require.Equal(t, domain.StatusConfirmed, updated.History[0].To)
	require.Equal(t, "stock reserved", updated.History[0].Reason)

	stored, err := repo.GetByID(context.Background(), "o-1")
	require.NoError(t, err)
	require.NoError(t, domain.VerifyOrderHistory(stored))
}

func TestTransitionOrder_DeliveredAtSetOnce(t *testing.T) {
	svc, _ := newTestService(t)
	shipped := seedOrder(t, svc, "o-1", domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped)
	require.Nil(t, shipped.DeliveredAt)

	delivered, err := svc.TransitionOrder(context.Background(), ordertypes.TransitionCommand{
		OrderID: "o-1", To: domain.StatusDelivered, Actor: "carrier",
	})
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)

	_, err = svc.TransitionOrder(context.Background(), ordertypes.TransitionCommand{
		OrderID: "o-1", To: domain.StatusDelivered, Actor: "carrier",
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	again, err := svc.GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	require.Equal(t, *delivered.DeliveredAt, *again.DeliveredAt)
}

func TestTransitionOrder_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	seedOrder(t, svc, "o-1")
	ctx := context.Background()

	_, err := svc.TransitionOrder(ctx, ordertypes.TransitionCommand{OrderID: "missing", To: domain.StatusConfirmed, Actor: "ops"})
	require.ErrorIs(t, err, ports.ErrNotFound)

	_, err = svc.TransitionOrder(ctx, ordertypes.TransitionCommand{OrderID: "o-1", To: "ARCHIVED", Actor: "ops"})
	require.ErrorIs(t, err, domain.ErrUnknownStatus)

	_, err = svc.TransitionOrder(ctx, ordertypes.TransitionCommand{OrderID: "o-1", To: domain.StatusConfirmed})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.TransitionOrder(ctx, ordertypes.TransitionCommand{OrderID: " ", To: domain.StatusConfirmed, Actor: "ops"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransitionOrder_PublishesEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mock.NewMockEventPublisher(ctrl)
	svc, _ := newTestService(t, WithEventPublisher(publisher))
	seedOrder(t, svc, "o-1")

	publisher.EXPECT().Publish(gomock.Any(), gomock.AssignableToTypeOf(domain.OrderStatusChanged{})).
		DoAndReturn(func(_ context.Context, event domain.Event) error {
			changed := event.(domain.OrderStatusChanged)
			require.Equal(t, domain.StatusPending, changed.FromStatus)
			require.Equal(t, domain.StatusConfirmed, changed.ToStatus)
			require.Equal(t, "o-1", changed.AggregateID())
			return nil
		})

	_, err := svc.TransitionOrder(context.Background(), ordertypes.TransitionCommand{
		OrderID: "o-1", To: domain.StatusConfirmed, Actor: "ops",
	})
	require.NoError(t, err)
}

func TestTransitionOrder_PublishFailureIsLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mock.NewMockEventPublisher(ctrl)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	svc, _ := newTestService(t, WithEventPublisher(publisher), WithLogger(logger))
	seedOrder(t, svc, "o-1")

	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	updated, err := svc.TransitionOrder(context.Background(), ordertypes.TransitionCommand{
		OrderID: "o-1", To: domain.StatusConfirmed, Actor: "ops",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusConfirmed, updated.Status)
	require.Contains(t, buf.String(), "broker down")
}

func TestTransitionOrder_LockFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	locker := mock.NewMockOrderLocker(ctrl)
	repo := ordermemory.NewRepository()
	svc := NewService(repo, WithLocker(locker))

	locker.EXPECT().Lock(gomock.Any(), "o-1").Return(nil, ports.ErrLockNotAcquired)

	_, err := svc.TransitionOrder(context.Background(), ordertypes.TransitionCommand{
		OrderID: "o-1", To: domain.StatusConfirmed, Actor: "ops",
	})
	require.ErrorIs(t, err, ports.ErrLockNotAcquired)
	require.Equal(t, ordertypes.CodeConflict, ErrorCode(err))
}

func TestAllowedTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	seedOrder(t, svc, "o-1", domain.StatusConfirmed)

	targets, err := svc.AllowedTransitions(context.Background(), "o-1")
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.Status{domain.StatusProcessing, domain.StatusCancelled}, targets)
}

func TestUpdatePaymentStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedOrder(t, svc, "o-1", domain.StatusConfirmed)

	updated, err := svc.UpdatePaymentStatus(ctx, ordertypes.PaymentStatusCommand{
		OrderID: "o-1", To: domain.PaymentRefunded, Actor: "finance",
	})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentRefunded, updated.PaymentStatus)
	require.Equal(t, domain.StatusConfirmed, updated.Status)
	require.Len(t, updated.PaymentHistory, 1)

	_, err = svc.UpdatePaymentStatus(ctx, ordertypes.PaymentStatusCommand{
		OrderID: "o-1", To: domain.PaymentPending, Actor: "finance",
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateFulfillment(t *testing.T) {
	svc, _ := newTestService(t)
	seedOrder(t, svc, "o-1", domain.StatusConfirmed)

	tracking := "1Z999"
	updated, err := svc.UpdateFulfillment(context.Background(), ordertypes.FulfillmentCommand{
		OrderID: "o-1",
		Actor:   "warehouse",
		Update:  domain.FulfillmentUpdate{TrackingNumber: &tracking},
	})
	require.NoError(t, err)
	require.Equal(t, tracking, updated.Fulfillment.TrackingNumber)
	require.Equal(t, domain.StatusConfirmed, updated.Status)
	require.Len(t, updated.History, 1)

	_, err = svc.UpdateFulfillment(context.Background(), ordertypes.FulfillmentCommand{OrderID: "o-1"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRequestRefund_Scenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedOrder(t, svc, "o-1", domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered)

	_, err := svc.RequestRefund(ctx, ordertypes.RefundCommand{
		OrderID: "o-1", Amount: decimal.MustParse("150.00"), Actor: "support",
	})
	require.ErrorIs(t, err, domain.ErrRefundInvalidAmount)

	refund, err := svc.RequestRefund(ctx, ordertypes.RefundCommand{
		OrderID: "o-1", Amount: decimal.MustParse("40.00"), Actor: "support", Reason: "damaged",
	})
	require.NoError(t, err)
	require.Equal(t, 0, refund.Amount.Cmp(decimal.MustParse("40.00")))
	require.Equal(t, domain.RefundPending, refund.Status)

	order, err := svc.GetOrder(ctx, "o-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDelivered, order.Status)
	require.Equal(t, domain.PaymentPaid, order.PaymentStatus)

	refunds, err := svc.ListRefunds(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, refunds, 1)
}

func TestRequestRefund_NotEligible(t *testing.T) {
	svc, _ := newTestService(t)
	seedOrder(t, svc, "o-1", domain.StatusConfirmed)

	_, err := svc.RequestRefund(context.Background(), ordertypes.RefundCommand{
		OrderID: "o-1", Amount: decimal.MustParse("10.00"), Actor: "support",
	})
	require.ErrorIs(t, err, domain.ErrRefundNotEligible)
}

func TestRequestRefund_CumulativeCap(t *testing.T) {
	ctx := context.Background()
	delivered := []domain.Status{domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered}
	sixty := decimal.MustParse("60.00")

	uncapped, _ := newTestService(t)
	seedOrder(t, uncapped, "o-1", delivered...)
	for range 2 {
		_, err := uncapped.RequestRefund(ctx, ordertypes.RefundCommand{OrderID: "o-1", Amount: sixty, Actor: "support"})
		require.NoError(t, err)
	}

	capped, _ := newTestService(t, WithCumulativeRefundCap(true))
	seedOrder(t, capped, "o-1", delivered...)
	_, err := capped.RequestRefund(ctx, ordertypes.RefundCommand{OrderID: "o-1", Amount: sixty, Actor: "support"})
	require.NoError(t, err)
	_, err = capped.RequestRefund(ctx, ordertypes.RefundCommand{OrderID: "o-1", Amount: sixty, Actor: "support"})
	require.ErrorIs(t, err, domain.ErrRefundCumulativeExceeded)
	require.ErrorIs(t, err, domain.ErrRefundInvalidAmount)
}

func TestRequestRefund_IdempotencyKey(t *testing.T) {
	svc, _ := newTestService(t, WithIdempotencyStore(ordermemory.NewIdempotencyStore()))
	ctx := context.Background()
	seedOrder(t, svc, "o-1", domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered)

	cmd := ordertypes.RefundCommand{
		OrderID: "o-1", Amount: decimal.MustParse("25.00"), Actor: "support", IdempotencyKey: "key-1",
	}
	first, err := svc.RequestRefund(ctx, cmd)
	require.NoError(t, err)

	replay, err := svc.RequestRefund(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, first.ID, replay.ID)

	refunds, err := svc.ListRefunds(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, refunds, 1)

	cmd.Amount = decimal.MustParse("30.00")
	_, err = svc.RequestRefund(ctx, cmd)
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
}

// flakyIdempotencyStore fails the first saveFailures Save calls and can hide stored keys
// from Get to mimic a request racing another one.
type flakyIdempotencyStore struct {
	*ordermemory.IdempotencyStore
	saveFailures int
	blindGet     bool
}

func (s *flakyIdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	if s.blindGet {
		return nil, nil
	}
	return s.IdempotencyStore.Get(ctx, key)
}

func (s *flakyIdempotencyStore) Save(ctx context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	if s.saveFailures > 0 {
		s.saveFailures--
		return nil, errors.New("transient write failure")
	}
	return s.IdempotencyStore.Save(ctx, record)
}

// flakyRefundStore fails the first refundFailures SaveRefund calls.
type flakyRefundStore struct {
	*ordermemory.Repository
	refundFailures int
}

func (s *flakyRefundStore) SaveRefund(ctx context.Context, refund domain.Refund) error {
	if s.refundFailures > 0 {
		s.refundFailures--
		return errors.New("connection reset")
	}
	return s.Repository.SaveRefund(ctx, refund)
}

func deliveredRefundCommand(key string) ordertypes.RefundCommand {
	return ordertypes.RefundCommand{
		OrderID: "o-1", Amount: decimal.MustParse("25.00"), Actor: "support", IdempotencyKey: key,
	}
}

func TestRequestRefund_RetryAfterKeyWriteFailure(t *testing.T) {
	keys := &flakyIdempotencyStore{IdempotencyStore: ordermemory.NewIdempotencyStore(), saveFailures: 1}
	svc, _ := newTestService(t, WithIdempotencyStore(keys))
	ctx := context.Background()
	seedOrder(t, svc, "o-1", domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered)

	_, err := svc.RequestRefund(ctx, deliveredRefundCommand("key-1"))
	require.ErrorContains(t, err, "transient write failure")

	refunds, err := svc.ListRefunds(ctx, "o-1")
	require.NoError(t, err)
	require.Empty(t, refunds, "no refund without a reserved key")

	retried, err := svc.RequestRefund(ctx, deliveredRefundCommand("key-1"))
	require.NoError(t, err)
	replayed, err := svc.RequestRefund(ctx, deliveredRefundCommand("key-1"))
	require.NoError(t, err)
	require.Equal(t, retried.ID, replayed.ID)

	refunds, err = svc.ListRefunds(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, refunds, 1)
}

func TestRequestRefund_RetryAfterRefundWriteFailure(t *testing.T) {
	repo := &flakyRefundStore{Repository: ordermemory.NewRepository()}
	keys := ordermemory.NewIdempotencyStore()
	svc := NewService(repo,
		WithLocker(ordermemory.NewLocker()),
		WithIdempotencyStore(keys),
		WithClock(func() time.Time { return testNow }),
	)
	ctx := context.Background()
	seedOrder(t, svc, "o-1", domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered)

	repo.refundFailures = 1
	_, err := svc.RequestRefund(ctx, deliveredRefundCommand("key-1"))
	require.ErrorContains(t, err, "connection reset")
	reserved, err := keys.Get(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, reserved)

	refund, err := svc.RequestRefund(ctx, deliveredRefundCommand("key-1"))
	require.NoError(t, err)
	require.Equal(t, reserved.RefundID, refund.ID, "the retry completes the reserved refund")

	refunds, err := svc.ListRefunds(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, refunds, 1)
}

func TestRequestRefund_RacingKeyReplaysWinner(t *testing.T) {
	keys := &flakyIdempotencyStore{IdempotencyStore: ordermemory.NewIdempotencyStore()}
	svc, _ := newTestService(t, WithIdempotencyStore(keys))
	ctx := context.Background()
	seedOrder(t, svc, "o-1", domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered)

	winner, err := svc.RequestRefund(ctx, deliveredRefundCommand("key-1"))
	require.NoError(t, err)

	keys.blindGet = true
	loser, err := svc.RequestRefund(ctx, deliveredRefundCommand("key-1"))
	require.NoError(t, err)
	require.Equal(t, winner.ID, loser.ID)

	refunds, err := svc.ListRefunds(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, refunds, 1)
}

func TestNotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedOrder(t, svc, "o-1")

	note, err := svc.AddNote(ctx, ordertypes.NoteCommand{OrderID: "o-1", Author: "ops", Body: "call customer", Internal: true})
	require.NoError(t, err)
	require.True(t, note.Internal)

	_, err = svc.AddNote(ctx, ordertypes.NoteCommand{OrderID: "o-1", Author: "ops"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddNote(ctx, ordertypes.NoteCommand{OrderID: "missing", Author: "ops", Body: "x"})
	require.ErrorIs(t, err, ports.ErrNotFound)

	notes, err := svc.ListNotes(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
}

func TestListOrders(t *testing.T) {
	svc, _ := newTestService(t)
	seedOrder(t, svc, "o-1")
	seedOrder(t, svc, "o-2", domain.StatusConfirmed)

	orders, err := svc.ListOrders(context.Background(), ports.ListFilter{Statuses: []domain.Status{domain.StatusConfirmed}})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "o-2", orders[0].ID)
}
