package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

// ValidateBulk checks the request-level fields of cmd. Per-item problems never fail
// the request; they are reported in the item results instead.
func (s *Service) ValidateBulk(cmd ordertypes.BulkTransitionCommand) error {
	if !cmd.To.Valid() {
		return &domain.UnknownStatusError{Kind: "status", Value: string(cmd.To)}
	}
	if strings.TrimSpace(cmd.Actor) == "" {
		return mapError(domain.ErrEmptyActor)
	}
	if s.maxBulkItems > 0 && len(cmd.OrderIDs) > s.maxBulkItems {
		return fmt.Errorf("%w: %d > %d", ErrTooManyItems, len(cmd.OrderIDs), s.maxBulkItems)
	}
	return nil
}

// ApplyBulk attempts the same transition on every order id independently. Items are
// processed by at most Concurrency workers and reported in input order. Once started,
// every item runs to completion even if ctx is cancelled.
func (s *Service) ApplyBulk(ctx context.Context, cmd ordertypes.BulkTransitionCommand) (*ordertypes.BulkResult, error) {
	if err := s.ValidateBulk(cmd); err != nil {
		return nil, err
	}
	opID := cmd.OperationID
	if opID == "" {
		opID = uuid.NewString()
	}
	if len(cmd.OrderIDs) == 0 {
		result := ordertypes.NewBulkResult(opID, []ordertypes.BulkItemResult{})
		return &result, nil
	}

	startedAt := s.now()
	items := make([]ordertypes.BulkItemResult, len(cmd.OrderIDs))
	runCtx := context.WithoutCancel(ctx)

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency(cmd.Concurrency))
	for i, id := range cmd.OrderIDs {
		g.Go(func() error {
			items[i] = s.TransitionItem(runCtx, id, cmd)
			return nil
		})
	}
	_ = g.Wait()

	result := ordertypes.NewBulkResult(opID, items)
	err := s.RecordBulkOperation(runCtx, ordertypes.BulkOperation{
		ID:          opID,
		Actor:       strings.TrimSpace(cmd.Actor),
		Target:      cmd.To,
		Reason:      strings.TrimSpace(cmd.Reason),
		OrderIDs:    cmd.OrderIDs,
		Result:      result,
		StartedAt:   startedAt,
		CompletedAt: s.now(),
	})
	return &result, err
}

// TransitionItem applies cmd to a single order and reports the outcome as a bulk item.
func (s *Service) TransitionItem(ctx context.Context, orderID string, cmd ordertypes.BulkTransitionCommand) ordertypes.BulkItemResult {
	order, err := s.TransitionOrder(ctx, ordertypes.TransitionCommand{
		OrderID: orderID,
		To:      cmd.To,
		Actor:   cmd.Actor,
		Reason:  cmd.Reason,
	})
	return ItemOutcome(orderID, order, err)
}

// ResumeTransitionItem is TransitionItem for a retried attempt. When an earlier attempt
// committed but its outcome was lost, the order already sits at cmd.To with a last history
// entry written by cmd.Actor for cmd.Reason; that is reported as the success it was.
func (s *Service) ResumeTransitionItem(ctx context.Context, orderID string, cmd ordertypes.BulkTransitionCommand) ordertypes.BulkItemResult {
	item := s.TransitionItem(ctx, orderID, cmd)
	if item.ErrorCode != ordertypes.CodeInvalidTransition {
		return item
	}
	order, err := s.GetOrder(ctx, orderID)
	if err != nil || order.Status != cmd.To || len(order.History) == 0 {
		return item
	}
	last := order.History[len(order.History)-1]
	if last.To != cmd.To || last.Actor != strings.TrimSpace(cmd.Actor) || last.Reason != strings.TrimSpace(cmd.Reason) {
		return item
	}
	return ItemOutcome(orderID, order, nil)
}

// RecordBulkOperation stores the audit record of a finished bulk request.
func (s *Service) RecordBulkOperation(ctx context.Context, op ordertypes.BulkOperation) error {
	if err := s.store.SaveBulkOperation(ctx, op); err != nil {
		return fmt.Errorf("record bulk operation %s: %w", op.ID, err)
	}
	return nil
}

func (s *Service) concurrency(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.bulkConcurrency
}
