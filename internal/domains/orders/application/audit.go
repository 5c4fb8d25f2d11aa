package application

import (
	"context"
	"errors"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

// AuditHistories replays the status history of every order matching filter and reports
// the orders whose history is not a legal walk ending at their current status.
func (s *Service) AuditHistories(ctx context.Context, filter ports.ListFilter) (*ordertypes.AuditReport, error) {
	orders, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	report := &ordertypes.AuditReport{
		Scanned:    len(orders),
		Violations: []ordertypes.HistoryViolation{},
		CheckedAt:  s.now(),
	}
	for _, order := range orders {
		err := domain.VerifyOrderHistory(order)
		if err == nil {
			continue
		}
		violation := ordertypes.HistoryViolation{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			Status:      order.Status,
			Reason:      err.Error(),
			EntryIndex:  -1,
		}
		var hv *domain.HistoryViolationError
		if errors.As(err, &hv) {
			violation.EntryIndex = hv.Index
		}
		report.Violations = append(report.Violations, violation)
	}
	return report, nil
}
