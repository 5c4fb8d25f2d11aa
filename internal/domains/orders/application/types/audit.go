package types

import (
	"time"

	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

// HistoryViolation names an order whose history does not replay to its current status.
type HistoryViolation struct {
	OrderID     string        `json:"orderId"`
	OrderNumber string        `json:"orderNumber"`
	Status      domain.Status `json:"status"`
	EntryIndex  int           `json:"entryIndex"`
	Reason      string        `json:"reason"`
}

// AuditReport is the outcome of one history audit pass.
type AuditReport struct {
	Scanned    int                `json:"scanned"`
	Violations []HistoryViolation `json:"violations"`
	CheckedAt  time.Time          `json:"checkedAt"`
}

// Clean reports whether no violation was found.
func (r AuditReport) Clean() bool {
	return len(r.Violations) == 0
}
