package postgres

import (
	"time"

	"github.com/govalues/decimal"
	"github.com/lib/pq"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

// Models lists every table owned by the orders context, in migration order.
func Models() []any {
	return []any{
		&orderRecord{},
		&statusHistoryRecord{},
		&paymentHistoryRecord{},
		&refundRecord{},
		&noteRecord{},
		&bulkOperationRecord{},
		&idempotencyRecord{},
	}
}

// orderRecord maps the order aggregate root. Money is stored as NUMERIC and read back as text.
type orderRecord struct {
	ID                string     `gorm:"primaryKey;column:id;type:varchar(64)"`
	Number            string     `gorm:"column:order_number;type:varchar(64);uniqueIndex"`
	CustomerID        string     `gorm:"column:customer_id;type:varchar(64);index"`
	Status            string     `gorm:"column:status;type:varchar(32);index:idx_orders_status_priority"`
	PaymentStatus     string     `gorm:"column:payment_status;type:varchar(32)"`
	Priority          string     `gorm:"column:priority;type:varchar(16);index:idx_orders_status_priority"`
	Subtotal          string     `gorm:"column:subtotal;type:numeric(14,2)"`
	Tax               string     `gorm:"column:tax;type:numeric(14,2)"`
	Shipping          string     `gorm:"column:shipping;type:numeric(14,2)"`
	Total             string     `gorm:"column:total;type:numeric(14,2)"`
	TrackingNumber    string     `gorm:"column:tracking_number"`
	TrackingURL       string     `gorm:"column:tracking_url"`
	EstimatedDelivery *time.Time `gorm:"column:estimated_delivery"`
	DeliveredAt       *time.Time `gorm:"column:delivered_at"`
	Version           int64      `gorm:"column:version;not null;default:1"`
	CreatedAt         time.Time  `gorm:"column:created_at;index"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

type statusHistoryRecord struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(64)"`
	OrderID    string    `gorm:"column:order_id;type:varchar(64);uniqueIndex:idx_status_history_seq"`
	Seq        int       `gorm:"column:seq;uniqueIndex:idx_status_history_seq"`
	FromStatus string    `gorm:"column:from_status;type:varchar(32)"`
	ToStatus   string    `gorm:"column:to_status;type:varchar(32)"`
	Actor      string    `gorm:"column:actor"`
	Reason     string    `gorm:"column:reason"`
	ChangedAt  time.Time `gorm:"column:changed_at"`
}

func (statusHistoryRecord) TableName() string { return "order_status_history" }

type paymentHistoryRecord struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(64)"`
	OrderID    string    `gorm:"column:order_id;type:varchar(64);uniqueIndex:idx_payment_history_seq"`
	Seq        int       `gorm:"column:seq;uniqueIndex:idx_payment_history_seq"`
	FromStatus string    `gorm:"column:from_status;type:varchar(32)"`
	ToStatus   string    `gorm:"column:to_status;type:varchar(32)"`
	Actor      string    `gorm:"column:actor"`
	Reason     string    `gorm:"column:reason"`
	ChangedAt  time.Time `gorm:"column:changed_at"`
}

func (paymentHistoryRecord) TableName() string { return "payment_status_history" }

type refundRecord struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(64)"`
	OrderID   string    `gorm:"column:order_id;type:varchar(64);index"`
	Amount    string    `gorm:"column:amount;type:numeric(14,2)"`
	Status    string    `gorm:"column:status;type:varchar(32)"`
	Reason    string    `gorm:"column:reason"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (refundRecord) TableName() string { return "refunds" }

type noteRecord struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(64)"`
	OrderID   string    `gorm:"column:order_id;type:varchar(64);index"`
	Author    string    `gorm:"column:author"`
	Body      string    `gorm:"column:body"`
	Internal  bool      `gorm:"column:internal"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (noteRecord) TableName() string { return "order_notes" }

type bulkOperationRecord struct {
	ID          string                      `gorm:"primaryKey;column:id;type:varchar(64)"`
	Actor       string                      `gorm:"column:actor"`
	Target      string                      `gorm:"column:target_status;type:varchar(32)"`
	Reason      string                      `gorm:"column:reason"`
	OrderIDs    pq.StringArray              `gorm:"column:order_ids;type:text[]"`
	Total       int                         `gorm:"column:total"`
	Successful  int                         `gorm:"column:successful"`
	Failed      int                         `gorm:"column:failed"`
	Items       []ordertypes.BulkItemResult `gorm:"column:items;serializer:json"`
	StartedAt   time.Time                   `gorm:"column:started_at"`
	CompletedAt time.Time                   `gorm:"column:completed_at;index"`
}

func (bulkOperationRecord) TableName() string { return "bulk_operations" }

type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OrderID     string    `gorm:"column:order_id;type:varchar(64);index"`
	RefundID    string    `gorm:"column:refund_id;type:varchar(64)"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (idempotencyRecord) TableName() string { return "refund_idempotency_keys" }

func toOrderRecord(order *domain.Order) orderRecord {
	return orderRecord{
		ID:                order.ID,
		Number:            order.Number,
		CustomerID:        order.CustomerID,
		Status:            string(order.Status),
		PaymentStatus:     string(order.PaymentStatus),
		Priority:          string(order.Priority),
		Subtotal:          order.Subtotal.String(),
		Tax:               order.Tax.String(),
		Shipping:          order.Shipping.String(),
		Total:             order.Total.String(),
		TrackingNumber:    order.Fulfillment.TrackingNumber,
		TrackingURL:       order.Fulfillment.TrackingURL,
		EstimatedDelivery: order.Fulfillment.EstimatedDelivery,
		DeliveredAt:       order.DeliveredAt,
		Version:           order.Version,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}

func (r orderRecord) toDomain() (*domain.Order, error) {
	amounts := make([]decimal.Decimal, 4)
	for i, raw := range []string{r.Subtotal, r.Tax, r.Shipping, r.Total} {
		d, err := decimal.Parse(raw)
		if err != nil {
			return nil, err
		}
		amounts[i] = d
	}
	return &domain.Order{
		ID:            r.ID,
		Number:        r.Number,
		CustomerID:    r.CustomerID,
		Status:        domain.Status(r.Status),
		PaymentStatus: domain.PaymentStatus(r.PaymentStatus),
		Priority:      domain.Priority(r.Priority),
		Subtotal:      amounts[0],
		Tax:           amounts[1],
		Shipping:      amounts[2],
		Total:         amounts[3],
		Fulfillment: domain.Fulfillment{
			TrackingNumber:    r.TrackingNumber,
			TrackingURL:       r.TrackingURL,
			EstimatedDelivery: r.EstimatedDelivery,
		},
		DeliveredAt: r.DeliveredAt,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func toStatusHistoryRecords(entries []domain.StatusHistoryEntry, offset int) []statusHistoryRecord {
	records := make([]statusHistoryRecord, 0, len(entries))
	for i, e := range entries {
		records = append(records, statusHistoryRecord{
			ID:         e.ID,
			OrderID:    e.OrderID,
			Seq:        offset + i,
			FromStatus: string(e.From),
			ToStatus:   string(e.To),
			Actor:      e.Actor,
			Reason:     e.Reason,
			ChangedAt:  e.At,
		})
	}
	return records
}

func (r statusHistoryRecord) toDomain() domain.StatusHistoryEntry {
	return domain.StatusHistoryEntry{
		ID:      r.ID,
		OrderID: r.OrderID,
		From:    domain.Status(r.FromStatus),
		To:      domain.Status(r.ToStatus),
		At:      r.ChangedAt,
		Actor:   r.Actor,
		Reason:  r.Reason,
	}
}

func toPaymentHistoryRecords(entries []domain.PaymentStatusEntry, offset int) []paymentHistoryRecord {
	records := make([]paymentHistoryRecord, 0, len(entries))
	for i, e := range entries {
		records = append(records, paymentHistoryRecord{
			ID:         e.ID,
			OrderID:    e.OrderID,
			Seq:        offset + i,
			FromStatus: string(e.From),
			ToStatus:   string(e.To),
			Actor:      e.Actor,
			Reason:     e.Reason,
			ChangedAt:  e.At,
		})
	}
	return records
}

func (r paymentHistoryRecord) toDomain() domain.PaymentStatusEntry {
	return domain.PaymentStatusEntry{
		ID:      r.ID,
		OrderID: r.OrderID,
		From:    domain.PaymentStatus(r.FromStatus),
		To:      domain.PaymentStatus(r.ToStatus),
		At:      r.ChangedAt,
		Actor:   r.Actor,
		Reason:  r.Reason,
	}
}

func (r refundRecord) toDomain() (domain.Refund, error) {
	amount, err := decimal.Parse(r.Amount)
	if err != nil {
		return domain.Refund{}, err
	}
	return domain.Refund{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Amount:    amount,
		Status:    domain.RefundStatus(r.Status),
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
	}, nil
}

func (r noteRecord) toDomain() domain.OrderNote {
	return domain.OrderNote{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Author:    r.Author,
		Body:      r.Body,
		Internal:  r.Internal,
		CreatedAt: r.CreatedAt,
	}
}

func toBulkOperationRecord(op ordertypes.BulkOperation) bulkOperationRecord {
	return bulkOperationRecord{
		ID:          op.ID,
		Actor:       op.Actor,
		Target:      string(op.Target),
		Reason:      op.Reason,
		OrderIDs:    pq.StringArray(op.OrderIDs),
		Total:       op.Result.Total,
		Successful:  op.Result.Successful,
		Failed:      op.Result.Failed,
		Items:       op.Result.Items,
		StartedAt:   op.StartedAt,
		CompletedAt: op.CompletedAt,
	}
}

func (r bulkOperationRecord) toDomain() *ordertypes.BulkOperation {
	return &ordertypes.BulkOperation{
		ID:       r.ID,
		Actor:    r.Actor,
		Target:   domain.Status(r.Target),
		Reason:   r.Reason,
		OrderIDs: []string(r.OrderIDs),
		Result: ordertypes.BulkResult{
			OperationID: r.ID,
			Total:       r.Total,
			Successful:  r.Successful,
			Failed:      r.Failed,
			Items:       r.Items,
		},
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}
