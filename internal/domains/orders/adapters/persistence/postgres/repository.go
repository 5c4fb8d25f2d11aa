package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

var _ ports.Store = (*Repository)(nil)

// Repository persists orders, their histories, refunds, notes and bulk audit records in
// PostgreSQL using GORM. The schema is applied by the migrations package.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new order with version 1 and any history it already carries.
func (r *Repository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toOrderRecord(order)
	record.Version = 1
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return appendHistory(tx, order, 0, 0)
	})
	if err != nil {
		return nil, translateError(err)
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID loads the order together with both histories in append order.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	orders, err := r.hydrate(ctx, []orderRecord{record})
	if err != nil {
		return nil, err
	}
	return orders[0], nil
}

// Update writes the mutable columns only when the stored version still matches and appends
// history entries not yet persisted.
func (r *Repository) Update(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toOrderRecord(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&orderRecord{}).
			Where("id = ? AND version = ?", record.ID, record.Version).
			Updates(map[string]any{
				"status":             record.Status,
				"payment_status":     record.PaymentStatus,
				"priority":           record.Priority,
				"tracking_number":    record.TrackingNumber,
				"tracking_url":       record.TrackingURL,
				"estimated_delivery": record.EstimatedDelivery,
				"delivered_at":       record.DeliveredAt,
				"updated_at":         record.UpdatedAt,
				"version":            gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&orderRecord{}).Where("id = ?", record.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ports.ErrNotFound
			}
			return ports.ErrConflict
		}

		var statusCount, paymentCount int64
		if err := tx.Model(&statusHistoryRecord{}).Where("order_id = ?", record.ID).Count(&statusCount).Error; err != nil {
			return err
		}
		if err := tx.Model(&paymentHistoryRecord{}).Where("order_id = ?", record.ID).Count(&paymentCount).Error; err != nil {
			return err
		}
		return appendHistory(tx, order, int(statusCount), int(paymentCount))
	})
	if err != nil {
		return nil, translateError(err)
	}
	return r.GetByID(ctx, record.ID)
}

// List returns orders matching filter, oldest first.
func (r *Repository) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Order, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Model(&orderRecord{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", toStrings(filter.Statuses))
	}
	if len(filter.Priorities) > 0 {
		query = query.Where("priority IN ?", toStrings(filter.Priorities))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var records []orderRecord
	if err := query.Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return r.hydrate(ctx, records)
}

func (r *Repository) SaveRefund(ctx context.Context, refund domain.Refund) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	record := refundRecord{
		ID:        refund.ID,
		OrderID:   refund.OrderID,
		Amount:    refund.Amount.String(),
		Status:    string(refund.Status),
		Reason:    refund.Reason,
		CreatedAt: refund.CreatedAt,
	}
	return translateError(r.db.WithContext(ctx).Create(&record).Error)
}

func (r *Repository) ListRefunds(ctx context.Context, orderID string) ([]domain.Refund, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []refundRecord
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	refunds := make([]domain.Refund, 0, len(records))
	for _, rec := range records {
		refund, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}
	return refunds, nil
}

func (r *Repository) AddNote(ctx context.Context, note domain.OrderNote) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	record := noteRecord{
		ID:        note.ID,
		OrderID:   note.OrderID,
		Author:    note.Author,
		Body:      note.Body,
		Internal:  note.Internal,
		CreatedAt: note.CreatedAt,
	}
	return translateError(r.db.WithContext(ctx).Create(&record).Error)
}

func (r *Repository) ListNotes(ctx context.Context, orderID string) ([]domain.OrderNote, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []noteRecord
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	notes := make([]domain.OrderNote, 0, len(records))
	for _, rec := range records {
		notes = append(notes, rec.toDomain())
	}
	return notes, nil
}

// SaveBulkOperation upserts the audit record so a retried workflow activity overwrites it.
func (r *Repository) SaveBulkOperation(ctx context.Context, op ordertypes.BulkOperation) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	record := toBulkOperationRecord(op)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&record).Error
}

func (r *Repository) GetBulkOperation(ctx context.Context, id string) (*ordertypes.BulkOperation, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record bulkOperationRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrBulkOperationNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *Repository) hydrate(ctx context.Context, records []orderRecord) ([]*domain.Order, error) {
	if len(records) == 0 {
		return []*domain.Order{}, nil
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}

	var statusRows []statusHistoryRecord
	if err := r.db.WithContext(ctx).Where("order_id IN ?", ids).Order("order_id, seq").Find(&statusRows).Error; err != nil {
		return nil, err
	}
	var paymentRows []paymentHistoryRecord
	if err := r.db.WithContext(ctx).Where("order_id IN ?", ids).Order("order_id, seq").Find(&paymentRows).Error; err != nil {
		return nil, err
	}
	statusByOrder := map[string][]domain.StatusHistoryEntry{}
	for _, row := range statusRows {
		statusByOrder[row.OrderID] = append(statusByOrder[row.OrderID], row.toDomain())
	}
	paymentByOrder := map[string][]domain.PaymentStatusEntry{}
	for _, row := range paymentRows {
		paymentByOrder[row.OrderID] = append(paymentByOrder[row.OrderID], row.toDomain())
	}

	orders := make([]*domain.Order, 0, len(records))
	for _, rec := range records {
		order, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		order.History = statusByOrder[rec.ID]
		order.PaymentHistory = paymentByOrder[rec.ID]
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres order repository not configured")
	}
	return nil
}

func appendHistory(tx *gorm.DB, order *domain.Order, statusOffset, paymentOffset int) error {
	if statusOffset > len(order.History) || paymentOffset > len(order.PaymentHistory) {
		return errors.New("order history is append-only")
	}
	if pending := toStatusHistoryRecords(order.History[statusOffset:], statusOffset); len(pending) > 0 {
		if err := tx.Create(&pending).Error; err != nil {
			return err
		}
	}
	if pending := toPaymentHistoryRecords(order.PaymentHistory[paymentOffset:], paymentOffset); len(pending) > 0 {
		if err := tx.Create(&pending).Error; err != nil {
			return err
		}
	}
	return nil
}

// translateError maps driver errors onto repository sentinels.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ports.ErrDuplicate
		case pgerrcode.SerializationFailure:
			return ports.ErrConflict
		case pgerrcode.ForeignKeyViolation:
			return ports.ErrNotFound
		}
	}
	return err
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}
