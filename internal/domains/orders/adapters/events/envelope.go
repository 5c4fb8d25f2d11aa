package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
)

// Envelope is the wire shape of every published order event.
type Envelope struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OrderID    string          `json:"orderId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

func encode(event domain.Event) ([]byte, error) {
	data, err := json.Marshal(payloadOf(event))
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  event.EventName(),
		OrderID:    event.AggregateID(),
		OccurredAt: event.OccurredAt().UTC(),
		Data:       data,
	})
}

func payloadOf(event domain.Event) any {
	switch e := event.(type) {
	case domain.OrderStatusChanged:
		return map[string]any{
			"orderNumber": e.OrderNumber,
			"fromStatus":  e.FromStatus,
			"toStatus":    e.ToStatus,
			"actor":       e.Actor,
			"reason":      e.Reason,
		}
	case domain.PaymentStatusChanged:
		return map[string]any{
			"orderNumber": e.OrderNumber,
			"fromStatus":  e.FromStatus,
			"toStatus":    e.ToStatus,
			"actor":       e.Actor,
			"reason":      e.Reason,
		}
	case domain.RefundRequested:
		return map[string]any{
			"refundId": e.RefundID,
			"amount":   e.Amount,
			"actor":    e.Actor,
			"reason":   e.Reason,
		}
	default:
		return event
	}
}
