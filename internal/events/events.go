package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated         = "OrderCreated"
	EventOrderStatusChanged   = "OrderStatusChanged"
	EventPaymentStatusChanged = "PaymentStatusChanged"
	EventVendorStatusChanged  = "VendorStatusChanged"
	EventPayoutStatusChanged  = "PayoutStatusChanged"
)

const producerName = "iwanyu-api"

// Envelope общая обёртка событий, payload зависит от EventType
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Key          string          `json:"key"`
	Payload      json.RawMessage `json:"payload"`
}

// StatusChangedPayload переход статуса сущности (заказ, оплата, продавец, выплата)
type StatusChangedPayload struct {
	ID       int64  `json:"id"`
	VendorID int64  `json:"vendor_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	ActorID  int64  `json:"actor_id,omitempty"`
}

// OrderCreatedPayload новый заказ
type OrderCreatedPayload struct {
	OrderID  int64 `json:"order_id"`
	VendorID int64 `json:"vendor_id"`
	Total    int64 `json:"total"`
	Items    int   `json:"items"`
}

// NewEnvelope собирает событие; key задаёт партиционирование (все события одной сущности по порядку)
func NewEnvelope(eventType, key string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     producerName,
		Key:          key,
		Payload:      raw,
	}, nil
}

// Publisher отправка событий во внешнюю шину
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Noop используется, когда брокеры не настроены
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }
