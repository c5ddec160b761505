package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutCompletedItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CheckoutCompletedEvent struct {
	CheckoutID  uuid.UUID               `json:"checkout_id"`
	UserID      uuid.UUID               `json:"user_id"`
	Items       []CheckoutCompletedItem `json:"items"`
	Total       decimal.Decimal         `json:"total"`
	CompletedAt time.Time               `json:"completed_at"`
}

func (e CheckoutCompletedEvent) Subject() string {
	return messaging.CheckoutsCompletedSubject
}

func (e CheckoutCompletedEvent) Key() string {
	return e.CheckoutID.String()
}

func (e CheckoutCompletedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
