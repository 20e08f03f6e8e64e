package kafka

import (
	"time"

	"github.com/TemirB/merch-checkout/internal/domain"
	"github.com/google/uuid"
)

// CaptureEvent announces a newly stored order record.
type CaptureEvent struct {
	ID            string    `json:"event_id"`
	RecordID      int64     `json:"record_id"`
	PayPalOrderID string    `json:"paypal_order_id"`
	Status        string    `json:"status"`
	Pieces        int       `json:"pieces"`
	Items         any       `json:"items"`
	CapturedAt    time.Time `json:"captured_at"`
}

func NewCaptureEvent(o *domain.Order) CaptureEvent {
	return CaptureEvent{
		ID:            uuid.NewString(),
		RecordID:      o.ID,
		PayPalOrderID: o.PayPalOrderID,
		Status:        o.Status,
		Pieces:        o.Pieces,
		Items:         o.Items,
		CapturedAt:    o.CreatedAt,
	}
}
