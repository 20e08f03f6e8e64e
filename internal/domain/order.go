package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusUnknown is stored when the processor reports no capture status.
const StatusUnknown = "UNKNOWN"

// Order is a captured checkout as persisted in the record store.
// Records are written once, at capture time, and never updated.
type Order struct {
	ID            int64     `json:"id"`
	PayPalOrderID string    `json:"paypal_order_id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	Items         any       `json:"items"`
	Pieces        int       `json:"pieces"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// EncodeItems serializes an item selection to the text form kept in storage.
// A nil selection is stored as an empty mapping.
func EncodeItems(items any) (string, error) {
	switch v := items.(type) {
	case nil:
		return "{}", nil
	case json.RawMessage:
		if len(v) == 0 {
			return "{}", nil
		}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("%w: items: %v", ErrValidation, err)
	}
	return string(b), nil
}

// DecodeItems turns stored item text back into a structured value.
// Text that is not valid JSON is returned unchanged as a string.
func DecodeItems(text string) any {
	if !json.Valid([]byte(text)) {
		return text
	}
	return json.RawMessage(text)
}
