package paypal

import "encoding/json"

// IntentCapture asks PayPal to capture the full amount right after approval.
const IntentCapture = "CAPTURE"

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type PurchaseUnit struct {
	Amount Amount `json:"amount"`
}

type OrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

// NewCaptureOrder builds a single-unit order for immediate capture.
// value must already be formatted with two decimals.
func NewCaptureOrder(currency, value string) OrderRequest {
	return OrderRequest{
		Intent: IntentCapture,
		PurchaseUnits: []PurchaseUnit{
			{Amount: Amount{CurrencyCode: currency, Value: value}},
		},
	}
}

// CaptureStatus extracts the top-level status of a capture response.
// An absent or unreadable status yields "".
func CaptureStatus(capture json.RawMessage) string {
	var v struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(capture, &v); err != nil {
		return ""
	}
	return v.Status
}
