package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrStorage       = errors.New("storage error")
	ErrNotFound      = errors.New("not found")
)

// UpstreamError is returned when the payment processor answers with a
// non-success status. Body holds the raw response for diagnosis.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("paypal %s: status %d: %s", e.Op, e.StatusCode, string(e.Body))
}
