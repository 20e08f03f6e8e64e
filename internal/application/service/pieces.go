package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/TemirB/merch-checkout/internal/domain"
)

// ParsePieces coerces the storefront's quantity field to a positive int.
// Absent means 1; numbers are truncated; numeric strings are accepted.
func ParsePieces(raw json.RawMessage) (int, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return 1, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("%w: pieces: %v", domain.ErrValidation, err)
	}

	var n int64
	switch p := v.(type) {
	case json.Number:
		if i, err := p.Int64(); err == nil {
			n = i
			break
		}
		f, err := p.Float64()
		if err != nil || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
			return 0, fmt.Errorf("%w: pieces out of range: %s", domain.ErrValidation, p)
		}
		n = int64(math.Trunc(f))
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: pieces must be an integer, got %q", domain.ErrValidation, p)
		}
		n = i
	default:
		return 0, fmt.Errorf("%w: pieces must be an integer, got %s", domain.ErrValidation, string(raw))
	}

	// stores keep pieces in a 32-bit INTEGER column
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: pieces out of range: %d", domain.ErrValidation, n)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: pieces must be positive, got %d", domain.ErrValidation, n)
	}
	return int(n), nil
}
