package database

import (
	"math"
	"strconv"
	"strings"
)

// coercePieces reads the pieces column as whatever the driver returns.
// Rows written by other tools may hold text or reals there; anything that is
// not a whole count in int32 range reads as 0 instead of failing the listing.
func coercePieces(v any) int {
	var n int64
	switch p := v.(type) {
	case int64:
		n = p
	case int32:
		n = int64(p)
	case int:
		n = int64(p)
	case float64:
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return 0
		}
		n = int64(math.Trunc(p))
	case []byte:
		return coercePieces(string(p))
	case string:
		s := strings.TrimSpace(p)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			n = i
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			return coercePieces(f)
		} else {
			return 0
		}
	default:
		return 0
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0
	}
	return int(n)
}
