package service

import "time"

type LookupSource string

const (
	SourceCache LookupSource = "cache"
	SourceDB    LookupSource = "db"
)

type LookupStats struct {
	Source  LookupSource
	CacheMs float64
	DBMs    float64
}

// CheckoutStats splits a checkout call into time spent at PayPal (token
// plus order call) and time spent writing the record.
type CheckoutStats struct {
	ProcessorMs float64
	DBWriteMs   float64
}

func convertToMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
