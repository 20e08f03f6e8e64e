package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes exponential backoff between attempts. Max caps a single
// delay; JitterFactor spreads each delay by up to +/- that fraction.
type Policy struct {
	Attempts     int
	Base         time.Duration
	Max          time.Duration
	JitterFactor float64
}

// Startup is used for dependencies the server cannot start without.
// Payment processor calls are never retried.
var Startup = Policy{
	Attempts:     5,
	Base:         500 * time.Millisecond,
	Max:          5 * time.Second,
	JitterFactor: 0.2,
}

// Do runs fn until it succeeds, attempts run out or ctx is done.
// onRetry, when set, is called before every wait.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	d := p.Base
	var err error
	for i := 1; ; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts {
			return err
		}
		if onRetry != nil {
			onRetry(i, err)
		}

		delay := d
		if p.JitterFactor > 0 {
			delay = time.Duration(float64(delay) * (1 + p.JitterFactor*(2*r.Float64()-1)))
		}
		if p.Max > 0 && delay > p.Max {
			delay = p.Max
		}

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}

		d *= 2
		if p.Max > 0 && d > p.Max {
			d = p.Max
		}
	}
}
