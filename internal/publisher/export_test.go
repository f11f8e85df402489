package publisher

import "time"

// WithClock overrides the time source used for token checks and receipts.
func WithClock(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}
