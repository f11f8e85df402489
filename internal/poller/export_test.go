package poller

import (
	"context"
	"time"
)

// WithSleep overrides how the poller waits between two fetches.
func WithSleep(sleep func(context.Context, time.Duration) error) Options {
	return func(o *options) {
		o.sleep = sleep
	}
}

// WithClock overrides the time source of the poller.
func WithClock(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}
