package devcenter

import (
	"context"
	"time"
)

// WithSleep overrides how the client waits between two attempts.
func WithSleep(sleep func(context.Context, time.Duration) error) Options {
	return func(o *options) {
		o.sleep = sleep
	}
}

// CompareVersions exposes compareVersions for tests.
var CompareVersions = compareVersions
