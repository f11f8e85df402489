// Package poller waits for a committed submission to reach a terminal state.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ubuntu/store-publisher/internal/constants"
	"github.com/ubuntu/store-publisher/internal/devcenter"
)

// ErrPollTimeout is returned when the submission is still processing once the attempt or time ceiling is reached.
var ErrPollTimeout = errors.New("submission still processing after the polling limit")

// Fetcher returns the current status of a submission.
type Fetcher interface {
	GetSubmissionStatus(ctx context.Context, token devcenter.AccessToken, locator string) (devcenter.SubmissionStatus, error)
}

// Poller repeatedly fetches a submission status until it is terminal.
type Poller struct {
	fetcher Fetcher

	interval    time.Duration
	maxInterval time.Duration
	timeout     time.Duration
	maxAttempts int

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
	log   *slog.Logger
}

type options struct {
	interval    time.Duration
	maxInterval time.Duration
	timeout     time.Duration
	maxAttempts int

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
	log   *slog.Logger
}

// Options represents an optional function to override Poller default values.
type Options func(*options)

// WithInterval sets the base wait between two fetches and its cap.
func WithInterval(interval, maxInterval time.Duration) Options {
	return func(o *options) {
		o.interval = interval
		o.maxInterval = maxInterval
	}
}

// WithTimeout sets the wall clock ceiling of a Poll call.
func WithTimeout(d time.Duration) Options {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMaxAttempts sets the maximum amount of fetches of a Poll call.
func WithMaxAttempts(n int) Options {
	return func(o *options) {
		o.maxAttempts = n
	}
}

// WithLogger sets the logger of the poller.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a Poller fetching statuses from f.
func New(f Fetcher, args ...Options) *Poller {
	opts := options{
		interval:    constants.DefaultPollInterval,
		maxInterval: constants.DefaultPollMaxInterval,
		timeout:     constants.DefaultPollTimeout,
		maxAttempts: constants.DefaultPollMaxAttempts,
		sleep:       sleepContext,
		now:         time.Now,
		log:         slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Poller{
		fetcher:     f,
		interval:    max(opts.interval, time.Millisecond),
		maxInterval: max(opts.maxInterval, opts.interval, time.Millisecond),
		timeout:     opts.timeout,
		maxAttempts: max(opts.maxAttempts, 1),
		sleep:       opts.sleep,
		now:         opts.now,
		log:         opts.log,
	}
}

// Poll fetches the status of the submission at locator until it is terminal for mode.
// It returns Published and no error on success. Failed and NeedsAttention come with a *FailedError.
// Fetch errors are returned as is, and ErrPollTimeout when a ceiling is reached first.
func (p *Poller) Poll(ctx context.Context, token devcenter.AccessToken, locator string, mode devcenter.PublishMode) (Result, error) {
	deadline := p.now().Add(p.timeout)

	var last string
	for attempt := 0; ; attempt++ {
		if !token.Valid(p.now()) {
			return Processing, devcenter.ErrTokenExpired
		}

		st, err := p.fetcher.GetSubmissionStatus(ctx, token, locator)
		if err != nil {
			return Processing, err
		}

		res := Classify(st.Status, mode)
		if st.Status != last {
			p.log.Info("Submission status", "status", st.Status, "result", res, "attempt", attempt+1)
			last = st.Status
		}

		switch res {
		case Published:
			return res, nil
		case Failed, NeedsAttention:
			return res, &FailedError{Result: res, Status: st.Status, Reasons: reasons(st.StatusDetails)}
		}

		if attempt+1 >= p.maxAttempts {
			return Processing, fmt.Errorf("%w: status is %s after %d fetches", ErrPollTimeout, st.Status, attempt+1)
		}
		remaining := deadline.Sub(p.now())
		if remaining <= 0 {
			return Processing, fmt.Errorf("%w: status is %s after %s", ErrPollTimeout, st.Status, p.timeout)
		}

		wait := min(p.backoff(attempt), remaining)
		p.log.Debug("Waiting before next status fetch", "seconds", wait.Seconds())
		if err := p.sleep(ctx, wait); err != nil {
			return Processing, err
		}
	}
}

// backoff returns the wait after the given attempt: the interval doubled on each attempt up to the cap,
// of which the upper half is randomized.
func (p *Poller) backoff(attempt int) time.Duration {
	exp := p.interval
	for i := 0; i < attempt && exp < p.maxInterval; i++ {
		exp *= 2
	}
	exp = min(exp, p.maxInterval)
	half := exp / 2
	return half + time.Duration(rand.Int63n(int64(exp-half)+1)) // #nosec:G404 We don't need cryptographic randomness.
}

// sleepContext waits for d, or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
