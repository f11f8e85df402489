// Package devcenter is a client of the Dev Center submission API.
// It covers authentication, the submission resource lifecycle and the upload of the submission archive.
package devcenter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ubuntu/store-publisher/internal/constants"
)

var (
	// ErrSendFailure is returned when a request could not be completed, either due to a network error or a server error.
	ErrSendFailure = errors.New("request send failed")
	// ErrMissingCredentials is returned when the tenant, client ID or client secret is empty.
	ErrMissingCredentials = errors.New("tenant ID, client ID and client secret are required")
)

// APIError is a non successful answer of the API that is not worth retrying.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Credentials are the Azure AD application credentials used to obtain an access token.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Client talks to the Dev Center API on behalf of one run.
type Client struct {
	creds Credentials

	apiURL   *url.URL
	authURL  string
	resource string

	httpClient   *http.Client
	uploadClient *http.Client

	correlationID   string
	baseRetryPeriod time.Duration
	maxRetryPeriod  time.Duration
	maxAttempts     int
	sleep           func(context.Context, time.Duration) error

	log *slog.Logger
}

type options struct {
	apiURL          string
	authURL         string
	resource        string
	responseTimeout time.Duration
	uploadTimeout   time.Duration
	correlationID   string
	baseRetryPeriod time.Duration
	maxRetryPeriod  time.Duration
	maxAttempts     int
	sleep           func(context.Context, time.Duration) error
	log             *slog.Logger
}

// Options represents an optional function to override Client default values.
type Options func(*options)

// WithAPIURL sets the root of the submission API.
func WithAPIURL(u string) Options {
	return func(o *options) {
		o.apiURL = u
	}
}

// WithAuthURL sets the Azure AD authority the tokens are requested from.
func WithAuthURL(u string) Options {
	return func(o *options) {
		o.authURL = u
	}
}

// WithCorrelationID sets the MS-CorrelationId sent with every API request.
func WithCorrelationID(id string) Options {
	return func(o *options) {
		o.correlationID = id
	}
}

// WithLogger sets the logger of the client.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// WithMaxAttempts sets the amount of attempts of a request failing with a server or network error.
func WithMaxAttempts(n int) Options {
	return func(o *options) {
		o.maxAttempts = n
	}
}

// WithRetryPeriods sets the initial and maximum backoff between attempts of a request.
func WithRetryPeriods(base, maxPeriod time.Duration) Options {
	return func(o *options) {
		o.baseRetryPeriod = base
		o.maxRetryPeriod = maxPeriod
	}
}

// WithResponseTimeout sets the timeout of API requests.
func WithResponseTimeout(d time.Duration) Options {
	return func(o *options) {
		o.responseTimeout = d
	}
}

// WithUploadTimeout sets the timeout of the archive upload.
func WithUploadTimeout(d time.Duration) Options {
	return func(o *options) {
		o.uploadTimeout = d
	}
}

// New returns a client for the given credentials.
func New(creds Credentials, args ...Options) (*Client, error) {
	opts := options{
		apiURL:          constants.DefaultAPIURL,
		authURL:         constants.DefaultAuthURL,
		resource:        constants.DefaultAuthResource,
		responseTimeout: constants.DefaultResponseTimeout,
		uploadTimeout:   constants.DefaultUploadTimeout,
		correlationID:   uuid.NewString(),
		baseRetryPeriod: constants.DefaultBaseRetryPeriod,
		maxRetryPeriod:  constants.DefaultMaxRetryPeriod,
		maxAttempts:     constants.DefaultMaxAttempts,
		sleep:           sleepContext,
		log:             slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	if creds.TenantID == "" || creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	apiURL, err := url.Parse(opts.apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse API URL %s: %v", opts.apiURL, err)
	}
	if apiURL.Scheme == "" || apiURL.Host == "" {
		return nil, fmt.Errorf("API URL %q must be absolute", opts.apiURL)
	}
	if opts.maxAttempts < 1 {
		opts.maxAttempts = 1
	}

	return &Client{
		creds:    creds,
		apiURL:   apiURL,
		authURL:  strings.TrimSuffix(opts.authURL, "/"),
		resource: opts.resource,

		httpClient:   &http.Client{Timeout: opts.responseTimeout},
		uploadClient: &http.Client{Timeout: opts.uploadTimeout},

		correlationID:   opts.correlationID,
		baseRetryPeriod: opts.baseRetryPeriod,
		maxRetryPeriod:  opts.maxRetryPeriod,
		maxAttempts:     opts.maxAttempts,
		sleep:           opts.sleep,

		log: opts.log,
	}, nil
}

// request describes one HTTP exchange. body is called once per attempt, so a retried request sends the
// whole payload again.
type request struct {
	client  *http.Client
	method  string
	url     string
	token   string
	header  http.Header
	body    func() (io.ReadCloser, int64, error)
	success int
}

// jsonBody returns a request body factory sending v as JSON.
func jsonBody(v any) (func() (io.ReadCloser, int64, error), error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %v", err)
	}
	return func() (io.ReadCloser, int64, error) {
		return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
	}, nil
}

// send performs r, retrying network errors, throttling and server errors with an exponential backoff with full jitter.
// It returns the response body of the first successful attempt.
func (c *Client) send(ctx context.Context, r request) (body []byte, err error) {
	for attempt := 0; ; attempt++ {
		body, err = c.sendOnce(ctx, r)
		if !errors.Is(err, ErrSendFailure) {
			return body, err
		}
		if attempt+1 >= c.maxAttempts {
			c.log.Warn("Maximum request attempts reached, giving up", "method", r.method, "url", r.url, "attempts", attempt+1)
			return nil, err
		}

		exp := c.baseRetryPeriod
		for i := 0; i < attempt && exp < c.maxRetryPeriod; i++ {
			exp *= 2
		}
		exp = min(exp, c.maxRetryPeriod)
		wait := time.Duration(rand.Int63n(int64(max(exp, 1)))) // #nosec:G404 We don't need cryptographic randomness.
		c.log.Warn("Request failed, retrying after backoff period", "method", r.method, "url", r.url, "seconds", wait.Seconds(), "error", err)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) sendOnce(ctx context.Context, r request) ([]byte, error) {
	var body io.ReadCloser = http.NoBody
	var length int64
	if r.body != nil {
		b, l, err := r.body()
		if err != nil {
			return nil, err
		}
		body, length = b, l
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		_ = body.Close()
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.ContentLength = length
	for k, v := range r.header {
		req.Header[k] = v
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
		req.Header.Set("MS-CorrelationId", c.correlationID)
	}

	c.log.Debug("Sending request", "method", r.method, "url", r.url, "length", length)
	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Join(ErrSendFailure, fmt.Errorf("failed to send HTTP request: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrSendFailure, fmt.Errorf("failed to read response body: %v", err))
	}

	success := r.success
	if success == 0 {
		success = http.StatusOK
	}
	switch {
	case resp.StatusCode == success:
		return respBody, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, errors.Join(ErrSendFailure, newAPIError(resp.StatusCode, respBody))
	default:
		return nil, newAPIError(resp.StatusCode, respBody)
	}
}

// newAPIError builds an APIError from an error answer, decoding the API error document when there is one.
func newAPIError(status int, body []byte) *APIError {
	var doc struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &doc); err == nil && (doc.Code != "" || doc.Message != "") {
		return &APIError{StatusCode: status, Code: doc.Code, Message: doc.Message}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
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
