package aistudio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Default retry policy delays.
const (
	// DefaultTransportDelay is the fixed wait after a connection-level failure.
	DefaultTransportDelay = 500 * time.Millisecond

	// DefaultUnavailableDelay is the fixed wait after an HTTP 503.
	DefaultUnavailableDelay = 60 * time.Second

	// DefaultRequestTimeout bounds a single HTTP exchange.
	DefaultRequestTimeout = 120 * time.Second
)

// RetryPolicy bounds and tunes the transport's retry loop.
//
// The zero value retries without an attempt or elapsed-time ceiling, relying
// entirely on context cancellation to terminate a degenerate retry scenario.
// High-throughput callers should set MaxAttempts or MaxElapsed.
type RetryPolicy struct {
	// MaxAttempts caps the total number of attempts. 0 means no cap.
	MaxAttempts int

	// MaxElapsed caps the total time spent across attempts and backoff
	// sleeps. 0 means no cap.
	MaxElapsed time.Duration

	// TransportDelay is the wait after a connection-level failure.
	// Defaults to DefaultTransportDelay.
	TransportDelay time.Duration

	// UnavailableDelay is the wait after an HTTP 503.
	// Defaults to DefaultUnavailableDelay.
	UnavailableDelay time.Duration
}

func (p RetryPolicy) transportDelay() time.Duration {
	if p.TransportDelay > 0 {
		return p.TransportDelay
	}
	return DefaultTransportDelay
}

func (p RetryPolicy) unavailableDelay() time.Duration {
	if p.UnavailableDelay > 0 {
		return p.UnavailableDelay
	}
	return DefaultUnavailableDelay
}

// retryState is the per-call backoff state machine. The counter is
// call-scoped: concurrent calls through one Client never share it, so one
// call's failure history cannot inflate another call's delays.
type retryState struct {
	counter int
}

func newRetryState() *retryState {
	return &retryState{counter: 1}
}

// delayFor classifies a retryable error and returns the wait before the next
// attempt. Throttling classes (503, 429) escalate the counter; transport
// failures retry on a fixed short delay without touching it.
func (s *retryState) delayFor(err error, policy RetryPolicy) time.Duration {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.StatusCode {
		case http.StatusServiceUnavailable:
			s.counter++
			return policy.unavailableDelay()
		case http.StatusTooManyRequests:
			d := time.Duration(math.Pow(float64(s.counter), 1.5) * float64(time.Second))
			s.counter++
			return d
		}
	}
	return policy.transportDelay()
}

// reset clears the counter after a success.
func (s *retryState) reset() {
	s.counter = 0
}

// Client issues completion requests to the hosted endpoint and retries
// transient failures. It holds the endpoint URL and credential for its
// lifetime; the underlying connection pool is acquired at construction and
// released by Close.
type Client struct {
	endpointURL string
	apiKey      string
	httpClient  *http.Client
	retry       RetryPolicy
	logger      *log.Logger

	// sleep is injectable so tests can assert backoff durations without
	// waiting them out.
	sleep func(ctx context.Context, d time.Duration) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the default (unbounded) retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = p }
}

// WithLogger replaces the default logrus standard logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for the given endpoint URL and credential.
func NewClient(endpointURL, apiKey string, opts ...ClientOption) (*Client, error) {
	if endpointURL == "" {
		return nil, &ValidationError{Field: "endpoint_url", Reason: "endpoint URL is required", Err: ErrInvalidRequest}
	}
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	c := &Client{
		endpointURL: endpointURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: DefaultRequestTimeout},
		logger:      log.StandardLogger(),
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Close releases the underlying connection pool. Call it on every exit path
// once the Client is no longer needed.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Do sends the request and retries transient failures until it succeeds, the
// retry policy is exhausted, or the context is cancelled.
//
// Failure classes:
//   - connection failure: wait TransportDelay, retry
//   - HTTP 503: wait UnavailableDelay, retry
//   - HTTP 429: wait counter^1.5 seconds, retry with an escalating counter
//   - any other non-2xx: fatal, surfaced immediately as *RequestError
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, err := req.MarshalBody()
	if err != nil {
		return nil, &ValidationError{Field: "request", Reason: "request is not serializable", Err: err}
	}

	requestID := uuid.NewString()
	state := newRetryState()
	start := time.Now()

	for attempt := 1; ; attempt++ {
		resp, err := c.attempt(ctx, requestID, body)
		if err == nil {
			state.reset()
			return resp, nil
		}

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}

		if exceeded := c.retryExhausted(attempt, start); exceeded {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}

		delay := state.delayFor(err, c.retry)
		c.logger.WithFields(log.Fields{
			"request_id": requestID,
			"attempt":    attempt,
			"delay":      delay.String(),
			"error":      err.Error(),
			"event":      "retry",
		}).Warn("Transient failure, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// retryExhausted reports whether the policy forbids another attempt.
func (c *Client) retryExhausted(attempts int, start time.Time) bool {
	if c.retry.MaxAttempts > 0 && attempts >= c.retry.MaxAttempts {
		return true
	}
	if c.retry.MaxElapsed > 0 && time.Since(start) >= c.retry.MaxElapsed {
		return true
	}
	return false
}

// attempt performs one HTTP exchange and classifies the outcome.
func (c *Client) attempt(ctx context.Context, requestID string, body []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrTransport, err)
	}

	if err := c.classifyStatus(requestID, httpResp.StatusCode, raw); err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &DecodeError{Reason: "response body is not valid JSON", Err: err}
	}

	c.logger.WithFields(log.Fields{
		"request_id": requestID,
		"status":     httpResp.StatusCode,
		"event":      "request_success",
	}).Info("Request successful")

	return &resp, nil
}

// classifyStatus maps a non-2xx status onto the error taxonomy. Transient
// service errors (503, 429) are marked retryable; everything else is fatal
// and logged at error level so a permanently-broken request is never
// hammered.
func (c *Client) classifyStatus(requestID string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	switch status {
	case http.StatusServiceUnavailable:
		return &RequestError{
			StatusCode: status,
			Body:       string(body),
			Retryable:  true,
			Err:        ErrServiceUnavailable,
		}
	case http.StatusTooManyRequests:
		return &RequestError{
			StatusCode: status,
			Body:       string(body),
			Retryable:  true,
			Err:        ErrRateLimited,
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WithFields(log.Fields{
			"request_id": requestID,
			"status":     status,
			"event":      "auth_error",
		}).Error("Credential rejected")
		return &RequestError{
			StatusCode: status,
			Body:       string(body),
			Retryable:  false,
			Err:        ErrInvalidAPIKey,
		}
	default:
		c.logger.WithFields(log.Fields{
			"request_id": requestID,
			"status":     status,
			"event":      "unclassified_error",
		}).Error("Unclassified HTTP error")
		return &RequestError{
			StatusCode: status,
			Body:       string(body),
			Retryable:  false,
		}
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)
}

// sleepContext waits for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
