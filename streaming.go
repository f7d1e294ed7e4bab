package aistudio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// StreamEvent is a single event in a streaming response: a chunk of response
// text, or a terminal error.
type StreamEvent struct {
	// Text contains a chunk of the response body (empty if Err is set)
	Text string

	// Err contains the error that ended the stream (nil on clean close)
	Err error
}

// streamChunkSize is the read granularity for response text chunks.
const streamChunkSize = 4 * 1024

// DoStream sends the request and produces the response as a lazy sequence of
// text chunks. The returned channel is closed when the underlying stream
// closes or a terminal error is delivered.
//
// Connect-time failures follow the same classification and backoff policy as
// Do. If the stream errors mid-flight, the request is re-issued under the
// same policy and the restarted stream's chunks continue on the same channel.
// A restart replays the response from the beginning; consumers that must not
// observe duplicate chunks should treat any chunk after a Warn-logged restart
// as a fresh response.
func (c *Client) DoStream(ctx context.Context, req *Request) (<-chan StreamEvent, error) {
	body, err := req.MarshalBody()
	if err != nil {
		return nil, &ValidationError{Field: "request", Reason: "request is not serializable", Err: err}
	}

	requestID := uuid.NewString()
	events := make(chan StreamEvent, 16)

	go func() {
		defer close(events)

		state := newRetryState()
		start := time.Now()

		for attempt := 1; ; attempt++ {
			err := c.streamOnce(ctx, requestID, body, state, events)
			if err == nil {
				return
			}

			if !IsRetryable(err) || ctx.Err() != nil {
				events <- StreamEvent{Err: err}
				return
			}

			if c.retryExhausted(attempt, start) {
				events <- StreamEvent{Err: fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)}
				return
			}

			delay := state.delayFor(err, c.retry)
			c.logger.WithFields(log.Fields{
				"request_id": requestID,
				"attempt":    attempt,
				"delay":      delay.String(),
				"error":      err.Error(),
				"event":      "stream_retry",
			}).Warn("Stream failed, restarting")

			if err := c.sleep(ctx, delay); err != nil {
				events <- StreamEvent{Err: err}
				return
			}
		}
	}()

	return events, nil
}

// streamOnce performs one streaming HTTP exchange, classifying the status
// and forwarding text chunks until the body closes.
func (c *Client) streamOnce(ctx context.Context, requestID string, body []byte, state *retryState, events chan<- StreamEvent) error {
	httpResp, err := c.open(ctx, body)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		raw, _ := io.ReadAll(httpResp.Body)
		return c.classifyStatus(requestID, httpResp.StatusCode, raw)
	}

	state.reset()
	c.logger.WithFields(log.Fields{
		"request_id": requestID,
		"status":     httpResp.StatusCode,
		"event":      "stream_open",
	}).Info("Stream opened")

	buf := make([]byte, streamChunkSize)
	for {
		n, err := httpResp.Body.Read(buf)
		if n > 0 {
			select {
			case events <- StreamEvent{Text: string(buf[:n])}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: reading stream: %v", ErrTransport, err)
		}
	}
}

// open issues the streaming POST without consuming the body.
func (c *Client) open(ctx context.Context, body []byte) (*http.Response, error) {
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

	return httpResp, nil
}
