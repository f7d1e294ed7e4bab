package aistudio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// streamScript serves a failure-status prefix, then streams the given
// chunks.
type streamScript struct {
	mu       sync.Mutex
	statuses []int
	chunks   []string
	calls    int
}

func (h *streamScript) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.calls++
	var status int
	if len(h.statuses) > 0 {
		status = h.statuses[0]
		h.statuses = h.statuses[1:]
	}
	h.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"code":%d,"message":"scripted failure"}}`, status)
		return
	}

	flusher := w.(http.Flusher)
	w.WriteHeader(http.StatusOK)
	for _, chunk := range h.chunks {
		fmt.Fprint(w, chunk)
		flusher.Flush()
	}
}

func (h *streamScript) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func collectStream(t *testing.T, events <-chan StreamEvent) (string, error) {
	t.Helper()
	var b strings.Builder
	for event := range events {
		if event.Err != nil {
			return b.String(), event.Err
		}
		b.WriteString(event.Text)
	}
	return b.String(), nil
}

func TestClient_DoStream_DeliversChunksInOrder(t *testing.T) {
	handler := &streamScript{chunks: []string{"alpha ", "beta ", "gamma"}}
	client, _, _ := newTestClient(t, handler, RetryPolicy{})

	events, err := client.DoStream(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}

	text, streamErr := collectStream(t, events)
	if streamErr != nil {
		t.Fatalf("stream error = %v", streamErr)
	}
	if text != "alpha beta gamma" {
		t.Errorf("streamed text = %q, want %q", text, "alpha beta gamma")
	}
}

func TestClient_DoStream_RetriesConnectFailures(t *testing.T) {
	handler := &streamScript{
		statuses: []int{http.StatusServiceUnavailable, http.StatusTooManyRequests},
		chunks:   []string{"recovered"},
	}
	client, slept, _ := newTestClient(t, handler, RetryPolicy{})

	events, err := client.DoStream(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}

	text, streamErr := collectStream(t, events)
	if streamErr != nil {
		t.Fatalf("stream error = %v", streamErr)
	}
	if text != "recovered" {
		t.Errorf("streamed text = %q, want %q", text, "recovered")
	}

	if len(*slept) != 2 {
		t.Errorf("slept %d times (%v), want 2", len(*slept), *slept)
	}
	if handler.callCount() != 3 {
		t.Errorf("connect attempts = %d, want 3", handler.callCount())
	}
}

func TestClient_DoStream_RestartsAfterMidStreamFailure(t *testing.T) {
	var mu sync.Mutex
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()

		if first {
			// Promise more bytes than are sent so the client's read
			// fails mid-stream.
			w.Header().Set("Content-Length", "1024")
			fmt.Fprint(w, "partial ")
			w.(http.Flusher).Flush()
			return
		}
		fmt.Fprint(w, "complete")
	})
	client, slept, _ := newTestClient(t, handler, RetryPolicy{})

	events, err := client.DoStream(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}

	text, streamErr := collectStream(t, events)
	if streamErr != nil {
		t.Fatalf("stream error = %v", streamErr)
	}
	// The restarted stream continues on the same channel; its chunks follow
	// whatever the broken stream already delivered.
	if !strings.HasSuffix(text, "complete") {
		t.Errorf("streamed text = %q, want it to end with the restarted stream", text)
	}
	if len(*slept) != 1 || (*slept)[0] != DefaultTransportDelay {
		t.Errorf("sleeps = %v, want one %v wait", *slept, DefaultTransportDelay)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("connect attempts = %d, want 2", calls)
	}
}

func TestClient_DoStream_FatalStatusSurfaces(t *testing.T) {
	handler := &streamScript{statuses: []int{http.StatusBadRequest}}
	client, slept, _ := newTestClient(t, handler, RetryPolicy{})

	events, err := client.DoStream(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}

	_, streamErr := collectStream(t, events)
	if streamErr == nil {
		t.Fatal("stream should surface the fatal status")
	}

	var reqErr *RequestError
	if !errors.As(streamErr, &reqErr) || reqErr.StatusCode != http.StatusBadRequest {
		t.Errorf("stream error = %v, want *RequestError with status 400", streamErr)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v before a fatal error", *slept)
	}
}

func TestClient_DoStream_RetriesExhausted(t *testing.T) {
	handler := &streamScript{
		statuses: []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable},
	}
	client, _, _ := newTestClient(t, handler, RetryPolicy{MaxAttempts: 2})

	events, err := client.DoStream(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}

	_, streamErr := collectStream(t, events)
	if !errors.Is(streamErr, ErrRetriesExhausted) {
		t.Errorf("stream error = %v, want ErrRetriesExhausted", streamErr)
	}
	if handler.callCount() != 2 {
		t.Errorf("connect attempts = %d, want 2", handler.callCount())
	}
}

func TestClient_DoStream_ContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-blocked
	})

	server := httptest.NewServer(handler)
	defer server.Close()
	defer close(blocked)

	client, err := NewClient(server.URL, "test-key", WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := client.DoStream(ctx, testRequest(t))
	if err != nil {
		t.Fatalf("DoStream() error = %v", err)
	}

	cancel()

	_, streamErr := collectStream(t, events)
	if !errors.Is(streamErr, context.Canceled) {
		t.Errorf("stream error = %v, want context.Canceled", streamErr)
	}
}
