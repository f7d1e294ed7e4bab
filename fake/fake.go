// Package fake provides an offline stand-in for the hosted completion
// endpoint. It serves wire-correct chat-completion responses filled with
// lorem ipsum text, supports the streaming flag, answers tool-bearing
// requests with a tool call, and can inject failures for resilience testing.
// Used by the examples and the transport tests; no API key required.
package fake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	loremgen "github.com/bozaro/golorem"

	aistudio "github.com/studiogen/aistudio-go"
)

// Model is the model name the fake endpoint reports.
const Model = "lorem-fake-1"

// Handler is an http.Handler implementing the endpoint's wire protocol.
// Zero value is not usable; create with NewHandler.
type Handler struct {
	generator *loremgen.Lorem

	mu            sync.Mutex
	requests      int
	failStatus    int
	failRemaining int
}

// NewHandler creates a fake endpoint handler.
func NewHandler() *Handler {
	return &Handler{generator: loremgen.New()}
}

// Requests returns the number of requests served so far. Tests use it to
// assert that fail-fast paths perform no network call.
func (h *Handler) Requests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests
}

// FailNext makes the next n requests answer with the given HTTP status
// before normal service resumes. Use it to exercise the retry policy.
func (h *Handler) FailNext(status, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failStatus = status
	h.failRemaining = n
}

func (h *Handler) takeFailure() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests++
	if h.failRemaining > 0 {
		h.failRemaining--
		return h.failStatus, true
	}
	return 0, false
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if status, fail := h.takeFailure(); fail {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"code":%d,"message":"injected failure"}}`, status)
		return
	}

	var req aistudio.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"error":{"code":400,"message":"malformed request body"}}`)
		return
	}

	switch {
	case req.RequestParams.IsStreaming():
		h.serveStream(w)
	case len(req.Tools) > 0:
		h.serveToolCall(w, req.Tools[0])
	default:
		h.serveText(w)
	}
}

// serveText answers with a free-text completion.
func (h *Handler) serveText(w http.ResponseWriter) {
	resp := aistudio.Response{
		Model: Model,
		Usage: map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 34,
			"total_tokens":      46,
		},
		Choices: []aistudio.Choice{
			{Message: aistudio.ChoiceMessage{Content: h.generator.Paragraph(1, 3)}},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// serveToolCall answers with a tool call against the first declared tool,
// echoing its parameter names with lorem values so arguments decode.
func (h *Handler) serveToolCall(w http.ResponseWriter, tool aistudio.Tool) {
	args := map[string]any{}
	if props, ok := tool.Function.Parameters["properties"].(map[string]any); ok {
		for name := range props {
			args[name] = h.generator.Word(3, 10)
		}
	}
	rawArgs, _ := json.Marshal(args)

	resp := aistudio.Response{
		Model: Model,
		Usage: map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 8,
			"total_tokens":      20,
		},
		Choices: []aistudio.Choice{
			{
				Message: aistudio.ChoiceMessage{
					ToolCalls: []aistudio.ToolCall{
						{
							ID:   "call_0",
							Type: aistudio.ToolTypeFunction,
							Function: aistudio.FunctionCall{
								Name:      tool.Function.Name,
								Arguments: string(rawArgs),
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// serveStream answers with a chunked sequence of lorem sentences.
func (h *Handler) serveStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	for i := 0; i < 5; i++ {
		fmt.Fprintf(w, "%s\n", h.generator.Sentence(5, 15))
		if canFlush {
			flusher.Flush()
		}
	}
}
