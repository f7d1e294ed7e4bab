package aistudio

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// SourceFunc retrieves an opaque string from an external collaborator, such
// as conversation history or context from persistent storage. It may
// suspend on I/O; the library treats the result as opaque.
type SourceFunc func(ctx context.Context) (string, error)

// generator is the shared orchestration core of both generator variants.
// One invocation runs a fixed lifecycle: retrieve context, retrieve history,
// compose the prompt, build the request, dispatch it, interpret the
// response. The variants differ only in what they attach to the request and
// how they interpret the response.
//
// A generator instance is long-lived and safe for concurrent invocations;
// the mutable system message is guarded, and backoff state is scoped to each
// call inside the Client.
type generator struct {
	client               *Client
	logger               *log.Logger
	contextFn            SourceFunc
	historyFn            SourceFunc
	defaultSystemMessage string

	mu            sync.RWMutex
	systemMessage string
}

// GeneratorOption configures a generator.
type GeneratorOption func(*generator)

// WithContextSource sets the external context accessor.
func WithContextSource(fn SourceFunc) GeneratorOption {
	return func(g *generator) { g.contextFn = fn }
}

// WithHistorySource sets the external history accessor.
func WithHistorySource(fn SourceFunc) GeneratorOption {
	return func(g *generator) { g.historyFn = fn }
}

// WithClient replaces the generator's own transport with a caller-supplied
// one. The generator takes ownership; its Close releases the client.
func WithClient(c *Client) GeneratorOption {
	return func(g *generator) { g.client = c }
}

// WithGeneratorLogger replaces the default logrus standard logger.
func WithGeneratorLogger(l *log.Logger) GeneratorOption {
	return func(g *generator) { g.logger = l }
}

func newGenerator(endpointURL, apiKey, defaultSystem string, opts ...GeneratorOption) (*generator, error) {
	g := &generator{
		logger:               log.StandardLogger(),
		defaultSystemMessage: defaultSystem,
		systemMessage:        defaultSystem,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.client == nil {
		client, err := NewClient(endpointURL, apiKey, WithLogger(g.logger))
		if err != nil {
			return nil, err
		}
		g.client = client
	}

	return g, nil
}

// SystemMessage returns the current system message.
func (g *generator) SystemMessage() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.systemMessage
}

// SetSystemMessage overrides the system message for subsequent invocations.
func (g *generator) SetSystemMessage(message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.systemMessage = message
}

// ResetSystemMessage restores the variant's default system message.
func (g *generator) ResetSystemMessage() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.systemMessage = g.defaultSystemMessage
}

// Close releases the underlying transport. Call it on every exit path once
// the generator is no longer needed.
func (g *generator) Close() {
	g.client.Close()
}

// composeUserPrompt runs the external accessors and renders the prompt
// template around the caller's raw prompt.
func (g *generator) composeUserPrompt(ctx context.Context, prompt string) (string, error) {
	contextText, err := g.retrieve(ctx, g.contextFn)
	if err != nil {
		return "", err
	}

	historyText, err := g.retrieve(ctx, g.historyFn)
	if err != nil {
		return "", err
	}

	return ComposePrompt(contextText, historyText, prompt), nil
}

func (g *generator) retrieve(ctx context.Context, fn SourceFunc) (string, error) {
	if fn == nil {
		return "", nil
	}
	return fn(ctx)
}

// buildRequest assembles and validates the wire payload for one invocation.
func (g *generator) buildRequest(ctx context.Context, prompt string, params map[string]any, tools []Tool) (*Request, error) {
	userPrompt, err := g.composeUserPrompt(ctx, prompt)
	if err != nil {
		return nil, err
	}

	rp, err := ParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	messages := AssembleMessages(g.SystemMessage(), userPrompt)
	return BuildRequest(messages, rp, tools)
}

// run executes the full lifecycle and logs usage telemetry on success.
func (g *generator) run(ctx context.Context, prompt string, params map[string]any, tools []Tool) (*Response, error) {
	req, err := g.buildRequest(ctx, prompt, params, tools)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	g.logUsage(resp)
	return resp, nil
}

// logUsage reports {model, usage...} at info level. Best-effort, never
// affects the returned value.
func (g *generator) logUsage(resp *Response) {
	fields := log.Fields{"model": resp.Model, "event": "query_generated"}
	for k, v := range resp.Usage {
		fields[k] = v
	}
	g.logger.WithFields(fields).Info("Query successfully generated")
}

// PromptGenerator invokes the endpoint for free-text completions.
type PromptGenerator struct {
	*generator
}

// NewPromptGenerator creates a plain completion generator for the given
// endpoint and credential.
func NewPromptGenerator(endpointURL, apiKey string, opts ...GeneratorOption) (*PromptGenerator, error) {
	core, err := newGenerator(endpointURL, apiKey, DefaultSystemMessage, opts...)
	if err != nil {
		return nil, err
	}
	return &PromptGenerator{generator: core}, nil
}

// Generate invokes the endpoint and returns the textual completion,
// choices[0].message.content. A response without content yields the empty
// string, not an error.
func (g *PromptGenerator) Generate(ctx context.Context, prompt string, params map[string]any) (string, error) {
	resp, err := g.run(ctx, prompt, params, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GenerateFull invokes the endpoint and returns the entire response object,
// for callers that need usage or other metadata.
func (g *PromptGenerator) GenerateFull(ctx context.Context, prompt string, params map[string]any) (*Response, error) {
	return g.run(ctx, prompt, params, nil)
}

// Stream invokes the endpoint with streaming enabled and returns the
// response as a sequence of text chunks.
func (g *PromptGenerator) Stream(ctx context.Context, prompt string, params map[string]any) (<-chan StreamEvent, error) {
	req, err := g.buildRequest(ctx, prompt, params, nil)
	if err != nil {
		return nil, err
	}

	streaming := true
	req.RequestParams.Stream = &streaming

	return g.client.DoStream(ctx, req)
}

// FunctionCallingGenerator invokes the endpoint for structured tool calls.
// Tool declarations must be configured with SetTools before the first
// invocation; its default system message advertises the tool-call output
// contract.
type FunctionCallingGenerator struct {
	*generator

	toolsMu sync.RWMutex
	tools   []Tool
}

// NewFunctionCallingGenerator creates a function-calling generator for the
// given endpoint and credential.
func NewFunctionCallingGenerator(endpointURL, apiKey string, opts ...GeneratorOption) (*FunctionCallingGenerator, error) {
	core, err := newGenerator(endpointURL, apiKey, FunctionCallingSystemMessage, opts...)
	if err != nil {
		return nil, err
	}
	return &FunctionCallingGenerator{generator: core}, nil
}

// SetTools configures the tool declarations attached to every request. Each
// declaration is validated; the set must be non-empty.
func (g *FunctionCallingGenerator) SetTools(tools []Tool) error {
	if len(tools) == 0 {
		return &ValidationError{Field: "tools", Reason: "at least one tool declaration is required", Err: ErrNoTools}
	}

	for i := range tools {
		if err := tools[i].Validate(); err != nil {
			return err
		}
	}

	g.toolsMu.Lock()
	defer g.toolsMu.Unlock()
	g.tools = append([]Tool(nil), tools...)
	return nil
}

// Tools returns the configured tool declarations.
func (g *FunctionCallingGenerator) Tools() []Tool {
	g.toolsMu.RLock()
	defer g.toolsMu.RUnlock()
	return append([]Tool(nil), g.tools...)
}

// ClearTools removes all configured tool declarations.
func (g *FunctionCallingGenerator) ClearTools() {
	g.toolsMu.Lock()
	defer g.toolsMu.Unlock()
	g.tools = nil
}

// configuredTools returns the declarations or the configuration error that
// must surface before anything is built or sent.
func (g *FunctionCallingGenerator) configuredTools() ([]Tool, error) {
	g.toolsMu.RLock()
	defer g.toolsMu.RUnlock()

	if len(g.tools) == 0 {
		return nil, &ValidationError{
			Field:  "tools",
			Reason: "tool declarations must be set prior to use",
			Err:    ErrNoTools,
		}
	}
	return g.tools, nil
}

// Call invokes the endpoint and returns the decoded tool-call arguments,
// choices[0].message.tool_calls[0].function.arguments. A response without a
// tool call is a protocol violation and returns a *DecodeError.
func (g *FunctionCallingGenerator) Call(ctx context.Context, prompt string, params map[string]any) (map[string]any, error) {
	resp, err := g.CallFull(ctx, prompt, params)
	if err != nil {
		return nil, err
	}
	return resp.ToolArguments()
}

// CallFull invokes the endpoint and returns the entire response object
// without decoding the tool call, for callers that need usage or other
// metadata.
func (g *FunctionCallingGenerator) CallFull(ctx context.Context, prompt string, params map[string]any) (*Response, error) {
	tools, err := g.configuredTools()
	if err != nil {
		return nil, err
	}
	return g.run(ctx, prompt, params, tools)
}
