package aistudio

import "encoding/json"

// Response is the service's reply to a completion request. Only the fields
// the library interprets are declared; everything else the service sends is
// ignored. Usage is opaque and is only logged.
type Response struct {
	Model   string         `json:"model"`
	Usage   map[string]any `json:"usage"`
	Choices []Choice       `json:"choices"`
}

// Choice is one generated completion.
type Choice struct {
	Message ChoiceMessage `json:"message"`
}

// ChoiceMessage is the model's message within a choice: either free text
// (Content) or structured tool invocations (ToolCalls).
type ChoiceMessage struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is a structured function invocation emitted by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the invoked function's name and its arguments as a
// JSON-encoded string.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Text returns the textual completion, choices[0].message.content. An absent
// choice or content is treated as "no answer" and returns the empty string
// rather than failing.
func (r *Response) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ToolArguments locates choices[0].message.tool_calls[0].function.arguments
// and decodes it into a structured argument map. A function-calling request
// without a resulting tool call is a protocol violation, so an empty choice
// or tool-call list, or malformed argument JSON, returns a *DecodeError -
// there is no silent-empty fallback on this path.
func (r *Response) ToolArguments() (map[string]any, error) {
	if r == nil || len(r.Choices) == 0 {
		return nil, &DecodeError{Reason: "response has no choices", Err: ErrDecode}
	}

	toolCalls := r.Choices[0].Message.ToolCalls
	if len(toolCalls) == 0 {
		return nil, &DecodeError{Reason: "response has no tool calls", Err: ErrDecode}
	}

	raw := toolCalls[0].Function.Arguments
	if raw == "" {
		return nil, &DecodeError{Reason: "tool call has no arguments", Err: ErrDecode}
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &DecodeError{Reason: "tool call arguments are not valid JSON", Err: err}
	}

	return args, nil
}
