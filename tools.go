package aistudio

import "fmt"

// ToolTypeFunction is the only tool type the service accepts.
const ToolTypeFunction = "function"

// FunctionSpec defines a callable function the model may invoke.
// Parameters is a JSON-Schema-shaped object describing the function's
// arguments; the library carries it verbatim.
type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool is a tool declaration attached to a request. Declarations are
// supplied by the caller before a request is built and are immutable for the
// lifetime of that request.
type Tool struct {
	Type     string       `json:"type"` // Always "function"
	Function FunctionSpec `json:"function"`
}

// Validate checks if the Tool is properly configured.
func (t *Tool) Validate() error {
	if t.Type == "" {
		return &ValidationError{Field: "type", Reason: "tool type is required", Err: ErrInvalidRequest}
	}

	if t.Type != ToolTypeFunction {
		return &ValidationError{
			Field:  "type",
			Value:  t.Type,
			Reason: "only 'function' tools are supported",
			Err:    ErrInvalidRequest,
		}
	}

	if t.Function.Name == "" {
		return &ValidationError{Field: "function.name", Reason: "function name is required", Err: ErrInvalidRequest}
	}

	if t.Function.Parameters == nil {
		return &ValidationError{Field: "function.parameters", Reason: "function parameters are required", Err: ErrInvalidRequest}
	}

	if schemaType, ok := t.Function.Parameters["type"].(string); !ok || schemaType != "object" {
		return &ValidationError{
			Field:  "function.parameters",
			Value:  t.Function.Parameters["type"],
			Reason: "function parameters must be a JSON schema with type 'object'",
			Err:    ErrInvalidRequest,
		}
	}

	return nil
}

// NewFunctionTool creates a function tool declaration.
//
// Example parameters:
//
//	map[string]any{
//	  "type": "object",
//	  "properties": map[string]any{
//	    "query": map[string]any{
//	      "type":        "string",
//	      "description": "The SQL query to run",
//	    },
//	  },
//	  "required": []string{"query"},
//	}
func NewFunctionTool(name, description string, parameters map[string]any) (*Tool, error) {
	tool := &Tool{
		Type: ToolTypeFunction,
		Function: FunctionSpec{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}

	if err := tool.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create function tool: %w", err)
	}

	return tool, nil
}
