package aistudio

import "encoding/json"

// Request is the wire payload for one completion call: messages plus the
// caller's sampling parameters plus optional tool declarations. It is built
// fresh per call and never mutated after serialization.
//
// RequestParams is embedded so its fields serialize at the top level of the
// payload, matching the service's flat request schema.
type Request struct {
	Messages []Message `json:"messages"`
	RequestParams
	Tools []Tool `json:"tools,omitempty"`
}

// BuildRequest merges messages, sampling parameters, and optional tool
// declarations into one validated Request. It enforces the RequestParams
// invariants and the message-shape invariant (one system message followed by
// one user message); violations return a *ValidationError before any network
// call is made. Tool declarations are appended verbatim.
func BuildRequest(messages []Message, params *RequestParams, tools []Tool) (*Request, error) {
	if err := validateMessageShape(messages); err != nil {
		return nil, err
	}

	if params == nil {
		params = &RequestParams{}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Request{
		Messages:      messages,
		RequestParams: *params,
		Tools:         tools,
	}, nil
}

func validateMessageShape(messages []Message) error {
	if len(messages) != 2 {
		return &ValidationError{
			Field:  "messages",
			Value:  len(messages),
			Reason: "a request carries exactly one system message followed by one user message",
			Err:    ErrInvalidRequest,
		}
	}

	if messages[0].Role != RoleSystem || messages[1].Role != RoleUser {
		return &ValidationError{
			Field:  "messages",
			Value:  []string{messages[0].Role, messages[1].Role},
			Reason: "message order must be system, user",
			Err:    ErrInvalidRequest,
		}
	}

	return nil
}

// MarshalBody serializes the request for the wire. Only fields that were
// explicitly set are emitted.
func (r *Request) MarshalBody() ([]byte, error) {
	return json.Marshal(r)
}
