package aistudio

import "fmt"

// Message role constants. The service accepts a closed set of roles; values
// outside it are rejected at construction.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Content block type constants.
const (
	BlockTypeText = "text"
)

// ContentBlock is one element of a message's content. It is a tagged union;
// currently only the text variant exists.
type ContentBlock struct {
	// Type indicates the block variant. Values: "text"
	Type string `json:"type"`

	// Text contains the block's text content (text variant)
	Text string `json:"text"`
}

// Message represents a single role-tagged message in a request.
type Message struct {
	// Role is either "system" or "user"
	Role string `json:"role"`

	// Content is the ordered list of content blocks for this message
	Content []ContentBlock `json:"content"`
}

// NewMessage creates a Message with a single text block. The role must be
// one of the known role constants.
func NewMessage(role, text string) (Message, error) {
	switch role {
	case RoleSystem, RoleUser:
	default:
		return Message{}, &ValidationError{
			Field:  "role",
			Value:  role,
			Reason: fmt.Sprintf("role must be '%s' or '%s'", RoleSystem, RoleUser),
			Err:    ErrInvalidRequest,
		}
	}

	return Message{
		Role:    role,
		Content: []ContentBlock{{Type: BlockTypeText, Text: text}},
	}, nil
}

// AssembleMessages composes the message list for one request: exactly one
// system message followed by exactly one user message. Pure function, no
// side effects.
func AssembleMessages(systemMessage, userPrompt string) []Message {
	return []Message{
		{
			Role:    RoleSystem,
			Content: []ContentBlock{{Type: BlockTypeText, Text: systemMessage}},
		},
		{
			Role:    RoleUser,
			Content: []ContentBlock{{Type: BlockTypeText, Text: userPrompt}},
		},
	}
}
