package aistudio

import (
	"fmt"
	"strings"
)

// DefaultSystemMessage is the system message used when the caller has not
// set an override.
const DefaultSystemMessage = `You are an intelligent assistant.
In your prompts, you will receive semantic requests to process.
Your role is to understand what the user asks and rationalize over it.
If a function is passed in the prompt, you should call it and return the result.`

// FunctionCallingSystemMessage advertises the function-calling output
// contract: the model is expected to answer with a tool call, not free text.
const FunctionCallingSystemMessage = `You are an intelligent assistant.
In your prompts, you will receive semantic requests to process.
Your role is to understand what the user asks and rationalize over it.
You must answer by calling one of the provided functions with arguments that
satisfy its parameter schema. Do not answer with free text.`

const promptSeparator = "------------------------------"

// PromptTemplate carries the pieces a prompt is composed from. It is
// produced by the caller or by a prior round of function-calling decoding
// and consumed to build the next prompt.
type PromptTemplate struct {
	// Prompt is the user's request (required)
	Prompt string `json:"prompt"`

	// History is the conversation history, if any
	History string `json:"history,omitempty"`

	// Context is retrieved context for the request, if any
	Context string `json:"context,omitempty"`

	// FunctionName is the function that should be applied to this
	// workload, if any
	FunctionName string `json:"function_name,omitempty"`
}

// Render composes the full prompt: the retrieved context, then the
// conversation history, then the user's request, separated by rules.
func (pt PromptTemplate) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provided the following context:\n%s\n%s\n%s\n", promptSeparator, pt.Context, promptSeparator)
	fmt.Fprintf(&b, "And the following history:\n%s\n%s\n", pt.History, promptSeparator)
	b.WriteString(pt.Prompt)
	return b.String()
}

// ComposePrompt renders the default prompt template for the given pieces.
func ComposePrompt(contextText, historyText, prompt string) string {
	return PromptTemplate{
		Prompt:  prompt,
		History: historyText,
		Context: contextText,
	}.Render()
}
