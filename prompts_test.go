package aistudio

import (
	"strings"
	"testing"
)

func TestPromptTemplate_Render(t *testing.T) {
	got := PromptTemplate{
		Prompt:  "summarize the report",
		History: "user: hello\nassistant: hi",
		Context: "Q3 revenue grew 12%.",
	}.Render()

	want := "Provided the following context:\n" +
		promptSeparator + "\n" +
		"Q3 revenue grew 12%.\n" +
		promptSeparator + "\n" +
		"And the following history:\n" +
		"user: hello\nassistant: hi\n" +
		promptSeparator + "\n" +
		"summarize the report"

	if got != want {
		t.Errorf("Render() =\n%s\nwant:\n%s", got, want)
	}
}

func TestPromptTemplate_Render_EmptySections(t *testing.T) {
	got := PromptTemplate{Prompt: "just the question"}.Render()

	if !strings.HasSuffix(got, "just the question") {
		t.Errorf("Render() should end with the prompt, got:\n%s", got)
	}
	if strings.Count(got, promptSeparator) != 3 {
		t.Errorf("Render() should keep all three separators, got:\n%s", got)
	}
}

func TestComposePrompt(t *testing.T) {
	got := ComposePrompt("ctx", "hist", "ask")
	want := PromptTemplate{Prompt: "ask", History: "hist", Context: "ctx"}.Render()
	if got != want {
		t.Errorf("ComposePrompt() = %q, want %q", got, want)
	}
}
