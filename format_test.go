package recall

import (
	"strings"
	"testing"
	"time"
)

func formatResult(userMessage, assistantResponse string, similarity float64) SearchResult {
	return SearchResult{
		Entry: &Entry{
			ID:                "e1",
			UserID:            "u1",
			Timestamp:         time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC),
			UserMessage:       userMessage,
			AssistantResponse: assistantResponse,
		},
		Similarity: similarity,
	}
}

func TestFormatForPromptEmpty(t *testing.T) {
	if got := FormatForPrompt(nil); got != "" {
		t.Errorf("FormatForPrompt(nil) = %q, want empty string", got)
	}
	if got := FormatForPrompt([]SearchResult{}); got != "" {
		t.Errorf("FormatForPrompt([]) = %q, want empty string", got)
	}
}

func TestFormatForPromptSections(t *testing.T) {
	results := []SearchResult{
		formatResult("planning a trip", "sounds fun", 0.92),
		formatResult("fixing my server", "try restarting it", 0.456),
	}

	out := FormatForPrompt(results)

	if !strings.HasPrefix(out, promptHeader) {
		t.Errorf("output missing header, got %q", out)
	}
	if !strings.Contains(out, "1. Mar 15, 2024 (92% relevant)") {
		t.Errorf("first section header missing, got:\n%s", out)
	}
	if !strings.Contains(out, "2. Mar 15, 2024 (46% relevant)") {
		t.Errorf("second section header missing or percentage not rounded, got:\n%s", out)
	}
	if !strings.Contains(out, "User: planning a trip\n") {
		t.Errorf("user message missing, got:\n%s", out)
	}
	if !strings.Contains(out, "Assistant: try restarting it\n") {
		t.Errorf("assistant response missing, got:\n%s", out)
	}
}

func TestFormatForPromptUserMessageBoundary(t *testing.T) {
	exact := strings.Repeat("a", 300)
	out := FormatForPrompt([]SearchResult{formatResult(exact, "ok", 0.9)})

	if strings.Contains(out, exact+"...") {
		t.Error("boundary-length user message must not carry a truncation marker")
	}
	if !strings.Contains(out, "User: "+exact+"\n") {
		t.Error("boundary-length user message should be rendered whole")
	}

	over := strings.Repeat("a", 301)
	out = FormatForPrompt([]SearchResult{formatResult(over, "ok", 0.9)})

	if !strings.Contains(out, strings.Repeat("a", 300)+"...") {
		t.Error("over-boundary user message should be truncated with a marker")
	}
	if strings.Contains(out, over) {
		t.Error("over-boundary user message leaked past 300 characters")
	}
}

func TestFormatForPromptAssistantBoundary(t *testing.T) {
	exact := strings.Repeat("b", 500)
	out := FormatForPrompt([]SearchResult{formatResult("q", exact, 0.9)})

	if strings.Contains(out, exact+"...") {
		t.Error("boundary-length response must not carry a truncation marker")
	}

	over := strings.Repeat("b", 501)
	out = FormatForPrompt([]SearchResult{formatResult("q", over, 0.9)})

	if !strings.Contains(out, strings.Repeat("b", 500)+"...") {
		t.Error("over-boundary response should be truncated with a marker")
	}
	if strings.Contains(out, over) {
		t.Error("over-boundary response leaked past 500 characters")
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	s := strings.Repeat("日", 10)

	if got := truncate(s, 10); got != s {
		t.Errorf("truncate at boundary changed text: %q", got)
	}
	if got := truncate(s, 4); got != strings.Repeat("日", 4)+"..." {
		t.Errorf("truncate(%q, 4) = %q", s, got)
	}
}
