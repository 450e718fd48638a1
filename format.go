package recall

import (
	"fmt"
	"math"
	"strings"
)

const (
	promptHeader = "=== RELEVANT PAST CONVERSATIONS ==="

	userMessageChars       = 300
	assistantResponseChars = 500
)

// FormatForPrompt renders search results as a bounded text block for
// injection into a conversational system prompt. Empty input produces an
// empty string with no header.
//
// Each section shows a 1-based index, the entry's calendar date, the
// similarity as a whole-number percentage, the user message truncated to
// 300 characters, and the assistant response truncated to 500. Text exactly
// at a boundary is not marked as truncated.
func FormatForPrompt(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(promptHeader + "\n")

	for i, r := range results {
		relevance := int(math.Round(r.Similarity * 100))
		fmt.Fprintf(&b, "\n%d. %s (%d%% relevant)\n", i+1, r.Entry.Timestamp.Format("Jan 2, 2006"), relevance)
		fmt.Fprintf(&b, "User: %s\n", truncate(r.Entry.UserMessage, userMessageChars))
		fmt.Fprintf(&b, "Assistant: %s\n", truncate(r.Entry.AssistantResponse, assistantResponseChars))
	}

	return b.String()
}

// truncate cuts s to max characters, appending an ellipsis marker only when
// something was actually cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
