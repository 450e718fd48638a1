package recall

import (
	"time"

	"github.com/google/uuid"
)

// summaryChars is how much of the user message is kept as a display summary.
const summaryChars = 100

// Entry is one persisted conversational exchange with its embedding.
// Entries are immutable: they are created by StoreExchange and removed only
// by TTL expiry or Clear, never updated in place.
type Entry struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Timestamp         time.Time `json:"timestamp"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	Embedding         []float32 `json:"embedding"`

	// Summary is the first 100 characters of UserMessage, kept for cheap
	// display without loading the full text.
	Summary string `json:"summary"`
}

// NewEntry builds an Entry with a fresh UUID and the current UTC time.
// The embedding must already be generated from the exchange text.
func NewEntry(userID, userMessage, assistantResponse string, embedding []float32) *Entry {
	return &Entry{
		ID:                uuid.New().String(),
		UserID:            userID,
		Timestamp:         time.Now().UTC(),
		UserMessage:       userMessage,
		AssistantResponse: assistantResponse,
		Embedding:         embedding,
		Summary:           firstRunes(userMessage, summaryChars),
	}
}

// firstRunes returns the first max characters of s, with no marker.
func firstRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
