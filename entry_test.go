package recall

import (
	"strings"
	"testing"
	"time"
)

func TestNewEntry(t *testing.T) {
	embedding := []float32{0.1, 0.2, 0.3}
	before := time.Now().UTC()

	entry := NewEntry("u1", "hello there", "hi, how can I help?", embedding)

	if entry.ID == "" {
		t.Error("entry ID is empty")
	}
	if entry.UserID != "u1" {
		t.Errorf("UserID = %q, want %q", entry.UserID, "u1")
	}
	if entry.Timestamp.Before(before) || entry.Timestamp.After(time.Now().UTC()) {
		t.Errorf("Timestamp %v not in expected window", entry.Timestamp)
	}
	if entry.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, want UTC", entry.Timestamp.Location())
	}
	if entry.Summary != "hello there" {
		t.Errorf("Summary = %q, want full short message", entry.Summary)
	}
	if len(entry.Embedding) != 3 {
		t.Errorf("Embedding length = %d, want 3", len(entry.Embedding))
	}
}

func TestNewEntryUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		entry := NewEntry("u1", "msg", "resp", nil)
		if seen[entry.ID] {
			t.Fatalf("duplicate entry ID %q", entry.ID)
		}
		seen[entry.ID] = true
	}
}

func TestNewEntrySummaryTruncation(t *testing.T) {
	long := strings.Repeat("x", 250)

	entry := NewEntry("u1", long, "resp", nil)

	if len([]rune(entry.Summary)) != 100 {
		t.Errorf("Summary length = %d, want 100", len([]rune(entry.Summary)))
	}
	if entry.Summary != long[:100] {
		t.Error("Summary is not a prefix of the user message")
	}
}
