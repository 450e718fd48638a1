package recall

import (
	"fmt"
	"math"
)

// CosineSimilarity returns the directional closeness of a and b in [-1, 1].
// If either vector has zero magnitude the similarity is 0.
//
// The vectors must have the same length. A mismatch means two different
// embedding configurations were mixed, which is a programming defect, so it
// panics rather than coercing the vectors or returning a recoverable error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("recall: embedding dimension mismatch: %d vs %d", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
