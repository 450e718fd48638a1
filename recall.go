package recall

import (
	"context"
	"time"
)

// KV is the storage backend capability. Keys are opaque strings namespaced
// by the service; values are opaque bytes.
//
// Implementations: memkv.Store (in-process), sqlite.Store (durable),
// cached.Store (read-through cache over another KV).
type KV interface {
	// Set stores value under key. A ttl greater than zero makes the key
	// eligible for expiry after that duration; ttl of zero or less means the
	// key never expires. Expiry is advisory: backends may collect expired
	// keys lazily, and a Get after expiry reports ErrNotFound.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key, or an error wrapping
	// ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Embedder converts text to vector embeddings.
// Implementations: mock.Embedder (testing), ollama.Embedder (local model
// server), or any API-backed provider supplied by the caller.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
