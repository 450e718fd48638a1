package recall

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrEmbedding marks failures of the embedding provider: unreachable,
	// rate-limited, malformed response, or a vector of the wrong dimension.
	ErrEmbedding = goerr.New("embedding provider failed")

	// ErrStorage marks failures of the storage backend on write paths.
	// Missing individual entries on read paths are ErrNotFound instead.
	ErrStorage = goerr.New("storage unavailable")

	// ErrNotFound is reported by KV implementations for absent or expired
	// keys. Check with errors.Is.
	ErrNotFound = goerr.New("not found")
)
