// Package cached layers a ristretto read cache over another KV backend.
//
// Memory entries are immutable once written, which makes them safe to cache
// aggressively; writes and deletes go straight through to the backing store
// and drop the cached copy so mutable keys (the per-user index) never serve
// stale reads from the same process.
package cached

import (
	"context"
	"io"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/m-mizutani/goerr/v2"

	"github.com/becomeliminal/recall-go"
)

// Config tunes the cache layer.
type Config struct {
	// MaxBytes bounds the cache size by value cost. Default: 64 MiB.
	MaxBytes int64

	// TTL bounds how long a read stays cached, so entries expired in the
	// backing store stop being served shortly after. Default: 5 minutes.
	TTL time.Duration
}

// Store is a read-through cache over a backing KV.
type Store struct {
	backing recall.KV
	cache   *ristretto.Cache
	ttl     time.Duration
}

var _ recall.KV = &Store{}

// New wraps backing with a ristretto cache.
func New(backing recall.KV, config *Config) (*Store, error) {
	maxBytes := int64(64 << 20)
	ttl := 5 * time.Minute
	if config != nil {
		if config.MaxBytes > 0 {
			maxBytes = config.MaxBytes
		}
		if config.TTL > 0 {
			ttl = config.TTL
		}
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create cache")
	}

	return &Store{backing: backing, cache: cache, ttl: ttl}, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.backing.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	s.cache.Del(key)
	s.cache.Wait()
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := s.cache.Get(key); ok {
		cached := v.([]byte)
		return append([]byte(nil), cached...), nil
	}

	value, err := s.backing.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	stored := append([]byte(nil), value...)
	s.cache.SetWithTTL(key, stored, int64(len(stored)), s.ttl)
	return value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.backing.Delete(ctx, key); err != nil {
		return err
	}
	s.cache.Del(key)
	s.cache.Wait()
	return nil
}

// Close releases the cache and the backing store when it holds resources.
func (s *Store) Close() error {
	s.cache.Close()
	if closer, ok := s.backing.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
