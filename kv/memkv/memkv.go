// Package memkv is an in-process KV backend with lazy TTL expiry.
// It is intended for tests and single-process deployments.
package memkv

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/becomeliminal/recall-go"
)

type item struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (it item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// Store is a mutex-guarded map. Values are copied on the way in and out so
// callers can never alias internal state.
type Store struct {
	mu    sync.RWMutex
	items map[string]item
}

var _ recall.KV = &Store{}

// New creates an empty store.
func New() *Store {
	return &Store{items: make(map[string]item)}
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	it := item{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = it
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()

	if ok && it.expired(time.Now()) {
		s.mu.Lock()
		// Re-check: the key may have been rewritten since the read lock.
		if cur, still := s.items[key]; still && cur.expired(time.Now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		ok = false
	}

	if !ok {
		return nil, goerr.Wrap(recall.ErrNotFound, "key not found", goerr.V("key", key))
	}
	return append([]byte(nil), it.value...), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Len reports the number of live keys, skipping expired ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	n := 0
	for _, it := range s.items {
		if !it.expired(now) {
			n++
		}
	}
	return n
}
