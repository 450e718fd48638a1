package recall

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// Config holds Service tuning parameters.
type Config struct {
	// Dimensions is the embedding vector size. Every provider response is
	// checked against it; a mismatch is an embedding error, never compared.
	// Default: 768.
	Dimensions int

	// Capacity caps the per-user index length. When an ingestion would
	// exceed it, the oldest entry ids are dropped first. Default: 200.
	Capacity int

	// EntryTTL is the retention window for individual entries. The index
	// itself never expires. Default: 90 days.
	EntryTTL time.Duration

	// MinSimilarity is the relevance threshold; results at or below it are
	// discarded. Default: 0.3.
	MinSimilarity float64

	// BatchSize bounds how many entry fetches run concurrently during
	// Search. Results are identical regardless of batch size. Default: 20.
	BatchSize int

	// DefaultTopK is the result count used when Search is called with
	// topK <= 0. Default: 5.
	DefaultTopK int

	// MaxEmbedChars truncates text before it is sent to the embedding
	// provider. Default: 8000.
	MaxEmbedChars int
}

// DefaultConfig returns the reference parameters.
var DefaultConfig = &Config{
	Dimensions:    768,
	Capacity:      200,
	EntryTTL:      90 * 24 * time.Hour,
	MinSimilarity: 0.3,
	BatchSize:     20,
	DefaultTopK:   5,
	MaxEmbedChars: 8000,
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	out := *c
	if out.Dimensions <= 0 {
		out.Dimensions = DefaultConfig.Dimensions
	}
	if out.Capacity <= 0 {
		out.Capacity = DefaultConfig.Capacity
	}
	if out.EntryTTL <= 0 {
		out.EntryTTL = DefaultConfig.EntryTTL
	}
	if out.MinSimilarity == 0 {
		out.MinSimilarity = DefaultConfig.MinSimilarity
	}
	if out.BatchSize <= 0 {
		out.BatchSize = DefaultConfig.BatchSize
	}
	if out.DefaultTopK <= 0 {
		out.DefaultTopK = DefaultConfig.DefaultTopK
	}
	if out.MaxEmbedChars <= 0 {
		out.MaxEmbedChars = DefaultConfig.MaxEmbedChars
	}
	return &out
}

// SearchResult pairs an entry with its similarity to the query embedding.
type SearchResult struct {
	Entry      *Entry
	Similarity float64
}

// Service orchestrates ingestion, retrieval, and maintenance of
// conversation memory. It is safe for concurrent use; index updates for the
// same user are serialized so concurrent ingestions never lose appends.
type Service struct {
	kv       KV
	embedder Embedder
	config   *Config

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// New creates a Service on the given storage backend and embedder.
// A nil config uses DefaultConfig; zero fields fall back to defaults.
func New(kv KV, embedder Embedder, config *Config) *Service {
	return &Service{
		kv:       kv,
		embedder: embedder,
		config:   config.withDefaults(),
		users:    make(map[string]*sync.Mutex),
	}
}

func entryKey(userID, entryID string) string {
	return "entry:" + userID + ":" + entryID
}

func indexKey(userID string) string {
	return "index:" + userID
}

// userLock returns the mutex serializing index writes for one user.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.users[userID] = mu
	}
	return mu
}

// StoreExchange embeds one completed exchange and persists it as a new
// entry, then appends its id to the user's index, evicting the oldest ids
// when the index exceeds capacity. On embedding or entry-write failure
// nothing is persisted and the index is untouched.
func (s *Service) StoreExchange(ctx context.Context, userID, userMessage, assistantResponse string) (*Entry, error) {
	combined := firstRunes("User: "+userMessage+"\n\nAssistant: "+assistantResponse, s.config.MaxEmbedChars)

	embedding, err := s.embed(ctx, combined)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed exchange", goerr.V("user_id", userID))
	}

	entry := NewEntry(userID, userMessage, assistantResponse, embedding)
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode entry", goerr.V("entry_id", entry.ID))
	}

	if err := s.kv.Set(ctx, entryKey(userID, entry.ID), raw, s.config.EntryTTL); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrStorage, err), "failed to persist entry",
			goerr.V("user_id", userID), goerr.V("entry_id", entry.ID))
	}

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	ids, _, err := s.loadIndex(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids = append(ids, entry.ID)
	if len(ids) > s.config.Capacity {
		ids = ids[len(ids)-s.config.Capacity:]
	}

	if err := s.saveIndex(ctx, userID, ids); err != nil {
		return nil, err
	}

	log.Printf("[MEMORY] Stored exchange for user=%s (index size %d)", userID, len(ids))
	return entry, nil
}

// Search returns the topK stored entries most similar to query, highest
// similarity first. Entries at or below the relevance threshold are
// excluded; ties keep insertion order. A user with no memory yet yields an
// empty result, not an error. Entries that can no longer be fetched (for
// example, expired) are skipped.
//
// A topK of zero or less uses the configured default.
func (s *Service) Search(ctx context.Context, userID, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = s.config.DefaultTopK
	}

	queryEmbedding, err := s.embed(ctx, firstRunes(query, s.config.MaxEmbedChars))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query", goerr.V("user_id", userID))
	}

	ids, _, err := s.loadIndex(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	entries, err := s.fetchEntries(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		similarity := CosineSimilarity(queryEmbedding, entry.Embedding)
		if similarity <= s.config.MinSimilarity {
			continue
		}
		results = append(results, SearchResult{Entry: entry, Similarity: similarity})
	}

	// Stable: equal similarities keep insertion order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > topK {
		results = results[:topK]
	}

	log.Printf("[MEMORY] Retrieved %d of %d entries for user=%s", len(results), len(ids), userID)
	return results, nil
}

// fetchEntries loads the referenced entries in bounded concurrent batches,
// preserving index positions. Entries that fail to load are left nil; only
// context cancellation aborts the whole fetch.
func (s *Service) fetchEntries(ctx context.Context, userID string, ids []string) ([]*Entry, error) {
	entries := make([]*Entry, len(ids))

	for start := 0; start < len(ids); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(ids) {
			end = len(ids)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				entry, err := s.loadEntry(gctx, userID, ids[i])
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					// Expired or unavailable: skip, not an error.
					return nil
				}
				entries[i] = entry
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, goerr.Wrap(err, "memory fetch aborted", goerr.V("user_id", userID))
		}
	}

	return entries, nil
}

func (s *Service) loadEntry(ctx context.Context, userID, entryID string) (*Entry, error) {
	raw, err := s.kv.Get(ctx, entryKey(userID, entryID))
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, goerr.Wrap(err, "failed to decode entry", goerr.V("entry_id", entryID))
	}
	return &entry, nil
}

// loadIndex returns the user's entry ids in insertion order. The second
// return reports whether an index exists at all, distinguishing "no memory
// yet" from an empty list.
func (s *Service) loadIndex(ctx context.Context, userID string) ([]string, bool, error) {
	raw, err := s.kv.Get(ctx, indexKey(userID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, goerr.Wrap(errors.Join(ErrStorage, err), "failed to load index",
			goerr.V("user_id", userID))
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, goerr.Wrap(err, "failed to decode index", goerr.V("user_id", userID))
	}
	return ids, true, nil
}

func (s *Service) saveIndex(ctx context.Context, userID string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return goerr.Wrap(err, "failed to encode index", goerr.V("user_id", userID))
	}

	// The index itself carries no TTL; only entries expire.
	if err := s.kv.Set(ctx, indexKey(userID), raw, 0); err != nil {
		return goerr.Wrap(errors.Join(ErrStorage, err), "failed to persist index",
			goerr.V("user_id", userID))
	}
	return nil
}

// embed calls the provider and verifies the configured dimension.
func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, ErrEmbedding) {
			return nil, err
		}
		return nil, errors.Join(ErrEmbedding, err)
	}
	if len(embedding) != s.config.Dimensions {
		return nil, goerr.Wrap(ErrEmbedding, "embedding has wrong dimension",
			goerr.V("want", s.config.Dimensions), goerr.V("got", len(embedding)))
	}
	return embedding, nil
}

// Exists reports whether the user has a memory index, regardless of length.
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	_, found, err := s.loadIndex(ctx, userID)
	if err != nil {
		return false, err
	}
	return found, nil
}

// Count returns the number of entries referenced by the user's index, 0
// when no index exists.
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	ids, _, err := s.loadIndex(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Clear deletes every entry referenced by the user's index, then the index
// itself, and returns the number of referenced entries. Without an index it
// deletes nothing and returns 0, so calling it twice is safe.
func (s *Service) Clear(ctx context.Context, userID string) (int, error) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	ids, found, err := s.loadIndex(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}

	for _, id := range ids {
		if err := s.kv.Delete(ctx, entryKey(userID, id)); err != nil && !errors.Is(err, ErrNotFound) {
			return 0, goerr.Wrap(errors.Join(ErrStorage, err), "failed to delete entry",
				goerr.V("user_id", userID), goerr.V("entry_id", id))
		}
	}

	if err := s.kv.Delete(ctx, indexKey(userID)); err != nil && !errors.Is(err, ErrNotFound) {
		return 0, goerr.Wrap(errors.Join(ErrStorage, err), "failed to delete index",
			goerr.V("user_id", userID))
	}

	log.Printf("[MEMORY] Cleared %d entries for user=%s", len(ids), userID)
	return len(ids), nil
}

// Close releases the storage backend when it holds resources.
func (s *Service) Close() error {
	if closer, ok := s.kv.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
