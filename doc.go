// Package recall provides per-user semantic memory for conversational agents.
//
// Each completed exchange (user message + assistant response) is embedded,
// persisted with a retention TTL, and indexed per user. Later queries are
// embedded the same way and matched against stored exchanges by cosine
// similarity, giving the agent "memory" beyond its fixed chat window.
//
// Architecture:
//   - KV: durable key-value capability with per-key TTL (sqlite for
//     persistence, memkv for in-process use, cached for a read-through layer)
//   - Embedder: text-to-vector conversion (ollama for a real model, mock for
//     testing)
//   - Service: orchestrates ingestion, retrieval, and maintenance
//
// Integration:
//   - After every completed chat turn: StoreExchange
//   - Before generating a response: Search, then FormatForPrompt to build the
//     memory block injected into the system prompt
//   - Account management: Exists, Count, Clear
//
// The service holds no global state; the store, the embedder, and their
// credentials are injected through the constructor.
package recall
