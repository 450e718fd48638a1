// Package ollama embeds text through a local or remote Ollama server.
// The default model is nomic-embed-text, which produces the 768-dimension
// vectors the memory service expects.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/becomeliminal/recall-go"
)

// Config holds connection settings. Zero fields fall back to defaults.
type Config struct {
	// BaseURL of the Ollama server. Default: http://localhost:11434.
	BaseURL string

	// Model to embed with. Default: nomic-embed-text.
	Model string

	// Dimensions the model is expected to produce. A response of any other
	// size is an embedding error. Default: 768.
	Dimensions int

	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
}

// Embedder calls the Ollama embeddings API.
type Embedder struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

var _ recall.Embedder = &Embedder{}

// New creates an embedder from config.
func New(config Config) *Embedder {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "nomic-embed-text"
	}
	if config.Dimensions <= 0 {
		config.Dimensions = 768
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Embedder{
		baseURL: config.BaseURL,
		model:   config.Model,
		dims:    config.Dimensions,
		client:  config.HTTPClient,
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed converts text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode embed request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build embed request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(recall.ErrEmbedding, "embedding request failed",
			goerr.V("model", e.model), goerr.V("cause", err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, goerr.Wrap(recall.ErrEmbedding, "embedding request rejected",
			goerr.V("model", e.model), goerr.V("status", resp.StatusCode), goerr.V("body", string(msg)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, goerr.Wrap(recall.ErrEmbedding, "malformed embedding response",
			goerr.V("model", e.model), goerr.V("cause", err.Error()))
	}

	if len(out.Embedding) != e.dims {
		return nil, goerr.Wrap(recall.ErrEmbedding, "embedding has wrong dimension",
			goerr.V("model", e.model), goerr.V("want", e.dims), goerr.V("got", len(out.Embedding)))
	}

	return out.Embedding, nil
}

// Dimensions returns the configured embedding size.
func (e *Embedder) Dimensions() int {
	return e.dims
}
