package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/logging"
	"github.com/mwiater/docqa/internal/providerfactory"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// HTTPEmbedder requests embeddings from an Ollama or llama.cpp host.
type HTTPEmbedder struct {
	client   *http.Client
	host     appconfig.Host
	hostType string
	model    string
	timeout  time.Duration
}

// NewHTTPEmbedder builds an embedder for model on host.
func NewHTTPEmbedder(host appconfig.Host, model string, timeout time.Duration) (*HTTPEmbedder, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("embedding model is empty")
	}
	hostType, err := providerfactory.NormalizeHostType(host.Type)
	if err != nil {
		return nil, err
	}
	return &HTTPEmbedder{
		client:   &http.Client{Timeout: timeout},
		host:     host,
		hostType: hostType,
		model:    model,
		timeout:  timeout,
	}, nil
}

// NewEmbedderFromConfig builds an embedder for the configured embedding host and model.
func NewEmbedderFromConfig(cfg *appconfig.Config) (*HTTPEmbedder, error) {
	host, err := cfg.EmbeddingTarget()
	if err != nil {
		return nil, fmt.Errorf("embedding host: %w", err)
	}
	return NewHTTPEmbedder(host, cfg.EmbeddingModel, cfg.RequestTimeout())
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed requests an embedding vector for text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	endpoint := e.host.URL + "/api/embeddings"
	payload := map[string]any{"model": e.model, "prompt": text}
	if e.hostType == providerfactory.TypeLlamaCpp {
		endpoint = e.host.URL + "/v1/embeddings"
		payload = map[string]any{"model": e.model, "input": text}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	logging.LogRequest("DOCQA->LLM", e.host.Name, e.model, "embed", map[string]any{"url": endpoint, "chars": len(text)})

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var vec []float64
	if e.hostType == providerfactory.TypeLlamaCpp {
		var parsed openAIEmbeddingResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("parse embedding response: %w", err)
		}
		if len(parsed.Data) > 0 {
			vec = parsed.Data[0].Embedding
		}
	} else {
		var parsed ollamaEmbeddingResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("parse embedding response: %w", err)
		}
		vec = parsed.Embedding
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embedding response returned empty vector")
	}
	return vec, nil
}

// CachedEmbedder memoizes embeddings of repeated texts, such as questions asked
// again, for a fixed time.
type CachedEmbedder struct {
	next  Embedder
	cache *cache.Cache
}

// NewCachedEmbedder wraps next with an expiring cache.
func NewCachedEmbedder(next Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache.New(ttl, 2*ttl)}
}

// Embed returns the cached vector for text or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := c.cache.Get(text); ok {
		return v.([]float64), nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, cache.DefaultExpiration)
	return vec, nil
}

// Flush drops every cached vector.
func (c *CachedEmbedder) Flush() {
	c.cache.Flush()
}
