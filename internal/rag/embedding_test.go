package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/docqa/internal/appconfig"
)

func TestHTTPEmbedderOllama(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2]}`))
	}))
	defer server.Close()

	e, err := NewHTTPEmbedder(appconfig.Host{Name: "local", URL: server.URL}, "nomic-embed-text", 5*time.Second)
	require.NoError(t, err)
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, vec)
	assert.Equal(t, "hello", got["prompt"])
	assert.Equal(t, "nomic-embed-text", got["model"])
}

func TestHTTPEmbedderLlamaCpp(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,2,3]}]}`))
	}))
	defer server.Close()

	e, err := NewHTTPEmbedder(appconfig.Host{URL: server.URL, Type: "llama.cpp"}, "bge", 5*time.Second)
	require.NoError(t, err)
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, vec)
	assert.Equal(t, "hello", got["input"])
}

func TestHTTPEmbedderErrors(t *testing.T) {
	_, err := NewHTTPEmbedder(appconfig.Host{}, " ", time.Second)
	assert.Error(t, err)
	_, err = NewHTTPEmbedder(appconfig.Host{Type: "vllm"}, "m", time.Second)
	assert.Error(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	e, err := NewHTTPEmbedder(appconfig.Host{URL: server.URL}, "m", 5*time.Second)
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

type countingEmbedder struct {
	calls atomic.Int32
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	c.calls.Add(1)
	return []float64{float64(len(text)), 1}, nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner, time.Minute)

	for i := 0; i < 3; i++ {
		vec, err := cached.Embed(context.Background(), "same question")
		require.NoError(t, err)
		assert.Equal(t, []float64{13, 1}, vec)
	}
	assert.EqualValues(t, 1, inner.calls.Load())

	_, err := cached.Embed(context.Background(), "other")
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())

	cached.Flush()
	_, err = cached.Embed(context.Background(), "same question")
	require.NoError(t, err)
	assert.EqualValues(t, 3, inner.calls.Load())
}
