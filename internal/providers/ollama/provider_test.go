// internal/providers/ollama/provider_test.go
package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/providers"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// TestProviderStreamDisableStreaming verifies that when streaming is disabled, the provider
// makes a single request and correctly processes the non-streaming response.
func TestProviderStreamDisableStreaming(t *testing.T) {
	t.Parallel()

	var capturedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		capturedBody = body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"test-model","message":{"role":"assistant","content":"final"},"done":true,"total_duration":123,"eval_count":9}`))
	}))
	defer server.Close()

	provider := New(&appconfig.Config{TimeoutSeconds: 5})
	req := providers.StreamRequest{
		Host:             appconfig.Host{Name: "test", URL: server.URL},
		Model:            "test-model",
		History:          []providers.ChatMessage{{Role: providers.RoleUser, Content: "question"}},
		DisableStreaming: true,
		Parameters: appconfig.Parameters{
			Temperature: floatPtr(0.1),
			NumCtx:      intPtr(8192),
			Seed:        intPtr(42),
		},
	}

	var chunks []providers.ChatMessage
	var meta providers.StreamMetadata
	err := provider.Stream(context.Background(), req, providers.StreamCallbacks{
		OnChunk: func(msg providers.ChatMessage) error {
			chunks = append(chunks, msg)
			return nil
		},
		OnComplete: func(m providers.StreamMetadata) error {
			meta = m
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	if len(chunks) != 1 || chunks[0].Content != "final" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
	if meta.Model != "test-model" || !meta.Done || meta.EvalCount != 9 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	var payload struct {
		Stream   bool                    `json:"stream"`
		Messages []providers.ChatMessage `json:"messages"`
		Options  map[string]float64      `json:"options"`
	}
	if err := json.Unmarshal(capturedBody, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Stream {
		t.Fatal("expected stream=false")
	}
	if len(payload.Messages) != 1 || payload.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", payload.Messages)
	}
	if payload.Options["num_ctx"] != 8192 || payload.Options["seed"] != 42 || payload.Options["temperature"] != 0.1 {
		t.Fatalf("unexpected options: %+v", payload.Options)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(capturedBody, &keys); err != nil {
		t.Fatalf("unmarshal payload keys: %v", err)
	}
	if _, ok := keys["format"]; ok {
		t.Fatalf("expected no format constraint, got %s", keys["format"])
	}
}

// TestProviderStreamChunks verifies newline-delimited streaming output.
func TestProviderStreamChunks(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, `{"model":"m","message":{"role":"assistant","content":"Hel"},"done":false}`+"\n")
		_, _ = io.WriteString(w, `{"model":"m","message":{"role":"assistant","content":"lo"},"done":false}`+"\n")
		_, _ = io.WriteString(w, `{"model":"m","message":{"role":"assistant","content":""},"done":true,"eval_count":2}`+"\n")
	}))
	defer server.Close()

	provider := New(&appconfig.Config{TimeoutSeconds: 5})
	var sb strings.Builder
	var meta providers.StreamMetadata
	err := provider.Stream(context.Background(), providers.StreamRequest{
		Host:  appconfig.Host{URL: server.URL},
		Model: "m",
	}, providers.StreamCallbacks{
		OnChunk: func(msg providers.ChatMessage) error {
			sb.WriteString(msg.Content)
			return nil
		},
		OnComplete: func(m providers.StreamMetadata) error {
			meta = m
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}
	if sb.String() != "Hello" {
		t.Fatalf("expected Hello, got %q", sb.String())
	}
	if !meta.Done || meta.EvalCount != 2 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

// TestProviderStreamHTTPError verifies non-200 responses surface as errors.
func TestProviderStreamHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'missing' not found"}`))
	}))
	defer server.Close()

	provider := New(&appconfig.Config{TimeoutSeconds: 5})
	err := provider.Stream(context.Background(), providers.StreamRequest{
		Host:             appconfig.Host{URL: server.URL},
		Model:            "missing",
		DisableStreaming: true,
	}, providers.StreamCallbacks{})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestEnsureModelReady(t *testing.T) {
	t.Parallel()

	var model string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		model, _ = body["model"].(string)
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer server.Close()

	provider := New(&appconfig.Config{TimeoutSeconds: 5})
	if err := provider.EnsureModelReady(context.Background(), appconfig.Host{URL: server.URL}, "llama3.2"); err != nil {
		t.Fatalf("EnsureModelReady: %v", err)
	}
	if model != "llama3.2" {
		t.Fatalf("expected model llama3.2, got %q", model)
	}
}

func TestBuildOptionsOmitsUnset(t *testing.T) {
	if got := buildOptions(appconfig.Parameters{}); len(got) != 0 {
		t.Fatalf("expected no options, got %v", got)
	}
}

func TestHostIdentifier(t *testing.T) {
	cases := map[string]appconfig.Host{
		"named":       {Name: "named", URL: "http://x"},
		"http://x":    {URL: " http://x "},
		"ollama-host": {},
	}
	for want, host := range cases {
		if got := hostIdentifier(host); got != want {
			t.Fatalf("hostIdentifier(%+v) = %q, want %q", host, got, want)
		}
	}
}
