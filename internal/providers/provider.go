// internal/providers/provider.go

// Package providers defines the interfaces for interacting with different model hosts.
// It provides a common abstraction layer for sending chat requests and handling
// streaming responses regardless of the backend (Ollama, llama.cpp).
package providers

import (
	"context"
	"time"

	"github.com/mwiater/docqa/internal/appconfig"
)

// Chat roles used in transcripts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a chat conversation.
// It contains the role of the message sender (e.g., "user", "assistant") and the message content.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamMetadata contains metadata about a completed chat stream,
// including performance metrics like timing and token counts.
type StreamMetadata struct {
	Model              string
	CreatedAt          time.Time
	Done               bool
	TotalDuration      int64
	LoadDuration       int64
	PromptEvalCount    int
	PromptEvalDuration int64
	EvalCount          int
	EvalDuration       int64
}

// StreamRequest encapsulates all the information needed to initiate a chat stream.
type StreamRequest struct {
	Host             appconfig.Host
	Model            string
	History          []ChatMessage
	Parameters       appconfig.Parameters
	DisableStreaming bool
	// Stage names the pipeline step issuing the request, for logs and metrics.
	Stage string
}

// StreamCallbacks defines the callback functions that are invoked during a chat stream.
// OnChunk is called for each message chunk received, and OnComplete is called when the stream is finished.
type StreamCallbacks struct {
	OnChunk    func(ChatMessage) error
	OnComplete func(StreamMetadata) error
}

// ChatProvider is the interface that all model providers must implement.
type ChatProvider interface {
	// EnsureModelReady checks if a model is ready to be used and loads it if necessary.
	EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error
	// Stream initiates a chat stream with the provider, sending and receiving messages.
	Stream(ctx context.Context, req StreamRequest, callbacks StreamCallbacks) error
	// Close cleans up any resources used by the provider.
	Close() error
}
