package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/mwiater/docqa/internal/appconfig"
)

// Model binds a provider to one host and model so a transcript can be completed
// with a single call.
type Model struct {
	Provider   ChatProvider
	Host       appconfig.Host
	Name       string
	Parameters appconfig.Parameters
}

// Invoke sends transcript without streaming and returns the assistant reply.
func (m Model) Invoke(ctx context.Context, transcript []ChatMessage) (string, error) {
	if m.Provider == nil {
		return "", errors.New("model has no provider")
	}
	history := make([]ChatMessage, len(transcript))
	copy(history, transcript)

	var sb strings.Builder
	err := m.Provider.Stream(ctx, StreamRequest{
		Host:             m.Host,
		Model:            m.Name,
		History:          history,
		Parameters:       m.Parameters,
		DisableStreaming: true,
		Stage:            StageFromContext(ctx),
	}, StreamCallbacks{
		OnChunk: func(msg ChatMessage) error {
			sb.WriteString(msg.Content)
			return nil
		},
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

type stageKey struct{}

// WithStage tags ctx with the pipeline stage that issues model calls.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFromContext returns the stage set by WithStage, or "".
func StageFromContext(ctx context.Context) string {
	stage, _ := ctx.Value(stageKey{}).(string)
	return stage
}
