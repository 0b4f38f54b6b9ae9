// internal/metrics/provider.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/providers"
)

// Provider is a decorator that wraps a ChatProvider to record metrics.
type Provider struct {
	wrapped    providers.ChatProvider
	aggregator *Aggregator
}

// NewProvider creates a new metrics-enabled provider that wraps an existing ChatProvider.
func NewProvider(wrapped providers.ChatProvider, aggregator *Aggregator) *Provider {
	return &Provider{wrapped: wrapped, aggregator: aggregator}
}

// Stream intercepts the call to the wrapped provider's Stream method to record performance metrics.
func (p *Provider) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	start := time.Now()
	var firstChunk time.Time

	onChunk := func(chunk providers.ChatMessage) error {
		if firstChunk.IsZero() {
			firstChunk = time.Now()
		}
		if callbacks.OnChunk != nil {
			return callbacks.OnChunk(chunk)
		}
		return nil
	}

	onComplete := func(meta providers.StreamMetadata) error {
		if p.aggregator != nil {
			var ttft int64
			if !firstChunk.IsZero() {
				ttft = firstChunk.Sub(start).Milliseconds()
			}
			if meta.TotalDuration == 0 {
				meta.TotalDuration = time.Since(start).Nanoseconds()
			}
			p.aggregator.Record(meta, ttft)
		}
		if callbacks.OnComplete != nil {
			return callbacks.OnComplete(meta)
		}
		return nil
	}

	return p.wrapped.Stream(ctx, req, providers.StreamCallbacks{
		OnChunk:    onChunk,
		OnComplete: onComplete,
	})
}

// EnsureModelReady passes the call through to the wrapped provider.
func (p *Provider) EnsureModelReady(ctx context.Context, host appconfig.Host, model string) error {
	return p.wrapped.EnsureModelReady(ctx, host, model)
}

// Close passes the call through to the wrapped provider.
func (p *Provider) Close() error {
	return p.wrapped.Close()
}
