// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"
	"strings"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/metrics"
	"github.com/mwiater/docqa/internal/providers"
	"github.com/mwiater/docqa/internal/providers/llamacpp"
	"github.com/mwiater/docqa/internal/providers/ollama"
)

// Host types understood by NewChatProvider.
const (
	TypeOllama   = "ollama"
	TypeLlamaCpp = "llama.cpp"
)

// NormalizeHostType maps a configured host type onto a supported backend.
// An empty type selects Ollama.
func NormalizeHostType(hostType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(hostType)) {
	case "", TypeOllama:
		return TypeOllama, nil
	case TypeLlamaCpp, "llamacpp", "llama-cpp":
		return TypeLlamaCpp, nil
	default:
		return "", fmt.Errorf("unsupported host type %q", hostType)
	}
}

// NewChatProvider selects the chat provider for host and wraps it with metrics
// collection when cfg.Metrics is set and an aggregator is supplied.
func NewChatProvider(cfg *appconfig.Config, host appconfig.Host, aggregator *metrics.Aggregator) (providers.ChatProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	hostType, err := NormalizeHostType(host.Type)
	if err != nil {
		return nil, fmt.Errorf("host %q: %w", host.Name, err)
	}

	var provider providers.ChatProvider
	switch hostType {
	case TypeLlamaCpp:
		provider = llamacpp.New(cfg)
	default:
		provider = ollama.New(cfg)
	}

	if cfg.Metrics && aggregator != nil {
		provider = metrics.NewProvider(provider, aggregator)
	}
	return provider, nil
}

// NewGenerationModel resolves the generation host from cfg and binds it to the
// configured generation model and parameters.
func NewGenerationModel(cfg *appconfig.Config, aggregator *metrics.Aggregator) (providers.Model, error) {
	if cfg == nil {
		return providers.Model{}, fmt.Errorf("nil config provided to provider factory")
	}
	host, err := cfg.GenerationTarget()
	if err != nil {
		return providers.Model{}, err
	}
	provider, err := NewChatProvider(cfg, host, aggregator)
	if err != nil {
		return providers.Model{}, err
	}
	return providers.Model{
		Provider:   provider,
		Host:       host,
		Name:       cfg.GenerationModel,
		Parameters: cfg.GenerationParameters(host),
	}, nil
}
