package docqa

import (
	"fmt"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/docsearch"
	"github.com/mwiater/docqa/internal/metrics"
)

// newAgent builds the agent for commands that answer or index.
func newAgent() (*docsearch.Agent, error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cfg.ConfigPath, err)
	}
	store, err := newStore(*cfg)
	if err != nil {
		return nil, err
	}

	var opts []docsearch.Option
	if cfg.Metrics {
		opts = append(opts, docsearch.WithMetrics(metrics.NewAggregator()))
	}
	return docsearch.New(store, opts...)
}

// newStore runs with the merged configuration but persists updates on top of
// the file as it is on disk, so environment and flag values stay out of it.
func newStore(cfg appconfig.Config) (*appconfig.Store, error) {
	return appconfig.OpenStore(cfg.ConfigPath, cfg)
}
