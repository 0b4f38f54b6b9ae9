// Package docsearch wires configuration, the document index, the language model
// and the question-answering pipeline into one long-lived Agent.
package docsearch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/logging"
	"github.com/mwiater/docqa/internal/metrics"
	"github.com/mwiater/docqa/internal/providerfactory"
	"github.com/mwiater/docqa/internal/qa"
	"github.com/mwiater/docqa/internal/rag"
	"github.com/mwiater/docqa/internal/util"
)

// Outcome labels recorded per question.
const (
	OutcomeLocalized    = "localized"
	OutcomeNotLocalized = "not_localized"
	OutcomeIncorrect    = "incorrect"
	OutcomeNoEvidence   = "no_evidence"
	OutcomeFailed       = "failed"
)

const queryCacheTTL = 30 * time.Minute

// Agent answers questions about the indexed document. Questions run
// concurrently under a read lock; uploads and config changes take the write lock
// so no question ever sees a half-replaced index or pipeline.
type Agent struct {
	mu sync.RWMutex

	store      *appconfig.Store
	aggregator *metrics.Aggregator

	modelOverride    qa.Model
	embedderOverride rag.Embedder

	cfg        appconfig.Config
	index      *rag.Index
	queryCache *rag.CachedEmbedder
	indexer    *rag.Indexer
	closer     func() error
	pipeline   *qa.Pipeline
}

// Option configures an Agent.
type Option func(*Agent)

// WithModel answers with m instead of the configured generation host.
func WithModel(m qa.Model) Option {
	return func(a *Agent) { a.modelOverride = m }
}

// WithEmbedder embeds with e instead of the configured embedding host.
func WithEmbedder(e rag.Embedder) Option {
	return func(a *Agent) { a.embedderOverride = e }
}

// WithMetrics records model and stage metrics into agg.
func WithMetrics(agg *metrics.Aggregator) Option {
	return func(a *Agent) { a.aggregator = agg }
}

// New builds an Agent from the store's current configuration.
func New(store *appconfig.Store, opts ...Option) (*Agent, error) {
	if store == nil {
		return nil, errors.New("config store is nil")
	}
	a := &Agent{store: store}
	for _, opt := range opts {
		opt(a)
	}
	if a.aggregator == nil {
		a.aggregator = metrics.NewAggregator()
	}
	c, err := a.build(store.Snapshot())
	if err != nil {
		return nil, err
	}
	a.install(c)
	return a, nil
}

// components is one consistent set of parts built from a configuration.
type components struct {
	cfg        appconfig.Config
	index      *rag.Index
	queryCache *rag.CachedEmbedder
	indexer    *rag.Indexer
	closer     func() error
	pipeline   *qa.Pipeline
}

// build creates the parts for cfg without touching the running agent.
func (a *Agent) build(cfg appconfig.Config) (*components, error) {
	index := a.index
	if index == nil || index.Path() != cfg.IndexPath {
		opened, err := rag.OpenIndex(cfg.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		index = opened
	}

	embedder := a.embedderOverride
	if embedder == nil {
		httpEmbedder, err := rag.NewEmbedderFromConfig(&cfg)
		if err != nil {
			return nil, err
		}
		embedder = httpEmbedder
	}

	queryCache := rag.NewCachedEmbedder(embedder, queryCacheTTL)
	retriever := rag.NewRetriever(index, queryCache, cfg.TopK)
	prompts := qa.Prompts{
		Generation: cfg.GenerationPromptTemplate,
		Evaluation: cfg.EvaluationPromptTemplate,
		Location:   cfg.LocationPromptTemplate,
	}

	model := a.modelOverride
	closer := func() error { return nil }
	if model == nil {
		generation, err := providerfactory.NewGenerationModel(&cfg, a.aggregator)
		if err != nil {
			return nil, err
		}
		model = generation
		closer = generation.Provider.Close
	}

	pipeline, err := qa.New(retriever, model, prompts, qa.WithObserver(a.observe))
	if err != nil {
		_ = closer()
		return nil, err
	}
	return &components{
		cfg:        cfg,
		index:      index,
		queryCache: queryCache,
		indexer:    rag.NewIndexer(index, embedder, cfg.ChunkSize, cfg.ChunkOverlap),
		closer:     closer,
		pipeline:   pipeline,
	}, nil
}

// install swaps c in and closes the previous provider. Callers hold the write
// lock or own a.
func (a *Agent) install(c *components) {
	if a.closer != nil {
		if err := a.closer(); err != nil {
			logging.LogWarn("close previous provider: %v", err)
		}
	}
	a.cfg = c.cfg
	a.index = c.index
	a.queryCache = c.queryCache
	a.indexer = c.indexer
	a.closer = c.closer
	a.pipeline = c.pipeline
}

func (a *Agent) observe(node qa.Node, elapsed time.Duration, err error) {
	a.aggregator.RecordStage(string(node), elapsed, err)
	logging.LogStage(string(node), zap.Duration("elapsed", elapsed), zap.Error(err))
}

// Ask runs the pipeline for question. The returned state is populated as far as
// the run progressed, also when an error is returned.
func (a *Agent) Ask(ctx context.Context, question string) (qa.State, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	state, err := a.pipeline.Run(ctx, question)
	result := outcome(state, err)
	a.aggregator.RecordOutcome(result)
	if err != nil {
		logging.LogError(err, "question failed: %s", util.Preview(question, 80))
		return state, err
	}
	logging.LogEvent("[ASK] %s -> %s", util.Preview(question, 80), result)
	return state, nil
}

func outcome(state qa.State, err error) string {
	switch {
	case errors.Is(err, qa.ErrNoEvidence):
		return OutcomeNoEvidence
	case err != nil:
		return OutcomeFailed
	case state.Evaluation == nil || !state.Evaluation.IsCorrect():
		return OutcomeIncorrect
	case state.Localization != nil && state.Localization.Found():
		return OutcomeLocalized
	default:
		return OutcomeNotLocalized
	}
}

// Upload replaces the indexed corpus with the document at path. source names the
// document in passage metadata.
func (a *Agent) Upload(ctx context.Context, path, source string) (rag.IngestResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	res, err := a.indexer.IngestFile(ctx, path, source)
	if err != nil {
		logging.LogError(err, "ingest %s failed", source)
		return rag.IngestResult{}, err
	}
	a.queryCache.Flush()
	logging.LogEvent("[UPLOAD] %s replaced the corpus: %d pages, %d chunks", res.Source, res.Pages, res.Chunks)
	return res, nil
}

// Config returns the current configuration as a flat option mapping.
func (a *Agent) Config() (map[string]any, error) {
	return a.store.Map()
}

// Snapshot returns a copy of the configuration the agent is running with.
func (a *Agent) Snapshot() appconfig.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// UpdateConfig validates patch and builds the pipeline for the merged
// configuration once in-flight questions have finished. The change is persisted
// and published only when the build succeeds.
func (a *Agent) UpdateConfig(patch map[string]any) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var pending *components
	_, err := a.store.Apply(patch, func(next appconfig.Config) error {
		c, err := a.build(next)
		if err != nil {
			return fmt.Errorf("apply config: %w", err)
		}
		pending = c
		return nil
	})
	if err != nil {
		if pending != nil {
			_ = pending.closer()
		}
		return nil, err
	}
	if staleEmbeddings(a.cfg, pending.cfg) && pending.index.Len() > 0 {
		logging.LogWarn("embedding settings changed; re-upload the document, %d indexed chunks no longer match query vectors", pending.index.Len())
	}
	a.install(pending)
	logging.LogEvent("[CONFIG] updated keys: %d", len(patch))
	return a.store.Map()
}

// staleEmbeddings reports whether vectors indexed under prev cannot be compared
// with queries embedded under next.
func staleEmbeddings(prev, next appconfig.Config) bool {
	if prev.IndexPath != next.IndexPath {
		return false
	}
	return prev.EmbeddingModel != next.EmbeddingModel || prev.EmbeddingHost != next.EmbeddingHost
}

// Warmup asks the generation host to load the model ahead of the first question.
func (a *Agent) Warmup(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.modelOverride != nil {
		return nil
	}
	cfg := a.cfg
	host, err := cfg.GenerationTarget()
	if err != nil {
		return err
	}
	provider, err := providerfactory.NewChatProvider(&cfg, host, nil)
	if err != nil {
		return err
	}
	defer provider.Close()
	return provider.EnsureModelReady(ctx, host, cfg.GenerationModel)
}

// IndexSize returns the number of indexed chunks.
func (a *Agent) IndexSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.index.Len()
}

// Metrics returns the collected model, stage and outcome metrics.
func (a *Agent) Metrics() metrics.Snapshot {
	return a.aggregator.Snapshot()
}

// Close releases the model provider.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	return err
}
