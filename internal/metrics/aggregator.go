// internal/metrics/aggregator.go
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/mwiater/docqa/internal/providers"
)

// Aggregator collects performance metrics for model calls and pipeline stages.
// It is safe for concurrent use.
type Aggregator struct {
	mutex     sync.Mutex
	models    map[string]*ModelMetrics
	stages    map[string]*StageMetrics
	questions int64
	outcomes  map[string]int64
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		models:   make(map[string]*ModelMetrics),
		stages:   make(map[string]*StageMetrics),
		outcomes: make(map[string]int64),
	}
}

// Record updates the metrics for a given model with new data.
func (a *Aggregator) Record(meta providers.StreamMetadata, ttft int64) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	modelMetrics, exists := a.models[meta.Model]
	if !exists {
		modelMetrics = &ModelMetrics{ModelName: meta.Model}
		a.models[meta.Model] = modelMetrics
	}
	modelMetrics.LastUpdatedUTC = time.Now().UTC()

	updateStats(&modelMetrics.OverallStats, meta, ttft)

	bucket := getBucket(meta.PromptEvalCount)
	for i := range modelMetrics.PerformanceBuckets {
		if modelMetrics.PerformanceBuckets[i].Bucket == bucket {
			updateStats(&modelMetrics.PerformanceBuckets[i].Stats, meta, ttft)
			return
		}
	}
	newBucket := PerformanceBucket{Dimension: "input_tokens", Bucket: bucket}
	updateStats(&newBucket.Stats, meta, ttft)
	modelMetrics.PerformanceBuckets = append(modelMetrics.PerformanceBuckets, newBucket)
}

// RecordStage adds one stage execution.
func (a *Aggregator) RecordStage(stage string, elapsed time.Duration, err error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	sm, ok := a.stages[stage]
	if !ok {
		sm = &StageMetrics{Stage: stage}
		a.stages[stage] = sm
	}
	sm.Runs++
	if err != nil {
		sm.Failures++
	}
	updateRunningStat(&sm.DurationMillis, float64(elapsed)/float64(time.Millisecond))
}

// RecordOutcome counts a finished question by outcome label, such as
// "localized", "incorrect" or "no_evidence".
func (a *Aggregator) RecordOutcome(outcome string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.questions++
	a.outcomes[outcome]++
}

// Snapshot returns a copy of the collected metrics, sorted by name.
func (a *Aggregator) Snapshot() Snapshot {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	snap := Snapshot{
		Models:    make([]ModelMetrics, 0, len(a.models)),
		Stages:    make([]StageMetrics, 0, len(a.stages)),
		Questions: a.questions,
		Outcomes:  make(map[string]int64, len(a.outcomes)),
	}
	for _, m := range a.models {
		cp := *m
		cp.PerformanceBuckets = append([]PerformanceBucket(nil), m.PerformanceBuckets...)
		snap.Models = append(snap.Models, cp)
	}
	for _, s := range a.stages {
		snap.Stages = append(snap.Stages, *s)
	}
	for k, v := range a.outcomes {
		snap.Outcomes[k] = v
	}
	sort.Slice(snap.Models, func(i, j int) bool { return snap.Models[i].ModelName < snap.Models[j].ModelName })
	sort.Slice(snap.Stages, func(i, j int) bool { return snap.Stages[i].Stage < snap.Stages[j].Stage })
	return snap
}

// updateStats updates the running statistics with new metadata.
func updateStats(stats *RunningAggregatedStats, meta providers.StreamMetadata, ttft int64) {
	stats.TotalRequests++
	updateRunningStat(&stats.TTFTMillis, float64(ttft))

	var tokensPerSecond float64
	if meta.EvalDuration > 0 {
		tokensPerSecond = float64(meta.EvalCount) / (float64(meta.EvalDuration) / 1e9)
	}
	updateRunningStat(&stats.TokensPerSecond, tokensPerSecond)

	updateRunningStat(&stats.InputTokens, float64(meta.PromptEvalCount))
	updateRunningStat(&stats.OutputTokens, float64(meta.EvalCount))
	updateRunningStat(&stats.TotalDurationMillis, float64(meta.TotalDuration/1e6))
}

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}

// getBucket determines the performance bucket for a given number of input tokens.
func getBucket(inputTokens int) string {
	switch {
	case inputTokens <= 256:
		return "0-256"
	case inputTokens <= 1024:
		return "257-1024"
	case inputTokens <= 4096:
		return "1025-4096"
	case inputTokens <= 8192:
		return "4097-8192"
	default:
		return "8192+"
	}
}
