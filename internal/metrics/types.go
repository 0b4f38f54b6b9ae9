// internal/metrics/types.go
package metrics

import (
	"math"
	"time"
)

// ModelMetrics is the aggregated document for a single model.
type ModelMetrics struct {
	ModelName          string                 `json:"model_name"`
	LastUpdatedUTC     time.Time              `json:"last_updated_utc"`
	OverallStats       RunningAggregatedStats `json:"overall_stats"`
	PerformanceBuckets []PerformanceBucket    `json:"performance_buckets"`
}

// PerformanceBucket holds aggregated stats for a specific dimension, like input token count.
type PerformanceBucket struct {
	Dimension string                 `json:"dimension"`
	Bucket    string                 `json:"bucket"`
	Stats     RunningAggregatedStats `json:"stats"`
}

// RunningAggregatedStats stores the running statistical values for a set of model calls.
type RunningAggregatedStats struct {
	TotalRequests int64 `json:"total_requests"`

	TTFTMillis          RunningStat `json:"ttft_ms"`
	TokensPerSecond     RunningStat `json:"tokens_per_second"`
	InputTokens         RunningStat `json:"input_tokens"`
	OutputTokens        RunningStat `json:"output_tokens"`
	TotalDurationMillis RunningStat `json:"total_duration_ms"`
}

// StageMetrics aggregates wall-clock timings for one pipeline stage.
type StageMetrics struct {
	Stage          string      `json:"stage"`
	Runs           int64       `json:"runs"`
	Failures       int64       `json:"failures"`
	DurationMillis RunningStat `json:"duration_ms"`
}

// Snapshot is a point-in-time copy of everything the aggregator holds.
type Snapshot struct {
	Models    []ModelMetrics   `json:"models"`
	Stages    []StageMetrics   `json:"stages"`
	Questions int64            `json:"questions"`
	Outcomes  map[string]int64 `json:"outcomes"`
}

// RunningStat holds the values for online calculation of mean, variance, and stddev
// using Welford's algorithm.
type RunningStat struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"-"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// StdDev returns the sample standard deviation.
func (rs RunningStat) StdDev() float64 {
	if rs.Count < 2 {
		return 0
	}
	return math.Sqrt(rs.M2 / float64(rs.Count-1))
}
