package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "analysis_service",
		Subsystem: "pipeline",
		Name:      "workouts_processed_total",
		Help:      "Workouts processed by the analysis pipeline, by outcome.",
	}, []string{"status"})
	stageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "analysis_service",
		Subsystem: "pipeline",
		Name:      "stage_failures_total",
		Help:      "Analysis stage failures recorded without aborting the pipeline, by stage.",
	}, []string{"stage"})
	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "analysis_service",
		Subsystem: "pipeline",
		Name:      "batch_duration_seconds",
		Help:      "Wall-clock duration of batch analysis runs.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	lastAnalyzedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "analysis_service",
		Subsystem: "pipeline",
		Name:      "last_workout_analyzed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent workout analysis persisted.",
	})
)

func init() {
	prometheus.MustRegister(workoutsProcessed, stageFailures, batchDuration, lastAnalyzedGauge)
}

// RecordWorkoutProcessed counts one pipeline run by outcome
// (ok, partial, failed).
func RecordWorkoutProcessed(status string) {
	workoutsProcessed.WithLabelValues(status).Inc()
}

// RecordStageFailure counts a tolerated per-stage failure.
func RecordStageFailure(stage string) {
	stageFailures.WithLabelValues(stage).Inc()
}

// ObserveBatchDuration records one batch run's duration.
func ObserveBatchDuration(d time.Duration) {
	batchDuration.Observe(d.Seconds())
}

// RecordAnalysisWatermark updates the last-analysis watermark gauge.
func RecordAnalysisWatermark(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastAnalyzedGauge.Set(float64(ts.Unix()))
}
