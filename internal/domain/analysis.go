package domain

import "fmt"

// PaceZone is a named effort-intensity band ordered from slowest to fastest.
type PaceZone string

const (
	ZoneUnknown   PaceZone = "unknown"
	ZoneRecovery  PaceZone = "recovery"
	ZoneEasy      PaceZone = "easy"
	ZoneAerobic   PaceZone = "aerobic"
	ZoneMarathon  PaceZone = "marathon"
	ZoneTempo     PaceZone = "tempo"
	ZoneThreshold PaceZone = "threshold"
	ZoneVO2Max    PaceZone = "vo2max"
	ZoneFaster    PaceZone = "faster"
)

// RunCategory is the closed set of workout categories the classifier emits.
type RunCategory string

const (
	CategoryEasy          RunCategory = "easy"
	CategoryRecovery      RunCategory = "recovery"
	CategoryShakeout      RunCategory = "shakeout"
	CategoryLongRun       RunCategory = "long_run"
	CategoryTempo         RunCategory = "tempo"
	CategoryThreshold     RunCategory = "threshold"
	CategoryIntervals     RunCategory = "intervals"
	CategoryProgression   RunCategory = "progression"
	CategoryFartlek       RunCategory = "fartlek"
	CategoryHillRepeats   RunCategory = "hill_repeats"
	CategoryRace          RunCategory = "race"
	CategoryCrossTraining RunCategory = "cross_training"
)

// GPSQuality rates GPS integrity for a workout.
type GPSQuality string

const (
	GPSGood    GPSQuality = "good"
	GPSNoisy   GPSQuality = "noisy"
	GPSMissing GPSQuality = "missing"
)

// HRQuality rates heart-rate data integrity.
type HRQuality string

const (
	HRGood     HRQuality = "good"
	HRDropouts HRQuality = "dropouts"
	HRErratic  HRQuality = "erratic"
	HRMissing  HRQuality = "missing"
)

// PaceReliability rates how trustworthy the recorded paces are.
type PaceReliability string

const (
	PaceGood      PaceReliability = "good"
	PaceTreadmill PaceReliability = "treadmill"
	PaceGPSDrift  PaceReliability = "gps_drift"
)

// DataQualityFlags is the quality checker's verdict, persisted as a JSON
// blob on the workout row.
type DataQualityFlags struct {
	GPSQuality      GPSQuality      `json:"gps_quality"`
	HRQuality       HRQuality       `json:"hr_quality"`
	PaceReliability PaceReliability `json:"pace_reliability"`
	Flags           []string        `json:"flags,omitempty"`
	OverallScore    int             `json:"overall_score"`
	Recommendations []string        `json:"recommendations,omitempty"`
}

// HasFlag reports whether a named issue code was raised.
func (f DataQualityFlags) HasFlag(code string) bool {
	for _, flag := range f.Flags {
		if flag == code {
			return true
		}
	}
	return false
}

// CategoryGuess is a category with its own confidence, used for runner-up
// alternatives on a classification.
type CategoryGuess struct {
	Category   RunCategory `json:"category"`
	Confidence float64     `json:"confidence"`
}

// ClassificationSignals records the intermediate evidence a classification
// was based on.
type ClassificationSignals struct {
	PaceZone          PaceZone `json:"pace_zone,omitempty"`
	LapCount          int      `json:"lap_count"`
	WorkLaps          int      `json:"work_laps,omitempty"`
	RecoveryLaps      int      `json:"recovery_laps,omitempty"`
	PaceCV            float64  `json:"pace_cv,omitempty"`
	PaceSpreadSeconds float64  `json:"pace_spread_seconds,omitempty"`
	ElevationPerMile  float64  `json:"elevation_per_mile,omitempty"`
}

// ClassificationResult is the classifier's verdict. It is recomputed on
// every pipeline run and persisted only as the denormalized
// AutoCategory/AutoSummary fields on the workout.
type ClassificationResult struct {
	Category     RunCategory           `json:"category"`
	Confidence   float64               `json:"confidence"`
	Summary      string                `json:"summary"`
	Signals      ClassificationSignals `json:"signals"`
	Alternatives []CategoryGuess       `json:"alternative_categories,omitempty"`
}

// TrainingLoad bundles the co-located load metrics.
type TrainingLoad struct {
	QualityRatio float64 `json:"quality_ratio"`
	TRIMP        float64 `json:"trimp"`
}

// LapZone is the zone classifier's per-lap verdict.
type LapZone struct {
	SegmentNumber int      `json:"segment_number"`
	Zone          PaceZone `json:"zone"`
	Confidence    float64  `json:"confidence"`
}

// ZoneAnalysis is the zone classifier's aggregate output.
type ZoneAnalysis struct {
	PerLap               []LapZone            `json:"per_lap"`
	DistributionSeconds  map[PaceZone]float64 `json:"distribution_seconds"`
	BoundariesUsed       map[PaceZone]float64 `json:"boundaries_used,omitempty"` // canonical pace per zone, sec/mi
	SuggestedWorkoutType RunCategory          `json:"suggested_workout_type,omitempty"`
}

// IntervalPattern is the pattern detector's verdict. Type "unknown" is a
// valid, non-error result.
type IntervalPattern struct {
	Type               string  `json:"type"` // repeats, ladder, unknown
	Reps               int     `json:"reps,omitempty"`
	RepDistanceMiles   float64 `json:"rep_distance_miles,omitempty"`
	Label              string  `json:"label,omitempty"` // e.g. "8x800m"
	AvgWorkPaceSeconds float64 `json:"avg_work_pace_seconds,omitempty"`
	AvgRecoverySeconds float64 `json:"avg_recovery_seconds,omitempty"`
}

// IntervalMetrics merges the interval stress model and pattern detector
// outputs into the single JSON blob persisted on the workout.
type IntervalMetrics struct {
	IntervalAdjustedTRIMP float64              `json:"interval_adjusted_trimp"`
	IntensityFactor       float64              `json:"intensity_factor"`
	ZoneMinutes           map[PaceZone]float64 `json:"zone_minutes"`
	Pattern               *IntervalPattern     `json:"pattern,omitempty"`
}

// RouteResult reports the route matcher's outcome for one workout.
type RouteResult struct {
	RouteID    string  `json:"route_id"`
	RouteName  string  `json:"route_name,omitempty"`
	Similarity float64 `json:"similarity"`
	Created    bool    `json:"created"`
	RunCount   int     `json:"run_count"`
}

// ExecutionScore compares a workout against its linked plan item.
type ExecutionScore struct {
	Overall       float64 `json:"overall"`
	DistanceScore float64 `json:"distance_score"`
	PaceScore     float64 `json:"pace_score"`
	TypeScore     float64 `json:"type_score"`
	Notes         string  `json:"notes,omitempty"`
}

// ProcessingResult is the orchestrator's aggregate output: one field per
// stage, nil when the stage was skipped or failed, plus every stage failure
// collected in Errors. It is never persisted itself.
type ProcessingResult struct {
	WorkoutID       string                `json:"workout_id"`
	DataQuality     *DataQualityFlags     `json:"data_quality,omitempty"`
	TrainingLoad    *TrainingLoad         `json:"training_load,omitempty"`
	Classification  *ClassificationResult `json:"classification,omitempty"`
	ZoneAnalysis    *ZoneAnalysis         `json:"zone_analysis,omitempty"`
	IntervalMetrics *IntervalMetrics      `json:"interval_metrics,omitempty"`
	RouteMatch      *RouteResult          `json:"route_match,omitempty"`
	ExecutionScore  *ExecutionScore       `json:"execution_score,omitempty"`
	Errors          []string              `json:"errors,omitempty"`
}

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
