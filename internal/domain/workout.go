// Package domain defines the workout analysis data model and store contract.
package domain

import (
	"sort"
	"time"
)

// WorkoutTypeSetBy values distinguish user intent from pipeline inference.
const (
	TypeSetByUser = "user"
	TypeSetByAuto = "auto"
)

// Weather captures the conditions recorded alongside a workout.
type Weather struct {
	TempF      float64
	WindMph    float64
	Conditions string
}

// Workout is the canonical logged-activity record. Raw fields are owned by
// the user or the logging device; derived fields (AutoCategory, AutoSummary,
// the JSON blobs, TRIMP, QualityRatio, ExecutionScore, RouteID) are owned by
// the analysis pipeline.
type Workout struct {
	ID               string
	ProfileID        string
	Date             time.Time
	ActivityType     string // run, bike, swim, ...
	WorkoutType      string
	WorkoutTypeSetBy string // TypeSetByUser, TypeSetByAuto, or empty
	DistanceMiles    float64
	DurationMinutes  float64
	AvgPaceSeconds   float64 // seconds per mile
	AvgHR            int
	MaxHR            int
	ElevationGainFt  float64
	Source           string // device, manual
	RouteName        string
	Notes            string
	Weather          Weather
	PlannedWorkoutID string

	AutoCategory         string
	AutoSummary          string
	TRIMP                float64
	QualityRatio         float64
	ExecutionScore       *float64
	RouteID              string
	DataQualityJSON      []byte
	ZoneDistributionJSON []byte
	IntervalMetricsJSON  []byte
}

// Lap is one split of a workout as consumed by the analysis stages. It
// deliberately carries no persistence identity: analyzers cannot tell a real
// lap from a synthetic one, and nothing built from a Lap alone can be
// written back to storage.
type Lap struct {
	SegmentNumber      int
	DistanceMiles      float64
	DurationSeconds    float64
	PaceSecondsPerMile float64
	AvgHR              int
	MaxHR              int
	ElevationGainFt    float64
	SegmentType        string // work, recovery, steady, or empty
	PaceZone           PaceZone
	PaceZoneConfidence float64
}

// PersistedSegment pairs a Lap with its storage identity. Zone write-back
// accepts only PersistedSegments, so a synthetic Lap manufactured for a
// split-less workout can never reach UpdateSegmentZone.
type PersistedSegment struct {
	ID string
	Lap
}

// SortSegments orders segments by SegmentNumber. Segment numbers are the
// temporal ordering key but are not necessarily contiguous.
func SortSegments(segments []PersistedSegment) {
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].SegmentNumber < segments[j].SegmentNumber
	})
}

// Laps projects persisted segments onto the analyzer input type.
func Laps(segments []PersistedSegment) []Lap {
	laps := make([]Lap, 0, len(segments))
	for _, seg := range segments {
		laps = append(laps, seg.Lap)
	}
	return laps
}

// SyntheticLap fabricates a single whole-workout lap when a workout has no
// recorded splits but does have an overall pace or duration. The second
// return is false when there is not enough data to fabricate anything.
func SyntheticLap(w Workout) (Lap, bool) {
	if w.DurationMinutes <= 0 && w.AvgPaceSeconds <= 0 {
		return Lap{}, false
	}
	lap := Lap{
		SegmentNumber:      1,
		DistanceMiles:      w.DistanceMiles,
		DurationSeconds:    w.DurationMinutes * 60,
		PaceSecondsPerMile: w.AvgPaceSeconds,
		AvgHR:              w.AvgHR,
		MaxHR:              w.MaxHR,
		ElevationGainFt:    w.ElevationGainFt,
	}
	if lap.PaceSecondsPerMile == 0 && w.DistanceMiles > 0 {
		lap.PaceSecondsPerMile = w.DurationMinutes * 60 / w.DistanceMiles
	}
	return lap, true
}

// PlannedWorkout is an externally produced plan item linked from a workout.
type PlannedWorkout struct {
	ID                    string
	Date                  time.Time
	WorkoutType           string
	TargetDistanceMiles   float64
	TargetPaceSeconds     float64
	TargetDurationMinutes float64
}

// AthleteReference holds the profile-scoped reference paces and physiology
// used read-only by the analyzers. VDOT-derived zones take precedence over
// explicit paces when both are present.
type AthleteReference struct {
	VDOT                 float64 // 0 when unset
	EasyPaceSeconds      float64 // seconds per mile, 0 when unset
	TempoPaceSeconds     float64
	ThresholdPaceSeconds float64
	RestingHR            int
	Age                  int
	Gender               string // male, female
}

// CanonicalRoute is a deduplicated route identity accumulating statistics
// across matched workouts.
type CanonicalRoute struct {
	ID              string
	ProfileID       string
	Name            string
	DistanceMiles   float64
	ElevationGainFt float64
	RunCount        int
	BestTimeSeconds float64
	AvgTimeSeconds  float64
	LastRunAt       time.Time
}
