package domain

import (
	"context"
	"errors"
)

// ErrWorkoutNotFound is the single fatal pipeline condition: the requested
// workout does not exist.
var ErrWorkoutNotFound = errors.New("workout not found")

// WorkoutBundle is the read-side aggregate the pipeline loads once per run.
type WorkoutBundle struct {
	Workout  Workout
	Segments []PersistedSegment
	Planned  *PlannedWorkout
}

// WorkoutUpdate is a write-only merge: only non-nil fields are written,
// nothing is ever overwritten with a zero value by omission.
type WorkoutUpdate struct {
	WorkoutType          *string
	WorkoutTypeSetBy     *string
	AutoCategory         *string
	AutoSummary          *string
	TRIMP                *float64
	QualityRatio         *float64
	ExecutionScore       *float64
	RouteID              *string
	DataQualityJSON      []byte
	ZoneDistributionJSON []byte
	IntervalMetricsJSON  []byte
}

// IsZero reports whether the update would write nothing. The pipeline uses
// this as its idempotence guard: an empty update performs no store write.
func (u WorkoutUpdate) IsZero() bool {
	return u.WorkoutType == nil &&
		u.WorkoutTypeSetBy == nil &&
		u.AutoCategory == nil &&
		u.AutoSummary == nil &&
		u.TRIMP == nil &&
		u.QualityRatio == nil &&
		u.ExecutionScore == nil &&
		u.RouteID == nil &&
		u.DataQualityJSON == nil &&
		u.ZoneDistributionJSON == nil &&
		u.IntervalMetricsJSON == nil
}

// Store is the persistence boundary of the analysis pipeline. All analysis
// stages are pure; the pipeline touches the store only at the initial load
// and the final merge write.
type Store interface {
	// GetWorkout loads a workout with its persisted segments and linked plan
	// item. Returns ErrWorkoutNotFound when the ID is unknown.
	GetWorkout(ctx context.Context, id string) (*WorkoutBundle, error)

	// GetAthleteReference returns the profile's reference paces, or nil when
	// the profile has none configured.
	GetAthleteReference(ctx context.Context, profileID string) (*AthleteReference, error)

	// UpdateWorkout merges non-nil fields onto the workout row.
	UpdateWorkout(ctx context.Context, id string, update WorkoutUpdate) error

	// UpdateSegmentZone writes a resolved pace zone onto a persisted segment.
	UpdateSegmentZone(ctx context.Context, segmentID string, zone PaceZone, confidence float64) error

	// ListCanonicalRoutes returns the profile's known routes.
	ListCanonicalRoutes(ctx context.Context, profileID string) ([]CanonicalRoute, error)

	// UpsertCanonicalRoute records one run against a route identity. The
	// passed route carries this run as if it were the first (RunCount 1,
	// best/avg set to this run's time); an existing row folds it in
	// atomically.
	UpsertCanonicalRoute(ctx context.Context, route CanonicalRoute) error

	// ListWorkoutIDs returns every workout ID for a profile, oldest first.
	// Used by the reprocess-all entry point.
	ListWorkoutIDs(ctx context.Context, profileID string) ([]string, error)
}
