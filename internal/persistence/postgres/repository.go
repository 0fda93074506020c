// Package postgres provides pgx-backed persistence for the analysis
// pipeline.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

// Repository implements domain.Store on top of a pgx connection pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workoutColumns = `workout_id, profile_id, workout_date, activity_type,
	COALESCE(workout_type,''), COALESCE(workout_type_set_by,''),
	distance_miles, duration_minutes, avg_pace_seconds, avg_hr, max_hr,
	elevation_gain_ft, source, COALESCE(route_name,''), COALESCE(notes,''),
	weather_temp_f, weather_wind_mph, COALESCE(weather_conditions,''),
	COALESCE(planned_workout_id,''), COALESCE(auto_category,''),
	COALESCE(auto_summary,''), trimp, quality_ratio, execution_score,
	COALESCE(route_id,''), data_quality, zone_distribution, interval_metrics`

// GetWorkout implements domain.Store.
func (r *Repository) GetWorkout(ctx context.Context, id string) (*domain.WorkoutBundle, error) {
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE workout_id=$1`

	row := r.pool.QueryRow(ctx, query, id)
	workout, err := scanWorkout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkoutNotFound
		}
		return nil, err
	}

	bundle := &domain.WorkoutBundle{Workout: workout}

	segQuery := `SELECT segment_id, segment_number, distance_miles, duration_seconds,
		pace_seconds_per_mile, avg_hr, max_hr, elevation_gain_ft,
		COALESCE(segment_type,''), COALESCE(pace_zone,''), pace_zone_confidence
		FROM workout_segments WHERE workout_id=$1 ORDER BY segment_number`

	rows, err := r.pool.Query(ctx, segQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seg domain.PersistedSegment
		var zone string
		if err := rows.Scan(&seg.ID, &seg.SegmentNumber, &seg.DistanceMiles, &seg.DurationSeconds,
			&seg.PaceSecondsPerMile, &seg.AvgHR, &seg.MaxHR, &seg.ElevationGainFt,
			&seg.SegmentType, &zone, &seg.PaceZoneConfidence); err != nil {
			return nil, err
		}
		seg.PaceZone = domain.PaceZone(zone)
		bundle.Segments = append(bundle.Segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if workout.PlannedWorkoutID != "" {
		planned, err := r.getPlannedWorkout(ctx, workout.PlannedWorkoutID)
		if err != nil {
			return nil, err
		}
		bundle.Planned = planned
	}
	return bundle, nil
}

func scanWorkout(row pgx.Row) (domain.Workout, error) {
	var w domain.Workout
	var dataQuality, zoneDistribution, intervalMetrics []byte
	err := row.Scan(&w.ID, &w.ProfileID, &w.Date, &w.ActivityType,
		&w.WorkoutType, &w.WorkoutTypeSetBy,
		&w.DistanceMiles, &w.DurationMinutes, &w.AvgPaceSeconds, &w.AvgHR, &w.MaxHR,
		&w.ElevationGainFt, &w.Source, &w.RouteName, &w.Notes,
		&w.Weather.TempF, &w.Weather.WindMph, &w.Weather.Conditions,
		&w.PlannedWorkoutID, &w.AutoCategory,
		&w.AutoSummary, &w.TRIMP, &w.QualityRatio, &w.ExecutionScore,
		&w.RouteID, &dataQuality, &zoneDistribution, &intervalMetrics)
	if err != nil {
		return domain.Workout{}, err
	}
	w.DataQualityJSON = dataQuality
	w.ZoneDistributionJSON = zoneDistribution
	w.IntervalMetricsJSON = intervalMetrics
	return w, nil
}

func (r *Repository) getPlannedWorkout(ctx context.Context, id string) (*domain.PlannedWorkout, error) {
	const query = `SELECT plan_id, plan_date, COALESCE(workout_type,''),
		target_distance_miles, target_pace_seconds, target_duration_minutes
		FROM planned_workouts WHERE plan_id=$1`

	var p domain.PlannedWorkout
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Date, &p.WorkoutType,
		&p.TargetDistanceMiles, &p.TargetPaceSeconds, &p.TargetDurationMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetAthleteReference implements domain.Store.
func (r *Repository) GetAthleteReference(ctx context.Context, profileID string) (*domain.AthleteReference, error) {
	const query = `SELECT COALESCE(vdot,0), COALESCE(easy_pace_seconds,0),
		COALESCE(tempo_pace_seconds,0), COALESCE(threshold_pace_seconds,0),
		COALESCE(resting_hr,0), COALESCE(age,0), COALESCE(gender,'')
		FROM athlete_profiles WHERE profile_id=$1`

	var ref domain.AthleteReference
	err := r.pool.QueryRow(ctx, query, profileID).Scan(&ref.VDOT, &ref.EasyPaceSeconds,
		&ref.TempoPaceSeconds, &ref.ThresholdPaceSeconds, &ref.RestingHR, &ref.Age, &ref.Gender)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// UpdateWorkout implements domain.Store: only non-nil fields appear in the
// SET clause, so the merge never clears an unrelated column.
func (r *Repository) UpdateWorkout(ctx context.Context, id string, update domain.WorkoutUpdate) error {
	if update.IsZero() {
		return nil
	}

	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if update.WorkoutType != nil {
		add("workout_type", *update.WorkoutType)
	}
	if update.WorkoutTypeSetBy != nil {
		add("workout_type_set_by", *update.WorkoutTypeSetBy)
	}
	if update.AutoCategory != nil {
		add("auto_category", *update.AutoCategory)
	}
	if update.AutoSummary != nil {
		add("auto_summary", *update.AutoSummary)
	}
	if update.TRIMP != nil {
		add("trimp", *update.TRIMP)
	}
	if update.QualityRatio != nil {
		add("quality_ratio", *update.QualityRatio)
	}
	if update.ExecutionScore != nil {
		add("execution_score", *update.ExecutionScore)
	}
	if update.RouteID != nil {
		add("route_id", *update.RouteID)
	}
	if update.DataQualityJSON != nil {
		add("data_quality", json.RawMessage(update.DataQualityJSON))
	}
	if update.ZoneDistributionJSON != nil {
		add("zone_distribution", json.RawMessage(update.ZoneDistributionJSON))
	}
	if update.IntervalMetricsJSON != nil {
		add("interval_metrics", json.RawMessage(update.IntervalMetricsJSON))
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE workouts SET %s, updated_at=now() WHERE workout_id=$%d",
		strings.Join(sets, ", "), len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkoutNotFound
	}
	return nil
}

// UpdateSegmentZone implements domain.Store.
func (r *Repository) UpdateSegmentZone(ctx context.Context, segmentID string, zone domain.PaceZone, confidence float64) error {
	const stmt = `UPDATE workout_segments SET pace_zone=$1, pace_zone_confidence=$2 WHERE segment_id=$3`
	_, err := r.pool.Exec(ctx, stmt, string(zone), confidence, segmentID)
	return err
}

// ListCanonicalRoutes implements domain.Store.
func (r *Repository) ListCanonicalRoutes(ctx context.Context, profileID string) ([]domain.CanonicalRoute, error) {
	const query = `SELECT route_id, profile_id, COALESCE(name,''), distance_miles,
		elevation_gain_ft, run_count, best_time_seconds, avg_time_seconds, last_run_at
		FROM canonical_routes WHERE profile_id=$1 ORDER BY route_id`

	rows, err := r.pool.Query(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []domain.CanonicalRoute
	for rows.Next() {
		var route domain.CanonicalRoute
		if err := rows.Scan(&route.ID, &route.ProfileID, &route.Name, &route.DistanceMiles,
			&route.ElevationGainFt, &route.RunCount, &route.BestTimeSeconds,
			&route.AvgTimeSeconds, &route.LastRunAt); err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

// UpsertCanonicalRoute implements domain.Store. The conflict arm folds one
// observation into the existing statistics atomically, so two concurrent
// workers recording runs against the same route cannot lose an update.
func (r *Repository) UpsertCanonicalRoute(ctx context.Context, route domain.CanonicalRoute) error {
	const stmt = `INSERT INTO canonical_routes
		(route_id, profile_id, name, distance_miles, elevation_gain_ft,
		 run_count, best_time_seconds, avg_time_seconds, last_run_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (route_id) DO UPDATE SET
		 run_count = canonical_routes.run_count + 1,
		 best_time_seconds = LEAST(NULLIF(canonical_routes.best_time_seconds, 0), EXCLUDED.best_time_seconds),
		 avg_time_seconds = (canonical_routes.avg_time_seconds * canonical_routes.run_count + EXCLUDED.avg_time_seconds)
			/ (canonical_routes.run_count + 1),
		 last_run_at = GREATEST(canonical_routes.last_run_at, EXCLUDED.last_run_at)`

	_, err := r.pool.Exec(ctx, stmt, route.ID, route.ProfileID, route.Name,
		route.DistanceMiles, route.ElevationGainFt, route.RunCount,
		route.BestTimeSeconds, route.AvgTimeSeconds, route.LastRunAt)
	return err
}

// ListWorkoutIDs implements domain.Store.
func (r *Repository) ListWorkoutIDs(ctx context.Context, profileID string) ([]string, error) {
	const query = `SELECT workout_id FROM workouts WHERE profile_id=$1 ORDER BY workout_date, workout_id`

	rows, err := r.pool.Query(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
