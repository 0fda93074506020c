// Package memory provides an in-memory Store for local development and
// tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

// Store keeps every aggregate in maps guarded by one RWMutex. It mirrors
// the atomic fold-in semantics of the Postgres route upsert.
type Store struct {
	mu         sync.RWMutex
	workouts   map[string]domain.Workout
	segments   map[string][]domain.PersistedSegment // keyed by workout ID
	planned    map[string]domain.PlannedWorkout     // keyed by plan ID
	references map[string]domain.AthleteReference   // keyed by profile ID
	routes     map[string]domain.CanonicalRoute     // keyed by route ID

	// SegmentZoneWrites counts UpdateSegmentZone calls, letting tests assert
	// that synthetic segments never reach write-back.
	SegmentZoneWrites int
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		workouts:   make(map[string]domain.Workout),
		segments:   make(map[string][]domain.PersistedSegment),
		planned:    make(map[string]domain.PlannedWorkout),
		references: make(map[string]domain.AthleteReference),
		routes:     make(map[string]domain.CanonicalRoute),
	}
}

// PutWorkout seeds or replaces a workout and its segments.
func (s *Store) PutWorkout(w domain.Workout, segments []domain.PersistedSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workouts[w.ID] = w
	s.segments[w.ID] = append([]domain.PersistedSegment(nil), segments...)
}

// PutPlannedWorkout seeds a plan item.
func (s *Store) PutPlannedWorkout(p domain.PlannedWorkout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planned[p.ID] = p
}

// PutAthleteReference seeds a profile's reference paces.
func (s *Store) PutAthleteReference(profileID string, ref domain.AthleteReference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.references[profileID] = ref
}

// Workout returns the current state of a workout for assertions.
func (s *Store) Workout(id string) (domain.Workout, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workouts[id]
	return w, ok
}

// Segments returns the current segments of a workout for assertions.
func (s *Store) Segments(workoutID string) []domain.PersistedSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PersistedSegment(nil), s.segments[workoutID]...)
}

// Routes returns every stored route for assertions.
func (s *Store) Routes() []domain.CanonicalRoute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CanonicalRoute, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r)
	}
	return out
}

// GetWorkout implements domain.Store.
func (s *Store) GetWorkout(ctx context.Context, id string) (*domain.WorkoutBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workouts[id]
	if !ok {
		return nil, domain.ErrWorkoutNotFound
	}
	bundle := &domain.WorkoutBundle{
		Workout:  w,
		Segments: append([]domain.PersistedSegment(nil), s.segments[id]...),
	}
	if w.PlannedWorkoutID != "" {
		if plan, ok := s.planned[w.PlannedWorkoutID]; ok {
			planCopy := plan
			bundle.Planned = &planCopy
		}
	}
	return bundle, nil
}

// GetAthleteReference implements domain.Store.
func (s *Store) GetAthleteReference(ctx context.Context, profileID string) (*domain.AthleteReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.references[profileID]
	if !ok {
		return nil, nil
	}
	refCopy := ref
	return &refCopy, nil
}

// UpdateWorkout implements domain.Store with write-only merge semantics.
func (s *Store) UpdateWorkout(ctx context.Context, id string, update domain.WorkoutUpdate) error {
	if update.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workouts[id]
	if !ok {
		return domain.ErrWorkoutNotFound
	}
	if update.WorkoutType != nil {
		w.WorkoutType = *update.WorkoutType
	}
	if update.WorkoutTypeSetBy != nil {
		w.WorkoutTypeSetBy = *update.WorkoutTypeSetBy
	}
	if update.AutoCategory != nil {
		w.AutoCategory = *update.AutoCategory
	}
	if update.AutoSummary != nil {
		w.AutoSummary = *update.AutoSummary
	}
	if update.TRIMP != nil {
		w.TRIMP = *update.TRIMP
	}
	if update.QualityRatio != nil {
		w.QualityRatio = *update.QualityRatio
	}
	if update.ExecutionScore != nil {
		score := *update.ExecutionScore
		w.ExecutionScore = &score
	}
	if update.RouteID != nil {
		w.RouteID = *update.RouteID
	}
	if update.DataQualityJSON != nil {
		w.DataQualityJSON = update.DataQualityJSON
	}
	if update.ZoneDistributionJSON != nil {
		w.ZoneDistributionJSON = update.ZoneDistributionJSON
	}
	if update.IntervalMetricsJSON != nil {
		w.IntervalMetricsJSON = update.IntervalMetricsJSON
	}
	s.workouts[id] = w
	return nil
}

// UpdateSegmentZone implements domain.Store.
func (s *Store) UpdateSegmentZone(ctx context.Context, segmentID string, zone domain.PaceZone, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SegmentZoneWrites++
	for workoutID, segments := range s.segments {
		for i := range segments {
			if segments[i].ID == segmentID {
				segments[i].PaceZone = zone
				segments[i].PaceZoneConfidence = confidence
				s.segments[workoutID] = segments
				return nil
			}
		}
	}
	return nil
}

// ListCanonicalRoutes implements domain.Store.
func (s *Store) ListCanonicalRoutes(ctx context.Context, profileID string) ([]domain.CanonicalRoute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CanonicalRoute
	for _, route := range s.routes {
		if route.ProfileID == profileID {
			out = append(out, route)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertCanonicalRoute implements domain.Store. The passed route carries a
// single observation; an existing row folds it in.
func (s *Store) UpsertCanonicalRoute(ctx context.Context, route domain.CanonicalRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.routes[route.ID]
	if !ok {
		s.routes[route.ID] = route
		return nil
	}

	existing.AvgTimeSeconds = (existing.AvgTimeSeconds*float64(existing.RunCount) + route.AvgTimeSeconds) / float64(existing.RunCount+1)
	existing.RunCount++
	if route.BestTimeSeconds > 0 && (existing.BestTimeSeconds == 0 || route.BestTimeSeconds < existing.BestTimeSeconds) {
		existing.BestTimeSeconds = route.BestTimeSeconds
	}
	if route.LastRunAt.After(existing.LastRunAt) {
		existing.LastRunAt = route.LastRunAt
	}
	s.routes[route.ID] = existing
	return nil
}

// ListWorkoutIDs implements domain.Store.
func (s *Store) ListWorkoutIDs(ctx context.Context, profileID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type dated struct {
		id   string
		date int64
	}
	var rows []dated
	for _, w := range s.workouts {
		if w.ProfileID == profileID {
			rows = append(rows, dated{id: w.ID, date: w.Date.UnixNano()})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].date < rows[j].date })

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.id)
	}
	return ids, nil
}
