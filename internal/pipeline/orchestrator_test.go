package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jason-traum/stride-os-sub002/internal/analyzers"
	"github.com/jason-traum/stride-os-sub002/internal/domain"
	"github.com/jason-traum/stride-os-sub002/internal/persistence/memory"
)

func easyRun(id string) domain.Workout {
	return domain.Workout{
		ID:              id,
		ProfileID:       "p1",
		Date:            time.Date(2026, 4, 12, 7, 0, 0, 0, time.UTC),
		ActivityType:    "run",
		DistanceMiles:   6,
		DurationMinutes: 52,
		AvgPaceSeconds:  520,
		AvgHR:           142,
		MaxHR:           158,
		ElevationGainFt: 150,
		Source:          "device",
	}
}

func easySegments(n int) []domain.PersistedSegment {
	segments := make([]domain.PersistedSegment, 0, n)
	for i := 1; i <= n; i++ {
		segments = append(segments, domain.PersistedSegment{
			ID: fmt.Sprintf("s%d", i),
			Lap: domain.Lap{
				SegmentNumber:      i,
				DistanceMiles:      1,
				DurationSeconds:    520,
				PaceSecondsPerMile: 520,
				AvgHR:              140,
				MaxHR:              150,
			},
		})
	}
	return segments
}

func vdotReference() domain.AthleteReference {
	return domain.AthleteReference{VDOT: 50, RestingHR: 60, Age: 35, Gender: "male"}
}

func TestProcessWorkoutHappyPath(t *testing.T) {
	store := memory.NewStore()
	store.PutWorkout(easyRun("w1"), easySegments(6))
	store.PutAthleteReference("p1", vdotReference())

	p := NewProcessor(store)
	result, err := p.ProcessWorkout(context.Background(), "w1", Options{})
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	require.NotNil(t, result.DataQuality)
	require.Equal(t, 100, result.DataQuality.OverallScore)
	require.NotNil(t, result.TrainingLoad)
	require.Greater(t, result.TrainingLoad.TRIMP, 0.0)
	require.NotNil(t, result.Classification)
	require.Equal(t, domain.CategoryEasy, result.Classification.Category)

	require.NotNil(t, result.ZoneAnalysis)
	require.Len(t, result.ZoneAnalysis.PerLap, 6)
	for _, lz := range result.ZoneAnalysis.PerLap {
		require.Equal(t, domain.ZoneEasy, lz.Zone)
	}

	// All-easy laps leave the zone-weighted load at the base TRIMP.
	require.NotNil(t, result.IntervalMetrics)
	require.InDelta(t, 1.0, result.IntervalMetrics.IntensityFactor, 1e-9)
	require.InDelta(t, result.TrainingLoad.TRIMP, result.IntervalMetrics.IntervalAdjustedTRIMP, 1e-9)

	w, ok := store.Workout("w1")
	require.True(t, ok)
	require.Equal(t, "easy", w.AutoCategory)
	require.NotEmpty(t, w.AutoSummary)
	require.Equal(t, "easy", w.WorkoutType)
	require.Equal(t, domain.TypeSetByAuto, w.WorkoutTypeSetBy)
	require.InDelta(t, result.TrainingLoad.TRIMP, w.TRIMP, 1e-9)
	require.NotEmpty(t, w.DataQualityJSON)
	require.NotEmpty(t, w.ZoneDistributionJSON)
	require.NotEmpty(t, w.IntervalMetricsJSON)

	require.Equal(t, 6, store.SegmentZoneWrites)
	for _, seg := range store.Segments("w1") {
		require.Equal(t, domain.ZoneEasy, seg.PaceZone)
	}
}

func TestProcessWorkoutUnknownIDIsFatal(t *testing.T) {
	p := NewProcessor(memory.NewStore())

	result, err := p.ProcessWorkout(context.Background(), "nope", Options{})
	require.ErrorIs(t, err, domain.ErrWorkoutNotFound)
	require.Len(t, result.Errors, 1)
}

type failingZones struct{}

func (failingZones) Classify([]domain.Lap, *domain.AthleteReference, string) (*domain.ZoneAnalysis, error) {
	return nil, errors.New("zone model unavailable")
}

func TestProcessWorkoutStageFailureIsTolerated(t *testing.T) {
	store := memory.NewStore()
	store.PutWorkout(easyRun("w1"), easySegments(6))
	store.PutAthleteReference("p1", vdotReference())

	p := NewProcessorWith(store, failingZones{}, analyzers.ZoneWeightedStress{},
		analyzers.RepClusterDetector{}, analyzers.GeometryMatcher{}, analyzers.WeightedExecutionScorer{})

	result, err := p.ProcessWorkout(context.Background(), "w1", Options{})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "zone_classification")

	// The surviving stages still run and persist.
	require.NotNil(t, result.Classification)
	require.NotNil(t, result.TrainingLoad)
	w, _ := store.Workout("w1")
	require.Equal(t, "easy", w.AutoCategory)
	require.Greater(t, w.TRIMP, 0.0)

	// No zone analysis means no suggestion and no write-back.
	require.Empty(t, w.WorkoutType)
	require.Equal(t, 0, store.SegmentZoneWrites)
}

type countingStore struct {
	*memory.Store
	updates int
}

func (s *countingStore) UpdateWorkout(ctx context.Context, id string, update domain.WorkoutUpdate) error {
	s.updates++
	return s.Store.UpdateWorkout(ctx, id, update)
}

func TestProcessWorkoutIsIdempotent(t *testing.T) {
	store := &countingStore{Store: memory.NewStore()}
	store.PutWorkout(easyRun("w1"), easySegments(6))
	store.PutAthleteReference("p1", vdotReference())

	p := NewProcessor(store)
	opts := Options{SkipRouteMatching: true}

	first, err := p.ProcessWorkout(context.Background(), "w1", opts)
	require.NoError(t, err)
	require.Empty(t, first.Errors)
	require.Equal(t, 1, store.updates)

	second, err := p.ProcessWorkout(context.Background(), "w1", opts)
	require.NoError(t, err)
	require.Empty(t, second.Errors)
	require.Equal(t, 1, store.updates, "a re-run over unchanged inputs must not write")
}

func TestProcessWorkoutSyntheticLapNeverWritesZones(t *testing.T) {
	store := memory.NewStore()
	w := easyRun("w1")
	w.DistanceMiles = 5
	w.DurationMinutes = 45
	w.AvgPaceSeconds = 540
	store.PutWorkout(w, nil)
	store.PutAthleteReference("p1", vdotReference())

	p := NewProcessor(store)
	result, err := p.ProcessWorkout(context.Background(), "w1", Options{})
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	// The fabricated whole-workout lap feeds the analyzers...
	require.NotNil(t, result.ZoneAnalysis)
	require.Len(t, result.ZoneAnalysis.PerLap, 1)
	require.NotNil(t, result.Classification)

	// ...but has no storage identity to write back to.
	require.Equal(t, 0, store.SegmentZoneWrites)
}

func TestProcessWorkoutKeepsUserSetType(t *testing.T) {
	store := memory.NewStore()
	w := easyRun("w1")
	w.WorkoutType = "tempo"
	w.WorkoutTypeSetBy = domain.TypeSetByUser
	store.PutWorkout(w, easySegments(6))
	store.PutAthleteReference("p1", vdotReference())

	p := NewProcessor(store)
	result, err := p.ProcessWorkout(context.Background(), "w1", Options{})
	require.NoError(t, err)
	require.NotNil(t, result.ZoneAnalysis)
	require.Equal(t, domain.CategoryEasy, result.ZoneAnalysis.SuggestedWorkoutType)

	updated, _ := store.Workout("w1")
	require.Equal(t, "tempo", updated.WorkoutType)
	require.Equal(t, domain.TypeSetByUser, updated.WorkoutTypeSetBy)
}

func TestProcessWorkoutCreatesNamedRoute(t *testing.T) {
	store := memory.NewStore()
	w := easyRun("w1")
	w.RouteName = "River Loop"
	w.DistanceMiles = 6.2
	w.DurationMinutes = 55
	w.AvgPaceSeconds = 0
	store.PutWorkout(w, nil)
	store.PutAthleteReference("p1", vdotReference())

	p := NewProcessor(store)
	result, err := p.ProcessWorkout(context.Background(), "w1", Options{})
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	require.NotNil(t, result.RouteMatch)
	require.True(t, result.RouteMatch.Created)
	require.Equal(t, 1, result.RouteMatch.RunCount)

	routes := store.Routes()
	require.Len(t, routes, 1)
	require.Equal(t, "River Loop", routes[0].Name)
	require.Equal(t, 1, routes[0].RunCount)
	require.Equal(t, 55*60.0, routes[0].BestTimeSeconds)

	updated, _ := store.Workout("w1")
	require.Equal(t, routes[0].ID, updated.RouteID)
}

func TestProcessWorkoutFoldsRepeatRunIntoRoute(t *testing.T) {
	store := memory.NewStore()
	first := easyRun("w1")
	first.RouteName = "River Loop"
	first.DistanceMiles = 6.2
	first.DurationMinutes = 55
	first.AvgPaceSeconds = 0
	store.PutWorkout(first, nil)

	second := easyRun("w2")
	second.RouteName = "River Loop"
	second.DistanceMiles = 6.2
	second.DurationMinutes = 54
	second.AvgPaceSeconds = 0
	second.Date = first.Date.AddDate(0, 0, 7)
	store.PutWorkout(second, nil)

	p := NewProcessor(store)
	_, err := p.ProcessWorkout(context.Background(), "w1", Options{})
	require.NoError(t, err)
	result, err := p.ProcessWorkout(context.Background(), "w2", Options{})
	require.NoError(t, err)

	require.NotNil(t, result.RouteMatch)
	require.False(t, result.RouteMatch.Created)
	require.Equal(t, 2, result.RouteMatch.RunCount)

	routes := store.Routes()
	require.Len(t, routes, 1)
	require.Equal(t, 2, routes[0].RunCount)
	require.Equal(t, 54*60.0, routes[0].BestTimeSeconds)
	require.InDelta(t, (55*60.0+54*60.0)/2, routes[0].AvgTimeSeconds, 1e-9)
	require.Equal(t, second.Date, routes[0].LastRunAt)
}

func TestProcessWorkoutSkipRouteMatching(t *testing.T) {
	store := memory.NewStore()
	w := easyRun("w1")
	w.RouteName = "River Loop"
	store.PutWorkout(w, nil)

	p := NewProcessor(store)
	result, err := p.ProcessWorkout(context.Background(), "w1", Options{SkipRouteMatching: true})
	require.NoError(t, err)
	require.Nil(t, result.RouteMatch)
	require.Empty(t, store.Routes())
}

func TestProcessWorkoutScoresAgainstPlan(t *testing.T) {
	store := memory.NewStore()
	store.PutPlannedWorkout(domain.PlannedWorkout{
		ID:                  "plan1",
		WorkoutType:         "easy",
		TargetDistanceMiles: 6,
		TargetPaceSeconds:   520,
	})
	w := easyRun("w1")
	w.PlannedWorkoutID = "plan1"
	w.WorkoutType = "easy"
	w.WorkoutTypeSetBy = domain.TypeSetByUser
	store.PutWorkout(w, easySegments(6))
	store.PutAthleteReference("p1", vdotReference())

	p := NewProcessor(store)
	result, err := p.ProcessWorkout(context.Background(), "w1", Options{})
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	require.NotNil(t, result.ExecutionScore)
	require.Equal(t, 100.0, result.ExecutionScore.Overall)

	updated, _ := store.Workout("w1")
	require.NotNil(t, updated.ExecutionScore)
	require.Equal(t, 100.0, *updated.ExecutionScore)
}
