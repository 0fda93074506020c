package analyzers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

func TestExecutionPerfectMatch(t *testing.T) {
	w := domain.Workout{
		DistanceMiles:  6,
		AvgPaceSeconds: 480,
		WorkoutType:    "easy",
	}
	planned := domain.PlannedWorkout{
		TargetDistanceMiles: 6,
		TargetPaceSeconds:   480,
		WorkoutType:         "easy",
	}

	score, err := WeightedExecutionScorer{}.Score(w, planned, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 100.0, score.DistanceScore)
	require.Equal(t, 100.0, score.PaceScore)
	require.Equal(t, 100.0, score.TypeScore)
	require.Equal(t, 100.0, score.Overall)
	require.Empty(t, score.Notes)
}

func TestExecutionDistanceDeviation(t *testing.T) {
	// 5 of a planned 6 miles: 16.67% short against a 25% span.
	w := domain.Workout{DistanceMiles: 5, AvgPaceSeconds: 480}
	planned := domain.PlannedWorkout{TargetDistanceMiles: 6, TargetPaceSeconds: 480}

	score, err := WeightedExecutionScorer{}.Score(w, planned, nil, nil)
	require.NoError(t, err)
	require.InDelta(t, 100*(1-(1.0/6.0)/0.25), score.DistanceScore, 1e-9)
	require.Equal(t, 100.0, score.PaceScore)
}

func TestExecutionDistanceBlownPast(t *testing.T) {
	w := domain.Workout{DistanceMiles: 10, AvgPaceSeconds: 480}
	planned := domain.PlannedWorkout{TargetDistanceMiles: 6}

	score, err := WeightedExecutionScorer{}.Score(w, planned, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, score.DistanceScore)
}

func TestExecutionPaceDerivedFromDuration(t *testing.T) {
	// No average pace recorded: 48 minutes over 6 miles implies 480 s/mi.
	w := domain.Workout{DistanceMiles: 6, DurationMinutes: 48}
	planned := domain.PlannedWorkout{TargetPaceSeconds: 480}

	score, err := WeightedExecutionScorer{}.Score(w, planned, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 100.0, score.PaceScore)
}

func TestExecutionWeatherRelaxesPacePenalty(t *testing.T) {
	w := domain.Workout{DistanceMiles: 6, AvgPaceSeconds: 528}
	planned := domain.PlannedWorkout{TargetPaceSeconds: 480}

	cool, err := WeightedExecutionScorer{}.Score(w, planned, nil, nil)
	require.NoError(t, err)

	w.Weather = domain.Weather{TempF: 88}
	hot, err := WeightedExecutionScorer{}.Score(w, planned, nil, nil)
	require.NoError(t, err)

	// 10% slow: full deviation scores 100*(1-0.10/0.15), the hot run is
	// scored on 7.5%.
	require.InDelta(t, 100*(1-0.10/0.15), cool.PaceScore, 1e-9)
	require.InDelta(t, 100*(1-0.075/0.15), hot.PaceScore, 1e-9)
	require.Contains(t, hot.Notes, "adverse weather")
	require.Empty(t, cool.Notes)
}

func TestExecutionWindTriggersRelief(t *testing.T) {
	w := domain.Workout{
		DistanceMiles:  6,
		AvgPaceSeconds: 528,
		Weather:        domain.Weather{WindMph: 20},
	}
	planned := domain.PlannedWorkout{TargetPaceSeconds: 480}

	score, err := WeightedExecutionScorer{}.Score(w, planned, nil, nil)
	require.NoError(t, err)
	require.InDelta(t, 100*(1-0.075/0.15), score.PaceScore, 1e-9)
}

func TestExecutionTypeMismatch(t *testing.T) {
	w := domain.Workout{
		DistanceMiles:  6,
		AvgPaceSeconds: 480,
		WorkoutType:    "easy",
	}
	planned := domain.PlannedWorkout{
		TargetDistanceMiles: 6,
		TargetPaceSeconds:   480,
		WorkoutType:         "tempo",
	}

	score, err := WeightedExecutionScorer{}.Score(w, planned, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 40.0, score.TypeScore)
	require.Contains(t, score.Notes, "planned tempo, ran easy")
	require.InDelta(t, 0.4*100+0.4*100+0.2*40, score.Overall, 1e-9)
}

func TestExecutionTypeFallsBackToAutoCategory(t *testing.T) {
	w := domain.Workout{
		DistanceMiles:  6,
		AvgPaceSeconds: 480,
		AutoCategory:   "tempo",
	}
	planned := domain.PlannedWorkout{WorkoutType: "tempo"}

	score, err := WeightedExecutionScorer{}.Score(w, planned, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 100.0, score.TypeScore)
}

func TestExecutionUnsetPlanFieldsScoreFull(t *testing.T) {
	w := domain.Workout{DistanceMiles: 3, AvgPaceSeconds: 700}

	score, err := WeightedExecutionScorer{}.Score(w, domain.PlannedWorkout{}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 100.0, score.Overall)
}

func TestExecutionOverallWeighting(t *testing.T) {
	// 12.5% short on distance, 7.5% slow on pace, type mismatch.
	w := domain.Workout{
		DistanceMiles:  7,
		AvgPaceSeconds: 516,
		WorkoutType:    "long_run",
	}
	planned := domain.PlannedWorkout{
		TargetDistanceMiles: 8,
		TargetPaceSeconds:   480,
		WorkoutType:         "easy",
	}

	score, err := WeightedExecutionScorer{}.Score(w, planned, nil, nil)
	require.NoError(t, err)
	wantDistance := 100 * (1 - 0.125/0.25)
	wantPace := 100 * (1 - 0.075/0.15)
	require.InDelta(t, wantDistance, score.DistanceScore, 1e-9)
	require.InDelta(t, wantPace, score.PaceScore, 1e-9)
	require.InDelta(t, 0.4*wantDistance+0.4*wantPace+0.2*40, score.Overall, 1e-9)
}
