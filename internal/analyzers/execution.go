package analyzers

import (
	"fmt"
	"math"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

// ExecutionScorer compares a workout against its linked plan item.
type ExecutionScorer interface {
	Score(w domain.Workout, planned domain.PlannedWorkout, laps []domain.Lap, ref *domain.AthleteReference) (*domain.ExecutionScore, error)
}

// WeightedExecutionScorer is the default ExecutionScorer: percentage
// deviation penalties on distance and pace plus a type agreement score,
// with hot or windy conditions relaxing the pace penalty.
type WeightedExecutionScorer struct{}

const (
	distanceDeviationSpan = 0.25
	paceDeviationSpan     = 0.15
	hotTempF              = 75
	windyMph              = 15
	weatherPaceRelief     = 0.75
)

// Score implements ExecutionScorer.
func (WeightedExecutionScorer) Score(w domain.Workout, planned domain.PlannedWorkout, laps []domain.Lap, ref *domain.AthleteReference) (*domain.ExecutionScore, error) {
	score := &domain.ExecutionScore{DistanceScore: 100, PaceScore: 100, TypeScore: 100}

	if planned.TargetDistanceMiles > 0 {
		dev := math.Abs(w.DistanceMiles-planned.TargetDistanceMiles) / planned.TargetDistanceMiles
		score.DistanceScore = deviationScore(dev, distanceDeviationSpan)
	}

	if planned.TargetPaceSeconds > 0 {
		actual := w.AvgPaceSeconds
		if actual == 0 && w.DistanceMiles > 0 && w.DurationMinutes > 0 {
			actual = w.DurationMinutes * 60 / w.DistanceMiles
		}
		if actual > 0 {
			dev := math.Abs(actual-planned.TargetPaceSeconds) / planned.TargetPaceSeconds
			if w.Weather.TempF > hotTempF || w.Weather.WindMph > windyMph {
				dev *= weatherPaceRelief
				score.Notes = "pace penalty relaxed for adverse weather"
			}
			score.PaceScore = deviationScore(dev, paceDeviationSpan)
		}
	}

	if planned.WorkoutType != "" {
		actualType := w.WorkoutType
		if actualType == "" {
			actualType = w.AutoCategory
		}
		if actualType != planned.WorkoutType {
			score.TypeScore = 40
			if score.Notes != "" {
				score.Notes += "; "
			}
			score.Notes += fmt.Sprintf("planned %s, ran %s", planned.WorkoutType, actualType)
		}
	}

	score.Overall = 0.4*score.DistanceScore + 0.4*score.PaceScore + 0.2*score.TypeScore
	return score, nil
}

// deviationScore maps a relative deviation onto [0,100], reaching 0 at the
// given span.
func deviationScore(dev, span float64) float64 {
	if dev >= span {
		return 0
	}
	return 100 * (1 - dev/span)
}
