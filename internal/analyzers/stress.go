package analyzers

import (
	"errors"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

// ErrTooFewSegments is returned when a lap-structure analyzer does not have
// enough laps to say anything. The orchestrator treats it as a skip, not a
// failure.
var ErrTooFewSegments = errors.New("not enough segments")

// IntervalStress computes a zone-adjusted training load from zone-enriched
// segments. It consumes the lap zones resolved by the ZoneClassifier, not
// raw paces.
type IntervalStress interface {
	Compute(w domain.Workout, laps []domain.Lap, ref *domain.AthleteReference, baseTRIMP float64) (*domain.IntervalMetrics, error)
}

// zoneMultipliers weight a minute in each zone relative to an easy minute.
var zoneMultipliers = map[domain.PaceZone]float64{
	domain.ZoneRecovery:  0.8,
	domain.ZoneEasy:      1.0,
	domain.ZoneAerobic:   1.1,
	domain.ZoneMarathon:  1.3,
	domain.ZoneTempo:     1.6,
	domain.ZoneThreshold: 1.9,
	domain.ZoneVO2Max:    2.3,
	domain.ZoneFaster:    2.6,
	domain.ZoneUnknown:   1.0,
}

// ZoneWeightedStress is the default IntervalStress implementation.
type ZoneWeightedStress struct{}

// Compute implements IntervalStress. Requires at least three laps.
func (ZoneWeightedStress) Compute(w domain.Workout, laps []domain.Lap, ref *domain.AthleteReference, baseTRIMP float64) (*domain.IntervalMetrics, error) {
	if len(laps) < 3 {
		return nil, ErrTooFewSegments
	}

	zoneMinutes := make(map[domain.PaceZone]float64)
	var totalMinutes, weightedMinutes float64
	for _, lap := range laps {
		minutes := lap.DurationSeconds / 60
		if minutes <= 0 {
			continue
		}
		zone := lap.PaceZone
		if zone == "" {
			zone = domain.ZoneUnknown
		}
		zoneMinutes[zone] += minutes
		totalMinutes += minutes
		weightedMinutes += minutes * zoneMultipliers[zone]
	}
	if totalMinutes == 0 {
		return nil, ErrTooFewSegments
	}

	factor := weightedMinutes / totalMinutes
	return &domain.IntervalMetrics{
		IntervalAdjustedTRIMP: baseTRIMP * factor,
		IntensityFactor:       factor,
		ZoneMinutes:           zoneMinutes,
	}, nil
}
