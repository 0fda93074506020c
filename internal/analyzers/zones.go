// Package analyzers holds the peer analyzers the pipeline calls around the
// core quality/classification stages. Each analyzer is an interface with a
// default heuristic implementation so the strategies stay pluggable.
package analyzers

import (
	"github.com/jason-traum/stride-os-sub002/internal/classify"
	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

// ZoneClassifier resolves every lap into an effort zone and aggregates a
// zone-time distribution plus a zone-derived workout-type suggestion.
type ZoneClassifier interface {
	Classify(laps []domain.Lap, ref *domain.AthleteReference, workoutTypeHint string) (*domain.ZoneAnalysis, error)
}

// PaceZoneClassifier is the default ZoneClassifier, built on the same zone
// boundaries the run classifier uses.
type PaceZoneClassifier struct{}

// Classify implements ZoneClassifier.
func (PaceZoneClassifier) Classify(laps []domain.Lap, ref *domain.AthleteReference, workoutTypeHint string) (*domain.ZoneAnalysis, error) {
	analysis := &domain.ZoneAnalysis{
		DistributionSeconds: make(map[domain.PaceZone]float64),
	}

	zones, ok := classify.DeriveZones(ref)
	if ok {
		analysis.BoundariesUsed = zones.Paces
	}

	for _, lap := range laps {
		zone := domain.ZoneUnknown
		confidence := 0.0
		if ok && lap.PaceSecondsPerMile > 0 {
			zone = zones.ZoneForPace(lap.PaceSecondsPerMile)
			confidence = zones.ZoneConfidence(lap.PaceSecondsPerMile)
		}
		analysis.PerLap = append(analysis.PerLap, domain.LapZone{
			SegmentNumber: lap.SegmentNumber,
			Zone:          zone,
			Confidence:    confidence,
		})
		analysis.DistributionSeconds[zone] += lap.DurationSeconds
	}

	analysis.SuggestedWorkoutType = suggestType(analysis.DistributionSeconds, workoutTypeHint)
	return analysis, nil
}

// suggestType maps the dominant zone onto a workout category. The hint wins
// ties toward structured categories; an unknown-dominated distribution
// produces no suggestion.
func suggestType(distribution map[domain.PaceZone]float64, hint string) domain.RunCategory {
	var dominant domain.PaceZone
	var best, total float64
	for zone, seconds := range distribution {
		total += seconds
		if seconds > best {
			dominant = zone
			best = seconds
		}
	}
	if total == 0 || dominant == domain.ZoneUnknown {
		return ""
	}

	switch dominant {
	case domain.ZoneRecovery:
		return domain.CategoryRecovery
	case domain.ZoneEasy, domain.ZoneAerobic, domain.ZoneMarathon:
		if hint == string(domain.CategoryLongRun) {
			return domain.CategoryLongRun
		}
		return domain.CategoryEasy
	case domain.ZoneTempo:
		return domain.CategoryTempo
	case domain.ZoneThreshold:
		return domain.CategoryThreshold
	default:
		return domain.CategoryIntervals
	}
}
