// Package load computes the training-load metrics derived from one workout:
// the quality ratio and a Banister TRIMP score.
package load

import (
	"math"
	"strings"

	"github.com/jason-traum/stride-os-sub002/internal/classify"
	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

const (
	trimpExponent     = 1.92
	trimpMaleCoeff    = 1.92
	trimpFemaleCoeff  = 1.67
	qualityTolerance  = 0.02 // fraction of tempo pace
	defaultRestingHR  = 60
	defaultAthleteAge = 35
)

// Compute bundles both metrics for the pipeline.
func Compute(w domain.Workout, ref *domain.AthleteReference, laps []domain.Lap) domain.TrainingLoad {
	return domain.TrainingLoad{
		QualityRatio: QualityRatio(w, ref, laps),
		TRIMP:        TRIMP(w, ref),
	}
}

// QualityRatio is the fraction of segment time spent at or within 2% of the
// athlete's tempo pace. Without lap data it degrades to a binary 0/1 on the
// overall average pace; without a tempo reference it is 0.
func QualityRatio(w domain.Workout, ref *domain.AthleteReference, laps []domain.Lap) float64 {
	tempo := tempoPace(ref)
	if tempo <= 0 {
		return 0
	}

	if len(laps) == 0 {
		pace := w.AvgPaceSeconds
		if pace == 0 && w.DistanceMiles > 0 && w.DurationMinutes > 0 {
			pace = w.DurationMinutes * 60 / w.DistanceMiles
		}
		if pace > 0 && pace <= tempo*(1+qualityTolerance) {
			return 1
		}
		return 0
	}

	total := 0.0
	quality := 0.0
	for _, lap := range laps {
		if lap.DurationSeconds <= 0 {
			continue
		}
		total += lap.DurationSeconds
		if lap.PaceSecondsPerMile > 0 && lap.PaceSecondsPerMile <= tempo*(1+qualityTolerance) {
			quality += lap.DurationSeconds
		}
	}
	if total == 0 {
		return 0
	}
	return quality / total
}

// TRIMP is the Banister training impulse: duration times heart-rate-reserve
// fraction times a gender-dependent multiplier times an exponential
// intensity weight. When no HR was recorded it falls back to a
// pace-bucketed multiplier table.
func TRIMP(w domain.Workout, ref *domain.AthleteReference) float64 {
	if w.DurationMinutes <= 0 {
		return 0
	}
	if w.AvgHR <= 0 {
		return w.DurationMinutes * paceMultiplier(w)
	}

	resting := defaultRestingHR
	age := defaultAthleteAge
	gender := ""
	if ref != nil {
		if ref.RestingHR > 0 {
			resting = ref.RestingHR
		}
		if ref.Age > 0 {
			age = ref.Age
		}
		gender = ref.Gender
	}

	maxHR := 220 - age
	hrr := float64(w.AvgHR-resting) / float64(maxHR-resting)
	hrr = math.Max(0, math.Min(1, hrr))

	coeff := trimpMaleCoeff
	if strings.EqualFold(gender, "female") {
		coeff = trimpFemaleCoeff
	}
	return w.DurationMinutes * hrr * coeff * math.Exp(trimpExponent*hrr)
}

func tempoPace(ref *domain.AthleteReference) float64 {
	if ref == nil {
		return 0
	}
	if zones, ok := classify.DeriveZones(ref); ok {
		return zones.Paces[domain.ZoneTempo]
	}
	return 0
}

// paceMultiplier approximates intensity from pace alone when HR is absent.
var paceBuckets = []struct {
	maxPaceSeconds float64
	multiplier     float64
}{
	{360, 2.5}, // faster than 6:00/mi
	{420, 2.0}, // 6:00-7:00
	{480, 1.6}, // 7:00-8:00
	{540, 1.3}, // 8:00-9:00
	{600, 1.1}, // 9:00-10:00
}

func paceMultiplier(w domain.Workout) float64 {
	pace := w.AvgPaceSeconds
	if pace == 0 && w.DistanceMiles > 0 && w.DurationMinutes > 0 {
		pace = w.DurationMinutes * 60 / w.DistanceMiles
	}
	if pace <= 0 {
		return 1.0
	}
	for _, bucket := range paceBuckets {
		if pace < bucket.maxPaceSeconds {
			return bucket.multiplier
		}
	}
	return 0.9
}
