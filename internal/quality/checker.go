// Package quality inspects a workout and its laps and assigns GPS, heart
// rate, and pace reliability ratings plus a 0-100 integrity score. All
// inputs are heuristic sensor data; ambiguity degrades to a conservative
// rating, never an error.
package quality

import (
	"math"
	"strings"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

// Machine-readable issue codes surfaced on DataQualityFlags.Flags.
const (
	FlagGPSDataMissing        = "gps_data_missing"
	FlagGPSSignalLoss         = "gps_signal_loss"
	FlagGPSDriftDetected      = "gps_drift_detected"
	FlagPaceDistanceMismatch  = "pace_distance_mismatch"
	FlagUnrealisticDistance   = "unrealistic_distance"
	FlagTreadmillRun          = "treadmill_run"
	FlagHRDataMissing         = "hr_data_missing"
	FlagHRUnrealisticallyLow  = "hr_unrealistically_low"
	FlagHRUnrealisticallyHigh = "hr_unrealistically_high"
	FlagHRSpikeDetected       = "hr_spike_detected"
	FlagHRMaxBelowAvg         = "hr_max_below_avg"
	FlagHRDropoutsDetected    = "hr_dropouts_detected"
	FlagHRSpikePattern        = "hr_spike_pattern"
	FlagPaceVarianceHigh      = "pace_variance_high"
)

const (
	minPlausibleLapPace   = 180 // 3:00/mi, physiologically impossible
	minPlausibleRunPace   = 240 // 4:00/mi for a whole workout
	maxPlausibleLapPace   = 900 // 15:00/mi upper bound for drift check
	paceMismatchTolerance = 30  // seconds per mile
)

type subResult struct {
	flags []string
	recs  []string
}

func (s *subResult) flag(code, rec string) {
	s.flags = append(s.flags, code)
	if rec != "" {
		s.recs = append(s.recs, rec)
	}
}

// Check runs the three independent sub-analyses and combines them into the
// weighted overall score. It is pure, idempotent, and never errors.
func Check(w domain.Workout, laps []domain.Lap) domain.DataQualityFlags {
	gps, gpsSub := analyzeGPS(w, laps)
	hr, hrSub := analyzeHR(w, laps)
	pace, paceSub := analyzePace(w, laps)

	flags := domain.DataQualityFlags{
		GPSQuality:      gps,
		HRQuality:       hr,
		PaceReliability: pace,
	}
	flags.Flags = append(flags.Flags, gpsSub.flags...)
	flags.Flags = append(flags.Flags, hrSub.flags...)
	flags.Flags = append(flags.Flags, paceSub.flags...)
	flags.Recommendations = append(flags.Recommendations, gpsSub.recs...)
	flags.Recommendations = append(flags.Recommendations, hrSub.recs...)
	flags.Recommendations = append(flags.Recommendations, paceSub.recs...)

	// GPS integrity matters most for outdoor-run metrics.
	score := 0.4*gpsScore(gps) + 0.3*hrScore(hr) + 0.3*paceScore(pace)
	flags.OverallScore = int(math.Round(score))
	return flags
}

// isTreadmillRecord detects the manual-entry treadmill shape: no GPS device
// involved, so missing GPS is expected rather than an error.
func isTreadmillRecord(w domain.Workout) bool {
	return strings.EqualFold(w.Source, "manual") && w.ElevationGainFt == 0 && w.RouteName == ""
}

// looksTreadmill additionally checks free-text hints in notes and route name.
func looksTreadmill(w domain.Workout) bool {
	if isTreadmillRecord(w) {
		return true
	}
	notes := strings.ToLower(w.Notes)
	route := strings.ToLower(w.RouteName)
	return strings.Contains(notes, "treadmill") || strings.Contains(route, "treadmill")
}

func analyzeGPS(w domain.Workout, laps []domain.Lap) (domain.GPSQuality, subResult) {
	var sub subResult

	if isTreadmillRecord(w) {
		// Expected absence: no penalty flags or messaging.
		return domain.GPSMissing, sub
	}
	if w.DistanceMiles <= 0 {
		sub.flag(FlagGPSDataMissing, "No distance was recorded. Check that GPS was enabled and had a fix before starting.")
		return domain.GPSMissing, sub
	}

	quality := domain.GPSGood

	paces := lapPaces(laps)
	if len(paces) > 0 {
		mean := meanOf(paces)
		outliers := 0
		for _, p := range paces {
			if p < mean/2 || p > mean*2 {
				outliers++
			}
		}
		if float64(outliers)/float64(len(paces)) > 0.2 {
			sub.flag(FlagGPSSignalLoss, "Several lap paces are far outside the workout average, which usually means GPS signal loss. Consider trimming affected laps.")
			quality = domain.GPSNoisy
		}
		for _, p := range paces {
			if p < minPlausibleLapPace {
				sub.flag(FlagGPSDriftDetected, "A lap pace faster than 3:00/mi was recorded, which indicates GPS drift.")
				quality = domain.GPSNoisy
				break
			}
		}
	}

	if w.AvgPaceSeconds > 0 && w.DurationMinutes > 0 {
		calculated := w.DurationMinutes * 60 / w.DistanceMiles
		if math.Abs(calculated-w.AvgPaceSeconds) > paceMismatchTolerance {
			// Flagged but not alone sufficient to downgrade.
			sub.flag(FlagPaceDistanceMismatch, "Recorded pace does not match distance and duration. One of the three was likely mis-measured.")
		}
	}

	if w.DurationMinutes > 0 {
		overall := w.DurationMinutes * 60 / w.DistanceMiles
		if overall < minPlausibleRunPace {
			sub.flag(FlagUnrealisticDistance, "The overall pace is faster than 4:00/mi, which suggests the recorded distance is too long.")
			quality = domain.GPSNoisy
		}
	}

	return quality, sub
}

func analyzeHR(w domain.Workout, laps []domain.Lap) (domain.HRQuality, subResult) {
	var sub subResult

	if w.AvgHR <= 0 {
		sub.flag(FlagHRDataMissing, "No heart rate data was recorded. Check strap pairing if you expected HR.")
		return domain.HRMissing, sub
	}

	erratic := false
	if w.AvgHR < 80 {
		sub.flag(FlagHRUnrealisticallyLow, "Average HR below 80 bpm during a workout is physiologically unlikely. The strap probably lost contact.")
		erratic = true
	}
	if w.AvgHR > 220 {
		sub.flag(FlagHRUnrealisticallyHigh, "Average HR above 220 bpm is physiologically invalid. Check strap placement and battery.")
		erratic = true
	}
	if w.MaxHR > 250 {
		sub.flag(FlagHRSpikeDetected, "Max HR above 250 bpm indicates an electrical spike, often from a dry strap or clothing static.")
		erratic = true
	}
	if w.MaxHR > 0 && w.MaxHR < w.AvgHR {
		sub.flag(FlagHRMaxBelowAvg, "Max HR is below average HR, which is internally inconsistent. The HR stream is unreliable for this workout.")
		erratic = true
	}
	if erratic {
		return domain.HRErratic, sub
	}

	dropouts := 0
	spikes := 0
	var lapHRs []float64
	for _, lap := range laps {
		if lap.AvgHR > 0 {
			lapHRs = append(lapHRs, float64(lap.AvgHR))
		}
	}
	if len(lapHRs) > 0 {
		mean := meanOf(lapHRs)
		for _, hr := range lapHRs {
			if hr < 60 {
				dropouts++
			} else if hr > mean*1.3 {
				spikes++
			}
		}
	}

	// Dropouts take precedence over generic spikes.
	if dropouts > 0 {
		sub.flag(FlagHRDropoutsDetected, "Some laps recorded under 60 bpm, which indicates strap contact loss. Moisten the strap contacts before your next run.")
		return domain.HRDropouts, sub
	}
	if len(lapHRs) > 0 && float64(spikes)/float64(len(lapHRs)) > 0.1 {
		sub.flag(FlagHRSpikePattern, "Repeated HR spikes well above the workout average were detected. The strap may be worn out.")
		return domain.HRErratic, sub
	}

	return domain.HRGood, sub
}

func analyzePace(w domain.Workout, laps []domain.Lap) (domain.PaceReliability, subResult) {
	var sub subResult

	if looksTreadmill(w) {
		// Informational only: treadmill paces come from the belt, not GPS.
		sub.flags = append(sub.flags, FlagTreadmillRun)
		return domain.PaceTreadmill, sub
	}

	reliability := domain.PaceGood

	paces := lapPaces(laps)
	if len(paces) >= 2 {
		cv := coefficientOfVariation(paces)
		outOfBand := false
		for _, p := range paces {
			if p < minPlausibleRunPace || p > maxPlausibleLapPace {
				outOfBand = true
				break
			}
		}
		if cv > 0.25 && outOfBand {
			sub.flag(FlagPaceVarianceHigh, "Lap paces vary far more than normal running allows, pointing to GPS drift. Treat splits for this workout with suspicion.")
			reliability = domain.PaceGPSDrift
		}
	}

	if w.AvgPaceSeconds > 0 && w.DistanceMiles > 0 && w.DurationMinutes > 0 {
		calculated := w.DurationMinutes * 60 / w.DistanceMiles
		if math.Abs(calculated-w.AvgPaceSeconds) > paceMismatchTolerance {
			// Does not alone change the rating.
			sub.flag(FlagPaceDistanceMismatch, "")
		}
	}

	return reliability, sub
}

func gpsScore(q domain.GPSQuality) float64 {
	switch q {
	case domain.GPSNoisy:
		return 60
	case domain.GPSMissing:
		return 30
	default:
		return 100
	}
}

func hrScore(q domain.HRQuality) float64 {
	switch q {
	case domain.HRDropouts:
		return 70
	case domain.HRErratic:
		return 50
	case domain.HRMissing:
		return 40
	default:
		return 100
	}
}

func paceScore(q domain.PaceReliability) float64 {
	switch q {
	case domain.PaceTreadmill:
		return 80
	case domain.PaceGPSDrift:
		return 50
	default:
		return 100
	}
}

func lapPaces(laps []domain.Lap) []float64 {
	paces := make([]float64, 0, len(laps))
	for _, lap := range laps {
		if lap.PaceSecondsPerMile > 0 {
			paces = append(paces, lap.PaceSecondsPerMile)
		}
	}
	return paces
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func coefficientOfVariation(values []float64) float64 {
	mean := meanOf(values)
	if mean == 0 || len(values) < 2 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / mean
}
