// Package classify assigns a workout category with a confidence score and a
// human-readable summary. It is deterministic, performs no I/O, and is
// total: every workout gets a best guess, never an error.
package classify

import (
	"fmt"
	"math"
	"strings"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

const (
	progressionTolerance = 10 // seconds per mile a lap may slow before breaking monotonicity
	progressionSpread    = 30 // required first-to-last pace drop, seconds per mile
	fartlekCV            = 0.15
	hillGainPerMile      = 200 // feet
	longRunMinutes       = 90
	longRunMiles         = 13
)

// Classify evaluates the branches in precedence order; the first match wins.
// Each branch states its own confidence and at least one plausible
// alternative so downstream consumers keep the ambiguity information.
func Classify(w domain.Workout, ref *domain.AthleteReference, laps []domain.Lap) domain.ClassificationResult {
	signals := buildSignals(w, ref, laps)

	if result, ok := classifyOverride(w, signals); ok {
		return result
	}
	if result, ok := classifyStructure(w, laps, signals); ok {
		return result
	}
	if result, ok := classifyLongRun(w, signals); ok {
		return result
	}
	return classifyByZone(w, signals)
}

func buildSignals(w domain.Workout, ref *domain.AthleteReference, laps []domain.Lap) domain.ClassificationSignals {
	signals := domain.ClassificationSignals{LapCount: len(laps)}

	if zones, ok := DeriveZones(ref); ok {
		signals.PaceZone = zones.ZoneForPace(avgPace(w))
	} else {
		signals.PaceZone = domain.ZoneUnknown
	}

	var paces []float64
	for _, lap := range laps {
		if lap.PaceSecondsPerMile > 0 {
			paces = append(paces, lap.PaceSecondsPerMile)
		}
		switch lap.SegmentType {
		case "work":
			signals.WorkLaps++
		case "recovery":
			signals.RecoveryLaps++
		}
	}
	if len(paces) >= 2 {
		signals.PaceCV = coefficientOfVariation(paces)
		signals.PaceSpreadSeconds = paces[0] - paces[len(paces)-1]
	}
	if w.DistanceMiles > 0 {
		signals.ElevationPerMile = w.ElevationGainFt / w.DistanceMiles
	}
	return signals
}

func classifyOverride(w domain.Workout, signals domain.ClassificationSignals) (domain.ClassificationResult, bool) {
	if w.WorkoutType == string(domain.CategoryRace) {
		return result(domain.CategoryRace, 0.98, summarize(domain.CategoryRace, w), signals,
			guess(domain.CategoryTempo, 0.2)), true
	}
	crossType := w.ActivityType != "" && !strings.EqualFold(w.ActivityType, "run")
	if crossType || w.WorkoutType == string(domain.CategoryCrossTraining) {
		return result(domain.CategoryCrossTraining, 0.95, summarize(domain.CategoryCrossTraining, w), signals,
			guess(domain.CategoryEasy, 0.2)), true
	}
	if w.DistanceMiles < 0.1 && w.DurationMinutes > 0 {
		return result(domain.CategoryCrossTraining, 0.95, summarize(domain.CategoryCrossTraining, w), signals,
			guess(domain.CategoryEasy, 0.2)), true
	}
	return domain.ClassificationResult{}, false
}

func classifyStructure(w domain.Workout, laps []domain.Lap, signals domain.ClassificationSignals) (domain.ClassificationResult, bool) {
	if len(laps) < 3 {
		return domain.ClassificationResult{}, false
	}

	if signals.WorkLaps >= 3 && signals.RecoveryLaps >= 2 && alternatesWorkRecovery(laps) {
		return result(domain.CategoryIntervals, 0.9, summarize(domain.CategoryIntervals, w), signals,
			guess(domain.CategoryFartlek, 0.4)), true
	}
	if isProgression(laps) {
		return result(domain.CategoryProgression, 0.85, summarize(domain.CategoryProgression, w), signals,
			guess(domain.CategoryTempo, 0.4)), true
	}
	if signals.PaceCV >= fartlekCV {
		return result(domain.CategoryFartlek, 0.75, summarize(domain.CategoryFartlek, w), signals,
			guess(domain.CategoryIntervals, 0.45)), true
	}
	if signals.ElevationPerMile >= hillGainPerMile && signals.PaceCV >= 0.08 {
		return result(domain.CategoryHillRepeats, 0.7, summarize(domain.CategoryHillRepeats, w), signals,
			guess(domain.CategoryIntervals, 0.4)), true
	}
	return domain.ClassificationResult{}, false
}

func classifyLongRun(w domain.Workout, signals domain.ClassificationSignals) (domain.ClassificationResult, bool) {
	easyish := signals.PaceZone == domain.ZoneRecovery ||
		signals.PaceZone == domain.ZoneEasy ||
		signals.PaceZone == domain.ZoneAerobic

	if w.DurationMinutes >= longRunMinutes || w.DistanceMiles >= longRunMiles {
		confidence := 0.75
		if easyish {
			confidence = 0.9
		}
		return result(domain.CategoryLongRun, confidence, summarize(domain.CategoryLongRun, w), signals,
			guess(domain.CategoryTempo, 0.35)), true
	}
	if easyish && (w.DistanceMiles >= 10 || w.DurationMinutes >= 60) {
		return result(domain.CategoryLongRun, 0.8, summarize(domain.CategoryLongRun, w), signals,
			guess(domain.CategoryEasy, 0.5)), true
	}
	return domain.ClassificationResult{}, false
}

func classifyByZone(w domain.Workout, signals domain.ClassificationSignals) domain.ClassificationResult {
	switch signals.PaceZone {
	case domain.ZoneRecovery:
		if w.DistanceMiles > 0 && w.DistanceMiles < 4 {
			return result(domain.CategoryShakeout, 0.75, summarize(domain.CategoryShakeout, w), signals,
				guess(domain.CategoryRecovery, 0.5))
		}
		return result(domain.CategoryRecovery, 0.8, summarize(domain.CategoryRecovery, w), signals,
			guess(domain.CategoryEasy, 0.4))
	case domain.ZoneEasy:
		return result(domain.CategoryEasy, 0.8, summarize(domain.CategoryEasy, w), signals,
			guess(domain.CategoryRecovery, 0.3))
	case domain.ZoneAerobic:
		return result(domain.CategoryEasy, 0.7, summarize(domain.CategoryEasy, w), signals,
			guess(domain.CategoryTempo, 0.3))
	case domain.ZoneMarathon:
		// Marathon-pace effort is genuinely ambiguous with tempo effort.
		return result(domain.CategoryEasy, 0.65, summarize(domain.CategoryEasy, w), signals,
			guess(domain.CategoryTempo, 0.45))
	case domain.ZoneTempo:
		return result(domain.CategoryTempo, 0.8, summarize(domain.CategoryTempo, w), signals,
			guess(domain.CategoryThreshold, 0.35))
	case domain.ZoneThreshold:
		return result(domain.CategoryThreshold, 0.8, summarize(domain.CategoryThreshold, w), signals,
			guess(domain.CategoryTempo, 0.35))
	case domain.ZoneVO2Max:
		return result(domain.CategoryIntervals, 0.7, summarize(domain.CategoryIntervals, w), signals,
			guess(domain.CategoryRace, 0.35))
	case domain.ZoneFaster:
		return result(domain.CategoryIntervals, 0.65, summarize(domain.CategoryIntervals, w), signals,
			guess(domain.CategoryRace, 0.4))
	default:
		// No reference paces at all: best guess with the ambiguity spelled out.
		return result(domain.CategoryEasy, 0.5, summarize(domain.CategoryEasy, w), signals,
			guess(domain.CategoryTempo, 0.3), guess(domain.CategoryRecovery, 0.3))
	}
}

func alternatesWorkRecovery(laps []domain.Lap) bool {
	var typed []string
	for _, lap := range laps {
		if lap.SegmentType == "work" || lap.SegmentType == "recovery" {
			typed = append(typed, lap.SegmentType)
		}
	}
	if len(typed) < 2 {
		return false
	}
	transitions := 0
	for i := 1; i < len(typed); i++ {
		if typed[i] != typed[i-1] {
			transitions++
		}
	}
	return float64(transitions)/float64(len(typed)-1) >= 0.7
}

func isProgression(laps []domain.Lap) bool {
	var paces []float64
	for _, lap := range laps {
		if lap.PaceSecondsPerMile > 0 {
			paces = append(paces, lap.PaceSecondsPerMile)
		}
	}
	if len(paces) < 3 {
		return false
	}
	for i := 1; i < len(paces); i++ {
		if paces[i] > paces[i-1]+progressionTolerance {
			return false
		}
	}
	return paces[0]-paces[len(paces)-1] > progressionSpread
}

func result(category domain.RunCategory, confidence float64, summary string, signals domain.ClassificationSignals, alternatives ...domain.CategoryGuess) domain.ClassificationResult {
	return domain.ClassificationResult{
		Category:     category,
		Confidence:   confidence,
		Summary:      summary,
		Signals:      signals,
		Alternatives: alternatives,
	}
}

func guess(category domain.RunCategory, confidence float64) domain.CategoryGuess {
	return domain.CategoryGuess{Category: category, Confidence: confidence}
}

func avgPace(w domain.Workout) float64 {
	if w.AvgPaceSeconds > 0 {
		return w.AvgPaceSeconds
	}
	if w.DistanceMiles > 0 && w.DurationMinutes > 0 {
		return w.DurationMinutes * 60 / w.DistanceMiles
	}
	return 0
}

// summarize renders the templated human-readable summary. It is a pure
// render of the chosen category and available metrics, not a decision point.
func summarize(category domain.RunCategory, w domain.Workout) string {
	pace := formatPace(avgPace(w))
	switch category {
	case domain.CategoryRace:
		return fmt.Sprintf("Race effort over %.1f miles at %s pace", w.DistanceMiles, pace)
	case domain.CategoryCrossTraining:
		if w.ActivityType != "" && !strings.EqualFold(w.ActivityType, "run") {
			return fmt.Sprintf("Cross training: %.0f minutes of %s", w.DurationMinutes, strings.ToLower(w.ActivityType))
		}
		return fmt.Sprintf("Cross training session, %.0f minutes", w.DurationMinutes)
	case domain.CategoryIntervals:
		return fmt.Sprintf("Interval workout over %.1f miles", w.DistanceMiles)
	case domain.CategoryProgression:
		return fmt.Sprintf("Progression run over %.1f miles, finishing faster than it started", w.DistanceMiles)
	case domain.CategoryFartlek:
		return fmt.Sprintf("Fartlek-style run with varied pacing over %.1f miles", w.DistanceMiles)
	case domain.CategoryHillRepeats:
		return fmt.Sprintf("Hill workout with %.0f ft of climbing over %.1f miles", w.ElevationGainFt, w.DistanceMiles)
	case domain.CategoryLongRun:
		return fmt.Sprintf("Long run of %.1f miles at %s pace", w.DistanceMiles, pace)
	case domain.CategoryTempo:
		return fmt.Sprintf("Tempo run at %s pace", pace)
	case domain.CategoryThreshold:
		return fmt.Sprintf("Threshold run at %s pace", pace)
	case domain.CategoryShakeout:
		return fmt.Sprintf("Short shakeout of %.1f easy miles", w.DistanceMiles)
	case domain.CategoryRecovery:
		return fmt.Sprintf("Recovery run of %.1f miles at %s pace", w.DistanceMiles, pace)
	default:
		return fmt.Sprintf("Easy run of %.1f miles at %s pace", w.DistanceMiles, pace)
	}
}

func formatPace(paceSeconds float64) string {
	if paceSeconds <= 0 {
		return "unknown"
	}
	total := int(math.Round(paceSeconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / mean
}
