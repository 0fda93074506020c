package analyzers

import (
	"fmt"
	"math"
	"sort"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

// PatternDetector recognizes structured sets (e.g. "8x800m") in
// zone-enriched segments. Type "unknown" is a valid, non-error result.
type PatternDetector interface {
	Detect(laps []domain.Lap) (*domain.IntervalPattern, error)
}

// RepClusterDetector is the default PatternDetector: it clusters work laps
// by distance and pace and reads repeat sets off the dominant cluster.
type RepClusterDetector struct{}

const (
	repDistanceTolerance = 0.15
	repPaceTolerance     = 0.10
	minRepsForSet        = 3
	minLapsForDetection  = 4
)

// trackDistances are the rep lengths (meters) a detected distance snaps to.
var trackDistances = []float64{100, 200, 300, 400, 600, 800, 1000, 1200, 1600, 2000, 3200, 5000}

// Detect implements PatternDetector. Requires at least four laps.
func (RepClusterDetector) Detect(laps []domain.Lap) (*domain.IntervalPattern, error) {
	if len(laps) < minLapsForDetection {
		return nil, ErrTooFewSegments
	}

	work, recoveries := splitWorkLaps(laps)
	if len(work) < minRepsForSet {
		return &domain.IntervalPattern{Type: "unknown"}, nil
	}

	medianDist := median(distances(work))
	medianPace := median(paces(work))

	var reps []domain.Lap
	for _, lap := range work {
		if medianDist > 0 && relDiff(lap.DistanceMiles, medianDist) > repDistanceTolerance {
			continue
		}
		if medianPace > 0 && lap.PaceSecondsPerMile > 0 && relDiff(lap.PaceSecondsPerMile, medianPace) > repPaceTolerance {
			continue
		}
		reps = append(reps, lap)
	}

	if len(reps) >= minRepsForSet {
		pattern := &domain.IntervalPattern{
			Type:               "repeats",
			Reps:               len(reps),
			RepDistanceMiles:   medianDist,
			Label:              repLabel(len(reps), medianDist),
			AvgWorkPaceSeconds: meanPace(reps),
		}
		if len(recoveries) > 0 {
			pattern.AvgRecoverySeconds = meanDuration(recoveries)
		}
		return pattern, nil
	}

	if isLadder(work) {
		return &domain.IntervalPattern{
			Type:               "ladder",
			Reps:               len(work),
			AvgWorkPaceSeconds: meanPace(work),
		}, nil
	}

	return &domain.IntervalPattern{Type: "unknown"}, nil
}

// splitWorkLaps separates work laps from recoveries, preferring explicit
// segment types and falling back to resolved zones.
func splitWorkLaps(laps []domain.Lap) (work, recoveries []domain.Lap) {
	typed := false
	for _, lap := range laps {
		if lap.SegmentType == "work" || lap.SegmentType == "recovery" {
			typed = true
			break
		}
	}
	for _, lap := range laps {
		if typed {
			switch lap.SegmentType {
			case "work":
				work = append(work, lap)
			case "recovery":
				recoveries = append(recoveries, lap)
			}
			continue
		}
		switch lap.PaceZone {
		case domain.ZoneTempo, domain.ZoneThreshold, domain.ZoneVO2Max, domain.ZoneFaster:
			work = append(work, lap)
		case domain.ZoneRecovery, domain.ZoneEasy:
			recoveries = append(recoveries, lap)
		}
	}
	return work, recoveries
}

// isLadder detects monotonically growing or shrinking rep distances.
func isLadder(work []domain.Lap) bool {
	if len(work) < minRepsForSet {
		return false
	}
	ascending, descending := true, true
	for i := 1; i < len(work); i++ {
		if work[i].DistanceMiles <= work[i-1].DistanceMiles {
			ascending = false
		}
		if work[i].DistanceMiles >= work[i-1].DistanceMiles {
			descending = false
		}
	}
	return ascending || descending
}

// repLabel renders "8x800m", snapping the distance to common track reps and
// falling back to miles for long reps.
func repLabel(reps int, distMiles float64) string {
	meters := distMiles * 1609.344
	if meters <= 0 {
		return fmt.Sprintf("%dx?", reps)
	}

	bestDist := trackDistances[0]
	for _, d := range trackDistances {
		if math.Abs(meters-d) < math.Abs(meters-bestDist) {
			bestDist = d
		}
	}
	if relDiff(meters, bestDist) <= 0.10 {
		if bestDist >= 1600 && math.Mod(bestDist, 1600) == 0 {
			return fmt.Sprintf("%dx%dmi", reps, int(bestDist/1600))
		}
		return fmt.Sprintf("%dx%dm", reps, int(bestDist))
	}
	return fmt.Sprintf("%dx%.1fmi", reps, distMiles)
}

func distances(laps []domain.Lap) []float64 {
	out := make([]float64, 0, len(laps))
	for _, lap := range laps {
		out = append(out, lap.DistanceMiles)
	}
	return out
}

func paces(laps []domain.Lap) []float64 {
	out := make([]float64, 0, len(laps))
	for _, lap := range laps {
		if lap.PaceSecondsPerMile > 0 {
			out = append(out, lap.PaceSecondsPerMile)
		}
	}
	return out
}

func meanPace(laps []domain.Lap) float64 {
	vals := paces(laps)
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func meanDuration(laps []domain.Lap) float64 {
	if len(laps) == 0 {
		return 0
	}
	sum := 0.0
	for _, lap := range laps {
		sum += lap.DurationSeconds
	}
	return sum / float64(len(laps))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func relDiff(a, b float64) float64 {
	max := math.Max(math.Abs(a), math.Abs(b))
	if max == 0 {
		return 0
	}
	return math.Abs(a-b) / max
}
