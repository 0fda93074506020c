// Package fitimport converts device FIT activity files into workouts.
package fitimport

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tormoder/fit"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

const (
	metersPerMile = 1609.344
	feetPerMeter  = 3.28084
)

// Import decodes a FIT activity stream into a Workout and its laps. The
// returned workout carries a fresh ID and Source "device"; the caller owns
// persistence.
func Import(r io.Reader, profileID string) (domain.Workout, []domain.Lap, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return domain.Workout{}, nil, fmt.Errorf("decode FIT file: %w", err)
	}

	activity, err := decoded.Activity()
	if err != nil {
		return domain.Workout{}, nil, fmt.Errorf("activity FIT expected: %w", err)
	}
	if len(activity.Sessions) == 0 {
		return domain.Workout{}, nil, fmt.Errorf("activity file has no session message")
	}
	session := activity.Sessions[0]

	distanceMeters := safePositive(session.GetTotalDistanceScaled())
	durationSec := safePositive(session.GetTotalTimerTimeScaled())
	if durationSec == 0 {
		durationSec = safePositive(session.GetTotalElapsedTimeScaled())
	}

	w := domain.Workout{
		ID:              uuid.NewString(),
		ProfileID:       profileID,
		Date:            validTimeOrZero(session.StartTime),
		ActivityType:    normalizeSport(fmt.Sprint(session.Sport)),
		DistanceMiles:   distanceMeters / metersPerMile,
		DurationMinutes: durationSec / 60,
		AvgHR:           int(validUint8(session.AvgHeartRate)),
		MaxHR:           int(validUint8(session.MaxHeartRate)),
		ElevationGainFt: float64(validUint16(session.TotalAscent)) * feetPerMeter,
		Source:          "device",
	}
	if w.DistanceMiles > 0 && durationSec > 0 {
		w.AvgPaceSeconds = durationSec / w.DistanceMiles
	}

	laps := make([]domain.Lap, 0, len(activity.Laps))
	for i, lap := range activity.Laps {
		lapDistance := safePositive(lap.GetTotalDistanceScaled()) / metersPerMile
		lapDuration := safePositive(lap.GetTotalTimerTimeScaled())
		if lapDuration == 0 {
			lapDuration = safePositive(lap.GetTotalElapsedTimeScaled())
		}
		if lapDistance == 0 && lapDuration == 0 {
			continue
		}

		entry := domain.Lap{
			SegmentNumber:   i + 1,
			DistanceMiles:   lapDistance,
			DurationSeconds: lapDuration,
			AvgHR:           int(validUint8(lap.AvgHeartRate)),
			MaxHR:           int(validUint8(lap.MaxHeartRate)),
			ElevationGainFt: float64(validUint16(lap.TotalAscent)) * feetPerMeter,
		}
		if entry.DistanceMiles > 0 && entry.DurationSeconds > 0 {
			entry.PaceSecondsPerMile = entry.DurationSeconds / entry.DistanceMiles
		}
		laps = append(laps, entry)
	}

	return w, laps, nil
}

// normalizeSport maps FIT sport names onto the activity types the analyzers
// understand. Unknown sports pass through lowercased.
func normalizeSport(sport string) string {
	switch s := strings.ToLower(sport); s {
	case "running", "trailrunning":
		return "run"
	case "cycling":
		return "bike"
	case "swimming":
		return "swim"
	default:
		return s
	}
}

func validTimeOrZero(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}

func safePositive(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return v
}

func validUint8(v uint8) uint8 {
	if v == math.MaxUint8 {
		return 0
	}
	return v
}

func validUint16(v uint16) uint16 {
	if v == math.MaxUint16 {
		return 0
	}
	return v
}
