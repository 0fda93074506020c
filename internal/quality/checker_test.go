package quality

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

func cleanWorkout() domain.Workout {
	return domain.Workout{
		ID:              "w1",
		ProfileID:       "p1",
		ActivityType:    "run",
		DistanceMiles:   6,
		DurationMinutes: 48,
		AvgPaceSeconds:  480,
		AvgHR:           150,
		MaxHR:           172,
		ElevationGainFt: 120,
		Source:          "device",
	}
}

func evenLaps(n int, pace float64, hr int) []domain.Lap {
	laps := make([]domain.Lap, n)
	for i := range laps {
		laps[i] = domain.Lap{
			SegmentNumber:      i + 1,
			DistanceMiles:      1,
			DurationSeconds:    pace,
			PaceSecondsPerMile: pace,
			AvgHR:              hr,
		}
	}
	return laps
}

func TestCheckCleanWorkout(t *testing.T) {
	flags := Check(cleanWorkout(), evenLaps(6, 480, 150))

	require.Equal(t, domain.GPSGood, flags.GPSQuality)
	require.Equal(t, domain.HRGood, flags.HRQuality)
	require.Equal(t, domain.PaceGood, flags.PaceReliability)
	require.Equal(t, 100, flags.OverallScore)
	require.Empty(t, flags.Flags)
}

func TestCheckIsIdempotent(t *testing.T) {
	w := cleanWorkout()
	laps := evenLaps(6, 480, 150)

	first := Check(w, laps)
	second := Check(w, laps)
	require.Equal(t, first, second)
}

func TestHRBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		avgHR   int
		maxHR   int
		quality domain.HRQuality
		flag    string
	}{
		{name: "just below low bound", avgHR: 79, maxHR: 160, quality: domain.HRErratic, flag: FlagHRUnrealisticallyLow},
		{name: "at low bound", avgHR: 80, maxHR: 160, quality: domain.HRGood},
		{name: "at high bound", avgHR: 220, maxHR: 230, quality: domain.HRGood},
		{name: "just above high bound", avgHR: 221, maxHR: 230, quality: domain.HRErratic, flag: FlagHRUnrealisticallyHigh},
		{name: "spike above 250", avgHR: 150, maxHR: 251, quality: domain.HRErratic, flag: FlagHRSpikeDetected},
		{name: "max below avg", avgHR: 150, maxHR: 140, quality: domain.HRErratic, flag: FlagHRMaxBelowAvg},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := cleanWorkout()
			w.AvgHR = tc.avgHR
			w.MaxHR = tc.maxHR

			flags := Check(w, evenLaps(4, 480, tc.avgHR))
			require.Equal(t, tc.quality, flags.HRQuality)
			if tc.flag != "" {
				require.True(t, flags.HasFlag(tc.flag), "expected flag %s, got %v", tc.flag, flags.Flags)
			}
		})
	}
}

func TestHRMissing(t *testing.T) {
	w := cleanWorkout()
	w.AvgHR = 0
	w.MaxHR = 0

	flags := Check(w, evenLaps(4, 480, 0))
	require.Equal(t, domain.HRMissing, flags.HRQuality)
	require.True(t, flags.HasFlag(FlagHRDataMissing))
	// 0.4*100 + 0.3*40 + 0.3*100
	require.Equal(t, 82, flags.OverallScore)
}

func TestHRSpikeScenario(t *testing.T) {
	// A workout with max HR 250 stays within bounds; 251 does not.
	w := cleanWorkout()
	w.MaxHR = 250
	flags := Check(w, evenLaps(4, 480, 150))
	require.Equal(t, domain.HRGood, flags.HRQuality)

	w.MaxHR = 251
	flags = Check(w, evenLaps(4, 480, 150))
	require.Equal(t, domain.HRErratic, flags.HRQuality)
	// 0.4*100 + 0.3*50 + 0.3*100
	require.Equal(t, 85, flags.OverallScore)
}

func TestHRDropoutsPrecedeSpikes(t *testing.T) {
	w := cleanWorkout()
	laps := evenLaps(6, 480, 150)
	laps[2].AvgHR = 45  // dropout
	laps[4].AvgHR = 210 // spike relative to mean

	flags := Check(w, laps)
	require.Equal(t, domain.HRDropouts, flags.HRQuality)
	require.True(t, flags.HasFlag(FlagHRDropoutsDetected))
	require.False(t, flags.HasFlag(FlagHRSpikePattern))
}

func TestTreadmillManualEntry(t *testing.T) {
	w := cleanWorkout()
	w.Source = "manual"
	w.ElevationGainFt = 0
	w.RouteName = ""

	flags := Check(w, nil)
	require.Equal(t, domain.GPSMissing, flags.GPSQuality)
	require.Equal(t, domain.PaceTreadmill, flags.PaceReliability)
	require.False(t, flags.HasFlag(FlagGPSDataMissing))
	// 0.4*30 + 0.3*100 + 0.3*80
	require.Equal(t, 66, flags.OverallScore)
}

func TestTreadmillFromNotes(t *testing.T) {
	w := cleanWorkout()
	w.Notes = "Easy Treadmill miles before work"

	flags := Check(w, evenLaps(4, 480, 150))
	require.Equal(t, domain.PaceTreadmill, flags.PaceReliability)
	require.True(t, flags.HasFlag(FlagTreadmillRun))
	// Device-sourced with elevation: GPS analysis still runs normally.
	require.Equal(t, domain.GPSGood, flags.GPSQuality)
}

func TestGPSOutlierLaps(t *testing.T) {
	w := cleanWorkout()
	laps := evenLaps(8, 480, 150)
	laps[1].PaceSecondsPerMile = 100 // far below half the mean
	laps[5].PaceSecondsPerMile = 1400

	flags := Check(w, laps)
	require.Equal(t, domain.GPSNoisy, flags.GPSQuality)
	require.True(t, flags.HasFlag(FlagGPSSignalLoss))
	require.NotEmpty(t, flags.Recommendations)
}

func TestGPSImpossibleLapPace(t *testing.T) {
	w := cleanWorkout()
	laps := evenLaps(6, 480, 150)
	laps[3].PaceSecondsPerMile = 150 // under 3:00/mi

	flags := Check(w, laps)
	require.Equal(t, domain.GPSNoisy, flags.GPSQuality)
	require.True(t, flags.HasFlag(FlagGPSDriftDetected))
}

func TestUnrealisticOverallPace(t *testing.T) {
	w := cleanWorkout()
	w.DistanceMiles = 10
	w.DurationMinutes = 30 // 3:00/mi overall
	w.AvgPaceSeconds = 180

	flags := Check(w, nil)
	require.Equal(t, domain.GPSNoisy, flags.GPSQuality)
	require.True(t, flags.HasFlag(FlagUnrealisticDistance))
}

func TestPaceDistanceMismatch(t *testing.T) {
	w := cleanWorkout()
	w.AvgPaceSeconds = 540 // recorded 9:00 but distance/duration give 8:00

	flags := Check(w, evenLaps(6, 480, 150))
	require.True(t, flags.HasFlag(FlagPaceDistanceMismatch))
	// Mismatch alone does not downgrade either rating.
	require.Equal(t, domain.GPSGood, flags.GPSQuality)
	require.Equal(t, domain.PaceGood, flags.PaceReliability)
}

func TestPaceVarianceWithDrift(t *testing.T) {
	w := cleanWorkout()
	laps := evenLaps(6, 480, 150)
	laps[0].PaceSecondsPerMile = 200 // out of plausible band
	laps[1].PaceSecondsPerMile = 950

	flags := Check(w, laps)
	require.Equal(t, domain.PaceGPSDrift, flags.PaceReliability)
	require.True(t, flags.HasFlag(FlagPaceVarianceHigh))
}

func TestMissingDistance(t *testing.T) {
	w := cleanWorkout()
	w.DistanceMiles = 0
	w.AvgPaceSeconds = 0

	flags := Check(w, nil)
	require.Equal(t, domain.GPSMissing, flags.GPSQuality)
	require.True(t, flags.HasFlag(FlagGPSDataMissing))
}
