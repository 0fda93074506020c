package analyzers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

const halfMile = 800.0 / 1609.344

func repeatLaps(reps int) []domain.Lap {
	laps := make([]domain.Lap, 0, reps*2)
	for i := 0; i < reps; i++ {
		laps = append(laps, domain.Lap{
			SegmentNumber:      len(laps) + 1,
			DistanceMiles:      halfMile,
			DurationSeconds:    165,
			PaceSecondsPerMile: 165 / halfMile,
			SegmentType:        "work",
		})
		laps = append(laps, domain.Lap{
			SegmentNumber:      len(laps) + 1,
			DistanceMiles:      0.25,
			DurationSeconds:    120,
			PaceSecondsPerMile: 480,
			SegmentType:        "recovery",
		})
	}
	return laps
}

func TestDetectEightByEightHundred(t *testing.T) {
	pattern, err := RepClusterDetector{}.Detect(repeatLaps(8))
	require.NoError(t, err)

	require.Equal(t, "repeats", pattern.Type)
	require.Equal(t, 8, pattern.Reps)
	require.Equal(t, "8x800m", pattern.Label)
	require.InDelta(t, halfMile, pattern.RepDistanceMiles, 0.001)
	require.InDelta(t, 120, pattern.AvgRecoverySeconds, 1e-9)
}

func TestDetectRequiresFourLaps(t *testing.T) {
	_, err := RepClusterDetector{}.Detect(repeatLaps(8)[:3])
	require.ErrorIs(t, err, ErrTooFewSegments)
}

func TestDetectFallsBackToZones(t *testing.T) {
	// No explicit segment types: work/recovery split comes from pace zones.
	laps := []domain.Lap{
		{SegmentNumber: 1, DistanceMiles: 0.25, DurationSeconds: 90, PaceSecondsPerMile: 360, PaceZone: domain.ZoneVO2Max},
		{SegmentNumber: 2, DistanceMiles: 0.25, DurationSeconds: 130, PaceSecondsPerMile: 520, PaceZone: domain.ZoneRecovery},
		{SegmentNumber: 3, DistanceMiles: 0.25, DurationSeconds: 90, PaceSecondsPerMile: 360, PaceZone: domain.ZoneVO2Max},
		{SegmentNumber: 4, DistanceMiles: 0.25, DurationSeconds: 130, PaceSecondsPerMile: 520, PaceZone: domain.ZoneRecovery},
		{SegmentNumber: 5, DistanceMiles: 0.25, DurationSeconds: 90, PaceSecondsPerMile: 360, PaceZone: domain.ZoneVO2Max},
	}

	pattern, err := RepClusterDetector{}.Detect(laps)
	require.NoError(t, err)
	require.Equal(t, "repeats", pattern.Type)
	require.Equal(t, 3, pattern.Reps)
	require.Equal(t, "3x400m", pattern.Label)
}

func TestDetectLadder(t *testing.T) {
	laps := []domain.Lap{
		{SegmentNumber: 1, DistanceMiles: 0.25, DurationSeconds: 85, PaceSecondsPerMile: 340, SegmentType: "work"},
		{SegmentNumber: 2, DistanceMiles: 0.5, DurationSeconds: 175, PaceSecondsPerMile: 350, SegmentType: "work"},
		{SegmentNumber: 3, DistanceMiles: 0.75, DurationSeconds: 270, PaceSecondsPerMile: 360, SegmentType: "work"},
		{SegmentNumber: 4, DistanceMiles: 1.0, DurationSeconds: 370, PaceSecondsPerMile: 370, SegmentType: "work"},
	}

	pattern, err := RepClusterDetector{}.Detect(laps)
	require.NoError(t, err)
	require.Equal(t, "ladder", pattern.Type)
	require.Equal(t, 4, pattern.Reps)
}

func TestDetectUnstructuredIsUnknown(t *testing.T) {
	laps := []domain.Lap{
		{SegmentNumber: 1, DistanceMiles: 1.2, DurationSeconds: 570, PaceSecondsPerMile: 475},
		{SegmentNumber: 2, DistanceMiles: 0.8, DurationSeconds: 390, PaceSecondsPerMile: 487},
		{SegmentNumber: 3, DistanceMiles: 1.5, DurationSeconds: 700, PaceSecondsPerMile: 467},
		{SegmentNumber: 4, DistanceMiles: 1.1, DurationSeconds: 530, PaceSecondsPerMile: 481},
	}

	pattern, err := RepClusterDetector{}.Detect(laps)
	require.NoError(t, err)
	require.Equal(t, "unknown", pattern.Type)
}

func TestRepLabelSnapsToTrackDistances(t *testing.T) {
	require.Equal(t, "6x400m", repLabel(6, 0.25))
	require.Equal(t, "4x1mi", repLabel(4, 1.0))
	require.Equal(t, "5x2.3mi", repLabel(5, 2.3))
}
