package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

func TestDeriveZonesPrecedence(t *testing.T) {
	// VDOT wins even when explicit paces are also configured.
	ref := &domain.AthleteReference{
		VDOT:             50,
		EasyPaceSeconds:  600,
		TempoPaceSeconds: 430,
	}
	zones, ok := DeriveZones(ref)
	require.True(t, ok)
	require.Equal(t, "vdot", zones.Source)

	ref.VDOT = 0
	zones, ok = DeriveZones(ref)
	require.True(t, ok)
	require.Equal(t, "explicit", zones.Source)

	_, ok = DeriveZones(&domain.AthleteReference{})
	require.False(t, ok)

	_, ok = DeriveZones(nil)
	require.False(t, ok)
}

func TestVDOTZonesOrdering(t *testing.T) {
	zones, ok := DeriveZones(&domain.AthleteReference{VDOT: 50})
	require.True(t, ok)

	// Paces must be strictly faster (smaller) as intensity rises.
	order := []domain.PaceZone{
		domain.ZoneEasy, domain.ZoneAerobic, domain.ZoneMarathon,
		domain.ZoneTempo, domain.ZoneThreshold, domain.ZoneVO2Max,
	}
	for i := 1; i < len(order); i++ {
		require.Greater(t, zones.Paces[order[i-1]], zones.Paces[order[i]],
			"%s should be slower than %s", order[i-1], order[i])
	}

	// Daniels tables put the threshold pace for VDOT 50 near 6:51/mi.
	require.InDelta(t, 411, zones.Paces[domain.ZoneThreshold], 8)
}

func TestExplicitZonesInterpolation(t *testing.T) {
	zones, ok := DeriveZones(&domain.AthleteReference{TempoPaceSeconds: 430})
	require.True(t, ok)

	require.InDelta(t, 430/0.86, zones.Paces[domain.ZoneEasy], 0.001)
	require.InDelta(t, 430*0.97, zones.Paces[domain.ZoneThreshold], 0.001)
	easy := zones.Paces[domain.ZoneEasy]
	require.InDelta(t, (easy+430)/2, zones.Paces[domain.ZoneMarathon], 0.001)
}

func TestZoneForPace(t *testing.T) {
	zones, _ := DeriveZones(&domain.AthleteReference{VDOT: 50})

	easy := zones.Paces[domain.ZoneEasy]
	aerobic := zones.Paces[domain.ZoneAerobic]
	threshold := zones.Paces[domain.ZoneThreshold]
	vo2 := zones.Paces[domain.ZoneVO2Max]

	require.Equal(t, domain.ZoneEasy, zones.ZoneForPace(easy))
	require.Equal(t, domain.ZoneThreshold, zones.ZoneForPace(threshold))

	// Beyond the open-ended boundaries.
	require.Equal(t, domain.ZoneRecovery, zones.ZoneForPace(easy+(easy-aerobic)/2+1))
	require.Equal(t, domain.ZoneFaster, zones.ZoneForPace(vo2-(threshold-vo2)/2-1))

	require.Equal(t, domain.ZoneUnknown, zones.ZoneForPace(0))
}

func TestZoneConfidence(t *testing.T) {
	zones, _ := DeriveZones(&domain.AthleteReference{VDOT: 50})

	tempo := zones.Paces[domain.ZoneTempo]
	require.InDelta(t, 0.95, zones.ZoneConfidence(tempo), 0.001)

	// Halfway to the next canonical pace the confidence has fallen.
	threshold := zones.Paces[domain.ZoneThreshold]
	mid := (tempo + threshold) / 2
	require.Less(t, zones.ZoneConfidence(mid), 0.95)
	require.InDelta(t, 0.5, zones.ZoneConfidence(mid), 0.01)

	easy := zones.Paces[domain.ZoneEasy]
	aerobic := zones.Paces[domain.ZoneAerobic]
	require.InDelta(t, 0.75, zones.ZoneConfidence(easy+(easy-aerobic)/2+10), 0.001)
}
