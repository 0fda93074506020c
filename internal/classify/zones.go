package classify

import (
	"math"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

const metersPerMile = 1609.344

// Fractions of VDOT at which the canonical training paces sit. Derived from
// the Daniels running formula intensity bands.
const (
	pctEasy      = 0.66
	pctAerobic   = 0.73
	pctMarathon  = 0.79
	pctTempo     = 0.84
	pctThreshold = 0.88
	pctVO2Max    = 0.975
)

// zoneOrder lists the pace-banded zones from slowest to fastest. Recovery
// and faster are open-ended bands beyond the canonical paces.
var zoneOrder = []domain.PaceZone{
	domain.ZoneEasy,
	domain.ZoneAerobic,
	domain.ZoneMarathon,
	domain.ZoneTempo,
	domain.ZoneThreshold,
	domain.ZoneVO2Max,
}

// ZoneSet holds the canonical pace (seconds per mile) for each training zone
// of one athlete, plus the derivation source.
type ZoneSet struct {
	Source string // "vdot" or "explicit"
	Paces  map[domain.PaceZone]float64
}

// DeriveZones builds a ZoneSet from the athlete reference. VDOT-derived
// zones take precedence over explicit paces when both are present. The
// second return is false when the reference supports neither.
func DeriveZones(ref *domain.AthleteReference) (ZoneSet, bool) {
	if ref == nil {
		return ZoneSet{}, false
	}
	if ref.VDOT > 0 {
		return vdotZones(ref.VDOT), true
	}
	if ref.EasyPaceSeconds > 0 || ref.TempoPaceSeconds > 0 || ref.ThresholdPaceSeconds > 0 {
		return explicitZones(ref), true
	}
	return ZoneSet{}, false
}

// vdotZones evaluates the Daniels oxygen-cost curve at fixed %VDOT
// intensities to produce canonical paces.
func vdotZones(vdot float64) ZoneSet {
	paces := map[domain.PaceZone]float64{
		domain.ZoneEasy:      paceAtPct(vdot, pctEasy),
		domain.ZoneAerobic:   paceAtPct(vdot, pctAerobic),
		domain.ZoneMarathon:  paceAtPct(vdot, pctMarathon),
		domain.ZoneTempo:     paceAtPct(vdot, pctTempo),
		domain.ZoneThreshold: paceAtPct(vdot, pctThreshold),
		domain.ZoneVO2Max:    paceAtPct(vdot, pctVO2Max),
	}
	return ZoneSet{Source: "vdot", Paces: paces}
}

// explicitZones fills the canonical pace table from user-entered paces,
// interpolating the zones the user did not enter.
func explicitZones(ref *domain.AthleteReference) ZoneSet {
	easy := ref.EasyPaceSeconds
	tempo := ref.TempoPaceSeconds
	threshold := ref.ThresholdPaceSeconds

	switch {
	case easy == 0 && tempo > 0:
		easy = tempo / 0.86
	case easy == 0 && threshold > 0:
		easy = threshold / 0.83
	}
	if tempo == 0 {
		if threshold > 0 {
			tempo = threshold / 0.97
		} else {
			tempo = easy * 0.86
		}
	}
	if threshold == 0 {
		threshold = tempo * 0.97
	}

	marathon := (easy + tempo) / 2
	paces := map[domain.PaceZone]float64{
		domain.ZoneEasy:      easy,
		domain.ZoneAerobic:   (easy + marathon) / 2,
		domain.ZoneMarathon:  marathon,
		domain.ZoneTempo:     tempo,
		domain.ZoneThreshold: threshold,
		domain.ZoneVO2Max:    threshold * 0.93,
	}
	return ZoneSet{Source: "explicit", Paces: paces}
}

// ZoneForPace resolves a pace into a zone. Band boundaries sit at the
// midpoints between adjacent canonical paces; recovery and faster extend the
// scale at either end by half the width of the neighbouring band.
func (z ZoneSet) ZoneForPace(paceSeconds float64) domain.PaceZone {
	if len(z.Paces) == 0 || paceSeconds <= 0 {
		return domain.ZoneUnknown
	}

	easy := z.Paces[domain.ZoneEasy]
	aerobic := z.Paces[domain.ZoneAerobic]
	vo2 := z.Paces[domain.ZoneVO2Max]
	threshold := z.Paces[domain.ZoneThreshold]

	if paceSeconds > easy+(easy-aerobic)/2 {
		return domain.ZoneRecovery
	}
	if paceSeconds < vo2-(threshold-vo2)/2 {
		return domain.ZoneFaster
	}

	best := domain.ZoneEasy
	bestDelta := math.Abs(paceSeconds - easy)
	for _, zone := range zoneOrder[1:] {
		delta := math.Abs(paceSeconds - z.Paces[zone])
		if delta < bestDelta {
			best = zone
			bestDelta = delta
		}
	}
	return best
}

// ZoneConfidence reports how firmly a pace sits inside its zone: 0.95 at the
// canonical pace, falling toward 0.5 at a band boundary.
func (z ZoneSet) ZoneConfidence(paceSeconds float64) float64 {
	zone := z.ZoneForPace(paceSeconds)
	if zone == domain.ZoneUnknown {
		return 0
	}
	if zone == domain.ZoneRecovery || zone == domain.ZoneFaster {
		return 0.75
	}

	canonical := z.Paces[zone]
	halfBand := z.halfBandWidth(zone)
	if halfBand == 0 {
		return 0.95
	}
	offset := math.Abs(paceSeconds-canonical) / halfBand
	if offset > 1 {
		offset = 1
	}
	return 0.95 - 0.45*offset
}

func (z ZoneSet) halfBandWidth(zone domain.PaceZone) float64 {
	for i, candidate := range zoneOrder {
		if candidate != zone {
			continue
		}
		var neighbour domain.PaceZone
		if i+1 < len(zoneOrder) {
			neighbour = zoneOrder[i+1]
		} else {
			neighbour = zoneOrder[i-1]
		}
		return math.Abs(z.Paces[zone]-z.Paces[neighbour]) / 2
	}
	return 0
}

// paceAtPct converts a %VDOT oxygen cost into a pace in seconds per mile by
// solving the Daniels cost quadratic VO2 = -4.60 + 0.182258v + 0.000104v^2
// for velocity in meters per minute.
func paceAtPct(vdot, pct float64) float64 {
	const (
		a = 0.000104
		b = 0.182258
	)
	c := -(4.60 + vdot*pct)
	v := (-b + math.Sqrt(b*b-4*a*c)) / (2 * a)
	return metersPerMile / v * 60
}
