package analyzers

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
)

// RouteFingerprint is the derived signature of a workout's geometry used
// for matching against previously seen routes.
type RouteFingerprint struct {
	DistanceMiles   float64
	ElevationGainFt float64
	NameKey         string
}

// RouteCandidate pairs a matched canonical route with its similarity score.
type RouteCandidate struct {
	Route      domain.CanonicalRoute
	Similarity float64
}

// RouteMatcher fingerprints workout geometry and matches it against the
// profile's canonical routes.
type RouteMatcher interface {
	// Fingerprint returns nil when the workout has no usable geometry.
	Fingerprint(w domain.Workout) *RouteFingerprint
	// Match returns nil when no route scores above the similarity cutoff.
	Match(fp RouteFingerprint, routes []domain.CanonicalRoute) *RouteCandidate
	// NewRoute builds a canonical route identity for an unmatched workout.
	NewRoute(w domain.Workout, fp RouteFingerprint) domain.CanonicalRoute
}

const routeMatchCutoff = 0.80

// GeometryMatcher is the default RouteMatcher. With only aggregate geometry
// available (no GPS trace), similarity blends distance closeness, elevation
// closeness, and route-name equality.
type GeometryMatcher struct{}

// Fingerprint implements RouteMatcher.
func (GeometryMatcher) Fingerprint(w domain.Workout) *RouteFingerprint {
	if w.DistanceMiles <= 0 {
		return nil
	}
	if strings.EqualFold(w.Source, "manual") && w.ElevationGainFt == 0 && w.RouteName == "" {
		// Treadmill shape: no geometry to fingerprint.
		return nil
	}
	return &RouteFingerprint{
		DistanceMiles:   w.DistanceMiles,
		ElevationGainFt: w.ElevationGainFt,
		NameKey:         normalizeRouteName(w.RouteName),
	}
}

// Match implements RouteMatcher.
func (GeometryMatcher) Match(fp RouteFingerprint, routes []domain.CanonicalRoute) *RouteCandidate {
	var best *RouteCandidate
	for _, route := range routes {
		score := similarity(fp, route)
		if score < routeMatchCutoff {
			continue
		}
		if best == nil || score > best.Similarity {
			best = &RouteCandidate{Route: route, Similarity: score}
		}
	}
	return best
}

// NewRoute implements RouteMatcher.
func (GeometryMatcher) NewRoute(w domain.Workout, fp RouteFingerprint) domain.CanonicalRoute {
	return domain.CanonicalRoute{
		ID:              uuid.NewString(),
		ProfileID:       w.ProfileID,
		Name:            w.RouteName,
		DistanceMiles:   fp.DistanceMiles,
		ElevationGainFt: fp.ElevationGainFt,
		RunCount:        1,
	}
}

// similarity weights distance closeness 0.5, elevation closeness 0.3, and
// name equality 0.2. Two unnamed runs over identical geometry score exactly
// at the cutoff.
func similarity(fp RouteFingerprint, route domain.CanonicalRoute) float64 {
	distScore := closeness(fp.DistanceMiles, route.DistanceMiles, 0.10)
	elevScore := elevationCloseness(fp.ElevationGainFt, route.ElevationGainFt)

	nameScore := 0.0
	if fp.NameKey != "" && fp.NameKey == normalizeRouteName(route.Name) {
		nameScore = 1.0
	}

	return 0.5*distScore + 0.3*elevScore + 0.2*nameScore
}

// closeness is 1 at equality and falls linearly to 0 at the given relative
// difference.
func closeness(a, b, span float64) float64 {
	max := math.Max(a, b)
	if max == 0 {
		return 1
	}
	diff := math.Abs(a-b) / max
	if diff >= span {
		return 0
	}
	return 1 - diff/span
}

// elevationCloseness tolerates a 50 ft floor so flat routes with small
// sensor differences still match.
func elevationCloseness(a, b float64) float64 {
	max := math.Max(math.Max(a, b), 50)
	diff := math.Abs(a-b) / max
	if diff >= 0.25 {
		return 0
	}
	return 1 - diff/0.25
}

func normalizeRouteName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
