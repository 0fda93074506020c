// Package pipeline sequences the analysis stages against one workout and
// merges their outputs back onto the workout record. The run is a saga, not
// a transaction: each stage is wrapped independently so a single failure is
// recorded and the remaining stages still run and persist.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jason-traum/stride-os-sub002/internal/analyzers"
	"github.com/jason-traum/stride-os-sub002/internal/classify"
	"github.com/jason-traum/stride-os-sub002/internal/domain"
	"github.com/jason-traum/stride-os-sub002/internal/load"
	"github.com/jason-traum/stride-os-sub002/internal/observability"
	"github.com/jason-traum/stride-os-sub002/internal/quality"
)

// Options tunes a single pipeline run.
type Options struct {
	// SkipRouteMatching disables the route stage, e.g. for bulk
	// reprocessing runs that should not touch route statistics.
	SkipRouteMatching bool
}

// Notifier is told about completed analyses. Implementations typically
// enqueue a workout.analyzed event for downstream consumers.
type Notifier interface {
	WorkoutAnalyzed(ctx context.Context, workout domain.Workout, result domain.ProcessingResult) error
}

// Option configures optional Processor behaviour.
type Option func(*Processor)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// WithNotifier attaches a post-persistence notifier.
func WithNotifier(n Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

// Processor runs the full analysis pipeline for one workout at a time.
type Processor struct {
	store      domain.Store
	zones      analyzers.ZoneClassifier
	stress     analyzers.IntervalStress
	patterns   analyzers.PatternDetector
	routes     analyzers.RouteMatcher
	execution  analyzers.ExecutionScorer
	routeLocks *keyedMutex
	notifier   Notifier
	logger     *log.Logger
}

// NewProcessor wires the default analyzer implementations.
func NewProcessor(store domain.Store, opts ...Option) *Processor {
	return newProcessor(store, analyzers.PaceZoneClassifier{}, analyzers.ZoneWeightedStress{},
		analyzers.RepClusterDetector{}, analyzers.GeometryMatcher{}, analyzers.WeightedExecutionScorer{}, opts...)
}

// NewProcessorWith accepts explicit analyzer strategies, primarily for tests
// and experiments.
func NewProcessorWith(store domain.Store, zones analyzers.ZoneClassifier, stress analyzers.IntervalStress,
	patterns analyzers.PatternDetector, routes analyzers.RouteMatcher, execution analyzers.ExecutionScorer, opts ...Option) *Processor {
	return newProcessor(store, zones, stress, patterns, routes, execution, opts...)
}

func newProcessor(store domain.Store, zones analyzers.ZoneClassifier, stress analyzers.IntervalStress,
	patterns analyzers.PatternDetector, routes analyzers.RouteMatcher, execution analyzers.ExecutionScorer, opts ...Option) *Processor {
	p := &Processor{
		store:      store,
		zones:      zones,
		stress:     stress,
		patterns:   patterns,
		routes:     routes,
		execution:  execution,
		routeLocks: newKeyedMutex(),
		logger:     log.New(log.Writer(), "[pipeline] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessWorkout runs every analysis stage against one workout and persists
// the merged projection. The only fatal condition is an unknown workout ID;
// every other failure lands in the result's Errors and leaves the remaining
// stages untouched.
func (p *Processor) ProcessWorkout(ctx context.Context, workoutID string, opts Options) (domain.ProcessingResult, error) {
	result := domain.ProcessingResult{WorkoutID: workoutID}

	// Stage 1: the single read of the run.
	bundle, err := p.store.GetWorkout(ctx, workoutID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("load: %v", err))
		observability.RecordWorkoutProcessed("failed")
		return result, err
	}
	workout := bundle.Workout

	var ref *domain.AthleteReference
	p.runStage("reference", &result, func() error {
		loaded, refErr := p.store.GetAthleteReference(ctx, workout.ProfileID)
		if refErr != nil {
			return refErr
		}
		ref = loaded
		return nil
	})

	segments := append([]domain.PersistedSegment(nil), bundle.Segments...)
	domain.SortSegments(segments)
	laps := domain.Laps(segments)
	if len(laps) == 0 {
		if synthetic, ok := domain.SyntheticLap(workout); ok {
			laps = []domain.Lap{synthetic}
		}
	}

	// Stage 2: data quality. Pure and total.
	p.runStage("data_quality", &result, func() error {
		flags := quality.Check(workout, laps)
		result.DataQuality = &flags
		return nil
	})

	// Stage 3: training load.
	p.runStage("training_load", &result, func() error {
		metrics := load.Compute(workout, ref, laps)
		result.TrainingLoad = &metrics
		return nil
	})

	// Stage 4: classification.
	p.runStage("classification", &result, func() error {
		classification := classify.Classify(workout, ref, laps)
		result.Classification = &classification
		return nil
	})

	// Stage 5: per-lap zones, written back onto persisted segments only.
	p.runStage("zone_classification", &result, func() error {
		hint := workout.WorkoutType
		if hint == "" && result.Classification != nil {
			hint = string(result.Classification.Category)
		}
		analysis, zoneErr := p.zones.Classify(laps, ref, hint)
		if zoneErr != nil {
			return zoneErr
		}
		result.ZoneAnalysis = analysis
		laps = enrichLaps(laps, analysis)
		return p.writeBackZones(ctx, segments, analysis)
	})

	// Stage 6: zone-adjusted load from the enriched laps.
	p.runStage("interval_stress", &result, func() error {
		if len(segments) < 3 {
			return nil
		}
		baseTRIMP := 0.0
		if result.TrainingLoad != nil {
			baseTRIMP = result.TrainingLoad.TRIMP
		}
		metrics, stressErr := p.stress.Compute(workout, laps, ref, baseTRIMP)
		if stressErr != nil {
			return stressErr
		}
		result.IntervalMetrics = metrics
		return nil
	})

	// Stage 7: pattern detection merges into the same blob as stage 6.
	p.runStage("interval_pattern", &result, func() error {
		if len(segments) < 4 || result.IntervalMetrics == nil {
			return nil
		}
		pattern, patternErr := p.patterns.Detect(laps)
		if patternErr != nil {
			return patternErr
		}
		result.IntervalMetrics.Pattern = pattern
		return nil
	})

	// Stage 8: route matching.
	if !opts.SkipRouteMatching {
		p.runStage("route_matching", &result, func() error {
			return p.matchRoute(ctx, workout, &result)
		})
	}

	// Stage 9: plan execution scoring.
	p.runStage("execution_score", &result, func() error {
		if bundle.Planned == nil {
			return nil
		}
		score, execErr := p.execution.Score(workout, *bundle.Planned, laps, ref)
		if execErr != nil {
			return execErr
		}
		result.ExecutionScore = score
		return nil
	})

	// Stage 10: merge and persist.
	p.runStage("persist", &result, func() error {
		update := buildUpdate(workout, result)
		if update.IsZero() {
			return nil
		}
		if persistErr := p.store.UpdateWorkout(ctx, workout.ID, update); persistErr != nil {
			return persistErr
		}
		observability.RecordAnalysisWatermark(time.Now().UTC())
		if p.notifier != nil {
			if notifyErr := p.notifier.WorkoutAnalyzed(ctx, workout, result); notifyErr != nil {
				p.logger.Printf("notify failed (workout=%s): %v", workout.ID, notifyErr)
			}
		}
		return nil
	})

	if len(result.Errors) == 0 {
		observability.RecordWorkoutProcessed("ok")
	} else {
		observability.RecordWorkoutProcessed("partial")
	}
	return result, nil
}

func (p *Processor) runStage(stage string, result *domain.ProcessingResult, fn func() error) {
	err := fn()
	if err == nil {
		return
	}
	stageErr := &domain.StageError{Stage: stage, Err: err}
	result.Errors = append(result.Errors, stageErr.Error())
	observability.RecordStageFailure(stage)
	p.logger.Printf("stage failed (workout=%s): %v", result.WorkoutID, stageErr)
}

// writeBackZones persists resolved zones onto real segments. Synthetic laps
// never appear here: the segments slice only ever holds persisted rows.
func (p *Processor) writeBackZones(ctx context.Context, segments []domain.PersistedSegment, analysis *domain.ZoneAnalysis) error {
	byNumber := make(map[int]domain.LapZone, len(analysis.PerLap))
	for _, lz := range analysis.PerLap {
		byNumber[lz.SegmentNumber] = lz
	}
	for _, seg := range segments {
		lz, ok := byNumber[seg.SegmentNumber]
		if !ok || lz.Zone == domain.ZoneUnknown {
			continue
		}
		if err := p.store.UpdateSegmentZone(ctx, seg.ID, lz.Zone, lz.Confidence); err != nil {
			return fmt.Errorf("segment %s: %w", seg.ID, err)
		}
	}
	return nil
}

// enrichLaps copies resolved zones onto the in-memory laps so downstream
// stages consume zone labels rather than raw paces.
func enrichLaps(laps []domain.Lap, analysis *domain.ZoneAnalysis) []domain.Lap {
	byNumber := make(map[int]domain.LapZone, len(analysis.PerLap))
	for _, lz := range analysis.PerLap {
		byNumber[lz.SegmentNumber] = lz
	}
	enriched := append([]domain.Lap(nil), laps...)
	for i := range enriched {
		if lz, ok := byNumber[enriched[i].SegmentNumber]; ok {
			enriched[i].PaceZone = lz.Zone
			enriched[i].PaceZoneConfidence = lz.Confidence
		}
	}
	return enriched
}

// matchRoute fingerprints the workout and either folds it into a matched
// canonical route or creates a new one when the user named the route.
// Updates for a given route identity are serialized through a keyed lock so
// concurrent batch workers cannot double-create or lose a stats update.
func (p *Processor) matchRoute(ctx context.Context, workout domain.Workout, result *domain.ProcessingResult) error {
	fp := p.routes.Fingerprint(workout)
	if fp == nil {
		return nil
	}

	lockKey := workout.ProfileID + "/" + fp.NameKey
	unlock := p.routeLocks.lock(lockKey)
	defer unlock()

	routes, err := p.store.ListCanonicalRoutes(ctx, workout.ProfileID)
	if err != nil {
		return err
	}

	timeSeconds := workout.DurationMinutes * 60
	if candidate := p.routes.Match(*fp, routes); candidate != nil {
		observation := candidate.Route
		observation.RunCount = 1
		observation.BestTimeSeconds = timeSeconds
		observation.AvgTimeSeconds = timeSeconds
		observation.LastRunAt = workout.Date
		if err := p.store.UpsertCanonicalRoute(ctx, observation); err != nil {
			return err
		}
		result.RouteMatch = &domain.RouteResult{
			RouteID:    candidate.Route.ID,
			RouteName:  candidate.Route.Name,
			Similarity: candidate.Similarity,
			RunCount:   candidate.Route.RunCount + 1,
		}
		return nil
	}

	// No match: only a user-supplied route name creates a new identity.
	if workout.RouteName == "" {
		return nil
	}
	route := p.routes.NewRoute(workout, *fp)
	route.BestTimeSeconds = timeSeconds
	route.AvgTimeSeconds = timeSeconds
	route.LastRunAt = workout.Date
	if err := p.store.UpsertCanonicalRoute(ctx, route); err != nil {
		return err
	}
	result.RouteMatch = &domain.RouteResult{
		RouteID:    route.ID,
		RouteName:  route.Name,
		Similarity: 1,
		Created:    true,
		RunCount:   1,
	}
	return nil
}

// buildUpdate merges every non-nil stage output into a single write. The
// zone-derived workout type never clobbers a category the user set.
func buildUpdate(workout domain.Workout, result domain.ProcessingResult) domain.WorkoutUpdate {
	var update domain.WorkoutUpdate

	if result.Classification != nil {
		category := string(result.Classification.Category)
		summary := result.Classification.Summary
		if workout.AutoCategory != category {
			update.AutoCategory = &category
		}
		if workout.AutoSummary != summary {
			update.AutoSummary = &summary
		}
	}
	if result.TrainingLoad != nil {
		if workout.TRIMP != result.TrainingLoad.TRIMP {
			update.TRIMP = &result.TrainingLoad.TRIMP
		}
		if workout.QualityRatio != result.TrainingLoad.QualityRatio {
			update.QualityRatio = &result.TrainingLoad.QualityRatio
		}
	}
	if result.DataQuality != nil {
		if blob, err := json.Marshal(result.DataQuality); err == nil && !bytes.Equal(blob, workout.DataQualityJSON) {
			update.DataQualityJSON = blob
		}
	}
	if result.ZoneAnalysis != nil {
		if blob, err := json.Marshal(result.ZoneAnalysis.DistributionSeconds); err == nil && !bytes.Equal(blob, workout.ZoneDistributionJSON) {
			update.ZoneDistributionJSON = blob
		}
	}
	if result.IntervalMetrics != nil {
		if blob, err := json.Marshal(result.IntervalMetrics); err == nil && !bytes.Equal(blob, workout.IntervalMetricsJSON) {
			update.IntervalMetricsJSON = blob
		}
	}
	if result.ExecutionScore != nil {
		if workout.ExecutionScore == nil || *workout.ExecutionScore != result.ExecutionScore.Overall {
			update.ExecutionScore = &result.ExecutionScore.Overall
		}
	}
	if result.RouteMatch != nil && workout.RouteID != result.RouteMatch.RouteID {
		routeID := result.RouteMatch.RouteID
		update.RouteID = &routeID
	}

	if result.ZoneAnalysis != nil && result.ZoneAnalysis.SuggestedWorkoutType != "" &&
		workout.WorkoutTypeSetBy != domain.TypeSetByUser {
		suggested := string(result.ZoneAnalysis.SuggestedWorkoutType)
		if workout.WorkoutType != suggested {
			setBy := domain.TypeSetByAuto
			update.WorkoutType = &suggested
			update.WorkoutTypeSetBy = &setBy
		}
	}

	return update
}
