// Package api exposes HTTP handlers for the analysis service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jason-traum/stride-os-sub002/internal/auth"
	"github.com/jason-traum/stride-os-sub002/internal/domain"
	"github.com/jason-traum/stride-os-sub002/internal/pipeline"
)

// Handler coordinates HTTP requests with the analysis pipeline.
type Handler struct {
	processor *pipeline.Processor
	runner    *pipeline.BatchRunner
	store     domain.Store
}

// NewHandler builds a Handler.
func NewHandler(processor *pipeline.Processor, runner *pipeline.BatchRunner, store domain.Store) *Handler {
	return &Handler{processor: processor, runner: runner, store: store}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/profiles/", h.profileByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	switch {
	case action == "process" && r.Method == http.MethodPost:
		h.processWorkout(w, r, id)
	case action == "analysis" && r.Method == http.MethodGet:
		h.getAnalysis(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) profileByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/profiles/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing profile id")
		return
	}

	switch {
	case action == "reprocess" && r.Method == http.MethodPost:
		h.reprocessProfile(w, r, id)
	case action == "routes" && r.Method == http.MethodGet:
		h.listRoutes(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) processWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeAnalysisRun) {
		writeError(w, http.StatusForbidden, "forbidden", "scope analysis:run required")
		return
	}

	opts := pipeline.Options{
		SkipRouteMatching: r.URL.Query().Get("skip_routes") == "true",
	}

	result, err := h.processor.ProcessWorkout(r.Context(), id, opts)
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{
		Result: result,
		Status: statusOf(result),
	})
}

func (h *Handler) getAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeAnalysisRead) && !claims.HasScope(auth.ScopeAnalysisRun) {
		writeError(w, http.StatusForbidden, "forbidden", "scope analysis:read required")
		return
	}

	bundle, err := h.store.GetWorkout(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toAnalysisView(bundle.Workout, bundle.Segments))
}

func (h *Handler) reprocessProfile(w http.ResponseWriter, r *http.Request, profileID string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeAnalysisRun) {
		writeError(w, http.StatusForbidden, "forbidden", "scope analysis:run required")
		return
	}

	opts := pipeline.Options{
		// Reprocessing must not double-count route observations.
		SkipRouteMatching: r.URL.Query().Get("update_routes") != "true",
	}

	summary, err := h.runner.ReprocessAll(r.Context(), profileID, opts, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ReprocessResponse{
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Partial:   summary.Partial,
		Failed:    summary.Failed,
	})
}

func (h *Handler) listRoutes(w http.ResponseWriter, r *http.Request, profileID string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeAnalysisRead) && !claims.HasScope(auth.ScopeAnalysisRun) {
		writeError(w, http.StatusForbidden, "forbidden", "scope analysis:read required")
		return
	}

	routes, err := h.store.ListCanonicalRoutes(r.Context(), profileID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 0 && len(routes) > limit {
		routes = routes[:limit]
	}

	items := make([]RouteView, 0, len(routes))
	for _, route := range routes {
		items = append(items, toRouteView(route))
	}
	writeJSON(w, http.StatusOK, ListRoutesResponse{Items: items})
}

func statusOf(result domain.ProcessingResult) string {
	if len(result.Errors) == 0 {
		return "ok"
	}
	return "partial"
}

// ProcessResponse wraps a single analysis run.
type ProcessResponse struct {
	Status string                  `json:"status"`
	Result domain.ProcessingResult `json:"result"`
}

// ReprocessResponse summarizes a profile-wide reprocess.
type ReprocessResponse struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Partial   int `json:"partial"`
	Failed    int `json:"failed"`
}

// AnalysisView exposes the derived fields of an analyzed workout.
type AnalysisView struct {
	WorkoutID        string          `json:"workout_id"`
	ProfileID        string          `json:"profile_id"`
	WorkoutType      string          `json:"workout_type,omitempty"`
	WorkoutTypeSetBy string          `json:"workout_type_set_by,omitempty"`
	AutoCategory     string          `json:"auto_category,omitempty"`
	AutoSummary      string          `json:"auto_summary,omitempty"`
	TRIMP            float64         `json:"trimp,omitempty"`
	QualityRatio     float64         `json:"quality_ratio,omitempty"`
	ExecutionScore   *float64        `json:"execution_score,omitempty"`
	RouteID          string          `json:"route_id,omitempty"`
	DataQuality      json.RawMessage `json:"data_quality,omitempty"`
	ZoneDistribution json.RawMessage `json:"zone_distribution,omitempty"`
	IntervalMetrics  json.RawMessage `json:"interval_metrics,omitempty"`
	Segments         []SegmentView   `json:"segments,omitempty"`
}

// SegmentView exposes per-segment zone results.
type SegmentView struct {
	SegmentID          string  `json:"segment_id"`
	SegmentNumber      int     `json:"segment_number"`
	PaceZone           string  `json:"pace_zone,omitempty"`
	PaceZoneConfidence float64 `json:"pace_zone_confidence,omitempty"`
}

// RouteView exposes a canonical route's accumulated statistics.
type RouteView struct {
	RouteID         string  `json:"route_id"`
	Name            string  `json:"name,omitempty"`
	DistanceMiles   float64 `json:"distance_miles"`
	ElevationGainFt float64 `json:"elevation_gain_ft"`
	RunCount        int     `json:"run_count"`
	BestTimeSeconds float64 `json:"best_time_seconds"`
	AvgTimeSeconds  float64 `json:"avg_time_seconds"`
}

// ListRoutesResponse packages route list results.
type ListRoutesResponse struct {
	Items []RouteView `json:"items"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toAnalysisView(w domain.Workout, segments []domain.PersistedSegment) AnalysisView {
	view := AnalysisView{
		WorkoutID:        w.ID,
		ProfileID:        w.ProfileID,
		WorkoutType:      w.WorkoutType,
		WorkoutTypeSetBy: w.WorkoutTypeSetBy,
		AutoCategory:     w.AutoCategory,
		AutoSummary:      w.AutoSummary,
		TRIMP:            w.TRIMP,
		QualityRatio:     w.QualityRatio,
		ExecutionScore:   w.ExecutionScore,
		RouteID:          w.RouteID,
		DataQuality:      w.DataQualityJSON,
		ZoneDistribution: w.ZoneDistributionJSON,
		IntervalMetrics:  w.IntervalMetricsJSON,
	}
	for _, seg := range segments {
		view.Segments = append(view.Segments, SegmentView{
			SegmentID:          seg.ID,
			SegmentNumber:      seg.SegmentNumber,
			PaceZone:           string(seg.PaceZone),
			PaceZoneConfidence: seg.PaceZoneConfidence,
		})
	}
	return view
}

func toRouteView(route domain.CanonicalRoute) RouteView {
	return RouteView{
		RouteID:         route.ID,
		Name:            route.Name,
		DistanceMiles:   route.DistanceMiles,
		ElevationGainFt: route.ElevationGainFt,
		RunCount:        route.RunCount,
		BestTimeSeconds: route.BestTimeSeconds,
		AvgTimeSeconds:  route.AvgTimeSeconds,
	}
}
