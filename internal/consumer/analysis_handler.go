package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
	"github.com/jason-traum/stride-os-sub002/internal/events"
	"github.com/jason-traum/stride-os-sub002/internal/pipeline"
)

// AnalysisHandler runs the analysis pipeline for each workout.logged event.
type AnalysisHandler struct {
	processor *pipeline.Processor
	logger    *log.Logger
}

// NewAnalysisHandler constructs an AnalysisHandler.
func NewAnalysisHandler(processor *pipeline.Processor, logger *log.Logger) *AnalysisHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[analysis-handler] ", log.LstdFlags)
	}
	return &AnalysisHandler{processor: processor, logger: logger}
}

// Handle decodes a workout.logged payload and processes the workout. A
// missing workout is treated as handled: the row may have been deleted
// between event emission and consumption, and retrying cannot fix that.
func (h *AnalysisHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TopicWorkoutLogged {
		h.logger.Printf("skipping event_type=%s", msg.EventType)
		return nil
	}

	var logged events.WorkoutLogged
	if err := json.Unmarshal(msg.Payload, &logged); err != nil {
		return fmt.Errorf("decode workout.logged: %w", err)
	}
	if logged.WorkoutID == "" {
		return errors.New("workout.logged without workout_id")
	}

	result, err := h.processor.ProcessWorkout(ctx, logged.WorkoutID, pipeline.Options{})
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			h.logger.Printf("workout %s no longer exists, dropping event", logged.WorkoutID)
			return nil
		}
		return err
	}
	if len(result.Errors) > 0 {
		h.logger.Printf("workout %s analyzed with %d stage errors", logged.WorkoutID, len(result.Errors))
	}
	return nil
}
