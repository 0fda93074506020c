package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
	"github.com/jason-traum/stride-os-sub002/internal/events"
)

// Notifier enqueues workout.analyzed events into the outbox table. The
// dispatcher delivers them; producers never touch Kafka inline.
type Notifier struct {
	pool *pgxpool.Pool
}

// NewNotifier constructs a Notifier.
func NewNotifier(pool *pgxpool.Pool) *Notifier {
	return &Notifier{pool: pool}
}

// WorkoutAnalyzed records an analysis-complete event for delivery.
func (n *Notifier) WorkoutAnalyzed(ctx context.Context, workout domain.Workout, result domain.ProcessingResult) error {
	status := "ok"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	category := ""
	if result.Classification != nil {
		category = string(result.Classification.Category)
	}

	payload, err := json.Marshal(events.WorkoutAnalyzed{
		WorkoutID:  workout.ID,
		ProfileID:  workout.ProfileID,
		Status:     status,
		Category:   category,
		AnalyzedAt: time.Now().UTC(),
		Version:    "1",
	})
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (profile_id, event_type, topic, partition_key, payload)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = n.pool.Exec(ctx, stmt, workout.ProfileID, events.TypeWorkoutAnalyzed,
		events.TopicWorkoutAnalyzed, workout.ProfileID, payload)
	return err
}
