// Package events defines the message payloads exchanged over Kafka.
package events

import "time"

// Topics the analysis service consumes and produces.
const (
	TopicWorkoutLogged   = "workout.logged"
	TopicWorkoutAnalyzed = "workout.analyzed"
)

// Event type discriminators stored in the outbox table.
const (
	TypeWorkoutAnalyzed = "workout.analyzed"
)

// WorkoutLogged is emitted by the logging service whenever a workout is
// created or its raw fields change. Receipt triggers a full analysis run.
type WorkoutLogged struct {
	WorkoutID    string    `json:"workout_id"`
	ProfileID    string    `json:"profile_id"`
	ActivityType string    `json:"activity_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	Source       string    `json:"source"`
	Version      string    `json:"version"`
}

// WorkoutAnalyzed is published after the pipeline has written its derived
// fields for a workout. Downstream consumers (coaching, dashboards) treat it
// as an invalidation signal and re-read the workout row.
type WorkoutAnalyzed struct {
	WorkoutID  string    `json:"workout_id"`
	ProfileID  string    `json:"profile_id"`
	Status     string    `json:"status"` // ok, partial
	Category   string    `json:"category,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	Version    string    `json:"version"`
}
