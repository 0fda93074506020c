package consumer

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jason-traum/stride-os-sub002/internal/domain"
	"github.com/jason-traum/stride-os-sub002/internal/events"
	"github.com/jason-traum/stride-os-sub002/internal/persistence/memory"
	"github.com/jason-traum/stride-os-sub002/internal/pipeline"
)

func newAnalysisHandler(t *testing.T, store *memory.Store) *AnalysisHandler {
	t.Helper()
	processor := pipeline.NewProcessor(store)
	return NewAnalysisHandler(processor, log.New(testWriter{t}, "", 0))
}

func TestAnalysisHandlerProcessesLoggedWorkout(t *testing.T) {
	store := memory.NewStore()
	store.PutWorkout(domain.Workout{
		ID:              "w1",
		ProfileID:       "p1",
		Date:            time.Date(2026, 5, 3, 8, 0, 0, 0, time.UTC),
		ActivityType:    "run",
		DistanceMiles:   5,
		DurationMinutes: 45,
		AvgPaceSeconds:  540,
		Source:          "device",
	}, nil)

	handler := newAnalysisHandler(t, store)
	err := handler.Handle(context.Background(), Message{
		EventType: events.TopicWorkoutLogged,
		ProfileID: "p1",
		Payload:   []byte(`{"workout_id":"w1","profile_id":"p1"}`),
	})
	require.NoError(t, err)

	w, ok := store.Workout("w1")
	require.True(t, ok)
	require.NotEmpty(t, w.AutoCategory)
}

func TestAnalysisHandlerSkipsForeignEventTypes(t *testing.T) {
	handler := newAnalysisHandler(t, memory.NewStore())

	err := handler.Handle(context.Background(), Message{
		EventType: events.TopicWorkoutAnalyzed,
		Payload:   []byte(`{"workout_id":"w1"}`),
	})
	require.NoError(t, err)
}

func TestAnalysisHandlerRejectsMalformedPayload(t *testing.T) {
	handler := newAnalysisHandler(t, memory.NewStore())

	err := handler.Handle(context.Background(), Message{
		EventType: events.TopicWorkoutLogged,
		Payload:   []byte(`{"workout_id":1}`),
	})
	require.Error(t, err)
}

func TestAnalysisHandlerRejectsMissingWorkoutID(t *testing.T) {
	handler := newAnalysisHandler(t, memory.NewStore())

	err := handler.Handle(context.Background(), Message{
		EventType: events.TopicWorkoutLogged,
		Payload:   []byte(`{"profile_id":"p1"}`),
	})
	require.Error(t, err)
}

func TestAnalysisHandlerDropsDeletedWorkouts(t *testing.T) {
	handler := newAnalysisHandler(t, memory.NewStore())

	err := handler.Handle(context.Background(), Message{
		EventType: events.TopicWorkoutLogged,
		Payload:   []byte(`{"workout_id":"gone","profile_id":"p1"}`),
	})
	require.NoError(t, err)
}
