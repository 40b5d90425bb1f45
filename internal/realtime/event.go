package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventWorkClaimed        EventType = "work.claimed"
	EventStepAdvanced       EventType = "work.step_advanced"
	EventStepJumped         EventType = "work.step_jumped"
	EventWorkCompleted      EventType = "work.completed"
	EventWorkAbandoned      EventType = "work.abandoned"
	EventWorkReset          EventType = "work.reset"
	EventRecognitionFlagged EventType = "recognition.flagged"
	EventCorrectionResolved EventType = "correction.resolved"
)

// WorkEvent is published after the transaction that produced it commits.
type WorkEvent struct {
	Type          EventType      `json:"type"`
	WorkLogID     uuid.UUID      `json:"work_log_id,omitempty"`
	RecognitionID uuid.UUID      `json:"recognition_id"`
	ActorID       uuid.UUID      `json:"actor_id"`
	StepIndex     *int           `json:"step_index,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}
