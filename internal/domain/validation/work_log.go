package validation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorkLog is one claim of a recognition by an annotator. At most one row per
// recognition may be in_progress; the migration enforces this with a partial
// unique index.
type WorkLog struct {
	ID               uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	RecognitionID    uuid.UUID                           `gorm:"type:uuid;not null;index" json:"recognition_id"`
	AssignedTo       uuid.UUID                           `gorm:"type:uuid;not null;index" json:"assigned_to"`
	Status           WorkLogStatus                       `gorm:"column:status;not null;index" json:"status"`
	ValidationSteps  datatypes.JSONSlice[ValidationStep] `gorm:"column:validation_steps;not null" json:"validation_steps"`
	CurrentStepIndex int                                 `gorm:"column:current_step_index;not null;default:0" json:"current_step_index"`
	ValidationMode   ValidationMode                      `gorm:"column:validation_mode" json:"validation_mode,omitempty"`
	StartedAt        time.Time                           `gorm:"column:started_at;not null" json:"started_at"`
	HeartbeatAt      time.Time                           `gorm:"column:heartbeat_at;not null;index" json:"heartbeat_at"`
	CompletedAt      *time.Time                          `gorm:"column:completed_at;index" json:"completed_at,omitempty"`
	CompletedBy      *uuid.UUID                          `gorm:"type:uuid;column:completed_by" json:"completed_by,omitempty"`
	AbandonReason    string                              `gorm:"column:abandon_reason" json:"abandon_reason,omitempty"`
	CreatedAt        time.Time                           `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time                           `gorm:"not null" json:"updated_at"`
}

func (WorkLog) TableName() string { return "work_logs" }

func (w *WorkLog) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Steps returns a copy of the step list that callers may mutate.
func (w *WorkLog) Steps() []ValidationStep {
	out := make([]ValidationStep, len(w.ValidationSteps))
	copy(out, w.ValidationSteps)
	return out
}

// CurrentStep returns the step at CurrentStepIndex, or nil if out of range.
func (w *WorkLog) CurrentStep() *ValidationStep {
	if w == nil || w.CurrentStepIndex < 0 || w.CurrentStepIndex >= len(w.ValidationSteps) {
		return nil
	}
	s := w.ValidationSteps[w.CurrentStepIndex]
	return &s
}

// IsStale reports whether an in-progress claim has gone quiet for longer than
// window as of now.
func (w *WorkLog) IsStale(now time.Time, window time.Duration) bool {
	return w.Status == WorkLogInProgress && window > 0 && w.HeartbeatAt.Before(now.Add(-window))
}
