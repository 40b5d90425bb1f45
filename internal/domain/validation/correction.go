package validation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FlagType string

const (
	FlagBBoxError         FlagType = "BBOX_ERROR"
	FlagSourceDataError   FlagType = "SOURCE_DATA_ERROR"
	FlagOtherItemsPresent FlagType = "OTHER_ITEMS_PRESENT"
	FlagPagerPresent      FlagType = "PAGER_PRESENT"
)

var AllFlagTypes = []FlagType{FlagBBoxError, FlagSourceDataError, FlagOtherItemsPresent, FlagPagerPresent}

func ParseFlagType(s string) (FlagType, error) {
	for _, f := range AllFlagTypes {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown flag type %q", s)
}

const (
	QueueValidation  = "validation"
	QueueRemediation = "remediation"

	// StageRemediation is the target stage of flags that pull a recognition
	// out of the annotator pool.
	StageRemediation = "REMEDIATION"
	// StageIngestion is the source stage recorded when no claim is active.
	StageIngestion = "INGESTION"

	CorrectionOpen     = "open"
	CorrectionResolved = "resolved"
)

// CorrectionRecord is one flag event on a recognition.
type CorrectionRecord struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RecognitionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"recognition_id"`
	WorkLogID     *uuid.UUID `gorm:"type:uuid;column:work_log_id" json:"work_log_id,omitempty"`
	FlagType      FlagType   `gorm:"column:flag_type;not null" json:"flag_type"`
	SourceStage   string     `gorm:"column:source_stage;not null" json:"source_stage"`
	TargetStage   string     `gorm:"column:target_stage;not null" json:"target_stage"`
	Reason        string     `gorm:"column:reason" json:"reason,omitempty"`
	Status        string     `gorm:"column:status;not null;index" json:"status"`
	CreatedBy     uuid.UUID  `gorm:"type:uuid;column:created_by" json:"created_by"`
	ResolvedAt    *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

func (CorrectionRecord) TableName() string { return "correction_records" }

func (c *CorrectionRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// RecognitionRoute is the queue/stage pointer the flag router moves. A
// recognition without a row is in the validation queue.
type RecognitionRoute struct {
	RecognitionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"recognition_id"`
	Queue         string    `gorm:"column:queue;not null;index" json:"queue"`
	Stage         string    `gorm:"column:stage" json:"stage"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (RecognitionRoute) TableName() string { return "recognition_routes" }

const (
	TypeStatusResolved = "resolved"
	TypeStatusReopened = "reopened"
)

// RecognitionValidationStatus is the derived per-(recognition, type) flag
// written when a work log completes and cleared by a flag.
type RecognitionValidationStatus struct {
	RecognitionID  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"recognition_id"`
	ValidationType ValidationType `gorm:"column:validation_type;primaryKey" json:"validation_type"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	WorkLogID      *uuid.UUID     `gorm:"type:uuid;column:work_log_id" json:"work_log_id,omitempty"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (RecognitionValidationStatus) TableName() string { return "recognition_validation_statuses" }
