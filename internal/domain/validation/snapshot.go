package validation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrSnapshotImmutable = errors.New("step snapshots are immutable")

// StepSnapshot captures the working set when a step completes. Re-completing
// a step after a backward jump writes a new row with a higher Revision.
type StepSnapshot struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkLogID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"work_log_id"`
	RecognitionID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"recognition_id"`
	StepOrder          int            `gorm:"column:step_order;not null" json:"step_order"`
	ValidationType     ValidationType `gorm:"column:validation_type;not null" json:"validation_type"`
	Revision           int            `gorm:"column:revision;not null" json:"revision"`
	Items              datatypes.JSON `gorm:"column:items;not null" json:"items"`
	AnnotationsByImage datatypes.JSON `gorm:"column:annotations_by_image;not null" json:"annotations_by_image"`
	ChangeLog          datatypes.JSON `gorm:"column:change_log;not null" json:"change_log"`
	CreatedBy          uuid.UUID      `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
}

func (StepSnapshot) TableName() string { return "step_snapshots" }

func (s *StepSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *StepSnapshot) BeforeUpdate(tx *gorm.DB) error { return ErrSnapshotImmutable }

func (s *StepSnapshot) BeforeDelete(tx *gorm.DB) error { return ErrSnapshotImmutable }

// SnapshotItem and SnapshotAnnotation are the serialized shapes stored in a
// snapshot's JSON columns.
type SnapshotItem struct {
	ID                uuid.UUID      `json:"id"`
	InitialItemID     *uuid.UUID     `json:"initial_item_id,omitempty"`
	Type              string         `json:"type"`
	Quantity          int            `json:"quantity"`
	BottleOrientation *string        `json:"bottle_orientation,omitempty"`
	RecipeLineID      *uuid.UUID     `json:"recipe_line_id,omitempty"`
	Metadata          datatypes.JSON `json:"metadata,omitempty"`
}

type SnapshotAnnotation struct {
	ID                  uuid.UUID      `json:"id"`
	WorkItemID          *uuid.UUID     `json:"work_item_id,omitempty"`
	InitialAnnotationID *uuid.UUID     `json:"initial_annotation_id,omitempty"`
	X1                  float64        `json:"x1"`
	Y1                  float64        `json:"y1"`
	X2                  float64        `json:"x2"`
	Y2                  float64        `json:"y2"`
	IsOccluded          bool           `json:"is_occluded"`
	OcclusionMetadata   datatypes.JSON `json:"occlusion_metadata,omitempty"`
}

type SnapshotChange struct {
	Entity    string         `json:"entity"`
	EntityID  uuid.UUID      `json:"entity_id"`
	Op        string         `json:"op"`
	Payload   datatypes.JSON `json:"payload,omitempty"`
	ActorID   uuid.UUID      `json:"actor_id"`
	CreatedAt time.Time      `json:"created_at"`
}
