package validation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/tray-validation-backend/internal/domain/recognition"
)

// WorkItem is the session copy of an initial item. InitialItemID is nil for
// items created during the session.
type WorkItem struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	WorkLogID         uuid.UUID            `gorm:"type:uuid;not null;index" json:"work_log_id"`
	RecognitionID     uuid.UUID            `gorm:"type:uuid;not null;index" json:"recognition_id"`
	InitialItemID     *uuid.UUID           `gorm:"type:uuid;column:initial_item_id;index" json:"initial_item_id,omitempty"`
	Type              recognition.ItemType `gorm:"column:type;not null" json:"type"`
	Quantity          int                  `gorm:"not null;default:1" json:"quantity"`
	BottleOrientation *string              `gorm:"column:bottle_orientation" json:"bottle_orientation,omitempty"`
	RecipeLineID      *uuid.UUID           `gorm:"type:uuid;column:recipe_line_id" json:"recipe_line_id,omitempty"`
	Metadata          datatypes.JSON       `gorm:"column:metadata" json:"metadata,omitempty"`
	IsDeleted         bool                 `gorm:"column:is_deleted;not null;default:false;index" json:"is_deleted"`
	CreatedAt         time.Time            `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"not null" json:"updated_at"`
}

func (WorkItem) TableName() string { return "work_items" }

func (i *WorkItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// WorkAnnotation is the session copy of an initial annotation.
type WorkAnnotation struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	WorkLogID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"work_log_id"`
	WorkItemID          *uuid.UUID       `gorm:"type:uuid;column:work_item_id;index" json:"work_item_id,omitempty"`
	InitialAnnotationID *uuid.UUID       `gorm:"type:uuid;column:initial_annotation_id;index" json:"initial_annotation_id,omitempty"`
	ImageID             uuid.UUID        `gorm:"type:uuid;not null;index" json:"image_id"`
	BBox                recognition.BBox `gorm:"embedded" json:"bbox"`
	IsOccluded          bool             `gorm:"column:is_occluded" json:"is_occluded"`
	OcclusionMetadata   datatypes.JSON   `gorm:"column:occlusion_metadata" json:"occlusion_metadata,omitempty"`
	IsDeleted           bool             `gorm:"column:is_deleted;not null;default:false;index" json:"is_deleted"`
	CreatedAt           time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"not null" json:"updated_at"`
}

func (WorkAnnotation) TableName() string { return "work_annotations" }

func (a *WorkAnnotation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

const (
	ChangeEntityItem       = "item"
	ChangeEntityAnnotation = "annotation"
	ChangeEntityWorkingSet = "working_set"

	ChangeOpCreate = "create"
	ChangeOpUpdate = "update"
	ChangeOpDelete = "delete"
	ChangeOpReset  = "reset"
)

// WorkChange is one draft mutation of the working set. StepOrder stays nil
// until the change is folded into a step snapshot.
type WorkChange struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkLogID uuid.UUID      `gorm:"type:uuid;not null;index" json:"work_log_id"`
	Entity    string         `gorm:"column:entity;not null" json:"entity"`
	EntityID  uuid.UUID      `gorm:"type:uuid;column:entity_id" json:"entity_id"`
	Op        string         `gorm:"column:op;not null" json:"op"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	ActorID   uuid.UUID      `gorm:"type:uuid;column:actor_id" json:"actor_id"`
	StepOrder *int           `gorm:"column:step_order;index" json:"step_order,omitempty"`
	Seq       int64          `gorm:"column:seq;not null;index" json:"seq"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (WorkChange) TableName() string { return "work_changes" }

func (c *WorkChange) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
