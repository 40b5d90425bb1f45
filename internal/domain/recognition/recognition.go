package recognition

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ItemType string

const (
	ItemFood   ItemType = "FOOD"
	ItemPlate  ItemType = "PLATE"
	ItemBuzzer ItemType = "BUZZER"
	ItemBottle ItemType = "BOTTLE"
	ItemOther  ItemType = "OTHER"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemFood, ItemPlate, ItemBuzzer, ItemBottle, ItemOther:
		return true
	default:
		return false
	}
}

const (
	CameraMain       = 1
	CameraQualifying = 2
)

// Recognition is one tray scan. Rows are written by ingestion and never
// mutated here.
type Recognition struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecognitionKey string    `gorm:"column:recognition_key;not null;uniqueIndex" json:"recognition_key"`
	BatchID        string    `gorm:"column:batch_id;index" json:"batch_id,omitempty"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

func (Recognition) TableName() string { return "recognitions" }

func (r *Recognition) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type Image struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecognitionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_images_recognition_camera" json:"recognition_id"`
	CameraNumber  int       `gorm:"column:camera_number;not null;uniqueIndex:ux_images_recognition_camera" json:"camera_number"`
	StoragePath   string    `gorm:"column:storage_path" json:"storage_path"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
}

func (Image) TableName() string { return "images" }

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// RecipeLine is one receipt line of the recognition; its options are the
// candidate dishes the line could resolve to.
type RecipeLine struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	RecognitionID uuid.UUID          `gorm:"type:uuid;not null;index" json:"recognition_id"`
	LineNumber    int                `gorm:"column:line_number" json:"line_number"`
	Quantity      int                `json:"quantity"`
	Options       []RecipeLineOption `gorm:"foreignKey:RecipeLineID" json:"options,omitempty"`
}

func (RecipeLine) TableName() string { return "recipe_lines" }

func (l *RecipeLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

type RecipeLineOption struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecipeLineID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipe_line_id"`
	ExternalID   string    `gorm:"column:external_id" json:"external_id"`
	Name         string    `json:"name"`
	IsSelected   bool      `gorm:"column:is_selected" json:"is_selected"`
}

func (RecipeLineOption) TableName() string { return "recipe_line_options" }

func (o *RecipeLineOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// InitialItem is an upstream-detected object. Immutable baseline.
type InitialItem struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RecognitionID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"recognition_id"`
	Type              ItemType       `gorm:"column:type;not null" json:"type"`
	Quantity          int            `gorm:"not null;default:1" json:"quantity"`
	BottleOrientation *string        `gorm:"column:bottle_orientation" json:"bottle_orientation,omitempty"`
	RecipeLineID      *uuid.UUID     `gorm:"type:uuid;column:recipe_line_id" json:"recipe_line_id,omitempty"`
	Metadata          datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
}

func (InitialItem) TableName() string { return "initial_items" }

func (i *InitialItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InitialAnnotation is the baseline bounding box of an initial item on one
// image. Immutable baseline.
type InitialAnnotation struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RecognitionID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"recognition_id"`
	InitialItemID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"initial_item_id"`
	ImageID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"image_id"`
	BBox              BBox           `gorm:"embedded" json:"bbox"`
	IsOccluded        bool           `gorm:"column:is_occluded" json:"is_occluded"`
	OcclusionMetadata datatypes.JSON `gorm:"column:occlusion_metadata" json:"occlusion_metadata,omitempty"`
}

func (InitialAnnotation) TableName() string { return "initial_annotations" }

func (a *InitialAnnotation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
