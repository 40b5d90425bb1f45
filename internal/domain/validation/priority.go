package validation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PriorityConfig positions one validation type within a session. The active
// rows of the current version, ordered by Position, define the step list of
// new claims.
type PriorityConfig struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ValidationType ValidationType `gorm:"column:validation_type;not null;index" json:"validation_type"`
	Position       int            `gorm:"column:position;not null" json:"position"`
	Version        int            `gorm:"column:version;not null;index" json:"version"`
	IsActive       bool           `gorm:"column:is_active;not null;index" json:"is_active"`
	ValidFrom      *time.Time     `gorm:"column:valid_from" json:"valid_from,omitempty"`
	ValidUntil     *time.Time     `gorm:"column:valid_until" json:"valid_until,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (PriorityConfig) TableName() string { return "priority_configs" }

func (p *PriorityConfig) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ActiveAt reports whether the row applies at t.
func (p PriorityConfig) ActiveAt(t time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.ValidFrom != nil && t.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && !t.Before(*p.ValidUntil) {
		return false
	}
	return true
}
