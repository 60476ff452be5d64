package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectStatus is the lifecycle state of a manufacturing project.
type ProjectStatus string

const (
	ProjectDraft     ProjectStatus = "draft"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

// Project is a furniture-manufacturing order: the owning aggregate for
// stages, dependency edges and project items. Deleting a project cascades
// to its stages and edges; deadline history is kept for audit.
type Project struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string         `gorm:"not null;index" json:"name" validate:"required"`
	CustomerName string         `gorm:"type:varchar(255)" json:"customer_name"`
	Status       ProjectStatus  `gorm:"type:varchar(32);index;not null;default:'draft'" json:"status" validate:"required,oneof=draft active completed cancelled"`
	StartDate    *time.Time     `json:"start_date"`
	Settings     datatypes.JSON `json:"settings"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
