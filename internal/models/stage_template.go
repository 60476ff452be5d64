package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StageTemplate is a reusable stage plan (e.g. "kitchen", "wardrobe").
// Stages holds a JSON array of TemplateStageSpec; applying the template to a
// project materializes stages and dependency edges from it.
type StageTemplate struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"uniqueIndex;not null" json:"name" validate:"required"`
	Stages    datatypes.JSON `json:"stages" validate:"required"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *StageTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TemplateStageSpec is the JSON shape of one stage inside a template.
// DependsOn references prerequisite stages by their SortOrder within the
// same template.
type TemplateStageSpec struct {
	Name         string `json:"name"`
	SortOrder    int    `json:"sort_order"`
	DurationDays *int   `json:"duration_days,omitempty"`
	DependsOn    []int  `json:"depends_on,omitempty"`
}
