package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StageStatus is the execution state of a project stage.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
)

// Stage is one unit of project work (measurement, production, installation,
// ...). SortOrder is the stage's position in the project's declared sequence
// and is independent of the dependency structure. When PlannedStart and
// PlannedEnd are both set, PlannedEnd = PlannedStart + DurationDays.
type Stage struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID      `gorm:"type:uuid;index;not null" json:"project_id" validate:"required"`
	ProjectItemID *uuid.UUID     `gorm:"type:uuid;index" json:"project_item_id,omitempty"`
	Name          string         `gorm:"not null" json:"name" validate:"required"`
	Status        StageStatus    `gorm:"type:varchar(32);index;not null;default:'pending'" json:"status" validate:"required,oneof=pending in_progress completed"`
	SortOrder     int            `gorm:"not null;index" json:"sort_order"`
	DurationDays  *int           `json:"duration_days,omitempty" validate:"omitempty,gte=0"`
	PlannedStart  *time.Time     `json:"planned_start,omitempty"`
	PlannedEnd    *time.Time     `json:"planned_end,omitempty"`
	ActualStart   *time.Time     `json:"actual_start,omitempty"`
	ActualEnd     *time.Time     `json:"actual_end,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Stage) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Duration returns the stage duration in days, treating unset as zero.
func (s *Stage) Duration() int {
	if s.DurationDays == nil {
		return 0
	}
	return *s.DurationDays
}
