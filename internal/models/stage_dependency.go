package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StageDependency is a directed edge: StageID may not start until
// DependsOnStageID is completed. Both stages belong to the same project
// (enforced by the service layer, not by storage). The edge set is required
// to form a DAG, but storage does not check for cycles; every graph-walking
// consumer must defend against them.
type StageDependency struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID        uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id" validate:"required"`
	StageID          uuid.UUID `gorm:"type:uuid;not null;index:idx_stage_dep_pair,unique" json:"stage_id" validate:"required"`
	DependsOnStageID uuid.UUID `gorm:"type:uuid;not null;index:idx_stage_dep_pair,unique;index" json:"depends_on_stage_id" validate:"required"`
	CreatedAt        time.Time `json:"created_at"`
}

func (d *StageDependency) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
