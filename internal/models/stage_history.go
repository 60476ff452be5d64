package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemActorName is recorded on ledger entries produced by the engine
// itself (cascaded shifts, initial scheduling) rather than by a user.
const SystemActorName = "system"

// StageDeadlineHistory is one immutable ledger entry recording a mutation of
// a stage's planned dates. Entries are append-only: there is no update or
// delete path, and entries deliberately carry no soft-delete column so they
// survive stage deletion for audit.
//
// IsAutoShift distinguishes a cascaded consequence from a user-initiated
// edit. ActorID is nil for system entries. Meta carries cascade context such
// as the id of the stage whose edit triggered the shift.
type StageDeadlineHistory struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StageID         uuid.UUID      `gorm:"type:uuid;index;not null" json:"stage_id" validate:"required"`
	ProjectID       uuid.UUID      `gorm:"type:uuid;index;not null" json:"project_id" validate:"required"`
	ActorID         *uuid.UUID     `gorm:"type:uuid" json:"actor_id,omitempty"`
	ActorName       string         `gorm:"type:varchar(255);not null" json:"actor_name"`
	OldPlannedStart *time.Time     `json:"old_planned_start,omitempty"`
	OldPlannedEnd   *time.Time     `json:"old_planned_end,omitempty"`
	NewPlannedStart *time.Time     `json:"new_planned_start,omitempty"`
	NewPlannedEnd   *time.Time     `json:"new_planned_end,omitempty"`
	Reason          string         `gorm:"type:text" json:"reason"`
	IsAutoShift     bool           `gorm:"not null;default:false;index" json:"is_auto_shift"`
	Meta            datatypes.JSON `json:"meta,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (h *StageDeadlineHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
