package main

import (
	"gorm.io/gorm"

	"github.com/woodline/engine/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.ProjectItem{},
		&models.Stage{},
		&models.StageDependency{},
		&models.StageDeadlineHistory{},
		&models.StageTemplate{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addStageProjectStatusIndex,
		addHistoryStageCreatedIndex,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}
	return nil
}

// addStageProjectStatusIndex speeds up the start-guard prerequisite lookups
func addStageProjectStatusIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_stages_project_status
		ON stages(project_id, status)
		WHERE deleted_at IS NULL
	`).Error
}

// addHistoryStageCreatedIndex keeps ledger reads in creation order cheap
func addHistoryStageCreatedIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_stage_deadline_histories_stage_created
		ON stage_deadline_histories(stage_id, created_at)
	`).Error
}
