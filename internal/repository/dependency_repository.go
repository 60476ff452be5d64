package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/woodline/engine/internal/models"
	appErr "github.com/woodline/engine/pkg/errors"
	"gorm.io/gorm"
)

// DependencyRepository stores directed stage dependency edges. No cycle
// check happens at write time; graph consumers defend against cycles
// themselves.
type DependencyRepository interface {
	Create(ctx context.Context, edge *models.StageDependency) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListForStage returns the outgoing edges of a stage: the edges naming
	// its prerequisites.
	ListForStage(ctx context.Context, stageID uuid.UUID) ([]models.StageDependency, error)
	// ListDependents returns the incoming edges of a stage: the edges of
	// stages that depend on it.
	ListDependents(ctx context.Context, stageID uuid.UUID) ([]models.StageDependency, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.StageDependency, error)
}

type dependencyRepository struct {
	db *gorm.DB
}

func NewDependencyRepository(db *gorm.DB) DependencyRepository {
	return &dependencyRepository{db: db}
}

func (r *dependencyRepository) Create(ctx context.Context, edge *models.StageDependency) error {
	if err := r.db.WithContext(ctx).Create(edge).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "create dependency edge failed")
	}
	return nil
}

func (r *dependencyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.StageDependency{}, "id = ?", id)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "delete dependency edge failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "dependency edge not found")
	}
	return nil
}

func (r *dependencyRepository) ListForStage(ctx context.Context, stageID uuid.UUID) ([]models.StageDependency, error) {
	var out []models.StageDependency
	if err := r.db.WithContext(ctx).Where("stage_id = ?", stageID).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list dependencies failed")
	}
	return out, nil
}

func (r *dependencyRepository) ListDependents(ctx context.Context, stageID uuid.UUID) ([]models.StageDependency, error) {
	var out []models.StageDependency
	if err := r.db.WithContext(ctx).Where("depends_on_stage_id = ?", stageID).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list dependents failed")
	}
	return out, nil
}

func (r *dependencyRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.StageDependency, error) {
	var out []models.StageDependency
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list project dependencies failed")
	}
	return out, nil
}
