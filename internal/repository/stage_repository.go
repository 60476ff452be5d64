package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/woodline/engine/internal/models"
	appErr "github.com/woodline/engine/pkg/errors"
	"gorm.io/gorm"
)

type StageRepository interface {
	BaseRepository[models.Stage]
	// ListByProject returns all stages of a project in declared sequence
	// order (sort_order ascending).
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Stage, error)
	ListByProjectItem(ctx context.Context, itemID uuid.UUID) ([]models.Stage, error)
}

type stageRepository struct {
	BaseRepository[models.Stage]
	db *gorm.DB
}

func NewStageRepository(db *gorm.DB) StageRepository {
	return &stageRepository{BaseRepository: NewBaseRepository[models.Stage](db), db: db}
}

func (r *stageRepository) GetByID(ctx context.Context, id any, dest *models.Stage) error {
	if err := r.db.WithContext(ctx).First(dest, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "stage not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get stage failed")
	}
	return nil
}

func (r *stageRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Stage, error) {
	var out []models.Stage
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("sort_order ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list stages by project failed")
	}
	return out, nil
}

func (r *stageRepository) ListByProjectItem(ctx context.Context, itemID uuid.UUID) ([]models.Stage, error) {
	var out []models.Stage
	if err := r.db.WithContext(ctx).Where("project_item_id = ?", itemID).Order("sort_order ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list stages by project item failed")
	}
	return out, nil
}
