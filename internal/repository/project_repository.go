package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/woodline/engine/internal/models"
	appErr "github.com/woodline/engine/pkg/errors"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	ListByStatus(ctx context.Context, status models.ProjectStatus) ([]models.Project, error)
	ListItems(ctx context.Context, projectID uuid.UUID) ([]models.ProjectItem, error)
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db), db: db}
}

func (r *projectRepository) ListByStatus(ctx context.Context, status models.ProjectStatus) ([]models.Project, error) {
	var out []models.Project
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects by status failed")
	}
	return out, nil
}

func (r *projectRepository) ListItems(ctx context.Context, projectID uuid.UUID) ([]models.ProjectItem, error) {
	var out []models.ProjectItem
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list project items failed")
	}
	return out, nil
}
