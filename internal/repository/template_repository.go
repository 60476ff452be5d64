package repository

import (
	"context"

	"github.com/woodline/engine/internal/models"
	appErr "github.com/woodline/engine/pkg/errors"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	BaseRepository[models.StageTemplate]
	GetByName(ctx context.Context, name string, dest *models.StageTemplate) error
}

type templateRepository struct {
	BaseRepository[models.StageTemplate]
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{BaseRepository: NewBaseRepository[models.StageTemplate](db), db: db}
}

func (r *templateRepository) GetByName(ctx context.Context, name string, dest *models.StageTemplate) error {
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "stage template not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get stage template failed")
	}
	return nil
}
