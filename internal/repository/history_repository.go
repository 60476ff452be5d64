package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/woodline/engine/internal/models"
	appErr "github.com/woodline/engine/pkg/errors"
	"gorm.io/gorm"
)

// HistoryRepository is the append-only deadline ledger. It deliberately
// exposes no update or delete operation: entries are immutable once written.
type HistoryRepository interface {
	Create(ctx context.Context, entry *models.StageDeadlineHistory) error
	// ListForStage returns all ledger entries for a stage in creation order.
	ListForStage(ctx context.Context, stageID uuid.UUID) ([]models.StageDeadlineHistory, error)
	ListForProject(ctx context.Context, projectID uuid.UUID) ([]models.StageDeadlineHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, entry *models.StageDeadlineHistory) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "append history entry failed")
	}
	return nil
}

func (r *historyRepository) ListForStage(ctx context.Context, stageID uuid.UUID) ([]models.StageDeadlineHistory, error) {
	var out []models.StageDeadlineHistory
	if err := r.db.WithContext(ctx).Where("stage_id = ?", stageID).Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list stage history failed")
	}
	return out, nil
}

func (r *historyRepository) ListForProject(ctx context.Context, projectID uuid.UUID) ([]models.StageDeadlineHistory, error) {
	var out []models.StageDeadlineHistory
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list project history failed")
	}
	return out, nil
}
