package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/woodline/engine/internal/models"
	"github.com/woodline/engine/internal/repository"
	appErr "github.com/woodline/engine/pkg/errors"
	"github.com/woodline/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectService manages project structure: the project record itself, its
// items, its stages, and the dependency edges between stages. Scheduling is
// ScheduleService's job; this service only shapes the graph the scheduler
// runs on.
type ProjectService interface {
	CreateProject(ctx context.Context, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID uuid.UUID) error

	AddProjectItem(ctx context.Context, projectID uuid.UUID, name, article string) (*models.ProjectItem, error)
	AddStage(ctx context.Context, input *AddStageInput) (*models.Stage, error)
	ListStages(ctx context.Context, projectID uuid.UUID) ([]models.Stage, error)

	AddDependency(ctx context.Context, stageID, dependsOnStageID uuid.UUID) (*models.StageDependency, error)
	RemoveDependency(ctx context.Context, edgeID uuid.UUID) error

	CreateTemplate(ctx context.Context, name string, specs []models.TemplateStageSpec) (*models.StageTemplate, error)
	ApplyTemplate(ctx context.Context, projectID, templateID uuid.UUID, itemID *uuid.UUID) ([]models.Stage, error)
}

type CreateProjectInput struct {
	Name         string
	CustomerName string
	Settings     map[string]any
}

type AddStageInput struct {
	ProjectID     uuid.UUID
	ProjectItemID *uuid.UUID
	Name          string
	SortOrder     int
	DurationDays  *int
}

type projectService struct {
	db           *gorm.DB
	projectRepo  repository.ProjectRepository
	stageRepo    repository.StageRepository
	depRepo      repository.DependencyRepository
	templateRepo repository.TemplateRepository
}

func NewProjectService(db *gorm.DB, projectRepo repository.ProjectRepository, stageRepo repository.StageRepository, depRepo repository.DependencyRepository, templateRepo repository.TemplateRepository) ProjectService {
	return &projectService{db: db, projectRepo: projectRepo, stageRepo: stageRepo, depRepo: depRepo, templateRepo: templateRepo}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) CreateProject(ctx context.Context, input *CreateProjectInput) (*models.Project, error) {
	logger.L().Info("create project", zap.String("name", input.Name))

	if input.Name == "" {
		return nil, appErr.New(appErr.CodeInvalid, "project name is required")
	}

	var settings datatypes.JSON
	if input.Settings != nil {
		b, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid settings json")
		}
		settings = datatypes.JSON(b)
	}

	p := &models.Project{
		Name:         input.Name,
		CustomerName: input.CustomerName,
		Status:       models.ProjectDraft,
		Settings:     settings,
	}
	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	logger.L().Info("project created", zap.String("project_id", p.ID.String()))
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject removes the project together with its stages, items and
// dependency edges. Deadline history is deliberately left in place: the
// ledger must survive for audit.
func (s *projectService) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	logger.L().Info("delete project", zap.String("project_id", projectID.String()))

	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.StageDependency{}).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "delete project dependencies failed")
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.Stage{}).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "delete project stages failed")
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectItem{}).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "delete project items failed")
	}
	if err := tx.Delete(&models.Project{}, "id = ?", projectID).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "delete project failed")
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	return nil
}

func (s *projectService) AddProjectItem(ctx context.Context, projectID uuid.UUID, name, article string) (*models.ProjectItem, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, appErr.New(appErr.CodeInvalid, "item name is required")
	}

	item := &models.ProjectItem{ProjectID: projectID, Name: name, Article: article}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "create project item failed")
	}
	return item, nil
}

func (s *projectService) AddStage(ctx context.Context, input *AddStageInput) (*models.Stage, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, input.ProjectID, &p); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, appErr.New(appErr.CodeInvalid, "stage name is required")
	}
	if input.DurationDays != nil && *input.DurationDays < 0 {
		return nil, appErr.New(appErr.CodeInvalid, "stage duration may not be negative")
	}

	st := &models.Stage{
		ProjectID:     input.ProjectID,
		ProjectItemID: input.ProjectItemID,
		Name:          input.Name,
		Status:        models.StagePending,
		SortOrder:     input.SortOrder,
		DurationDays:  input.DurationDays,
	}
	if err := s.stageRepo.Create(ctx, st); err != nil {
		return nil, err
	}

	logger.L().Info("stage added",
		zap.String("project_id", input.ProjectID.String()),
		zap.String("stage_id", st.ID.String()),
		zap.String("name", st.Name))
	return st, nil
}

func (s *projectService) ListStages(ctx context.Context, projectID uuid.UUID) ([]models.Stage, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	return s.stageRepo.ListByProject(ctx, projectID)
}

// AddDependency creates the edge "stageID may not start until
// dependsOnStageID completes". Both stages must belong to the same project;
// self-dependencies are rejected. Cycle-freedom is NOT checked here — the
// graph walkers defend against cycles themselves.
func (s *projectService) AddDependency(ctx context.Context, stageID, dependsOnStageID uuid.UUID) (*models.StageDependency, error) {
	if stageID == dependsOnStageID {
		return nil, appErr.New(appErr.CodeInvalid, "a stage cannot depend on itself")
	}

	var stage, prereq models.Stage
	if err := s.stageRepo.GetByID(ctx, stageID, &stage); err != nil {
		return nil, err
	}
	if err := s.stageRepo.GetByID(ctx, dependsOnStageID, &prereq); err != nil {
		return nil, err
	}
	if stage.ProjectID != prereq.ProjectID {
		return nil, appErr.New(appErr.CodeInvalid, "dependency edges may not cross projects")
	}

	edge := &models.StageDependency{
		ProjectID:        stage.ProjectID,
		StageID:          stageID,
		DependsOnStageID: dependsOnStageID,
	}
	if err := s.depRepo.Create(ctx, edge); err != nil {
		return nil, err
	}

	logger.L().Info("dependency added",
		zap.String("stage", stage.Name),
		zap.String("depends_on", prereq.Name))
	return edge, nil
}

func (s *projectService) RemoveDependency(ctx context.Context, edgeID uuid.UUID) error {
	return s.depRepo.Delete(ctx, edgeID)
}

func (s *projectService) CreateTemplate(ctx context.Context, name string, specs []models.TemplateStageSpec) (*models.StageTemplate, error) {
	if name == "" {
		return nil, appErr.New(appErr.CodeInvalid, "template name is required")
	}
	if len(specs) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "template needs at least one stage")
	}

	b, err := json.Marshal(specs)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid template stages")
	}
	tpl := &models.StageTemplate{Name: name, Stages: datatypes.JSON(b)}
	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// ApplyTemplate materializes a template into a draft project: one stage per
// spec (optionally scoped to a project item) and one dependency edge per
// depends_on reference, resolved by sort_order within the template. All
// rows are created in one transaction.
func (s *projectService) ApplyTemplate(ctx context.Context, projectID, templateID uuid.UUID, itemID *uuid.UUID) ([]models.Stage, error) {
	logger.L().Info("apply template",
		zap.String("project_id", projectID.String()),
		zap.String("template_id", templateID.String()))

	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.Status != models.ProjectDraft {
		return nil, appErr.New(appErr.CodeConflict, "templates can only be applied to draft projects")
	}

	var tpl models.StageTemplate
	if err := s.templateRepo.GetByID(ctx, templateID, &tpl); err != nil {
		return nil, err
	}

	var specs []models.TemplateStageSpec
	if err := json.Unmarshal(tpl.Stages, &specs); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "template stages are not valid json")
	}

	byOrder := make(map[int]*models.Stage, len(specs))
	stages := make([]*models.Stage, 0, len(specs))
	for _, spec := range specs {
		if _, dup := byOrder[spec.SortOrder]; dup {
			return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("template has duplicate sort_order %d", spec.SortOrder))
		}
		st := &models.Stage{
			ProjectID:     projectID,
			ProjectItemID: itemID,
			Name:          spec.Name,
			Status:        models.StagePending,
			SortOrder:     spec.SortOrder,
			DurationDays:  spec.DurationDays,
		}
		byOrder[spec.SortOrder] = st
		stages = append(stages, st)
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	for _, st := range stages {
		if err := tx.Create(st).Error; err != nil {
			tx.Rollback()
			return nil, appErr.Wrap(err, appErr.CodeInternal, "create template stage failed")
		}
	}
	for _, spec := range specs {
		for _, dep := range spec.DependsOn {
			prereq, ok := byOrder[dep]
			if !ok {
				tx.Rollback()
				return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("template stage %q depends on unknown sort_order %d", spec.Name, dep))
			}
			edge := &models.StageDependency{
				ProjectID:        projectID,
				StageID:          byOrder[spec.SortOrder].ID,
				DependsOnStageID: prereq.ID,
			}
			if err := tx.Create(edge).Error; err != nil {
				tx.Rollback()
				return nil, appErr.Wrap(err, appErr.CodeInternal, "create template dependency failed")
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}

	logger.L().Info("template applied",
		zap.String("project_id", projectID.String()),
		zap.Int("stages", len(stages)))
	return s.stageRepo.ListByProject(ctx, projectID)
}
