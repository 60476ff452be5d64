package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/woodline/engine/internal/models"
	"github.com/woodline/engine/internal/repository"
	"github.com/woodline/engine/internal/schedule"
	appErr "github.com/woodline/engine/pkg/errors"
	"github.com/woodline/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScheduleService is the scheduling engine behind the project module: it
// assigns the initial schedule at activation, gates stage starts on
// dependency completion, computes the critical-path project deadline, and
// cascades manual deadline edits to all transitive dependents with a full
// audit ledger.
type ScheduleService interface {
	StartProject(ctx context.Context, projectID uuid.UUID, anchor time.Time) ([]models.Stage, error)
	StartStage(ctx context.Context, stageID uuid.UUID) (*models.Stage, error)
	CompleteStage(ctx context.Context, stageID uuid.UUID) (*models.Stage, error)
	CalculateProjectFinalDeadline(ctx context.Context, projectID uuid.UUID) (*time.Time, error)
	UpdateStageDeadlineWithAutoShift(ctx context.Context, stageID uuid.UUID, input *DeadlineUpdateInput) (*DeadlineUpdateResult, error)
	GetStageDeadlineHistory(ctx context.Context, stageID uuid.UUID) ([]models.StageDeadlineHistory, error)
}

// DeadlineUpdateInput is a manual edit of one stage's planned dates.
type DeadlineUpdateInput struct {
	NewStart  *time.Time
	NewEnd    *time.Time
	ActorID   uuid.UUID
	ActorName string
	Reason    string
}

// DeadlineUpdateResult reports everything one deadline edit did: the edited
// stage, every stage moved by the cascade, and every ledger entry written.
type DeadlineUpdateResult struct {
	Stage   *models.Stage
	Shifted []models.Stage
	History []models.StageDeadlineHistory
}

type scheduleService struct {
	db          *gorm.DB
	projectRepo repository.ProjectRepository
	stageRepo   repository.StageRepository
	depRepo     repository.DependencyRepository
	historyRepo repository.HistoryRepository

	// one mutex per project: stage-start transitions and whole shift
	// cascades must be serialized against concurrent edits of the same
	// project (the stores alone give no such isolation)
	locks sync.Map
}

func NewScheduleService(db *gorm.DB, projectRepo repository.ProjectRepository, stageRepo repository.StageRepository, depRepo repository.DependencyRepository, historyRepo repository.HistoryRepository) ScheduleService {
	return &scheduleService{
		db:          db,
		projectRepo: projectRepo,
		stageRepo:   stageRepo,
		depRepo:     depRepo,
		historyRepo: historyRepo,
	}
}

var _ ScheduleService = (*scheduleService)(nil)

func (s *scheduleService) projectLock(projectID uuid.UUID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(projectID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// StartProject activates a draft project at the anchor date and assigns
// every stage its first planned window, in declared stage order. One ledger
// entry is written per stage. The dependency graph is not consulted for the
// layout itself; a disagreement between declared order and the graph is
// logged as a warning.
func (s *scheduleService) StartProject(ctx context.Context, projectID uuid.UUID, anchor time.Time) ([]models.Stage, error) {
	logger.L().Info("start project", zap.String("project_id", projectID.String()), zap.Time("anchor", anchor))

	var project models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &project); err != nil {
		return nil, err
	}
	if project.Status != models.ProjectDraft {
		return nil, appErr.New(appErr.CodeConflict, fmt.Sprintf("project is %s, only draft projects can be started", project.Status))
	}

	mu := s.projectLock(projectID)
	mu.Lock()
	defer mu.Unlock()

	stages, err := s.stageRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	edges, err := s.depRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if g, gerr := schedule.NewGraph(stages, edges); gerr == nil {
		for _, c := range g.OrderConflicts() {
			logger.L().Warn("stage order contradicts dependency graph",
				zap.String("project_id", projectID.String()),
				zap.String("stage", c.StageName),
				zap.Int("stage_order", c.StageOrder),
				zap.String("depends_on", c.DependsOnName),
				zap.Int("depends_on_order", c.DependsOnOrder))
		}
	} else {
		logger.L().Warn("dependency snapshot invalid, skipping order validation",
			zap.String("project_id", projectID.String()), zap.Error(gerr))
	}

	assignments := schedule.InitialSchedule(stages, anchor)

	byID := make(map[uuid.UUID]*models.Stage, len(stages))
	for i := range stages {
		byID[stages[i].ID] = &stages[i]
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	for _, a := range assignments {
		st := byID[a.StageID]
		entry := models.StageDeadlineHistory{
			StageID:         a.StageID,
			ProjectID:       projectID,
			ActorName:       models.SystemActorName,
			OldPlannedStart: st.PlannedStart,
			OldPlannedEnd:   st.PlannedEnd,
			NewPlannedStart: &a.Start,
			NewPlannedEnd:   &a.End,
			Reason:          "initial schedule at project start",
		}
		if err := tx.Create(&entry).Error; err != nil {
			tx.Rollback()
			return nil, appErr.Wrap(err, appErr.CodeInternal, "write schedule history failed")
		}
		if err := tx.Model(&models.Stage{}).Where("id = ?", a.StageID).Updates(map[string]any{
			"planned_start": a.Start,
			"planned_end":   a.End,
		}).Error; err != nil {
			tx.Rollback()
			return nil, appErr.Wrap(err, appErr.CodeInternal, "assign stage schedule failed")
		}
	}

	if err := tx.Model(&models.Project{}).Where("id = ?", projectID).Updates(map[string]any{
		"status":     models.ProjectActive,
		"start_date": anchor,
	}).Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "activate project failed")
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}

	logger.L().Info("project started", zap.String("project_id", projectID.String()), zap.Int("stages", len(assignments)))
	return s.stageRepo.ListByProject(ctx, projectID)
}

// StartStage transitions a pending stage to in_progress, provided every one
// of its direct prerequisites is completed. On failure the returned error
// carries the names of all incomplete prerequisites so the caller can show
// the user exactly what blocks the stage. This is the only way a stage
// enters in_progress.
func (s *scheduleService) StartStage(ctx context.Context, stageID uuid.UUID) (*models.Stage, error) {
	logger.L().Info("start stage", zap.String("stage_id", stageID.String()))

	var stage models.Stage
	if err := s.stageRepo.GetByID(ctx, stageID, &stage); err != nil {
		return nil, err
	}

	mu := s.projectLock(stage.ProjectID)
	mu.Lock()
	defer mu.Unlock()

	// re-read under the lock
	if err := s.stageRepo.GetByID(ctx, stageID, &stage); err != nil {
		return nil, err
	}
	if stage.Status != models.StagePending {
		return nil, appErr.New(appErr.CodeConflict, fmt.Sprintf("stage %q is %s, only pending stages can be started", stage.Name, stage.Status))
	}

	edges, err := s.depRepo.ListForStage(ctx, stageID)
	if err != nil {
		return nil, err
	}

	var blockers []string
	for _, e := range edges {
		var prereq models.Stage
		if err := s.stageRepo.GetByID(ctx, e.DependsOnStageID, &prereq); err != nil {
			return nil, err
		}
		if prereq.Status != models.StageCompleted {
			blockers = append(blockers, prereq.Name)
		}
	}
	if len(blockers) > 0 {
		logger.L().Info("stage start blocked",
			zap.String("stage_id", stageID.String()),
			zap.Strings("blocking_stages", blockers))
		return nil, appErr.New(appErr.CodeBlocked,
			fmt.Sprintf("stage %q is blocked by incomplete stages: %s", stage.Name, strings.Join(blockers, ", "))).
			WithMeta("blocking_stages", blockers)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Stage{}).Where("id = ?", stageID).Updates(map[string]any{
		"status":       models.StageInProgress,
		"actual_start": now,
	}).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "start stage failed")
	}

	stage.Status = models.StageInProgress
	stage.ActualStart = &now
	logger.L().Info("stage started", zap.String("stage_id", stageID.String()), zap.String("name", stage.Name))
	return &stage, nil
}

// CompleteStage transitions an in_progress stage to completed and stamps
// its actual end, unblocking its dependents.
func (s *scheduleService) CompleteStage(ctx context.Context, stageID uuid.UUID) (*models.Stage, error) {
	logger.L().Info("complete stage", zap.String("stage_id", stageID.String()))

	var stage models.Stage
	if err := s.stageRepo.GetByID(ctx, stageID, &stage); err != nil {
		return nil, err
	}

	mu := s.projectLock(stage.ProjectID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.stageRepo.GetByID(ctx, stageID, &stage); err != nil {
		return nil, err
	}
	if stage.Status != models.StageInProgress {
		return nil, appErr.New(appErr.CodeConflict, fmt.Sprintf("stage %q is %s, only in_progress stages can be completed", stage.Name, stage.Status))
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Stage{}).Where("id = ?", stageID).Updates(map[string]any{
		"status":     models.StageCompleted,
		"actual_end": now,
	}).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "complete stage failed")
	}

	stage.Status = models.StageCompleted
	stage.ActualEnd = &now
	return &stage, nil
}

// CalculateProjectFinalDeadline computes the earliest possible completion
// of the whole project over the dependency graph. A nil date with nil error
// means the deadline is undetermined. A cyclic edge set fails with
// CodeInvalidGraph instead of producing a partial answer.
func (s *scheduleService) CalculateProjectFinalDeadline(ctx context.Context, projectID uuid.UUID) (*time.Time, error) {
	var project models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &project); err != nil {
		return nil, err
	}

	stages, err := s.stageRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	edges, err := s.depRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	g, err := schedule.NewGraph(stages, edges)
	if err != nil {
		return nil, err
	}
	deadline, err := g.ProjectDeadline()
	if err != nil {
		logger.L().Warn("project deadline computation failed",
			zap.String("project_id", projectID.String()), zap.Error(err))
		return nil, err
	}
	return deadline, nil
}

// UpdateStageDeadlineWithAutoShift applies a manual edit of one stage's
// planned dates and cascades the minimal necessary shift to every
// transitively dependent stage. The whole cascade — the edit, every shifted
// dependent, and one ledger entry per touched stage — is applied in a
// single transaction under the project lock: it lands completely or not at
// all. Re-applying dates a stage already has is a no-op that writes
// nothing.
func (s *scheduleService) UpdateStageDeadlineWithAutoShift(ctx context.Context, stageID uuid.UUID, input *DeadlineUpdateInput) (*DeadlineUpdateResult, error) {
	logger.L().Info("update stage deadline",
		zap.String("stage_id", stageID.String()),
		zap.String("actor", input.ActorName))

	var stage models.Stage
	if err := s.stageRepo.GetByID(ctx, stageID, &stage); err != nil {
		return nil, err
	}

	mu := s.projectLock(stage.ProjectID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.stageRepo.GetByID(ctx, stageID, &stage); err != nil {
		return nil, err
	}

	// already at the requested dates: the schedule is a fixpoint, nothing
	// to write
	if schedule.EqualTime(stage.PlannedStart, input.NewStart) && schedule.EqualTime(stage.PlannedEnd, input.NewEnd) {
		return &DeadlineUpdateResult{Stage: &stage}, nil
	}

	stages, err := s.stageRepo.ListByProject(ctx, stage.ProjectID)
	if err != nil {
		return nil, err
	}
	edges, err := s.depRepo.ListByProject(ctx, stage.ProjectID)
	if err != nil {
		return nil, err
	}
	g, err := schedule.NewGraph(stages, edges)
	if err != nil {
		return nil, err
	}

	shifts := schedule.PlanShift(g, stageID, input.NewEnd)

	oldStart, oldEnd := stage.PlannedStart, stage.PlannedEnd

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	actorID := input.ActorID
	manual := models.StageDeadlineHistory{
		StageID:         stageID,
		ProjectID:       stage.ProjectID,
		ActorID:         &actorID,
		ActorName:       input.ActorName,
		OldPlannedStart: oldStart,
		OldPlannedEnd:   oldEnd,
		NewPlannedStart: input.NewStart,
		NewPlannedEnd:   input.NewEnd,
		Reason:          input.Reason,
	}
	if err := tx.Create(&manual).Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "write deadline history failed")
	}
	if err := tx.Model(&models.Stage{}).Where("id = ?", stageID).Updates(map[string]any{
		"planned_start": input.NewStart,
		"planned_end":   input.NewEnd,
	}).Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "apply deadline edit failed")
	}

	history := []models.StageDeadlineHistory{manual}
	var shifted []models.Stage

	for _, sh := range shifts {
		dep := g.Stage(sh.StageID)
		trigger := g.Stage(sh.TriggeredBy)
		meta, _ := json.Marshal(map[string]any{
			"triggered_by":   sh.TriggeredBy.String(),
			"triggered_name": trigger.Name,
			"delta_days":     sh.DeltaDays,
		})
		entry := models.StageDeadlineHistory{
			StageID:         sh.StageID,
			ProjectID:       stage.ProjectID,
			ActorName:       models.SystemActorName,
			OldPlannedStart: sh.OldStart,
			OldPlannedEnd:   sh.OldEnd,
			NewPlannedStart: &sh.NewStart,
			NewPlannedEnd:   sh.NewEnd,
			Reason:          fmt.Sprintf("automatic shift after deadline change of stage %q", trigger.Name),
			IsAutoShift:     true,
			Meta:            datatypes.JSON(meta),
		}
		if err := tx.Create(&entry).Error; err != nil {
			tx.Rollback()
			return nil, appErr.Wrap(err, appErr.CodeInternal, "write shift history failed")
		}
		if err := tx.Model(&models.Stage{}).Where("id = ?", sh.StageID).Updates(map[string]any{
			"planned_start": sh.NewStart,
			"planned_end":   sh.NewEnd,
		}).Error; err != nil {
			tx.Rollback()
			return nil, appErr.Wrap(err, appErr.CodeInternal, "apply cascaded shift failed")
		}

		history = append(history, entry)
		moved := *dep
		moved.PlannedStart = &sh.NewStart
		moved.PlannedEnd = sh.NewEnd
		shifted = append(shifted, moved)
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}

	stage.PlannedStart = input.NewStart
	stage.PlannedEnd = input.NewEnd

	logger.L().Info("stage deadline updated",
		zap.String("stage_id", stageID.String()),
		zap.Int("shifted", len(shifted)),
		zap.Int("history_entries", len(history)))

	return &DeadlineUpdateResult{Stage: &stage, Shifted: shifted, History: history}, nil
}

// GetStageDeadlineHistory returns the full ledger of a stage's planned-date
// mutations in creation order.
func (s *scheduleService) GetStageDeadlineHistory(ctx context.Context, stageID uuid.UUID) ([]models.StageDeadlineHistory, error) {
	var stage models.Stage
	if err := s.stageRepo.GetByID(ctx, stageID, &stage); err != nil {
		return nil, err
	}
	return s.historyRepo.ListForStage(ctx, stageID)
}
