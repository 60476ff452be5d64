package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodline/engine/internal/models"
	appErr "github.com/woodline/engine/pkg/errors"
)

func TestCreateProjectRequiresName(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.projects.CreateProject(context.Background(), &CreateProjectInput{Name: ""})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestAddDependencyRejectsSelf(t *testing.T) {
	e := newTestEnv(t)

	p := e.createProject(t, "kitchen")
	a := e.addStage(t, p.ID, "measurement", 1, intPtr(1))

	_, err := e.projects.AddDependency(context.Background(), a.ID, a.ID)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestAddDependencyRejectsCrossProject(t *testing.T) {
	e := newTestEnv(t)

	p1 := e.createProject(t, "kitchen")
	p2 := e.createProject(t, "wardrobe")
	a := e.addStage(t, p1.ID, "measurement", 1, intPtr(1))
	b := e.addStage(t, p2.ID, "production", 1, intPtr(2))

	_, err := e.projects.AddDependency(context.Background(), b.ID, a.ID)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestAddDependencyUnknownStage(t *testing.T) {
	e := newTestEnv(t)

	p := e.createProject(t, "kitchen")
	a := e.addStage(t, p.ID, "measurement", 1, intPtr(1))

	_, err := e.projects.AddDependency(context.Background(), a.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestApplyTemplate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	tpl, err := e.projects.CreateTemplate(ctx, "kitchen standard", []models.TemplateStageSpec{
		{Name: "measurement", SortOrder: 1, DurationDays: intPtr(1)},
		{Name: "production", SortOrder: 2, DurationDays: intPtr(10), DependsOn: []int{1}},
		{Name: "installation", SortOrder: 3, DurationDays: intPtr(2), DependsOn: []int{2}},
	})
	require.NoError(t, err)

	p := e.createProject(t, "kitchen for Sidorov")
	stages, err := e.projects.ApplyTemplate(ctx, p.ID, tpl.ID, nil)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, "measurement", stages[0].Name)
	assert.Equal(t, "production", stages[1].Name)
	assert.Equal(t, "installation", stages[2].Name)

	// the production stage is gated on measurement
	e.setStatus(t, stages[0].ID, models.StageInProgress)
	_, err = e.scheduler.StartStage(ctx, stages[1].ID)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeBlocked))

	e.setStatus(t, stages[0].ID, models.StageCompleted)
	_, err = e.scheduler.StartStage(ctx, stages[1].ID)
	require.NoError(t, err)
}

func TestApplyTemplateRejectsActiveProject(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	tpl, err := e.projects.CreateTemplate(ctx, "wardrobe standard", []models.TemplateStageSpec{
		{Name: "measurement", SortOrder: 1, DurationDays: intPtr(1)},
	})
	require.NoError(t, err)

	p := e.createProject(t, "wardrobe")
	e.addStage(t, p.ID, "measurement", 1, intPtr(1))
	_, err = e.scheduler.StartProject(ctx, p.ID, day(1))
	require.NoError(t, err)

	_, err = e.projects.ApplyTemplate(ctx, p.ID, tpl.ID, nil)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
}

func TestApplyTemplateRejectsUnknownDependsOn(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	tpl, err := e.projects.CreateTemplate(ctx, "broken", []models.TemplateStageSpec{
		{Name: "production", SortOrder: 1, DurationDays: intPtr(5), DependsOn: []int{42}},
	})
	require.NoError(t, err)

	p := e.createProject(t, "kitchen")
	_, err = e.projects.ApplyTemplate(ctx, p.ID, tpl.ID, nil)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	// the failed application left nothing behind
	stages, err := e.projects.ListStages(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, stages)
}

func TestDeleteProjectKeepsDeadlineHistory(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	p := e.createProject(t, "kitchen")
	a := e.addStage(t, p.ID, "measurement", 1, intPtr(3))
	e.setPlanned(t, a.ID, dayPtr(1), dayPtr(4))

	_, err := e.scheduler.UpdateStageDeadlineWithAutoShift(ctx, a.ID, &DeadlineUpdateInput{
		NewStart: dayPtr(2), NewEnd: dayPtr(5), ActorID: uuid.New(), ActorName: "Petrov", Reason: "move",
	})
	require.NoError(t, err)

	require.NoError(t, e.projects.DeleteProject(ctx, p.ID))

	_, err = e.projects.GetProject(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	// the ledger survives the project
	entries, err := e.history.ListForStage(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "move", entries[0].Reason)
}

func TestAddProjectItemAndScopedStage(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	p := e.createProject(t, "kitchen")
	item, err := e.projects.AddProjectItem(ctx, p.ID, "upper cabinets", "KU-104")
	require.NoError(t, err)

	st, err := e.projects.AddStage(ctx, &AddStageInput{
		ProjectID:     p.ID,
		ProjectItemID: &item.ID,
		Name:          "facade milling",
		SortOrder:     1,
		DurationDays:  intPtr(2),
	})
	require.NoError(t, err)
	require.NotNil(t, st.ProjectItemID)
	assert.Equal(t, item.ID, *st.ProjectItemID)
}
