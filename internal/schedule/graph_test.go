package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodline/engine/internal/models"
	appErr "github.com/woodline/engine/pkg/errors"
)

func day(d int) time.Time {
	return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(d int) *time.Time {
	t := day(d)
	return &t
}

func intPtr(n int) *int { return &n }

func testStage(projectID uuid.UUID, name string, order int, duration *int, start, end *time.Time) models.Stage {
	return models.Stage{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Name:         name,
		Status:       models.StagePending,
		SortOrder:    order,
		DurationDays: duration,
		PlannedStart: start,
		PlannedEnd:   end,
	}
}

func edge(projectID uuid.UUID, stage, dependsOn models.Stage) models.StageDependency {
	return models.StageDependency{
		ID:               uuid.New(),
		ProjectID:        projectID,
		StageID:          stage.ID,
		DependsOnStageID: dependsOn.ID,
	}
}

func TestNewGraphRejectsUnknownStageReference(t *testing.T) {
	pid := uuid.New()
	a := testStage(pid, "measurement", 1, intPtr(1), dayPtr(1), dayPtr(2))
	ghost := testStage(pid, "ghost", 2, nil, nil, nil)

	_, err := NewGraph([]models.Stage{a}, []models.StageDependency{edge(pid, ghost, a)})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestFinishesChain(t *testing.T) {
	pid := uuid.New()
	a := testStage(pid, "measurement", 1, intPtr(3), dayPtr(1), dayPtr(4))
	b := testStage(pid, "production", 2, intPtr(2), dayPtr(4), dayPtr(6))
	c := testStage(pid, "installation", 3, intPtr(1), dayPtr(6), dayPtr(7))

	g, err := NewGraph([]models.Stage{a, b, c}, []models.StageDependency{
		edge(pid, b, a),
		edge(pid, c, b),
	})
	require.NoError(t, err)

	finishes, err := g.Finishes()
	require.NoError(t, err)

	// a has no prerequisites: its own planned end
	require.NotNil(t, finishes[a.ID])
	assert.True(t, finishes[a.ID].Equal(day(4)))
	// b: a's end + 2
	require.NotNil(t, finishes[b.ID])
	assert.True(t, finishes[b.ID].Equal(day(6)))
	// c: b's computed end + 1
	require.NotNil(t, finishes[c.ID])
	assert.True(t, finishes[c.ID].Equal(day(7)))
}

func TestFinishesPicksLatestPrerequisite(t *testing.T) {
	pid := uuid.New()
	a := testStage(pid, "frame", 1, intPtr(2), dayPtr(1), dayPtr(3))
	b := testStage(pid, "facades", 2, intPtr(5), dayPtr(1), dayPtr(6))
	c := testStage(pid, "assembly", 3, intPtr(1), dayPtr(6), dayPtr(7))

	g, err := NewGraph([]models.Stage{a, b, c}, []models.StageDependency{
		edge(pid, c, a),
		edge(pid, c, b),
	})
	require.NoError(t, err)

	finishes, err := g.Finishes()
	require.NoError(t, err)
	// c waits for b (later of the two) and adds its own day
	require.NotNil(t, finishes[c.ID])
	assert.True(t, finishes[c.ID].Equal(day(7)))
}

func TestFinishesFallsBackWhenPrerequisiteUndefined(t *testing.T) {
	pid := uuid.New()
	// a has no planned end, so its computed end is undefined
	a := testStage(pid, "measurement", 1, intPtr(3), nil, nil)
	b := testStage(pid, "production", 2, intPtr(2), dayPtr(4), dayPtr(6))

	g, err := NewGraph([]models.Stage{a, b}, []models.StageDependency{edge(pid, b, a)})
	require.NoError(t, err)

	finishes, err := g.Finishes()
	require.NoError(t, err)
	assert.Nil(t, finishes[a.ID])
	// b falls back to its own planned end
	require.NotNil(t, finishes[b.ID])
	assert.True(t, finishes[b.ID].Equal(day(6)))
}

func TestFinishesMemoizedAcrossDependents(t *testing.T) {
	pid := uuid.New()
	// diamond: b and c both depend on a, d depends on both
	a := testStage(pid, "a", 1, intPtr(1), dayPtr(1), dayPtr(2))
	b := testStage(pid, "b", 2, intPtr(2), dayPtr(2), dayPtr(4))
	c := testStage(pid, "c", 3, intPtr(3), dayPtr(2), dayPtr(5))
	d := testStage(pid, "d", 4, intPtr(1), dayPtr(5), dayPtr(6))

	g, err := NewGraph([]models.Stage{a, b, c, d}, []models.StageDependency{
		edge(pid, b, a),
		edge(pid, c, a),
		edge(pid, d, b),
		edge(pid, d, c),
	})
	require.NoError(t, err)

	finishes, err := g.Finishes()
	require.NoError(t, err)
	// a=2, b=2+2=4, c=2+3=5, d=max(4,5)+1=6
	require.NotNil(t, finishes[d.ID])
	assert.True(t, finishes[d.ID].Equal(day(6)))
}

func TestFinishesCycleDetected(t *testing.T) {
	pid := uuid.New()
	a := testStage(pid, "a", 1, intPtr(1), dayPtr(1), dayPtr(2))
	b := testStage(pid, "b", 2, intPtr(1), dayPtr(2), dayPtr(3))

	g, err := NewGraph([]models.Stage{a, b}, []models.StageDependency{
		edge(pid, a, b),
		edge(pid, b, a),
	})
	require.NoError(t, err)

	_, err = g.Finishes()
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidGraph))

	_, err = g.ProjectDeadline()
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalidGraph))
}

func TestProjectDeadlineDominatesEveryStage(t *testing.T) {
	pid := uuid.New()
	a := testStage(pid, "a", 1, intPtr(3), dayPtr(1), dayPtr(4))
	b := testStage(pid, "b", 2, intPtr(2), dayPtr(4), dayPtr(6))
	c := testStage(pid, "c", 3, intPtr(4), dayPtr(2), dayPtr(6))
	d := testStage(pid, "d", 4, intPtr(1), dayPtr(6), dayPtr(7))

	g, err := NewGraph([]models.Stage{a, b, c, d}, []models.StageDependency{
		edge(pid, b, a),
		edge(pid, d, b),
		edge(pid, d, c),
	})
	require.NoError(t, err)

	finishes, err := g.Finishes()
	require.NoError(t, err)
	deadline, err := g.ProjectDeadline()
	require.NoError(t, err)
	require.NotNil(t, deadline)

	for id, end := range finishes {
		if end == nil {
			continue
		}
		assert.False(t, deadline.Before(*end), "deadline before finish of stage %s", id)
	}
}

func TestProjectDeadlineUndetermined(t *testing.T) {
	pid := uuid.New()
	a := testStage(pid, "a", 1, intPtr(3), nil, nil)
	b := testStage(pid, "b", 2, intPtr(2), nil, nil)

	g, err := NewGraph([]models.Stage{a, b}, []models.StageDependency{edge(pid, b, a)})
	require.NoError(t, err)

	deadline, err := g.ProjectDeadline()
	require.NoError(t, err)
	assert.Nil(t, deadline)
}

func TestOrderConflicts(t *testing.T) {
	pid := uuid.New()
	// installation is ordered before production but depends on it
	production := testStage(pid, "production", 5, intPtr(3), nil, nil)
	installation := testStage(pid, "installation", 2, intPtr(1), nil, nil)

	g, err := NewGraph([]models.Stage{production, installation}, []models.StageDependency{
		edge(pid, installation, production),
	})
	require.NoError(t, err)

	conflicts := g.OrderConflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, installation.ID, conflicts[0].StageID)
	assert.Equal(t, production.ID, conflicts[0].DependsOnID)
}
