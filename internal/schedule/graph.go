package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/woodline/engine/internal/models"
	appErr "github.com/woodline/engine/pkg/errors"
)

// Graph is an in-memory snapshot of one project's stages and dependency
// edges. It is built once per operation from store data and never mutates
// the underlying records. Storage does not guarantee the edge set is
// acyclic, so every walk over the graph carries explicit cycle detection.
type Graph struct {
	stages     map[uuid.UUID]*models.Stage
	order      []uuid.UUID // stage ids in input (sort_order) order
	prereqs    map[uuid.UUID][]uuid.UUID
	dependents map[uuid.UUID][]uuid.UUID
}

// NewGraph indexes stages and edges. Edges referencing a stage that is not
// part of the snapshot are rejected as invalid.
func NewGraph(stages []models.Stage, edges []models.StageDependency) (*Graph, error) {
	g := &Graph{
		stages:     make(map[uuid.UUID]*models.Stage, len(stages)),
		order:      make([]uuid.UUID, 0, len(stages)),
		prereqs:    make(map[uuid.UUID][]uuid.UUID),
		dependents: make(map[uuid.UUID][]uuid.UUID),
	}
	for i := range stages {
		st := &stages[i]
		g.stages[st.ID] = st
		g.order = append(g.order, st.ID)
	}
	for _, e := range edges {
		if _, ok := g.stages[e.StageID]; !ok {
			return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("dependency edge %s references unknown stage %s", e.ID, e.StageID))
		}
		if _, ok := g.stages[e.DependsOnStageID]; !ok {
			return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("dependency edge %s references unknown stage %s", e.ID, e.DependsOnStageID))
		}
		g.prereqs[e.StageID] = append(g.prereqs[e.StageID], e.DependsOnStageID)
		g.dependents[e.DependsOnStageID] = append(g.dependents[e.DependsOnStageID], e.StageID)
	}
	return g, nil
}

// Stage returns the snapshot record for a stage id, or nil.
func (g *Graph) Stage(id uuid.UUID) *models.Stage { return g.stages[id] }

// Prereqs returns the ids of the direct prerequisites of a stage.
func (g *Graph) Prereqs(id uuid.UUID) []uuid.UUID { return g.prereqs[id] }

// Dependents returns the ids of the stages directly depending on a stage.
func (g *Graph) Dependents(id uuid.UUID) []uuid.UUID { return g.dependents[id] }

// walk states for the iterative DFS
const (
	unvisited = iota
	onPath
	done
)

// Finishes computes the earliest possible completion date of every stage,
// respecting dependency constraints:
//
//   - a stage with no prerequisites finishes at its own planned end (nil if
//     unset);
//   - otherwise it finishes at max(prerequisite finishes) + its duration,
//     falling back to its own planned end when any prerequisite finish is
//     undefined.
//
// Each stage is computed once and reused by all dependents. The walk is an
// explicit-stack DFS; finding a stage that is already on the current path
// means the edge set has a cycle, and the whole computation fails with
// CodeInvalidGraph rather than returning a partial answer.
func (g *Graph) Finishes() (map[uuid.UUID]*time.Time, error) {
	finishes := make(map[uuid.UUID]*time.Time, len(g.stages))
	state := make(map[uuid.UUID]int, len(g.stages))

	for _, root := range g.order {
		if state[root] == done {
			continue
		}
		stack := []uuid.UUID{root}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			switch state[id] {
			case unvisited:
				state[id] = onPath
				for _, p := range g.prereqs[id] {
					switch state[p] {
					case onPath:
						return nil, appErr.New(appErr.CodeInvalidGraph,
							fmt.Sprintf("dependency cycle through stage %q", g.stages[p].Name))
					case unvisited:
						stack = append(stack, p)
					}
				}
			case onPath:
				// all prerequisites are done now
				finishes[id] = g.finishOf(id, finishes)
				state[id] = done
				stack = stack[:len(stack)-1]
			case done:
				stack = stack[:len(stack)-1]
			}
		}
	}
	return finishes, nil
}

func (g *Graph) finishOf(id uuid.UUID, finishes map[uuid.UUID]*time.Time) *time.Time {
	st := g.stages[id]
	prereqs := g.prereqs[id]
	if len(prereqs) == 0 {
		return st.PlannedEnd
	}
	var latest *time.Time
	for _, p := range prereqs {
		end := finishes[p]
		if end == nil {
			// unconstrained prerequisite: no better bound than the
			// stage's own planned end
			return st.PlannedEnd
		}
		if latest == nil || end.After(*latest) {
			latest = end
		}
	}
	t := AddDays(*latest, st.Duration())
	return &t
}

// ProjectDeadline computes the earliest possible completion of the whole
// project: the latest stage finish across all stages. A nil result with nil
// error means the deadline is undetermined (no stage has a computable end).
func (g *Graph) ProjectDeadline() (*time.Time, error) {
	finishes, err := g.Finishes()
	if err != nil {
		return nil, err
	}
	var deadline *time.Time
	for _, id := range g.order {
		end := finishes[id]
		if end == nil {
			continue
		}
		if deadline == nil || end.After(*deadline) {
			deadline = end
		}
	}
	return deadline, nil
}

// OrderConflict reports a dependency edge that contradicts the declared
// stage sequence: the dependent is not ordered after its prerequisite.
type OrderConflict struct {
	StageID        uuid.UUID
	StageName      string
	DependsOnID    uuid.UUID
	DependsOnName  string
	StageOrder     int
	DependsOnOrder int
}

// OrderConflicts lists every edge whose dependent has a sort_order less
// than or equal to its prerequisite's. The initial scheduler walks stages
// in declared order without consulting the graph, so such edges produce an
// initial schedule that violates dependency constraints.
func (g *Graph) OrderConflicts() []OrderConflict {
	var out []OrderConflict
	for _, id := range g.order {
		st := g.stages[id]
		for _, p := range g.prereqs[id] {
			pre := g.stages[p]
			if st.SortOrder <= pre.SortOrder {
				out = append(out, OrderConflict{
					StageID:        st.ID,
					StageName:      st.Name,
					DependsOnID:    pre.ID,
					DependsOnName:  pre.Name,
					StageOrder:     st.SortOrder,
					DependsOnOrder: pre.SortOrder,
				})
			}
		}
	}
	return out
}
