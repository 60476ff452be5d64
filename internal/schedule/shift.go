package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Shift is one cascaded stage move produced by PlanShift.
type Shift struct {
	StageID     uuid.UUID
	TriggeredBy uuid.UUID // stage whose new end forced the move
	OldStart    *time.Time
	OldEnd      *time.Time
	NewStart    time.Time
	NewEnd      *time.Time
	DeltaDays   int
}

// PlanShift computes the minimal cascade needed after the edited stage's
// planned end moved to newEnd. Walking the dependent edges breadth-first:
// a dependent whose planned start is strictly earlier than its
// prerequisite's new end is moved forward so it starts exactly at that end,
// keeping its own duration; its own dependents are then reconsidered
// against its new end. A dependent that already starts late enough is left
// untouched and the cascade does not continue through it — downstream
// stages cannot need a move if this one did not.
//
// Every stage is shifted at most once per propagation; the visited set also
// terminates the walk on a cyclic edge set instead of shifting forever.
func PlanShift(g *Graph, editedID uuid.UUID, newEnd *time.Time) []Shift {
	if newEnd == nil {
		return nil
	}

	type item struct {
		id     uuid.UUID
		refEnd time.Time
	}

	visited := map[uuid.UUID]bool{editedID: true}
	queue := []item{{id: editedID, refEnd: *newEnd}}
	var out []Shift

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, depID := range g.Dependents(cur.id) {
			if visited[depID] {
				continue
			}
			dep := g.Stage(depID)
			if dep == nil || dep.PlannedStart == nil || !dep.PlannedStart.Before(cur.refEnd) {
				continue
			}
			visited[depID] = true

			delta := DaysBetween(*dep.PlannedStart, cur.refEnd)
			newStart := cur.refEnd
			var shiftedEnd *time.Time
			switch {
			case dep.DurationDays != nil:
				t := AddDays(newStart, *dep.DurationDays)
				shiftedEnd = &t
			case dep.PlannedEnd != nil:
				t := AddDays(*dep.PlannedEnd, delta)
				shiftedEnd = &t
			}

			out = append(out, Shift{
				StageID:     depID,
				TriggeredBy: cur.id,
				OldStart:    dep.PlannedStart,
				OldEnd:      dep.PlannedEnd,
				NewStart:    newStart,
				NewEnd:      shiftedEnd,
				DeltaDays:   delta,
			})

			if shiftedEnd != nil {
				queue = append(queue, item{id: depID, refEnd: *shiftedEnd})
			}
		}
	}
	return out
}
