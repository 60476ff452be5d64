package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/woodline/engine/internal/models"
)

// Assignment is the planned window given to one stage by the initial
// scheduler.
type Assignment struct {
	StageID uuid.UUID
	Start   time.Time
	End     time.Time
}

// InitialSchedule lays out every stage of a project sequentially from the
// anchor date, in declared sort_order: a stage's planned start is the
// anchor plus the summed durations of all stages ordered before it, and its
// planned end is its start plus its own duration. The dependency graph is
// deliberately not consulted here; use Graph.OrderConflicts to detect when
// the declared order disagrees with the dependency topology.
func InitialSchedule(stages []models.Stage, anchor time.Time) []Assignment {
	sorted := make([]models.Stage, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})

	out := make([]Assignment, 0, len(sorted))
	offset := 0
	for _, st := range sorted {
		start := AddDays(anchor, offset)
		end := AddDays(start, st.Duration())
		out = append(out, Assignment{StageID: st.ID, Start: start, End: end})
		offset += st.Duration()
	}
	return out
}
