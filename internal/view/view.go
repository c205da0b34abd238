// Package view derives the presented task list from the canonical
// collection. Everything here is a pure function of its inputs.
package view

import (
	"slices"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// View is the derived, read-only presentation of the task collection.
type View struct {
	Tasks []types.Task `json:"tasks"`
	Stats types.Stats  `json:"stats"`
}

// Derive filters and sorts tasks according to f and computes stats over the
// unfiltered input. Filters apply in order status, category, priority; the
// sort is stable. The input slice is never modified.
func Derive(tasks []types.Task, f types.Filters) View {
	f = f.Normalize()
	out := make([]types.Task, 0, len(tasks))
	for _, t := range tasks {
		if matches(t, f) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, comparator(f.SortBy))
	return View{Tasks: out, Stats: ComputeStats(tasks)}
}

// ComputeStats counts total, active, and completed tasks.
func ComputeStats(tasks []types.Task) types.Stats {
	var s types.Stats
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
	}
	s.Total = len(tasks)
	s.Active = s.Total - s.Completed
	return s
}

func matches(t types.Task, f types.Filters) bool {
	switch f.Status {
	case types.StatusActive:
		if t.Completed {
			return false
		}
	case types.StatusCompleted:
		if !t.Completed {
			return false
		}
	}
	if f.CategoryID != types.All && t.CategoryID != f.CategoryID {
		return false
	}
	if f.Priority != types.All && t.Priority != f.Priority {
		return false
	}
	return true
}

// comparator returns the ordering for sortBy. Unknown keys fall back to
// newest first.
func comparator(sortBy types.SortBy) func(a, b types.Task) int {
	switch sortBy {
	case types.SortDueDate:
		return byDueDate
	case types.SortPriority:
		return byPriority
	default:
		return byCreatedDesc
	}
}

// byDueDate orders dated tasks ascending and puts undated ones after them.
// Two undated tasks compare equal.
func byDueDate(a, b types.Task) int {
	da, okA := a.Due()
	db, okB := b.Due()
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	return da.Compare(db)
}

func byPriority(a, b types.Task) int {
	return a.Priority.Rank() - b.Priority.Rank()
}

func byCreatedDesc(a, b types.Task) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}
