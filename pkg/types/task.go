package types

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency of a task.
type Priority string

// Task priorities, highest first.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// priorityRank orders priorities for sorting; lower ranks sort first.
var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Rank returns the sort rank of the priority (high=0, medium=1, low=2).
// Unrecognized values, which can only arrive through import, rank after low.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// ParsePriority converts user input into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q (valid: high, medium, low)", ErrInvalidPriority, s)
	}
	return p, nil
}

// Task is a single trackable to-do item. JSON field names are the persisted
// layout under the "todos" key and in export files.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CategoryID  string    `json:"categoryId"`
	Priority    Priority  `json:"priority"`
	DueDate     string    `json:"dueDate,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// dueDateLayouts are tried in order when interpreting DueDate.
var dueDateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
}

// Due returns the parsed due date. ok is false when the task has no due date
// or the stored value cannot be interpreted as one.
func (t Task) Due() (due time.Time, ok bool) {
	s := strings.TrimSpace(t.DueDate)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dueDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// Touch sets UpdatedAt to now, never earlier than CreatedAt.
func (t *Task) Touch(now time.Time) {
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

// Toggle flips the completion flag and refreshes UpdatedAt.
func (t *Task) Toggle(now time.Time) {
	t.Completed = !t.Completed
	t.Touch(now)
}

// Apply merges the provided patch fields into the task and refreshes
// UpdatedAt even when no field changes. A title that is blank after trimming
// is ignored so a stored title is never empty.
func (t *Task) Apply(p TaskPatch, now time.Time) {
	if p.Title != nil {
		if title := strings.TrimSpace(*p.Title); title != "" {
			t.Title = title
		}
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	t.Touch(now)
}

// NewTask carries the fields a caller supplies when adding a task.
// Title, CategoryID, and Priority are required; the rest are optional.
type NewTask struct {
	Title       string   `json:"title"`
	CategoryID  string   `json:"categoryId"`
	Priority    Priority `json:"priority"`
	Description string   `json:"description,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
}

// TaskPatch lists the mutable task fields. A nil field is not provided and
// leaves the stored value alone. ID and CreatedAt cannot be patched.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
	CategoryID  *string   `json:"categoryId,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
}
