package types

import (
	"fmt"
	"strings"
)

// All is the wildcard value for the category and priority filters.
const All = "all"

// Status selects tasks by completion state.
type Status string

// Status filter values.
const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// SortBy names the ordering applied to the filtered view.
type SortBy string

// Sort keys.
const (
	SortCreatedAt SortBy = "createdAt"
	SortDueDate   SortBy = "dueDate"
	SortPriority  SortBy = "priority"
)

// Filters is the transient filter/sort specification owned by the
// presentation layer. It is never persisted.
type Filters struct {
	Status     Status   `json:"status"`
	CategoryID string   `json:"categoryId"`
	Priority   Priority `json:"priority"`
	SortBy     SortBy   `json:"sortBy"`
}

// DefaultFilters shows everything, newest first.
func DefaultFilters() Filters {
	return Filters{
		Status:     StatusAll,
		CategoryID: All,
		Priority:   All,
		SortBy:     SortCreatedAt,
	}
}

// Normalize replaces empty fields with their defaults.
func (f Filters) Normalize() Filters {
	if f.Status == "" {
		f.Status = StatusAll
	}
	if f.CategoryID == "" {
		f.CategoryID = All
	}
	if f.Priority == "" {
		f.Priority = All
	}
	if f.SortBy == "" {
		f.SortBy = SortCreatedAt
	}
	return f
}

// ParseFilters builds Filters from raw strings such as CLI flags or query
// parameters. Empty values take defaults; unknown enum values are rejected.
// The category is matched verbatim and never validated.
func ParseFilters(status, categoryID, priority, sortBy string) (Filters, error) {
	f := Filters{
		Status:     Status(strings.TrimSpace(status)),
		CategoryID: categoryID,
		Priority:   Priority(strings.ToLower(strings.TrimSpace(priority))),
		SortBy:     SortBy(strings.TrimSpace(sortBy)),
	}.Normalize()

	switch f.Status {
	case StatusAll, StatusActive, StatusCompleted:
	default:
		return Filters{}, fmt.Errorf("%w: %q (valid: all, active, completed)", ErrInvalidStatus, status)
	}
	if f.Priority != All && !f.Priority.Valid() {
		return Filters{}, fmt.Errorf("%w: %q (valid: all, high, medium, low)", ErrInvalidPriority, priority)
	}
	switch f.SortBy {
	case SortCreatedAt, SortDueDate, SortPriority:
	default:
		return Filters{}, fmt.Errorf("%w: %q (valid: createdAt, dueDate, priority)", ErrInvalidSort, sortBy)
	}
	return f, nil
}

// Stats aggregates the canonical, unfiltered task collection.
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}
