package tracker

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mesh-intelligence/todos/internal/persist"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// TaskStore owns the ordered task collection, newest first. Every mutation,
// including ones that change nothing, persists the whole collection.
type TaskStore struct {
	mu      sync.RWMutex
	tasks   []types.Task
	adapter *persist.Adapter
	now     func() time.Time
	newID   func() string
}

// NewTaskStore returns an empty store. Call Load to read persisted tasks.
func NewTaskStore(adapter *persist.Adapter, opts ...Option) *TaskStore {
	o := buildOptions(opts)
	return &TaskStore{
		tasks:   []types.Task{},
		adapter: adapter,
		now:     o.now,
		newID:   o.newID,
	}
}

// Load replaces the collection with the persisted tasks.
func (s *TaskStore) Load(ctx context.Context) {
	tasks := s.adapter.LoadTasks(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
}

// Add prepends a new task and returns it. A title that is blank after
// trimming is rejected. An empty priority defaults to medium.
func (s *TaskStore) Add(ctx context.Context, nt types.NewTask) (types.Task, bool) {
	title := strings.TrimSpace(nt.Title)
	if title == "" {
		return types.Task{}, false
	}
	priority := nt.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := types.Task{
		ID:          s.newID(),
		Title:       title,
		Description: nt.Description,
		CategoryID:  nt.CategoryID,
		Priority:    priority,
		DueDate:     nt.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks = slices.Insert(s.tasks, 0, t)
	s.saveLocked(ctx)
	return t, true
}

// Update merges the provided fields into the task with id and refreshes
// UpdatedAt. It returns the updated task, or false for an unknown id.
func (s *TaskStore) Update(ctx context.Context, id string, p types.TaskPatch) (types.Task, bool) {
	return s.modify(ctx, id, func(t *types.Task, now time.Time) { t.Apply(p, now) })
}

// Toggle flips the completion flag of the task with id.
func (s *TaskStore) Toggle(ctx context.Context, id string) (types.Task, bool) {
	return s.modify(ctx, id, func(t *types.Task, now time.Time) { t.Toggle(now) })
}

// Delete removes the task with id and reports whether it existed. The
// collection is persisted either way.
func (s *TaskStore) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i >= 0 {
		s.tasks = slices.Delete(s.tasks, i, i+1)
	}
	s.saveLocked(ctx)
	return i >= 0
}

// ReplaceAll swaps in tasks wholesale without validation.
func (s *TaskStore) ReplaceAll(ctx context.Context, tasks []types.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = slices.Clone(tasks)
	if s.tasks == nil {
		s.tasks = []types.Task{}
	}
	s.saveLocked(ctx)
}

// All returns a copy of the unfiltered collection.
func (s *TaskStore) All() []types.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// Get returns the task with id.
func (s *TaskStore) Get(id string) (types.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], true
	}
	return types.Task{}, false
}

func (s *TaskStore) modify(ctx context.Context, id string, fn func(*types.Task, time.Time)) (types.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i >= 0 {
		fn(&s.tasks[i], s.now())
	}
	s.saveLocked(ctx)
	if i < 0 {
		return types.Task{}, false
	}
	return s.tasks[i], true
}

func (s *TaskStore) indexLocked(id string) int {
	return slices.IndexFunc(s.tasks, func(t types.Task) bool { return t.ID == id })
}

// saveLocked persists the collection. The caller must hold s.mu.
func (s *TaskStore) saveLocked(ctx context.Context) {
	s.adapter.SaveTasks(ctx, slices.Clone(s.tasks))
}
