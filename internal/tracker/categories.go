package tracker

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/mesh-intelligence/todos/internal/persist"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// CategoryStore owns the ordered category collection. The collection is
// never empty. Until Load completes, mutations change memory only; after
// that every successful mutation persists the whole collection.
type CategoryStore struct {
	mu      sync.RWMutex
	cats    []types.Category
	loaded  bool
	adapter *persist.Adapter
	newID   func() string
}

// NewCategoryStore returns a store holding the default categories. Call
// Load to replace them with the persisted set.
func NewCategoryStore(adapter *persist.Adapter, opts ...Option) *CategoryStore {
	o := buildOptions(opts)
	return &CategoryStore{
		cats:    types.DefaultCategories(),
		adapter: adapter,
		newID:   o.newID,
	}
}

// Load reads the persisted categories, falling back to the defaults.
func (s *CategoryStore) Load(ctx context.Context) {
	cats := s.adapter.LoadCategories(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cats = cats
	s.loaded = true
}

// Add appends a category and returns its new ID. A name that is blank after
// trimming is rejected and "" is returned.
func (s *CategoryStore) Add(ctx context.Context, name, color string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := types.Category{ID: s.newID(), Name: name, Color: color}
	s.cats = append(s.cats, c)
	s.saveLocked(ctx)
	return c.ID
}

// Update merges the provided fields into the category with id. It reports
// whether the category exists. A provided name that is blank after trimming
// is ignored.
func (s *CategoryStore) Update(ctx context.Context, id string, p types.CategoryPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	c := &s.cats[i]
	if p.Name != nil {
		if name := strings.TrimSpace(*p.Name); name != "" {
			c.Name = name
		}
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	s.saveLocked(ctx)
	return true
}

// Delete removes the category with id and reports whether it did. Deleting
// the last remaining category or an unknown id does nothing. Tasks that
// reference the category are left alone.
func (s *CategoryStore) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 || len(s.cats) <= 1 {
		return false
	}
	s.cats = slices.Delete(s.cats, i, i+1)
	s.saveLocked(ctx)
	return true
}

// Get returns the category with id.
func (s *CategoryStore) Get(id string) (types.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.cats[i], true
	}
	return types.Category{}, false
}

// Resolve returns the category with id, or the fallback category when the
// reference is orphaned.
func (s *CategoryStore) Resolve(id string) types.Category {
	if c, ok := s.Get(id); ok {
		return c
	}
	return types.FallbackCategory(id)
}

// All returns a copy of the collection in order.
func (s *CategoryStore) All() []types.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cats)
}

func (s *CategoryStore) indexLocked(id string) int {
	return slices.IndexFunc(s.cats, func(c types.Category) bool { return c.ID == id })
}

// saveLocked persists the collection once loaded. The caller must hold s.mu.
func (s *CategoryStore) saveLocked(ctx context.Context) {
	if !s.loaded || len(s.cats) == 0 {
		return
	}
	s.adapter.SaveCategories(ctx, slices.Clone(s.cats))
}
