// Package tracker holds the canonical task and category collections and
// exposes typed mutations plus a derived, read-only snapshot to the CLI, the
// HTTP API, and the MCP server.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/todos/internal/persist"
	"github.com/mesh-intelligence/todos/internal/storage"
	"github.com/mesh-intelligence/todos/internal/view"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// Tracker wires storage, the persistence adapter, and both stores together.
type Tracker struct {
	store      storage.Store
	writer     *persist.Writer
	adapter    *persist.Adapter
	tasks      *TaskStore
	categories *CategoryStore
	logger     *log.Logger
	now        func() time.Time
}

// Item is a task paired with the category it renders with. Orphaned
// references resolve to the fallback category.
type Item struct {
	types.Task
	Category types.Category `json:"category"`
}

// Snapshot is the derived state handed to presentation layers.
type Snapshot struct {
	Tasks      []Item           `json:"tasks"`
	Stats      types.Stats      `json:"stats"`
	Categories []types.Category `json:"categories"`
	Filters    types.Filters    `json:"filters"`
}

// Open opens the backend selected by cfg and loads both collections.
func Open(ctx context.Context, cfg types.Config, logger *log.Logger, opts ...Option) (*Tracker, error) {
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Backend, err)
	}
	return New(ctx, store, cfg, logger, opts...), nil
}

// New builds a Tracker over an already opened store and loads both
// collections. The Tracker takes ownership of store.
func New(ctx context.Context, store storage.Store, cfg types.Config, logger *log.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = log.StandardLogger()
	}
	writer := persist.NewWriter(store, cfg, logger)
	adapter := persist.NewAdapter(writer, logger)
	o := buildOptions(opts)

	t := &Tracker{
		store:      store,
		writer:     writer,
		adapter:    adapter,
		tasks:      NewTaskStore(adapter, opts...),
		categories: NewCategoryStore(adapter, opts...),
		logger:     logger,
		now:        o.now,
	}
	t.categories.Load(ctx)
	t.tasks.Load(ctx)
	logger.WithFields(log.Fields{
		"backend":    cfg.Backend,
		"sync":       writer.Strategy(),
		"tasks":      len(t.tasks.All()),
		"categories": len(t.categories.All()),
	}).Debug("tracker loaded")
	return t
}

// Tasks returns the task store.
func (t *Tracker) Tasks() *TaskStore { return t.tasks }

// Categories returns the category store.
func (t *Tracker) Categories() *CategoryStore { return t.categories }

// Snapshot derives the current view for f.
func (t *Tracker) Snapshot(f types.Filters) Snapshot {
	f = f.Normalize()
	v := view.Derive(t.tasks.All(), f)
	items := make([]Item, len(v.Tasks))
	for i, task := range v.Tasks {
		items[i] = Item{Task: task, Category: t.categories.Resolve(task.CategoryID)}
	}
	return Snapshot{
		Tasks:      items,
		Stats:      v.Stats,
		Categories: t.categories.All(),
		Filters:    f,
	}
}

// Export writes the full task collection in the export format.
func (t *Tracker) Export(w io.Writer) error {
	return persist.Export(w, t.tasks.All())
}

// ExportName returns the suggested file name for an export made now.
func (t *Tracker) ExportName() string {
	return persist.ExportFileName(t.now())
}

// ExportFile writes an export into dir and returns the file path.
func (t *Tracker) ExportFile(dir string) (string, error) {
	return persist.ExportFile(dir, t.tasks.All(), t.now())
}

// Import parses r and replaces the task collection with its contents,
// returning the number of imported tasks. On a parse error the collection
// is left untouched.
func (t *Tracker) Import(ctx context.Context, r io.Reader) (int, error) {
	tasks, err := persist.Import(r)
	if err != nil {
		return 0, err
	}
	return t.replace(ctx, tasks), nil
}

// ImportFile imports the file at path. The file is read in the background
// and the call waits for its single result; once started the import cannot
// be cancelled. ctx is only used for the save that follows.
func (t *Tracker) ImportFile(ctx context.Context, path string) (int, error) {
	res := <-persist.ImportFile(path)
	if res.Err != nil {
		return 0, res.Err
	}
	return t.replace(ctx, res.Tasks), nil
}

func (t *Tracker) replace(ctx context.Context, tasks []types.Task) int {
	t.tasks.ReplaceAll(ctx, tasks)
	t.logger.WithField("tasks", len(tasks)).Info("tasks imported")
	return len(tasks)
}

// Flush writes any snapshots held by the sync strategy.
func (t *Tracker) Flush(ctx context.Context) error {
	return t.writer.Flush(ctx)
}

// Close flushes pending writes and closes the storage backend.
func (t *Tracker) Close(ctx context.Context) error {
	return errors.Join(t.writer.Close(ctx), t.store.Close())
}
