package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/todos/internal/storage"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// Storage keys for the two persisted collections.
const (
	KeyTasks      = "todos"
	KeyCategories = "categories"
)

// Adapter loads and saves the typed collections. Loads never fail: absent or
// unreadable data yields the documented fallback and corruption is logged.
type Adapter struct {
	writer *Writer
	logger *log.Logger
}

// NewAdapter returns an Adapter that reads through and saves via writer.
func NewAdapter(writer *Writer, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Adapter{writer: writer, logger: logger}
}

// Writer returns the scheduler behind the adapter.
func (a *Adapter) Writer() *Writer {
	return a.writer
}

// LoadTasks returns the stored task collection, or an empty one when the key
// is absent or its contents cannot be read or decoded.
func (a *Adapter) LoadTasks(ctx context.Context) []types.Task {
	data, ok := a.read(ctx, KeyTasks)
	if !ok {
		return []types.Task{}
	}
	var tasks []types.Task
	if err := sonic.ConfigStd.Unmarshal(data, &tasks); err != nil {
		a.logCorrupt(KeyTasks, err)
		return []types.Task{}
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	return tasks
}

// LoadCategories returns the stored categories, or the default set when the
// key is absent, holds an empty array, or cannot be read or decoded.
func (a *Adapter) LoadCategories(ctx context.Context) []types.Category {
	data, ok := a.read(ctx, KeyCategories)
	if !ok {
		return types.DefaultCategories()
	}
	var cats []types.Category
	if err := sonic.ConfigStd.Unmarshal(data, &cats); err != nil {
		a.logCorrupt(KeyCategories, err)
		return types.DefaultCategories()
	}
	if len(cats) == 0 {
		return types.DefaultCategories()
	}
	return cats
}

// SaveTasks persists the whole task collection. Failures are logged.
func (a *Adapter) SaveTasks(ctx context.Context, tasks []types.Task) {
	if tasks == nil {
		tasks = []types.Task{}
	}
	a.save(ctx, KeyTasks, tasks)
}

// SaveCategories persists the whole category collection. Failures are
// logged.
func (a *Adapter) SaveCategories(ctx context.Context, cats []types.Category) {
	if cats == nil {
		cats = []types.Category{}
	}
	a.save(ctx, KeyCategories, cats)
}

func (a *Adapter) save(ctx context.Context, key string, v any) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		err = fmt.Errorf("%w: encoding %s: %w", types.ErrStorageWrite, key, err)
		a.logger.WithError(err).WithField("key", key).Error("persisting collection failed")
		return
	}
	a.writer.Save(ctx, key, data)
}

// read returns the stored bytes for key. ok is false when the key is absent
// or the read failed; failures other than absence are logged.
func (a *Adapter) read(ctx context.Context, key string) (data []byte, ok bool) {
	data, err := a.writer.Load(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		err = fmt.Errorf("%w: key %s: %w", types.ErrStorageRead, key, err)
		a.logger.WithError(err).WithField("key", key).Warn("reading collection failed, using fallback")
		return nil, false
	}
	return data, true
}

func (a *Adapter) logCorrupt(key string, err error) {
	err = fmt.Errorf("%w: decoding %s: %w", types.ErrStorageRead, key, err)
	a.logger.WithError(err).WithField("key", key).Warn("stored collection is corrupt, using fallback")
}
