package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/todos/internal/storage"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// Writer schedules collection snapshots onto a Store according to a sync
// strategy:
//
//   - immediate: every Save writes through.
//   - on_close: the latest snapshot per key is held until Flush or Close.
//   - batch: snapshots are held until BatchSize saves accumulate or
//     BatchInterval elapses, whichever comes first.
//
// Held snapshots coalesce per key; only the newest one is written. Write
// failures are logged and dropped so callers never see them from Save.
type Writer struct {
	store  storage.Store
	logger *log.Logger

	strategy      string
	batchSize     int
	batchInterval time.Duration

	mu      sync.Mutex
	pending map[string][]byte
	order   []string // keys in first-pending order
	queued  int      // saves since the last flush
	timer   *time.Timer
	closed  bool
}

// NewWriter returns a Writer over store configured from cfg. An empty
// SyncStrategy means immediate. For batch with a positive BatchInterval an
// interval timer is started; Close stops it.
func NewWriter(store storage.Store, cfg types.Config, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.StandardLogger()
	}
	strategy := cfg.SyncStrategy
	if strategy == "" {
		strategy = types.SyncImmediate
	}
	w := &Writer{
		store:         store,
		logger:        logger,
		strategy:      strategy,
		batchSize:     cfg.BatchSize,
		batchInterval: cfg.BatchInterval,
		pending:       make(map[string][]byte),
	}
	if w.strategy == types.SyncBatch && w.batchInterval > 0 {
		w.startBatchTimer()
	}
	return w
}

// Strategy returns the effective sync strategy.
func (w *Writer) Strategy() string {
	return w.strategy
}

// Save hands a snapshot of key to the scheduler. It never returns an error;
// a failed write is logged and the previously stored value stays in place.
func (w *Writer) Save(ctx context.Context, key string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.strategy == types.SyncImmediate {
		_ = w.writeLocked(ctx, key, data)
		return
	}

	if _, ok := w.pending[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pending[key] = data
	w.queued++

	if w.strategy == types.SyncBatch && w.batchSize > 0 && w.queued >= w.batchSize {
		_ = w.flushLocked(ctx)
	}
}

// Load returns the newest snapshot for key: a pending one if the scheduler
// still holds it, otherwise whatever the store has.
func (w *Writer) Load(ctx context.Context, key string) ([]byte, error) {
	w.mu.Lock()
	data, ok := w.pending[key]
	w.mu.Unlock()
	if ok {
		return data, nil
	}
	return w.store.Get(ctx, key)
}

// Pending reports how many keys hold an unwritten snapshot.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Flush writes every pending snapshot. Failed snapshots are logged and
// dropped; the first failure is returned so shutdown paths can report it.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

// Close stops the batch timer and flushes pending snapshots. Saves after
// Close write through. Close does not close the underlying store.
func (w *Writer) Close(ctx context.Context) error {
	w.stopBatchTimer()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	err := w.flushLocked(ctx)
	w.closed = true
	return err
}

// flushLocked writes and clears the pending set. The caller must hold w.mu.
func (w *Writer) flushLocked(ctx context.Context) error {
	var first error
	for _, key := range w.order {
		if err := w.writeLocked(ctx, key, w.pending[key]); err != nil && first == nil {
			first = err
		}
	}
	w.pending = make(map[string][]byte)
	w.order = nil
	w.queued = 0
	return first
}

// writeLocked performs one write and logs a failure. The caller must hold
// w.mu so writes reach the store in save order.
func (w *Writer) writeLocked(ctx context.Context, key string, data []byte) error {
	if err := w.store.Set(ctx, key, data); err != nil {
		err = fmt.Errorf("%w: key %s: %w", types.ErrStorageWrite, key, err)
		w.logger.WithError(err).WithField("key", key).Error("persisting collection failed")
		return err
	}
	return nil
}

// startBatchTimer starts the interval timer for periodic flushes.
func (w *Writer) startBatchTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		return
	}
	w.timer = time.AfterFunc(w.batchInterval, func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		if w.closed || w.timer == nil {
			return
		}
		_ = w.flushLocked(context.Background())
		w.timer.Reset(w.batchInterval)
	})
}

// stopBatchTimer stops the interval timer if running.
func (w *Writer) stopBatchTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
