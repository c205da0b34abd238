package persist

import (
	"context"
	"errors"
	"sync"

	"github.com/mesh-intelligence/todos/internal/storage"
)

var errInjected = errors.New("injected failure")

// flakyStore wraps a MemoryStore and fails on demand.
type flakyStore struct {
	*storage.MemoryStore

	mu      sync.Mutex
	failSet bool
	failGet bool
	sets    int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: storage.NewMemoryStore()}
}

func (f *flakyStore) setFailures(get, set bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet, f.failSet = get, set
}

func (f *flakyStore) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failSet
	f.sets++
	f.mu.Unlock()
	if fail {
		return errInjected
	}
	return f.MemoryStore.Set(ctx, key, value)
}
