package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// testStoreContract exercises the behavior every backend must share.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key returns ErrNotFound", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get round-trips bytes", func(t *testing.T) {
		want := []byte(`[{"id":"1","title":"テスト"}]`)
		require.NoError(t, s.Set(ctx, "todos", want))
		got, err := s.Get(ctx, "todos")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("set replaces the previous value", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "categories", []byte(`[1]`)))
		require.NoError(t, s.Set(ctx, "categories", []byte(`[]`)))
		got, err := s.Get(ctx, "categories")
		require.NoError(t, err)
		assert.Equal(t, []byte(`[]`), got)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "a", []byte(`"a"`)))
		require.NoError(t, s.Set(ctx, "b", []byte(`"b"`)))
		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte(`"a"`), got)
	})

	t.Run("invalid keys are rejected", func(t *testing.T) {
		for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
			assert.ErrorIs(t, s.Set(ctx, key, []byte("x")), ErrInvalidKey, "key %q", key)
			_, err := s.Get(ctx, key)
			assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	testStoreContract(t, s)

	t.Run("returned values are copies", func(t *testing.T) {
		ctx := context.Background()
		in := []byte("abc")
		require.NoError(t, s.Set(ctx, "copy", in))
		in[0] = 'z'
		got, err := s.Get(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), got)
		got[0] = 'y'
		again, _ := s.Get(ctx, "copy")
		assert.Equal(t, []byte("abc"), again)
	})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err := s.Get(context.Background(), "todos")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "data"))
	require.NoError(t, err)
	testStoreContract(t, s)

	t.Run("documents are plain json files", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(s.Dir(), "todos.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "テスト")
	})

	t.Run("no temp files are left behind", func(t *testing.T) {
		entries, err := os.ReadDir(s.Dir())
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp")
		}
	})

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Set(context.Background(), "todos", nil), ErrClosed)
}

func TestFileStoreFailedWriteKeepsPreviousValue(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "todos", []byte(`["old"]`)))

	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	err = s.Set(ctx, "todos", []byte(`["new"]`))
	require.Error(t, err)

	got, err := s.Get(ctx, "todos")
	require.NoError(t, err)
	assert.Equal(t, []byte(`["old"]`), got)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	err = WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "out.json"), []byte("x"))
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.db")
	s, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	testStoreContract(t, s)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close is idempotent")

	t.Run("values survive reopen", func(t *testing.T) {
		reopened, err := OpenSQLite(context.Background(), path)
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.Get(context.Background(), "todos")
		require.NoError(t, err)
		assert.Equal(t, []byte(`[{"id":"1","title":"テスト"}]`), got)
	})

	_, err = s.Get(context.Background(), "todos")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client)
	testStoreContract(t, s)

	t.Run("keys are namespaced", func(t *testing.T) {
		assert.True(t, mr.Exists("todos:todos"))
		assert.Equal(t, time.Duration(0), mr.TTL("todos:todos"), "documents never expire")
	})

	t.Run("server errors are not reported as missing", func(t *testing.T) {
		mr.SetError("LOADING")
		defer mr.SetError("")
		_, err := s.Get(context.Background(), "todos")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestOpenRedisAcceptsBareAddress(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	for _, url := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		s, err := OpenRedis(context.Background(), url)
		require.NoError(t, err, url)
		require.NoError(t, s.Set(context.Background(), "todos", []byte("[]")))
		require.NoError(t, s.Close())
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TODOS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TODOS_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := OpenMongo(ctx, uri, "todos_test_"+filepath.Base(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.coll.Database().Drop(context.Background())
		_ = s.Close()
	})
	testStoreContract(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := Open(ctx, types.Config{})
		assert.ErrorIs(t, err, types.ErrBackendEmpty)
	})

	t.Run("file backend", func(t *testing.T) {
		s, err := Open(ctx, types.Config{Backend: types.BackendFile, DataDir: t.TempDir()})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &FileStore{}, s)
	})

	t.Run("sqlite backend", func(t *testing.T) {
		dir := t.TempDir()
		s, err := Open(ctx, types.Config{Backend: types.BackendSQLite, DataDir: dir})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &SQLiteStore{}, s)
		assert.FileExists(t, filepath.Join(dir, "todos.db"))
	})

	t.Run("memory backend", func(t *testing.T) {
		s, err := Open(ctx, types.Config{Backend: types.BackendMemory})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, s)
	})

	t.Run("redis backend", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()
		s, err := Open(ctx, types.Config{Backend: types.BackendRedis, RedisURL: mr.Addr()})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &RedisStore{}, s)
	})
}
