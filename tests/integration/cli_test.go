package integration

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todos/internal/tracker"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// TestMain builds the todos binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		fmt.Fprintln(os.Stderr, "find project root:", err)
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "todos-test-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, "create temp dir:", err)
		os.Exit(1)
	}
	todosBin = filepath.Join(tmpDir, "todos")

	cmd := exec.Command("go", "build", "-o", todosBin, "./cmd/todos")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = &BuildError{Err: err, Output: string(output)}
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func TestInitCreatesDataDir(t *testing.T) {
	env := NewTestEnv(t, types.BackendFile)

	result := env.MustRunTodos("init")
	assert.Contains(t, result.Stdout, "initialized")
	assert.DirExists(t, env.DataDir)

	// Running init twice is harmless.
	env.MustRunTodos("init")
}

func TestTasksPersistAcrossInvocations(t *testing.T) {
	for _, backend := range []string{types.BackendFile, types.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			env := NewTestEnv(t, backend)

			first := ParseJSON[types.Task](t, env.MustRunTodos("--json", "add", "Pay rent", "--category", "personal", "--priority", "high", "--due", "2024-05-01").Stdout)
			second := ParseJSON[types.Task](t, env.MustRunTodos("--json", "add", "Buy bread", "--category", "shopping").Stdout)
			assert.NotEqual(t, first.ID, second.ID)

			env.MustRunTodos("toggle", second.ID)

			snap := ParseJSON[tracker.Snapshot](t, env.MustRunTodos("--json", "list").Stdout)
			require.Len(t, snap.Tasks, 2)
			assert.Equal(t, second.ID, snap.Tasks[0].ID, "newest first")
			assert.True(t, snap.Tasks[0].Completed)
			assert.Equal(t, "Shopping", snap.Tasks[0].Category.Name)
			assert.Equal(t, types.Stats{Total: 2, Active: 1, Completed: 1}, snap.Stats)

			env.MustRunTodos("delete", first.ID)
			snap = ParseJSON[tracker.Snapshot](t, env.MustRunTodos("--json", "list").Stdout)
			require.Len(t, snap.Tasks, 1)
		})
	}
}

func TestFileBackendLayout(t *testing.T) {
	env := NewTestEnv(t, types.BackendFile)
	env.MustRunTodos("add", "Water plants")
	env.MustRunTodos("category", "add", "Garden")

	tasks := ReadJSONFile[[]types.Task](t, filepath.Join(env.DataDir, "todos.json"))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Water plants", tasks[0].Title)
	assert.Equal(t, types.CategoryPersonal, tasks[0].CategoryID)

	cats := ReadJSONFile[[]types.Category](t, filepath.Join(env.DataDir, "categories.json"))
	require.Len(t, cats, len(types.DefaultCategories())+1)
	assert.Equal(t, "Garden", cats[len(cats)-1].Name)
}

func TestCorruptTaskFileStartsEmpty(t *testing.T) {
	env := NewTestEnv(t, types.BackendFile)
	require.NoError(t, os.MkdirAll(env.DataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.DataDir, "todos.json"), []byte("{broken"), 0o644))

	snap := ParseJSON[tracker.Snapshot](t, env.MustRunTodos("--json", "list").Stdout)
	assert.Empty(t, snap.Tasks)
	assert.Equal(t, types.DefaultCategories(), snap.Categories)
}

func TestBatchSyncFlushesOnExit(t *testing.T) {
	env := NewTestEnv(t, types.BackendFile)
	env.Env = []string{"TODOS_SYNC_STRATEGY=batch", "TODOS_BATCH_SIZE=100", "TODOS_BATCH_INTERVAL=1h"}

	env.MustRunTodos("add", "Queued task")

	tasks := ReadJSONFile[[]types.Task](t, filepath.Join(env.DataDir, "todos.json"))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Queued task", tasks[0].Title)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := NewTestEnv(t, types.BackendFile)
	src.MustRunTodos("add", "One")
	src.MustRunTodos("add", "Two", "--priority", "low")

	outDir := t.TempDir()
	src.MustRunTodos("export", "--out", outDir)
	name := fmt.Sprintf("todos-%s.json", time.Now().UTC().Format(time.DateOnly))
	exported := filepath.Join(outDir, name)
	require.FileExists(t, exported)

	dst := NewTestEnv(t, types.BackendSQLite)
	dst.MustRunTodos("add", "Replaced")
	result := dst.MustRunTodos("import", exported)
	assert.Contains(t, result.Stdout, "Imported 2 tasks")

	snap := ParseJSON[tracker.Snapshot](t, dst.MustRunTodos("--json", "list").Stdout)
	var titles []string
	for _, it := range snap.Tasks {
		titles = append(titles, it.Title)
	}
	assert.ElementsMatch(t, []string{"One", "Two"}, titles)
}

func TestImportRejectsNonArray(t *testing.T) {
	env := NewTestEnv(t, types.BackendFile)
	env.MustRunTodos("add", "Keep me")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"tasks":[]}`), 0o644))

	result := env.RunTodos("import", bad)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, "import failed")

	snap := ParseJSON[tracker.Snapshot](t, env.MustRunTodos("--json", "list").Stdout)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "Keep me", snap.Tasks[0].Title)
}

func TestExitCodes(t *testing.T) {
	env := NewTestEnv(t, types.BackendFile)

	assert.Equal(t, 1, env.RunTodos("toggle", "no-such-id").ExitCode)
	assert.Equal(t, 1, env.RunTodos("add", "x", "--priority", "urgent").ExitCode)
	assert.Equal(t, 1, env.RunTodos("--backend", "redis", "list").ExitCode, "redis without redis_url")

	blocked := filepath.Join(env.TempDir, "blocked")
	require.NoError(t, os.WriteFile(blocked, nil, 0o644))
	result := env.RunTodos("--data-dir", filepath.Join(blocked, "data"), "list")
	assert.Equal(t, 2, result.ExitCode, result.Stderr)
}

func TestServeHTTP(t *testing.T) {
	env := NewTestEnv(t, types.BackendFile)
	addr := freeAddr(t)

	cmd := env.Command("serve", "--addr", addr)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	base := "http://" + addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	resp, err := http.Post(base+"/api/tasks", "application/json",
		strings.NewReader(`{"title":"From HTTP","categoryId":"work","priority":"high"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, cmd.Process.Signal(syscall.SIGINT))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("serve did not shut down")
	}

	snap := ParseJSON[tracker.Snapshot](t, env.MustRunTodos("--json", "list").Stdout)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "From HTTP", snap.Tasks[0].Title)
	assert.Equal(t, "Work", snap.Tasks[0].Category.Name)
}

// freeAddr returns a loopback address with a port that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}
