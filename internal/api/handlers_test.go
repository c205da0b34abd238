package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todos/internal/storage"
	"github.com/mesh-intelligence/todos/internal/tracker"
	"github.com/mesh-intelligence/todos/pkg/types"
)

func newTestServer(t *testing.T) (*echo.Echo, *tracker.Tracker, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	tr := tracker.New(context.Background(), storage.NewMemoryStore(), types.Config{Backend: types.BackendMemory}, logger)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })
	return NewServer(tr, logger), tr, hook
}

func do(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type snapshotBody struct {
	Applied    bool             `json:"applied"`
	Task       *types.Task      `json:"task"`
	Category   *types.Category  `json:"category"`
	Tasks      []tracker.Item   `json:"tasks"`
	Stats      types.Stats      `json:"stats"`
	Categories []types.Category `json:"categories"`
	Error      string           `json:"error"`
	Imported   int              `json:"imported"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) snapshotBody {
	t.Helper()
	var body snapshotBody
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealthz(t *testing.T) {
	e, _, _ := newTestServer(t)
	rec := do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	e, tr, hook := newTestServer(t)

	rec := do(t, e, http.MethodPost, "/api/tasks", `{"title":"  Write tests ","categoryId":"work","priority":"high"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.True(t, body.Applied)
	require.NotNil(t, body.Task)
	assert.Equal(t, "Write tests", body.Task.Title)
	assert.Equal(t, types.Stats{Total: 1, Active: 1}, body.Stats)
	id := body.Task.ID

	rec = do(t, e, http.MethodPatch, "/api/tasks/"+id, `{"title":"Write more tests","dueDate":"2024-05-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.True(t, body.Applied)
	assert.Equal(t, "Write more tests", body.Task.Title)
	assert.Equal(t, "2024-05-01", body.Task.DueDate)

	rec = do(t, e, http.MethodPost, "/api/tasks/"+id+"/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.True(t, body.Task.Completed)
	assert.Equal(t, types.Stats{Total: 1, Completed: 1}, body.Stats)

	rec = do(t, e, http.MethodGet, "/api/tasks?status=active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Empty(t, body.Tasks)
	assert.Equal(t, 1, body.Stats.Total)

	rec = do(t, e, http.MethodDelete, "/api/tasks/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Applied)
	assert.Empty(t, tr.Tasks().All())

	assert.NotEmpty(t, hook.AllEntries(), "requests are logged")
}

func TestRejectedMutationsReturnState(t *testing.T) {
	e, tr, _ := newTestServer(t)
	_, ok := tr.Tasks().Add(context.Background(), types.NewTask{Title: "existing", CategoryID: "work"})
	require.True(t, ok)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{name: "blank title", method: http.MethodPost, target: "/api/tasks", body: `{"title":"   ","categoryId":"work"}`},
		{name: "unknown task patch", method: http.MethodPatch, target: "/api/tasks/missing", body: `{"title":"x"}`},
		{name: "unknown task toggle", method: http.MethodPost, target: "/api/tasks/missing/toggle"},
		{name: "unknown task delete", method: http.MethodDelete, target: "/api/tasks/missing"},
		{name: "blank category", method: http.MethodPost, target: "/api/categories", body: `{"name":" ","color":"#fff"}`},
		{name: "unknown category", method: http.MethodPatch, target: "/api/categories/missing", body: `{"name":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, tt.method, tt.target, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.False(t, body.Applied)
			assert.Len(t, body.Tasks, 1)
			assert.Len(t, body.Categories, 4)
		})
	}
}

func TestBadRequests(t *testing.T) {
	e, _, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{name: "bad status filter", method: http.MethodGet, target: "/api/tasks?status=done"},
		{name: "bad sort", method: http.MethodGet, target: "/api/tasks?sortBy=title"},
		{name: "bad priority filter", method: http.MethodGet, target: "/api/tasks?priority=urgent"},
		{name: "malformed body", method: http.MethodPost, target: "/api/tasks", body: `{"title":`},
		{name: "unknown field", method: http.MethodPost, target: "/api/tasks", body: `{"title":"x","id":"forced"}`},
		{name: "bad priority", method: http.MethodPost, target: "/api/tasks", body: `{"title":"x","priority":"urgent"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode(t, rec).Error)
		})
	}
}

func TestCategoryEndpoints(t *testing.T) {
	e, tr, _ := newTestServer(t)

	rec := do(t, e, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.DefaultCategories(), decode(t, rec).Categories)

	rec = do(t, e, http.MethodPost, "/api/categories", `{"name":"Garden","color":"#00ff00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Category)
	id := body.Category.ID
	assert.Equal(t, "Garden", body.Category.Name)

	rec = do(t, e, http.MethodPatch, "/api/categories/"+id, `{"color":"#123456"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "#123456", decode(t, rec).Category.Color)

	rec = do(t, e, http.MethodDelete, "/api/categories/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Applied)
	_, ok := tr.Categories().Get(id)
	assert.False(t, ok)
}

func TestExportImport(t *testing.T) {
	e, tr, _ := newTestServer(t)
	_, ok := tr.Tasks().Add(context.Background(), types.NewTask{Title: "exported", CategoryID: "work"})
	require.True(t, ok)

	rec := do(t, e, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `attachment; filename="todos-`)
	exported := rec.Body.String()
	assert.True(t, strings.HasPrefix(exported, "[\n  {"))

	other, otherTr, _ := newTestServer(t)
	rec = do(t, other, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode(t, rec).Imported)
	assert.Equal(t, tr.Tasks().All(), otherTr.Tasks().All())

	rec = do(t, other, http.MethodPost, "/api/import", `{"not":"an array"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Error, "import failed")
	assert.Len(t, otherTr.Tasks().All(), 1, "failed import leaves the collection")
}
