package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/todos/internal/tracker"
	"github.com/mesh-intelligence/todos/pkg/types"
)

const (
	maxBodySize   = 1 << 20
	maxImportSize = 16 << 20
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, tr *tracker.Tracker, logger *log.Logger) {
	e.GET("/api/tasks", getTasks(tr))
	e.POST("/api/tasks", postTask(tr))
	e.PATCH("/api/tasks/:id", patchTask(tr))
	e.POST("/api/tasks/:id/toggle", toggleTask(tr))
	e.DELETE("/api/tasks/:id", deleteTask(tr))

	e.GET("/api/categories", getCategories(tr))
	e.POST("/api/categories", postCategory(tr))
	e.PATCH("/api/categories/:id", patchCategory(tr))
	e.DELETE("/api/categories/:id", deleteCategory(tr))

	e.GET("/api/export", getExport(tr, logger))
	e.POST("/api/import", postImport(tr))
	e.GET("/healthz", healthz)
}

// mutationResponse reports whether a mutation was applied alongside the
// current default snapshot. Rejected input is not an error: the client gets
// applied=false and the unchanged state.
type mutationResponse struct {
	Applied  bool            `json:"applied"`
	Task     *types.Task     `json:"task,omitempty"`
	Category *types.Category `json:"category,omitempty"`
	tracker.Snapshot
}

type errorResponse struct {
	Error string `json:"error"`
}

type categoriesResponse struct {
	Categories []types.Category `json:"categories"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

type newCategory struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func getTasks(tr *tracker.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, err := types.ParseFilters(
			c.QueryParam("status"),
			c.QueryParam("categoryId"),
			c.QueryParam("priority"),
			c.QueryParam("sortBy"),
		)
		if err != nil {
			return badRequest(c, err)
		}
		return c.JSON(http.StatusOK, tr.Snapshot(f))
	}
}

func postTask(tr *tracker.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		var nt types.NewTask
		if err := decodeBody(c, &nt); err != nil {
			return badRequest(c, err)
		}
		if nt.Priority != "" && !nt.Priority.Valid() {
			return badRequest(c, fmt.Errorf("%w: %q", types.ErrInvalidPriority, nt.Priority))
		}
		task, ok := tr.Tasks().Add(c.Request().Context(), nt)
		if !ok {
			return c.JSON(http.StatusOK, rejected(tr))
		}
		resp := applied(tr)
		resp.Task = &task
		return c.JSON(http.StatusCreated, resp)
	}
}

func patchTask(tr *tracker.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p types.TaskPatch
		if err := decodeBody(c, &p); err != nil {
			return badRequest(c, err)
		}
		if p.Priority != nil && !p.Priority.Valid() {
			return badRequest(c, fmt.Errorf("%w: %q", types.ErrInvalidPriority, *p.Priority))
		}
		task, ok := tr.Tasks().Update(c.Request().Context(), c.Param("id"), p)
		return c.JSON(http.StatusOK, taskResult(tr, task, ok))
	}
}

func toggleTask(tr *tracker.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, ok := tr.Tasks().Toggle(c.Request().Context(), c.Param("id"))
		return c.JSON(http.StatusOK, taskResult(tr, task, ok))
	}
}

func deleteTask(tr *tracker.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ok := tr.Tasks().Delete(c.Request().Context(), c.Param("id"))
		if !ok {
			return c.JSON(http.StatusOK, rejected(tr))
		}
		return c.JSON(http.StatusOK, applied(tr))
	}
}

func getCategories(tr *tracker.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, categoriesResponse{Categories: tr.Categories().All()})
	}
}

func postCategory(tr *tracker.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		var nc newCategory
		if err := decodeBody(c, &nc); err != nil {
			return badRequest(c, err)
		}
		id := tr.Categories().Add(c.Request().Context(), nc.Name, nc.Color)
		if id == "" {
			return c.JSON(http.StatusOK, rejected(tr))
		}
		resp := applied(tr)
		if cat, ok := tr.Categories().Get(id); ok {
			resp.Category = &cat
		}
		return c.JSON(http.StatusCreated, resp)
	}
}

func patchCategory(tr *tracker.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p types.CategoryPatch
		if err := decodeBody(c, &p); err != nil {
			return badRequest(c, err)
		}
		id := c.Param("id")
		if !tr.Categories().Update(c.Request().Context(), id, p) {
			return c.JSON(http.StatusOK, rejected(tr))
		}
		resp := applied(tr)
		if cat, ok := tr.Categories().Get(id); ok {
			resp.Category = &cat
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func deleteCategory(tr *tracker.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !tr.Categories().Delete(c.Request().Context(), c.Param("id")) {
			return c.JSON(http.StatusOK, rejected(tr))
		}
		return c.JSON(http.StatusOK, applied(tr))
	}
}

func getExport(tr *tracker.Tracker, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		res := c.Response()
		res.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", tr.ExportName()))
		res.WriteHeader(http.StatusOK)
		if err := tr.Export(res); err != nil {
			// Headers are already sent; all that is left is to log.
			logger.WithError(err).Error("export failed")
		}
		return nil
	}
}

func postImport(tr *tracker.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		n, err := tr.Import(c.Request().Context(), io.LimitReader(c.Request().Body, maxImportSize))
		if errors.Is(err, types.ErrImportParse) {
			return badRequest(c, err)
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, importResponse{Imported: n})
	}
}

func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	return nil
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func taskResult(tr *tracker.Tracker, task types.Task, ok bool) mutationResponse {
	if !ok {
		return rejected(tr)
	}
	resp := applied(tr)
	resp.Task = &task
	return resp
}

func applied(tr *tracker.Tracker) mutationResponse {
	return mutationResponse{Applied: true, Snapshot: tr.Snapshot(types.DefaultFilters())}
}

func rejected(tr *tracker.Tracker) mutationResponse {
	return mutationResponse{Applied: false, Snapshot: tr.Snapshot(types.DefaultFilters())}
}
