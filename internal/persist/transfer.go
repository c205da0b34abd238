package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/todos/internal/storage"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// exportIndent is the indentation used for exported files.
const exportIndent = "  "

// ImportParseError reports an import source that is not valid JSON or whose
// top level is not an array. It matches types.ErrImportParse with errors.Is.
type ImportParseError struct {
	Reason string
	Err    error
}

func (e *ImportParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import failed: %s: %v", e.Reason, e.Err)
	}
	return "import failed: " + e.Reason
}

func (e *ImportParseError) Unwrap() error { return e.Err }

// Is reports whether target is types.ErrImportParse.
func (e *ImportParseError) Is(target error) bool {
	return target == types.ErrImportParse
}

// Export writes tasks as a pretty-printed JSON array followed by a newline.
func Export(w io.Writer, tasks []types.Task) error {
	if tasks == nil {
		tasks = []types.Task{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", exportIndent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// ExportFileName returns the suggested export file name for the UTC calendar
// date of now, e.g. todos-2024-03-01.json.
func ExportFileName(now time.Time) string {
	return "todos-" + now.UTC().Format(time.DateOnly) + ".json"
}

// ExportFile writes an export of tasks into dir under ExportFileName(now)
// and returns the full path. The file is replaced atomically.
func ExportFile(dir string, tasks []types.Task, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := Export(&buf, tasks); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ExportFileName(now))
	if err := storage.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

// Import parses an exported task array. Elements are not validated: each is
// decoded best-effort and fields whose JSON type does not fit are left at
// their zero value. Input that is not JSON, or not an array at the top
// level, yields an *ImportParseError.
func Import(r io.Reader) ([]types.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ImportParseError{Reason: "could not read input", Err: err}
	}
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, &ImportParseError{Reason: "input is not valid JSON"}
	}
	if len(data) == 0 || data[0] != '[' {
		return nil, &ImportParseError{Reason: "expected a JSON array of tasks"}
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, &ImportParseError{Reason: "expected a JSON array of tasks", Err: err}
	}
	tasks := make([]types.Task, len(raws))
	for i, raw := range raws {
		tasks[i] = decodeTask(raw)
	}
	return tasks, nil
}

// decodeTask decodes each known field of one element on its own, so a field
// that fails to decode stays zero without affecting the others. Elements
// that are not objects decode to the zero Task.
func decodeTask(raw json.RawMessage) types.Task {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return types.Task{}
	}
	var t types.Task
	decodeField(fields, "id", &t.ID)
	decodeField(fields, "title", &t.Title)
	decodeField(fields, "description", &t.Description)
	decodeField(fields, "completed", &t.Completed)
	decodeField(fields, "categoryId", &t.CategoryID)
	decodeField(fields, "priority", &t.Priority)
	decodeField(fields, "dueDate", &t.DueDate)
	decodeField(fields, "createdAt", &t.CreatedAt)
	decodeField(fields, "updatedAt", &t.UpdatedAt)
	return t
}

func decodeField[T any](fields map[string]json.RawMessage, key string, dst *T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	*dst = v
}

// ImportResult is the single value delivered by ImportFile.
type ImportResult struct {
	Tasks []types.Task
	Err   error
}

// ImportFile reads and parses path in the background. The returned channel
// yields exactly one result and is then closed. The read cannot be
// cancelled.
func ImportFile(path string) <-chan ImportResult {
	ch := make(chan ImportResult, 1)
	go func() {
		defer close(ch)
		f, err := os.Open(path)
		if err != nil {
			ch <- ImportResult{Err: &ImportParseError{Reason: "could not read file", Err: err}}
			return
		}
		defer f.Close()
		tasks, err := Import(f)
		ch <- ImportResult{Tasks: tasks, Err: err}
	}()
	return ch
}

// IsImportParseError reports whether err carries an *ImportParseError and
// returns it.
func IsImportParseError(err error) (*ImportParseError, bool) {
	var pe *ImportParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
