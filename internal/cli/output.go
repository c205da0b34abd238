package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"

	"github.com/mesh-intelligence/todos/internal/tracker"
	"github.com/mesh-intelligence/todos/pkg/types"
)

var priorityColors = map[types.Priority]string{
	types.PriorityHigh:   "#e74c3c",
	types.PriorityMedium: "#f39c12",
	types.PriorityLow:    "#2ecc71",
}

func marshalIndent(v any) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(v, "", "  ")
}

// printer renders human-readable output. Colors are dropped automatically
// when w is not a terminal.
type printer struct {
	w io.Writer
	r *lipgloss.Renderer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, r: lipgloss.NewRenderer(w)}
}

func (p *printer) color(hex, s string) string {
	return p.r.NewStyle().Foreground(lipgloss.Color(hex)).Render(s)
}

// task prints one line per task:
//
//	[x] high   Title  [Work]  due 2024-03-01  <id>
func (p *printer) task(item tracker.Item) {
	check := "[ ]"
	if item.Completed {
		check = "[x]"
	}
	prio := fmt.Sprintf("%-6s", item.Priority)
	if c, ok := priorityColors[item.Priority]; ok {
		prio = p.color(c, prio)
	}
	title := item.Title
	if item.Completed {
		title = p.r.NewStyle().Strikethrough(true).Render(title)
	}

	parts := []string{check, prio, title, p.color(item.Category.Color, "["+item.Category.Name+"]")}
	if item.DueDate != "" {
		parts = append(parts, "due "+item.DueDate)
	}
	parts = append(parts, p.r.NewStyle().Faint(true).Render(item.ID))
	fmt.Fprintln(p.w, strings.Join(parts, "  "))
	if item.Description != "" {
		fmt.Fprintln(p.w, "      "+item.Description)
	}
}

func (p *printer) snapshot(snap tracker.Snapshot) {
	if len(snap.Tasks) == 0 {
		fmt.Fprintln(p.w, "No tasks")
	}
	for _, item := range snap.Tasks {
		p.task(item)
	}
	fmt.Fprintf(p.w, "\n%d total, %d active, %d completed\n", snap.Stats.Total, snap.Stats.Active, snap.Stats.Completed)
}

func (p *printer) categories(cats []types.Category) {
	for _, c := range cats {
		fmt.Fprintf(p.w, "%s  %s  %s\n", p.color(c.Color, "●"), c.Name, p.r.NewStyle().Faint(true).Render(c.ID+" "+c.Color))
	}
}
