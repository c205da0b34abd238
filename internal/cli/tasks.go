package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todos/internal/tracker"
	"github.com/mesh-intelligence/todos/pkg/types"
)

func newAddCmd(f *rootFlags) *cobra.Command {
	var (
		title, category, priority, description, due string
	)
	cmd := &cobra.Command{
		Use:   "add [title...]",
		Short: "Add a task",
		Long: `Add a task. The title comes from --title or the positional arguments.

Example:
  todos add "Buy milk" --category shopping --priority low --due 2024-03-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				title = strings.Join(args, " ")
			}
			p, err := types.ParsePriority(priority)
			if err != nil {
				return userError("%w", err)
			}
			if err := validateDue(due); err != nil {
				return err
			}
			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				task, ok := tr.Tasks().Add(ctx, types.NewTask{
					Title:       title,
					CategoryID:  category,
					Priority:    p,
					Description: description,
					DueDate:     due,
				})
				if !ok {
					return userError("title must not be blank")
				}
				if _, known := tr.Categories().Get(category); !known {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: category %q does not exist; the task will show as %s\n", category, types.FallbackCategoryName)
				}
				return printTask(cmd, f, tr, task, "Added")
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&category, "category", types.CategoryPersonal, "category ID")
	cmd.Flags().StringVar(&priority, "priority", string(types.PriorityMedium), "priority: high, medium, low")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	return cmd
}

func newListCmd(f *rootFlags) *cobra.Command {
	var status, category, priority, sortBy string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks with optional filters",
		Long: `List tasks filtered by status, category, and priority, then sorted.
Stats always cover every task regardless of filters.

Example:
  todos list --status active --sort dueDate
  todos list --category work --priority high`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := types.ParseFilters(status, category, priority, sortBy)
			if err != nil {
				return userError("%w", err)
			}
			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				snap := tr.Snapshot(filters)
				if f.jsonMode {
					return printJSON(cmd.OutOrStdout(), snap)
				}
				newPrinter(cmd.OutOrStdout()).snapshot(snap)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", string(types.StatusAll), "all, active, or completed")
	cmd.Flags().StringVar(&category, "category", types.All, "category ID or all")
	cmd.Flags().StringVar(&priority, "priority", types.All, "high, medium, low, or all")
	cmd.Flags().StringVar(&sortBy, "sort", string(types.SortCreatedAt), "createdAt, dueDate, or priority")
	return cmd
}

func newUpdateCmd(f *rootFlags) *cobra.Command {
	var (
		title, description, category, priority, due string
		markDone, markNotDone                       bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a task",
		Long: `Update changes only the fields whose flags are given.

Example:
  todos update <id> --title "New title" --priority high
  todos update <id> --due ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("category") {
				patch.CategoryID = &category
			}
			if flags.Changed("priority") {
				p, err := types.ParsePriority(priority)
				if err != nil {
					return userError("%w", err)
				}
				patch.Priority = &p
			}
			if flags.Changed("due") {
				if err := validateDue(due); err != nil {
					return err
				}
				patch.DueDate = &due
			}
			switch {
			case markDone && markNotDone:
				return userError("--done and --not-done are mutually exclusive")
			case markDone, markNotDone:
				patch.Completed = &markDone
			}

			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				task, ok := tr.Tasks().Update(ctx, args[0], patch)
				if !ok {
					return userError("task %s not found", args[0])
				}
				return printTask(cmd, f, tr, task, "Updated")
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title (blank is ignored)")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&category, "category", "", "new category ID")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority: high, medium, low")
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD, empty to clear)")
	cmd.Flags().BoolVar(&markDone, "done", false, "mark completed")
	cmd.Flags().BoolVar(&markNotDone, "not-done", false, "mark active")
	return cmd
}

func newToggleCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between active and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				task, ok := tr.Tasks().Toggle(ctx, args[0])
				if !ok {
					return userError("task %s not found", args[0])
				}
				verb := "Reopened"
				if task.Completed {
					verb = "Completed"
				}
				return printTask(cmd, f, tr, task, verb)
			})
		},
	}
}

func newDeleteCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				if !tr.Tasks().Delete(ctx, args[0]) {
					return userError("task %s not found", args[0])
				}
				if f.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Deleted", args[0])
				return nil
			})
		},
	}
}

// printTask reports a single task after a mutation.
func printTask(cmd *cobra.Command, f *rootFlags, tr *tracker.Tracker, task types.Task, verb string) error {
	if f.jsonMode {
		return printJSON(cmd.OutOrStdout(), task)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, task.ID)
	newPrinter(cmd.OutOrStdout()).task(tracker.Item{Task: task, Category: tr.Categories().Resolve(task.CategoryID)})
	return nil
}

// validateDue accepts an empty value or a calendar date.
func validateDue(due string) error {
	if due == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, due); err != nil {
		return userError("invalid due date %q (expected YYYY-MM-DD)", due)
	}
	return nil
}
