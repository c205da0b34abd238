package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todos/internal/tracker"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// defaultCategoryColor is the first entry of the preset palette.
const defaultCategoryColor = "#e74c3c"

func newCategoryCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage task categories",
	}
	cmd.AddCommand(newCategoryListCmd(f))
	cmd.AddCommand(newCategoryAddCmd(f))
	cmd.AddCommand(newCategoryUpdateCmd(f))
	cmd.AddCommand(newCategoryDeleteCmd(f))
	return cmd
}

func newCategoryListCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				cats := tr.Categories().All()
				if f.jsonMode {
					return printJSON(cmd.OutOrStdout(), cats)
				}
				newPrinter(cmd.OutOrStdout()).categories(cats)
				return nil
			})
		},
	}
}

func newCategoryAddCmd(f *rootFlags) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add <name...>",
		Short: "Add a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				id := tr.Categories().Add(ctx, name, color)
				if id == "" {
					return userError("category name must not be blank")
				}
				return printCategory(cmd, f, tr, id, "Added")
			})
		},
	}
	cmd.Flags().StringVar(&color, "color", defaultCategoryColor, "display color (#rrggbb)")
	return cmd
}

func newCategoryUpdateCmd(f *rootFlags) *cobra.Command {
	var name, color string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or recolor a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.CategoryPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("color") {
				patch.Color = &color
			}
			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				if !tr.Categories().Update(ctx, args[0], patch) {
					return userError("category %s not found", args[0])
				}
				return printCategory(cmd, f, tr, args[0], "Updated")
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name (blank is ignored)")
	cmd.Flags().StringVar(&color, "color", "", "new display color")
	return cmd
}

func newCategoryDeleteCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category; tasks keep their reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				if _, ok := tr.Categories().Get(args[0]); !ok {
					return userError("category %s not found", args[0])
				}
				if !tr.Categories().Delete(ctx, args[0]) {
					return userError("cannot delete the last category")
				}
				if f.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Deleted category", args[0])
				return nil
			})
		},
	}
}

func printCategory(cmd *cobra.Command, f *rootFlags, tr *tracker.Tracker, id, verb string) error {
	c, _ := tr.Categories().Get(id)
	if f.jsonMode {
		return printJSON(cmd.OutOrStdout(), c)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s category %s\n", verb, c.ID)
	newPrinter(cmd.OutOrStdout()).categories([]types.Category{c})
	return nil
}
