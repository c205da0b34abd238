package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todos/internal/persist"
	"github.com/mesh-intelligence/todos/internal/tracker"
)

func newExportCmd(f *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all tasks to todos-<date>.json",
		Long: `Export writes every task as a pretty-printed JSON array to
todos-<YYYY-MM-DD>.json in the output directory. Use --out - to write to
standard output instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				if out == "-" {
					if err := tr.Export(cmd.OutOrStdout()); err != nil {
						return sysError("%w", err)
					}
					return nil
				}
				path, err := tr.ExportFile(out)
				if err != nil {
					return sysError("%w", err)
				}
				if f.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"path": path, "tasks": len(tr.Tasks().All())})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Exported to", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "output directory, or - for stdout")
	return cmd
}

func newImportCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all tasks with the contents of an export file",
		Long: `Import replaces the whole task collection with the JSON array in <file>.
Categories are not touched. If the file is not a JSON array nothing changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, f, func(ctx context.Context, tr *tracker.Tracker) error {
				n, err := tr.ImportFile(ctx, args[0])
				if err != nil {
					if _, ok := persist.IsImportParseError(err); ok {
						return userError("%w", err)
					}
					return sysError("%w", err)
				}
				if f.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]int{"imported": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks\n", n)
				return nil
			})
		},
	}
}
