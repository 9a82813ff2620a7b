package archivecmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/internal/app"
)

var (
	flagDiffJSON    bool
	flagDiffDetails bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <a> <b>",
	Short: "Compare two archives type by type",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		b, _, _, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		a, _, err := app.OpenExisting(ctx, b, args[0])
		if err != nil {
			return err
		}
		other, _, err := app.OpenExisting(ctx, b, args[1])
		if err != nil {
			return err
		}
		diffs, err := app.DiffArchives(ctx, nil, a, other)
		if err != nil {
			return err
		}
		if err := app.RenderDiff(os.Stdout, diffs, flagDiffJSON); err != nil {
			return err
		}
		if flagDiffDetails && !flagDiffJSON {
			for _, d := range diffs {
				if d.Empty() {
					continue
				}
				fmt.Fprintf(os.Stdout, "\n%s\n", d.Type)
				fmt.Fprintf(os.Stdout, "  added:   %v\n  removed: %v\n  changed: %v\n", d.Added, d.Removed, d.Changed)
			}
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVar(&flagDiffJSON, "json", false, "Output JSON")
	diffCmd.Flags().BoolVar(&flagDiffDetails, "details", false, "List the ids behind each count")
}
