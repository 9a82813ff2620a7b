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
	flagPruneOlderThan time.Duration
	flagPruneKeep      int
	flagPruneDryRun    bool
)

var pruneCmd = &cobra.Command{
	Use:     "prune",
	Short:   "Delete old archives, keeping the newest ones",
	Example: `  tsnap archive prune --older-than 720h --keep 5 --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		b, _, log, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		names, err := app.Prune(ctx, b, app.PrunePolicy{
			OlderThan: flagPruneOlderThan,
			Keep:      flagPruneKeep,
			DryRun:    flagPruneDryRun,
		}, time.Now(), log)
		if err != nil {
			return err
		}
		verb := "deleted"
		if flagPruneDryRun {
			verb = "would delete"
		}
		for _, n := range names {
			fmt.Fprintf(os.Stdout, "%s\t%s\n", verb, n)
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().DurationVar(&flagPruneOlderThan, "older-than", 0, "Only prune archives older than this (e.g. 720h)")
	pruneCmd.Flags().IntVar(&flagPruneKeep, "keep", 5, "Always keep this many newest archives")
	pruneCmd.Flags().BoolVar(&flagPruneDryRun, "dry-run", false, "List what would be deleted")
}
