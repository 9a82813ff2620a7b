package run

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/cmd/globals"
	"github.com/flarebyte/tracker-snapshot/internal/app"
	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

var (
	flagRestoreArchive     string
	flagRestoreTypes       string
	flagRestoreIssues      string
	flagRestorePulls       string
	flagRestoreTarget      string
	flagRestoreConflicts   []string
	flagRestoreConcurrency int
	flagRestoreJSON        bool
)

// RestoreCmd recreates an archive's entities in the target repository.
var RestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore an archive into the target repository",
	Example: `  tsnap restore --archive nightly --target acme/app-copy
  tsnap restore --archive nightly --issues 5,7
  tsnap restore --archive nightly --conflict labels=rename-on-conflict --conflict milestones=overwrite-existing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := globals.Load()
		if err != nil {
			return err
		}
		if flagRestoreTarget != "" {
			cfg.Target.Repository = flagRestoreTarget
		}
		rc, err := app.BuildRunContext(cfg, app.RunOptions{
			Types: app.SplitList(flagRestoreTypes),
			Selections: map[string]string{
				backup.TypeIssues:       flagRestoreIssues,
				backup.TypePullRequests: flagRestorePulls,
			},
			Conflicts:   flagRestoreConflicts,
			Concurrency: flagRestoreConcurrency,
		}, log)
		if err != nil {
			return err
		}
		if _, err := rc.Validate(); err != nil {
			return err
		}

		ctx, cancel := globals.SignalContext()
		defer cancel()
		b, err := app.OpenBackend(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer b.Close()
		st, m, err := app.OpenExisting(ctx, b, flagRestoreArchive)
		if err != nil {
			return err
		}
		log.Info("restoring archive", "archive", flagRestoreArchive, "run_id", m.RunID, "source", m.Source)

		target, err := app.NewTrackerClient(ctx, "target", cfg.Target, cfg.Vault.Backend, log)
		if err != nil {
			return err
		}
		rep, _, err := backup.RestoreFromBackup(ctx, rc, st, target)
		if rep != nil {
			if rerr := app.RenderReport(os.Stdout, rep, flagRestoreJSON); rerr != nil && err == nil {
				err = rerr
			}
		}
		return err
	},
}

func init() {
	RestoreCmd.Flags().StringVar(&flagRestoreArchive, "archive", "", "Archive name or directory path")
	RestoreCmd.Flags().StringVar(&flagRestoreTypes, "types", "", "Comma separated entity types (default: all)")
	RestoreCmd.Flags().StringVar(&flagRestoreIssues, "issues", "", "Restore only these issues, e.g. 5,7 or 3-9")
	RestoreCmd.Flags().StringVar(&flagRestorePulls, "pulls", "", "Restore only these pull requests, e.g. 12 or 10-20")
	RestoreCmd.Flags().StringVar(&flagRestoreTarget, "target", "", "Target repository owner/name (overrides config)")
	RestoreCmd.Flags().StringSliceVar(&flagRestoreConflicts, "conflict", nil, "Conflict strategy per keyed type, e.g. labels=skip-existing")
	RestoreCmd.Flags().IntVar(&flagRestoreConcurrency, "concurrency", 0, "Parallel creations for unordered types (default from config)")
	RestoreCmd.Flags().BoolVar(&flagRestoreJSON, "json", false, "Output the report as JSON")
	_ = RestoreCmd.MarkFlagRequired("archive")
}
