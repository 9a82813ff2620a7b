package run

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/cmd/globals"
	"github.com/flarebyte/tracker-snapshot/internal/app"
	"github.com/flarebyte/tracker-snapshot/internal/backup"
	"github.com/flarebyte/tracker-snapshot/internal/dao/memstore"
)

var (
	flagSaveArchive     string
	flagSaveTypes       string
	flagSaveIssues      string
	flagSavePulls       string
	flagSaveSource      string
	flagSaveDescription string
	flagSaveDryRun      bool
	flagSaveJSON        bool
)

// SaveCmd saves the source repository into an archive.
var SaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save tracker entities from the source repository into an archive",
	Example: `  tsnap save --archive nightly
  tsnap save --archive ./release-12 --types labels,milestones,issues,issue_comments --issues 5,7
  tsnap save --archive x --issues 3-9 --dry-run --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := globals.Load()
		if err != nil {
			return err
		}
		if flagSaveArchive == "" && !flagSaveDryRun {
			return errors.New("--archive is required")
		}
		if flagSaveSource != "" {
			cfg.Source.Repository = flagSaveSource
		}
		rc, err := app.BuildRunContext(cfg, app.RunOptions{
			Types: app.SplitList(flagSaveTypes),
			Selections: map[string]string{
				backup.TypeIssues:       flagSaveIssues,
				backup.TypePullRequests: flagSavePulls,
			},
		}, log)
		if err != nil {
			return err
		}
		// Configuration errors surface before any token or network access.
		if _, err := rc.Validate(); err != nil {
			return err
		}

		ctx, cancel := globals.SignalContext()
		defer cancel()
		src, err := app.NewTrackerClient(ctx, "source", cfg.Source, cfg.Vault.Backend, log)
		if err != nil {
			return err
		}

		var rep *backup.Report
		if flagSaveDryRun {
			rep, err = backup.CreateBackup(ctx, rc, src, memstore.New())
		} else {
			b, oerr := app.OpenBackend(ctx, cfg.Store)
			if oerr != nil {
				return oerr
			}
			defer b.Close()
			st, oerr := b.Archive(flagSaveArchive)
			if oerr != nil {
				return oerr
			}
			rep, err = app.Save(ctx, rc, src, st, cfg.Source.Repository, flagSaveDescription)
		}
		if rep != nil {
			if rerr := app.RenderReport(os.Stdout, rep, flagSaveJSON); rerr != nil && err == nil {
				err = rerr
			}
		}
		return err
	},
}

func init() {
	SaveCmd.Flags().StringVar(&flagSaveArchive, "archive", "", "Archive name or directory path")
	SaveCmd.Flags().StringVar(&flagSaveTypes, "types", "", "Comma separated entity types (default: all)")
	SaveCmd.Flags().StringVar(&flagSaveIssues, "issues", "", "Issue selection, e.g. 5,7 or 3-9")
	SaveCmd.Flags().StringVar(&flagSavePulls, "pulls", "", "Pull request selection, e.g. 12 or 10-20")
	SaveCmd.Flags().StringVar(&flagSaveSource, "source", "", "Source repository owner/name (overrides config)")
	SaveCmd.Flags().StringVar(&flagSaveDescription, "description", "", "Free text stored in the archive manifest")
	SaveCmd.Flags().BoolVar(&flagSaveDryRun, "dry-run", false, "Run the save into memory and print the report only")
	SaveCmd.Flags().BoolVar(&flagSaveJSON, "json", false, "Output the report as JSON")
}
