package archivecmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/cmd/globals"
	"github.com/flarebyte/tracker-snapshot/internal/app"
	cfgpkg "github.com/flarebyte/tracker-snapshot/internal/config"
)

// ArchiveCmd is the root for `tsnap archive` commands.
var ArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect and manage saved archives",
}

func init() {
	ArchiveCmd.AddCommand(listCmd)
	ArchiveCmd.AddCommand(showCmd)
	ArchiveCmd.AddCommand(deleteCmd)
	ArchiveCmd.AddCommand(pruneCmd)
	ArchiveCmd.AddCommand(serveCmd)
	ArchiveCmd.AddCommand(diffCmd)
}

// openBackend loads the configuration and opens the configured store.
func openBackend(ctx context.Context) (app.Backend, cfgpkg.Config, *slog.Logger, error) {
	cfg, log, err := globals.Load()
	if err != nil {
		return nil, cfg, nil, err
	}
	b, err := app.OpenBackend(ctx, cfg.Store)
	if err != nil {
		return nil, cfg, nil, err
	}
	return b, cfg, log, nil
}
