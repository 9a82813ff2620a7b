package archivecmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/internal/app"
)

var flagShowJSON bool

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an archive's manifest and collections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		b, _, _, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		_, m, err := app.OpenExisting(ctx, b, args[0])
		if err != nil {
			return err
		}
		return app.RenderManifest(os.Stdout, args[0], m, flagShowJSON)
	},
}

func init() {
	showCmd.Flags().BoolVar(&flagShowJSON, "json", false, "Output JSON")
}
