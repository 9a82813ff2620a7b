package archivecmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/internal/app"
)

var flagListJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archives, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		b, _, _, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		items, err := b.List(ctx)
		if err != nil {
			return err
		}
		return app.RenderArchives(os.Stdout, items, flagListJSON)
	},
}

func init() {
	listCmd.Flags().BoolVar(&flagListJSON, "json", false, "Output JSON")
}
