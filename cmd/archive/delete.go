package archivecmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/internal/app"
)

var flagDeleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagDeleteForce {
			return fmt.Errorf("refusing to delete %q without --force", args[0])
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		b, _, log, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		ok, err := b.Delete(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", app.ErrArchiveNotFound, args[0])
		}
		log.Info("deleted archive", "archive", args[0])
		fmt.Fprintf(os.Stderr, "archive %q deleted\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&flagDeleteForce, "force", false, "Confirm deletion")
}
