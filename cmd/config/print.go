package configcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/cmd/globals"
	cfgpkg "github.com/flarebyte/tracker-snapshot/internal/config"
)

var flagPrintSecrets bool

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the merged configuration to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := globals.Load()
		if err != nil {
			return err
		}
		if !flagPrintSecrets && cfg.Store.Postgres.Password != "" {
			cfg.Store.Postgres.Password = "********"
		}
		b, err := cfgpkg.Marshal(cfg)
		if err != nil {
			return err
		}
		os.Stdout.Write(b)
		if len(b) == 0 || b[len(b)-1] != '\n' {
			fmt.Fprintln(os.Stdout)
		}
		return nil
	},
}

func init() {
	printCmd.Flags().BoolVar(&flagPrintSecrets, "show-secrets", false, "Print the postgres password instead of a mask")
}
