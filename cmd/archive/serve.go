package archivecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/cmd/globals"
	"github.com/flarebyte/tracker-snapshot/internal/app"
	httparchive "github.com/flarebyte/tracker-snapshot/internal/http/archive"
	"github.com/flarebyte/tracker-snapshot/internal/server"
)

var (
	flagServeHost string
	flagServePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve <name>",
	Short: "Serve one archive read-only over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := globals.SignalContext()
		defer cancel()
		b, cfg, log, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		st, _, err := app.OpenExisting(ctx, b, args[0])
		if err != nil {
			return err
		}
		port := cfg.Serve.Port
		if cmd.Flags().Changed("port") {
			port = flagServePort
		}
		h := httparchive.New(args[0], st, nil, log)
		return server.RunForeground(ctx, fmt.Sprintf("%s:%d", flagServeHost, port), h.Router(), log)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagServeHost, "host", "127.0.0.1", "Listen address")
	serveCmd.Flags().IntVar(&flagServePort, "port", 0, "Listen port (default from config)")
}
