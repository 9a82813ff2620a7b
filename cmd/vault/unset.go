package vaultcmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/cmd/globals"
	vpkg "github.com/flarebyte/tracker-snapshot/internal/vault"
)

var unsetCmd = &cobra.Command{
	Use:   "unset <name>",
	Short: "Delete a secret from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return errors.New("name must not be empty")
		}
		cfg, _, err := globals.Load()
		if err != nil {
			return err
		}
		dao, err := vpkg.NewVaultDAO(cfg.Vault.Backend)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dao.UnsetSecret(ctx, name); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "secret %q removed from backend %q\n", name, cfg.Vault.Backend)
		return nil
	},
}
