package vaultcmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/flarebyte/tracker-snapshot/cmd/globals"
	vpkg "github.com/flarebyte/tracker-snapshot/internal/vault"
)

var setCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Set or update a secret value in the vault",
	Example: `  tsnap vault set source-token
  tsnap vault set target-token < token.txt`,
	Args: cobra.ExactArgs(1),
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
		secret, err := promptSecret(fmt.Sprintf("Enter secret for %q: ", name))
		if err != nil {
			return err
		}
		if len(secret) == 0 {
			return errors.New("secret must not be empty")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dao.SetSecret(ctx, name, secret); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "secret %q stored in backend %q\n", name, cfg.Vault.Backend)
		return nil
	},
}

func promptSecret(prompt string) ([]byte, error) {
	// If stdin is a terminal, use no-echo password input.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, err
		}
		return []byte(strings.TrimRight(string(b), "\r\n")), nil
	}
	fmt.Fprintln(os.Stderr, "warning: reading secret from stdin; input will not be masked")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}
