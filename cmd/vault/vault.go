package vaultcmd

import "github.com/spf13/cobra"

// VaultCmd is the root for `tsnap vault` commands.
var VaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage repository tokens in the local vault (Keychain or environment)",
}

func init() {
	VaultCmd.AddCommand(listCmd)
	VaultCmd.AddCommand(setCmd)
	VaultCmd.AddCommand(unsetCmd)
	VaultCmd.AddCommand(doctorCmd)
}
