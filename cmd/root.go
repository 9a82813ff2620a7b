package cmd

import (
	"github.com/spf13/cobra"

	archivecmd "github.com/flarebyte/tracker-snapshot/cmd/archive"
	configcmd "github.com/flarebyte/tracker-snapshot/cmd/config"
	"github.com/flarebyte/tracker-snapshot/cmd/globals"
	"github.com/flarebyte/tracker-snapshot/cmd/run"
	vaultcmd "github.com/flarebyte/tracker-snapshot/cmd/vault"
)

var rootCmd = &cobra.Command{
	Use:   "tsnap",
	Short: "Save and restore issue tracker entities of a repository",
	Long: `tsnap saves the labels, milestones, issues, comments, sub-issues, pull requests
and reviews of a repository into an archive, and restores an archive into
another repository, remapping identifiers so relationships survive.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "", "Config file (default ~/.tracker-snapshot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&globals.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&globals.LogFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(run.SaveCmd)
	rootCmd.AddCommand(run.RestoreCmd)
	rootCmd.AddCommand(run.PlanCmd)
	rootCmd.AddCommand(archivecmd.ArchiveCmd)
	rootCmd.AddCommand(configcmd.ConfigCmd)
	rootCmd.AddCommand(vaultcmd.VaultCmd)
}
