package configcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	cfgpkg "github.com/flarebyte/tracker-snapshot/internal/config"
	"github.com/flarebyte/tracker-snapshot/internal/paths"
)

var (
	flagOverwrite bool
	flagDryRun    bool
	flagSource    string
	flagTarget    string
	flagBaseURL   string
	flagStoreKind string
	flagStoreDir  string
	flagVault     string
	// Postgres store
	flagPGHost     string
	flagPGPort     int
	flagPGUser     string
	flagPGPassword string
	flagPGDBName   string
	flagPGSSLMode  string
	flagPGSchema   string
	// SQLite store
	flagSQLitePath string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or update the global config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := paths.EnsureHome(); err != nil {
			return err
		}
		path := cfgpkg.Path()
		if !flagOverwrite && !flagDryRun {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s (use --overwrite to replace)", path)
			}
		}

		// Start from existing config (or defaults if missing) to preserve secrets
		cfg, _ := cfgpkg.Load()

		set := func(name string, dst *string, v string) {
			if cmd.Flags().Changed(name) {
				*dst = v
			}
		}
		set("source", &cfg.Source.Repository, flagSource)
		set("target", &cfg.Target.Repository, flagTarget)
		if cmd.Flags().Changed("base-url") {
			cfg.Source.BaseURL = flagBaseURL
			cfg.Target.BaseURL = flagBaseURL
		}
		set("store", &cfg.Store.Kind, flagStoreKind)
		set("store-dir", &cfg.Store.Dir, flagStoreDir)
		set("vault", &cfg.Vault.Backend, flagVault)

		set("pg-host", &cfg.Store.Postgres.Host, flagPGHost)
		if cmd.Flags().Changed("pg-port") {
			cfg.Store.Postgres.Port = flagPGPort
		}
		set("pg-user", &cfg.Store.Postgres.User, flagPGUser)
		set("pg-password", &cfg.Store.Postgres.Password, flagPGPassword)
		set("pg-dbname", &cfg.Store.Postgres.DBName, flagPGDBName)
		set("pg-sslmode", &cfg.Store.Postgres.SSLMode, flagPGSSLMode)
		set("pg-schema", &cfg.Store.Postgres.Schema, flagPGSchema)
		set("sqlite-path", &cfg.Store.SQLite.Path, flagSQLitePath)

		if err := cfg.Validate(); err != nil {
			return err
		}
		b, err := cfgpkg.Marshal(cfg)
		if err != nil {
			return err
		}
		if flagDryRun {
			os.Stdout.Write(b)
			if len(b) == 0 || b[len(b)-1] != '\n' {
				fmt.Fprintln(os.Stdout)
			}
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		// The file may carry the postgres password.
		if err := os.WriteFile(path, b, 0o600); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&flagOverwrite, "overwrite", false, "Overwrite existing config.yaml if present")
	initCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print merged config to stdout without writing")

	initCmd.Flags().StringVar(&flagSource, "source", "", "Source repository owner/name")
	initCmd.Flags().StringVar(&flagTarget, "target", "", "Target repository owner/name")
	initCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "GitHub Enterprise root URL for source and target")
	initCmd.Flags().StringVar(&flagStoreKind, "store", cfgpkg.StoreFile, "Archive store: file, postgres or sqlite")
	initCmd.Flags().StringVar(&flagStoreDir, "store-dir", "", "Parent directory of file archives")
	initCmd.Flags().StringVar(&flagVault, "vault", "", "Vault backend: keychain or env")

	initCmd.Flags().StringVar(&flagPGHost, "pg-host", "127.0.0.1", "Postgres host")
	initCmd.Flags().IntVar(&flagPGPort, "pg-port", cfgpkg.DefaultPostgresPort, "Postgres port")
	initCmd.Flags().StringVar(&flagPGUser, "pg-user", "", "Postgres user")
	initCmd.Flags().StringVar(&flagPGPassword, "pg-password", "", "Postgres password")
	initCmd.Flags().StringVar(&flagPGDBName, "pg-dbname", "tsnap", "Postgres database name")
	initCmd.Flags().StringVar(&flagPGSSLMode, "pg-sslmode", "disable", "Postgres SSL mode")
	initCmd.Flags().StringVar(&flagPGSchema, "pg-schema", cfgpkg.DefaultPostgresSchema, "Postgres schema holding the archive tables")

	initCmd.Flags().StringVar(&flagSQLitePath, "sqlite-path", "", "SQLite archive database file")
}
