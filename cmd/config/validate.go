package configcmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/cmd/globals"
	"github.com/flarebyte/tracker-snapshot/internal/app"
	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

// validateCmd checks the configuration without contacting any repository or store.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration, entity plan and conflict strategies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := globals.Load()
		if err != nil {
			return err
		}
		var problems []error
		if err := cfg.Validate(); err != nil {
			problems = append(problems, err)
		}
		var plan []backup.EntityDescriptor
		rc, err := app.BuildRunContext(cfg, app.RunOptions{}, log)
		if err == nil {
			plan, err = rc.Validate()
		}
		if err != nil {
			problems = append(problems, err)
		}
		if cfg.Source.Repository == "" {
			fmt.Fprintln(os.Stderr, "note: source.repository is not set (save needs --source)")
		}
		if cfg.Target.Repository == "" {
			fmt.Fprintln(os.Stderr, "note: target.repository is not set (restore needs --target)")
		}
		if len(problems) > 0 {
			fmt.Fprintln(os.Stderr, "Configuration issues:")
			for _, p := range problems {
				fmt.Fprintf(os.Stderr, "- %v\n", p)
			}
			return errors.Join(problems...)
		}
		fmt.Fprintf(os.Stderr, "Configuration looks valid. Plan: %s\n", backup.PlanSummary(plan))
		return nil
	},
}
