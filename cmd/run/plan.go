package run

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/flarebyte/tracker-snapshot/cmd/globals"
	"github.com/flarebyte/tracker-snapshot/internal/app"
)

var (
	flagPlanTypes string
	flagPlanJSON  bool
)

// PlanCmd prints the execution order without touching any repository.
var PlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the resolved entity execution order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := globals.Load()
		if err != nil {
			return err
		}
		rc, err := app.BuildRunContext(cfg, app.RunOptions{Types: app.SplitList(flagPlanTypes)}, log)
		if err != nil {
			return err
		}
		plan, err := rc.Validate()
		if err != nil {
			return err
		}
		return app.RenderPlan(os.Stdout, plan, flagPlanJSON)
	},
}

func init() {
	PlanCmd.Flags().StringVar(&flagPlanTypes, "types", "", "Comma separated entity types (default: all)")
	PlanCmd.Flags().BoolVar(&flagPlanJSON, "json", false, "Output JSON")
}
