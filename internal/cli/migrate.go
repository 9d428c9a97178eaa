package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/railzwaylabs/tier-orchestrator/internal/app"
)

func newMigrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply, roll back or inspect the run schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			if steps < 0 {
				return fmt.Errorf("--steps must not be negative")
			}
			if steps > 0 && action != "down" {
				return fmt.Errorf("--steps only applies to down")
			}
			return app.RunMigrations(action, steps)
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "Roll back this many migrations instead of all of them")
	return cmd
}
