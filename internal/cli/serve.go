package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/railzwaylabs/tier-orchestrator/internal/app"
)

func newServeCmd() *cobra.Command {
	var (
		migrateFirst bool
		noFollowUp   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the follow-up monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrateFirst {
				if err := app.RunMigrations("up", 0); err != nil {
					return err
				}
			}

			var opts []fx.Option
			if noFollowUp {
				opts = append(opts, app.WithoutFollowUp())
			}
			app.RunServer(opts...)
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply pending migrations before serving")
	cmd.Flags().BoolVar(&noFollowUp, "no-follow-up", false, "Serve the API without the follow-up monitor")
	return cmd
}
