package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. --env-file values take precedence over
// .env but never over variables already set in the environment.
func newRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "tier-orchestrator",
		Short:         "Tier change and decommission orchestrator for tenants",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile == "" {
				return nil
			}
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file %s: %w", envFile, err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load configuration from this file before .env")
	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newSweepCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
