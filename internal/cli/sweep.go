package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/railzwaylabs/tier-orchestrator/internal/app"
)

func newSweepCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Close runs interrupted between their tenant and billing calls",
		Long: "Marks stale unfinished runs with the status their last recorded step implies.\n" +
			"No tenant or billing call is re-issued; billing follow-ups stay retryable.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			closed, err := app.RunSweep(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "closed %d interrupted runs\n", closed)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of runs to close")
	return cmd
}
