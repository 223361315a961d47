package cmd

import (
	"fmt"
	"os"

	"github.com/ethpandaops/protobench/internal/actions"
	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/plan"
	"github.com/spf13/cobra"
)

var healthBackends []string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that every backend answers",
	Long: `Lists users once on each backend and reports which ones answered.
Exits non-zero if any backend failed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ids, err := plan.ParseBackends(healthBackends)
		if err != nil {
			return err
		}

		_, err = actions.Health(cmd.Context(), commandLogger("health"), cfg, ids, os.Stdout)

		return err
	},
}

func init() {
	healthCmd.Flags().StringSliceVar(&healthBackends, "backends", []string{"all"}, "backends to probe (comma-separated, or 'all')")
	rootCmd.AddCommand(healthCmd)
}
