package cmd

import (
	"fmt"

	"github.com/ethpandaops/protobench/internal/actions"
	"github.com/spf13/cobra"
)

var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Print the resolved backend, run and store settings",
	Long: `Prints the configuration resolved from the environment and the dotenv file,
with the ClickHouse password masked.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := actions.ShowConfig(cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("showing config: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(showConfigCmd)
}
