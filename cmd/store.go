package cmd

import (
	"fmt"
	"os"

	"github.com/ethpandaops/protobench/internal/actions"
	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/interactive"
	"github.com/spf13/cobra"
)

var teardownYes bool

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the ClickHouse result store",
}

var storeSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the result database and apply migrations (safe to run multiple times)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return actions.Setup(cmd.Context(), commandLogger("store_setup"), cfg, os.Stdout)
	},
}

var storeTeardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Drop the result tables (destructive)",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if !teardownYes {
			menu := interactive.NewMenu(nil, os.Stdout)
			if !menu.Confirm(fmt.Sprintf("Drop every stored run in %s? This cannot be undone!", cfg.Store.ClickhouseDatabase)) {
				fmt.Println("Teardown canceled.")
				return nil
			}
		}

		return actions.Teardown(commandLogger("store_teardown"), cfg, os.Stdout)
	},
}

func init() {
	storeTeardownCmd.Flags().BoolVarP(&teardownYes, "yes", "y", false, "skip confirmation")

	storeCmd.AddCommand(storeSetupCmd, storeTeardownCmd)
	rootCmd.AddCommand(storeCmd)
}
