package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/protobench/internal/actions"
	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/interactive"
	"github.com/ethpandaops/protobench/internal/plan"
	"github.com/spf13/cobra"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Launch interactive mode",
	Long:  `Launches the interactive menu for running comparisons and health checks.`,
	Run: func(_ *cobra.Command, _ []string) {
		RunInteractive()
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

// RunInteractive shows the main menu until the user exits.
func RunInteractive() {
	fmt.Println("protobench - Interactive Mode")
	fmt.Println("=============================")
	fmt.Println()

	menu := interactive.NewMenu(nil, os.Stdout)

	for {
		options := []interactive.MenuOption{
			{
				Name:        "🚀 Full Comparison",
				Description: "Run every operation on every backend",
				Action: func() error {
					return withConfig(menu, func(cfg *config.AppConfig) error {
						return compare(cfg, plan.FromConfig(cfg))
					})
				},
			},
			{
				Name:        "🎯 Custom Comparison",
				Description: "Pick backends, operations and calls per trial",
				Action: func() error {
					return withConfig(menu, func(cfg *config.AppConfig) error {
						return customCompare(menu, cfg)
					})
				},
			},
			{
				Name:        "🩺 Health Check",
				Description: "Check that every backend answers",
				Action: func() error {
					return withConfig(menu, func(cfg *config.AppConfig) error {
						_, err := actions.Health(context.Background(), commandLogger("health"), cfg, nil, os.Stdout)
						return err
					})
				},
			},
			{
				Name:        "📋 Show Config",
				Description: "Display current environment configuration",
				Action: func() error {
					if err := actions.ShowConfig(os.Stdout); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
					}
					menu.PauseForEnter()
					return nil
				},
			},
		}

		if err := menu.ShowMainMenu(options); err != nil {
			if errors.Is(err, interactive.ErrExit) {
				fmt.Println("Goodbye!")
				return
			}
			log.Fatal(err)
		}

		fmt.Println()
	}
}

// withConfig loads the config, runs fn and pauses, printing any error
// instead of leaving the menu.
func withConfig(menu *interactive.Menu, fn func(cfg *config.AppConfig) error) error {
	cfg, err := config.Load()
	if err == nil {
		err = fn(cfg)
	}

	if err != nil {
		fmt.Printf("\n❌ Error: %v\n", err)
	}

	menu.PauseForEnter()

	return nil
}

func customCompare(menu *interactive.Menu, cfg *config.AppConfig) error {
	p := plan.FromConfig(cfg)

	ids, err := menu.SelectBackends()
	if err != nil {
		return err
	}

	ops, err := menu.SelectOperations()
	if err != nil {
		return err
	}

	n, err := menu.AskIterations(p.Iterations)
	if err != nil {
		return err
	}

	p.Backends, p.Operations, p.Iterations = ids, ops, n

	return compare(cfg, p)
}

func compare(cfg *config.AppConfig, p plan.Plan) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := actions.Compare(ctx, commandLogger("compare"), cfg, actions.CompareOptions{
		Plan:    p,
		Store:   cfg.Store,
		Verbose: verbose,
		Out:     os.Stdout,
	})

	return err
}
