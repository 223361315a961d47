package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethpandaops/protobench/internal/actions"
	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/plan"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Run command flags
	runIterations  int
	runOperations  []string
	runBackends    []string
	runWorkers     int
	runCallTimeout time.Duration
	runRate        float64
	runPlanFile    string
	runStore       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the comparison",
	Long: `Runs every selected operation against every selected backend, one trial at a
time, then prints per-backend tables, the ranking and overall statistics.

Values come from the environment, then the plan file, then flags.

Example:
  protobench run
  protobench run --iterations 500 --backends rest,grpc
  protobench run --plan plans/quick.yaml --store`,
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.IntVarP(&runIterations, "iterations", "n", config.DefaultIterations, "calls per trial")
	flags.StringSliceVar(&runOperations, "operations", nil, "operations to run (comma-separated, or 'all')")
	flags.StringSliceVar(&runBackends, "backends", nil, "backends to compare (comma-separated, or 'all')")
	flags.IntVar(&runWorkers, "workers", 1, "concurrent callers per trial")
	flags.DurationVar(&runCallTimeout, "call-timeout", 5*time.Second, "per-call timeout")
	flags.Float64Var(&runRate, "rate", 0, "max calls per second per trial (0 = unlimited)")
	flags.StringVar(&runPlanFile, "plan", "", "YAML plan file")
	flags.BoolVar(&runStore, "store", false, "write results to ClickHouse")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	log := commandLogger("run")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	p, err := buildPlan(cmd.Flags(), cfg)
	if err != nil {
		return err
	}

	storeOpts := cfg.Store
	if cmd.Flags().Changed("store") {
		storeOpts.Enabled = runStore
	}

	// Cancelling reports the trials that completed.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = actions.Compare(ctx, log, cfg, actions.CompareOptions{
		Plan:    p,
		Store:   storeOpts,
		Verbose: verbose,
		Out:     os.Stdout,
	})
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("comparison interrupted: %w", err)
	}

	return err
}

// buildPlan layers the plan file and changed flags over the config defaults.
func buildPlan(flags *pflag.FlagSet, cfg *config.AppConfig) (plan.Plan, error) {
	p := plan.FromConfig(cfg)

	if runPlanFile != "" {
		loaded, err := plan.Load(runPlanFile, p)
		if err != nil {
			return plan.Plan{}, fmt.Errorf("loading plan %s: %w", runPlanFile, err)
		}
		p = loaded
	}

	if flags.Changed("iterations") {
		p.Iterations = runIterations
	}

	if flags.Changed("workers") {
		p.Workers = runWorkers
	}

	if flags.Changed("call-timeout") {
		p.CallTimeout = runCallTimeout
	}

	if flags.Changed("rate") {
		p.RateLimit = runRate
	}

	if flags.Changed("operations") {
		ops, err := plan.ParseOperations(runOperations)
		if err != nil {
			return plan.Plan{}, err
		}
		p.Operations = ops
	}

	if flags.Changed("backends") {
		ids, err := plan.ParseBackends(runBackends)
		if err != nil {
			return plan.Plan{}, err
		}
		p.Backends = ids
	}

	if err := p.Validate(); err != nil {
		return plan.Plan{}, err
	}

	return p, nil
}
