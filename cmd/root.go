// Package cmd wires the protobench commands.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Logger is shared by every command.
	Logger *logrus.Logger

	envFile string
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "protobench",
		Short: "protobench - REST, GraphQL, SOAP and gRPC catalog benchmark",
		Long: `protobench runs the same catalog queries against REST, GraphQL, SOAP and gRPC
backends, measures latency and throughput, and ranks the backends.

Run without arguments to launch interactive mode, or use subcommands for direct operations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := LoadEnvFile(envFile); err != nil {
				return err
			}

			if verbose {
				Logger.SetLevel(logrus.DebugLevel)
			}

			return nil
		},
	}
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		Logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func init() {
	InitLogger()

	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging and per-call detail")
}

// InitLogger (re)creates the shared logger. LOG_LEVEL picks the level and
// falls back to info when unset or unparseable.
func InitLogger() {
	Logger = logrus.New()
	Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Logger.SetLevel(logrus.InfoLevel)

	raw := os.Getenv("LOG_LEVEL")
	if raw == "" {
		return
	}

	level, err := logrus.ParseLevel(raw)
	if err != nil {
		Logger.WithField("log_level", raw).Warn("invalid LOG_LEVEL, using info")
		return
	}

	Logger.SetLevel(level)
}

// LoadEnvFile loads file, or .env when file is empty. A missing default
// .env is not an error.
func LoadEnvFile(file string) error {
	if file == "" {
		file = ".env"
	}

	if err := godotenv.Load(file); err != nil {
		if file == ".env" && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", file, err)
	}

	return nil
}
