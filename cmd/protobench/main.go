// Package main is the entry point for the protobench application
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethpandaops/protobench/cmd"
)

const (
	envFlag      = "--env"
	envFlagEqual = "--env="
)

func main() {
	envFile, runTUI := parseArgs(os.Args)

	if !runTUI {
		cmd.Execute()
		return
	}

	if err := cmd.LoadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading env file: %v\n", err)
		os.Exit(1)
	}

	// LOG_LEVEL may come from the env file.
	cmd.InitLogger()
	cmd.RunInteractive()
}

// parseArgs extracts the env file and reports whether only --env (or
// nothing) was given, which selects interactive mode.
func parseArgs(args []string) (envFile string, runTUI bool) {
	for i, arg := range args {
		if arg == envFlag && i+1 < len(args) {
			envFile = args[i+1]
			break
		}
		if strings.HasPrefix(arg, envFlagEqual) {
			envFile = arg[len(envFlagEqual):]
			break
		}
	}

	switch len(args) {
	case 1:
		return envFile, true
	case 2:
		// A bare --env is left to cobra, which reports the missing value.
		return envFile, strings.HasPrefix(args[1], envFlagEqual)
	case 3:
		return envFile, args[1] == envFlag
	default:
		return envFile, false
	}
}
