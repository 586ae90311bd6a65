package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/quantmind-br/tkblender/internal/cmd"
	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/logging"
	"github.com/quantmind-br/tkblender/internal/ui"
)

var version = "dev"

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(core.ExitGeneral)
	}

	ui.InitColors()
	switch cfg.Logging.Color {
	case "never":
		ui.DisableColors()
	case "always":
		ui.EnableColors()
	}

	// Initialize logger
	log := logging.NewLogger(logging.Config{
		Level:   cfg.Logging.Level,
		LogFile: cfg.Paths.LogFile,
		NoColor: cfg.Logging.Color == "never",
	})

	// Execute root command
	rootCmd := cmd.NewRootCmd(cfg, log, version)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(exitCode(err))
	}
}

// exitCode maps command errors to process exit codes
func exitCode(err error) int {
	switch {
	case err == nil:
		return core.ExitSuccess
	case errors.Is(err, cmd.ErrNoCandidates):
		return core.ExitNoCandidates
	case errors.Is(err, cmd.ErrLaunchFailed):
		return core.ExitLaunchFailed
	case errors.Is(err, cmd.ErrDatabase):
		return core.ExitDatabase
	case errors.Is(err, ui.ErrCancelled):
		return core.ExitInterrupted
	default:
		return core.ExitGeneral
	}
}
