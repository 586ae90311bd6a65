package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/quantmind-br/tkblender/internal/cmd"
	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/logging"
	"github.com/quantmind-br/tkblender/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const colorNever = "never"

func TestMain_Wiring(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err, "Configuration should load without error")
	require.NotNil(t, cfg)

	log := logging.NewLogger(logging.Config{
		Level:   cfg.Logging.Level,
		LogFile: cfg.Paths.LogFile,
		NoColor: cfg.Logging.Color == colorNever,
	})
	assert.NotNil(t, log, "Logger should not be nil")

	rootCmd := cmd.NewRootCmd(cfg, log, version)
	rootCmd.SetArgs([]string{"version"})
	err = rootCmd.ExecuteContext(context.Background())
	assert.NoError(t, err, "Command execution should not return an error")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, core.ExitSuccess},
		{"no candidates", fmt.Errorf("launch: %w", cmd.ErrNoCandidates), core.ExitNoCandidates},
		{"launch failed", fmt.Errorf("%w: exec format error", cmd.ErrLaunchFailed), core.ExitLaunchFailed},
		{"database", fmt.Errorf("%w: disk full", cmd.ErrDatabase), core.ExitDatabase},
		{"cancelled", ui.ErrCancelled, core.ExitInterrupted},
		{"other", errors.New("boom"), core.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
