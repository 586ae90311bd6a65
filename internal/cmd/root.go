package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/db"
	"github.com/quantmind-br/tkblender/internal/fsops"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"github.com/quantmind-br/tkblender/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// ErrDatabase marks failures to open the project database
var ErrDatabase = errors.New("database unavailable")

// NewRootCmd creates the root command
func NewRootCmd(cfg *config.Config, log *zerolog.Logger, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tkblender",
		Short: "Blender integration for the pipeline toolkit",
		Long: `Discover installed Blender versions, launch them inside a pipeline
context and run the toolkit engine session that keeps the context in sync
with the open file.`,
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewScanCmd(cfg, log))
	cmd.AddCommand(NewLaunchCmd(cfg, log))
	cmd.AddCommand(NewProjectCmd(cfg, log))
	cmd.AddCommand(NewContextCmd(cfg, log))
	cmd.AddCommand(NewSessionCmd(cfg, log))
	cmd.AddCommand(NewHistoryCmd(cfg, log))
	cmd.AddCommand(NewDoctorCmd(cfg, log))
	cmd.AddCommand(NewCompletionCmd(cfg, log))
	cmd.AddCommand(NewVersionCmd(version))

	return cmd
}

// openDatabase opens the registry database, reporting failures to the user
func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if err := fsops.EnsureDir(afero.NewOsFs(), filepath.Dir(cfg.Paths.DBFile), 0755); err != nil {
		ui.PrintError("failed to create database directory: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	database, err := db.New(ctx, cfg.Paths.DBFile)
	if err != nil {
		ui.PrintError("failed to open database: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return database, nil
}

// newRegistry builds the project registry over database
func newRegistry(ctx context.Context, cfg *config.Config, database *db.DB) (*toolkit.Registry, error) {
	schema := cfg.Toolkit.Schema
	if len(schema) == 0 {
		schema = config.DefaultSchema
	}
	registry, err := toolkit.NewRegistry(ctx, database, schema)
	if err != nil {
		return nil, fmt.Errorf("load project registry: %w", err)
	}
	return registry, nil
}
