package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"github.com/quantmind-br/tkblender/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewContextCmd creates the context command
func NewContextCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		jsonOutput bool
		serialized bool
	)

	cmd := &cobra.Command{
		Use:   "context <path>",
		Short: "Show the pipeline context of a path",
		Long: `Resolve the pipeline context a file or directory belongs to, the same
way the engine does when a file is opened or saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			ctx := context.Background()
			database, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			registry, err := newRegistry(ctx, cfg, database)
			if err != nil {
				ui.PrintError("%v", err)
				return err
			}

			resolved, err := registry.Resolve(path)
			if err != nil {
				ui.PrintError("could not resolve a context for %s: %v", path, err)
				return fmt.Errorf("resolve context: %w", err)
			}
			log.Debug().Str("path", path).Str("context", resolved.String()).Msg("context resolved")

			if serialized {
				s, err := toolkit.Serialize(resolved)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
				return nil
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resolved)
			}

			printContext(resolved)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.Flags().BoolVar(&serialized, "serialized", false, "print the value exported as SGTK_CONTEXT")

	return cmd
}

func printContext(c *toolkit.Context) {
	ui.PrintHeader(c.String())
	for _, level := range []struct {
		name   string
		entity *toolkit.Entity
	}{
		{"Project", c.Project},
		{"Entity", c.Entity},
		{"Step", c.Step},
	} {
		if level.entity == nil {
			ui.PrintKeyValue(level.name, "-")
			continue
		}
		ui.PrintKeyValue(level.name, level.entity.String())
	}
}
