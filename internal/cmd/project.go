package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/db"
	"github.com/quantmind-br/tkblender/internal/fsops"
	"github.com/quantmind-br/tkblender/internal/security"
	"github.com/quantmind-br/tkblender/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewProjectCmd creates the project command group
func NewProjectCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage pipeline projects",
		Long: `Register the project roots used to resolve pipeline contexts.
A file belongs to the project whose root contains it; nested roots win.`,
	}

	cmd.AddCommand(newProjectAddCmd(cfg, log))
	cmd.AddCommand(newProjectListCmd(cfg))
	cmd.AddCommand(newProjectRemoveCmd(cfg, log))

	return cmd
}

func newProjectAddCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <root>",
		Short: "Register a project root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, root := args[0], args[1]

			if err := security.ValidateProjectName(name); err != nil {
				ui.PrintError("%v", err)
				return err
			}
			abs, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("resolve root: %w", err)
			}
			if !fsops.IsDir(afero.NewOsFs(), abs) {
				ui.PrintError("project root is not a directory: %s", abs)
				return fmt.Errorf("project root %s is not a directory", abs)
			}

			ctx := context.Background()
			database, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if _, err := database.GetProject(ctx, name); err == nil {
				ui.PrintError("project %s is already registered", name)
				return fmt.Errorf("project %s already exists", name)
			}

			project := &db.Project{Name: name, RootPath: abs}
			if err := database.CreateProject(ctx, project); err != nil {
				ui.PrintError("failed to register project: %v", err)
				return err
			}

			log.Info().Str("project", name).Str("root", abs).Msg("project registered")
			ui.PrintSuccess("Project %s registered at %s", name, abs)
			return nil
		},
	}
}

func newProjectListCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			database, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			projects, err := database.ListProjects(ctx)
			if err != nil {
				ui.PrintError("failed to list projects: %v", err)
				return fmt.Errorf("list projects: %w", err)
			}

			if jsonOutput {
				if projects == nil {
					projects = []db.Project{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(projects)
			}

			if len(projects) == 0 {
				ui.PrintInfo("No projects registered")
				return nil
			}

			table := tablewriter.NewTable(cmd.OutOrStdout(),
				tablewriter.WithHeader([]string{"Name", "Root", "Registered"}),
				tablewriter.WithAlignment(tw.MakeAlign(3, tw.AlignLeft)),
				tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
			)
			for _, p := range projects {
				table.Append(p.Name, p.RootPath, p.CreatedAt.Format("2006-01-02 15:04"))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func newProjectRemoveCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Unregister a project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !force {
				ok, err := ui.ConfirmPrompt(fmt.Sprintf("Remove project %s", name))
				if err != nil || !ok {
					ui.PrintInfo("Nothing removed")
					return nil
				}
			}

			ctx := context.Background()
			database, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.DeleteProject(ctx, name); err != nil {
				if errors.Is(err, db.ErrNotFound) {
					ui.PrintError("project %s is not registered", name)
				} else {
					ui.PrintError("failed to remove project: %v", err)
				}
				return err
			}

			log.Info().Str("project", name).Msg("project removed")
			ui.PrintSuccess("Project %s removed", name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}
