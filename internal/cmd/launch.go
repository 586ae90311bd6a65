package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/helpers"
	"github.com/quantmind-br/tkblender/internal/launch"
	"github.com/quantmind-br/tkblender/internal/locator"
	"github.com/quantmind-br/tkblender/internal/paths"
	"github.com/quantmind-br/tkblender/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// ErrNoCandidates is returned when no supported Blender is installed
	ErrNoCandidates = errors.New("no supported Blender installation found")
	// ErrLaunchFailed is returned when Blender could not be started
	ErrLaunchFailed = errors.New("launch failed")
)

// selectFunc matches ui.SelectPromptDetailed
type selectFunc func(label string, options []ui.SelectOption) (int, ui.SelectOption, error)

// launchDeps are replaced in tests
type launchDeps struct {
	scan   func(ctx context.Context, progress io.Writer) []core.SoftwareCandidate
	choose selectFunc
	runner helpers.CommandRunner
	goos   string
}

// NewLaunchCmd creates the launch command
func NewLaunchCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	return newLaunchCmd(cfg, log, launchDeps{
		scan: func(ctx context.Context, progress io.Writer) []core.SoftwareCandidate {
			return scanCandidates(ctx, cfg, log, progress)
		},
		choose: ui.SelectPromptDetailed,
	})
}

func newLaunchCmd(cfg *config.Config, log *zerolog.Logger, deps launchDeps) *cobra.Command {
	var (
		version     string
		fileToOpen  string
		contextPath string
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch Blender in a pipeline context",
		Long: `Launch an installed Blender with the toolkit bootstrap environment.

The pipeline context is resolved from --context, or from --file when no
context path is given. Both must be inside a registered project.`,
		Example: `  tkblender launch --file /mnt/projects/demo/sequences/sq01/sh010/anim/scene.blend
  tkblender launch --version 3.6 --context /mnt/projects/demo/assets/prop/chair`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if contextPath == "" {
				contextPath = fileToOpen
			}
			if contextPath == "" {
				ui.PrintError("a --context or --file path is required")
				return fmt.Errorf("no context path given")
			}
			if fileToOpen != "" {
				abs, err := filepath.Abs(fileToOpen)
				if err != nil {
					return fmt.Errorf("resolve file: %w", err)
				}
				fileToOpen = abs
			}

			candidates := deps.scan(ctx, cmd.ErrOrStderr())
			if len(candidates) == 0 {
				ui.PrintError("%v", ErrNoCandidates)
				return ErrNoCandidates
			}

			candidate, err := pickCandidate(candidates, version, deps.choose)
			if err != nil {
				if errors.Is(err, ui.ErrCancelled) {
					ui.PrintWarning("Launch cancelled")
					return nil
				}
				ui.PrintError("%v", err)
				return err
			}

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

			tkCtx, err := registry.Resolve(contextPath)
			if err != nil {
				ui.PrintError("could not resolve a context for %s: %v", contextPath, err)
				return fmt.Errorf("resolve context: %w", err)
			}

			resolver := paths.NewResolver(cfg)
			info, err := launch.NewPreparer(resolver).Prepare(candidate, fileToOpen, tkCtx)
			if err != nil {
				ui.PrintError("failed to prepare launch: %v", err)
				return fmt.Errorf("prepare launch: %w", err)
			}

			launcher := launch.NewLauncher(log, launch.Options{
				Runner:     deps.runner,
				History:    database,
				ScriptsDir: resolver.GetLaunchScriptsDir(),
				Terminal:   cfg.Launcher.Terminal,
				GOOS:       deps.goos,
			})

			ui.PrintInfo("Launching %s in %s", candidate, tkCtx)
			result, err := launcher.Launch(ctx, info)
			if err != nil {
				ui.PrintError("launch failed: %v", err)
				return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
			}

			ui.PrintSuccess("Blender started")
			ui.PrintKeyValue("  Launch ID", result.LaunchID)
			if result.PID != 0 {
				ui.PrintKeyValue("  PID", strconv.Itoa(result.PID))
			}
			if result.ScriptPath != "" {
				ui.PrintKeyValue("  Script", result.ScriptPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&version, "version", "V", "", "Blender version to launch")
	cmd.Flags().StringVarP(&fileToOpen, "file", "f", "", "file to open once Blender is up")
	cmd.Flags().StringVarP(&contextPath, "context", "c", "", "path whose pipeline context is used")

	return cmd
}

// matchVersion prefers an exact version string, then any candidate of the
// same major.minor release
func matchVersion(candidates []core.SoftwareCandidate, version string) (core.SoftwareCandidate, bool) {
	for _, c := range candidates {
		if c.Version == version {
			return c, true
		}
	}

	want, err := locator.ParseVersion(version)
	if err != nil {
		return core.SoftwareCandidate{}, false
	}
	for _, c := range candidates {
		if got, err := locator.ParseVersion(c.Version); err == nil && got == want {
			return c, true
		}
	}
	return core.SoftwareCandidate{}, false
}

// pickCandidate selects by version, takes a lone candidate, or asks the user
func pickCandidate(candidates []core.SoftwareCandidate, version string, choose selectFunc) (core.SoftwareCandidate, error) {
	if version != "" {
		if c, ok := matchVersion(candidates, version); ok {
			return c, nil
		}
		return core.SoftwareCandidate{}, fmt.Errorf("Blender %s is not installed", version)
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}

	_, opt, err := choose("Blender version", candidateOptions(candidates))
	if err != nil {
		return core.SoftwareCandidate{}, err
	}
	i, err := strconv.Atoi(opt.Value)
	if err != nil || i < 0 || i >= len(candidates) {
		return core.SoftwareCandidate{}, fmt.Errorf("invalid selection %q", opt.Value)
	}
	return candidates[i], nil
}
