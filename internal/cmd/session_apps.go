package cmd

import (
	"context"

	"github.com/quantmind-br/tkblender/internal/engine"
	"github.com/quantmind-br/tkblender/internal/helpers"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"github.com/rs/zerolog"
)

// Built-in app commands available in every session. They can be named in
// engine.run_at_startup under the sessionApp instance.
const (
	sessionApp          = "tk-multi-about"
	cmdReloadContext    = "Reload Context"
	cmdJumpToFileSystem = "Jump to File System"
)

// registerSessionCommands adds the built-in commands to eng. It must run
// before PostAppInit so they show up in the menu and at startup.
func registerSessionCommands(ctx context.Context, eng *engine.Engine, registry *toolkit.Registry,
	runner helpers.CommandRunner, goos string, log *zerolog.Logger) error {
	if err := eng.RegisterCommand(cmdReloadContext, sessionApp, eng.OnSceneEvent); err != nil {
		return err
	}

	return eng.RegisterCommand(cmdJumpToFileSystem, sessionApp, func() {
		current := eng.Context()
		var project *toolkit.Entity
		if current != nil {
			project = current.Project
		}
		root, err := registry.ProjectRoot(project)
		if err != nil {
			log.Warn().Err(err).Str("context", current.String()).Msg("no project folder to open")
			return
		}

		browser := fileBrowser(goos)
		if _, err := runner.RunCommand(ctx, browser, root); err != nil {
			log.Warn().Err(err).Str("command", browser).Int("exit_code", runner.GetExitCode(err)).
				Str("path", root).Msg("could not open project folder")
			return
		}
		log.Info().Str("path", root).Msg("opened project folder")
	})
}

// fileBrowser returns the command that opens a folder on goos
func fileBrowser(goos string) string {
	switch goos {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}
