package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/quantmind-br/tkblender/internal/bootstrap"
	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/engine"
	"github.com/quantmind-br/tkblender/internal/helpers"
	"github.com/quantmind-br/tkblender/internal/logging"
	"github.com/quantmind-br/tkblender/internal/session"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"github.com/quantmind-br/tkblender/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type sessionDeps struct {
	runner helpers.CommandRunner
	goos   string
}

// NewSessionCmd creates the session command
func NewSessionCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	return newSessionCmd(cfg, log, sessionDeps{
		runner: helpers.NewOSCommandRunner(),
		goos:   runtime.GOOS,
	})
}

func newSessionCmd(cfg *config.Config, log *zerolog.Logger, deps sessionDeps) *cobra.Command {
	var (
		fileToOpen  string
		hostVersion string
		contextPath string
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run the engine session of a launched Blender",
		Long: `Bootstrap the toolkit engine from the SGTK_* variables exported by
'tkblender launch' and keep its context in sync with the open file until
interrupted. Saving the open file refreshes the context.

--context and --file stand in for the launch variables when the session is
started by hand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			database, err := openDatabase(context.Background(), cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			registry, err := newRegistry(context.Background(), cfg, database)
			if err != nil {
				ui.PrintError("%v", err)
				return err
			}

			if err := exportSessionVars(registry, contextPath, fileToOpen); err != nil {
				ui.PrintError("%v", err)
				return err
			}

			hooks := engine.NewHooks()
			mainThread := engine.NewMainThread()
			host := session.NewHost(hooks)

			console := ui.NewConsole(core.EngineNiceName, isInteractive(), logging.DebugEnabled())
			console.Out = cmd.ErrOrStderr()

			engineLog := logging.NewLogger(logging.Config{
				Level:     cfg.Logging.Level,
				LogFile:   cfg.Paths.LogFile,
				NoConsole: true,
				Extra:     &engine.LogWriter{Notifier: console, MainThread: mainThread},
			})

			eng, err := bootstrap.Start(bootstrap.OSEnvironment{}, bootstrap.Deps{
				Display: console,
				StartEngine: func(c *toolkit.Context) (*engine.Engine, error) {
					e, err := engine.New(c, engine.SettingsFromConfig(cfg), engine.Deps{
						Scene:      host,
						Notifier:   console,
						Opener:     registry.Open,
						Hooks:      hooks,
						MainThread: mainThread,
						Logger:     engineLog,
					})
					if err != nil {
						return nil, err
					}
					if err := e.Init(hostVersion); err != nil {
						return nil, err
					}
					if err := registerSessionCommands(ctx, e, registry, deps.runner, deps.goos, log); err != nil {
						return nil, err
					}
					e.PostAppInit()
					return e, nil
				},
				OpenFile: host.Open,
				Logger:   engineLog,
			})
			if eng == nil {
				mainThread.ProcessEvents()
				return fmt.Errorf("bootstrap: %w", err)
			}
			if err != nil {
				log.Warn().Err(err).Msg("session started with errors")
			}
			defer eng.Destroy()

			watcher, err := session.NewWatcher(host, debounce, log)
			if err != nil {
				ui.PrintError("%v", err)
				return err
			}
			defer watcher.Close()

			console.Info(fmt.Sprintf("Engine running in %s. Press Ctrl+C to stop.", eng.Context()))
			log.Info().Str("context", eng.Context().String()).Str("file", host.FilePath()).Msg("session started")

			return session.Run(ctx, host, watcher, mainThread)
		},
	}

	cmd.Flags().StringVarP(&fileToOpen, "file", "f", "", "file to open (sets SGTK_FILE_TO_OPEN)")
	cmd.Flags().StringVar(&hostVersion, "host-version", "", "Blender version of the host")
	cmd.Flags().StringVarP(&contextPath, "context", "c", "", "resolve SGTK_CONTEXT from this path when it is not set")
	cmd.Flags().DurationVar(&debounce, "debounce", session.DefaultDebounce, "quiet period before a file write counts as a save")

	return cmd
}

// exportSessionVars fills in the launch variables from the command flags
func exportSessionVars(registry *toolkit.Registry, contextPath, fileToOpen string) error {
	if fileToOpen != "" {
		abs, err := filepath.Abs(fileToOpen)
		if err != nil {
			return fmt.Errorf("resolve file: %w", err)
		}
		if err := os.Setenv(core.EnvFileToOpen, abs); err != nil {
			return err
		}
		if contextPath == "" {
			contextPath = abs
		}
	}

	if v, ok := os.LookupEnv(core.EnvContext); ok && v != "" {
		return nil
	}
	if contextPath == "" {
		return nil
	}

	resolved, err := registry.Resolve(contextPath)
	if err != nil {
		return fmt.Errorf("could not resolve a context for %s: %w", contextPath, err)
	}
	serialized, err := toolkit.Serialize(resolved)
	if err != nil {
		return err
	}
	if err := os.Setenv(core.EnvContext, serialized); err != nil {
		return err
	}
	if _, ok := os.LookupEnv(core.EnvEngine); !ok {
		return os.Setenv(core.EnvEngine, core.EngineName)
	}
	return nil
}

// isInteractive reports whether stdin is a terminal
func isInteractive() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
