// Package bootstrap starts the toolkit engine inside a freshly launched
// Blender session from the variables the launcher exported.
package bootstrap

import (
	"errors"
	"fmt"
	"os"

	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/engine"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"github.com/rs/zerolog"
)

// Variables removed once the session has been bootstrapped
var temporaryVars = []string{core.EnvEngine, core.EnvContext, core.EnvFileToOpen}

// Environment is the process environment seen by the bootstrap
type Environment interface {
	LookupEnv(key string) (string, bool)
	Unsetenv(key string) error
}

// OSEnvironment is the real process environment
type OSEnvironment struct{}

// LookupEnv implements Environment
func (OSEnvironment) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// Unsetenv implements Environment
func (OSEnvironment) Unsetenv(key string) error { return os.Unsetenv(key) }

// MapEnvironment is an in-memory Environment
type MapEnvironment map[string]string

// LookupEnv implements Environment
func (m MapEnvironment) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Unsetenv implements Environment
func (m MapEnvironment) Unsetenv(key string) error {
	delete(m, key)
	return nil
}

// Display shows bootstrap messages
type Display interface {
	Error(msg string)
	Info(msg string)
}

// Deps are the collaborators of Start
type Deps struct {
	Display Display
	// StartEngine creates, initializes and activates an engine for ctx
	StartEngine func(ctx *toolkit.Context) (*engine.Engine, error)
	// OpenFile opens a document in the host
	OpenFile func(path string) error
	Logger   *zerolog.Logger
}

// Start bootstraps the engine from env. The current engine is reused when
// there is one. The file named by SGTK_FILE_TO_OPEN is opened and the
// temporary variables are removed even when the engine could not start.
func Start(env Environment, deps Deps) (*engine.Engine, error) {
	log := zerolog.Nop()
	if deps.Logger != nil {
		log = deps.Logger.With().Str("component", "bootstrap").Logger()
	}
	log.Debug().Msg("launching toolkit in classic mode")

	eng, startErr := startClassic(env, deps, &log)
	if startErr != nil {
		deps.Display.Error(startErr.Error())
	}

	var openErr error
	if path, ok := env.LookupEnv(core.EnvFileToOpen); ok && path != "" {
		deps.Display.Info(fmt.Sprintf("ShotGrid: Opening '%s'...", path))
		if deps.OpenFile != nil {
			if err := deps.OpenFile(path); err != nil {
				openErr = fmt.Errorf("ShotGrid: could not open %s: %w", path, err)
				deps.Display.Error(openErr.Error())
			}
		}
	}

	for _, key := range temporaryVars {
		if err := env.Unsetenv(key); err != nil {
			log.Warn().Err(err).Str("var", key).Msg("failed to unset variable")
		}
	}

	return eng, errors.Join(startErr, openErr)
}

func startClassic(env Environment, deps Deps, log *zerolog.Logger) (*engine.Engine, error) {
	engineName, ok := env.LookupEnv(core.EnvEngine)
	if !ok || engineName == "" {
		return nil, fmt.Errorf("ShotGrid: Missing required environment variable %s.", core.EnvEngine)
	}
	if engineName != core.EngineName {
		return nil, fmt.Errorf("ShotGrid: Could not start engine. Details: unknown engine %q", engineName)
	}

	serialized, ok := env.LookupEnv(core.EnvContext)
	if !ok || serialized == "" {
		return nil, fmt.Errorf("ShotGrid: Missing required environment variable %s.", core.EnvContext)
	}

	ctx, err := toolkit.Deserialize(serialized)
	if err != nil {
		return nil, fmt.Errorf("ShotGrid: Could not create context! ShotGrid Pipeline Toolkit will be disabled. Details: %w", err)
	}

	if current := engine.Current(); current != nil {
		log.Debug().Msg("reusing the running engine")
		return current, nil
	}

	log.Debug().Str("engine", engineName).Str("context", ctx.String()).Msg("launching engine instance")
	eng, err := deps.StartEngine(ctx)
	if err != nil {
		return nil, fmt.Errorf("ShotGrid: Could not start engine. Details: %w", err)
	}
	return eng, nil
}
