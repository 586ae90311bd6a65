// Package engine hosts the in-process toolkit engine for a Blender session.
//
// The engine owns the current pipeline context and the toolkit menu. When
// automatic context switching is enabled it listens to the host's load and
// save events and re-derives the context from the open file (see Refresh).
package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/locator"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"github.com/rs/zerolog"
)

var (
	// ErrContextChange is returned when the engine refuses or fails a context change
	ErrContextChange = errors.New("context change failed")
	// ErrIncompatibleHost is returned by Init on unsupported platforms or Blender versions
	ErrIncompatibleHost = errors.New("incompatible host")
)

// Scene exposes the open document of the host
type Scene interface {
	// FilePath returns the path of the open file, empty when never saved
	FilePath() string
}

// Notifier displays messages to the artist
type Notifier interface {
	Error(msg string)
	Warning(msg string)
	Info(msg string)
	Debug(msg string)
	// Critical shows a blocking message; only called when HasUI is true
	Critical(title, msg string)
	HasUI() bool
}

// ContextChangeHook observes and may veto context changes
type ContextChangeHook interface {
	PreContextChange(previous, next *toolkit.Context) error
	PostContextChange(previous, current *toolkit.Context)
}

// Settings are the engine settings of the toolkit environment
type Settings struct {
	AutomaticContextSwitch bool
	UseSgtkAsMenuName      bool
	RunAtStartup           []config.StartupCommand
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() Settings {
	return Settings{AutomaticContextSwitch: true}
}

// SettingsFromConfig reads the engine section of cfg
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return DefaultSettings()
	}
	return Settings{
		AutomaticContextSwitch: cfg.Engine.AutomaticContextSwitch,
		UseSgtkAsMenuName:      cfg.Engine.UseSgtkAsMenuName,
		RunAtStartup:           cfg.Engine.RunAtStartup,
	}
}

// Deps are the collaborators of an Engine. Scene, Notifier and Opener are
// required.
type Deps struct {
	Scene              Scene
	Notifier           Notifier
	Opener             toolkit.Opener
	Hooks              *Hooks
	MainThread         *MainThread
	Logger             *zerolog.Logger
	ContextChangeHooks []ContextChangeHook
	// GOOS overrides runtime.GOOS in platform checks
	GOOS string
}

// HostInfo describes the host application
type HostInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Engine is the toolkit engine of one host session
type Engine struct {
	settings   Settings
	scene      Scene
	notifier   Notifier
	opener     toolkit.Opener
	hooks      *Hooks
	mainThread *MainThread
	log        zerolog.Logger
	ctxHooks   []ContextChangeHook
	goos       string

	mu                   sync.Mutex
	context              *toolkit.Context
	hostVersion          string
	menuName             string
	menu                 *Menu
	commands             []Command
	subs                 []*Subscription
	contextChangeAllowed bool
}

var current atomic.Pointer[Engine]

// Current returns the engine of the running session, if any
func Current() *Engine {
	return current.Load()
}

// SetCurrent makes e the engine of the running session
func SetCurrent(e *Engine) {
	current.Store(e)
}

// New creates an engine bound to ctx. Call Init and PostAppInit to start it.
func New(ctx *toolkit.Context, settings Settings, deps Deps) (*Engine, error) {
	if deps.Scene == nil || deps.Notifier == nil || deps.Opener == nil {
		return nil, fmt.Errorf("engine: scene, notifier and opener are required")
	}
	if deps.Hooks == nil {
		deps.Hooks = NewHooks()
	}
	if deps.MainThread == nil {
		deps.MainThread = NewMainThread()
	}
	log := zerolog.Nop()
	if deps.Logger != nil {
		log = deps.Logger.With().Str("component", "engine").Logger()
	}
	if deps.GOOS == "" {
		deps.GOOS = runtime.GOOS
	}

	return &Engine{
		settings:             settings,
		scene:                deps.Scene,
		notifier:             deps.Notifier,
		opener:               deps.Opener,
		hooks:                deps.Hooks,
		mainThread:           deps.MainThread,
		log:                  log,
		ctxHooks:             deps.ContextChangeHooks,
		goos:                 deps.GOOS,
		context:              ctx,
		menuName:             MenuName,
		contextChangeAllowed: true,
	}, nil
}

// Init checks the platform and host version and registers the scene event
// handlers when automatic context switching is enabled.
func (e *Engine) Init(hostVersion string) error {
	e.log.Debug().Str("host_version", hostVersion).Msg("initializing engine")

	switch e.goos {
	case "darwin", "linux", "windows":
	default:
		return fmt.Errorf("%w: unsupported platform %s, only Mac, Linux and Windows are supported", ErrIncompatibleHost, e.goos)
	}

	if hostVersion != "" {
		older, err := locator.IsOlder(hostVersion, core.MinimumSupportedVersion)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIncompatibleHost, err)
		}
		if older {
			msg := fmt.Sprintf("ShotGrid integration is not compatible with %s versions older than %s",
				core.ApplicationName, core.MinimumSupportedVersion)
			e.notifier.Error(msg)
			return fmt.Errorf("%w: %s", ErrIncompatibleHost, msg)
		}
	}

	e.mu.Lock()
	e.hostVersion = hostVersion
	if e.settings.UseSgtkAsMenuName {
		e.menuName = SgtkMenuName
	}
	e.mu.Unlock()

	if e.settings.AutomaticContextSwitch {
		e.SetupAppHandlers()
		e.log.Debug().Msg("registered open/save callbacks for automatic context")
	}
	return nil
}

// PostAppInit makes the engine current, builds the menu and runs the
// configured startup commands.
func (e *Engine) PostAppInit() {
	SetCurrent(e)
	e.CreateMenu(false)
	e.runAtStartup()
}

// Destroy detaches the event handlers and releases the current engine slot
func (e *Engine) Destroy() {
	e.log.Debug().Msg("destroying engine")
	e.TeardownAppHandlers()
	current.CompareAndSwap(e, nil)
}

// Context returns the active context
func (e *Engine) Context() *toolkit.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.context
}

// SetContextChangeAllowed toggles whether ChangeContext is permitted
func (e *Engine) SetContextChangeAllowed(allowed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contextChangeAllowed = allowed
}

// ChangeContext switches the engine to ctx and runs the post change steps
func (e *Engine) ChangeContext(ctx *toolkit.Context) error {
	e.mu.Lock()
	allowed := e.contextChangeAllowed
	previous := e.context
	e.mu.Unlock()

	if !allowed {
		return fmt.Errorf("%w: context change not allowed", ErrContextChange)
	}
	if ctx.IsEmpty() {
		return fmt.Errorf("%w: empty context", ErrContextChange)
	}

	for _, hook := range e.ctxHooks {
		if err := hook.PreContextChange(previous, ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrContextChange, err)
		}
	}

	e.mu.Lock()
	e.context = ctx
	e.mu.Unlock()

	e.log.Info().Str("from", previous.String()).Str("to", ctx.String()).Msg("context changed")
	e.postContextChange(previous, ctx)
	return nil
}

func (e *Engine) postContextChange(previous, next *toolkit.Context) {
	if !e.settings.AutomaticContextSwitch {
		return
	}

	e.SetupAppHandlers()
	if !previous.Equal(next) {
		e.CreateMenu(false)
	}
	for _, hook := range e.ctxHooks {
		hook.PostContextChange(previous, next)
	}
}

// RegisterCommand adds an app command to the engine. A command registered
// again under the same name replaces the previous one.
func (e *Engine) RegisterCommand(name, appInstance string, callback func()) error {
	if name == "" {
		return fmt.Errorf("register command: empty name")
	}
	if callback == nil {
		return fmt.Errorf("register command %q: nil callback", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cmd := Command{Name: name, AppInstance: appInstance, Callback: callback}
	for i, existing := range e.commands {
		if existing.Name == name {
			e.commands[i] = cmd
			return nil
		}
	}
	e.commands = append(e.commands, cmd)
	return nil
}

// Commands returns the registered commands in registration order
func (e *Engine) Commands() []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Command(nil), e.commands...)
}

// CreateMenu rebuilds the toolkit menu, optionally disabled
func (e *Engine) CreateMenu(disabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.menu = buildMenu(e.menuName, e.commands, disabled)
	e.log.Debug().Str("menu", e.menuName).Bool("disabled", disabled).Msg("created menu")
}

// Menu returns the current menu, nil before PostAppInit
func (e *Engine) Menu() *Menu {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.menu
}

// HostInfo describes the running Blender
func (e *Engine) HostInfo() HostInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	info := HostInfo{Name: core.ApplicationName, Version: "unknown"}
	if e.hostVersion != "" {
		info.Version = e.hostVersion
	}
	return info
}

// Hooks returns the host event handler lists the engine attaches to
func (e *Engine) Hooks() *Hooks {
	return e.hooks
}

// MainThread returns the dispatcher of the session goroutine
func (e *Engine) MainThread() *MainThread {
	return e.mainThread
}

// Notifier returns the engine's message display
func (e *Engine) Notifier() Notifier {
	return e.notifier
}

// Scene returns the host scene
func (e *Engine) Scene() Scene {
	return e.scene
}

func (e *Engine) runAtStartup() {
	byApp := make(map[string][]Command)
	for _, cmd := range e.Commands() {
		if cmd.AppInstance != "" {
			byApp[cmd.AppInstance] = append(byApp[cmd.AppInstance], cmd)
		}
	}

	for _, startup := range e.settings.RunAtStartup {
		commands, ok := byApp[startup.AppInstance]
		if !ok {
			e.log.Warn().Str("app", startup.AppInstance).
				Msgf("%s 'run_at_startup' requests app '%s' which is not installed", core.EngineName, startup.AppInstance)
			continue
		}

		if startup.Name == "" {
			for _, cmd := range commands {
				e.log.Debug().Str("app", startup.AppInstance).Str("command", cmd.Name).Msg("running startup command")
				cmd.Callback()
			}
			continue
		}

		found := false
		for _, cmd := range commands {
			if cmd.Name == startup.Name {
				e.log.Debug().Str("app", startup.AppInstance).Str("command", cmd.Name).Msg("running startup command")
				cmd.Callback()
				found = true
				break
			}
		}
		if !found {
			known := make([]string, 0, len(commands))
			for _, cmd := range commands {
				known = append(known, "'"+cmd.Name+"'")
			}
			e.log.Warn().Str("app", startup.AppInstance).Strs("known", known).
				Msgf("%s 'run_at_startup' requests unknown command '%s' in app '%s'", core.EngineName, startup.Name, startup.AppInstance)
		}
	}
}
