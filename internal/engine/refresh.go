package engine

import (
	"errors"
	"fmt"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/toolkit"
)

// Action is the outcome of a refresh decision
type Action int

const (
	// ActionNone leaves the engine untouched
	ActionNone Action = iota
	// ActionChange switches the engine to Decision.Context
	ActionChange
	// ActionWarn keeps the context and shows Decision.Warning
	ActionWarn
)

func (a Action) String() string {
	switch a {
	case ActionChange:
		return "change"
	case ActionWarn:
		return "warn"
	default:
		return "none"
	}
}

// Decision is what a refresh should do for the open file
type Decision struct {
	Action  Action
	Context *toolkit.Context
	// Fallback is set when the path resolved to nothing and the project
	// context of the current context was used instead.
	Fallback bool
	Warning  string
	// Reason explains an ActionNone
	Reason string
}

// Decide works out the context change for filePath given the current
// context. It has no side effects: errors from the toolkit are returned, a
// missing toolkit handle becomes ActionWarn.
func Decide(current *toolkit.Context, filePath string, open toolkit.Opener) (Decision, error) {
	if filePath == "" || filePath == core.UntitledFile {
		return Decision{Action: ActionNone, Reason: "file not saved yet"}, nil
	}

	abs, err := filepath.Abs(filePath)
	if err != nil {
		abs = filePath
	}

	tk, err := open(abs)
	if err != nil {
		return Decision{
			Action: ActionWarn,
			Warning: fmt.Sprintf("%s could not detect the context\nfrom the active document. "+
				"Menus will stay in the current context '%s'.\n", core.EngineNiceName, current),
			Reason: err.Error(),
		}, nil
	}

	ctx, err := tk.ContextFromPath(abs, current)
	if err != nil {
		return Decision{}, fmt.Errorf("context from path %s: %w", abs, err)
	}

	fallback := false
	if ctx == nil {
		if current == nil || current.Project == nil {
			return Decision{Action: ActionNone, Reason: "no context for path and no project to fall back to"}, nil
		}
		ctx, err = tk.ContextFromEntity(current.Project)
		if err != nil {
			return Decision{}, fmt.Errorf("context from project %s: %w", current.Project, err)
		}
		if ctx == nil {
			return Decision{Action: ActionNone, Reason: "project context unavailable"}, nil
		}
		fallback = true
	}

	if ctx.Equal(current) {
		return Decision{Action: ActionNone, Context: ctx, Fallback: fallback, Reason: "context unchanged"}, nil
	}

	return Decision{Action: ActionChange, Context: ctx, Fallback: fallback}, nil
}

// Refresh re-derives the context from the open file and applies it. A
// failed context change disables the menu instead of returning an error.
func (e *Engine) Refresh() error {
	e.log.Debug().Msg("refreshing the engine")

	decision, err := Decide(e.Context(), e.scene.FilePath(), e.opener)
	if err != nil {
		return err
	}

	switch decision.Action {
	case ActionNone:
		e.log.Debug().Str("reason", decision.Reason).Msg("refresh aborted")
	case ActionWarn:
		e.log.Debug().Str("reason", decision.Reason).Msg("no toolkit for the open file")
		e.notifier.Warning(decision.Warning)
	case ActionChange:
		if decision.Fallback {
			e.log.Debug().Str("context", decision.Context.String()).
				Msg("could not extract a context from the path, reverting to the project context")
		}
		if err := e.ChangeContext(decision.Context); err != nil {
			if !errors.Is(err, ErrContextChange) {
				return err
			}
			e.log.Debug().Err(err).Msg("context change rejected")
			e.notifier.Warning(fmt.Sprintf("%s could not change context\nto '%s'. %s menu will be disabled.\n",
				core.EngineNiceName, decision.Context, e.menuTitle()))
			e.CreateMenu(true)
		}
	}
	return nil
}

func (e *Engine) menuTitle() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.menuName
}

// OnSceneEvent is the load/save handler. It never lets a failure escape into
// the host: errors and panics are logged with their stack and reported.
func (e *Engine) OnSceneEvent() {
	defer func() {
		if r := recover(); r != nil {
			e.reportFailure(pkgerrors.Errorf("panic: %v", r))
		}
	}()

	if err := e.Refresh(); err != nil {
		e.reportFailure(pkgerrors.WithStack(err))
	}
}

func (e *Engine) reportFailure(err error) {
	e.log.Error().Stack().Err(err).Msg("could not refresh the engine")

	message := fmt.Sprintf("Message: %s encountered a problem changing the Engine's context.\n\n"+
		"Error: %+v\n", core.EngineNiceName, err)

	if e.notifier.HasUI() {
		e.notifier.Critical(core.EngineNiceName, message)
		return
	}
	e.notifier.Error(message)
}

// SetupAppHandlers attaches OnSceneEvent to the load and save events,
// replacing any handlers attached earlier by this engine.
func (e *Engine) SetupAppHandlers() {
	e.TeardownAppHandlers()

	subs := []*Subscription{
		e.hooks.Attach(LoadPost, e.OnSceneEvent),
		e.hooks.Attach(SavePost, e.OnSceneEvent),
	}

	e.mu.Lock()
	e.subs = subs
	e.mu.Unlock()
}

// TeardownAppHandlers detaches the handlers attached by SetupAppHandlers
func (e *Engine) TeardownAppHandlers() {
	e.mu.Lock()
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()

	for _, sub := range subs {
		sub.Detach()
	}
}
