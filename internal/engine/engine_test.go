package engine

import (
	"bytes"
	"errors"
	"testing"

	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBareEngine(t *testing.T, settings Settings, goos string) (*Engine, *fakeNotifier) {
	t.Helper()
	notifier := &fakeNotifier{}
	open, _ := openerFor(newTestToolkit(), nil)
	e, err := New(shot("demo", 1, "sh010"), settings, Deps{
		Scene:    &fakeScene{},
		Notifier: notifier,
		Opener:   open,
		GOOS:     goos,
	})
	require.NoError(t, err)
	t.Cleanup(e.Destroy)
	return e, notifier
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, DefaultSettings(), Deps{})
	assert.Error(t, err)
}

func TestSettingsFromConfig(t *testing.T) {
	assert.Equal(t, DefaultSettings(), SettingsFromConfig(nil))

	cfg := &config.Config{Engine: config.EngineConfig{
		AutomaticContextSwitch: false,
		UseSgtkAsMenuName:      true,
		RunAtStartup:           []config.StartupCommand{{AppInstance: "tk-multi-workfiles2"}},
	}}
	s := SettingsFromConfig(cfg)
	assert.False(t, s.AutomaticContextSwitch)
	assert.True(t, s.UseSgtkAsMenuName)
	assert.Len(t, s.RunAtStartup, 1)
}

func TestInit(t *testing.T) {
	tests := []struct {
		name       string
		goos       string
		version    string
		wantErr    bool
		wantNotify bool
	}{
		{name: "supported", goos: "linux", version: "3.6.2"},
		{name: "minimum", goos: "darwin", version: "2.80"},
		{name: "unknown version", goos: "windows", version: ""},
		{name: "too old", goos: "linux", version: "2.79", wantErr: true, wantNotify: true},
		{name: "garbage version", goos: "linux", version: "daily", wantErr: true},
		{name: "unsupported platform", goos: "plan9", version: "4.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, notifier := newBareEngine(t, DefaultSettings(), tt.goos)
			err := e.Init(tt.version)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIncompatibleHost)
				assert.Equal(t, 0, e.Hooks().Count(LoadPost))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, e.Hooks().Count(LoadPost))
				assert.Equal(t, 1, e.Hooks().Count(SavePost))
			}
			assert.Equal(t, tt.wantNotify, notifier.count("error") > 0)
		})
	}
}

func TestInit_ManualContextSwitch(t *testing.T) {
	e, _ := newBareEngine(t, Settings{AutomaticContextSwitch: false}, "linux")
	require.NoError(t, e.Init("4.1"))
	assert.Equal(t, 0, e.Hooks().Count(LoadPost))
	assert.Equal(t, 0, e.Hooks().Count(SavePost))
}

func TestMenuName(t *testing.T) {
	e, _ := newBareEngine(t, DefaultSettings(), "linux")
	require.NoError(t, e.Init("4.1"))
	e.PostAppInit()
	assert.Equal(t, MenuName, e.Menu().Name)
	assert.True(t, e.Menu().Enabled)

	sgtk, _ := newBareEngine(t, Settings{UseSgtkAsMenuName: true}, "linux")
	require.NoError(t, sgtk.Init("4.1"))
	sgtk.PostAppInit()
	assert.Equal(t, SgtkMenuName, sgtk.Menu().Name)
}

func TestRegisterCommand(t *testing.T) {
	e, _ := newBareEngine(t, DefaultSettings(), "linux")

	assert.Error(t, e.RegisterCommand("", "app", func() {}))
	assert.Error(t, e.RegisterCommand("Open", "app", nil))

	first := 0
	second := 0
	require.NoError(t, e.RegisterCommand("File Open...", "tk-multi-workfiles2", func() { first++ }))
	require.NoError(t, e.RegisterCommand("Publish...", "tk-multi-publish2", func() {}))
	require.NoError(t, e.RegisterCommand("File Open...", "tk-multi-workfiles2", func() { second++ }))

	commands := e.Commands()
	require.Len(t, commands, 2)
	assert.Equal(t, "File Open...", commands[0].Name)
	commands[0].Callback()
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	require.NoError(t, e.Init("4.1"))
	e.CreateMenu(true)
	menu := e.Menu()
	require.Len(t, menu.Items, 2)
	assert.False(t, menu.Enabled)
	assert.False(t, menu.Items[1].Enabled)
}

func TestPostAppInit_RunAtStartup(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	settings := DefaultSettings()
	settings.RunAtStartup = []config.StartupCommand{
		{AppInstance: "tk-multi-workfiles2", Name: "File Open..."},
		{AppInstance: "tk-multi-shotgunpanel"},
		{AppInstance: "tk-multi-missing", Name: "Anything"},
		{AppInstance: "tk-multi-workfiles2", Name: "Nope"},
	}

	open, _ := openerFor(newTestToolkit(), nil)
	e, err := New(shot("demo", 1, "sh010"), settings, Deps{
		Scene: &fakeScene{}, Notifier: &fakeNotifier{}, Opener: open, Logger: &logger, GOOS: "linux",
	})
	require.NoError(t, err)
	t.Cleanup(e.Destroy)

	ran := map[string]int{}
	register := func(name, app string) {
		require.NoError(t, e.RegisterCommand(name, app, func() { ran[name]++ }))
	}
	register("File Open...", "tk-multi-workfiles2")
	register("File Save...", "tk-multi-workfiles2")
	register("Panel", "tk-multi-shotgunpanel")
	register("Panel Help", "tk-multi-shotgunpanel")

	require.NoError(t, e.Init("4.1"))
	e.PostAppInit()

	assert.Same(t, e, Current())
	assert.Equal(t, map[string]int{"File Open...": 1, "Panel": 1, "Panel Help": 1}, ran)
	assert.Contains(t, logBuf.String(), "which is not installed")
	assert.Contains(t, logBuf.String(), "unknown command 'Nope'")
}

func TestChangeContext(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		e, _ := newBareEngine(t, DefaultSettings(), "linux")
		assert.ErrorIs(t, e.ChangeContext(&toolkit.Context{}), ErrContextChange)
		assert.ErrorIs(t, e.ChangeContext(nil), ErrContextChange)
	})

	t.Run("not allowed", func(t *testing.T) {
		e, _ := newBareEngine(t, DefaultSettings(), "linux")
		e.SetContextChangeAllowed(false)
		assert.ErrorIs(t, e.ChangeContext(shot("other", 2, "sh020")), ErrContextChange)
		assert.Equal(t, "demo", e.Context().Project.Name)
	})

	t.Run("vetoed by hook", func(t *testing.T) {
		e, _ := newBareEngine(t, DefaultSettings(), "linux")
		e.ctxHooks = []ContextChangeHook{&recordingHook{veto: errors.New("locked")}}
		err := e.ChangeContext(shot("other", 2, "sh020"))
		assert.ErrorIs(t, err, ErrContextChange)
		assert.Contains(t, err.Error(), "locked")
	})

	t.Run("post change without automatic switch", func(t *testing.T) {
		hook := &recordingHook{}
		e, _ := newBareEngine(t, Settings{}, "linux")
		e.ctxHooks = []ContextChangeHook{hook}
		require.NoError(t, e.Init("4.1"))

		require.NoError(t, e.ChangeContext(shot("other", 2, "sh020")))
		assert.Equal(t, "other", e.Context().Project.Name)
		assert.Equal(t, 1, hook.pre)
		assert.Empty(t, hook.posts)
		assert.Equal(t, 0, e.Hooks().Count(LoadPost))
	})
}

func TestHostInfo(t *testing.T) {
	e, _ := newBareEngine(t, DefaultSettings(), "linux")
	assert.Equal(t, HostInfo{Name: "Blender", Version: "unknown"}, e.HostInfo())

	require.NoError(t, e.Init("4.1.1"))
	assert.Equal(t, HostInfo{Name: "Blender", Version: "4.1.1"}, e.HostInfo())
}

func TestDestroy_ReleasesCurrent(t *testing.T) {
	e, _ := newBareEngine(t, DefaultSettings(), "linux")
	require.NoError(t, e.Init("4.1"))
	e.PostAppInit()
	require.Same(t, e, Current())

	e.Destroy()
	assert.Nil(t, Current())
	assert.Equal(t, 0, e.Hooks().Count(SavePost))
}
