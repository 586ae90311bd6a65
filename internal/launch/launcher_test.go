package launch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/db"
	"github.com/quantmind-br/tkblender/internal/helpers"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/syntax"
)

type fakeHistory struct {
	records []*db.Launch
	err     error
}

func (h *fakeHistory) RecordLaunch(_ context.Context, launch *db.Launch) error {
	h.records = append(h.records, launch)
	return h.err
}

func testInfo() *Information {
	return &Information{
		Path: "/Applications/Blender 4.1.app/Contents/MacOS/Blender",
		Args: []string{"-P", "/data/scripts/startup/ShotGrid_menu.py"},
		Env: map[string]string{
			core.EnvEngine:  core.EngineName,
			core.EnvContext: "eyJwcm9qZWN0Ijp7fX0=",
			"WITH_QUOTES":   `say "hi" it's`,
		},
		Version: "4.1",
		Context: "eyJwcm9qZWN0Ijp7fX0=",
	}
}

func fixedOptions(fs afero.Fs, runner helpers.CommandRunner, history History) Options {
	return Options{
		Fs:         fs,
		Runner:     runner,
		History:    history,
		ScriptsDir: "/data/launch",
		Environ:    func() []string { return []string{"PATH=/usr/bin", "SGTK_ENGINE=stale"} },
		Now:        func() time.Time { return time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC) },
		NewID:      func() string { return "11111111-2222-3333-4444-555555555555" },
	}
}

func TestLaunch_Process(t *testing.T) {
	var started *exec.Cmd
	runner := &helpers.MockCommandRunner{
		StartFunc: func(cmd *exec.Cmd) (int, error) {
			started = cmd
			return 777, nil
		},
	}
	history := &fakeHistory{}
	opts := fixedOptions(afero.NewMemMapFs(), runner, history)
	opts.GOOS = "linux"
	opts.Terminal = true

	l := NewLauncher(nil, opts)
	assert.False(t, l.UsesTerminal())

	result, err := l.Launch(context.Background(), testInfo())
	require.NoError(t, err)
	assert.Equal(t, 777, result.PID)
	assert.Empty(t, result.ScriptPath)

	require.NotNil(t, started)
	assert.Equal(t, append([]string{testInfo().Path}, testInfo().Args...), started.Args)
	assert.Contains(t, started.Env, "PATH=/usr/bin")
	assert.Contains(t, started.Env, "SGTK_ENGINE=tk-blender")
	assert.NotContains(t, started.Env, "SGTK_ENGINE=stale")

	require.Len(t, history.records, 1)
	assert.Equal(t, result.LaunchID, history.records[0].LaunchID)
	assert.Equal(t, "4.1", history.records[0].Version)
}

func TestLaunch_StartFailure(t *testing.T) {
	runner := &helpers.MockCommandRunner{
		StartFunc: func(*exec.Cmd) (int, error) { return 0, errors.New("permission denied") },
	}
	history := &fakeHistory{}
	opts := fixedOptions(afero.NewMemMapFs(), runner, history)
	opts.GOOS = "windows"

	_, err := NewLauncher(nil, opts).Launch(context.Background(), testInfo())
	assert.Error(t, err)
	assert.Empty(t, history.records)
}

func TestLaunch_HistoryFailureIsNotFatal(t *testing.T) {
	history := &fakeHistory{err: errors.New("database is locked")}
	opts := fixedOptions(afero.NewMemMapFs(), &helpers.MockCommandRunner{}, history)
	opts.GOOS = "linux"

	result, err := NewLauncher(nil, opts).Launch(context.Background(), testInfo())
	require.NoError(t, err)
	assert.Equal(t, 4242, result.PID)
}

func TestLaunch_Terminal(t *testing.T) {
	fs := afero.NewMemMapFs()
	var osascript []string
	runner := &helpers.MockCommandRunner{
		RunCommandFunc: func(_ context.Context, name string, args ...string) (string, error) {
			osascript = append([]string{name}, args...)
			return "", nil
		},
		StartFunc: func(*exec.Cmd) (int, error) {
			t.Fatal("process must not be started directly")
			return 0, nil
		},
	}
	opts := fixedOptions(fs, runner, &fakeHistory{})
	opts.GOOS = "darwin"
	opts.Terminal = true

	l := NewLauncher(nil, opts)
	require.True(t, l.UsesTerminal())

	result, err := l.Launch(context.Background(), testInfo())
	require.NoError(t, err)
	assert.Equal(t, 0, result.PID)
	assert.Equal(t, "/data/launch/blender_launch_11111111-2222-3333-4444-555555555555.sh", result.ScriptPath)

	info, err := fs.Stat(result.ScriptPath)
	require.NoError(t, err)
	assert.Equal(t, "-rwxr-xr-x", info.Mode().Perm().String())

	require.Len(t, osascript, 3)
	assert.Equal(t, "osascript", osascript[0])
	assert.Equal(t, "-e", osascript[1])
	assert.Contains(t, osascript[2], `tell application "Terminal"`)
	assert.Contains(t, osascript[2], "do script")
	assert.Contains(t, osascript[2], result.ScriptPath)
}

func TestLaunch_TerminalRollback(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &helpers.MockCommandRunner{
		RunCommandFunc: func(context.Context, string, ...string) (string, error) {
			return "", errors.New("osascript: not authorized")
		},
	}
	history := &fakeHistory{}
	opts := fixedOptions(fs, runner, history)
	opts.GOOS = "darwin"
	opts.Terminal = true

	_, err := NewLauncher(nil, opts).Launch(context.Background(), testInfo())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Terminal")

	exists, err := afero.Exists(fs, "/data/launch/blender_launch_11111111-2222-3333-4444-555555555555.sh")
	require.NoError(t, err)
	assert.False(t, exists, "script removed on rollback")
	assert.Empty(t, history.records)
}

func TestLaunch_TerminalWithoutOsascript(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &helpers.MockCommandRunner{
		RequireCommandFunc: func(name string) error {
			return fmt.Errorf("required command not found: %s", name)
		},
		RunCommandFunc: func(context.Context, string, ...string) (string, error) {
			t.Fatal("osascript must not run")
			return "", nil
		},
	}
	opts := fixedOptions(fs, runner, &fakeHistory{})
	opts.GOOS = "darwin"
	opts.Terminal = true

	_, err := NewLauncher(nil, opts).Launch(context.Background(), testInfo())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "osascript")

	entries, _ := afero.Glob(fs, "/data/launch/*.sh")
	assert.Empty(t, entries)
}

func TestLaunch_NoExecutable(t *testing.T) {
	_, err := NewLauncher(nil, Options{}).Launch(context.Background(), &Information{})
	assert.Error(t, err)
	_, err = NewLauncher(nil, Options{}).Launch(context.Background(), nil)
	assert.Error(t, err)
}

func TestBuildTerminalScript(t *testing.T) {
	script, err := BuildTerminalScript(testInfo())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(script), "\n")
	assert.Equal(t, "#!/bin/bash", lines[0])
	assert.Contains(t, script, "export SGTK_ENGINE=tk-blender\n")
	assert.Contains(t, script, "'/Applications/Blender 4.1.app/Contents/MacOS/Blender' -P /data/scripts/startup/ShotGrid_menu.py\n")
	assert.Equal(t, `read -p "Press [Enter] to close this window..."`, lines[len(lines)-1])

	// exports come out sorted and the quoted value round-trips through a bash parser
	file, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(script), "")
	require.NoError(t, err)

	var exported []string
	syntax.Walk(file, func(node syntax.Node) bool {
		if decl, ok := node.(*syntax.DeclClause); ok {
			for _, assign := range decl.Args {
				exported = append(exported, assign.Name.Value)
			}
		}
		return true
	})
	assert.Equal(t, []string{core.EnvContext, core.EnvEngine, "WITH_QUOTES"}, exported)
}

func TestBuildTerminalScript_RejectsNullBytes(t *testing.T) {
	info := testInfo()
	info.Env["BROKEN"] = "a\x00b"
	_, err := BuildTerminalScript(info)
	assert.Error(t, err)
}

func TestMergeEnv(t *testing.T) {
	merged := MergeEnv(
		[]string{"PATH=/usr/bin", "SGTK_CONTEXT=old", "HOME=/home/artist"},
		map[string]string{"SGTK_CONTEXT": "new", "SGTK_ENGINE": "tk-blender"},
	)
	assert.Equal(t, []string{
		"PATH=/usr/bin",
		"HOME=/home/artist",
		"SGTK_CONTEXT=new",
		"SGTK_ENGINE=tk-blender",
	}, merged)
}
