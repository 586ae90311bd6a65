package launch

import (
	"errors"
	"testing"

	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/paths"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *toolkit.Context {
	return &toolkit.Context{
		Project: &toolkit.Entity{Type: toolkit.EntityTypeProject, Name: "demo", ID: 1},
		Entity:  &toolkit.Entity{Type: "Shot", Name: "sh010"},
	}
}

func newTestPreparer(env map[string]string) *Preparer {
	cfg := &config.Config{Paths: config.PathsConfig{DataDir: "/data/tkblender"}}
	p := NewPreparer(paths.NewResolverWithHome(cfg, "/home/artist"))
	p.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	p.executable = func() (string, error) { return "/usr/local/bin/tkblender", nil }
	return p
}

func TestPrepare(t *testing.T) {
	p := newTestPreparer(nil)
	candidate := core.SoftwareCandidate{
		ExecutablePath: "/opt/blender-4.1-linux-x64/blender",
		Version:        "4.1",
		DisplayName:    core.ApplicationName,
	}

	info, err := p.Prepare(candidate, "/mnt/projects/demo/sh010.blend", testContext())
	require.NoError(t, err)

	assert.Equal(t, candidate.ExecutablePath, info.Path)
	assert.Equal(t, []string{"-P", "/data/tkblender/resources/scripts/startup/ShotGrid_menu.py"}, info.Args)
	assert.Equal(t, "4.1", info.Version)

	assert.Equal(t, "/data/tkblender/resources/scripts", info.Env[core.EnvUserScripts])
	assert.Equal(t, "/data/tkblender/python/ext", info.Env[core.EnvPySidePath])
	assert.Equal(t, "/data/tkblender/python", info.Env[core.EnvModulePath])
	assert.Equal(t, "/data/tkblender/startup/bootstrap.py", info.Env[core.EnvEngineStartup])
	assert.Equal(t, "/usr/local/bin/tkblender", info.Env[core.EnvEnginePython])
	assert.Equal(t, core.EngineName, info.Env[core.EnvEngine])
	assert.Equal(t, "/mnt/projects/demo/sh010.blend", info.Env[core.EnvFileToOpen])

	decoded, err := toolkit.Deserialize(info.Env[core.EnvContext])
	require.NoError(t, err)
	assert.True(t, decoded.Equal(testContext()))
	assert.Equal(t, info.Context, info.Env[core.EnvContext])
}

func TestPrepare_ExistingPySidePathKept(t *testing.T) {
	p := newTestPreparer(map[string]string{core.EnvPySidePath: "/studio/pyside"})
	info, err := p.Prepare(core.SoftwareCandidate{ExecutablePath: "/usr/bin/blender"}, "", testContext())
	require.NoError(t, err)

	_, set := info.Env[core.EnvPySidePath]
	assert.False(t, set)
	_, set = info.Env[core.EnvFileToOpen]
	assert.False(t, set)
}

func TestPrepare_ExtraArgsSplit(t *testing.T) {
	p := newTestPreparer(map[string]string{"STUDIO": "/studio"})
	candidate := core.SoftwareCandidate{
		ExecutablePath: "/usr/bin/blender",
		Args:           []string{`--python-use-system-env --app-template "$STUDIO/my template"`},
	}

	info, err := p.Prepare(candidate, "", testContext())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--python-use-system-env", "--app-template", "/studio/my template",
		"-P", "/data/tkblender/resources/scripts/startup/ShotGrid_menu.py",
	}, info.Args)
}

func TestPrepare_Errors(t *testing.T) {
	p := newTestPreparer(nil)

	_, err := p.Prepare(core.SoftwareCandidate{}, "", testContext())
	assert.Error(t, err, "empty executable")

	_, err = p.Prepare(core.SoftwareCandidate{ExecutablePath: "/usr/bin/blender"}, "", nil)
	assert.Error(t, err, "nil context")

	_, err = p.Prepare(core.SoftwareCandidate{ExecutablePath: "/usr/bin/blender", Args: []string{`"unterminated`}}, "", testContext())
	assert.Error(t, err, "bad extra args")

	_, err = p.Prepare(core.SoftwareCandidate{ExecutablePath: "/usr/bin/blender"}, "bad\x00file", testContext())
	assert.Error(t, err, "null byte in file")

	p.executable = func() (string, error) { return "", errors.New("no proc") }
	_, err = p.Prepare(core.SoftwareCandidate{ExecutablePath: "/usr/bin/blender"}, "", testContext())
	assert.Error(t, err)
}

func TestInformation_EnvKeys(t *testing.T) {
	info := &Information{Env: map[string]string{"B": "2", "A": "1", "C": "3"}}
	assert.Equal(t, []string{"A", "B", "C"}, info.EnvKeys())
}
