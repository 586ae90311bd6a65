package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/helpers"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestCheckDirectory(t *testing.T) {
	t.Run("existing writable directory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/data", 0755))
		assert.True(t, checkDirectory(fs, "/data", false))
	})

	t.Run("missing directory without fix", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		assert.False(t, checkDirectory(fs, "/missing", false))
	})

	t.Run("missing directory with fix", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		assert.True(t, checkDirectory(fs, "/create/me", true))
		exists, err := afero.DirExists(fs, "/create/me")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("read-only filesystem", func(t *testing.T) {
		base := afero.NewMemMapFs()
		require.NoError(t, base.MkdirAll("/data", 0755))
		assert.False(t, checkDirectory(afero.NewReadOnlyFs(base), "/data", false))
	})
}

func TestCheckTemplates(t *testing.T) {
	t.Run("default templates compile", func(t *testing.T) {
		cfg := testConfig(t)
		report := &doctorReport{}

		checkTemplates(cfg, "linux", report)

		assert.Empty(t, report.issues)
		assert.Empty(t, report.warnings)
	})

	t.Run("placeholder without lookup warns", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Launcher.ExtraTemplates = []string{"/opt/{build}/blender"}
		report := &doctorReport{}

		checkTemplates(cfg, "linux", report)

		require.Len(t, report.warnings, 1)
		assert.Contains(t, report.warnings[0], "build")
	})

	t.Run("unknown platform", func(t *testing.T) {
		cfg := testConfig(t)
		report := &doctorReport{}

		checkTemplates(cfg, "plan9", report)

		assert.Len(t, report.issues, 1)
	})

	t.Run("invalid minimum version", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Launcher.MinimumVersion = "latest"
		report := &doctorReport{}

		checkTemplates(cfg, "linux", report)

		assert.Len(t, report.issues, 1)
	})
}

func TestCheckEnvironment_SessionVarsWarn(t *testing.T) {
	report := &doctorReport{}

	checkEnvironment(envMap(map[string]string{
		core.EnvBinDir:  "/opt/blender",
		core.EnvContext: "abc",
	}), report)

	require.Len(t, report.warnings, 1)
	assert.Contains(t, report.warnings[0], core.EnvContext)
}

func TestCheckDatabase(t *testing.T) {
	t.Run("empty database warns", func(t *testing.T) {
		cfg := testConfig(t)
		report := &doctorReport{}

		checkDatabase(context.Background(), cfg, report)

		assert.Empty(t, report.issues)
		assert.Len(t, report.warnings, 1)
	})

	t.Run("missing project root warns", func(t *testing.T) {
		cfg := testConfig(t)
		seedProject(t, cfg, "gone", filepath.Join(t.TempDir(), "missing"))
		report := &doctorReport{}

		checkDatabase(context.Background(), cfg, report)

		require.Len(t, report.warnings, 1)
		assert.Contains(t, report.warnings[0], "gone")
	})

	t.Run("missing database directory", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Paths.DBFile = filepath.Join(t.TempDir(), "nope", "tkblender.db")
		report := &doctorReport{}

		checkDatabase(context.Background(), cfg, report)

		assert.Len(t, report.issues, 1)
	})
}

func TestDoctorCmd(t *testing.T) {
	t.Run("healthy setup with fix", func(t *testing.T) {
		cfg := testConfig(t)
		cmd := newDoctorCmd(cfg, testLogger(), doctorDeps{
			fs:     afero.NewMemMapFs(),
			runner: &helpers.MockCommandRunner{},
			goos:   "linux",
			getenv: envMap(nil),
		})
		cmd.SetArgs([]string{"--fix"})

		assert.NoError(t, cmd.Execute())
	})

	t.Run("missing osascript on macOS", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Launcher.Terminal = true
		var looked []string
		cmd := newDoctorCmd(cfg, testLogger(), doctorDeps{
			fs: afero.NewMemMapFs(),
			runner: &helpers.MockCommandRunner{
				CommandExistsFunc: func(name string) bool {
					looked = append(looked, name)
					return false
				},
			},
			goos:   "darwin",
			getenv: envMap(nil),
		})
		cmd.SetArgs([]string{"--fix"})

		err := cmd.Execute()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 issue")
		assert.Equal(t, []string{"osascript"}, looked)
	})

	t.Run("missing directories without fix", func(t *testing.T) {
		cfg := testConfig(t)
		cmd := newDoctorCmd(cfg, testLogger(), doctorDeps{
			fs:     afero.NewMemMapFs(),
			runner: &helpers.MockCommandRunner{},
			goos:   "linux",
			getenv: envMap(nil),
		})
		cmd.SetArgs([]string{})

		assert.Error(t, cmd.Execute())
	})
}
