package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/db"
	"github.com/quantmind-br/tkblender/internal/fsops"
	"github.com/quantmind-br/tkblender/internal/helpers"
	"github.com/quantmind-br/tkblender/internal/locator"
	"github.com/quantmind-br/tkblender/internal/paths"
	"github.com/quantmind-br/tkblender/internal/pathtpl"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"github.com/quantmind-br/tkblender/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// doctorDeps are replaced in tests
type doctorDeps struct {
	fs     afero.Fs
	runner helpers.CommandRunner
	goos   string
	getenv func(string) string
}

// doctorReport collects the findings of every check
type doctorReport struct {
	issues   []string
	warnings []string
}

func (r *doctorReport) issue(format string, args ...interface{}) {
	r.issues = append(r.issues, fmt.Sprintf(format, args...))
}

func (r *doctorReport) warn(format string, args ...interface{}) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// NewDoctorCmd creates the doctor command
func NewDoctorCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	return newDoctorCmd(cfg, log, doctorDeps{
		fs:     afero.NewOsFs(),
		runner: helpers.NewOSCommandRunner(),
		goos:   runtime.GOOS,
		getenv: os.Getenv,
	})
}

func newDoctorCmd(cfg *config.Config, log *zerolog.Logger, deps doctorDeps) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the Blender integration setup",
		Long:  `Check path templates, environment variables, directories, the project database and launch tooling.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := &doctorReport{}

			ui.PrintHeader("Path Templates")
			checkTemplates(cfg, deps.goos, report)

			ui.PrintHeader("Context Schema")
			checkSchema(cfg, report)

			ui.PrintHeader("Environment")
			checkEnvironment(deps.getenv, report)

			ui.PrintHeader("Directories")
			checkDirectories(cfg, deps.fs, fix, report)

			ui.PrintHeader("Database")
			checkDatabase(cmd.Context(), cfg, report)

			ui.PrintHeader("Launch Tooling")
			checkTooling(cfg, deps, report)

			fmt.Fprintln(ui.Stdout)
			if len(report.issues) == 0 {
				ui.PrintSuccess("No issues found")
			} else {
				ui.PrintError("Found %d issue(s):", len(report.issues))
				ui.PrintList(report.issues)
			}
			if len(report.warnings) > 0 {
				ui.PrintWarning("Found %d warning(s):", len(report.warnings))
				ui.PrintList(report.warnings)
			}

			log.Debug().
				Int("issues", len(report.issues)).
				Int("warnings", len(report.warnings)).
				Msg("doctor finished")

			if len(report.issues) > 0 {
				return fmt.Errorf("doctor found %d issue(s)", len(report.issues))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "create missing directories")

	return cmd
}

// checkTemplates compiles every path template of goos
func checkTemplates(cfg *config.Config, goos string, report *doctorReport) {
	templates := append([]string{}, locator.DefaultTemplates[goos]...)
	templates = append(templates, cfg.Launcher.ExtraTemplates...)
	if len(templates) == 0 {
		ui.PrintCheck(false, "no path templates for %s", goos)
		report.issue("No path templates for platform %s", goos)
		return
	}

	for _, pattern := range templates {
		compiled, err := pathtpl.Template{Pattern: pattern, Lookup: locator.VersionLookup}.Compile()
		ui.PrintCheck(err == nil, "%s", pattern)
		if err != nil {
			report.issue("Invalid path template %q: %v", pattern, err)
			continue
		}
		if len(compiled.Missing) > 0 {
			report.warn("Template %q has placeholders without lookup: %s",
				pattern, strings.Join(compiled.Missing, ", "))
		}
	}

	if minimum := cfg.Launcher.MinimumVersion; minimum != "" {
		if _, err := locator.ParseVersion(minimum); err != nil {
			report.issue("Invalid launcher.minimum_version %q", minimum)
		}
	}
}

// checkSchema compiles the context schema
func checkSchema(cfg *config.Config, report *doctorReport) {
	schema := cfg.Toolkit.Schema
	if len(schema) == 0 {
		schema = config.DefaultSchema
	}
	if _, err := toolkit.CompileSchema(schema); err != nil {
		ui.PrintCheck(false, "schema: %v", err)
		report.issue("Invalid toolkit.schema: %v", err)
		return
	}
	ui.PrintCheck(true, "%d schema template(s)", len(schema))
}

// checkEnvironment reports the variables that change discovery and launch
func checkEnvironment(getenv func(string) string, report *doctorReport) {
	for _, name := range []string{core.EnvBinDir, core.EnvExtraArgs, core.EnvPySidePath, core.EnvDebug} {
		if value := getenv(name); value != "" {
			ui.PrintKeyValue("  "+name, value)
		} else {
			ui.PrintKeyValue("  "+name, ui.Muted.Sprint("not set"))
		}
	}

	for _, name := range []string{core.EnvEngine, core.EnvContext, core.EnvFileToOpen} {
		if getenv(name) != "" {
			report.warn("%s is set outside a Blender session", name)
		}
	}
}

// checkDirectories verifies the data directories exist and are writable
func checkDirectories(cfg *config.Config, fs afero.Fs, fix bool, report *doctorReport) {
	resolver := paths.NewResolver(cfg)
	dirs := []struct {
		path string
		name string
	}{
		{resolver.GetDataDir(), "Data directory"},
		{filepath.Dir(cfg.Paths.DBFile), "Database directory"},
		{filepath.Dir(cfg.Paths.LogFile), "Log directory"},
		{resolver.GetScriptsDir(), "User scripts"},
		{resolver.GetLaunchScriptsDir(), "Launch scripts"},
	}

	for _, dir := range dirs {
		if dir.path == "" || dir.path == "." {
			continue
		}
		ok := checkDirectory(fs, dir.path, fix)
		ui.PrintCheck(ok, "%s: %s", dir.name, dir.path)
		if !ok {
			report.issue("%s not accessible: %s", dir.name, dir.path)
		}
	}

	if !fsops.IsRegular(fs, resolver.GetMenuStartupScript()) {
		report.warn("Menu startup script missing: %s", resolver.GetMenuStartupScript())
	}
}

// checkDirectory reports whether path is a writable directory, creating it
// first when fix is set.
func checkDirectory(fs afero.Fs, path string, fix bool) bool {
	if !fsops.Exists(fs, path) {
		if !fix {
			return false
		}
		if err := fsops.EnsureDir(fs, path, 0755); err != nil {
			return false
		}
	}
	return fsops.CheckWritable(fs, path) == nil
}

// checkDatabase opens the database and counts its records
func checkDatabase(ctx context.Context, cfg *config.Config, report *doctorReport) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !fsops.IsDir(afero.NewOsFs(), filepath.Dir(cfg.Paths.DBFile)) {
		ui.PrintCheck(false, "database directory missing")
		report.issue("Database directory missing: %s", filepath.Dir(cfg.Paths.DBFile))
		return
	}

	database, err := db.New(ctx, cfg.Paths.DBFile)
	if err != nil {
		ui.PrintCheck(false, "database: %v", err)
		report.issue("Cannot open database: %v", err)
		return
	}
	defer database.Close()
	ui.PrintCheck(true, "database: %s", cfg.Paths.DBFile)

	projects, err := database.ListProjects(ctx)
	if err != nil {
		report.issue("Cannot list projects: %v", err)
		return
	}
	ui.PrintInfo("Registered projects: %d", len(projects))
	if len(projects) == 0 {
		report.warn("No project registered; launches cannot resolve a context")
	}

	fs := afero.NewOsFs()
	for _, p := range projects {
		if !fsops.IsDir(fs, p.RootPath) {
			report.warn("Project %s root is missing: %s", p.Name, p.RootPath)
		}
	}
}

// checkTooling checks the commands needed to start Blender
func checkTooling(cfg *config.Config, deps doctorDeps, report *doctorReport) {
	if deps.goos != "darwin" || !cfg.Launcher.Terminal {
		ui.PrintInfo("Blender is started directly")
		return
	}

	ok := deps.runner.CommandExists("osascript")
	ui.PrintCheck(ok, "osascript")
	if !ok {
		report.issue("osascript not found; disable launcher.terminal or install it")
	}
}
