package launch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quantmind-br/tkblender/internal/db"
	"github.com/quantmind-br/tkblender/internal/fsops"
	"github.com/quantmind-br/tkblender/internal/helpers"
	"github.com/quantmind-br/tkblender/internal/transaction"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"mvdan.cc/sh/v3/syntax"
)

// History stores launch records
type History interface {
	RecordLaunch(ctx context.Context, launch *db.Launch) error
}

// Result describes a started launch
type Result struct {
	LaunchID string
	// PID is zero when Blender was started inside a Terminal window
	PID        int
	ScriptPath string
}

// Options configures a Launcher
type Options struct {
	Fs         afero.Fs
	Runner     helpers.CommandRunner
	History    History
	ScriptsDir string
	// Terminal runs Blender inside a macOS Terminal window
	Terminal bool
	GOOS     string
	Environ  func() []string
	Now      func() time.Time
	NewID    func() string
}

// Launcher starts Blender processes
type Launcher struct {
	opts Options
	log  *zerolog.Logger
}

// NewLauncher creates a Launcher; zero options fall back to the real system
func NewLauncher(log *zerolog.Logger, opts Options) *Launcher {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Runner == nil {
		opts.Runner = helpers.NewOSCommandRunner()
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.ScriptsDir == "" {
		opts.ScriptsDir = os.TempDir()
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Launcher{opts: opts, log: log}
}

// UsesTerminal reports whether launches go through a Terminal window
func (l *Launcher) UsesTerminal() bool {
	return l.opts.Terminal && l.opts.GOOS == "darwin"
}

// Launch starts Blender as described by info and records the launch
func (l *Launcher) Launch(ctx context.Context, info *Information) (*Result, error) {
	if info == nil || info.Path == "" {
		return nil, fmt.Errorf("launch: no executable")
	}

	result := &Result{LaunchID: l.opts.NewID()}
	logger := l.log.With().Str("launch_id", result.LaunchID).Str("executable", info.Path).Logger()

	if l.UsesTerminal() {
		script, err := l.launchInTerminal(ctx, result.LaunchID, info)
		if err != nil {
			return nil, err
		}
		result.ScriptPath = script
		logger.Info().Str("script", script).Msg("launched Blender in Terminal")
	} else {
		cmd := l.opts.Runner.PrepareCommand(ctx, info.Path, info.Args...)
		cmd.Env = MergeEnv(l.opts.Environ(), info.Env)
		pid, err := l.opts.Runner.Start(cmd)
		if err != nil {
			return nil, fmt.Errorf("launch %s: %w", info.Path, err)
		}
		result.PID = pid
		logger.Info().Int("pid", pid).Msg("launched Blender")
	}

	if l.opts.History != nil {
		record := &db.Launch{
			LaunchID:   result.LaunchID,
			Executable: info.Path,
			Version:    info.Version,
			Args:       info.Args,
			Context:    info.Context,
			FileToOpen: info.FileToOpen,
			LaunchedAt: l.opts.Now(),
		}
		// Blender is already running; history is best effort
		if err := l.opts.History.RecordLaunch(ctx, record); err != nil {
			logger.Warn().Err(err).Msg("failed to record launch")
		}
	}

	return result, nil
}

func (l *Launcher) launchInTerminal(ctx context.Context, id string, info *Information) (string, error) {
	if err := l.opts.Runner.RequireCommand("osascript"); err != nil {
		return "", fmt.Errorf("open Terminal: %w", err)
	}

	content, err := BuildTerminalScript(info)
	if err != nil {
		return "", err
	}

	scriptPath := filepath.Join(l.opts.ScriptsDir, "blender_launch_"+id+".sh")
	tx := transaction.NewManager(l.log)

	err = tx.Do("write launch script",
		func() error { return fsops.WriteExecutable(l.opts.Fs, scriptPath, []byte(content)) },
		func() error { return l.opts.Fs.Remove(scriptPath) },
	)
	if err != nil {
		return "", err
	}

	apple, err := terminalAppleScript(scriptPath)
	if err == nil {
		_, err = l.opts.Runner.RunCommand(ctx, "osascript", "-e", apple)
	}
	if err != nil {
		l.log.Warn().Err(err).Int("exit_code", l.opts.Runner.GetExitCode(err)).Msg("osascript failed")
		if rbErr := tx.Rollback(); rbErr != nil {
			l.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return "", fmt.Errorf("open Terminal: %w", err)
	}

	tx.Commit()
	return scriptPath, nil
}

// BuildTerminalScript renders the bash script that exports the bootstrap
// environment, runs Blender and keeps the window open afterwards.
func BuildTerminalScript(info *Information) (string, error) {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("# Generated by tkblender to launch Blender in a Terminal\n")

	for _, key := range info.EnvKeys() {
		quoted, err := syntax.Quote(info.Env[key], syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("quote %s: %w", key, err)
		}
		fmt.Fprintf(&b, "export %s=%s\n", key, quoted)
	}

	words := append([]string{info.Path}, info.Args...)
	for i, word := range words {
		quoted, err := syntax.Quote(word, syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("quote argument %q: %w", word, err)
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(quoted)
	}
	b.WriteString("\n")
	b.WriteString(`read -p "Press [Enter] to close this window..."` + "\n")

	script := b.String()
	if _, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(script), "launch.sh"); err != nil {
		return "", fmt.Errorf("generated launch script is invalid: %w", err)
	}
	return script, nil
}

// terminalAppleScript asks Terminal to run the script. The path is quoted
// for the Terminal shell and then escaped as an AppleScript string.
func terminalAppleScript(scriptPath string) (string, error) {
	command, err := syntax.Quote(scriptPath, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("quote script path: %w", err)
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(command)
	return fmt.Sprintf("tell application \"Terminal\"\n    activate\n    do script \"%s\"\nend tell", escaped), nil
}

// MergeEnv overlays extra on a KEY=VALUE environment list
func MergeEnv(base []string, extra map[string]string) []string {
	merged := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, overridden := extra[name]; overridden {
			continue
		}
		merged = append(merged, kv)
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		merged = append(merged, k+"="+extra[k])
	}
	return merged
}
