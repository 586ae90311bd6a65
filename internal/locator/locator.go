// Package locator discovers installed Blender executables.
//
// Discovery is driven by a per-OS table of path templates. Each template is
// expanded (~ and environment variables), globbed against the filesystem and
// matched back with a regexp to recover the version placeholder. The result
// is filtered through a minimum-version Policy. Scanning never fails: bad
// templates, unset variables and unsupported versions only drop candidates.
package locator

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/fsops"
	"github.com/quantmind-br/tkblender/internal/paths"
	"github.com/quantmind-br/tkblender/internal/pathtpl"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// LookupEnv matches os.LookupEnv; injectable for tests
type LookupEnv func(key string) (string, bool)

// Locator scans the filesystem for Blender installations
type Locator struct {
	fs        afero.Fs
	log       *zerolog.Logger
	lookupEnv LookupEnv
	homeDir   string
	iconPath  string
	templates []string
	lookup    map[string]string
	policy    Policy
}

// Options configures a Locator built with NewWithDeps
type Options struct {
	Fs        afero.Fs
	LookupEnv LookupEnv
	HomeDir   string
	IconPath  string
	Templates []string
	// Lookup overrides VersionLookup
	Lookup  map[string]string
	Minimum string
}

// New creates a Locator for the running OS using the real filesystem
func New(cfg *config.Config, log *zerolog.Logger) *Locator {
	resolver := paths.NewResolver(cfg)

	templates := append([]string{}, DefaultTemplates[runtime.GOOS]...)
	minimum := core.MinimumSupportedVersion
	if cfg != nil {
		templates = append(templates, cfg.Launcher.ExtraTemplates...)
		if cfg.Launcher.MinimumVersion != "" {
			minimum = cfg.Launcher.MinimumVersion
		}
	}

	return NewWithDeps(log, Options{
		Fs:        afero.NewOsFs(),
		LookupEnv: os.LookupEnv,
		HomeDir:   resolver.HomeDir(),
		IconPath:  resolver.GetIconPath(),
		Templates: templates,
		Minimum:   minimum,
	})
}

// NewWithDeps creates a Locator with injected dependencies (for tests)
func NewWithDeps(log *zerolog.Logger, opts Options) *Locator {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.Lookup == nil {
		opts.Lookup = VersionLookup
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Locator{
		fs:        opts.Fs,
		log:       log,
		lookupEnv: opts.LookupEnv,
		homeDir:   opts.HomeDir,
		iconPath:  opts.IconPath,
		templates: opts.Templates,
		lookup:    opts.Lookup,
		policy:    Policy{Minimum: opts.Minimum},
	}
}

// Scan returns every supported candidate found on disk
func (l *Locator) Scan(ctx context.Context) []core.SoftwareCandidate {
	l.log.Debug().Msg("scanning for Blender executables")

	var supported []core.SoftwareCandidate
	for _, candidate := range l.Find(ctx) {
		ok, reason := l.policy.Check(candidate.Version)
		if !ok {
			l.log.Debug().
				Str("path", candidate.ExecutablePath).
				Str("reason", reason).
				Msg("candidate not supported")
			continue
		}
		supported = append(supported, candidate)
	}

	return supported
}

// Find returns every candidate matched by the templates, before the version
// policy is applied. Candidates found by several templates are reported once
// per template.
func (l *Locator) Find(ctx context.Context) []core.SoftwareCandidate {
	// Extra arguments come from the environment because the engine settings
	// are not available before Blender is running.
	var args []string
	if extra, ok := l.lookupEnv(core.EnvExtraArgs); ok && extra != "" {
		args = append(args, extra)
	}

	var found []core.SoftwareCandidate
	for _, template := range l.templates {
		if ctx.Err() != nil {
			l.log.Debug().Err(ctx.Err()).Msg("scan cancelled")
			break
		}

		expanded := l.Expand(template)
		if !isRooted(expanded) {
			l.log.Debug().Str("template", expanded).Msg("skipping template that is not an absolute path")
			continue
		}
		l.log.Debug().Str("template", expanded).Msg("processing template")

		for _, match := range l.globAndMatch(expanded) {
			version, ok := match.values["version"]
			if !ok {
				// installs without version information in their path
				version = core.BlankVersion
			}

			found = append(found, core.SoftwareCandidate{
				ExecutablePath: match.path,
				Version:        version,
				DisplayName:    core.ApplicationName,
				IconPath:       l.iconPath,
				Args:           append([]string(nil), args...),
			})
		}
	}

	return found
}

type templateMatch struct {
	path   string
	values map[string]string
}

func (l *Locator) globAndMatch(template string) []templateMatch {
	compiled, err := pathtpl.Template{Pattern: template, Lookup: l.lookup}.Compile()
	if err != nil {
		l.log.Debug().Err(err).Str("template", template).Msg("skipping invalid template")
		return nil
	}
	if len(compiled.Missing) > 0 {
		l.log.Debug().Strs("placeholders", compiled.Missing).Str("template", template).
			Msg("placeholders without regex lookup match any segment")
	}

	matches, err := afero.Glob(l.fs, compiled.Glob)
	if err != nil {
		l.log.Debug().Err(err).Str("glob", compiled.Glob).Msg("glob failed")
		return nil
	}

	var results []templateMatch
	for _, path := range matches {
		if fsops.IsDir(l.fs, path) {
			continue
		}
		values, ok := compiled.Match(path)
		if !ok {
			l.log.Debug().Str("path", path).Msg("glob match rejected by template regex")
			continue
		}
		results = append(results, templateMatch{path: path, values: values})
	}

	return results
}

var (
	varRef      = regexp.MustCompile(`\$(\w+)|\$\{(\w+)\}`)
	driveLetter = regexp.MustCompile(`^[A-Za-z]:[/\\]`)
)

// Expand resolves ~ and environment variable references in a template.
// Unset variables, malformed references and ~ without a home directory are
// left as literal text so they fail to match instead of collapsing into a
// path rooted somewhere unexpected.
func (l *Locator) Expand(template string) string {
	if l.homeDir != "" {
		if template == "~" {
			template = l.homeDir
		} else if strings.HasPrefix(template, "~/") || strings.HasPrefix(template, `~\`) {
			template = filepath.ToSlash(l.homeDir) + template[1:]
		}
	}

	return varRef.ReplaceAllStringFunc(template, func(ref string) string {
		groups := varRef.FindStringSubmatch(ref)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		if value, ok := l.lookupEnv(name); ok {
			return filepath.ToSlash(value)
		}
		return ref
	})
}

// isRooted reports whether an expanded template is an absolute path on any
// of the supported platforms
func isRooted(template string) bool {
	return strings.HasPrefix(template, "/") || driveLetter.MatchString(template)
}
