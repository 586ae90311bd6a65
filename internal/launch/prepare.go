// Package launch turns a discovered Blender candidate into a running process
// whose environment bootstraps the toolkit engine.
package launch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/paths"
	"github.com/quantmind-br/tkblender/internal/security"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"mvdan.cc/sh/v3/shell"
)

// Information is everything needed to start Blender
type Information struct {
	Path string
	Args []string
	// Env holds the variables added on top of the parent environment
	Env map[string]string

	Version    string
	Context    string
	FileToOpen string
}

// EnvKeys returns the Env keys sorted
func (i *Information) EnvKeys() []string {
	keys := make([]string, 0, len(i.Env))
	for k := range i.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Preparer builds launch information for candidates
type Preparer struct {
	resolver   *paths.Resolver
	lookupEnv  func(string) (string, bool)
	executable func() (string, error)
}

// NewPreparer creates a Preparer using the process environment
func NewPreparer(resolver *paths.Resolver) *Preparer {
	return &Preparer{
		resolver:   resolver,
		lookupEnv:  os.LookupEnv,
		executable: os.Executable,
	}
}

// Prepare builds the command line and bootstrap environment for candidate.
// The extra arguments of the candidate are split like a shell would.
func (p *Preparer) Prepare(candidate core.SoftwareCandidate, fileToOpen string, ctx *toolkit.Context) (*Information, error) {
	if err := security.ValidatePath(candidate.ExecutablePath); err != nil {
		return nil, fmt.Errorf("invalid executable: %w", err)
	}

	var args []string
	for _, extra := range candidate.Args {
		fields, err := shell.Fields(extra, func(name string) string {
			v, _ := p.lookupEnv(name)
			return v
		})
		if err != nil {
			return nil, fmt.Errorf("parse extra arguments %q: %w", extra, err)
		}
		args = append(args, fields...)
	}
	args = append(args, "-P", p.resolver.GetMenuStartupScript())

	serialized, err := toolkit.Serialize(ctx)
	if err != nil {
		return nil, err
	}

	self, err := p.executable()
	if err != nil {
		return nil, fmt.Errorf("resolve engine executable: %w", err)
	}

	env := map[string]string{
		core.EnvUserScripts:   p.resolver.GetScriptsDir(),
		core.EnvModulePath:    filepath.ToSlash(p.resolver.GetModulePath()),
		core.EnvEngineStartup: p.resolver.GetEngineStartupScript(),
		core.EnvEnginePython:  filepath.ToSlash(self),
		core.EnvEngine:        core.EngineName,
		core.EnvContext:       serialized,
	}
	if v, ok := p.lookupEnv(core.EnvPySidePath); !ok || v == "" {
		env[core.EnvPySidePath] = p.resolver.GetPySidePath()
	}
	if fileToOpen != "" {
		if err := security.ValidatePath(fileToOpen); err != nil {
			return nil, fmt.Errorf("invalid file to open: %w", err)
		}
		env[core.EnvFileToOpen] = fileToOpen
	}

	for name, value := range env {
		if err := security.ValidateEnvironmentVariable(name, value); err != nil {
			return nil, err
		}
	}

	return &Information{
		Path:       candidate.ExecutablePath,
		Args:       args,
		Env:        env,
		Version:    candidate.Version,
		Context:    serialized,
		FileToOpen: fileToOpen,
	}, nil
}
