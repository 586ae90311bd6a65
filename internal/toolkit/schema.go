package toolkit

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/quantmind-br/tkblender/internal/db"
	"github.com/quantmind-br/tkblender/internal/pathtpl"
	"github.com/quantmind-br/tkblender/internal/security"
)

// stepPlaceholder names the schema placeholder that maps to the pipeline step
const stepPlaceholder = "Step"

// ProjectStore lists registered projects
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]db.Project, error)
}

// Registry opens toolkit handles for paths inside registered projects
type Registry struct {
	store    ProjectStore
	schema   []*pathtpl.Compiled
	projects []db.Project
}

// NewRegistry compiles schema and loads the project list from store
func NewRegistry(ctx context.Context, store ProjectStore, schema []string) (*Registry, error) {
	compiled, err := CompileSchema(schema)
	if err != nil {
		return nil, err
	}

	r := &Registry{store: store, schema: compiled}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// CompileSchema compiles schema templates ordered deepest first
func CompileSchema(schema []string) ([]*pathtpl.Compiled, error) {
	compiled := make([]*pathtpl.Compiled, 0, len(schema))
	for _, pattern := range schema {
		c, err := pathtpl.Template{Pattern: pattern}.Compile()
		if err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		compiled = append(compiled, c)
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Depth() > compiled[j].Depth()
	})
	return compiled, nil
}

// Reload refreshes the cached project list
func (r *Registry) Reload(ctx context.Context) error {
	projects, err := r.store.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}

	// longest root first so nested projects win
	sort.SliceStable(projects, func(i, j int) bool {
		return len(filepath.Clean(projects[i].RootPath)) > len(filepath.Clean(projects[j].RootPath))
	})
	r.projects = projects
	return nil
}

// Open returns the toolkit of the project containing path.
// It is an Opener.
func (r *Registry) Open(path string) (Toolkit, error) {
	if err := security.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProject, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProject, err)
	}

	for _, project := range r.projects {
		inside, err := security.IsPathWithinDirectory(abs, project.RootPath)
		if err != nil || !inside {
			continue
		}
		return &SchemaToolkit{Project: project, schema: r.schema}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoProject, path)
}

// ProjectRoot returns the root directory of the registered project entity,
// matched by ID and then by name
func (r *Registry) ProjectRoot(project *Entity) (string, error) {
	if project == nil {
		return "", fmt.Errorf("%w: context has no project", ErrNoProject)
	}
	for _, p := range r.projects {
		if project.ID != 0 && p.ID == project.ID {
			return p.RootPath, nil
		}
	}
	for _, p := range r.projects {
		if p.Name == project.Name {
			return p.RootPath, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoProject, project.Name)
}

// Resolve returns the context for path, falling back to the project context
// when the path matches no schema template.
func (r *Registry) Resolve(path string) (*Context, error) {
	tk, err := r.Open(path)
	if err != nil {
		return nil, err
	}
	st := tk.(*SchemaToolkit)

	ctx, err := st.ContextFromPath(path, nil)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		return st.ContextFromEntity(st.projectEntity())
	}
	return ctx, nil
}

// SchemaToolkit resolves contexts from paths below a project root
type SchemaToolkit struct {
	Project db.Project
	schema  []*pathtpl.Compiled
}

// NewSchemaToolkit creates a toolkit for a single project
func NewSchemaToolkit(project db.Project, schema []string) (*SchemaToolkit, error) {
	compiled, err := CompileSchema(schema)
	if err != nil {
		return nil, err
	}
	return &SchemaToolkit{Project: project, schema: compiled}, nil
}

func (t *SchemaToolkit) projectEntity() *Entity {
	return &Entity{Type: EntityTypeProject, Name: t.Project.Name, ID: t.Project.ID}
}

// ContextFromPath implements Toolkit
func (t *SchemaToolkit) ContextFromPath(path string, previous *Context) (*Context, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	inside, err := security.IsPathWithinDirectory(abs, t.Project.RootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if !inside {
		return nil, fmt.Errorf("%w: %s is outside project %s", ErrNoProject, path, t.Project.Name)
	}

	// files resolve through the directory that contains them
	dir := abs
	if filepath.Ext(abs) != "" {
		dir = filepath.Dir(abs)
	}

	rel, err := filepath.Rel(filepath.Clean(t.Project.RootPath), dir)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	rel = filepath.ToSlash(rel)

	for _, tpl := range t.schema {
		values, ok := tpl.MatchPrefix(rel)
		if !ok {
			continue
		}
		ctx := t.contextFromValues(tpl.Placeholders, values)
		inheritIDs(ctx, previous)
		return ctx, nil
	}

	return nil, nil
}

// contextFromValues maps the Step placeholder to the step and the deepest
// remaining placeholder to the entity.
func (t *SchemaToolkit) contextFromValues(placeholders []string, values map[string]string) *Context {
	ctx := &Context{Project: t.projectEntity()}
	for _, name := range placeholders {
		if name == stepPlaceholder {
			ctx.Step = &Entity{Type: stepPlaceholder, Name: values[name]}
			continue
		}
		ctx.Entity = &Entity{Type: name, Name: values[name]}
	}
	return ctx
}

// inheritIDs reuses record IDs from the hint when it refers to the same records
func inheritIDs(ctx, previous *Context) {
	if previous == nil {
		return
	}
	if ctx.Entity != nil && previous.Entity != nil &&
		ctx.Entity.Type == previous.Entity.Type && ctx.Entity.Name == previous.Entity.Name {
		ctx.Entity.ID = previous.Entity.ID
	}
	if ctx.Step != nil && previous.Step != nil && ctx.Step.Name == previous.Step.Name {
		ctx.Step.ID = previous.Step.ID
	}
}

// ContextFromEntity implements Toolkit. Only project entities are supported.
func (t *SchemaToolkit) ContextFromEntity(entity *Entity) (*Context, error) {
	if entity == nil {
		return nil, fmt.Errorf("context from entity: nil entity")
	}
	if entity.Type != EntityTypeProject {
		return nil, fmt.Errorf("context from entity: unsupported entity type %q", entity.Type)
	}

	e := *entity
	return &Context{Project: &e}, nil
}
