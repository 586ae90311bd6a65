// Package toolkit models the pipeline toolkit the engine talks to: contexts,
// the per-project toolkit handle and the path-to-context resolution API.
//
// The Registry/SchemaToolkit pair is a filesystem implementation backed by the
// project registry: a path belongs to the project whose root contains it and
// its entity is derived from schema templates relative to that root.
package toolkit

import "errors"

// ErrNoProject is returned when a path is outside every registered project
var ErrNoProject = errors.New("path is not inside a registered project")

// Toolkit is a handle scoped to one project
type Toolkit interface {
	// ContextFromPath resolves the context for path. previous is a hint
	// carrying the currently active context. A nil context without error
	// means the path belongs to the project but matches no entity.
	ContextFromPath(path string, previous *Context) (*Context, error)

	// ContextFromEntity builds a context for an entity
	ContextFromEntity(entity *Entity) (*Context, error)
}

// Opener returns the toolkit handle responsible for path
type Opener func(path string) (Toolkit, error)
