package toolkit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// EntityTypeProject is the entity type of a project
const EntityTypeProject = "Project"

// Entity identifies a record of the pipeline system
type Entity struct {
	Type string `json:"type"`
	Name string `json:"name"`
	ID   int64  `json:"id,omitempty"`
}

// Equal compares two entities; nil entities are equal only to nil
func (e *Entity) Equal(o *Entity) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Type == o.Type && e.Name == o.Name && e.ID == o.ID
}

func (e *Entity) String() string {
	if e == nil {
		return ""
	}
	return e.Type + " " + e.Name
}

// Context binds a file or session to a project and optionally to an
// entity and pipeline step within it.
type Context struct {
	Project *Entity `json:"project,omitempty"`
	Entity  *Entity `json:"entity,omitempty"`
	Step    *Entity `json:"step,omitempty"`
}

// Equal compares every level of two contexts. A nil context equals nil only.
func (c *Context) Equal(o *Context) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Project.Equal(o.Project) && c.Entity.Equal(o.Entity) && c.Step.Equal(o.Step)
}

// IsEmpty reports whether the context carries no entity at all
func (c *Context) IsEmpty() bool {
	return c == nil || (c.Project == nil && c.Entity == nil && c.Step == nil)
}

func (c *Context) String() string {
	if c.IsEmpty() {
		return "Empty Context"
	}

	var parts []string
	if c.Step != nil {
		parts = append(parts, c.Step.Name)
	}
	if c.Entity != nil {
		parts = append(parts, c.Entity.String())
	}
	if c.Project != nil {
		parts = append(parts, "Project "+c.Project.Name)
	}
	return strings.Join(parts, ", ")
}

// Serialize encodes a context for transport through an environment variable
func Serialize(c *Context) (string, error) {
	if c == nil {
		return "", fmt.Errorf("serialize context: nil context")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("serialize context: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Deserialize decodes a context produced by Serialize
func Deserialize(s string) (*Context, error) {
	data, err := base64.URLEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("deserialize context: %w", err)
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("deserialize context: %w", err)
	}
	return &c, nil
}
