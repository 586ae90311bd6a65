// Package session stands in for a running Blender: it holds the open file,
// fires the load and save handler lists, and turns filesystem writes to the
// open file into save events.
package session

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/quantmind-br/tkblender/internal/engine"
	"github.com/quantmind-br/tkblender/internal/security"
)

// Host is the scene of a session. It implements engine.Scene.
type Host struct {
	mu    sync.Mutex
	path  string
	hooks *engine.Hooks
}

// NewHost creates a host with an untitled document
func NewHost(hooks *engine.Hooks) *Host {
	if hooks == nil {
		hooks = engine.NewHooks()
	}
	return &Host{hooks: hooks}
}

// FilePath implements engine.Scene
func (h *Host) FilePath() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.path
}

// Hooks returns the handler lists of the host
func (h *Host) Hooks() *engine.Hooks {
	return h.hooks
}

// Open makes path the open document and fires load_post
func (h *Host) Open(path string) error {
	if _, err := h.setPath(path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	h.hooks.Fire(engine.LoadPost)
	return nil
}

// Save fires save_post for the open document
func (h *Host) Save() {
	h.hooks.Fire(engine.SavePost)
}

// SaveAs renames the open document and fires save_post
func (h *Host) SaveAs(path string) error {
	if _, err := h.setPath(path); err != nil {
		return fmt.Errorf("save as %s: %w", path, err)
	}
	h.hooks.Fire(engine.SavePost)
	return nil
}

func (h *Host) setPath(path string) (string, error) {
	if err := security.ValidatePath(path); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.path = abs
	h.mu.Unlock()
	return abs, nil
}
