// Package transaction undoes partially applied launch side effects, such as
// a written terminal script, when a later step fails.
package transaction

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// UndoFunc reverses a completed step
type UndoFunc func() error

type step struct {
	name string
	undo UndoFunc
}

// Manager keeps the undo stack of a multi-step operation
type Manager struct {
	mu     sync.Mutex
	steps  []step
	logger *zerolog.Logger
}

// NewManager creates a new transaction manager. logger may be nil.
func NewManager(logger *zerolog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Add pushes an undo function onto the stack
func (m *Manager) Add(name string, undo UndoFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{name: name, undo: undo})
}

// Do runs fn and, when it succeeds, registers undo under name
func (m *Manager) Do(name string, fn func() error, undo UndoFunc) error {
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	m.Add(name, undo)
	return nil
}

// Len returns the number of pending undo steps
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

// Rollback runs every undo function in reverse order (LIFO) and empties the
// stack. All steps are attempted; their errors are joined.
func (m *Manager) Rollback() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.steps) == 0 {
		return nil
	}

	if m.logger != nil {
		m.logger.Debug().Int("steps", len(m.steps)).Msg("rolling back")
	}

	var errs []error
	for i := len(m.steps) - 1; i >= 0; i-- {
		s := m.steps[i]
		if err := s.undo(); err != nil {
			errs = append(errs, fmt.Errorf("undo %q: %w", s.name, err))
			if m.logger != nil {
				m.logger.Error().Err(err).Str("step", s.name).Msg("undo failed")
			}
			continue
		}
		if m.logger != nil {
			m.logger.Debug().Str("step", s.name).Msg("undone")
		}
	}
	m.steps = nil

	return errors.Join(errs...)
}

// Commit clears the undo stack, keeping every side effect
func (m *Manager) Commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = nil
}
