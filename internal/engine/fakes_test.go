package engine

import (
	"errors"
	"sync"

	"github.com/quantmind-br/tkblender/internal/toolkit"
)

type fakeScene struct {
	path string
}

func (s *fakeScene) FilePath() string { return s.path }

type notice struct {
	level string
	msg   string
}

type fakeNotifier struct {
	mu      sync.Mutex
	ui      bool
	notices []notice
}

func (n *fakeNotifier) add(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{level: level, msg: msg})
}

func (n *fakeNotifier) Error(msg string)       { n.add("error", msg) }
func (n *fakeNotifier) Warning(msg string)     { n.add("warning", msg) }
func (n *fakeNotifier) Info(msg string)        { n.add("info", msg) }
func (n *fakeNotifier) Debug(msg string)       { n.add("debug", msg) }
func (n *fakeNotifier) Critical(_, msg string) { n.add("critical", msg) }
func (n *fakeNotifier) HasUI() bool            { return n.ui }

func (n *fakeNotifier) count(level string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, x := range n.notices {
		if x.level == level {
			c++
		}
	}
	return c
}

// fakeToolkit resolves contexts from a path table
type fakeToolkit struct {
	byPath     map[string]*toolkit.Context
	pathErr    error
	panicOnUse bool
}

func (t *fakeToolkit) ContextFromPath(path string, _ *toolkit.Context) (*toolkit.Context, error) {
	if t.panicOnUse {
		panic("toolkit exploded")
	}
	if t.pathErr != nil {
		return nil, t.pathErr
	}
	return t.byPath[path], nil
}

func (t *fakeToolkit) ContextFromEntity(entity *toolkit.Entity) (*toolkit.Context, error) {
	if entity == nil {
		return nil, errors.New("nil entity")
	}
	e := *entity
	return &toolkit.Context{Project: &e}, nil
}

func openerFor(tk toolkit.Toolkit, err error) (toolkit.Opener, *int) {
	calls := 0
	return func(string) (toolkit.Toolkit, error) {
		calls++
		if err != nil {
			return nil, err
		}
		return tk, nil
	}, &calls
}

type recordingHook struct {
	veto  error
	pre   int
	posts [][2]*toolkit.Context
}

func (h *recordingHook) PreContextChange(_, _ *toolkit.Context) error {
	h.pre++
	return h.veto
}

func (h *recordingHook) PostContextChange(previous, current *toolkit.Context) {
	h.posts = append(h.posts, [2]*toolkit.Context{previous, current})
}

func project(name string, id int64) *toolkit.Entity {
	return &toolkit.Entity{Type: toolkit.EntityTypeProject, Name: name, ID: id}
}

func shot(projectName string, projectID int64, name string) *toolkit.Context {
	return &toolkit.Context{
		Project: project(projectName, projectID),
		Entity:  &toolkit.Entity{Type: "Shot", Name: name},
	}
}
