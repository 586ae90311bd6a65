package engine

import "sync"

// MainThread queues work for the goroutine that owns the host session.
// Any goroutine may enqueue; only the owner calls ProcessEvents.
type MainThread struct {
	mu     sync.Mutex
	queue  []func()
	notify chan struct{}
}

// NewMainThread creates an empty dispatcher
func NewMainThread() *MainThread {
	return &MainThread{notify: make(chan struct{}, 1)}
}

// AsyncExecuteInMainThread queues fn and returns immediately
func (m *MainThread) AsyncExecuteInMainThread(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Pending signals when work has been queued
func (m *MainThread) Pending() <-chan struct{} {
	return m.notify
}

// ProcessEvents runs every queued function in order and returns how many ran.
// Functions queued while draining run in the same call.
func (m *MainThread) ProcessEvents() int {
	ran := 0
	for {
		m.mu.Lock()
		queue := m.queue
		m.queue = nil
		m.mu.Unlock()

		if len(queue) == 0 {
			return ran
		}
		for _, fn := range queue {
			fn()
			ran++
		}
	}
}
