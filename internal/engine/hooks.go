package engine

import "sync"

// Event names a host application handler list
type Event string

// Host events the engine listens to
const (
	LoadPost Event = "load_post"
	SavePost Event = "save_post"
)

// Handler is a host event callback
type Handler func()

// Hooks models the host's per-event handler lists
type Hooks struct {
	mu       sync.Mutex
	handlers map[Event][]*Subscription
}

// NewHooks creates empty handler lists
func NewHooks() *Hooks {
	return &Hooks{handlers: make(map[Event][]*Subscription)}
}

// Subscription is a handler attached to one event
type Subscription struct {
	hooks *Hooks
	event Event
	fn    Handler
	once  sync.Once
}

// Attach appends fn to the handlers of event
func (h *Hooks) Attach(event Event, fn Handler) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.handlers == nil {
		h.handlers = make(map[Event][]*Subscription)
	}
	sub := &Subscription{hooks: h, event: event, fn: fn}
	h.handlers[event] = append(h.handlers[event], sub)
	return sub
}

// Detach removes the handler. Detaching twice is a no-op.
func (s *Subscription) Detach() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.hooks.remove(s)
	})
}

func (h *Hooks) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.handlers[sub.event]
	for i, s := range list {
		if s == sub {
			h.handlers[sub.event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Fire calls every handler attached to event. Handlers may attach or detach
// subscriptions while running; changes apply to the next Fire.
func (h *Hooks) Fire(event Event) {
	h.mu.Lock()
	list := append([]*Subscription(nil), h.handlers[event]...)
	h.mu.Unlock()

	for _, sub := range list {
		sub.fn()
	}
}

// Count returns the number of handlers attached to event
func (h *Hooks) Count(event Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers[event])
}
