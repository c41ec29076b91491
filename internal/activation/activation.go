// Package activation publishes the host application's foreground/background
// transitions. Render controllers subscribe to suspend their strategies
// while the application is in the background.
package activation

import (
	"sync"

	"github.com/phinze/switchdeck/internal/event"
)

// State is the host application's activation state.
type State uint8

const (
	Activated State = iota + 1
	Deactivated
)

func (s State) String() string {
	switch s {
	case Activated:
		return "activated"
	case Deactivated:
		return "deactivated"
	default:
		return "unknown"
	}
}

// Coordinator broadcasts activation signals to its subscribers. Every
// signal is delivered, including repeats of the current state.
type Coordinator struct {
	mu    sync.Mutex
	state State
	feed  event.Feed[State]
}

// New returns a coordinator in the Activated state.
func New() *Coordinator {
	return &Coordinator{state: Activated}
}

// State returns the last signalled state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Activate signals that the application came to the foreground.
func (c *Coordinator) Activate() {
	c.Set(Activated)
}

// Deactivate signals that the application went to the background.
func (c *Coordinator) Deactivate() {
	c.Set(Deactivated)
}

// Set records s and broadcasts it.
func (c *Coordinator) Set(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	c.feed.Emit(s)
}

// Subscribe registers fn for every signal.
func (c *Coordinator) Subscribe(fn func(State)) (cancel func()) {
	return c.feed.Subscribe(fn)
}

// OnActivated registers fn for Activated signals only.
func (c *Coordinator) OnActivated(fn func()) (cancel func()) {
	return c.feed.Subscribe(func(s State) {
		if s == Activated {
			fn()
		}
	})
}

// OnDeactivated registers fn for Deactivated signals only.
func (c *Coordinator) OnDeactivated(fn func()) (cancel func()) {
	return c.feed.Subscribe(func(s State) {
		if s == Deactivated {
			fn()
		}
	})
}
