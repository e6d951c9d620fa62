package modal

import (
	"sync"

	"github.com/matt-steen/taskboard/pkg/models"
)

// State is a snapshot of the task modal.
type State struct {
	Open bool
	// Task is the task being edited, or a partial task to prefill a new one, or nil.
	Task *models.Task
	// RedirectToBoard asks the view to open the task's board after a successful save.
	RedirectToBoard bool
}

// Context owns the task modal state. Views share one Context.
type Context struct {
	mu        sync.Mutex
	state     State
	listeners []func(State)
}

// New creates a closed modal context.
func New() *Context {
	return &Context{}
}

// OnChange registers fn to run after every open or close.
func (c *Context) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, fn)
}

// State returns the current state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// IsOpen reports whether the modal is shown.
func (c *Context) IsOpen() bool {
	return c.State().Open
}

// OpenTaskModal shows the modal for task (nil for a blank create form).
func (c *Context) OpenTaskModal(task *models.Task, redirectToBoard bool) {
	c.set(State{Open: true, Task: task.Clone(), RedirectToBoard: redirectToBoard})
}

// CloseTaskModal hides the modal and forgets the task.
func (c *Context) CloseTaskModal() {
	c.set(State{})
}

func (c *Context) set(state State) {
	c.mu.Lock()
	c.state = state
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
