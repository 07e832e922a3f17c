package dynafix

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syssam/dynafix/schema"
)

// Hook is called with an entity before or after it is saved.
type Hook func(e *schema.Entity) error

// Hooks holds the pre-save and post-save hooks of models. Registering a hook
// replaces the previous one of the model.
type Hooks struct {
	reg  *schema.Registry
	mu   sync.RWMutex
	pre  map[string]Hook
	post map[string]Hook
}

// NewHooks returns an empty hook registry. Hooks can only be registered for
// models of reg; a nil registry accepts any model name.
func NewHooks(reg *schema.Registry) *Hooks {
	return &Hooks{
		reg:  reg,
		pre:  make(map[string]Hook),
		post: make(map[string]Hook),
	}
}

// PreSave registers the hook called before entities of the model are saved.
func (h *Hooks) PreSave(model string, fn Hook) error {
	return h.register(h.pre, model, fn)
}

// PostSave registers the hook called after entities of the model are saved.
func (h *Hooks) PostSave(model string, fn Hook) error {
	return h.register(h.post, model, fn)
}

func (h *Hooks) register(hooks map[string]Hook, model string, fn Hook) error {
	if fn == nil {
		return &ReceiverError{Model: model, Err: errors.New("hook is nil")}
	}
	if h.reg != nil {
		if _, err := h.reg.Lookup(model); err != nil {
			return &ReceiverError{Model: model, Err: err}
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	hooks[model] = fn
	return nil
}

// Clear removes all hooks.
func (h *Hooks) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pre = make(map[string]Hook)
	h.post = make(map[string]Hook)
}

func (h *Hooks) preSave(model string) Hook {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pre[model]
}

func (h *Hooks) postSave(model string) Hook {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.post[model]
}

// call runs the hook, reporting a panic as an error.
func call(fn Hook, e *schema.Entity) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ReceiverError{Model: e.Model().Name(), Err: fmt.Errorf("hook panicked: %v", r)}
		}
	}()
	if err := fn(e); err != nil {
		return &ReceiverError{Model: e.Model().Name(), Err: err}
	}
	return nil
}
