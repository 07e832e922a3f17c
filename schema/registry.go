package schema

import (
	"fmt"
	"sync"
)

// Registry resolves model names to models.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
	order  []*Model
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// Register resolves and adds the given models to the registry. A model
// extending another one must be registered after its parent.
func (r *Registry) Register(models ...*Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range models {
		if m.name == "" {
			return &Error{Message: "model without name"}
		}
		if _, ok := r.models[m.name]; ok {
			return &Error{Model: m.name, Message: "model registered twice"}
		}
		var parent *Model
		if m.extends != "" {
			p, ok := r.models[m.extends]
			if !ok {
				return &Error{Model: m.name, Message: fmt.Sprintf("parent model %q is not registered", m.extends)}
			}
			parent = p
		}
		if err := m.resolve(parent); err != nil {
			return err
		}
		r.models[m.name] = m
		r.order = append(r.order, m)
	}
	return nil
}

// MustRegister is like Register but panics if a model cannot be registered.
func (r *Registry) MustRegister(models ...*Model) *Registry {
	if err := r.Register(models...); err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the model registered under the given name.
func (r *Registry) Lookup(name string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	if !ok {
		return nil, &NotFoundError{Model: name}
	}
	return m, nil
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Model(nil), r.order...)
}

// Check verifies that every relation points to a registered model and that
// explicit join models declare their source and target fields.
func (r *Registry) Check() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.order {
		for _, f := range append(append([]*Field{}, m.fields...), m.all...) {
			if f.Rel == nil {
				continue
			}
			if _, ok := r.models[f.Rel.Target]; !ok {
				return &Error{Model: m.name, Field: f.Name, Message: fmt.Sprintf("unknown target model %q", f.Rel.Target)}
			}
			th := f.Rel.Through
			if th == nil {
				continue
			}
			tm, ok := r.models[th.Model]
			if !ok {
				return &Error{Model: m.name, Field: f.Name, Message: fmt.Sprintf("unknown through model %q", th.Model)}
			}
			for _, name := range []string{th.Source, th.Target} {
				if tf, ok := tm.index[name]; !ok || !tf.IsRelation() {
					return &Error{Model: m.name, Field: f.Name, Message: fmt.Sprintf("through model %q has no relation %q", th.Model, name)}
				}
			}
		}
	}
	return nil
}
