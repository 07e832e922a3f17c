package schema

import (
	"fmt"
	"strings"
)

// Entity is an instance of a model: a set of field values plus the
// many-to-many links attached after it was saved.
type Entity struct {
	model  *Model
	values map[string]any
	links  map[string][]*Entity
	saved  bool
}

// NewEntity returns an empty entity of the given model.
func NewEntity(m *Model) *Entity {
	return &Entity{model: m, values: make(map[string]any)}
}

// Model returns the model of the entity.
func (e *Entity) Model() *Model { return e.model }

// Get returns the value of the named field, or nil if it was never set.
func (e *Entity) Get(name string) any { return e.values[name] }

// Lookup returns the value of the named field and reports if it was set.
func (e *Entity) Lookup(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Set sets the value of the named field.
func (e *Entity) Set(name string, v any) { e.values[name] = v }

// ID returns the value of the key field.
func (e *Entity) ID() any { return e.values[e.model.key.Name] }

// Saved reports if the entity was persisted.
func (e *Entity) Saved() bool { return e.saved }

// MarkSaved marks the entity as persisted.
func (e *Entity) MarkSaved() { e.saved = true }

// Related returns the entities linked through the named many-to-many field.
func (e *Entity) Related(name string) []*Entity { return e.links[name] }

// AddRelated records links through the named many-to-many field.
func (e *Entity) AddRelated(name string, related ...*Entity) {
	if e.links == nil {
		e.links = make(map[string][]*Entity)
	}
	e.links[name] = append(e.links[name], related...)
}

// Values returns a copy of the field values.
func (e *Entity) Values() map[string]any {
	values := make(map[string]any, len(e.values))
	for k, v := range e.values {
		values[k] = v
	}
	return values
}

// Walk follows a path of field names starting at e. Every step but the last
// must hold a related entity.
//
//	book.Walk("author", "address", "city")
func (e *Entity) Walk(path ...string) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("schema: empty path on %s", e.model.name)
	}
	cur := e
	for i, step := range path {
		f, ok := cur.model.Field(step)
		if !ok || f.IsManyToMany() {
			return nil, fmt.Errorf("schema: %s has no field %q", cur.model.name, step)
		}
		v := cur.values[step]
		if i == len(path)-1 {
			return v, nil
		}
		next, ok := v.(*Entity)
		switch {
		case ok && next != nil:
			cur = next
		case v == nil:
			return nil, fmt.Errorf("schema: %s is nil", f)
		default:
			return nil, fmt.Errorf("schema: %s is not a relation", f)
		}
	}
	return nil, nil
}

// String returns a compact representation of the entity.
func (e *Entity) String() string {
	var b strings.Builder
	b.WriteString(e.model.name)
	b.WriteString("(")
	for i, f := range e.model.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", f.Name, formatValue(e.values[f.Name]))
	}
	b.WriteString(")")
	return b.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "<nil>"
	case *Entity:
		return fmt.Sprintf("%s[%v]", v.model.name, v.ID())
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprint(v)
	}
}
