package schema

import (
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/dynafix/schema/edge"
	"github.com/syssam/dynafix/schema/field"
)

// Model describes a model type: its fields, relations and inheritance.
type Model struct {
	name     string
	table    string
	abstract bool
	extends  string
	parent   *Model
	key      *Field
	declared []*Field
	m2m      []*Field
	errs     []error

	// resolved by the registry.
	fields []*Field
	local  []*Field
	all    []*Field
	index  map[string]*Field
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// Fields adds non-relational fields to the model.
func Fields(defs ...field.Describer) ModelOption {
	return func(m *Model) {
		for _, def := range defs {
			d := def.Descriptor()
			if d.Err != nil {
				m.errs = append(m.errs, &Error{Model: m.name, Field: d.Name, Cause: d.Err})
				continue
			}
			f := newField(d)
			if f.Key {
				m.key = f
				continue
			}
			m.declared = append(m.declared, f)
		}
	}
}

// Edges adds relations to the model.
func Edges(defs ...edge.Describer) ModelOption {
	return func(m *Model) {
		for _, def := range defs {
			d := def.Descriptor()
			if d.Err != nil {
				m.errs = append(m.errs, &Error{Model: m.name, Field: d.Name, Cause: d.Err})
				continue
			}
			f := newEdgeField(d)
			if f.IsManyToMany() {
				m.m2m = append(m.m2m, f)
			} else {
				m.declared = append(m.declared, f)
			}
		}
	}
}

// Mixin is a reusable set of fields and edges. See the mixin package.
type Mixin interface {
	Fields() []field.Describer
	Edges() []edge.Describer
}

// Mixins adds the fields and edges of each mixin to the model. A key field
// of a mixin replaces the implicit "id" field.
func Mixins(mixins ...Mixin) ModelOption {
	return func(m *Model) {
		for _, mx := range mixins {
			Fields(mx.Fields()...)(m)
			Edges(mx.Edges()...)(m)
		}
	}
}

// Key replaces the implicit integer "id" field of the model.
func Key(def field.Describer) ModelOption {
	return func(m *Model) {
		d := def.Descriptor()
		d.Key = true
		m.key = newField(d)
	}
}

// Table sets the table name of the model.
func Table(name string) ModelOption {
	return func(m *Model) { m.table = name }
}

// Abstract marks the model as abstract. Abstract models can be built but
// never persisted, and their fields are copied into the models extending them.
func Abstract() ModelOption {
	return func(m *Model) { m.abstract = true }
}

// Extends makes the model inherit the fields of the named parent model.
// Extending a concrete model adds a parent link field to the child.
func Extends(parent string) ModelOption {
	return func(m *Model) { m.extends = parent }
}

// NewModel returns a new model with the given name and options.
//
//	schema.NewModel("Book",
//		schema.Fields(field.String("title").MaxLen(100)),
//		schema.Edges(edge.To("author", "Author")),
//	)
func NewModel(name string, opts ...ModelOption) *Model {
	m := &Model{name: name}
	for _, opt := range opts {
		opt(m)
	}
	if m.table == "" {
		m.table = inflect.Pluralize(snake(name))
	}
	return m
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// String implements the fmt.Stringer interface.
func (m *Model) String() string { return m.name }

// Table returns the table name of the model.
func (m *Model) Table() string { return m.table }

// IsAbstract reports if the model is abstract.
func (m *Model) IsAbstract() bool { return m.abstract }

// Parent returns the concrete parent model, if any.
func (m *Model) Parent() *Model { return m.parent }

// VerboseName returns a human readable name of the model.
func (m *Model) VerboseName() string {
	return cases.Title(language.English).String(strings.ReplaceAll(snake(m.name), "_", " "))
}

// Key returns the identity field of the model.
func (m *Model) Key() *Field { return m.key }

// Fields returns all non many-to-many fields of the model, including the
// inherited ones. The key field comes first.
func (m *Model) Fields() []*Field { return m.fields }

// LocalFields returns the fields stored in the model table.
func (m *Model) LocalFields() []*Field { return m.local }

// ManyToMany returns the many-to-many fields of the model, including the inherited ones.
func (m *Model) ManyToMany() []*Field { return m.all }

// Field returns the field with the given name, many-to-many fields included.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.index[name]
	return f, ok
}

// HasField reports if the model declares a field with the given name.
func (m *Model) HasField(name string) bool {
	_, ok := m.index[name]
	return ok
}

// resolve computes the field sets of the model after its parent was resolved.
func (m *Model) resolve(parent *Model) error {
	if len(m.errs) > 0 {
		return m.errs[0]
	}
	var inherited []*Field
	if parent != nil {
		if m.key == nil {
			m.key = parent.key
		}
		if parent.abstract {
			for _, f := range parent.fields {
				if !f.Key {
					inherited = append(inherited, f.clone(m))
				}
			}
			for _, f := range parent.all {
				c := f.clone(m)
				if c.Rel.Through == nil && c.Rel.JoinTable == "" {
					c.Rel.JoinTable = m.table + "_" + c.Name
				}
				m.all = append(m.all, c)
			}
		} else {
			m.parent = parent
			m.all = append(m.all, parent.all...)
		}
	}
	if m.key == nil {
		m.key = newField(field.Int("id").Key().Descriptor())
	}
	if m.parent == nil {
		m.key = m.key.clone(m)
	}
	m.fields = []*Field{m.key}
	m.local = []*Field{m.key}
	if m.parent != nil {
		for _, f := range m.parent.fields {
			if !f.Key {
				m.fields = append(m.fields, f)
			}
		}
		link := &Field{
			Name:  snake(m.parent.name) + "_ptr",
			Type:  field.TypeOneToOne,
			Rel:   &Relation{Kind: edge.OneToOne, Target: m.parent.name, ParentLink: true},
			model: m,
		}
		m.fields = append(m.fields, link)
	}
	for _, f := range inherited {
		m.fields = append(m.fields, f)
		m.local = append(m.local, f)
	}
	for _, f := range m.declared {
		f.model = m
		m.fields = append(m.fields, f)
		m.local = append(m.local, f)
	}
	for _, f := range m.m2m {
		f.model = m
		if f.Rel.Through == nil && f.Rel.JoinTable == "" && !m.abstract {
			f.Rel.JoinTable = m.table + "_" + f.Name
		}
		m.all = append(m.all, f)
	}
	m.index = make(map[string]*Field, len(m.fields)+len(m.all))
	for _, f := range append(append([]*Field{}, m.fields...), m.all...) {
		if _, ok := m.index[f.Name]; ok {
			return &Error{Model: m.name, Field: f.Name, Message: "duplicate field"}
		}
		m.index[f.Name] = f
	}
	return nil
}

// snake returns the snake_case form of a model name.
func snake(s string) string {
	return inflect.Underscore(s)
}
