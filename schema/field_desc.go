package schema

import (
	"reflect"

	"github.com/syssam/dynafix/schema/edge"
	"github.com/syssam/dynafix/schema/field"
)

// Relation describes the relationship side of a field.
type Relation struct {
	Kind       edge.Kind
	Target     string        // target model name.
	Through    *edge.Through // explicit join model, many-to-many only.
	ParentLink bool          // back-reference created by model inheritance.
	JoinTable  string        // join table of implicit many-to-many relations.
}

// Field is the resolved descriptor of a model field. Fields are created by
// the registry and must be treated as read-only.
type Field struct {
	Name       string
	Column     string
	Type       *field.Type
	Nullable   bool
	Unique     bool
	Key        bool
	Default    any
	Choices    []any
	MaxLen     int
	Precision  int
	Scale      int
	AutoNow    bool
	AutoNowAdd bool
	Validators []func(any) error
	Rel        *Relation
	Comment    string

	model *Model
}

func newField(d *field.Descriptor) *Field {
	column := d.StorageKey
	if column == "" {
		column = d.Name
	}
	return &Field{
		Name:       d.Name,
		Column:     column,
		Type:       d.Type,
		Nullable:   d.Nullable,
		Unique:     d.Unique,
		Key:        d.Key,
		Default:    d.Default,
		Choices:    d.Choices,
		MaxLen:     d.MaxLen,
		Precision:  d.Precision,
		Scale:      d.Scale,
		AutoNow:    d.AutoNow,
		AutoNowAdd: d.AutoNowAdd,
		Validators: d.Validators,
		Comment:    d.Comment,
	}
}

func newEdgeField(d *edge.Descriptor) *Field {
	f := &Field{
		Name:     d.Name,
		Nullable: d.Nullable,
		Default:  d.Default,
		Comment:  d.Comment,
		Rel:      &Relation{Kind: d.Kind, Target: d.Target, Through: d.Through},
	}
	switch d.Kind {
	case edge.ManyToMany:
		f.Type = field.TypeManyToMany
		f.Rel.JoinTable = d.StorageKey
	case edge.OneToOne:
		f.Type = field.TypeOneToOne
		f.Unique = true
		f.Column = d.StorageKey
	default:
		f.Type = field.TypeForeignKey
		f.Column = d.StorageKey
	}
	if f.Column == "" && d.Kind != edge.ManyToMany {
		f.Column = d.Name + "_id"
	}
	return f
}

// clone returns a copy of the field owned by m.
func (f *Field) clone(m *Model) *Field {
	c := *f
	if f.Rel != nil {
		rel := *f.Rel
		c.Rel = &rel
	}
	c.model = m
	return &c
}

// Model returns the model declaring the field.
func (f *Field) Model() *Model { return f.model }

// String returns the field name qualified by its model name.
func (f *Field) String() string {
	if f.model == nil {
		return f.Name
	}
	return f.model.name + "." + f.Name
}

// HasDefault reports if the field declares a default value.
func (f *Field) HasDefault() bool { return f.Default != nil }

// DefaultValue returns the default value of the field, calling it if the
// default is a function without arguments.
func (f *Field) DefaultValue() any {
	switch d := f.Default.(type) {
	case nil:
		return nil
	case func() any:
		return d()
	}
	rv := reflect.ValueOf(f.Default)
	if rv.Kind() == reflect.Func && rv.Type().NumIn() == 0 && rv.Type().NumOut() == 1 {
		return rv.Call(nil)[0].Interface()
	}
	return f.Default
}

// IsRelation reports if the field is a foreign key, one-to-one or many-to-many field.
func (f *Field) IsRelation() bool { return f.Rel != nil }

// IsManyToMany reports if the field is a many-to-many relation.
func (f *Field) IsManyToMany() bool { return f.Rel != nil && f.Rel.Kind == edge.ManyToMany }

// IsParentLink reports if the field links a model to its concrete parent.
func (f *Field) IsParentLink() bool { return f.Rel != nil && f.Rel.ParentLink }

// IsSelfReference reports if the field points to its own model.
func (f *Field) IsSelfReference() bool {
	return f.Rel != nil && f.model != nil && f.Rel.Target == f.model.name
}

// IsFile reports if the field stores a file.
func (f *Field) IsFile() bool { return f.Type.Is(field.TypeFile) }

// IsAutoStamped reports if the field is stamped with the current time on save.
func (f *Field) IsAutoStamped() bool { return f.AutoNow || f.AutoNowAdd }

// HasColumn reports if the field is stored as a column of its model table.
func (f *Field) HasColumn() bool { return f.Column != "" && !f.IsManyToMany() }

// JoinColumns returns the owner and target columns of a many-to-many join table.
func (f *Field) JoinColumns() (owner, target string) {
	o, t := snake(f.model.name), snake(f.Rel.Target)
	if o == t {
		return "from_" + o + "_id", "to_" + t + "_id"
	}
	return o + "_id", t + "_id"
}
