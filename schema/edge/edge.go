package edge

import "fmt"

// Kind describes the cardinality of an edge.
type Kind uint8

// Edge kinds.
const (
	ToOne      Kind = iota + 1 // foreign key, many instances point to one target.
	OneToOne                   // foreign key with a unique constraint.
	ManyToMany                 // join table between two models.
)

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case ToOne:
		return "to-one"
	case OneToOne:
		return "one-to-one"
	case ManyToMany:
		return "many-to-many"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Through describes an explicit join model of a many-to-many edge.
type Through struct {
	Model  string // join model name.
	Source string // join model field pointing to the owner.
	Target string // join model field pointing to the related instance.
}

// A Describer returns the descriptor of an edge definition.
type Describer interface {
	Descriptor() *Descriptor
}

// Descriptor holds the properties of an edge.
type Descriptor struct {
	Name       string
	Kind       Kind
	Target     string   // target model name.
	StorageKey string   // foreign key column or join table name.
	Nullable   bool     // nullable foreign key.
	Default    any      // static value or zero-argument func.
	Through    *Through // explicit join model for many-to-many edges.
	Comment    string
	Err        error
}

// Descriptor implements the Describer interface.
func (d *Descriptor) Descriptor() *Descriptor { return d }

// Builder is the fluent builder for edges.
type Builder struct {
	desc *Descriptor
}

// To returns a builder for a foreign key edge pointing to the target model.
//
//	edge.To("author", "User")
func To(name, target string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Kind: ToOne, Target: target}}
}

// One returns a builder for a one-to-one edge.
func One(name, target string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Kind: OneToOne, Target: target}}
}

// Many returns a builder for a many-to-many edge.
//
//	edge.Many("tags", "Tag")
//	edge.Many("members", "User").Through("Membership", "group", "user")
func Many(name, target string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Kind: ManyToMany, Target: target}}
}

// Optional allows the foreign key to be null.
func (b *Builder) Optional() *Builder {
	b.desc.Nullable = true
	return b
}

// Default sets the default value of a foreign key edge.
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	return b
}

// Through sets the join model of a many-to-many edge. source and target are
// the names of the join model edges pointing to the owner and to the related
// model.
func (b *Builder) Through(model, source, target string) *Builder {
	if b.desc.Kind != ManyToMany {
		b.desc.Err = fmt.Errorf("edge %q: through model on a %s edge", b.desc.Name, b.desc.Kind)
		return b
	}
	b.desc.Through = &Through{Model: model, Source: source, Target: target}
	return b
}

// StorageKey sets the foreign key column or the join table name.
func (b *Builder) StorageKey(key string) *Builder {
	b.desc.StorageKey = key
	return b
}

// Comment sets the comment of the edge.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the Describer interface.
func (b *Builder) Descriptor() *Descriptor {
	if b.desc.Target == "" && b.desc.Err == nil {
		b.desc.Err = fmt.Errorf("edge %q: missing target model", b.desc.Name)
	}
	return b.desc
}
