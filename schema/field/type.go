package field

import "sync"

// Type identifies the storage type of a field. Types form a tree: every type
// except the roots has a parent, and consumers that do not know a type fall
// back to its closest known ancestor.
type Type struct {
	name   string
	parent *Type
}

// Built-in type roots.
var (
	TypeInt     = &Type{name: "int"}
	TypeFloat64 = &Type{name: "float64"}
	TypeDecimal = &Type{name: "decimal"}
	TypeString  = &Type{name: "string"}
	TypeBool    = &Type{name: "bool"}
	TypeTime    = &Type{name: "time"}
	TypeUUID    = &Type{name: "uuid"}
	TypeBytes   = &Type{name: "bytes"}
	TypeJSON    = &Type{name: "json"}

	// TypeRelation is the root of all relationship types.
	TypeRelation = &Type{name: "relation"}
)

// Built-in derived types.
var (
	TypeInt8   = &Type{name: "int8", parent: TypeInt}
	TypeInt16  = &Type{name: "int16", parent: TypeInt}
	TypeInt32  = &Type{name: "int32", parent: TypeInt}
	TypeInt64  = &Type{name: "int64", parent: TypeInt}
	TypeUint   = &Type{name: "uint", parent: TypeInt}
	TypeUint8  = &Type{name: "uint8", parent: TypeUint}
	TypeUint16 = &Type{name: "uint16", parent: TypeUint}
	TypeUint32 = &Type{name: "uint32", parent: TypeUint}
	TypeUint64 = &Type{name: "uint64", parent: TypeUint}

	TypeFloat32 = &Type{name: "float32", parent: TypeFloat64}

	TypeText     = &Type{name: "text", parent: TypeString}
	TypeSlug     = &Type{name: "slug", parent: TypeString}
	TypeEmail    = &Type{name: "email", parent: TypeString}
	TypeURL      = &Type{name: "url", parent: TypeString}
	TypeIP       = &Type{name: "ip", parent: TypeString}
	TypeFile     = &Type{name: "file", parent: TypeString}
	TypeFilePath = &Type{name: "file_path", parent: TypeString}
	TypeEnum     = &Type{name: "enum", parent: TypeString}

	TypeDate = &Type{name: "date", parent: TypeTime}

	TypeForeignKey = &Type{name: "foreign_key", parent: TypeRelation}
	TypeOneToOne   = &Type{name: "one_to_one", parent: TypeForeignKey}
	TypeManyToMany = &Type{name: "many_to_many", parent: TypeRelation}
)

var (
	typesMu sync.RWMutex
	types   = map[string]*Type{}
)

func init() {
	for _, t := range []*Type{
		TypeInt, TypeFloat64, TypeDecimal, TypeString, TypeBool, TypeTime, TypeUUID, TypeBytes, TypeJSON, TypeRelation,
		TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeUint, TypeUint8, TypeUint16, TypeUint32, TypeUint64,
		TypeFloat32, TypeText, TypeSlug, TypeEmail, TypeURL, TypeIP, TypeFile, TypeFilePath, TypeEnum,
		TypeDate, TypeForeignKey, TypeOneToOne, TypeManyToMany,
	} {
		types[t.name] = t
	}
}

// NewType declares a custom type derived from parent. Declaring the same name
// twice returns the type registered first.
//
//	money := field.NewType("money", field.TypeDecimal)
func NewType(name string, parent *Type) *Type {
	typesMu.Lock()
	defer typesMu.Unlock()
	if t, ok := types[name]; ok {
		return t
	}
	t := &Type{name: name, parent: parent}
	types[name] = t
	return t
}

// LookupType returns the built-in or custom type registered under name.
func LookupType(name string) (*Type, bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	t, ok := types[name]
	return t, ok
}

// String returns the type name.
func (t *Type) String() string {
	if t == nil {
		return "invalid"
	}
	return t.name
}

// Parent returns the parent type, or nil for a root type.
func (t *Type) Parent() *Type {
	if t == nil {
		return nil
	}
	return t.parent
}

// Is reports whether t is u or derives from u.
func (t *Type) Is(u *Type) bool {
	for c := t; c != nil; c = c.parent {
		if c == u {
			return true
		}
	}
	return false
}

// Chain returns t followed by its ancestors, closest first.
func (t *Type) Chain() []*Type {
	var chain []*Type
	for c := t; c != nil; c = c.parent {
		chain = append(chain, c)
	}
	return chain
}

// Numeric reports if the type is an integer, float or decimal type.
func (t *Type) Numeric() bool {
	return t.Is(TypeInt) || t.Is(TypeFloat64) || t.Is(TypeDecimal)
}

// Relation reports if the type describes a relationship.
func (t *Type) Relation() bool { return t.Is(TypeRelation) }
