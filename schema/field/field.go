package field

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

// A Describer returns the descriptor of a field definition.
// Both *Builder and *Descriptor implement it.
type Describer interface {
	Descriptor() *Descriptor
}

// Descriptor holds the properties of a non-relational field.
type Descriptor struct {
	Name       string             // field name.
	Type       *Type              // field type.
	StorageKey string             // column name, defaults to Name.
	Nullable   bool               // nullable field in the database.
	Unique     bool               // unique index.
	Key        bool               // identity field.
	Default    any                // static value or zero-argument func.
	Choices    []any              // ordered choice set.
	MaxLen     int                // max length for textual types.
	Precision  int                // total digits for decimals.
	Scale      int                // digits after the decimal point.
	AutoNow    bool               // stamped with the current time on every save.
	AutoNowAdd bool               // stamped with the current time on the first save.
	Validators []func(any) error  // custom validators.
	Comment    string             // field comment.
	Err        error              // builder error.
}

// Descriptor implements the Describer interface.
func (d *Descriptor) Descriptor() *Descriptor { return d }

// Builder is the fluent builder for all field types.
type Builder struct {
	desc *Descriptor
}

// New returns a builder for a field of the given type.
// Use it for custom types declared with NewType.
func New(name string, t *Type) *Builder {
	b := &Builder{desc: &Descriptor{Name: name, Type: t}}
	if t == nil {
		b.desc.Err = fmt.Errorf("field %q: missing type", name)
	}
	return b
}

// Int returns a new builder for an int field.
func Int(name string) *Builder { return New(name, TypeInt) }

// Int8 returns a new builder for an int8 field.
func Int8(name string) *Builder { return New(name, TypeInt8) }

// Int16 returns a new builder for an int16 field.
func Int16(name string) *Builder { return New(name, TypeInt16) }

// Int32 returns a new builder for an int32 field.
func Int32(name string) *Builder { return New(name, TypeInt32) }

// Int64 returns a new builder for an int64 field.
func Int64(name string) *Builder { return New(name, TypeInt64) }

// Uint returns a new builder for an uint field.
func Uint(name string) *Builder { return New(name, TypeUint) }

// Uint8 returns a new builder for an uint8 field.
func Uint8(name string) *Builder { return New(name, TypeUint8) }

// Uint16 returns a new builder for an uint16 field.
func Uint16(name string) *Builder { return New(name, TypeUint16) }

// Uint32 returns a new builder for an uint32 field.
func Uint32(name string) *Builder { return New(name, TypeUint32) }

// Uint64 returns a new builder for an uint64 field.
func Uint64(name string) *Builder { return New(name, TypeUint64) }

// Float returns a new builder for a float64 field.
func Float(name string) *Builder { return New(name, TypeFloat64) }

// Float32 returns a new builder for a float32 field.
func Float32(name string) *Builder { return New(name, TypeFloat32) }

// Decimal returns a new builder for a fixed point decimal field.
func Decimal(name string, precision, scale int) *Builder {
	b := New(name, TypeDecimal)
	b.desc.Precision, b.desc.Scale = precision, scale
	if scale > precision {
		b.desc.Err = fmt.Errorf("field %q: scale %d exceeds precision %d", name, scale, precision)
	}
	return b
}

// String returns a new builder for a string field.
func String(name string) *Builder { return New(name, TypeString) }

// Text returns a new builder for an unbounded text field.
func Text(name string) *Builder { return New(name, TypeText) }

// Slug returns a new builder for a slug field.
func Slug(name string) *Builder { return New(name, TypeSlug) }

// Email returns a new builder for an email field.
func Email(name string) *Builder { return New(name, TypeEmail) }

// URL returns a new builder for an URL field.
func URL(name string) *Builder { return New(name, TypeURL) }

// IP returns a new builder for an IP address field.
func IP(name string) *Builder { return New(name, TypeIP) }

// File returns a new builder for a file field. The stored value is the file name.
func File(name string) *Builder { return New(name, TypeFile) }

// FilePath returns a new builder for a file path field.
func FilePath(name string) *Builder { return New(name, TypeFilePath) }

// Enum returns a new builder for an enum field. Use Values to set its choices.
func Enum(name string) *Builder { return New(name, TypeEnum) }

// Bool returns a new builder for a bool field.
func Bool(name string) *Builder { return New(name, TypeBool) }

// Time returns a new builder for a timestamp field.
func Time(name string) *Builder { return New(name, TypeTime) }

// Date returns a new builder for a date field.
func Date(name string) *Builder { return New(name, TypeDate) }

// UUID returns a new builder for an UUID field.
func UUID(name string) *Builder { return New(name, TypeUUID) }

// Bytes returns a new builder for a binary field.
func Bytes(name string) *Builder { return New(name, TypeBytes) }

// JSON returns a new builder for a JSON field.
func JSON(name string) *Builder { return New(name, TypeJSON) }

// Optional marks the field as nullable.
func (b *Builder) Optional() *Builder {
	b.desc.Nullable = true
	return b
}

// Nillable is an alias of Optional.
func (b *Builder) Nillable() *Builder { return b.Optional() }

// Unique adds a unique constraint to the field.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// Key marks the field as the identity field of its model.
func (b *Builder) Key() *Builder {
	b.desc.Key = true
	return b
}

// Default sets the default value of the field. The value can be a static
// value or a function with no arguments and one result, like time.Now.
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	return b
}

// Values sets the choices of an enum field.
func (b *Builder) Values(values ...string) *Builder {
	for _, v := range values {
		b.desc.Choices = append(b.desc.Choices, v)
	}
	return b
}

// Choices sets the ordered choice set of the field.
func (b *Builder) Choices(values ...any) *Builder {
	b.desc.Choices = append(b.desc.Choices, values...)
	return b
}

// MaxLen sets the maximum length of a textual field.
func (b *Builder) MaxLen(n int) *Builder {
	b.desc.MaxLen = n
	b.desc.Validators = append(b.desc.Validators, func(v any) error {
		s, ok := v.(string)
		if ok && utf8.RuneCountInString(s) > n {
			return fmt.Errorf("value is longer than %d characters", n)
		}
		return nil
	})
	return b
}

// NotEmpty adds a validator that rejects empty strings.
func (b *Builder) NotEmpty() *Builder {
	b.desc.Validators = append(b.desc.Validators, func(v any) error {
		if s, ok := v.(string); ok && s == "" {
			return errors.New("value is empty")
		}
		return nil
	})
	return b
}

// Match adds a validator that requires string values to match re.
func (b *Builder) Match(re *regexp.Regexp) *Builder {
	b.desc.Validators = append(b.desc.Validators, func(v any) error {
		if s, ok := v.(string); ok && !re.MatchString(s) {
			return fmt.Errorf("value does not match %s", re)
		}
		return nil
	})
	return b
}

// AutoNow stamps the field with the current time on every save.
func (b *Builder) AutoNow() *Builder {
	b.desc.AutoNow = true
	return b
}

// AutoNowAdd stamps the field with the current time when the row is created.
func (b *Builder) AutoNowAdd() *Builder {
	b.desc.AutoNowAdd = true
	return b
}

// Validate adds a custom validator to the field.
func (b *Builder) Validate(fn func(any) error) *Builder {
	b.desc.Validators = append(b.desc.Validators, fn)
	return b
}

// StorageKey sets the column name of the field.
func (b *Builder) StorageKey(key string) *Builder {
	b.desc.StorageKey = key
	return b
}

// Comment sets the comment of the field.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the Describer interface.
func (b *Builder) Descriptor() *Descriptor {
	if b.desc.StorageKey == "" {
		b.desc.StorageKey = b.desc.Name
	}
	if b.desc.Type.Is(TypeEnum) && len(b.desc.Choices) == 0 && b.desc.Err == nil {
		b.desc.Err = fmt.Errorf("field %q: enum without values", b.desc.Name)
	}
	return b.desc
}
