package dynafix

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/syssam/dynafix/gen"
	"github.com/syssam/dynafix/schema"
)

// Values maps field names to the value sources used to fill them. A source
// is one of:
//
//   - a static value, assigned as is;
//   - a Func or func(*schema.Field) any, called with the field;
//   - a *Nested fixture created by F, built for relation fields;
//   - a *Copier created by C, copying another field of the same entity;
//   - a *Mask created by M, producing a random string from a pattern;
//   - a *Generated source created by Use, delegating to a generator.
//
// Keys may use the lookup separator to configure related entities:
// {"author__name": "ann"} is the same as {"author": F(Values{"name": "ann"})}.
type Values map[string]any

// Clone returns a shallow copy of the values.
func (v Values) Clone() Values {
	c := make(Values, len(v))
	for k, x := range v {
		c[k] = x
	}
	return c
}

// merge copies the values of src into v, replacing existing keys.
func (v Values) merge(src Values) {
	for k, x := range src {
		v[k] = x
	}
}

// Func computes the value of a field.
type Func func(f *schema.Field) any

// Nested configures the entity built for a relation field.
type Nested struct {
	values Values
	opts   []Option
}

// F returns a nested fixture. Its values take priority over any lesson of
// the related model, and its options apply on top of the fixture defaults.
//
//	fx.Get(ctx, "Book", dynafix.Values{
//		"author": dynafix.F(dynafix.Values{"name": "ann"}, dynafix.FillNullable(true)),
//	})
func F(values Values, opts ...Option) *Nested {
	return &Nested{values: values, opts: opts}
}

// Values returns a copy of the nested values.
func (n *Nested) Values() Values { return n.values.Clone() }

// String returns the nested values in a readable form.
func (n *Nested) String() string {
	return "F(" + formatValues(n.values) + ")"
}

// Copier copies the value of another field of the entity being built. The
// expression is a dot separated path starting at a field of the entity and
// following to-one relations.
type Copier struct {
	expr string
	path []string
}

// C returns a copier for the given path.
//
//	dynafix.Values{"billing_city": dynafix.C("address.city")}
func C(expr string) *Copier {
	return &Copier{expr: expr, path: strings.Split(expr, ".")}
}

// String returns the copier expression.
func (c *Copier) String() string { return "C(" + c.expr + ")" }

// root returns the name of the field the path starts at.
func (c *Copier) root() string { return c.path[0] }

// valid reports if every step of the path is named.
func (c *Copier) valid() bool {
	for _, step := range c.path {
		if step == "" {
			return false
		}
	}
	return true
}

// Mask produces random strings from a pattern: '#' is a random digit, '-' a
// random uppercase letter, '_' a random lowercase letter and '!' escapes the
// next character. Any other character is copied.
type Mask struct {
	pattern string
}

// M returns a mask for the given pattern.
//
//	dynafix.M("###-__!#") // e.g. "042-QRxw#"
func M(pattern string) *Mask { return &Mask{pattern: pattern} }

// String returns the mask pattern.
func (m *Mask) String() string { return "M(" + m.pattern + ")" }

// Evaluate returns a new string matching the pattern.
func (m *Mask) Evaluate() string {
	var (
		sb      strings.Builder
		escaped bool
	)
	for _, r := range m.pattern {
		if escaped {
			sb.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '#':
			sb.WriteByte(byte('0' + rand.IntN(10)))
		case '-':
			sb.WriteByte(byte('A' + rand.IntN(26)))
		case '_':
			sb.WriteByte(byte('a' + rand.IntN(26)))
		case '!':
			escaped = true
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Generated delegates a field to a generator.
type Generated struct {
	gen gen.Generator
}

// Use returns a source generating the field value with g.
//
//	dynafix.Values{"code": dynafix.Use(gen.Random())}
func Use(g gen.Generator) *Generated { return &Generated{gen: g} }

// isDynamic reports if a source produces a new value on every build.
func isDynamic(v any) bool {
	switch v.(type) {
	case *Nested, *Copier, *Generated, Func, func(*schema.Field) any, func() any:
		return true
	default:
		return false
	}
}

func formatValues(v Values) string {
	keys := sortedKeys(v)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, v[k])
	}
	return strings.Join(parts, ", ")
}
