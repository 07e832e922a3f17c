// Package field provides fluent builders for describing model fields.
//
// Field names follow database conventions (snake_case):
//
//	field.Int("pages")
//	field.String("title").MaxLen(100)
//	field.Email("contact").Unique()
//	field.Enum("status").Values("draft", "published")
//	field.Decimal("price", 10, 2).Optional()
//	field.Time("created_at").AutoNowAdd()
//
// # Types
//
// Every field has a *Type. Types form a tree (for example, email derives
// from string and uint8 derives from uint, which derives from int) so that
// value generators only need to know the roots. Custom types are declared
// with NewType and inherit the behavior of their parent:
//
//	money := field.NewType("money", field.TypeDecimal)
//	field.New("balance", money)
package field
