// Package gen generates field values by type.
//
// A Table maps field types to value functions. Generation walks the type
// chain of the field, so a custom type derived from string is generated like
// a string unless a function is registered for it:
//
//	t := gen.Sequential(gen.WithOverride("email", "fixed@example.com"))
//	v, err := t.Generate(f)
//
// Strategies:
//
//   - Sequential: one sequence per field, advanced on every value.
//   - StaticSequential: unique fields advance, the others repeat their value.
//   - GlobalSequential: one sequence shared by all fields.
//   - Random: random values, no uniqueness.
//   - UniqueRandom: random values unique per field for the first 512 values.
//
// Sequences are kept in a Counter whose keys are locked independently, so a
// Table may be shared by concurrent builds.
package gen
