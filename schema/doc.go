// Package schema describes the models a fixture is built for.
//
// A model is a named set of fields and relations, declared with the builders
// of the [field] and [edge] packages and registered in a Registry:
//
//	reg := schema.NewRegistry()
//	reg.MustRegister(
//		schema.NewModel("Author",
//			schema.Fields(field.String("name").MaxLen(50)),
//		),
//		schema.NewModel("Book",
//			schema.Fields(
//				field.String("isbn").Unique(),
//				field.Int("pages").Optional(),
//			),
//			schema.Edges(
//				edge.To("author", "Author"),
//				edge.Many("tags", "Tag"),
//			),
//		),
//	)
//
// Every model has an identity field, an implicit integer "id" unless one is
// declared with Key. Models may extend an abstract model, in which case its
// fields are copied, or a concrete model, in which case the child is stored
// in its own table and linked to the parent row by a parent link field.
// Shared field sets are added with Mixins; see the [mixin] package.
//
// An Entity is an instance of a model under construction or persisted. It
// stores field values by name; relation fields hold *Entity values.
package schema
