// Package edge provides fluent builders for describing relationships between
// models.
//
// # Edge Kinds
//
//	// Foreign key: a Book belongs to one Author.
//	edge.To("author", "Author")
//
//	// Nullable foreign key.
//	edge.To("editor", "Author").Optional()
//
//	// One-to-one: a Profile belongs to exactly one User.
//	edge.One("user", "User")
//
//	// Many-to-many through an implicit join table.
//	edge.Many("tags", "Tag")
//
//	// Many-to-many through an explicit join model.
//	edge.Many("members", "User").Through("Membership", "group", "user")
//
// Self references use the owning model name as target:
//
//	edge.To("parent", "Category").Optional()
package edge
