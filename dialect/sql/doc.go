// Package sql implements the dialect.Driver interface on top of database/sql
// and provides the small set of statement builders the SQL store needs.
//
// # Drivers
//
//	drv, err := sql.Open(dialect.SQLite, "file:fixtures?mode=memory&_pragma=foreign_keys(1)")
//
// Open and OpenDB return a *Driver. StatsDriver wraps it to count queries,
// execs, errors and slow statements, and optionally logs every statement.
//
// # Builders
//
// Builder quotes identifiers and numbers placeholders per dialect:
//
//	query, args := sql.Dialect(dialect.Postgres).
//	    Insert("books").
//	    Set("title", "Go").
//	    Returning("id").
//	    Query()
//	// INSERT INTO "books" ("title") VALUES ($1) RETURNING "id"
//
// # Errors
//
// IsUniqueConstraintError, IsForeignKeyConstraintError, IsCheckConstraintError
// and IsNotNullConstraintError classify driver errors of PostgreSQL, MySQL and
// SQLite.
package sql
