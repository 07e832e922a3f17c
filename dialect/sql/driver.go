package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/syssam/dynafix/dialect"
)

// Driver is a dialect.Driver writing to a database/sql database.
type Driver struct {
	Conn
	db *sql.DB
}

// Open opens the named database and returns a Driver for its dialect.
func Open(name, source string) (*Driver, error) {
	db, err := sql.Open(name, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(name, db), nil
}

// OpenDB returns a Driver for an open database.
func OpenDB(name string, db *sql.DB) *Driver {
	return &Driver{Conn: Conn{db, name}, db: db}
}

// DB returns the underlying database.
func (d *Driver) DB() *sql.DB { return d.db }

// Tx starts a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{Conn: Conn{tx, d.dialect}, tx: tx}, nil
}

// Close closes the database.
func (d *Driver) Close() error { return d.db.Close() }

// Tx is a dialect.Tx over a database/sql transaction.
type Tx struct {
	Conn
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// ExecQuerier is implemented by *sql.DB and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn adapts an ExecQuerier to dialect.ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
}

// Dialect returns the dialect name of the connection.
func (c Conn) Dialect() string { return c.dialect }

// Exec executes a statement. v is nil or a *Result receiving its result.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	switch v := v.(type) {
	case nil:
		if _, err := c.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *Result:
		res, err := c.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query executes a query into the *Rows v.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	return nil
}

var (
	_ dialect.Driver = (*Driver)(nil)
	_ dialect.Tx     = (*Tx)(nil)
)

type (
	// Rows holds the rows of a query.
	Rows struct{ RowScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
)

// RowScanner is the part of *sql.Rows the stores read keys with.
type RowScanner interface {
	Close() error
	Err() error
	Next() bool
	Scan(dest ...any) error
}
