// Package sqlstore implements a store writing fixtures to a SQL database.
//
//	drv, err := sql.Open(dialect.SQLite, "file:fixtures?mode=memory")
//	if err != nil {
//		return err
//	}
//	st := sqlstore.New(reg, drv)
//	if err := st.Migrate(ctx); err != nil {
//		return err
//	}
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/syssam/dynafix/dialect"
	"github.com/syssam/dynafix/dialect/sql"
	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/field"
	"github.com/syssam/dynafix/store"
)

// Store is a store.Store backed by a SQL database.
type Store struct {
	reg     *schema.Registry
	drv     dialect.Driver
	conn    dialect.ExecQuerier
	dialect string
	clock   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for auto-stamped fields.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// New returns a store writing the models of reg through drv.
func New(reg *schema.Registry, drv dialect.Driver, opts ...Option) *Store {
	s := &Store{reg: reg, drv: drv, conn: drv, dialect: drv.Dialect(), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tx is a Store bound to a database transaction.
type Tx struct {
	*Store
	tx dialect.Tx
}

// Begin implements the store.Store interface.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if s.drv == nil {
		return nil, store.ErrTxStarted
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: begin transaction: %w", err)
	}
	return &Tx{
		Store: &Store{reg: s.reg, conn: tx, dialect: s.dialect, clock: s.clock},
		tx:    tx,
	}, nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error { return tx.tx.Commit() }

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error { return tx.tx.Rollback() }

// Save implements the store.Store interface. Entities of inherited models
// get one row per table of their model chain, root first, all sharing the
// key of the root row.
func (s *Store) Save(ctx context.Context, e *schema.Entity, opts store.SaveOptions) error {
	m := e.Model()
	if m.IsAbstract() {
		return fmt.Errorf("sqlstore: model %s is abstract", m.Name())
	}
	store.Stamp(e, s.clock(), opts)
	key := m.Key()
	auto := !store.GenerateKey(e)
	if auto && !key.Type.Is(field.TypeInt) {
		return fmt.Errorf("sqlstore: model %s has no value for key %s", m.Name(), key.Name)
	}
	for i, cm := range store.Ancestry(m) {
		insert := sql.Dialect(s.dialect).Insert(cm.Table())
		if !auto || i > 0 {
			id, err := store.ColumnValue(key, e.ID())
			if err != nil {
				return err
			}
			insert.Set(key.Column, id)
		}
		for _, f := range cm.LocalFields() {
			if f.Key || !f.HasColumn() {
				continue
			}
			v, err := store.ColumnValue(f, e.Get(f.Name))
			if err != nil {
				return err
			}
			insert.Set(f.Column, v)
		}
		if auto && i == 0 {
			id, err := s.insertAuto(ctx, insert.Returning(key.Column))
			if err != nil {
				return constraint(cm.Table(), err)
			}
			e.Set(key.Name, store.IntKey(key, id))
			continue
		}
		query, args := insert.Query()
		if err := s.conn.Exec(ctx, query, args, nil); err != nil {
			return constraint(cm.Table(), err)
		}
	}
	e.MarkSaved()
	return nil
}

// insertAuto executes an insert and returns the key assigned by the database.
func (s *Store) insertAuto(ctx context.Context, insert *sql.InsertBuilder) (int64, error) {
	query, args := insert.Query()
	if insert.HasReturning() {
		var rows sql.Rows
		if err := s.conn.Query(ctx, query, args, &rows); err != nil {
			return 0, err
		}
		defer rows.Close()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("sqlstore: no key returned by %q", query)
		}
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		return id, rows.Err()
	}
	var res sql.Result
	if err := s.conn.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Link implements the store.Store interface.
func (s *Store) Link(ctx context.Context, owner *schema.Entity, f *schema.Field, targets ...*schema.Entity) error {
	if !f.IsManyToMany() {
		return fmt.Errorf("sqlstore: %s is not a many-to-many field", f)
	}
	if f.Rel.Through != nil {
		return store.ErrThroughRelation
	}
	oid, err := store.ColumnValue(f, owner)
	if err != nil {
		return err
	}
	ownerColumn, targetColumn := f.JoinColumns()
	for _, t := range targets {
		tid, err := store.ColumnValue(f, t)
		if err != nil {
			return err
		}
		query, args := sql.Dialect(s.dialect).Insert(f.Rel.JoinTable).
			Set(ownerColumn, oid).
			Set(targetColumn, tid).
			Query()
		if err := s.conn.Exec(ctx, query, args, nil); err != nil {
			return constraint(f.Rel.JoinTable, err)
		}
	}
	return nil
}

// constraint wraps database constraint violations with store.ConstraintError.
func constraint(table string, err error) error {
	var kind string
	switch {
	case sql.IsUniqueConstraintError(err):
		kind = "unique"
	case sql.IsForeignKeyConstraintError(err):
		kind = "foreign key"
	case sql.IsNotNullConstraintError(err):
		kind = "not null"
	case sql.IsCheckConstraintError(err):
		kind = "check"
	default:
		return fmt.Errorf("sqlstore: insert into %s: %w", table, err)
	}
	return &store.ConstraintError{Kind: kind, Table: table, Err: err}
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*Tx)(nil)
)
