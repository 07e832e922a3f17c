// Package store defines how fixtures are persisted.
//
// A Store saves entities and links many-to-many relations. Two
// implementations are provided: memstore keeps rows in memory and enforces
// NOT NULL, UNIQUE and foreign key constraints, sqlstore writes to a SQL
// database through dialect/sql.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/field"
)

var (
	// ErrThroughRelation is returned by Link for many-to-many relations with
	// an explicit through model. Such links are created by saving an
	// instance of the through model.
	ErrThroughRelation = errors.New("store: relation has a through model")

	// ErrUnsaved is returned when an entity references an unsaved entity.
	ErrUnsaved = errors.New("store: reference to an unsaved entity")

	// ErrConstraint is returned when a row violates a table constraint.
	ErrConstraint = errors.New("store: constraint failed")

	// ErrTxStarted is returned when starting a transaction within a transaction.
	ErrTxStarted = errors.New("store: cannot start a transaction within a transaction")
)

// SaveOptions configures a single Save call.
type SaveOptions struct {
	// KeepTimestamps lists the auto-stamped fields that received an explicit
	// value and must not be stamped by this save.
	KeepTimestamps []string
}

// Keeps reports if the named field keeps its value.
func (o SaveOptions) Keeps(name string) bool {
	return slices.Contains(o.KeepTimestamps, name)
}

// Store persists entities.
type Store interface {
	// Save inserts the entity, assigns its key and marks it saved.
	Save(ctx context.Context, e *schema.Entity, opts SaveOptions) error
	// Link attaches targets to the owner through a many-to-many field.
	Link(ctx context.Context, owner *schema.Entity, f *schema.Field, targets ...*schema.Entity) error
	// Begin starts a transaction.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a Store bound to a transaction.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// ConstraintError describes a constraint violation.
type ConstraintError struct {
	Kind   string // unique, not null or foreign key.
	Table  string
	Column string
	Err    error // driver error, if any.
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	msg := fmt.Sprintf("store: %s constraint failed", e.Kind)
	if e.Table != "" {
		msg += ": " + e.Table
		if e.Column != "" {
			msg += "." + e.Column
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the driver error.
func (e *ConstraintError) Unwrap() error { return e.Err }

// Is reports whether the target matches ErrConstraint.
func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e)
}

// Stamp sets the auto-stamped fields of e to now, except the ones kept by
// opts. Auto-now-add fields are only stamped on unsaved entities.
func Stamp(e *schema.Entity, now time.Time, opts SaveOptions) {
	for _, f := range e.Model().Fields() {
		if !f.IsAutoStamped() || opts.Keeps(f.Name) {
			continue
		}
		if f.AutoNowAdd && e.Saved() {
			continue
		}
		v := now
		if f.Type.Is(field.TypeDate) {
			y, m, d := now.Date()
			v = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		}
		e.Set(f.Name, v)
	}
}

// ColumnValue converts the value of a field to a value a column can hold.
// Related entities are replaced by their key, files by their name, UUIDs and
// decimals by their string form and JSON values by their encoding. A file is
// closed once its name is taken: the handle opened by the build belongs to
// the store from then on, whether the save succeeds or not.
func ColumnValue(f *schema.Field, v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case *schema.Entity:
		if v == nil {
			return nil, nil
		}
		if !v.Saved() || v.ID() == nil {
			return nil, fmt.Errorf("%w: %s -> %s", ErrUnsaved, f, v.Model().Name())
		}
		return ColumnValue(v.Model().Key(), v.ID())
	case *schema.File:
		if v == nil {
			return nil, nil
		}
		if err := v.Close(); err != nil {
			return nil, fmt.Errorf("store: close file %s: %w", v.Name, err)
		}
		return v.Name, nil
	case uuid.UUID:
		return v.String(), nil
	case decimal.Decimal:
		return v.String(), nil
	}
	if f.Type.Is(field.TypeJSON) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("store: encode %s: %w", f, err)
		}
		return b, nil
	}
	return v, nil
}

// Ancestry returns the concrete models a model is stored in, root first.
func Ancestry(m *schema.Model) []*schema.Model {
	var chain []*schema.Model
	for c := m; c != nil; c = c.Parent() {
		chain = append([]*schema.Model{c}, chain...)
	}
	return chain
}

// GenerateKey sets the key of an entity without one, from the key default or
// as a new UUID for UUID keys. It reports whether the entity has a key;
// integer keys without default are left to the store to assign.
func GenerateKey(e *schema.Entity) bool {
	if e.ID() != nil {
		return true
	}
	key := e.Model().Key()
	switch {
	case key.HasDefault():
		e.Set(key.Name, key.DefaultValue())
	case key.Type.Is(field.TypeUUID):
		e.Set(key.Name, uuid.New())
	default:
		return false
	}
	return true
}

// IntKey converts a generated integer key to the Go type of the key field.
func IntKey(key *schema.Field, n int64) any {
	switch key.Type {
	case field.TypeInt64:
		return n
	case field.TypeInt32:
		return int32(n)
	case field.TypeUint:
		return uint(n)
	case field.TypeUint32:
		return uint32(n)
	case field.TypeUint64:
		return uint64(n)
	default:
		return int(n)
	}
}
