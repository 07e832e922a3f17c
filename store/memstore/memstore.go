// Package memstore implements an in-memory store.
//
// Rows are kept per table as msgpack encoded column maps. NOT NULL, UNIQUE
// and foreign key constraints are enforced on insert, so fixtures that would
// be rejected by a database are rejected here too. Transactions work on a
// copy of the tables that replaces the store tables on commit.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/field"
	"github.com/syssam/dynafix/store"
)

type (
	// Store is an in-memory store.Store.
	Store struct {
		*engine
	}

	// Tx is a transaction of a Store.
	Tx struct {
		*engine
		parent *Store
		done   bool
	}

	engine struct {
		reg   *schema.Registry
		clock func() time.Time
		mu    sync.Mutex
		db    *database
	}

	database struct {
		tables map[string]*table
		links  map[string][]link
		seq    map[string]int64
	}

	table struct {
		rows   map[string][]byte
		order  []string
		unique map[string]map[string]struct{}
	}

	link struct{ owner, target any }
)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for auto-stamped fields.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// New returns an empty store for the models of reg.
func New(reg *schema.Registry, opts ...Option) *Store {
	s := &Store{engine: &engine{reg: reg, clock: time.Now, db: newDatabase()}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newDatabase() *database {
	return &database{
		tables: make(map[string]*table),
		links:  make(map[string][]link),
		seq:    make(map[string]int64),
	}
}

// Begin implements the store.Store interface.
func (s *Store) Begin(context.Context) (store.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Tx{
		engine: &engine{reg: s.reg, clock: s.clock, db: s.db.clone()},
		parent: s,
	}, nil
}

// Begin implements the store.Store interface.
func (*Tx) Begin(context.Context) (store.Tx, error) {
	return nil, store.ErrTxStarted
}

// Commit replaces the store tables with the transaction tables.
func (tx *Tx) Commit() error {
	if tx.done {
		return fmt.Errorf("memstore: transaction already finished")
	}
	tx.done = true
	tx.parent.mu.Lock()
	defer tx.parent.mu.Unlock()
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.parent.db = tx.db
	return nil
}

// Rollback discards the transaction.
func (tx *Tx) Rollback() error {
	if tx.done {
		return fmt.Errorf("memstore: transaction already finished")
	}
	tx.done = true
	return nil
}

// Save implements the store.Store interface.
func (e *engine) Save(_ context.Context, ent *schema.Entity, opts store.SaveOptions) error {
	m := ent.Model()
	if m.IsAbstract() {
		return fmt.Errorf("memstore: model %s is abstract", m.Name())
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	store.Stamp(ent, e.clock(), opts)
	chain := store.Ancestry(m)
	root, key := chain[0].Table(), m.Key()
	assigned := false
	if !store.GenerateKey(ent) {
		if !key.Type.Is(field.TypeInt) {
			return fmt.Errorf("memstore: model %s has no value for key %s", m.Name(), key.Name)
		}
		ent.Set(key.Name, store.IntKey(key, e.db.seq[root]+1))
		assigned = true
	}
	rows, err := e.rows(chain, ent)
	if err != nil {
		if assigned {
			ent.Set(key.Name, nil)
		}
		return err
	}
	// All rows are checked before any is written, so a failing save leaves
	// the tables unchanged.
	uniques := make([]map[string]string, len(chain))
	for i, cm := range chain {
		if uniques[i], err = e.check(cm, rows[i]); err != nil {
			if assigned {
				ent.Set(key.Name, nil)
			}
			return err
		}
	}
	for i, cm := range chain {
		if err := e.db.table(cm.Table()).insert(rows[i], key.Column, uniques[i]); err != nil {
			return fmt.Errorf("memstore: encode row of %s: %w", cm.Table(), err)
		}
	}
	switch id := ent.ID().(type) {
	case int:
		e.db.seq[root] = max(e.db.seq[root], int64(id))
	case int64:
		e.db.seq[root] = max(e.db.seq[root], id)
	}
	ent.MarkSaved()
	return nil
}

// rows returns the rows of an entity, one per table of the chain.
func (e *engine) rows(chain []*schema.Model, ent *schema.Entity) ([]map[string]any, error) {
	key := ent.Model().Key()
	id, err := store.ColumnValue(key, ent.ID())
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, len(chain))
	for i, cm := range chain {
		row, err := e.row(cm, ent)
		if err != nil {
			return nil, err
		}
		row[key.Column] = id
		rows[i] = row
	}
	return rows, nil
}

// row returns the column values of the fields stored in the table of m.
func (e *engine) row(m *schema.Model, ent *schema.Entity) (map[string]any, error) {
	row := make(map[string]any)
	for _, f := range m.LocalFields() {
		if f.Key || !f.HasColumn() {
			continue
		}
		v, err := store.ColumnValue(f, ent.Get(f.Name))
		if err != nil {
			return nil, err
		}
		row[f.Column] = v
	}
	return row, nil
}

// Link implements the store.Store interface.
func (e *engine) Link(_ context.Context, owner *schema.Entity, f *schema.Field, targets ...*schema.Entity) error {
	if !f.IsManyToMany() {
		return fmt.Errorf("memstore: %s is not a many-to-many field", f)
	}
	if f.Rel.Through != nil {
		return store.ErrThroughRelation
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	oid, err := store.ColumnValue(f, owner)
	if err != nil {
		return err
	}
	links := e.db.links[f.Rel.JoinTable]
	for _, t := range targets {
		tid, err := store.ColumnValue(f, t)
		if err != nil {
			return err
		}
		links = append(links, link{owner: oid, target: tid})
	}
	e.db.links[f.Rel.JoinTable] = links
	return nil
}

// Count returns the number of rows of the model table.
func (e *engine) Count(model string) int {
	m, err := e.reg.Lookup(model)
	if err != nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.db.tables[m.Table()]
	if !ok {
		return 0
	}
	return len(t.rows)
}

// Row returns the decoded row of the model table with the given key.
func (e *engine) Row(model string, id any) (map[string]any, bool) {
	m, err := e.reg.Lookup(model)
	if err != nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.db.tables[m.Table()]
	if !ok {
		return nil, false
	}
	b, ok := t.rows[rowKey(id)]
	if !ok {
		return nil, false
	}
	var row map[string]any
	if err := msgpack.Unmarshal(b, &row); err != nil {
		return nil, false
	}
	return row, true
}

// Rows returns the decoded rows of the model table in insertion order.
func (e *engine) Rows(model string) ([]map[string]any, error) {
	m, err := e.reg.Lookup(model)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.db.tables[m.Table()]
	if !ok {
		return nil, nil
	}
	rows := make([]map[string]any, 0, len(t.order))
	for _, id := range t.order {
		var row map[string]any
		if err := msgpack.Unmarshal(t.rows[id], &row); err != nil {
			return nil, fmt.Errorf("memstore: decode row %s of %s: %w", id, m.Table(), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Links returns the keys of the entities linked to owner through f, in link order.
func (e *engine) Links(owner *schema.Entity, f *schema.Field) []any {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ids []any
	for _, l := range e.db.links[f.Rel.JoinTable] {
		if rowKey(l.owner) == rowKey(owner.ID()) {
			ids = append(ids, l.target)
		}
	}
	return ids
}

// Tables returns the names of the tables holding rows, sorted.
func (e *engine) Tables() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.db.tables))
	for name := range e.db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (db *database) table(name string) *table {
	t, ok := db.tables[name]
	if !ok {
		t = &table{rows: make(map[string][]byte), unique: make(map[string]map[string]struct{})}
		db.tables[name] = t
	}
	return t
}

// check checks the constraints of m for the row and returns the encoded
// values of its unique columns.
func (e *engine) check(m *schema.Model, row map[string]any) (map[string]string, error) {
	t := e.db.tables[m.Table()]
	if t == nil {
		t = &table{}
	}
	key := m.Key()
	if _, ok := t.rows[rowKey(row[key.Column])]; ok {
		return nil, &store.ConstraintError{Kind: "unique", Table: m.Table(), Column: key.Column}
	}
	encoded := make(map[string]string)
	for _, f := range m.LocalFields() {
		if f.Key || !f.HasColumn() {
			continue
		}
		v := row[f.Column]
		if v == nil {
			if !f.Nullable {
				return nil, &store.ConstraintError{Kind: "not null", Table: m.Table(), Column: f.Column}
			}
			continue
		}
		if f.IsRelation() {
			target, err := e.reg.Lookup(f.Rel.Target)
			if err != nil {
				return nil, err
			}
			if tt := e.db.tables[target.Table()]; tt == nil || !tt.has(rowKey(v)) {
				return nil, &store.ConstraintError{Kind: "foreign key", Table: m.Table(), Column: f.Column}
			}
		}
		if f.Unique {
			b, err := msgpack.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("memstore: encode %s: %w", f, err)
			}
			if _, ok := t.unique[f.Column][string(b)]; ok {
				return nil, &store.ConstraintError{Kind: "unique", Table: m.Table(), Column: f.Column}
			}
			encoded[f.Column] = string(b)
		}
	}
	return encoded, nil
}

func (t *table) has(id string) bool {
	_, ok := t.rows[id]
	return ok
}

// insert adds a checked row to the table.
func (t *table) insert(row map[string]any, key string, uniques map[string]string) error {
	b, err := msgpack.Marshal(row)
	if err != nil {
		return err
	}
	for column, v := range uniques {
		if t.unique[column] == nil {
			t.unique[column] = make(map[string]struct{})
		}
		t.unique[column][v] = struct{}{}
	}
	id := rowKey(row[key])
	t.rows[id] = b
	t.order = append(t.order, id)
	return nil
}

func (db *database) clone() *database {
	c := newDatabase()
	for name, t := range db.tables {
		ct := &table{
			rows:   make(map[string][]byte, len(t.rows)),
			order:  append([]string(nil), t.order...),
			unique: make(map[string]map[string]struct{}, len(t.unique)),
		}
		for k, v := range t.rows {
			ct.rows[k] = v
		}
		for column, set := range t.unique {
			cs := make(map[string]struct{}, len(set))
			for k := range set {
				cs[k] = struct{}{}
			}
			ct.unique[column] = cs
		}
		c.tables[name] = ct
	}
	for name, links := range db.links {
		c.links[name] = append([]link(nil), links...)
	}
	for name, n := range db.seq {
		c.seq[name] = n
	}
	return c
}

func rowKey(id any) string { return fmt.Sprint(id) }
