package sqlstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/syssam/dynafix/dialect"
	"github.com/syssam/dynafix/dialect/sql"
	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/field"
)

// Migrate creates the tables of all concrete models and the join tables of
// their many-to-many relations. Existing tables are left untouched.
func (s *Store) Migrate(ctx context.Context) error {
	stmts, err := s.Statements()
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := s.conn.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	return nil
}

// Statements returns the CREATE TABLE statements executed by Migrate.
// Tables are ordered so that referenced tables are created first.
func (s *Store) Statements() ([]string, error) {
	models, err := s.ordered()
	if err != nil {
		return nil, err
	}
	var stmts []string
	for _, m := range models {
		stmt, err := s.createTable(m)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	for _, m := range models {
		for _, f := range m.ManyToMany() {
			if f.Rel.Through != nil || f.Model() != m {
				continue
			}
			stmt, err := s.createJoinTable(f)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

// ordered returns the concrete models, referenced models first. Cycles are
// broken in registration order.
func (s *Store) ordered() ([]*schema.Model, error) {
	var (
		order   []*schema.Model
		visited = make(map[*schema.Model]bool)
		visit   func(*schema.Model) error
	)
	visit = func(m *schema.Model) error {
		if visited[m] {
			return nil
		}
		visited[m] = true
		if m.Parent() != nil {
			if err := visit(m.Parent()); err != nil {
				return err
			}
		}
		for _, f := range m.LocalFields() {
			if !f.IsRelation() || !f.HasColumn() {
				continue
			}
			target, err := s.reg.Lookup(f.Rel.Target)
			if err != nil {
				return err
			}
			if err := visit(target); err != nil {
				return err
			}
		}
		order = append(order, m)
		return nil
	}
	for _, m := range s.reg.Models() {
		if m.IsAbstract() {
			continue
		}
		if err := visit(m); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (s *Store) createTable(m *schema.Model) (string, error) {
	b := sql.Dialect(s.dialect)
	b.WriteString("CREATE TABLE IF NOT EXISTS ").Ident(m.Table()).WriteString(" (")
	var refs []reference
	key := m.Key()
	b.Ident(key.Column).WriteString(" ")
	switch {
	case m.Parent() != nil:
		b.WriteString(columnType(s.dialect, key)).WriteString(" PRIMARY KEY REFERENCES ").
			Ident(m.Parent().Table()).WriteString(" (").Ident(key.Column).WriteString(")")
	case key.Type.Is(field.TypeInt) && !key.HasDefault():
		b.WriteString(autoIncrement(s.dialect))
	default:
		b.WriteString(columnType(s.dialect, key)).WriteString(" PRIMARY KEY")
	}
	for _, f := range m.LocalFields() {
		if f.Key || !f.HasColumn() {
			continue
		}
		b.WriteString(", ").Ident(f.Column).WriteString(" ")
		typ := columnType(s.dialect, f)
		if f.IsRelation() {
			target, err := s.reg.Lookup(f.Rel.Target)
			if err != nil {
				return "", err
			}
			typ = columnType(s.dialect, target.Key())
			refs = append(refs, reference{column: f.Column, table: target.Table(), key: target.Key().Column})
		}
		b.WriteString(typ)
		if !f.Nullable {
			b.WriteString(" NOT NULL")
		}
		if f.Unique {
			b.WriteString(" UNIQUE")
		}
	}
	for _, r := range refs {
		b.WriteString(", FOREIGN KEY (").Ident(r.column).WriteString(") REFERENCES ").
			Ident(r.table).WriteString(" (").Ident(r.key).WriteString(")")
	}
	b.WriteString(")")
	query, _ := b.Query()
	return query, nil
}

type reference struct{ column, table, key string }

func (s *Store) createJoinTable(f *schema.Field) (string, error) {
	target, err := s.reg.Lookup(f.Rel.Target)
	if err != nil {
		return "", err
	}
	owner := f.Model()
	ownerColumn, targetColumn := f.JoinColumns()
	b := sql.Dialect(s.dialect)
	b.WriteString("CREATE TABLE IF NOT EXISTS ").Ident(f.Rel.JoinTable).WriteString(" (").
		Ident(ownerColumn).WriteString(" " + columnType(s.dialect, owner.Key()) + " NOT NULL, ").
		Ident(targetColumn).WriteString(" " + columnType(s.dialect, target.Key()) + " NOT NULL, ").
		WriteString("FOREIGN KEY (").Ident(ownerColumn).WriteString(") REFERENCES ").
		Ident(owner.Table()).WriteString(" (").Ident(owner.Key().Column).WriteString("), ").
		WriteString("FOREIGN KEY (").Ident(targetColumn).WriteString(") REFERENCES ").
		Ident(target.Table()).WriteString(" (").Ident(target.Key().Column).WriteString("))")
	query, _ := b.Query()
	return query, nil
}

func autoIncrement(name string) string {
	switch name {
	case dialect.Postgres:
		return "BIGSERIAL PRIMARY KEY"
	case dialect.MySQL:
		return "BIGINT AUTO_INCREMENT PRIMARY KEY"
	default:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// columnType returns the column type of a field in the given dialect.
func columnType(name string, f *schema.Field) string {
	t := f.Type
	switch {
	case t.Is(field.TypeBool):
		return "BOOLEAN"
	case t.Is(field.TypeInt):
		return "BIGINT"
	case t.Is(field.TypeFloat64):
		if name == dialect.Postgres {
			return "DOUBLE PRECISION"
		}
		return "DOUBLE"
	case t.Is(field.TypeDecimal):
		if f.Precision > 0 {
			return "DECIMAL(" + strconv.Itoa(f.Precision) + ", " + strconv.Itoa(f.Scale) + ")"
		}
		return "DECIMAL"
	case t.Is(field.TypeText):
		return "TEXT"
	case t.Is(field.TypeString):
		switch {
		case f.MaxLen > 0:
			return "VARCHAR(" + strconv.Itoa(f.MaxLen) + ")"
		case name == dialect.MySQL:
			return "VARCHAR(255)"
		default:
			return "TEXT"
		}
	case t.Is(field.TypeDate):
		return "DATE"
	case t.Is(field.TypeTime):
		if name == dialect.Postgres {
			return "TIMESTAMP WITH TIME ZONE"
		}
		return "DATETIME"
	case t.Is(field.TypeUUID):
		if name == dialect.Postgres {
			return "UUID"
		}
		return "CHAR(36)"
	case t.Is(field.TypeBytes):
		if name == dialect.Postgres {
			return "BYTEA"
		}
		return "BLOB"
	case t.Is(field.TypeJSON):
		if name == dialect.Postgres {
			return "JSONB"
		}
		return "JSON"
	default:
		return "TEXT"
	}
}
