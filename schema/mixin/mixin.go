// Package mixin provides reusable sets of fields for model definitions.
//
// A mixin embeds Schema and overrides the methods it needs:
//
//	type Audit struct {
//		mixin.Schema
//	}
//
//	func (Audit) Fields() []field.Describer {
//		return []field.Describer{
//			field.String("created_by").Optional(),
//		}
//	}
//
// Mixins are added to a model with schema.Mixins:
//
//	schema.NewModel("Book",
//		schema.Mixins(mixin.Time{}, Audit{}),
//		schema.Fields(field.String("title")),
//	)
package mixin

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/edge"
	"github.com/syssam/dynafix/schema/field"
)

// Schema is the default implementation of the schema.Mixin interface.
// It should be embedded in all custom mixins.
type Schema struct{}

// Fields returns the fields of the mixin.
func (Schema) Fields() []field.Describer { return nil }

// Edges returns the edges of the mixin.
func (Schema) Edges() []edge.Describer { return nil }

var _ schema.Mixin = (*Schema)(nil)

// CreateTime adds a created_at field stamped when the entity is first saved.
type CreateTime struct{ Schema }

// Fields of the create time mixin.
func (CreateTime) Fields() []field.Describer {
	return []field.Describer{
		field.Time("created_at").AutoNowAdd(),
	}
}

// UpdateTime adds an updated_at field stamped on every save.
type UpdateTime struct{ Schema }

// Fields of the update time mixin.
func (UpdateTime) Fields() []field.Describer {
	return []field.Describer{
		field.Time("updated_at").AutoNow(),
	}
}

// Time composes CreateTime and UpdateTime.
type Time struct{ Schema }

// Fields of the time mixin.
func (Time) Fields() []field.Describer {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

// SoftDelete adds an optional deleted_at field. Fixtures leave it empty
// unless optional fields are filled.
type SoftDelete struct{ Schema }

// Fields of the soft delete mixin.
func (SoftDelete) Fields() []field.Describer {
	return []field.Describer{
		field.Time("deleted_at").Optional(),
	}
}

// ID replaces the integer key of the model with a random UUID.
type ID struct{ Schema }

// Fields of the ID mixin.
func (ID) Fields() []field.Describer {
	return []field.Describer{
		field.UUID("id").Key().Default(uuid.New),
	}
}

// TenantID adds a required tenant_id field.
type TenantID struct{ Schema }

// Fields of the tenant mixin.
func (TenantID) Fields() []field.Describer {
	return []field.Describer{
		field.String("tenant_id").NotEmpty(),
	}
}

var builtin = map[string]schema.Mixin{
	"create_time": CreateTime{},
	"update_time": UpdateTime{},
	"time":        Time{},
	"soft_delete": SoftDelete{},
	"id":          ID{},
	"tenant_id":   TenantID{},
}

// Names returns the names accepted by ByName, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns the built-in mixin with the given name.
func ByName(name string) (schema.Mixin, error) {
	m, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("mixin: unknown mixin %q", name)
	}
	return m, nil
}
