package mixin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/edge"
	"github.com/syssam/dynafix/schema/field"
	"github.com/syssam/dynafix/schema/mixin"
)

// owned is a custom mixin adding a relation.
type owned struct {
	mixin.Schema
}

func (owned) Edges() []edge.Describer {
	return []edge.Describer{edge.To("owner", "User")}
}

func TestSchemaBaseMixin(t *testing.T) {
	t.Parallel()
	m := mixin.Schema{}
	assert.Nil(t, m.Fields())
	assert.Nil(t, m.Edges())
}

func TestBuiltinFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		mixin schema.Mixin
		names []string
		check func(*testing.T, []field.Describer)
	}{
		{
			mixin: mixin.CreateTime{},
			names: []string{"created_at"},
			check: func(t *testing.T, fields []field.Describer) {
				assert.True(t, fields[0].Descriptor().AutoNowAdd)
			},
		},
		{
			mixin: mixin.UpdateTime{},
			names: []string{"updated_at"},
			check: func(t *testing.T, fields []field.Describer) {
				assert.True(t, fields[0].Descriptor().AutoNow)
			},
		},
		{
			mixin: mixin.Time{},
			names: []string{"created_at", "updated_at"},
		},
		{
			mixin: mixin.SoftDelete{},
			names: []string{"deleted_at"},
			check: func(t *testing.T, fields []field.Describer) {
				assert.True(t, fields[0].Descriptor().Nullable)
			},
		},
		{
			mixin: mixin.ID{},
			names: []string{"id"},
			check: func(t *testing.T, fields []field.Describer) {
				d := fields[0].Descriptor()
				assert.True(t, d.Key)
				assert.NotNil(t, d.Default)
				assert.True(t, d.Type.Is(field.TypeUUID))
			},
		},
		{
			mixin: mixin.TenantID{},
			names: []string{"tenant_id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.names[0], func(t *testing.T) {
			t.Parallel()
			fields := tt.mixin.Fields()
			require.Len(t, fields, len(tt.names))
			for i, name := range tt.names {
				assert.Equal(t, name, fields[i].Descriptor().Name)
			}
			assert.Empty(t, tt.mixin.Edges())
			if tt.check != nil {
				tt.check(t, fields)
			}
		})
	}
}

func TestModelMixins(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(
		schema.NewModel("User", schema.Fields(field.String("name"))),
		schema.NewModel("Note",
			schema.Mixins(mixin.ID{}, mixin.Time{}, owned{}),
			schema.Fields(field.Text("body")),
		),
	))
	require.NoError(t, reg.Check())

	note, err := reg.Lookup("Note")
	require.NoError(t, err)
	assert.Equal(t, "id", note.Key().Name)
	assert.True(t, note.Key().Type.Is(field.TypeUUID))
	for _, name := range []string{"created_at", "updated_at", "owner", "body"} {
		assert.True(t, note.HasField(name), name)
	}
	owner, _ := note.Field("owner")
	assert.True(t, owner.IsRelation())
}

func TestByName(t *testing.T) {
	t.Parallel()
	for _, name := range mixin.Names() {
		m, err := mixin.ByName(name)
		require.NoError(t, err)
		assert.NotEmpty(t, m.Fields(), name)
	}
	_, err := mixin.ByName("audit")
	require.Error(t, err)
	assert.Equal(t, []string{"create_time", "id", "soft_delete", "tenant_id", "time", "update_time"}, mixin.Names())
}
