package dynafix_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/dynafix"
	"github.com/syssam/dynafix/config"
	"github.com/syssam/dynafix/dialect/sql"
	"github.com/syssam/dynafix/gen"
	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/edge"
	"github.com/syssam/dynafix/schema/field"
	"github.com/syssam/dynafix/schema/mixin"
	"github.com/syssam/dynafix/store/memstore"
	"github.com/syssam/dynafix/store/sqlstore"
)

var (
	now   = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	point = field.NewType("point", nil)
)

func registry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(
		schema.NewModel("Tag", schema.Fields(field.String("label").Unique())),
		schema.NewModel("Author", schema.Fields(
			field.String("name").Unique(),
			field.String("nickname").Optional(),
			field.Text("bio").Optional(),
			field.Email("email").Optional(),
			field.Time("created").AutoNowAdd(),
		)),
		schema.NewModel("Book",
			schema.Fields(
				field.String("title"),
				field.String("isbn").Unique(),
				field.Int("pages").Optional(),
			),
			schema.Edges(
				edge.To("author", "Author"),
				edge.To("editor", "Author").Optional(),
				edge.Many("tags", "Tag"),
			),
		),
		schema.NewModel("Person",
			schema.Fields(field.String("name")),
			schema.Edges(edge.To("parent", "Person").Optional()),
		),
		schema.NewModel("Node", schema.Edges(edge.To("next", "Node"))),
		schema.NewModel("ModelWithNumbers", schema.Fields(
			field.Int("integer").Unique(),
			field.Int64("big").Unique(),
			field.Float("float").Unique(),
			field.Decimal("decimal", 10, 2).Unique(),
		)),
		schema.NewModel("ModelForIgnoreList", schema.Fields(
			field.String("required"),
			field.String("nullable").Optional(),
		)),
		schema.NewModel("CopyModel", schema.Fields(
			field.Int("int_a"),
			field.Int("int_b"),
			field.Int("int_c").Optional(),
		)),
		schema.NewModel("Status", schema.Fields(
			field.String("state").Choices("draft", "published"),
			field.Int("level").Default(5),
		)),
		schema.NewModel("Shape", schema.Fields(field.New("location", point))),
		schema.NewModel("Sketch", schema.Fields(field.New("location", point).Optional())),
		schema.NewModel("Base", schema.Abstract(), schema.Fields(field.String("name"))),
		schema.NewModel("Child", schema.Extends("Base"), schema.Fields(field.Int("age"))),
		schema.NewModel("Group",
			schema.Fields(field.String("title")),
			schema.Edges(edge.Many("members", "Person").Through("Membership", "group", "person")),
		),
		schema.NewModel("Membership",
			schema.Fields(field.String("role")),
			schema.Edges(edge.To("group", "Group"), edge.To("person", "Person")),
		),
		schema.NewModel("Document", schema.Fields(field.File("attachment"))),
	))
	require.NoError(t, reg.Check())
	return reg
}

func newFixture(t *testing.T, opts ...dynafix.FixtureOption) (*dynafix.Fixture, *memstore.Store) {
	t.Helper()
	reg := registry(t)
	st := memstore.New(reg, memstore.WithClock(func() time.Time { return now }))
	opts = append([]dynafix.FixtureOption{dynafix.WithStore(st), dynafix.WithOutput(io.Discard)}, opts...)
	return dynafix.NewFixture(reg, opts...), st
}

func TestSequentialValuesIncrease(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, st := newFixture(t)
	first, err := fx.Get(ctx, "ModelWithNumbers", nil)
	require.NoError(t, err)
	second, err := fx.Get(ctx, "ModelWithNumbers", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count("ModelWithNumbers"))

	assert.Greater(t, second.Get("integer").(int), first.Get("integer").(int))
	assert.Greater(t, second.Get("big").(int64), first.Get("big").(int64))
	assert.Greater(t, second.Get("float").(float64), first.Get("float").(float64))
	assert.True(t, second.Get("decimal").(decimal.Decimal).GreaterThan(first.Get("decimal").(decimal.Decimal)))
}

func TestFillNullable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)

	a, err := fx.New(ctx, "Author", nil)
	require.NoError(t, err)
	assert.Nil(t, a.Get("nickname"))
	assert.Nil(t, a.Get("bio"))
	assert.Nil(t, a.Get("email"))
	assert.NotNil(t, a.Get("name"))

	a, err = fx.New(ctx, "Author", nil, dynafix.FillNullable(true))
	require.NoError(t, err)
	assert.NotNil(t, a.Get("nickname"))
	assert.NotNil(t, a.Get("bio"))
	assert.NotNil(t, a.Get("email"))
}

func TestSelfReferenceDepth(t *testing.T) {
	t.Parallel()
	for d := 0; d <= 3; d++ {
		t.Run(fmt.Sprintf("depth %d", d), func(t *testing.T) {
			t.Parallel()
			fx, _ := newFixture(t)
			p, err := fx.Get(context.Background(), "Person", nil, dynafix.MinDepth(d))
			require.NoError(t, err)
			depth := 0
			for cur := p; cur.Get("parent") != nil; cur = cur.Get("parent").(*schema.Entity) {
				depth++
				assert.True(t, cur.Get("parent").(*schema.Entity).Saved())
			}
			assert.Equal(t, d, depth)
		})
	}
}

func TestRequiredCycleIsBounded(t *testing.T) {
	t.Parallel()
	fx, st := newFixture(t)
	_, err := fx.Get(context.Background(), "Node", nil)
	require.Error(t, err)
	assert.True(t, dynafix.IsInvalidConfiguration(err))
	assert.Zero(t, st.Count("Node"))
}

func TestCopier(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		values dynafix.Values
	}{
		{name: "copy later field", values: dynafix.Values{"int_a": dynafix.C("int_b"), "int_b": 3}},
		{name: "copy earlier field", values: dynafix.Values{"int_b": dynafix.C("int_a"), "int_a": 3}},
		{name: "chain", values: dynafix.Values{"int_a": dynafix.C("int_b"), "int_b": dynafix.C("int_c"), "int_c": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fx, _ := newFixture(t)
			e, err := fx.Get(context.Background(), "CopyModel", tt.values)
			require.NoError(t, err)
			assert.Equal(t, 3, e.Get("int_a"))
			assert.Equal(t, 3, e.Get("int_b"))
		})
	}
}

func TestCopierErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)

	_, err := fx.New(ctx, "CopyModel", dynafix.Values{"int_a": dynafix.C("int_b"), "int_b": dynafix.C("int_a")})
	require.Error(t, err)
	assert.True(t, dynafix.IsInvalidConfiguration(err))
	assert.False(t, dynafix.IsInvalidCopierExpression(err))

	_, err = fx.New(ctx, "CopyModel", dynafix.Values{"int_a": dynafix.C("missing")})
	assert.True(t, dynafix.IsInvalidCopierExpression(err))

	_, err = fx.New(ctx, "CopyModel", dynafix.Values{"int_a": dynafix.C("int_b.")})
	assert.True(t, dynafix.IsInvalidConfiguration(err))
	assert.False(t, dynafix.IsInvalidCopierExpression(err))

	_, err = fx.New(ctx, "Book", dynafix.Values{"title": dynafix.C("editor.name")})
	assert.True(t, dynafix.IsInvalidCopierExpression(err), "editor is nil")

	_, err = fx.New(ctx, "Book", dynafix.Values{"title": dynafix.C("tags")})
	require.Error(t, err)
	assert.True(t, dynafix.IsInvalidCopierExpression(err), "many-to-many fields are not copied")
	assert.NotContains(t, err.Error(), "cyclic")
}

func TestCopierFollowsRelations(t *testing.T) {
	t.Parallel()
	fx, _ := newFixture(t)
	book, err := fx.Get(context.Background(), "Book", dynafix.Values{
		"title":        dynafix.C("author.name"),
		"author__name": "ann",
	})
	require.NoError(t, err)
	assert.Equal(t, "ann", book.Get("title"))
}

func TestCopierAndIgnoredFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)

	a, err := fx.New(ctx, "Author", dynafix.Values{"bio": dynafix.C("nickname")},
		dynafix.Ignore("nickname"), dynafix.FillNullable(true))
	require.NoError(t, err, "an ignored field can be copied")
	assert.Nil(t, a.Get("bio"))

	a, err = fx.New(ctx, "Author", dynafix.Values{"bio": dynafix.C("name")}, dynafix.Ignore("bio"))
	require.NoError(t, err)
	assert.Equal(t, a.Get("name"), a.Get("bio"), "explicit values win over ignore patterns")
}

func TestManyToMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, st := newFixture(t)

	book, err := fx.Get(ctx, "Book", dynafix.Values{"tags": 3})
	require.NoError(t, err)
	f, _ := book.Model().Field("tags")
	assert.Len(t, book.Related("tags"), 3)
	assert.Len(t, st.Links(book, f), 3)

	book, err = fx.Get(ctx, "Book", dynafix.Values{"tags": []any{
		dynafix.F(dynafix.Values{"label": "x"}),
		dynafix.F(dynafix.Values{"label": "y"}),
	}})
	require.NoError(t, err)
	related := book.Related("tags")
	require.Len(t, related, 2)
	assert.Equal(t, "x", related[0].Get("label"))
	assert.Equal(t, "y", related[1].Get("label"))
	assert.Equal(t, []any{related[0].ID(), related[1].ID()}, st.Links(book, f))

	book, err = fx.Get(ctx, "Book", dynafix.Values{"tags": related})
	require.NoError(t, err)
	assert.Equal(t, related, book.Related("tags"))

	unsaved, err := fx.New(ctx, "Book", dynafix.Values{"tags": 2})
	require.NoError(t, err)
	assert.Empty(t, unsaved.Related("tags"))
}

func TestManyToManyInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		v    any
	}{
		{name: "string", v: "three"},
		{name: "negative", v: -1},
		{name: "item", v: []any{1}},
		{name: "nested", v: dynafix.F(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fx, _ := newFixture(t)
			_, err := fx.Get(context.Background(), "Book", dynafix.Values{"tags": tt.v})
			require.Error(t, err)
			assert.True(t, dynafix.IsInvalidManyToMany(err))
		})
	}
}

func TestManyToManyThrough(t *testing.T) {
	t.Parallel()
	fx, st := newFixture(t)
	g, err := fx.Get(context.Background(), "Group", dynafix.Values{"members": 2})
	require.NoError(t, err)
	assert.Len(t, g.Related("members"), 2)
	assert.Equal(t, 2, st.Count("Membership"))
	rows, err := st.Rows("Membership")
	require.NoError(t, err)
	for _, row := range rows {
		assert.EqualValues(t, g.ID(), row["group_id"])
	}
}

func TestTeach(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)

	err := fx.Teach("Tag", dynafix.Values{"label": "static"})
	assert.True(t, dynafix.IsInvalidConfiguration(err))
	err = fx.Teach("Tag", dynafix.Values{"label": dynafix.M("tag-###")})
	assert.True(t, dynafix.IsInvalidConfiguration(err), "masks may repeat values")

	n := 0
	require.NoError(t, fx.Teach("Tag", dynafix.Values{"label": dynafix.Func(func(*schema.Field) any {
		n++
		return fmt.Sprintf("tag-%d", n)
	})}))
	a, err := fx.Get(ctx, "Tag", nil)
	require.NoError(t, err)
	b, err := fx.Get(ctx, "Tag", nil)
	require.NoError(t, err)
	assert.Equal(t, "tag-1", a.Get("label"))
	assert.Equal(t, "tag-2", b.Get("label"))

	err = fx.Teach("Missing", nil)
	assert.True(t, dynafix.IsInvalidModel(err))
}

func TestLessons(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)
	require.NoError(t, fx.Teach("Book", dynafix.Values{"title": "lesson"}))
	require.NoError(t, fx.Teach("Book", dynafix.Values{"pages": 9, "author__nickname": "nick"}, dynafix.Lesson("short")))

	b, err := fx.Get(ctx, "Book", nil)
	require.NoError(t, err)
	assert.Equal(t, "lesson", b.Get("title"))
	assert.Nil(t, b.Get("pages"))

	b, err = fx.Get(ctx, "Book", nil, dynafix.Lesson("short"))
	require.NoError(t, err)
	assert.Equal(t, "lesson", b.Get("title"))
	assert.Equal(t, 9, b.Get("pages"))
	assert.Equal(t, "nick", b.Get("author").(*schema.Entity).Get("nickname"))

	b, err = fx.Get(ctx, "Book", dynafix.Values{"pages": 10}, dynafix.Lesson("short"))
	require.NoError(t, err)
	assert.Equal(t, 10, b.Get("pages"))

	b, err = fx.Get(ctx, "Book", nil, dynafix.UseLibrary(false))
	require.NoError(t, err)
	assert.NotEqual(t, "lesson", b.Get("title"))

	_, err = fx.Get(ctx, "Book", nil, dynafix.Lesson("missing"))
	assert.True(t, dynafix.IsNoLesson(err))
	assert.True(t, dynafix.IsInvalidConfiguration(err))
}

func TestShelve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)
	_, err := fx.Get(ctx, "Author", dynafix.Values{"nickname": "shelved"}, dynafix.Shelve("nick"))
	require.NoError(t, err)
	lesson, err := fx.Library().Get("Author", "nick")
	require.NoError(t, err)
	assert.Equal(t, dynafix.Values{"nickname": "shelved"}, lesson)

	_, err = fx.Get(ctx, "Author", dynafix.Values{"name": "ann"}, dynafix.Shelve(""))
	assert.True(t, dynafix.IsInvalidConfiguration(err))
}

func TestIgnore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var out bytes.Buffer
	fx, st := newFixture(t, dynafix.WithOutput(&out))

	e, err := fx.New(ctx, "ModelForIgnoreList", nil, dynafix.Ignore("required"))
	require.NoError(t, err)
	assert.Nil(t, e.Get("required"))

	_, err = fx.Get(ctx, "ModelForIgnoreList", nil, dynafix.Ignore("required"))
	require.Error(t, err)
	assert.True(t, dynafix.IsBadData(err))
	assert.Zero(t, st.Count("ModelForIgnoreList"))
	assert.Contains(t, out.String(), "ModelForIgnoreList(")
	assert.Contains(t, out.String(), "required: <nil>")

	_, err = fx.Get(ctx, "ModelForIgnoreList", nil, dynafix.Ignore("required"), dynafix.Validate(true))
	assert.True(t, dynafix.IsBadData(err))

	a, err := fx.New(ctx, "Author", nil, dynafix.Ignore("nick*", "b?o"), dynafix.FillNullable(true))
	require.NoError(t, err)
	assert.Nil(t, a.Get("nickname"))
	assert.Nil(t, a.Get("bio"))
	assert.NotNil(t, a.Get("email"))
}

func TestStrict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)
	_, err := fx.New(ctx, "Tag", dynafix.Values{"unknown": 1})
	require.NoError(t, err)
	_, err = fx.New(ctx, "Tag", dynafix.Values{"unknown": 1}, dynafix.Strict(true))
	assert.True(t, dynafix.IsInvalidConfiguration(err))
	_, err = fx.New(ctx, "Book", dynafix.Values{"tags": 1}, dynafix.Strict(true))
	require.NoError(t, err, "many-to-many fields are known")
}

func TestLookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)
	b, err := fx.Get(ctx, "Book", dynafix.Values{"author__name": "ann", "author__nickname": "a"})
	require.NoError(t, err)
	author := b.Get("author").(*schema.Entity)
	assert.Equal(t, "ann", author.Get("name"))
	assert.Equal(t, "a", author.Get("nickname"))

	_, err = fx.Get(ctx, "Book", dynafix.Values{"author": dynafix.F(nil), "author__name": "bob"})
	assert.True(t, dynafix.IsInvalidConfiguration(err))
}

func TestValueSources(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)
	errBoom := errors.New("boom")

	b, err := fx.New(ctx, "Book", dynafix.Values{
		"title": dynafix.M("Book ###"),
		"isbn":  func(f *schema.Field) any { return "isbn-" + f.Name },
		"pages": func() any { return 7 },
	})
	require.NoError(t, err)
	assert.Regexp(t, `^Book \d{3}$`, b.Get("title"))
	assert.Equal(t, "isbn-isbn", b.Get("isbn"))
	assert.Equal(t, 7, b.Get("pages"))

	b, err = fx.New(ctx, "Book", dynafix.Values{"pages": dynafix.Use(gen.GlobalSequential())})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Get("pages"))

	_, err = fx.New(ctx, "Book", dynafix.Values{"title": dynafix.Use(gen.Func(func(*schema.Field) (any, error) {
		return nil, errBoom
	}))})
	assert.True(t, dynafix.IsInvalidConfiguration(err))
	assert.ErrorIs(t, err, errBoom)

	_, err = fx.New(ctx, "Book", dynafix.Values{"title": dynafix.F(nil)})
	assert.True(t, dynafix.IsInvalidConfiguration(err))

	_, err = fx.New(ctx, "Book", dynafix.Values{"author": dynafix.F(dynafix.Values{"name": "x"}, dynafix.Ignore("name"))})
	require.NoError(t, err, "explicit values win over the options of the nested fixture")

	b, err = fx.New(ctx, "Book", dynafix.Values{"author": dynafix.F(nil, dynafix.FillNullable(true))})
	require.NoError(t, err)
	assert.NotNil(t, b.Get("author").(*schema.Entity).Get("nickname"))
	assert.Nil(t, b.Get("pages"), "nested options do not apply to the parent")
}

func TestNestedErrorsAreWrapped(t *testing.T) {
	t.Parallel()
	fx, _ := newFixture(t)
	_, err := fx.Get(context.Background(), "Book", dynafix.Values{
		"author": dynafix.F(dynafix.Values{"nickname": dynafix.C("nope")}),
	})
	require.Error(t, err)
	assert.True(t, dynafix.IsInvalidConfiguration(err))
	assert.True(t, dynafix.IsInvalidCopierExpression(err))
}

func TestDefaultsAndChoices(t *testing.T) {
	t.Parallel()
	fx, _ := newFixture(t)
	e, err := fx.New(context.Background(), "Status", nil)
	require.NoError(t, err)
	assert.Equal(t, "draft", e.Get("state"))
	assert.Equal(t, 5, e.Get("level"))
}

func TestUnsupportedField(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)
	_, err := fx.New(ctx, "Shape", nil)
	require.Error(t, err)
	assert.True(t, dynafix.IsUnsupportedField(err))
	assert.ErrorIs(t, err, gen.ErrUnsupported)

	e, err := fx.New(ctx, "Sketch", nil, dynafix.FillNullable(true))
	require.NoError(t, err)
	assert.Nil(t, e.Get("location"))

	e, err = fx.New(ctx, "Shape", dynafix.Values{"location": "1,2"})
	require.NoError(t, err)
	assert.Equal(t, "1,2", e.Get("location"))

	e, err = fx.New(ctx, "Sketch", dynafix.Values{"location": dynafix.Use(gen.Sequential())})
	require.NoError(t, err)
	assert.Nil(t, e.Get("location"))

	_, err = fx.New(ctx, "Shape", dynafix.Values{"location": dynafix.Use(gen.Sequential())})
	require.Error(t, err)
	assert.True(t, dynafix.IsUnsupportedField(err))
	assert.False(t, dynafix.IsInvalidConfiguration(err))
}

func TestAbstractAndUnknownModels(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, st := newFixture(t)

	e, err := fx.New(ctx, "Base", nil)
	require.NoError(t, err)
	assert.NotNil(t, e.Get("name"))

	_, err = fx.Get(ctx, "Base", nil)
	assert.True(t, dynafix.IsInvalidModel(err))

	c, err := fx.Get(ctx, "Child", nil)
	require.NoError(t, err)
	assert.True(t, c.Saved())
	assert.Equal(t, 1, st.Count("Child"))

	_, err = fx.New(ctx, "Missing", nil)
	assert.True(t, dynafix.IsInvalidModel(err))
}

func TestNewPersistsDependencies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, st := newFixture(t)

	b, err := fx.New(ctx, "Book", nil)
	require.NoError(t, err)
	assert.False(t, b.Saved())
	assert.True(t, b.Get("author").(*schema.Entity).Saved())
	assert.Zero(t, st.Count("Book"))

	b, err = fx.New(ctx, "Book", nil, dynafix.PersistDependencies(false))
	require.NoError(t, err)
	assert.False(t, b.Get("author").(*schema.Entity).Saved())
	assert.Equal(t, 1, st.Count("Author"))

	author := b.Get("author").(*schema.Entity)
	_, err = fx.Get(ctx, "Book", dynafix.Values{"author": author})
	require.Error(t, err)
	assert.True(t, dynafix.IsBadData(err), "unsaved related entity")
}

func TestTimestamps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)
	past := now.Add(-48 * time.Hour)

	a, err := fx.Get(ctx, "Author", dynafix.Values{"created": past})
	require.NoError(t, err)
	assert.Equal(t, past, a.Get("created"))

	b, err := fx.Get(ctx, "Author", nil)
	require.NoError(t, err)
	assert.Equal(t, now, b.Get("created"), "kept timestamps only apply to one save")
}

func TestHooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)
	var saved []bool
	require.NoError(t, fx.PreSave("Author", func(e *schema.Entity) error {
		e.Set("nickname", "hooked")
		saved = append(saved, e.Saved())
		return nil
	}))
	require.NoError(t, fx.PostSave("Author", func(e *schema.Entity) error {
		saved = append(saved, e.Saved())
		return nil
	}))
	a, err := fx.Get(ctx, "Author", nil)
	require.NoError(t, err)
	assert.Equal(t, "hooked", a.Get("nickname"))
	assert.Equal(t, []bool{false, true}, saved)

	errBoom := errors.New("boom")
	require.NoError(t, fx.PreSave("Tag", func(*schema.Entity) error { return errBoom }))
	_, err = fx.Get(ctx, "Tag", nil)
	assert.True(t, dynafix.IsBadData(err))
	assert.True(t, dynafix.IsInvalidReceiver(err))
	assert.ErrorIs(t, err, errBoom)

	require.NoError(t, fx.PostSave("Person", func(*schema.Entity) error { panic("oops") }))
	_, err = fx.Get(ctx, "Person", nil)
	assert.True(t, dynafix.IsInvalidReceiver(err))

	assert.True(t, dynafix.IsInvalidReceiver(fx.PreSave("Missing", func(*schema.Entity) error { return nil })))
	assert.True(t, dynafix.IsInvalidReceiver(fx.PostSave("Tag", nil)))

	fx.Hooks().Clear()
	_, err = fx.Get(ctx, "Tag", nil)
	require.NoError(t, err)
}

func TestFileFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, _ := newFixture(t)

	e, err := fx.New(ctx, "Document", nil)
	require.NoError(t, err)
	assert.Equal(t, "file1.txt", e.Get("attachment"))

	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	e, err = fx.Get(ctx, "Document", dynafix.Values{"attachment": f})
	require.NoError(t, err)
	file, ok := e.Get("attachment").(*schema.File)
	require.True(t, ok)
	assert.Equal(t, path, file.Name)
	_, err = file.Reader.Read(make([]byte, 1))
	assert.ErrorIs(t, err, os.ErrClosed, "the store closes the handle of the entity")
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "content", string(content), "the given file stays open")

	e, err = fx.New(ctx, "Document", dynafix.Values{"attachment": f})
	require.NoError(t, err)
	file = e.Get("attachment").(*schema.File)
	require.NoError(t, file.Close())
}

func TestBind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, st := newFixture(t)
	tx, err := fx.Store().Begin(ctx)
	require.NoError(t, err)
	_, err = fx.Bind(tx).Get(ctx, "Book", dynafix.Values{"tags": 2})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Zero(t, st.Count("Book"))
	assert.Zero(t, st.Count("Tag"))
}

func TestNewNGetN(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx, st := newFixture(t)
	tags, err := fx.GetN(ctx, 3, "Tag", nil)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, []any{"1", "2", "3"}, []any{tags[0].Get("label"), tags[1].Get("label"), tags[2].Get("label")})
	assert.Equal(t, 3, st.Count("Tag"))

	authors, err := fx.NewN(ctx, 2, "Author", nil)
	require.NoError(t, err)
	assert.Len(t, authors, 2)
	assert.Zero(t, st.Count("Author"))

	_, err = fx.GetN(ctx, 2, "Tag", dynafix.Values{"label": "same"})
	assert.True(t, dynafix.IsBadData(err))
}

func TestSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := config.Default()
	s.Generator = "fancy"
	fx, _ := newFixture(t, dynafix.WithSettings(s))
	_, err := fx.Get(ctx, "Tag", nil)
	assert.ErrorIs(t, err, config.ErrImproperlyConfigured)

	s = config.Default()
	s.FillNullable = true
	s.Ignore = []string{"bio"}
	s.Overrides = map[string]any{"email": "fixed@example.com"}
	fx, _ = newFixture(t, dynafix.WithSettings(s), dynafix.Defaults(dynafix.Ignore("nickname")))
	a, err := fx.New(ctx, "Author", nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed@example.com", a.Get("email"))
	assert.Nil(t, a.Get("bio"))
	assert.Nil(t, a.Get("nickname"))

	a, err = fx.New(ctx, "Author", nil, dynafix.FillNullable(false))
	require.NoError(t, err)
	assert.Nil(t, a.Get("email"), "call options win over settings")
}

func TestLessonFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lessons.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
Book:
  default:
    title: {mask: "Book ###"}
    pages: 42
  long:
    pages: 900
    author__nickname: prolific
Author:
  default:
    nickname: {copy: name}
`), 0o600))
	s := config.Default()
	s.Lessons = []string{path}
	fx, _ := newFixture(t, dynafix.WithSettings(s))

	b, err := fx.Get(ctx, "Book", nil)
	require.NoError(t, err)
	assert.Regexp(t, `^Book \d{3}$`, b.Get("title"))
	assert.Equal(t, 42, b.Get("pages"))
	author := b.Get("author").(*schema.Entity)
	assert.Equal(t, author.Get("name"), author.Get("nickname"))

	b, err = fx.Get(ctx, "Book", nil, dynafix.Lesson("long"))
	require.NoError(t, err)
	assert.Equal(t, 900, b.Get("pages"))
	assert.Equal(t, "prolific", b.Get("author").(*schema.Entity).Get("nickname"))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("Tag:\n  default:\n    label: fixed\n"), 0o600))
	assert.True(t, dynafix.IsInvalidConfiguration(fx.LoadLessons(bad)))
	assert.Empty(t, fx.Library().Lessons("Tag"))
	for range 2 {
		_, err = fx.Get(ctx, "Tag", nil)
		require.NoError(t, err)
	}
	require.Error(t, fx.LoadLessons(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestDebugLogging(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	fx, _ := newFixture(t, dynafix.WithLogger(logger))
	_, err := fx.New(context.Background(), "Tag", nil)
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	_, err = fx.New(context.Background(), "Tag", nil, dynafix.Debug(true))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "field assigned")
	assert.Contains(t, buf.String(), "field=Tag.label")
}

func TestCountQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(schema.NewModel("Tag", schema.Fields(field.String("label").Unique()))))
	drv, stats, err := sql.OpenWithStats("sqlite", ":memory:")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })
	st := sqlstore.New(reg, drv)
	require.NoError(t, st.Migrate(ctx))

	var buf bytes.Buffer
	s := config.Default()
	s.CountQueries = true
	fx := dynafix.NewFixture(reg,
		dynafix.WithStore(st),
		dynafix.WithSettings(s),
		dynafix.WithQueryStats(stats),
		dynafix.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	tag, err := fx.Get(ctx, "Tag", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, tag.ID())
	assert.Contains(t, buf.String(), "statements=1")
}

func TestMixins(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(schema.NewModel("Note",
		schema.Mixins(mixin.ID{}, mixin.Time{}, mixin.SoftDelete{}),
		schema.Fields(field.Text("body")),
	)))
	require.NoError(t, reg.Check())
	st := memstore.New(reg, memstore.WithClock(func() time.Time { return now }))
	fx := dynafix.NewFixture(reg, dynafix.WithStore(st), dynafix.WithOutput(io.Discard))

	note, err := fx.Get(context.Background(), "Note", nil)
	require.NoError(t, err)
	assert.IsType(t, uuid.UUID{}, note.ID())
	assert.Equal(t, now, note.Get("created_at"))
	assert.Equal(t, now, note.Get("updated_at"))
	assert.Nil(t, note.Get("deleted_at"))
	assert.Equal(t, 1, st.Count("Note"))
}
