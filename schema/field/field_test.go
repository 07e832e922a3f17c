package field_test

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dynafix/schema/field"
)

func TestInt(t *testing.T) {
	fd := field.Int("age").
		Unique().
		Comment("comment").
		Descriptor()
	assert.Equal(t, "age", fd.Name)
	assert.Equal(t, "age", fd.StorageKey)
	assert.Equal(t, field.TypeInt, fd.Type)
	assert.True(t, fd.Unique)
	assert.Equal(t, "comment", fd.Comment)

	fd = field.Int("age").Default(10).Optional().StorageKey("user_age").Descriptor()
	assert.Equal(t, 10, fd.Default)
	assert.True(t, fd.Nullable)
	assert.Equal(t, "user_age", fd.StorageKey)

	assert.Equal(t, field.TypeInt8, field.Int8("age").Descriptor().Type)
	assert.Equal(t, field.TypeInt16, field.Int16("age").Descriptor().Type)
	assert.Equal(t, field.TypeInt32, field.Int32("age").Descriptor().Type)
	assert.Equal(t, field.TypeInt64, field.Int64("age").Descriptor().Type)
	assert.Equal(t, field.TypeUint, field.Uint("age").Descriptor().Type)
	assert.Equal(t, field.TypeUint8, field.Uint8("age").Descriptor().Type)
	assert.Equal(t, field.TypeUint16, field.Uint16("age").Descriptor().Type)
	assert.Equal(t, field.TypeUint32, field.Uint32("age").Descriptor().Type)
	assert.Equal(t, field.TypeUint64, field.Uint64("age").Descriptor().Type)
}

func TestString(t *testing.T) {
	re := regexp.MustCompile("^[a-z]+$")
	fd := field.String("name").MaxLen(3).NotEmpty().Match(re).Descriptor()
	assert.Equal(t, 3, fd.MaxLen)
	require.Len(t, fd.Validators, 3)
	assert.NoError(t, fd.Validators[0]("abc"))
	assert.Error(t, fd.Validators[0]("abcd"))
	assert.Error(t, fd.Validators[1](""))
	assert.Error(t, fd.Validators[2]("A1"))

	for _, tt := range []struct {
		b   *field.Builder
		typ *field.Type
	}{
		{field.Text("t"), field.TypeText},
		{field.Slug("t"), field.TypeSlug},
		{field.Email("t"), field.TypeEmail},
		{field.URL("t"), field.TypeURL},
		{field.IP("t"), field.TypeIP},
		{field.File("t"), field.TypeFile},
		{field.FilePath("t"), field.TypeFilePath},
	} {
		fd := tt.b.Descriptor()
		assert.Equal(t, tt.typ, fd.Type)
		assert.True(t, fd.Type.Is(field.TypeString))
	}
}

func TestEnum(t *testing.T) {
	fd := field.Enum("status").Values("a", "b").Descriptor()
	assert.NoError(t, fd.Err)
	assert.Equal(t, []any{"a", "b"}, fd.Choices)

	fd = field.Enum("status").Descriptor()
	assert.Error(t, fd.Err)
}

func TestDecimal(t *testing.T) {
	fd := field.Decimal("price", 10, 2).Descriptor()
	assert.NoError(t, fd.Err)
	assert.Equal(t, 10, fd.Precision)
	assert.Equal(t, 2, fd.Scale)
	assert.True(t, fd.Type.Numeric())

	fd = field.Decimal("price", 2, 3).Descriptor()
	assert.Error(t, fd.Err)
}

func TestTime(t *testing.T) {
	fd := field.Time("created").Default(time.Now).AutoNowAdd().Descriptor()
	assert.True(t, fd.AutoNowAdd)
	assert.False(t, fd.AutoNow)
	assert.NotNil(t, fd.Default)
	assert.True(t, field.Date("day").AutoNow().Descriptor().AutoNow)
	assert.True(t, field.TypeDate.Is(field.TypeTime))
}

func TestValidate(t *testing.T) {
	errOdd := errors.New("odd")
	fd := field.Int("even").Validate(func(v any) error {
		if v.(int)%2 != 0 {
			return errOdd
		}
		return nil
	}).Descriptor()
	require.Len(t, fd.Validators, 1)
	assert.ErrorIs(t, fd.Validators[0](3), errOdd)
	assert.NoError(t, fd.Validators[0](4))
}

func TestNew(t *testing.T) {
	fd := field.New("x", nil).Descriptor()
	assert.Error(t, fd.Err)
	assert.Equal(t, "invalid", (*field.Type)(nil).String())
	assert.True(t, field.TypeOneToOne.Relation())
	assert.False(t, field.TypeJSON.Relation())
}
