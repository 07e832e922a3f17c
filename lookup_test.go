package dynafix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	t.Parallel()
	c := C("title")
	got, err := expand("Book", Values{
		"title":                   "x",
		"isbn":                    c,
		"author__name":            "ann",
		"author__address__city":   "paris",
		"author__address__street": "main",
		"editor__":                1,
	})
	require.NoError(t, err)
	assert.Equal(t, "x", got["title"])
	assert.Same(t, c, got["isbn"])
	assert.Equal(t, 1, got["editor__"], "keys without a nested name are kept")

	author, ok := got["author"].(*Nested)
	require.True(t, ok)
	assert.Equal(t, "ann", author.values["name"])
	address, ok := author.values["address"].(*Nested)
	require.True(t, ok)
	assert.Equal(t, Values{"city": "paris", "street": "main"}, address.values)
}

func TestExpandConflict(t *testing.T) {
	t.Parallel()
	_, err := expand("Book", Values{"author": F(nil), "author__name": "ann"})
	require.Error(t, err)
	assert.True(t, IsInvalidConfiguration(err))

	_, err = expand("Book", Values{"author__address": 1, "author__address__city": "x"})
	assert.True(t, IsInvalidConfiguration(err), "conflicts are found at any depth")
}

func TestExpandEmpty(t *testing.T) {
	t.Parallel()
	got, err := expand("Book", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
