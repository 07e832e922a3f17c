package commands

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/syssam/dynafix"
	"github.com/syssam/dynafix/config"
)

const testSchema = `
models:
  - name: Author
    fields:
      - {name: name, type: string, unique: true}
      - {name: age, type: int, optional: true}
  - name: Book
    fields:
      - {name: title, type: string}
      - {name: pages, type: int}
    edges:
      - {name: author, kind: to, target: Author}
      - {name: tags, kind: many, target: Tag}
  - name: Tag
    fields:
      - {name: label, type: string, unique: true}
`

const cyclicSchema = testSchema + `
  - name: Node
    edges:
      - {name: next, kind: to, target: Node}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(func(key string) string { return env[key] })
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCheckCmd(t *testing.T) {
	t.Parallel()
	schema := writeFile(t, "schema.yaml", testSchema)

	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "memory",
			args:     []string{"check", "-s", schema},
			contains: []string{"Author", "Book", "Tag", "3 models, 0 failed"},
		},
		{
			name:     "filter",
			args:     []string{"check", "-s", schema, "--model", "A*"},
			contains: []string{"Author", "1 models, 0 failed"},
		},
		{
			name:     "sqlite",
			args:     []string{"check", "-s", schema, "--database", "sqlite", "-w", "1"},
			contains: []string{"3 models, 0 failed"},
		},
		{
			name:     "json",
			args:     []string{"check", "-s", schema, "-o", "json"},
			contains: []string{`"model": "Author"`, `"ok": true`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, _, err := execute(t, nil, tt.args...)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestCheckCmdFailure(t *testing.T) {
	t.Parallel()
	schema := writeFile(t, "schema.yaml", cyclicSchema)
	out, _, err := execute(t, nil, "check", "-s", schema, "-o", "csv")
	require.ErrorIs(t, err, ErrCheckFailed)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	failed := 0
	for _, r := range records[1:] {
		if r[1] == "false" {
			failed++
			assert.Equal(t, "Node", r[0])
		}
	}
	assert.Equal(t, 1, failed)
}

func TestCheckCmdErrors(t *testing.T) {
	t.Parallel()
	schema := writeFile(t, "schema.yaml", testSchema)
	tests := map[string][]string{
		"no schema":      {"check"},
		"missing schema": {"check", "-s", filepath.Join(t.TempDir(), "missing.yaml")},
		"database":       {"check", "-s", schema, "--database", "oracle"},
		"dsn":            {"check", "-s", schema, "--database", "postgres"},
		"output":         {"check", "-s", schema, "-o", "xml"},
		"watch":          {"check", "-s", schema, "--watch"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, _, err := execute(t, nil, args...)
			require.Error(t, err)
		})
	}
}

func TestSettings(t *testing.T) {
	t.Parallel()
	schema := writeFile(t, "schema.yaml", testSchema)

	_, _, err := execute(t, map[string]string{"DYNAFIX_GENERATOR": "fancy"}, "check", "-s", schema)
	require.ErrorIs(t, err, config.ErrImproperlyConfigured)

	settings := writeFile(t, "dynafix.yaml", "fill_nullable_fields: true\n")
	out, _, err := execute(t, nil, "build", "Author", "-s", schema, "-c", settings, "-o", "json")
	require.NoError(t, err)
	var authors []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &authors))
	require.Len(t, authors, 1)
	assert.NotNil(t, authors[0]["age"])

	out, _, err = execute(t, map[string]string{"DYNAFIX_FILL_NULLABLE_FIELDS": "false"},
		"build", "Author", "-s", schema, "-c", settings, "-o", "json")
	require.NoError(t, err)
	var plain []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &plain))
	require.Len(t, plain, 1)
	assert.Nil(t, plain[0]["age"], "environment variables take priority")
}

func TestDebugModeLogsStatements(t *testing.T) {
	t.Parallel()
	schema := writeFile(t, "schema.yaml", testSchema)
	args := []string{"check", "-s", schema, "--database", "sqlite", "-m", "Tag"}

	_, stderr, err := execute(t, map[string]string{"DYNAFIX_DEBUG_MODE": "true"}, args...)
	require.NoError(t, err)
	assert.Contains(t, stderr, "dynafix: sql begin")
	assert.Contains(t, stderr, `INSERT INTO \"tags\"`)
	assert.Contains(t, stderr, "dynafix: sql rollback")

	_, stderr, err = execute(t, nil, args...)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "INSERT INTO")
}

func TestBuildCmd(t *testing.T) {
	t.Parallel()
	schema := writeFile(t, "schema.yaml", testSchema)

	out, _, err := execute(t, nil, "build", "Book", "-s", schema, "-n", "2",
		"--set", "title=Dune", "--set", "author__age=30", "--set", "pages=412", "-o", "json")
	require.NoError(t, err)
	var books []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &books))
	require.Len(t, books, 2)
	for _, b := range books {
		assert.Equal(t, "Dune", b["title"])
		assert.EqualValues(t, 412, b["pages"])
		assert.NotNil(t, b["author"])
		assert.Empty(t, b["tags"])
	}

	out, _, err = execute(t, nil, "build", "Tag", "-s", schema, "--database", "sqlite", "--persist", "-o", "yaml")
	require.NoError(t, err)
	var tags []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &tags))
	require.Len(t, tags, 1)
	assert.EqualValues(t, 1, tags[0]["id"])

	out, _, err = execute(t, nil, "build", "Tag", "-s", schema, "--set", "label=fixed")
	require.NoError(t, err)
	assert.Contains(t, out, "Tag(id=")
	assert.Contains(t, out, `label: "fixed"`)
}

func TestBuildCmdLessons(t *testing.T) {
	t.Parallel()
	schema := writeFile(t, "schema.yaml", testSchema)
	lessons := writeFile(t, "lessons.yaml", "Book:\n  long:\n    pages: 900\n")

	out, _, err := execute(t, nil, "build", "Book", "-s", schema, "--lessons", lessons, "--lesson", "long", "-o", "json")
	require.NoError(t, err)
	var books []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &books))
	assert.EqualValues(t, 900, books[0]["pages"])

	_, _, err = execute(t, nil, "build", "Book", "-s", schema, "--lesson", "long")
	require.Error(t, err)
	assert.True(t, dynafix.IsNoLesson(err))
}

func TestBuildCmdErrors(t *testing.T) {
	t.Parallel()
	schema := writeFile(t, "schema.yaml", testSchema)
	tests := map[string][]string{
		"model":  {"build", "Shelf", "-s", schema},
		"args":   {"build", "-s", schema},
		"set":    {"build", "Book", "-s", schema, "--set", "title"},
		"yaml":   {"build", "Book", "-s", schema, "--set", "title=[a"},
		"output": {"build", "Book", "-s", schema, "-o", "xml"},
		"field":  {"build", "Book", "-s", schema, "--set", "color=red", "-c", writeFile(t, "strict.yaml", "validate_args: true\n")},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, _, err := execute(t, nil, args...)
			require.Error(t, err)
		})
	}
}

func TestMigrateCmd(t *testing.T) {
	t.Parallel()
	schema := writeFile(t, "schema.yaml", testSchema)

	out, _, err := execute(t, nil, "migrate", "-s", schema, "--database", "sqlite", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS")
	assert.Contains(t, out, "authors")
	assert.Contains(t, out, "books_tags")

	db := filepath.Join(t.TempDir(), "test.db")
	_, _, err = execute(t, nil, "migrate", "-s", schema, "--database", "sqlite", "--dsn", db)
	require.NoError(t, err)
	out, _, err = execute(t, nil, "check", "-s", schema, "--database", "sqlite", "--dsn", db, "-w", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "0 failed")

	_, _, err = execute(t, nil, "migrate", "-s", schema)
	require.Error(t, err)
}

func TestParseValues(t *testing.T) {
	t.Parallel()
	values, err := parseValues([]string{"a=1", "b=true", "c=text", "d=", "e=a=b", "f=1.5"})
	require.NoError(t, err)
	assert.Equal(t, dynafix.Values{"a": 1, "b": true, "c": "text", "d": nil, "e": "a=b", "f": 1.5}, values)
}
