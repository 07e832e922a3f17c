// Package load reads model definitions from YAML or JSON files.
//
//	types:
//	  - name: money
//	    parent: decimal
//	models:
//	  - name: Author
//	    fields:
//	      - {name: name, type: string, max_len: 50}
//	  - name: Book
//	    mixins: [time]
//	    fields:
//	      - {name: isbn, type: string, unique: true}
//	      - {name: price, type: money, precision: 10, scale: 2, optional: true}
//	    edges:
//	      - {name: author, kind: to, target: Author}
//	      - {name: tags, kind: many, target: Tag}
package load

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/edge"
	"github.com/syssam/dynafix/schema/field"
	"github.com/syssam/dynafix/schema/mixin"
)

// Format of a schema file.
type Format string

// Supported formats.
const (
	YAML Format = "yaml"
	JSON Format = "json"
)

type (
	// File is the root of a schema file.
	File struct {
		Types  []Type  `yaml:"types" json:"types"`
		Models []Model `yaml:"models" json:"models"`
	}

	// Type declares a custom field type.
	Type struct {
		Name   string `yaml:"name" json:"name"`
		Parent string `yaml:"parent" json:"parent"`
	}

	// Model declares a model.
	Model struct {
		Name     string   `yaml:"name" json:"name"`
		Table    string   `yaml:"table" json:"table"`
		Abstract bool     `yaml:"abstract" json:"abstract"`
		Extends  string   `yaml:"extends" json:"extends"`
		Mixins   []string `yaml:"mixins" json:"mixins"`
		Fields   []Field  `yaml:"fields" json:"fields"`
		Edges    []Edge   `yaml:"edges" json:"edges"`
	}

	// Field declares a model field.
	Field struct {
		Name       string `yaml:"name" json:"name"`
		Type       string `yaml:"type" json:"type"`
		Column     string `yaml:"column" json:"column"`
		Optional   bool   `yaml:"optional" json:"optional"`
		Unique     bool   `yaml:"unique" json:"unique"`
		Key        bool   `yaml:"key" json:"key"`
		Default    any    `yaml:"default" json:"default"`
		Values     []any  `yaml:"values" json:"values"`
		MaxLen     int    `yaml:"max_len" json:"max_len"`
		Precision  int    `yaml:"precision" json:"precision"`
		Scale      int    `yaml:"scale" json:"scale"`
		AutoNow    bool   `yaml:"auto_now" json:"auto_now"`
		AutoNowAdd bool   `yaml:"auto_now_add" json:"auto_now_add"`
		Comment    string `yaml:"comment" json:"comment"`
	}

	// Edge declares a relation.
	Edge struct {
		Name     string   `yaml:"name" json:"name"`
		Kind     string   `yaml:"kind" json:"kind"`
		Target   string   `yaml:"target" json:"target"`
		Column   string   `yaml:"column" json:"column"`
		Optional bool     `yaml:"optional" json:"optional"`
		Through  *Through `yaml:"through" json:"through"`
	}

	// Through declares the join model of a many-to-many edge.
	Through struct {
		Model  string `yaml:"model" json:"model"`
		Source string `yaml:"source" json:"source"`
		Target string `yaml:"target" json:"target"`
	}
)

// LoadFile reads the schema file at path. The format is chosen by extension.
func LoadFile(path string) (*schema.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	defer f.Close()
	format := YAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = JSON
	}
	reg, err := Load(f, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return reg, nil
}

// Load decodes a schema file and registers its models in a new registry.
// Unknown keys are rejected.
func Load(r io.Reader, format Format) (*schema.Registry, error) {
	var file File
	switch format {
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case JSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return file.Registry()
}

// Registry builds a registry from the decoded file.
func (f *File) Registry() (*schema.Registry, error) {
	for _, t := range f.Types {
		parent, ok := field.LookupType(t.Parent)
		if !ok {
			return nil, fmt.Errorf("type %q: unknown parent type %q", t.Name, t.Parent)
		}
		field.NewType(t.Name, parent)
	}
	reg := schema.NewRegistry()
	for _, m := range f.Models {
		model, err := m.model()
		if err != nil {
			return nil, err
		}
		if err := reg.Register(model); err != nil {
			return nil, err
		}
	}
	if err := reg.Check(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (m *Model) model() (*schema.Model, error) {
	var (
		opts   []schema.ModelOption
		fields []field.Describer
		edges  []edge.Describer
	)
	if m.Table != "" {
		opts = append(opts, schema.Table(m.Table))
	}
	if m.Abstract {
		opts = append(opts, schema.Abstract())
	}
	if m.Extends != "" {
		opts = append(opts, schema.Extends(m.Extends))
	}
	for _, name := range m.Mixins {
		mx, err := mixin.ByName(name)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.Name, err)
		}
		opts = append(opts, schema.Mixins(mx))
	}
	for _, fd := range m.Fields {
		b, err := fd.builder()
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.Name, err)
		}
		fields = append(fields, b)
	}
	for _, ed := range m.Edges {
		b, err := ed.builder()
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.Name, err)
		}
		edges = append(edges, b)
	}
	opts = append(opts, schema.Fields(fields...), schema.Edges(edges...))
	return schema.NewModel(m.Name, opts...), nil
}

func (fd *Field) builder() (*field.Builder, error) {
	typ, ok := field.LookupType(fd.Type)
	if !ok || typ.Relation() {
		return nil, fmt.Errorf("field %q: unknown type %q", fd.Name, fd.Type)
	}
	b := field.New(fd.Name, typ)
	if typ.Is(field.TypeDecimal) {
		b = field.Decimal(fd.Name, fd.Precision, fd.Scale)
		b.Descriptor().Type = typ
	}
	if fd.Column != "" {
		b.StorageKey(fd.Column)
	}
	if fd.Optional {
		b.Optional()
	}
	if fd.Unique {
		b.Unique()
	}
	if fd.Key {
		b.Key()
	}
	if fd.Default != nil {
		b.Default(fd.Default)
	}
	if len(fd.Values) > 0 {
		b.Choices(fd.Values...)
	}
	if fd.MaxLen > 0 {
		b.MaxLen(fd.MaxLen)
	}
	if fd.AutoNow {
		b.AutoNow()
	}
	if fd.AutoNowAdd {
		b.AutoNowAdd()
	}
	if fd.Comment != "" {
		b.Comment(fd.Comment)
	}
	return b, nil
}

func (ed *Edge) builder() (*edge.Builder, error) {
	var b *edge.Builder
	switch strings.ToLower(ed.Kind) {
	case "", "to", "fk", "foreign_key":
		b = edge.To(ed.Name, ed.Target)
	case "one", "one_to_one":
		b = edge.One(ed.Name, ed.Target)
	case "many", "many_to_many":
		b = edge.Many(ed.Name, ed.Target)
	default:
		return nil, fmt.Errorf("edge %q: unknown kind %q", ed.Name, ed.Kind)
	}
	if ed.Optional {
		b.Optional()
	}
	if ed.Column != "" {
		b.StorageKey(ed.Column)
	}
	if ed.Through != nil {
		b.Through(ed.Through.Model, ed.Through.Source, ed.Through.Target)
	}
	return b, nil
}
