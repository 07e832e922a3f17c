package dynafix

import (
	"path"
	"slices"

	"github.com/syssam/dynafix/gen"
)

// maxHops bounds the chain of required relations built for one entity.
const maxHops = 64

// spec is the configuration of one build. A new spec is derived for every
// nested build, so that depth and ignore lists never leak across branches.
type spec struct {
	generator    gen.Generator
	fillNullable bool
	ignore       []string
	minDepth     int
	validate     bool
	strict       bool
	printErrors  bool
	debug        bool
	persistDeps  bool
	useLibrary   bool
	lesson       string
	shelve       bool
	shelveName   string

	hops int // relations followed from the root build.
}

// Option configures a build.
type Option func(*spec)

// Generator sets the generator of fields without configured value.
func Generator(g gen.Generator) Option {
	return func(s *spec) { s.generator = g }
}

// FillNullable sets whether nullable fields receive a generated value
// instead of nil.
func FillNullable(b bool) Option {
	return func(s *spec) { s.fillNullable = b }
}

// Ignore adds field name patterns that are left unset unless given a value
// explicitly. Patterns may use the '*' and '?' wildcards.
func Ignore(patterns ...string) Option {
	return func(s *spec) { s.ignore = append(s.ignore, patterns...) }
}

// MinDepth sets how many levels of nullable relations are built. Required
// relations are always built.
func MinDepth(n int) Option {
	return func(s *spec) { s.minDepth = n }
}

// Validate sets whether entities are validated before being saved.
func Validate(b bool) Option {
	return func(s *spec) { s.validate = b }
}

// Strict sets whether values for unknown fields are an error.
func Strict(b bool) Option {
	return func(s *spec) { s.strict = b }
}

// PrintErrors sets whether the field values of entities that fail to save
// are written to the fixture output.
func PrintErrors(b bool) Option {
	return func(s *spec) { s.printErrors = b }
}

// Debug sets whether every field assignment is logged.
func Debug(b bool) Option {
	return func(s *spec) { s.debug = b }
}

// PersistDependencies sets whether New saves the related entities it builds.
// Get always saves them.
func PersistDependencies(b bool) Option {
	return func(s *spec) { s.persistDeps = b }
}

// UseLibrary sets whether the default lesson of the model is applied.
func UseLibrary(b bool) Option {
	return func(s *spec) { s.useLibrary = b }
}

// Lesson applies the named lesson of the model. It also names the lesson
// written by Teach.
func Lesson(name string) Option {
	return func(s *spec) { s.lesson = name }
}

// Shelve stores the configuration of the build as a lesson of the model.
// An empty name stores the default lesson.
func Shelve(name string) Option {
	return func(s *spec) {
		s.shelve = true
		s.shelveName = name
	}
}

func (s *spec) apply(opts []Option) *spec {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clone returns a copy of the spec that shares nothing mutable with s.
func (s *spec) clone() *spec {
	c := *s
	c.ignore = slices.Clone(s.ignore)
	return &c
}

// ignored reports if the field name matches an ignore pattern.
func (s *spec) ignored(name string) bool {
	for _, pattern := range s.ignore {
		if pattern == name {
			return true
		}
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
