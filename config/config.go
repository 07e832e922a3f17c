// Package config handles the process wide fixture settings.
//
// Settings are read from a YAML file and overridden by DYNAFIX_* environment
// variables, which always take priority over the file:
//
//	generator: random
//	fill_nullable_fields: true
//	ignore_fields: [created_by, "*_cache"]
//	fk_min_depth: 1
//	field_fixtures:
//	  email: fixture@example.com
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment variables read by FromEnv.
const EnvPrefix = "DYNAFIX_"

// Generators lists the accepted values of the generator setting.
var Generators = []string{"sequential", "static_sequential", "global_sequential", "random", "unique_random"}

// ErrImproperlyConfigured is returned for settings with an invalid value.
var ErrImproperlyConfigured = errors.New("config: improperly configured")

// Settings holds the defaults applied to every fixture build.
type Settings struct {
	Generator      string         `yaml:"generator"`
	FillNullable   bool           `yaml:"fill_nullable_fields"`
	Ignore         []string       `yaml:"ignore_fields"`
	MinDepth       int            `yaml:"fk_min_depth"`
	ValidateModels bool           `yaml:"validate_models"`
	Strict         bool           `yaml:"validate_args"`
	PrintErrors    bool           `yaml:"print_errors"`
	Debug          bool           `yaml:"debug_mode"`
	UseLibrary     bool           `yaml:"use_library"`
	CountQueries   bool           `yaml:"count_queries_on_save"`
	Overrides      map[string]any `yaml:"field_fixtures"` // field type name → value.
	Lessons        []string       `yaml:"lessons"`        // lesson files loaded into the library.
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Generator:   "sequential",
		PrintErrors: true,
		UseLibrary:  true,
	}
}

// Error describes a setting with an invalid value.
type Error struct {
	Key   string
	Value string
	Msg   string
	Err   error
}

// Error returns the error string.
func (e *Error) Error() string {
	msg := fmt.Sprintf("config: %s=%q: %s", e.Key, e.Value, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether the target matches ErrImproperlyConfigured.
func (e *Error) Is(target error) bool { return target == ErrImproperlyConfigured }

// LoadOption configures Load and Parse.
type LoadOption func(*loader)

type loader struct {
	strict bool
	getenv func(string) string
}

// Strict makes unknown keys in the settings file an error.
func Strict() LoadOption {
	return func(l *loader) { l.strict = true }
}

// WithGetenv sets the function used to read environment variables.
// It defaults to os.Getenv.
func WithGetenv(getenv func(string) string) LoadOption {
	return func(l *loader) { l.getenv = getenv }
}

// Load reads the settings file at path, applies the environment overrides
// and validates the result. An empty path only applies the environment.
func Load(path string, opts ...LoadOption) (Settings, error) {
	if path == "" {
		return apply(Default(), opts)
	}
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Parse(f, opts...)
}

// Parse reads settings from r, applies the environment overrides and
// validates the result. Keys missing from r keep their default value.
func Parse(r io.Reader, opts ...LoadOption) (Settings, error) {
	l := newLoader(opts)
	s := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(l.strict)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("config: decode settings: %w", err)
	}
	return apply(s, opts)
}

func newLoader(opts []LoadOption) *loader {
	l := &loader{getenv: os.Getenv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func apply(s Settings, opts []LoadOption) (Settings, error) {
	if err := s.FromEnv(newLoader(opts).getenv); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// FromEnv overrides the settings with the DYNAFIX_* environment variables
// that are set and not empty.
func (s *Settings) FromEnv(getenv func(string) string) error {
	lookup := func(key string) (string, bool) {
		v := getenv(EnvPrefix + key)
		return v, v != ""
	}
	bools := []struct {
		key string
		dst *bool
	}{
		{"FILL_NULLABLE_FIELDS", &s.FillNullable},
		{"VALIDATE_MODELS", &s.ValidateModels},
		{"VALIDATE_ARGS", &s.Strict},
		{"PRINT_ERRORS", &s.PrintErrors},
		{"DEBUG_MODE", &s.Debug},
		{"USE_LIBRARY", &s.UseLibrary},
		{"COUNT_QUERIES_ON_SAVE", &s.CountQueries},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return &Error{Key: EnvPrefix + b.key, Value: v, Msg: "it must be true or false", Err: err}
		}
		*b.dst = parsed
	}
	if v, ok := lookup("GENERATOR"); ok {
		s.Generator = v
	}
	if v, ok := lookup("FK_MIN_DEPTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Key: EnvPrefix + "FK_MIN_DEPTH", Value: v, Msg: "it must be an integer number", Err: err}
		}
		s.MinDepth = n
	}
	if v, ok := lookup("IGNORE_FIELDS"); ok {
		s.Ignore = nil
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				s.Ignore = append(s.Ignore, name)
			}
		}
	}
	if v, ok := lookup("LESSONS"); ok {
		s.Lessons = strings.Split(v, string(os.PathListSeparator))
	}
	return nil
}

// Validate checks that every setting holds an accepted value.
func (s Settings) Validate() error {
	if !slices.Contains(Generators, s.Generator) {
		return &Error{
			Key:   "generator",
			Value: s.Generator,
			Msg:   "it must be one of " + strings.Join(Generators, ", "),
		}
	}
	if s.MinDepth < 0 {
		return &Error{Key: "fk_min_depth", Value: strconv.Itoa(s.MinDepth), Msg: "it must not be negative"}
	}
	for _, pattern := range s.Ignore {
		if pattern == "" {
			return &Error{Key: "ignore_fields", Value: pattern, Msg: "it must not contain empty names"}
		}
	}
	return nil
}
