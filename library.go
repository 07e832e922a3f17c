package dynafix

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/syssam/dynafix/gen"
)

// DefaultLesson names the lesson applied to every build of a model while the
// library is in use.
const DefaultLesson = "default"

// Library stores lessons: named configurations of a model that builds can
// reuse. A Library is safe for concurrent use.
type Library struct {
	mu      sync.RWMutex
	lessons map[string]map[string]Values
	logger  *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*Library)

// WithLibraryLogger sets the logger used to report overridden lessons.
func WithLibraryLogger(l *slog.Logger) LibraryOption {
	return func(lib *Library) { lib.logger = l }
}

// NewLibrary returns an empty library.
func NewLibrary(opts ...LibraryOption) *Library {
	lib := &Library{
		lessons: make(map[string]map[string]Values),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// Add stores the values as the named lesson of the model. An empty name is
// the default lesson. An existing lesson is replaced with a warning.
func (lib *Library) Add(model string, values Values, name string) {
	if name == "" {
		name = DefaultLesson
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	lessons, ok := lib.lessons[model]
	if !ok {
		lessons = make(map[string]Values)
		lib.lessons[model] = lessons
	}
	if _, ok := lessons[name]; ok {
		lib.logger.Warn("dynafix: overriding lesson", "model", model, "lesson", name)
	}
	lessons[name] = values.Clone()
}

// Get returns a copy of the named lesson of the model. A missing default
// lesson is empty, a missing named lesson is a *LessonError.
func (lib *Library) Get(model, name string) (Values, error) {
	if name == "" {
		name = DefaultLesson
	}
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	if values, ok := lib.lessons[model][name]; ok {
		return values.Clone(), nil
	}
	if name == DefaultLesson {
		return Values{}, nil
	}
	return nil, &LessonError{Model: model, Lesson: name}
}

// Lessons returns the sorted lesson names of the model.
func (lib *Library) Lessons(model string) []string {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	return sortedKeys(lib.lessons[model])
}

// Clear removes all lessons.
func (lib *Library) Clear() {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	lib.lessons = make(map[string]map[string]Values)
}

// ClearModel removes the lessons of a model.
func (lib *Library) ClearModel(model string) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	delete(lib.lessons, model)
}

// LessonDef is a lesson read from a file.
type LessonDef struct {
	Model  string
	Name   string
	Values Values
}

// ReadLessons reads the lessons of a YAML file.
func ReadLessons(path string) ([]LessonDef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dynafix: open lessons: %w", err)
	}
	defer f.Close()
	lessons, err := ParseLessons(f)
	if err != nil {
		return nil, fmt.Errorf("dynafix: %s: %w", path, err)
	}
	return lessons, nil
}

// ParseLessons decodes lessons keyed by model and lesson name. Values are
// static unless given as a single key mapping naming a source:
//
//	Book:
//	  default:
//	    title: {mask: "Book ###"}
//	    subtitle: {copy: title}
//	    author: {fixture: {name: ann}}
//	    code: {generator: random}
//	  hardcover:
//	    pages: 500
//	    author__name: bob
func ParseLessons(r io.Reader) ([]LessonDef, error) {
	var doc map[string]map[string]map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode lessons: %w", err)
	}
	var lessons []LessonDef
	for _, model := range sortedKeys(doc) {
		for _, name := range sortedKeys(doc[model]) {
			values, err := lessonValues(doc[model][name])
			if err != nil {
				return nil, fmt.Errorf("lesson %s.%s: %w", model, name, err)
			}
			lessons = append(lessons, LessonDef{Model: model, Name: name, Values: values})
		}
	}
	return lessons, nil
}

func lessonValues(raw map[string]any) (Values, error) {
	values := make(Values, len(raw))
	for k, v := range raw {
		src, err := lessonValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		values[k] = src
	}
	return values, nil
}

func lessonValue(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v, nil
	}
	for kind, arg := range m {
		switch kind {
		case "copy":
			expr, ok := arg.(string)
			if !ok {
				return nil, fmt.Errorf("copy expects a path, got %T", arg)
			}
			return C(expr), nil
		case "mask":
			pattern, ok := arg.(string)
			if !ok {
				return nil, fmt.Errorf("mask expects a pattern, got %T", arg)
			}
			return M(pattern), nil
		case "generator":
			name, ok := arg.(string)
			if !ok {
				return nil, fmt.Errorf("generator expects a strategy name, got %T", arg)
			}
			g, err := gen.ByName(name)
			if err != nil {
				return nil, err
			}
			return Use(g), nil
		case "fixture":
			var nested map[string]any
			switch arg := arg.(type) {
			case nil:
			case map[string]any:
				nested = arg
			default:
				return nil, fmt.Errorf("fixture expects a mapping, got %T", arg)
			}
			values, err := lessonValues(nested)
			if err != nil {
				return nil, err
			}
			return F(values), nil
		}
	}
	return v, nil
}
