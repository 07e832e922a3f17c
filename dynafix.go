package dynafix

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/syssam/dynafix/config"
	"github.com/syssam/dynafix/dialect/sql"
	"github.com/syssam/dynafix/gen"
	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/store"
	"github.com/syssam/dynafix/store/memstore"
)

// Fixture builds entities of the models of a registry. A Fixture is safe for
// concurrent use as long as its store is.
type Fixture struct {
	reg      *schema.Registry
	store    store.Store
	library  *Library
	hooks    *Hooks
	logger   *slog.Logger
	out      io.Writer
	settings config.Settings
	defaults []Option
	stats    *sql.QueryStats
	gen      gen.Generator
	err      error
}

// FixtureOption configures a Fixture.
type FixtureOption func(*Fixture)

// WithStore sets the store entities are saved to. Defaults to an in-memory
// store of the registry.
func WithStore(s store.Store) FixtureOption {
	return func(fx *Fixture) { fx.store = s }
}

// WithLibrary sets the lesson library.
func WithLibrary(lib *Library) FixtureOption {
	return func(fx *Fixture) { fx.library = lib }
}

// WithHooks sets the save hooks.
func WithHooks(h *Hooks) FixtureOption {
	return func(fx *Fixture) { fx.hooks = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FixtureOption {
	return func(fx *Fixture) { fx.logger = l }
}

// WithOutput sets where the field values of entities that fail to save are
// written. Defaults to os.Stderr.
func WithOutput(w io.Writer) FixtureOption {
	return func(fx *Fixture) { fx.out = w }
}

// WithSettings sets the process defaults of the fixture.
func WithSettings(s config.Settings) FixtureOption {
	return func(fx *Fixture) { fx.settings = s }
}

// Defaults sets build options applied to every build, before the options of
// the call.
func Defaults(opts ...Option) FixtureOption {
	return func(fx *Fixture) { fx.defaults = append(fx.defaults, opts...) }
}

// WithQueryStats sets the statistics of the SQL driver behind the store.
// When the count_queries_on_save setting is on, the statements of every save
// are logged.
func WithQueryStats(s *sql.QueryStats) FixtureOption {
	return func(fx *Fixture) { fx.stats = s }
}

// NewFixture returns a fixture for the models of reg. Invalid settings are
// reported by the first build.
func NewFixture(reg *schema.Registry, opts ...FixtureOption) *Fixture {
	fx := &Fixture{
		reg:      reg,
		logger:   slog.Default(),
		out:      os.Stderr,
		settings: config.Default(),
	}
	for _, opt := range opts {
		opt(fx)
	}
	if fx.store == nil {
		fx.store = memstore.New(reg)
	}
	if fx.library == nil {
		fx.library = NewLibrary(WithLibraryLogger(fx.logger))
	}
	if fx.hooks == nil {
		fx.hooks = NewHooks(reg)
	}
	if err := fx.settings.Validate(); err != nil {
		fx.err = err
		return fx
	}
	gopts := []gen.Option{gen.WithLogger(fx.logger)}
	for _, typ := range sortedKeys(fx.settings.Overrides) {
		gopts = append(gopts, gen.WithOverride(typ, fx.settings.Overrides[typ]))
	}
	g, err := gen.ByName(fx.settings.Generator, gopts...)
	if err != nil {
		fx.err = err
		return fx
	}
	fx.gen = g
	for _, path := range fx.settings.Lessons {
		if err := fx.LoadLessons(path); err != nil {
			fx.err = err
			return fx
		}
	}
	return fx
}

// Err returns the error found while configuring the fixture, if any.
// Every build of a misconfigured fixture fails with it.
func (fx *Fixture) Err() error { return fx.err }

// Registry returns the registry of the fixture.
func (fx *Fixture) Registry() *schema.Registry { return fx.reg }

// Store returns the store of the fixture.
func (fx *Fixture) Store() store.Store { return fx.store }

// Library returns the lesson library of the fixture.
func (fx *Fixture) Library() *Library { return fx.library }

// Hooks returns the save hooks of the fixture.
func (fx *Fixture) Hooks() *Hooks { return fx.hooks }

// Settings returns the process defaults of the fixture.
func (fx *Fixture) Settings() config.Settings { return fx.settings }

// Bind returns a fixture sharing the configuration, library and hooks of fx
// that saves to s, typically a transaction.
//
//	tx, _ := fx.Store().Begin(ctx)
//	defer tx.Rollback()
//	book, err := fx.Bind(tx).Get(ctx, "Book", nil)
func (fx *Fixture) Bind(s store.Store) *Fixture {
	c := *fx
	c.store = s
	return &c
}

// PreSave registers the hook called before entities of the model are saved.
func (fx *Fixture) PreSave(model string, fn Hook) error { return fx.hooks.PreSave(model, fn) }

// PostSave registers the hook called after entities of the model are saved.
func (fx *Fixture) PostSave(model string, fn Hook) error { return fx.hooks.PostSave(model, fn) }

// New builds an entity of the model without saving it. The entities it
// depends on are saved unless PersistDependencies(false) is given.
func (fx *Fixture) New(ctx context.Context, model string, values Values, opts ...Option) (*schema.Entity, error) {
	if fx.err != nil {
		return nil, fx.err
	}
	b, err := fx.build(ctx, model, values, nil, fx.spec(opts), false)
	if err != nil {
		return nil, err
	}
	return b.entity, nil
}

// Get builds and saves an entity of the model, then links the many-to-many
// values it was given.
func (fx *Fixture) Get(ctx context.Context, model string, values Values, opts ...Option) (*schema.Entity, error) {
	if fx.err != nil {
		return nil, fx.err
	}
	b, err := fx.build(ctx, model, values, nil, fx.spec(opts), true)
	if err != nil {
		return nil, err
	}
	return b.entity, nil
}

// NewN builds n unsaved entities with the same configuration.
func (fx *Fixture) NewN(ctx context.Context, n int, model string, values Values, opts ...Option) ([]*schema.Entity, error) {
	return fx.times(n, func() (*schema.Entity, error) { return fx.New(ctx, model, values, opts...) })
}

// GetN builds and saves n entities with the same configuration.
func (fx *Fixture) GetN(ctx context.Context, n int, model string, values Values, opts ...Option) ([]*schema.Entity, error) {
	return fx.times(n, func() (*schema.Entity, error) { return fx.Get(ctx, model, values, opts...) })
}

func (fx *Fixture) times(n int, fn func() (*schema.Entity, error)) ([]*schema.Entity, error) {
	entities := make([]*schema.Entity, 0, n)
	for i := 0; i < n; i++ {
		e, err := fn()
		if err != nil {
			return nil, fmt.Errorf("dynafix: build %d of %d: %w", i+1, n, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Teach stores the values as a lesson of the model, named by the Lesson
// option or the default lesson otherwise. Unique fields can only be taught
// values that change on every build.
//
//	fx.Teach("Author", dynafix.Values{"nickname": dynafix.M("__##")})
//	fx.Teach("Author", dynafix.Values{"active": false}, dynafix.Lesson("inactive"))
func (fx *Fixture) Teach(model string, values Values, opts ...Option) error {
	if fx.err != nil {
		return fx.err
	}
	s := fx.spec(opts)
	m, err := fx.lookup(model)
	if err != nil {
		return err
	}
	values, err = expand(model, values)
	if err != nil {
		return err
	}
	if s.strict {
		if err := checkNames(m, values); err != nil {
			return err
		}
	}
	return fx.teach(m, values, s.lesson)
}

func (fx *Fixture) teach(m *schema.Model, values Values, name string) error {
	for _, k := range sortedKeys(values) {
		f, ok := m.Field(k)
		if ok && (f.Unique || f.Key) && !isDynamic(values[k]) {
			return &ConfigurationError{
				Model: m.Name(),
				Field: k,
				Msg:   "a unique field can only be taught a value that changes on every build",
			}
		}
	}
	fx.library.Add(m.Name(), values, name)
	return nil
}

// LoadLessons teaches the lessons of a YAML file. See ParseLessons for the
// file format.
func (fx *Fixture) LoadLessons(path string) error {
	lessons, err := ReadLessons(path)
	if err != nil {
		return err
	}
	for _, l := range lessons {
		m, err := fx.lookup(l.Model)
		if err != nil {
			return err
		}
		values, err := expand(l.Model, l.Values)
		if err != nil {
			return err
		}
		if err := fx.teach(m, values, l.Name); err != nil {
			return err
		}
	}
	return nil
}

// spec returns the spec of a build: the settings, then the fixture defaults,
// then the options of the call.
func (fx *Fixture) spec(opts []Option) *spec {
	s := &spec{
		generator:    fx.gen,
		fillNullable: fx.settings.FillNullable,
		ignore:       append([]string(nil), fx.settings.Ignore...),
		minDepth:     fx.settings.MinDepth,
		validate:     fx.settings.ValidateModels,
		strict:       fx.settings.Strict,
		printErrors:  fx.settings.PrintErrors,
		debug:        fx.settings.Debug,
		persistDeps:  true,
		useLibrary:   fx.settings.UseLibrary,
	}
	return s.apply(fx.defaults).apply(opts)
}

func (fx *Fixture) lookup(model string) (*schema.Model, error) {
	m, err := fx.reg.Lookup(model)
	if err != nil {
		return nil, &ModelError{Model: model, Reason: "model is not registered", Err: err}
	}
	return m, nil
}

func checkNames(m *schema.Model, values Values) error {
	for _, k := range sortedKeys(values) {
		if !m.HasField(k) {
			return &ConfigurationError{Model: m.Name(), Field: k, Msg: "unknown field"}
		}
	}
	return nil
}
