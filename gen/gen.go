package gen

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/field"
)

// ErrUnsupported is returned when no generator is registered for the type
// of a field or any of its ancestor types.
var ErrUnsupported = errors.New("gen: unsupported field type")

// Generator produces values for fields.
type Generator interface {
	Generate(f *schema.Field) (any, error)
}

// Func is a function that implements the Generator interface.
type Func func(f *schema.Field) (any, error)

// Generate calls fn(f).
func (fn Func) Generate(f *schema.Field) (any, error) { return fn(f) }

// Table dispatches generation by field type. A field is handled by the
// function registered for its type, or for its closest ancestor type.
// Overrides registered by type name take precedence over functions at the
// same level of the type chain.
type Table struct {
	name      string
	funcs     map[*field.Type]Func
	overrides map[string]any
	counter   *Counter
	clock     func() time.Time
	logger    *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Table.
type Option func(*Table)

// WithOverride sets a fixed value for all fields of the named type. The value
// can be static or a func() any called for every field.
//
//	gen.Sequential(gen.WithOverride("email", func() any { return "a@b.c" }))
func WithOverride(typ string, v any) Option {
	return func(t *Table) { t.overrides[typ] = v }
}

// WithClock sets the clock used for time values.
func WithClock(clock func() time.Time) Option {
	return func(t *Table) { t.clock = clock }
}

// WithSeed seeds the random source of the table.
func WithSeed(seed uint64) Option {
	return func(t *Table) { t.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithCounter sets the counter used by sequence based strategies. Sharing a
// counter between tables makes them share their sequences.
func WithCounter(c *Counter) Option {
	return func(t *Table) { t.counter = c }
}

// WithLogger sets the logger used for generator warnings.
func WithLogger(l *slog.Logger) Option {
	return func(t *Table) { t.logger = l }
}

// NewTable returns an empty table. Use Register to add type functions.
func NewTable(name string, opts ...Option) *Table {
	t := &Table{
		name:      name,
		funcs:     make(map[*field.Type]Func),
		overrides: make(map[string]any),
		counter:   NewCounter(),
		clock:     time.Now,
		logger:    slog.Default(),
		rnd:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the strategy name of the table.
func (t *Table) Name() string { return t.name }

// Counter returns the counter of the table.
func (t *Table) Counter() *Counter { return t.counter }

// Register sets the function generating values for typ and its descendants.
func (t *Table) Register(typ *field.Type, fn Func) *Table {
	t.funcs[typ] = fn
	return t
}

// Generate implements the Generator interface.
func (t *Table) Generate(f *schema.Field) (any, error) {
	for _, typ := range f.Type.Chain() {
		if v, ok := t.overrides[typ.String()]; ok {
			if fn, ok := v.(func() any); ok {
				return fn(), nil
			}
			return v, nil
		}
		if fn, ok := t.funcs[typ]; ok {
			return fn(f)
		}
	}
	return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupported, f, f.Type)
}

// intN returns a random number in [0, n).
func (t *Table) intN(n int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rnd.Int64N(n)
}

func (t *Table) float() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rnd.Float64()
}

// key returns the sequence key of a field.
func key(f *schema.Field) string { return f.String() }

// ByName returns the strategy registered under name: sequential,
// static_sequential, global_sequential, random or unique_random.
func ByName(name string, opts ...Option) (*Table, error) {
	switch name {
	case "", "sequential":
		return Sequential(opts...), nil
	case "static_sequential":
		return StaticSequential(opts...), nil
	case "global_sequential":
		return GlobalSequential(opts...), nil
	case "random":
		return Random(opts...), nil
	case "unique_random":
		return UniqueRandom(opts...), nil
	default:
		return nil, fmt.Errorf("gen: unknown strategy %q", name)
	}
}
