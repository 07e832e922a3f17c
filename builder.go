package dynafix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/syssam/dynafix/gen"
	"github.com/syssam/dynafix/schema"
)

// builder assembles one entity. Every related entity gets its own builder,
// so processed fields never leak between branches of a build.
type builder struct {
	fx        *Fixture
	spec      *spec
	model     *schema.Model
	entity    *schema.Entity
	values    Values          // resolved configuration.
	explicit  map[string]bool // keys given by the call or the nested fixture.
	processed map[string]bool
	keep      []string // auto-stamped fields given a static value.
	persist   bool
}

// build runs a complete build: configuration, field assignment and, when
// persist is set, save and many-to-many links.
func (fx *Fixture) build(ctx context.Context, model string, values Values, nested *Nested, s *spec, persist bool) (*builder, error) {
	m, err := fx.lookup(model)
	if err != nil {
		return nil, err
	}
	if s.hops > maxHops {
		return nil, &ConfigurationError{
			Model: model,
			Msg:   fmt.Sprintf("more than %d related entities were built in a row, required relations may form a cycle", maxHops),
		}
	}
	if persist && m.IsAbstract() {
		return nil, &ModelError{Model: model, Reason: "abstract models cannot be persisted"}
	}
	if nested != nil {
		s.apply(nested.opts)
	}
	b := &builder{
		fx:        fx,
		spec:      s,
		model:     m,
		entity:    schema.NewEntity(m),
		explicit:  make(map[string]bool),
		processed: make(map[string]bool),
		persist:   persist,
	}
	var own Values
	if nested != nil {
		own = nested.values
	}
	if err := b.configure(values, own); err != nil {
		return nil, err
	}
	if err := b.assign(ctx); err != nil {
		return nil, err
	}
	if !persist {
		return b, nil
	}
	if err := b.save(ctx); err != nil {
		return nil, err
	}
	if err := b.link(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// configure layers the default lesson, the requested lesson, the values of
// the call and the values of the nested fixture, in increasing priority.
func (b *builder) configure(call, own Values) error {
	m, s := b.model, b.spec
	cfg := make(Values)
	var lessons []Values
	if s.useLibrary {
		l, err := b.fx.library.Get(m.Name(), DefaultLesson)
		if err != nil {
			return err
		}
		lessons = append(lessons, l)
	}
	if s.lesson != "" && s.lesson != DefaultLesson {
		l, err := b.fx.library.Get(m.Name(), s.lesson)
		if err != nil {
			return err
		}
		lessons = append(lessons, l)
	}
	for _, l := range lessons {
		values, err := expand(m.Name(), l)
		if err != nil {
			return err
		}
		cfg.merge(values)
	}
	for _, layer := range []Values{call, own} {
		values, err := expand(m.Name(), layer)
		if err != nil {
			return err
		}
		if s.strict {
			if err := checkNames(m, values); err != nil {
				return err
			}
		}
		for k := range values {
			b.explicit[k] = true
		}
		cfg.merge(values)
	}
	if s.shelve {
		if err := b.fx.teach(m, cfg, s.shelveName); err != nil {
			return err
		}
	}
	b.values = cfg
	return nil
}

// assign fills the fields of the entity. Fields copying a field that is not
// assigned yet are retried in order, at most twice as many times as there
// were pending fields after the first pass.
func (b *builder) assign(ctx context.Context) error {
	var pending []*schema.Field
	for _, f := range b.model.Fields() {
		if b.skip(f) {
			b.processed[f.Name] = true
			continue
		}
		done, err := b.assignField(ctx, f)
		if err != nil {
			return err
		}
		if !done {
			pending = append(pending, f)
		}
	}
	limit := 2 * len(pending)
	for attempts := 0; len(pending) > 0; attempts++ {
		if attempts >= limit {
			names := make([]string, len(pending))
			for i, f := range pending {
				names[i] = f.Name
			}
			return &ConfigurationError{
				Model: b.model.Name(),
				Msg:   fmt.Sprintf("cyclic dependency of copiers: %v", names),
			}
		}
		f := pending[0]
		pending = pending[1:]
		done, err := b.assignField(ctx, f)
		if err != nil {
			return err
		}
		if !done {
			pending = append(pending, f)
		}
	}
	return nil
}

// skip reports if a field is left to the store or ignored.
func (b *builder) skip(f *schema.Field) bool {
	_, configured := b.values[f.Name]
	switch {
	case f.IsParentLink():
		return true
	case f.Key:
		return !configured
	default:
		return !b.explicit[f.Name] && b.spec.ignored(f.Name)
	}
}

// assignField sets the value of a field. It reports false if the field
// copies a field that is not assigned yet.
func (b *builder) assignField(ctx context.Context, f *schema.Field) (bool, error) {
	var (
		v   any
		err error
	)
	if src, ok := b.values[f.Name]; ok {
		var pending bool
		if v, pending, err = b.custom(ctx, f, src); pending {
			return false, nil
		}
	} else {
		v, err = b.fallback(ctx, f)
	}
	if err != nil {
		return false, err
	}
	if f.IsFile() {
		if v, err = reopen(v); err != nil {
			return false, &ConfigurationError{Model: b.model.Name(), Field: f.Name, Err: err}
		}
	}
	b.entity.Set(f.Name, v)
	b.processed[f.Name] = true
	if b.spec.debug {
		b.fx.logger.DebugContext(ctx, "dynafix: field assigned", "field", f.String(), "value", dumpValue(v))
	}
	return true, nil
}

// custom evaluates the configured source of a field.
func (b *builder) custom(ctx context.Context, f *schema.Field, src any) (any, bool, error) {
	switch src := src.(type) {
	case *Copier:
		return b.copy(f, src)
	case *Generated:
		v, err := b.generate(src.gen, f)
		if err != nil && !IsUnsupportedField(err) {
			return nil, false, &ConfigurationError{Model: b.model.Name(), Field: f.Name, Err: err}
		}
		return v, false, err
	}
	v, err := b.source(ctx, f, src)
	if err != nil {
		return nil, false, &ConfigurationError{Model: b.model.Name(), Field: f.Name, Err: err}
	}
	return v, false, nil
}

func (b *builder) source(ctx context.Context, f *schema.Field, src any) (any, error) {
	switch src := src.(type) {
	case *Nested:
		if !f.IsRelation() {
			return nil, errors.New("nested fixture given for a field that is not a relation")
		}
		child, err := b.fx.build(ctx, f.Rel.Target, nil, src, b.child(f), b.persist || b.spec.persistDeps)
		if err != nil {
			return nil, err
		}
		return child.entity, nil
	case *Mask:
		return src.Evaluate(), nil
	case Func:
		return src(f), nil
	case func(*schema.Field) any:
		return src(f), nil
	case func() any:
		return src(), nil
	default:
		if f.IsAutoStamped() {
			b.keep = append(b.keep, f.Name)
		}
		return src, nil
	}
}

// copy evaluates a copier. It reports pending if the first field of the
// path is not processed yet.
func (b *builder) copy(f *schema.Field, c *Copier) (any, bool, error) {
	fail := func(err error) (any, bool, error) {
		return nil, false, &ConfigurationError{
			Model: b.model.Name(),
			Field: f.Name,
			Err:   &CopierError{Expr: c.expr, Err: err},
		}
	}
	if !c.valid() {
		return nil, false, &ConfigurationError{
			Model: b.model.Name(),
			Field: f.Name,
			Msg:   fmt.Sprintf("malformed copier expression %q", c.expr),
		}
	}
	root, ok := b.model.Field(c.root())
	switch {
	case !ok:
		return fail(fmt.Errorf("%s has no field %q", b.model.Name(), c.root()))
	case root.IsManyToMany():
		return fail(fmt.Errorf("many-to-many field %q can not be copied", c.root()))
	}
	if !b.processed[c.root()] {
		return nil, true, nil
	}
	v, err := b.entity.Walk(c.path...)
	if err != nil {
		return fail(err)
	}
	return v, false, nil
}

// fallback returns the value of a field without configured source: its
// default, a related entity, nil for nullable fields, its first choice or a
// generated value.
func (b *builder) fallback(ctx context.Context, f *schema.Field) (any, error) {
	switch {
	case f.HasDefault():
		return f.DefaultValue(), nil
	case f.IsRelation():
		return b.relation(ctx, f)
	case f.Nullable && !b.spec.fillNullable:
		return nil, nil
	case len(f.Choices) > 0:
		return f.Choices[0], nil
	}
	return b.generate(b.spec.generator, f)
}

// generate returns a value of g for f. A field of a type g has no function
// for is left nil when nullable.
func (b *builder) generate(g gen.Generator, f *schema.Field) (any, error) {
	v, err := g.Generate(f)
	if errors.Is(err, gen.ErrUnsupported) {
		if f.Nullable {
			return nil, nil
		}
		return nil, &UnsupportedFieldError{Field: f.String(), Type: f.Type.String(), Err: err}
	}
	return v, err
}

// relation builds the entity of a relation without configured source.
// Required relations are always built, nullable ones while the build is
// less than the minimum depth away from the root.
func (b *builder) relation(ctx context.Context, f *schema.Field) (any, error) {
	if f.Nullable && b.spec.minDepth <= 0 {
		return nil, nil
	}
	s := b.child(f)
	s.minDepth = b.spec.minDepth - 1
	child, err := b.fx.build(ctx, f.Rel.Target, nil, nil, s, b.persist || b.spec.persistDeps)
	if err != nil {
		return nil, err
	}
	return child.entity, nil
}

// child returns the spec of the build of a related entity. The ignore list
// of the build is only carried over to entities of the same model.
func (b *builder) child(f *schema.Field) *spec {
	s := b.spec.clone()
	if !f.IsSelfReference() {
		s.ignore = slices.Clone(b.fx.spec(nil).ignore)
	}
	s.lesson = ""
	s.shelve = false
	s.shelveName = ""
	s.hops++
	return s
}

// reopen replaces an open file by a new read-only handle on the same file.
// The caller keeps ownership of the given file. The new handle belongs to
// the entity and is closed by the store once its content is read, whether
// the save succeeds or not.
func reopen(v any) (any, error) {
	f, ok := v.(*os.File)
	if !ok || f == nil {
		return v, nil
	}
	return schema.OpenFile(f.Name())
}
