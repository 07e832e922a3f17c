package dynafix

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/store"
)

// save persists the entity of the builder.
func (b *builder) save(ctx context.Context) error {
	stats := b.fx.stats
	if stats == nil || !b.fx.settings.CountQueries {
		return b.fx.persist(ctx, b.entity, b.spec, b.keep)
	}
	before := stats.Stats()
	err := b.fx.persist(ctx, b.entity, b.spec, b.keep)
	b.fx.logger.InfoContext(ctx, "dynafix: entity saved",
		"model", b.model.Name(),
		"statements", stats.Stats().Sub(before).Statements(),
	)
	return err
}

// persist validates and saves an entity between its save hooks. Failures
// are reported as *BadDataError, after printing the entity if asked to.
func (fx *Fixture) persist(ctx context.Context, e *schema.Entity, s *spec, keep []string) error {
	m := e.Model()
	if m.IsAbstract() {
		return &ModelError{Model: m.Name(), Reason: "abstract models cannot be persisted"}
	}
	err := fx.saveHooked(ctx, e, s, keep)
	if err == nil {
		return nil
	}
	if s.printErrors {
		if perr := Print(fx.out, e); perr != nil {
			fx.logger.WarnContext(ctx, "dynafix: print entity", "model", m.Name(), "error", perr)
		}
	}
	return &BadDataError{Model: m.Name(), Err: err}
}

func (fx *Fixture) saveHooked(ctx context.Context, e *schema.Entity, s *spec, keep []string) error {
	name := e.Model().Name()
	if s.validate {
		if err := schema.Validate(e); err != nil {
			return err
		}
	}
	if hook := fx.hooks.preSave(name); hook != nil {
		if err := call(hook, e); err != nil {
			return err
		}
	}
	if err := fx.store.Save(ctx, e, store.SaveOptions{KeepTimestamps: keep}); err != nil {
		return err
	}
	if hook := fx.hooks.postSave(name); hook != nil {
		if err := call(hook, e); err != nil {
			return err
		}
	}
	return nil
}

// link attaches the configured many-to-many values of a saved entity.
func (b *builder) link(ctx context.Context) error {
	for _, f := range b.model.ManyToMany() {
		v, ok := b.values[f.Name]
		if !ok {
			continue
		}
		targets, err := b.related(ctx, f, v)
		if err == nil {
			err = b.attach(ctx, f, targets)
		}
		if err != nil {
			var merr *ManyToManyError
			if errors.As(err, &merr) {
				return err
			}
			return &ManyToManyError{Field: f.String(), Value: v, Err: err}
		}
		b.entity.AddRelated(f.Name, targets...)
	}
	return nil
}

// related returns the saved entities described by a many-to-many value: a
// count of new entities, or a list of nested fixtures and entities.
func (b *builder) related(ctx context.Context, f *schema.Field, v any) ([]*schema.Entity, error) {
	var items []any
	switch v := v.(type) {
	case int:
		if v < 0 {
			return nil, &ManyToManyError{Field: f.String(), Value: v}
		}
		items = make([]any, v)
		for i := range items {
			items[i] = F(nil)
		}
	case []any:
		items = v
	case []*Nested:
		for _, n := range v {
			items = append(items, n)
		}
	case []*schema.Entity:
		for _, e := range v {
			items = append(items, e)
		}
	default:
		return nil, &ManyToManyError{Field: f.String(), Value: v}
	}
	targets := make([]*schema.Entity, 0, len(items))
	for i, item := range items {
		switch item := item.(type) {
		case *Nested:
			child, err := b.fx.build(ctx, f.Rel.Target, nil, item, b.child(f), true)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			targets = append(targets, child.entity)
		case *schema.Entity:
			if item == nil {
				return nil, &ManyToManyError{Field: f.String(), Value: item}
			}
			if !item.Saved() {
				if err := b.fx.persist(ctx, item, b.spec, nil); err != nil {
					return nil, fmt.Errorf("item %d: %w", i, err)
				}
			}
			targets = append(targets, item)
		default:
			return nil, &ManyToManyError{Field: f.String(), Value: item}
		}
	}
	return targets, nil
}

// attach links the targets to the entity. Relations with a through model
// are linked by building an entity of the through model per target.
func (b *builder) attach(ctx context.Context, f *schema.Field, targets []*schema.Entity) error {
	if len(targets) == 0 {
		return nil
	}
	err := b.fx.store.Link(ctx, b.entity, f, targets...)
	if !errors.Is(err, store.ErrThroughRelation) {
		return err
	}
	th := f.Rel.Through
	for _, t := range targets {
		values := Values{th.Source: b.entity, th.Target: t}
		if _, err := b.fx.build(ctx, th.Model, values, nil, b.child(f), true); err != nil {
			return err
		}
	}
	return nil
}
