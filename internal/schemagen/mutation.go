package schemagen

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"modelql/internal/model"
	"modelql/internal/store"
)

func (m *Model) createResolver() graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		raw, ok := p.Args["input"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("create %s: input is required", m.name)
		}
		rec, err := m.create(p.Context, p.Args, raw, nil)
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
}

type nestedWrite struct {
	meta  inputMeta
	value interface{}
}

// create inserts one record from a "<Model>Input" value. Nested belongs_to
// records are inserted first so their keys can be set on the parent; nested
// has_one and has_many records follow the parent insert. Writes are not
// wrapped in a transaction.
func (m *Model) create(ctx context.Context, args, raw, extra map[string]interface{}) (store.Record, error) {
	if m.g.writer == nil {
		return nil, fmt.Errorf("create %s: %w", m.name, store.ErrUnsupported)
	}
	input, err := m.Input()
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{}, len(raw)+len(extra))
	var children []nestedWrite
	for _, arg := range input.Arguments() {
		value, ok := raw[arg.Name]
		if !ok {
			continue
		}
		meta, ok := arg.Meta.(inputMeta)
		if !ok {
			return nil, fmt.Errorf("%s.%s has no input metadata", input.Name(), arg.Name)
		}
		if meta.spec.WritePrepare != nil {
			tc := model.TransformContext{Context: ctx, Args: args, Model: m.name, Field: meta.spec.Name}
			if value, err = meta.spec.WritePrepare(tc, value); err != nil {
				return nil, err
			}
		}

		if meta.assoc == nil {
			values[meta.spec.Attribute()] = value
			continue
		}
		if value == nil {
			continue
		}
		assoc := meta.assoc
		if assoc.Through != "" {
			return nil, fmt.Errorf("create %s: nested write through %s: %w", m.name, assoc.Through, store.ErrUnsupported)
		}
		if assoc.Macro != model.BelongsTo {
			children = append(children, nestedWrite{meta: meta, value: value})
			continue
		}

		child, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("create %s: %s expects an object", m.name, arg.Name)
		}
		parent, err := meta.target.create(ctx, args, child, nil)
		if err != nil {
			return nil, err
		}
		for i, fk := range assoc.ForeignKey {
			if i < len(assoc.PrimaryKey) {
				values[fk] = parent[assoc.PrimaryKey[i]]
			}
		}
		if assoc.Polymorphic && assoc.TypeColumn != "" {
			values[assoc.TypeColumn] = meta.target.name
		}
	}
	for k, v := range extra {
		values[k] = v
	}

	rec, err := m.g.writer.Insert(ctx, m.desc.Name, values)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", m.name, err)
	}

	for _, nw := range children {
		assoc := nw.meta.assoc
		link := make(map[string]interface{}, len(assoc.ForeignKey)+1)
		for i, fk := range assoc.ForeignKey {
			if i < len(assoc.PrimaryKey) {
				link[fk] = rec[assoc.PrimaryKey[i]]
			}
		}
		if assoc.InversePolymorphic && assoc.TypeColumn != "" {
			link[assoc.TypeColumn] = m.name
		}

		var items []interface{}
		switch v := nw.value.(type) {
		case []interface{}:
			items = v
		default:
			items = []interface{}{v}
		}
		for _, item := range items {
			child, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if _, err := nw.meta.target.create(ctx, args, child, link); err != nil {
				return nil, err
			}
		}
	}
	return rec, nil
}
