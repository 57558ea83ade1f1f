package schemagen

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"modelql/internal/loader"
	"modelql/internal/model"
	"modelql/internal/store"
)

type associationMode int

const (
	modeOne associationMode = iota
	modeMany
	modeConnection
)

// associationResolver builds the resolver of an association field. The
// resolver derives from the target base resolver and takes the target
// criteria arguments.
func (m *Model) associationResolver(spec model.FieldSpec, assoc *model.Association, target *Model, mode associationMode) (*Resolver, error) {
	parent, err := target.BaseResolver()
	if err != nil {
		return nil, err
	}

	var finish finishFunc
	switch mode {
	case modeOne:
		finish = finishOne
	case modeMany:
		finish = finishMany
	default:
		finish = target.finishConnection
	}

	batchable := mode != modeConnection && !spec.SkipBatching && !spec.HasReadTransforms() && assoc.Batchable()
	skipReason := ""
	switch {
	case mode == modeConnection:
		skipReason = "connection"
	case spec.SkipBatching:
		skipReason = "skip_batching"
	case spec.HasReadTransforms():
		skipReason = "read_transform"
	case !assoc.Batchable():
		skipReason = "ineligible"
	}
	caseSensitive := m.g.caseSensitive(spec)

	base := func(p graphql.ResolveParams) (interface{}, error) {
		owner := asRecord(p.Source)
		c, err := target.criteria(p.Args)
		if err != nil {
			return nil, err
		}

		if l := loader.FromContext(p.Context); l != nil {
			if batchable && len(c.groups) == 0 {
				return m.load(p.Context, l, assoc, target, owner, c, mode == modeMany, caseSensitive), nil
			}
			reason := skipReason
			if reason == "" {
				reason = "grouped"
			}
			loader.RecordSkipped(p.Context, target.desc.Name, reason)
		}

		q, err := m.traverse(p.Context, assoc, owner)
		if err != nil {
			return nil, err
		}
		var value interface{} = q
		tc := model.TransformContext{Context: p.Context, Source: owner, Args: p.Args, Model: m.name, Field: spec.Name}
		if spec.ReadResolve != nil {
			if value, err = spec.ReadResolve(tc, value); err != nil {
				return nil, err
			}
		}
		if spec.ReadPrepare != nil {
			if value, err = spec.ReadPrepare(tc, value); err != nil {
				return nil, err
			}
		}
		if q, ok := value.(store.Query); ok {
			return target.apply(q, c)
		}
		return value, nil
	}

	return newResolver(target, parent, base, finish), nil
}

// load queues the owner key on the request loader and returns the deferred
// result.
func (m *Model) load(ctx context.Context, l *loader.Loader, assoc *model.Association, target *Model, owner store.Record, c criteria, multi, caseSensitive bool) func() (interface{}, error) {
	key := owner[assoc.OwnerKey()[0]]
	if key == nil {
		return func() (interface{}, error) {
			if multi {
				return []store.Record{}, nil
			}
			return nil, nil
		}
	}

	req := loader.Request{
		Model:         target.desc.Name,
		Attributes:    assoc.TargetKey(),
		Filter:        c.filter,
		Sort:          c.sorts,
		Multi:         multi,
		CaseSensitive: caseSensitive,
	}
	if assoc.Scope != nil {
		scope := assoc.Scope
		req.Scope = func(q store.Query) store.Query { return scope(q, nil) }
		req.ScopeKey = m.desc.Name + "." + assoc.Name
	}
	return l.Load(ctx, req, key)
}

// traverse opens the query of records associated with owner. A missing
// owner key yields a query matching nothing.
func (m *Model) traverse(ctx context.Context, assoc *model.Association, owner store.Record) (store.Query, error) {
	target, ok := m.g.models[assoc.Target]
	if !ok {
		return nil, fmt.Errorf("%s.%s: unknown target %q", m.name, assoc.Name, assoc.Target)
	}
	q, err := m.g.source.From(target.desc.Name)
	if err != nil {
		return nil, err
	}

	if assoc.Through != "" {
		return m.traverseThrough(ctx, assoc, target, owner, q)
	}

	if assoc.Polymorphic {
		typeName, _ := owner[assoc.TypeColumn].(string)
		if typeName != target.name && typeName != target.desc.Name {
			return nothing(q, assoc.TargetKey()), nil
		}
	}

	cond := make(map[string]interface{}, len(assoc.OwnerKey()))
	targetKey := assoc.TargetKey()
	for i, attr := range assoc.OwnerKey() {
		if i >= len(targetKey) {
			break
		}
		value := owner[attr]
		if value == nil {
			return nothing(q, targetKey), nil
		}
		cond[targetKey[i]] = value
	}
	if assoc.InversePolymorphic && assoc.TypeColumn != "" {
		cond[assoc.TypeColumn] = m.name
	}
	q = q.Where(cond)
	return scoped(q, assoc, owner), nil
}

// traverseThrough follows the intermediate association, then the source
// association of the intermediate model.
func (m *Model) traverseThrough(ctx context.Context, assoc *model.Association, target *Model, owner store.Record, q store.Query) (store.Query, error) {
	through, ok := m.desc.Association(assoc.Through)
	if !ok {
		return nil, fmt.Errorf("%s.%s: unknown through association %q", m.name, assoc.Name, assoc.Through)
	}
	middle, ok := m.g.models[through.Target]
	if !ok {
		return nil, fmt.Errorf("%s.%s: unknown through target %q", m.name, assoc.Name, through.Target)
	}
	sourceName := assoc.Source
	if sourceName == "" {
		sourceName = assoc.Name
	}
	source, ok := middle.desc.Association(sourceName)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %s has no association %q", m.name, assoc.Name, middle.name, sourceName)
	}

	middleQuery, err := m.traverse(ctx, through, owner)
	if err != nil {
		return nil, err
	}
	intermediates, err := middleQuery.All(ctx)
	if err != nil {
		return nil, err
	}

	ownerKey := source.OwnerKey()
	targetKey := source.TargetKey()
	sets := make([]map[string]interface{}, 0, len(intermediates))
	for _, rec := range intermediates {
		cond := make(map[string]interface{}, len(ownerKey))
		for i, attr := range ownerKey {
			if i >= len(targetKey) || rec[attr] == nil {
				cond = nil
				break
			}
			cond[targetKey[i]] = rec[attr]
		}
		if cond != nil {
			if source.InversePolymorphic && source.TypeColumn != "" {
				cond[source.TypeColumn] = middle.name
			}
			sets = append(sets, cond)
		}
	}
	return scoped(q.WhereAny(sets), assoc, owner), nil
}

func scoped(q store.Query, assoc *model.Association, owner store.Record) store.Query {
	if assoc.Scope == nil {
		return q
	}
	if assoc.ScopeArity == 0 {
		return assoc.Scope(q, nil)
	}
	return assoc.Scope(q, owner)
}

func nothing(q store.Query, key []string) store.Query {
	if len(key) == 0 {
		return q.WhereAny(nil)
	}
	return q.Where(map[string]interface{}{key[0]: []interface{}{}})
}
