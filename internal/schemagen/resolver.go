package schemagen

import (
	"context"
	"sync"

	"github.com/graphql-go/graphql"

	"modelql/internal/store"
)

// Hook post-processes a resolved value. Hooks receive the field arguments
// through p and return the value handed to the next hook. Depending on the
// resolver the value is a store.Query, a store.Record or a []store.Record.
type Hook func(p graphql.ResolveParams, value interface{}) (interface{}, error)

type baseFunc func(p graphql.ResolveParams) (interface{}, error)

type finishFunc func(p graphql.ResolveParams, value interface{}) (interface{}, error)

type hookEntry struct {
	id int
	fn Hook
}

// Resolver runs the resolution pipeline of a generated field: the base step,
// then hooks (inherited ones first, in registration order), then the finish
// step that turns the value into the field result. Base steps may return a
// deferred value; the rest of the pipeline then runs when graphql-go
// resolves it.
type Resolver struct {
	model  *Model
	parent *Resolver
	base   baseFunc
	finish finishFunc

	mu     sync.RWMutex
	hooks  []hookEntry
	nextID int
}

func newResolver(m *Model, parent *Resolver, base baseFunc, finish finishFunc) *Resolver {
	return &Resolver{model: m, parent: parent, base: base, finish: finish}
}

// Model returns the model the resolver yields records of.
func (r *Resolver) Model() *Model { return r.model }

// Use appends a hook and returns a function that removes it.
func (r *Resolver) Use(h Hook) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.hooks = append(r.hooks, hookEntry{id: id, fn: h})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.hooks {
			if e.id == id {
				r.hooks = append(r.hooks[:i:i], r.hooks[i+1:]...)
				return
			}
		}
	}
}

// Hooks returns the hooks of this resolver, excluding inherited ones.
func (r *Resolver) Hooks() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hook, len(r.hooks))
	for i, e := range r.hooks {
		out[i] = e.fn
	}
	return out
}

// Clone returns an independent resolver with a copy of the current hooks.
func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Resolver{
		model:  r.model,
		parent: r.parent,
		base:   r.base,
		finish: r.finish,
		hooks:  append([]hookEntry(nil), r.hooks...),
		nextID: r.nextID,
	}
}

// Args returns the criteria arguments over the resolver model: where, plus
// sort and group when those artifacts have any fields.
func (r *Resolver) Args() graphql.FieldConfigArgument {
	return r.model.criteriaArgs()
}

// Resolve is the graphql-go resolve function of the resolver.
func (r *Resolver) Resolve(p graphql.ResolveParams) (interface{}, error) {
	value, err := r.base(p)
	if err != nil {
		return nil, err
	}
	if deferred, ok := value.(func() (interface{}, error)); ok {
		return func() (interface{}, error) {
			v, err := deferred()
			if err != nil {
				return nil, err
			}
			return r.complete(p, v)
		}, nil
	}
	return r.complete(p, value)
}

func (r *Resolver) complete(p graphql.ResolveParams, value interface{}) (interface{}, error) {
	value, err := r.runHooks(p, value)
	if err != nil {
		return nil, err
	}
	return r.finish(p, value)
}

func (r *Resolver) runHooks(p graphql.ResolveParams, value interface{}) (interface{}, error) {
	var err error
	if r.parent != nil {
		if value, err = r.parent.runHooks(p, value); err != nil {
			return nil, err
		}
	}
	hooks := append(r.Hooks(), requestHooks(p.Context, r)...)
	for _, h := range hooks {
		if value, err = h(p, value); err != nil {
			return nil, err
		}
	}
	return value, nil
}

type hooksContextKey struct{}

// WithHooks scopes extra hooks on r to the requests carrying ctx. They run
// after the hooks registered with Use.
func WithHooks(ctx context.Context, r *Resolver, hooks ...Hook) context.Context {
	existing, _ := ctx.Value(hooksContextKey{}).(map[*Resolver][]Hook)
	next := make(map[*Resolver][]Hook, len(existing)+1)
	for k, v := range existing {
		next[k] = v
	}
	next[r] = append(append([]Hook(nil), next[r]...), hooks...)
	return context.WithValue(ctx, hooksContextKey{}, next)
}

func requestHooks(ctx context.Context, r *Resolver) []Hook {
	if ctx == nil {
		return nil
	}
	scoped, _ := ctx.Value(hooksContextKey{}).(map[*Resolver][]Hook)
	return scoped[r]
}

func sourceValue(p graphql.ResolveParams) (interface{}, error) {
	return p.Source, nil
}

func passThrough(_ graphql.ResolveParams, value interface{}) (interface{}, error) {
	return value, nil
}

// finishOne yields a single record, or nil when there is none.
func finishOne(p graphql.ResolveParams, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case store.Query:
		rec, err := v.First(p.Context)
		if err != nil || rec == nil {
			return nil, err
		}
		return rec, nil
	case []store.Record:
		if len(v) == 0 {
			return nil, nil
		}
		return v[0], nil
	case store.Record:
		if v == nil {
			return nil, nil
		}
		return v, nil
	default:
		return value, nil
	}
}

// finishMany yields a record list, empty when there are none.
func finishMany(p graphql.ResolveParams, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return []store.Record{}, nil
	case store.Query:
		records, err := v.All(p.Context)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []store.Record{}
		}
		return records, nil
	case store.Record:
		if v == nil {
			return []store.Record{}, nil
		}
		return []store.Record{v}, nil
	default:
		return value, nil
	}
}

func asRecord(source interface{}) store.Record {
	switch v := source.(type) {
	case store.Record:
		return v
	case map[string]interface{}:
		return store.Record(v)
	default:
		return nil
	}
}
