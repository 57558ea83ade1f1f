// Package registry caches generated schema artifacts by (kind, name) so each
// artifact is built at most once per process, even when models reference each
// other.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrFrozen is returned when a missing artifact is requested after Freeze.
	ErrFrozen = errors.New("registry is frozen")
	// ErrReentrant is returned when a build requests its own key.
	ErrReentrant = errors.New("artifact requested by its own build")
)

// Kind is an artifact namespace.
type Kind string

const (
	KindType            Kind = "type"
	KindInput           Kind = "input"
	KindFilter          Kind = "filter"
	KindSort            Kind = "sort"
	KindGrouping        Kind = "grouping"
	KindEdge            Kind = "edge"
	KindConnection      Kind = "connection"
	KindEnum            Kind = "enum"
	KindResolver        Kind = "resolver"
	KindQuery           Kind = "query"
	KindConnectionQuery Kind = "connection_query"
)

// Freezer is implemented by artifacts that stop accepting changes once the
// schema is served.
type Freezer interface {
	Freeze()
}

// Registry is a process-wide artifact cache.
type Registry struct {
	mu        sync.RWMutex
	artifacts map[string]any
	order     []string
	frozen    bool
	group     singleflight.Group
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{artifacts: make(map[string]any)}
}

func key(kind Kind, name string) string {
	return string(kind) + ":" + name
}

// Lookup returns a registered artifact.
func (r *Registry) Lookup(kind Kind, name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	artifact, ok := r.artifacts[key(kind, name)]
	return artifact, ok
}

// GetOrCreate returns the artifact registered under (kind, name), invoking
// build exactly once when it is missing. Concurrent callers for the same key
// share one build. A failed build registers nothing.
//
// build must not request its own key through GetOrCreate: the nested call
// waits on the build it is part of. Builds that may recurse use
// GetOrCreateContext and pass on the context they receive.
func GetOrCreate[T any](r *Registry, kind Kind, name string, build func() (T, error)) (T, error) {
	return GetOrCreateContext(context.Background(), r, kind, name, func(context.Context) (T, error) {
		return build()
	})
}

// buildChain lists the keys being built by the calling chain, innermost first.
type buildChain struct {
	reg    *Registry
	key    string
	parent *buildChain
}

type chainKey struct{}

func chainFrom(ctx context.Context) *buildChain {
	c, _ := ctx.Value(chainKey{}).(*buildChain)
	return c
}

// GetOrCreateContext is GetOrCreate for builds that receive a context. A
// request for a key already being built further up the same context chain
// fails with ErrReentrant instead of blocking.
func GetOrCreateContext[T any](ctx context.Context, r *Registry, kind Kind, name string, build func(context.Context) (T, error)) (T, error) {
	var zero T
	k := key(kind, name)

	r.mu.RLock()
	existing, ok := r.artifacts[k]
	frozen := r.frozen
	r.mu.RUnlock()
	if ok {
		return cast[T](existing, k)
	}
	if frozen {
		return zero, fmt.Errorf("%w: %s", ErrFrozen, k)
	}

	parent := chainFrom(ctx)
	for c := parent; c != nil; c = c.parent {
		if c.reg == r && c.key == k {
			return zero, fmt.Errorf("%w: %s", ErrReentrant, k)
		}
	}
	buildCtx := context.WithValue(ctx, chainKey{}, &buildChain{reg: r, key: k, parent: parent})

	v, err, _ := r.group.Do(k, func() (interface{}, error) {
		r.mu.RLock()
		existing, ok := r.artifacts[k]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		built, err := build(buildCtx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.artifacts[k]; ok {
			return existing, nil
		}
		r.artifacts[k] = built
		r.order = append(r.order, k)
		return built, nil
	})
	if err != nil {
		return zero, fmt.Errorf("build %s: %w", k, err)
	}
	return cast[T](v, k)
}

func cast[T any](v any, k string) (T, error) {
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("artifact %s has type %T", k, v)
	}
	return typed, nil
}

// Freeze stops new registrations and freezes every artifact that supports it.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	for _, k := range r.order {
		if f, ok := r.artifacts[k].(Freezer); ok {
			f.Freeze()
		}
	}
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Reset drops every artifact. Used for full reloads.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts = make(map[string]any)
	r.order = nil
	r.frozen = false
}

// Len returns the number of registered artifacts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.artifacts)
}
