// Package artifact provides mutable builders for generated GraphQL object and
// input types. Builders accept fields until frozen; the underlying graphql-go
// types read them through thunks, so a type can be referenced (including by
// itself) before its fields are known.
package artifact

import (
	"errors"
	"fmt"
	"sync"

	"github.com/graphql-go/graphql"
)

var (
	// ErrConflict is returned when a name is registered twice with different
	// definitions.
	ErrConflict = errors.New("conflicting definition")
	// ErrFrozen is returned when adding to a frozen builder.
	ErrFrozen = errors.New("artifact is frozen")
)

// FieldDecorator customizes every materialized output field.
type FieldDecorator func(owner string, field *graphql.Field)

// ArgumentDecorator customizes every materialized argument and input field.
type ArgumentDecorator func(owner, name string, arg *graphql.ArgumentConfig)

// Decorators are applied when builders materialize their fields.
type Decorators struct {
	Field    FieldDecorator
	Argument ArgumentDecorator
}

// Field is an output field definition.
type Field struct {
	Name        string
	Description string
	Type        graphql.Output
	// Args is evaluated at materialization so argument sets may depend on
	// registrations made after the field was added.
	Args    func() graphql.FieldConfigArgument
	Resolve graphql.FieldResolveFn
	// Signature identifies the definition for duplicate detection. Two fields
	// with equal names and signatures are the same field.
	Signature string
	Meta      interface{}
}

// InputField is an input object field definition.
type InputField struct {
	Name         string
	Description  string
	Type         graphql.Input
	DefaultValue interface{}
	Signature    string
	Meta         interface{}
}

type entries[T any] struct {
	mu     sync.RWMutex
	items  []T
	index  map[string]int
	frozen bool
}

func (e *entries[T]) add(owner, name, signature string, item T, sigOf func(T) string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen {
		return fmt.Errorf("%w: %s.%s", ErrFrozen, owner, name)
	}
	if e.index == nil {
		e.index = make(map[string]int)
	}
	if i, ok := e.index[name]; ok {
		if sigOf(e.items[i]) == signature {
			return nil
		}
		return fmt.Errorf("%w: %s.%s", ErrConflict, owner, name)
	}
	e.index[name] = len(e.items)
	e.items = append(e.items, item)
	return nil
}

func (e *entries[T]) get(name string) (T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var zero T
	i, ok := e.index[name]
	if !ok {
		return zero, false
	}
	return e.items[i], true
}

func (e *entries[T]) list() []T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]T(nil), e.items...)
}

func (e *entries[T]) len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

func (e *entries[T]) freeze() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frozen = true
}

func (e *entries[T]) isFrozen() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frozen
}
