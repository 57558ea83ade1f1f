// Package typemap maps native column types to GraphQL scalar types through a
// configurable table.
package typemap

import (
	"strings"
	"sync"

	"modelql/internal/model"
	"modelql/internal/scalars"

	"github.com/graphql-go/graphql"
)

// DefaultMappings is the built-in native type -> scalar name table.
func DefaultMappings() map[string]string {
	return map[string]string{
		"string":    "String",
		"text":      "String",
		"citext":    "String",
		"uuid":      "String",
		"binary":    "String",
		"date":      "Date",
		"time":      "DateTime",
		"datetime":  "DateTime",
		"timestamp": "DateTime",
		"integer":   "Int",
		"bigint":    "BigInt",
		"float":     "Float",
		"decimal":   "Float",
		"boolean":   "Boolean",
		"json":      "JSON",
	}
}

// Mapper resolves native type names to GraphQL types. Mappings are written at
// startup and read concurrently afterwards.
type Mapper struct {
	mu       sync.RWMutex
	mappings map[string]string
	scalars  map[string]graphql.Type
}

// New creates a Mapper seeded with DefaultMappings plus overrides.
func New(overrides map[string]string) *Mapper {
	m := &Mapper{
		mappings: DefaultMappings(),
		scalars: map[string]graphql.Type{
			"String":   graphql.String,
			"Int":      graphql.Int,
			"Float":    graphql.Float,
			"Boolean":  graphql.Boolean,
			"ID":       graphql.ID,
			"Date":     scalars.Date(),
			"DateTime": scalars.DateTime(),
			"JSON":     scalars.JSON(),
			"BigInt":   scalars.BigInt(),
		},
	}
	for native, scalar := range overrides {
		m.mappings[strings.ToLower(native)] = scalar
	}
	return m
}

// SetMapping maps a native type to a scalar name.
func (m *Mapper) SetMapping(native, scalar string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappings[strings.ToLower(native)] = scalar
}

// RegisterType makes a named schema type resolvable by name.
func (m *Mapper) RegisterType(t graphql.Type) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scalars[t.Name()] = t
}

// KnownScalar reports whether a scalar name resolves.
func (m *Mapper) KnownScalar(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.scalars[name]
	return ok
}

// Map resolves a native type name. Names missing from the table pass through
// unchanged and resolve if they name a known schema type. A "[T]" name maps
// element-wise to a list of non-null elements. Map returns nil when nothing
// resolves.
func (m *Mapper) Map(native string) graphql.Type {
	native = strings.TrimSpace(native)
	if model.IsListType(native) {
		elem := m.Map(model.ElemType(native))
		if elem == nil {
			return nil
		}
		return graphql.NewList(graphql.NewNonNull(elem))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	name := native
	if mapped, ok := m.mappings[strings.ToLower(native)]; ok {
		name = mapped
	}
	if t, ok := m.scalars[name]; ok {
		return t
	}
	return nil
}

// Input resolves a native type usable as an argument type.
func (m *Mapper) Input(native string) graphql.Input {
	t := m.Map(native)
	if t == nil || !graphql.IsInputType(t) {
		return nil
	}
	return t
}

// Output resolves a native type usable as a field type.
func (m *Mapper) Output(native string) graphql.Output {
	t := m.Map(native)
	if t == nil || !graphql.IsOutputType(t) {
		return nil
	}
	return t
}
