// Package store defines the query surface the schema generator drives. Record
// sources (SQL or otherwise) implement Source and Query; the optional
// filter/sort/grouping transforms live behind Transformer so that sources
// without them return NopTransformer.
package store

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by transforms a source cannot express.
var ErrUnsupported = errors.New("unsupported by store")

// Record is one stored row keyed by attribute name.
type Record map[string]interface{}

// Query is an immutable, composable query over one model's records. Every
// narrowing method returns a new Query and leaves the receiver untouched.
type Query interface {
	// Where keeps records whose attributes equal the given values. A slice
	// value matches any of its elements.
	Where(conds map[string]interface{}) Query
	// WhereAny keeps records matching at least one condition set.
	WhereAny(conds []map[string]interface{}) Query
	// Not drops records matching all given conditions.
	Not(conds map[string]interface{}) Query
	// Page limits the result window. A negative limit means unbounded.
	Page(limit, offset int) Query

	All(ctx context.Context) ([]Record, error)
	// First returns the first record or nil when none match.
	First(ctx context.Context) (Record, error)
	Count(ctx context.Context) (int, error)
}

// Transformer applies structured criteria decoded from GraphQL arguments.
type Transformer interface {
	ApplyFilters(q Query, f Filter) (Query, error)
	ApplySorts(q Query, sorts []Sort) (Query, error)
	ApplyGroupings(q Query, groups []Group) (Query, error)
}

// NopTransformer leaves every query unchanged.
type NopTransformer struct{}

func (NopTransformer) ApplyFilters(q Query, _ Filter) (Query, error) { return q, nil }
func (NopTransformer) ApplySorts(q Query, _ []Sort) (Query, error) { return q, nil }
func (NopTransformer) ApplyGroupings(q Query, _ []Group) (Query, error) { return q, nil }

// Source opens queries by model name.
type Source interface {
	From(model string) (Query, error)
	Transformer() Transformer
}

// Writer persists new records. Implementations return the stored record,
// including generated keys.
type Writer interface {
	Insert(ctx context.Context, model string, values map[string]interface{}) (Record, error)
}
