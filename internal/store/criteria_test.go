package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterIsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "zero", filter: Filter{}, want: true},
		{name: "predicate", filter: Filter{Predicates: []Predicate{{Attribute: "name", Operator: OpEq, Value: "x"}}}},
		{name: "related", filter: Filter{Related: []RelatedFilter{{Association: "seconds"}}}},
		{name: "or only", filter: Filter{Or: []Filter{{}}}},
		{name: "and only", filter: Filter{And: []Filter{{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.IsEmpty())
		})
	}
}

func TestSignature(t *testing.T) {
	a := Signature("seconds", []string{"first_id"}, map[string]interface{}{"b": 1, "a": 2})
	b := Signature("seconds", []string{"first_id"}, map[string]interface{}{"a": 2, "b": 1})
	assert.Equal(t, a, b, "map key order must not change the signature")

	sorted := Signature("seconds", []Sort{{Path: []string{"name"}, Descending: true}})
	unsorted := Signature("seconds", []Sort{{Path: []string{"name"}}})
	assert.NotEqual(t, sorted, unsorted)

	// values encoding/json rejects still yield a key
	assert.NotEmpty(t, Signature(make(chan int)))
}

func TestNopTransformer(t *testing.T) {
	var q Query
	var tr Transformer = NopTransformer{}

	got, err := tr.ApplyFilters(q, Filter{Predicates: []Predicate{{Attribute: "id", Operator: OpGt, Value: 1}}})
	require.NoError(t, err)
	assert.Equal(t, q, got)

	got, err = tr.ApplySorts(q, []Sort{{Path: []string{"id"}}})
	require.NoError(t, err)
	assert.Equal(t, q, got)

	got, err = tr.ApplyGroupings(q, []Group{{Path: []string{"id"}}})
	require.NoError(t, err)
	assert.Equal(t, q, got)
}
