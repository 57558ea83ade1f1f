package model

import (
	"testing"

	"modelql/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociationKeys(t *testing.T) {
	belongs := &Association{Name: "first", Macro: BelongsTo, Target: "firsts", ForeignKey: []string{"first_id"}, PrimaryKey: []string{"id"}}
	many := &Association{Name: "seconds", Macro: HasMany, Target: "seconds", ForeignKey: []string{"first_id"}, PrimaryKey: []string{"id"}}

	assert.Equal(t, One, belongs.Cardinality())
	assert.Equal(t, []string{"first_id"}, belongs.OwnerKey())
	assert.Equal(t, []string{"id"}, belongs.TargetKey())

	assert.Equal(t, Many, many.Cardinality())
	assert.Equal(t, []string{"id"}, many.OwnerKey())
	assert.Equal(t, []string{"first_id"}, many.TargetKey())
}

func TestAssociationBatchable(t *testing.T) {
	scope := func(q store.Query, _ store.Record) store.Query { return q }

	tests := []struct {
		name  string
		assoc Association
		want  bool
	}{
		{"plain", Association{Macro: HasMany, ForeignKey: []string{"first_id"}, PrimaryKey: []string{"id"}}, true},
		{"polymorphic", Association{Macro: BelongsTo, Polymorphic: true, ForeignKey: []string{"owner_id"}, PrimaryKey: []string{"id"}}, false},
		{"inverse polymorphic", Association{Macro: HasMany, InversePolymorphic: true, ForeignKey: []string{"owner_id"}, PrimaryKey: []string{"id"}}, false},
		{"through", Association{Macro: HasMany, Through: "seconds", ForeignKey: []string{"second_id"}, PrimaryKey: []string{"id"}}, false},
		{"arity zero scope", Association{Macro: HasMany, Scope: scope, ForeignKey: []string{"first_id"}, PrimaryKey: []string{"id"}}, true},
		{"arity one scope", Association{Macro: HasMany, Scope: scope, ScopeArity: 1, ForeignKey: []string{"first_id"}, PrimaryKey: []string{"id"}}, false},
		{"composite key", Association{Macro: HasMany, ForeignKey: []string{"a", "b"}, PrimaryKey: []string{"x", "y"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assoc := tt.assoc
			assert.Equal(t, tt.want, assoc.Batchable())
		})
	}
}

func TestAssociationJoinable(t *testing.T) {
	tests := []struct {
		name  string
		assoc Association
		want  bool
	}{
		{"belongs to", Association{Macro: BelongsTo}, true},
		{"has one", Association{Macro: HasOne}, true},
		{"has many", Association{Macro: HasMany}, false},
		{"through", Association{Macro: HasOne, Through: "seconds"}, false},
		{"polymorphic", Association{Macro: BelongsTo, Polymorphic: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assoc := tt.assoc
			assert.Equal(t, tt.want, assoc.Joinable())
		})
	}
}

func TestEnumValues(t *testing.T) {
	values := EnumValues{{Key: "inactive", Value: 0}, {Key: "active", Value: 1}, {Key: "discontinued", Value: 2}}

	assert.Equal(t, []string{"inactive", "active", "discontinued"}, values.Keys())

	key, ok := values.KeyFor(int64(2))
	require.True(t, ok)
	assert.Equal(t, "discontinued", key)

	key, ok = values.KeyFor([]byte("1"))
	require.True(t, ok)
	assert.Equal(t, "active", key)

	_, ok = values.KeyFor(nil)
	assert.False(t, ok)

	stored, ok := values.ValueFor("active")
	require.True(t, ok)
	assert.Equal(t, 1, stored)
}

func TestScopeArgumentName(t *testing.T) {
	assert.Equal(t, "name", Scope{Suffix: "_is"}.ArgumentName("name"))
	assert.Equal(t, "name_starts_with", Scope{Suffix: "_starts_with"}.ArgumentName("name"))
	assert.Equal(t, "sort_by_name", Scope{Prefix: "sort_by_"}.ArgumentName("name"))
}

func TestListTypes(t *testing.T) {
	assert.True(t, IsListType("[string]"))
	assert.False(t, IsListType("string"))
	assert.Equal(t, "string", ElemType("[string]"))
	assert.Equal(t, "integer", ElemType("integer"))
}

func TestCatalog(t *testing.T) {
	first := NewDescriptor("firsts", "First")
	second := NewDescriptor("seconds", "")

	catalog, err := NewCatalog(first, second)
	require.NoError(t, err)

	got, ok := catalog.Lookup("seconds")
	require.True(t, ok)
	assert.Equal(t, "seconds", got.DisplayName)
	assert.Equal(t, []*Descriptor{first, second}, catalog.All())

	err = catalog.Add(NewDescriptor("firsts", "Other"))
	assert.Error(t, err)
}

func TestFieldSpecAttribute(t *testing.T) {
	assert.Equal(t, "id", FieldSpec{Name: "alias_id", As: "id"}.Attribute())
	assert.Equal(t, "name", FieldSpec{Name: "name"}.Attribute())
	assert.False(t, FieldSpec{Name: "name"}.HasReadTransforms())
}
