package typemap

import (
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDefaults(t *testing.T) {
	m := New(nil)

	tests := []struct {
		native string
		want   string
	}{
		{"string", "String"},
		{"text", "String"},
		{"date", "Date"},
		{"datetime", "DateTime"},
		{"timestamp", "DateTime"},
		{"integer", "Int"},
		{"bigint", "BigInt"},
		{"BIGINT", "BigInt"},
		{"decimal", "Float"},
		{"boolean", "Boolean"},
		{"DATETIME", "DateTime"},
	}

	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			got := m.Map(tt.native)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Name())
		})
	}
}

func TestMapPassThrough(t *testing.T) {
	m := New(nil)

	assert.Equal(t, graphql.ID, m.Map("ID"))
	assert.Equal(t, graphql.String, m.Map("String"))
	assert.Nil(t, m.Map("geometry"))

	custom := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Point",
		Fields: graphql.Fields{"x": &graphql.Field{Type: graphql.Float}},
	})
	m.RegisterType(custom)
	assert.Equal(t, custom, m.Map("Point"))
	assert.Nil(t, m.Input("Point"))
	assert.Equal(t, custom, m.Output("Point"))
}

func TestMapList(t *testing.T) {
	m := New(nil)

	got := m.Map("[string]")
	list, ok := got.(*graphql.List)
	require.True(t, ok)
	nonNull, ok := list.OfType.(*graphql.NonNull)
	require.True(t, ok)
	assert.Equal(t, graphql.String, nonNull.OfType)
	assert.Equal(t, "[String!]", got.String())

	assert.Nil(t, m.Map("[geometry]"))
}

func TestOverrides(t *testing.T) {
	m := New(map[string]string{"Decimal": "String", "uuid": "ID"})

	assert.Equal(t, graphql.String, m.Map("decimal"))
	assert.Equal(t, graphql.ID, m.Map("uuid"))

	m.SetMapping("bigint", "Int")
	assert.Equal(t, graphql.Int, m.Map("bigint"))
	assert.True(t, m.KnownScalar("JSON"))
	assert.False(t, m.KnownScalar("Money"))
}

func TestSharedScalarInstances(t *testing.T) {
	m := New(nil)

	assert.Same(t, m.Map("date"), m.Map("Date"))
}

func TestBigIntKeepsSixtyFourBits(t *testing.T) {
	m := New(nil)
	scalar, ok := m.Map("bigint").(*graphql.Scalar)
	require.True(t, ok)

	assert.Equal(t, "4294967296", scalar.Serialize(int64(1)<<32))
	assert.Nil(t, graphql.Int.Serialize(int64(1)<<32))
}
