package schemagen

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelql/internal/cursor"
	"modelql/internal/store"
)

func TestFinishConnectionRecordWindow(t *testing.T) {
	f := newFixture(t, Options{})
	seconds := f.gen.models["seconds"]
	require.NotNil(t, seconds)

	records := []store.Record{{"name": "a"}, {"name": "b"}, {"name": "c"}}
	tests := []struct {
		name string
		args map[string]interface{}
		want []string
		prev bool
		next bool
	}{
		{name: "all", args: map[string]interface{}{}, want: []string{"a", "b", "c"}},
		{name: "after first", args: map[string]interface{}{argAfter: cursor.Encode(seconds.name, 0), argFirst: 1}, want: []string{"b"}, prev: true, next: true},
		{name: "after max offset", args: map[string]interface{}{argAfter: cursor.Encode(seconds.name, math.MaxInt)}, want: []string{}, prev: true},
		{name: "first max", args: map[string]interface{}{argAfter: cursor.Encode(seconds.name, 1), argFirst: math.MaxInt}, want: []string{"c"}, prev: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := seconds.finishConnection(graphql.ResolveParams{Context: context.Background(), Args: tt.args}, records)
			require.NoError(t, err)

			conn := out.(map[string]interface{})
			names := []string{}
			for _, rec := range conn["nodes"].([]store.Record) {
				names = append(names, rec["name"].(string))
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, 3, conn["totalCount"])
			info := conn["pageInfo"].(map[string]interface{})
			assert.Equal(t, tt.prev, info["hasPreviousPage"])
			assert.Equal(t, tt.next, info["hasNextPage"])
		})
	}
}

func TestConnectionCursorPastEnd(t *testing.T) {
	f := newFixture(t, Options{})
	after := cursor.Encode(f.gen.models["seconds"].name, math.MaxInt)

	data := f.do(t, nil, fmt.Sprintf(`{ secondConnection(after: %q) { nodes { name } totalCount pageInfo { hasPreviousPage hasNextPage } } }`, after))
	conn := data["secondConnection"].(map[string]interface{})
	assert.Empty(t, nodeNames(t, conn))
	assert.Equal(t, 5, conn["totalCount"])
	assert.Equal(t, map[string]interface{}{"hasPreviousPage": true, "hasNextPage": false}, conn["pageInfo"])
}
