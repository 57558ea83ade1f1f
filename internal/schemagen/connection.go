package schemagen

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"modelql/internal/artifact"
	"modelql/internal/cursor"
	"modelql/internal/naming"
	"modelql/internal/registry"
	"modelql/internal/store"
)

// Pagination argument names.
const (
	argFirst  = "first"
	argAfter  = "after"
	argLast   = "last"
	argBefore = "before"
)

func newPageInfo() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "PageInfo",
		Fields: graphql.Fields{
			"hasNextPage": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
			},
			"hasPreviousPage": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
			},
			"startCursor": &graphql.Field{
				Type: graphql.String,
			},
			"endCursor": &graphql.Field{
				Type: graphql.String,
			},
		},
	})
}

// Edge returns "<Model>Edge".
func (m *Model) Edge() (*artifact.Object, error) {
	return registry.GetOrCreate(m.g.reg, registry.KindEdge, m.name, func() (*artifact.Object, error) {
		node, err := m.Type()
		if err != nil {
			return nil, err
		}
		edge := artifact.NewObject(m.name+naming.EdgeSuffix, "", m.g.decorators)
		fields := []artifact.Field{
			{Name: "cursor", Type: graphql.NewNonNull(graphql.String)},
			{Name: "node", Type: graphql.NewNonNull(node.Type())},
		}
		for _, f := range fields {
			f.Signature = store.Signature("edge", f.Name)
			if err := edge.AddField(f); err != nil {
				return nil, err
			}
		}
		return edge, nil
	})
}

// Connection returns "<Model>Connection".
func (m *Model) Connection() (*artifact.Object, error) {
	return registry.GetOrCreate(m.g.reg, registry.KindConnection, m.name, func() (*artifact.Object, error) {
		node, err := m.Type()
		if err != nil {
			return nil, err
		}
		edge, err := m.Edge()
		if err != nil {
			return nil, err
		}
		conn := artifact.NewObject(m.name+naming.ConnectionSuffix, fmt.Sprintf("A page of %s records.", m.name), m.g.decorators)
		fields := []artifact.Field{
			{Name: "edges", Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(edge.Type())))},
			{Name: "nodes", Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(node.Type())))},
			{Name: "pageInfo", Type: graphql.NewNonNull(m.g.pageInfo)},
			{Name: "totalCount", Type: graphql.NewNonNull(graphql.Int)},
		}
		for _, f := range fields {
			f.Signature = store.Signature("connection", f.Name)
			if err := conn.AddField(f); err != nil {
				return nil, err
			}
		}
		return conn, nil
	})
}

// withConnectionArgs adds the pagination arguments to a criteria argument
// set.
func withConnectionArgs(args graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	out := graphql.FieldConfigArgument{
		argFirst:  &graphql.ArgumentConfig{Type: graphql.Int},
		argAfter:  &graphql.ArgumentConfig{Type: graphql.String},
		argLast:   &graphql.ArgumentConfig{Type: graphql.Int},
		argBefore: &graphql.ArgumentConfig{Type: graphql.String},
	}
	for name, arg := range args {
		out[name] = arg
	}
	return out
}

func paginationArgs(args map[string]interface{}) cursor.Args {
	var out cursor.Args
	if v, ok := args[argFirst].(int); ok {
		out.First = &v
	}
	if v, ok := args[argLast].(int); ok {
		out.Last = &v
	}
	out.After, _ = args[argAfter].(string)
	out.Before, _ = args[argBefore].(string)
	return out
}

// finishConnection pages the value with the pagination arguments. Cursors
// are offsets into the ordered result.
func (m *Model) finishConnection(p graphql.ResolveParams, value interface{}) (interface{}, error) {
	args := paginationArgs(p.Args)

	var records []store.Record
	var window cursor.Window
	var total int
	switch v := value.(type) {
	case store.Query:
		var err error
		if total, err = v.Count(p.Context); err != nil {
			return nil, err
		}
		if window, err = cursor.Resolve(m.name, args, total); err != nil {
			return nil, err
		}
		if window.Limit() > 0 {
			if records, err = v.Page(window.Limit(), window.Start).All(p.Context); err != nil {
				return nil, err
			}
		}
	case []store.Record:
		var err error
		total = len(v)
		if window, err = cursor.Resolve(m.name, args, total); err != nil {
			return nil, err
		}
		records = v[window.Start:window.End]
	case nil:
	default:
		return nil, fmt.Errorf("%s connection cannot page %T", m.name, value)
	}
	return m.connection(records, window, total), nil
}

func (m *Model) connection(records []store.Record, window cursor.Window, total int) map[string]interface{} {
	if records == nil {
		records = []store.Record{}
	}
	edges := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		edges[i] = map[string]interface{}{
			"cursor": cursor.Encode(m.name, window.Start+i),
			"node":   rec,
		}
	}

	var startCursor, endCursor interface{}
	if len(edges) > 0 {
		startCursor = edges[0]["cursor"]
		endCursor = edges[len(edges)-1]["cursor"]
	}
	return map[string]interface{}{
		"edges": edges,
		"nodes": records,
		"pageInfo": map[string]interface{}{
			"hasNextPage":     window.HasNext,
			"hasPreviousPage": window.HasPrevious,
			"startCursor":     startCursor,
			"endCursor":       endCursor,
		},
		"totalCount": total,
	}
}
