package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
)

// operation describes the GraphQL operation a request selects.
type operation struct {
	Type      string
	Name      string
	Fields    int
	Depth     int
	Variables int
}

type operationKey struct{}

type requestEnvelope struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName"`
}

// inspectOperation parses the operation carried by r and caches it on the
// returned request, so stacked middleware parse each body once. A nil
// operation means the request carries no executable document.
func inspectOperation(r *http.Request) (*http.Request, *operation) {
	if op, ok := r.Context().Value(operationKey{}).(*operation); ok {
		return r, op
	}
	query, name := readEnvelope(r)
	op, err := describeOperation(query, name)
	if err != nil {
		op = nil
	}
	return r.WithContext(context.WithValue(r.Context(), operationKey{}, op)), op
}

// readEnvelope extracts the query and operation name from a GET query string
// or a POST body. The body is restored for the next handler.
func readEnvelope(r *http.Request) (string, string) {
	switch r.Method {
	case http.MethodGet:
		return r.URL.Query().Get("query"), r.URL.Query().Get("operationName")
	case http.MethodPost:
	default:
		return "", ""
	}
	if r.Body == nil {
		return "", ""
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if strings.Contains(r.Header.Get("Content-Type"), "application/graphql") {
		return string(body), ""
	}
	var env requestEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", ""
	}
	return env.Query, env.OperationName
}

func describeOperation(query, operationName string) (*operation, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{Body: []byte(query), Name: "graphql"}),
	})
	if err != nil {
		return nil, err
	}

	fragments := make(map[string]*ast.FragmentDefinition)
	var selected, first *ast.OperationDefinition
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.FragmentDefinition:
			fragments[d.Name.Value] = d
		case *ast.OperationDefinition:
			if first == nil {
				first = d
			}
			if selected == nil && operationName != "" && d.Name != nil && d.Name.Value == operationName {
				selected = d
			}
		}
	}
	if selected == nil && operationName == "" {
		selected = first
	}
	if selected == nil {
		return nil, nil
	}

	op := &operation{
		Type:      string(selected.Operation),
		Variables: len(selected.VariableDefinitions),
	}
	if selected.Name != nil {
		op.Name = selected.Name.Value
	}
	if selected.SelectionSet != nil {
		w := &selectionWalker{fragments: fragments, seen: map[string]bool{}}
		op.Fields, op.Depth = w.walk(selected.SelectionSet, 1)
	}
	return op, nil
}

// selectionWalker counts fields and nesting depth, expanding each named
// fragment at most once.
type selectionWalker struct {
	fragments map[string]*ast.FragmentDefinition
	seen      map[string]bool
}

func (w *selectionWalker) walk(set *ast.SelectionSet, depth int) (fields, maxDepth int) {
	if set == nil {
		return 0, depth - 1
	}
	maxDepth = depth
	merge := func(n, d int) {
		fields += n
		if d > maxDepth {
			maxDepth = d
		}
	}

	for _, selection := range set.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			fields++
			if sel.SelectionSet != nil {
				merge(w.walk(sel.SelectionSet, depth+1))
			}
		case *ast.InlineFragment:
			merge(w.walk(sel.SelectionSet, depth))
		case *ast.FragmentSpread:
			name := sel.Name.Value
			if w.seen[name] {
				continue
			}
			w.seen[name] = true
			if frag, ok := w.fragments[name]; ok {
				merge(w.walk(frag.SelectionSet, depth))
			}
		}
	}
	return fields, maxDepth
}
