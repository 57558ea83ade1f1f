// Package scopes derives the named query predicates available on each model
// attribute. The generator turns every non-sort scope into a filter argument.
package scopes

import (
	"modelql/internal/model"
	"modelql/internal/store"
)

// SortPrefix names sort-only scopes.
const SortPrefix = "sort_by_"

type template struct {
	suffix   string
	operator store.Operator
	list     bool
	argType  string
}

var (
	equality = []template{
		{suffix: "_is", operator: store.OpEq},
		{suffix: "_not", operator: store.OpNot},
		{suffix: "_in", operator: store.OpIn, list: true},
		{suffix: "_not_in", operator: store.OpNotIn, list: true},
	}
	ordering = []template{
		{suffix: "_lt", operator: store.OpLt},
		{suffix: "_lte", operator: store.OpLte},
		{suffix: "_gt", operator: store.OpGt},
		{suffix: "_gte", operator: store.OpGte},
	}
	matching = []template{
		{suffix: "_contains", operator: store.OpContains},
		{suffix: "_starts_with", operator: store.OpStartsWith},
		{suffix: "_ends_with", operator: store.OpEndsWith},
	}
	nullable = template{suffix: "_is_null", operator: store.OpIsNull, argType: "boolean"}
)

var (
	textTypes    = map[string]bool{"string": true, "text": true, "citext": true}
	orderedTypes = map[string]bool{
		"integer": true, "bigint": true, "float": true, "decimal": true,
		"date": true, "time": true, "datetime": true, "timestamp": true,
	}
)

// Derive fills d.Scopes for every column and association. Existing entries
// are kept, so hand-declared scopes win over derived ones.
func Derive(d *model.Descriptor) {
	if d.Scopes == nil {
		d.Scopes = make(map[string][]model.Scope)
	}
	for _, name := range d.ColumnNames() {
		if _, ok := d.Scopes[name]; ok {
			continue
		}
		d.Scopes[name] = ForColumn(name, d.Columns[name], len(d.Enums[name]) > 0)
	}
	for _, name := range d.AssociationNames() {
		if _, ok := d.Scopes[name]; ok {
			continue
		}
		d.Scopes[name] = ForAssociation(name)
	}
}

// ForColumn derives the scopes of one column.
func ForColumn(attribute string, col model.Column, enum bool) []model.Scope {
	kind := model.PlainScope
	if enum {
		kind = model.EnumScope
	}

	templates := append([]template{}, equality...)
	switch {
	case enum:
	case textTypes[col.Type]:
		templates = append(templates, matching...)
	case orderedTypes[col.Type]:
		templates = append(templates, ordering...)
	}

	out := make([]model.Scope, 0, len(templates)+2)
	for _, tmpl := range templates {
		argType := col.Type
		if tmpl.list {
			argType = "[" + col.Type + "]"
		}
		out = append(out, model.Scope{
			Attribute: attribute,
			Name:      attribute + tmpl.suffix,
			Suffix:    tmpl.suffix,
			Kind:      kind,
			Operator:  tmpl.operator,
			ArgType:   argType,
		})
	}
	if col.Nullable {
		out = append(out, model.Scope{
			Attribute: attribute,
			Name:      attribute + nullable.suffix,
			Suffix:    nullable.suffix,
			Kind:      model.PlainScope,
			Operator:  nullable.operator,
			ArgType:   nullable.argType,
		})
	}
	out = append(out, sortScope(attribute))
	return out
}

// ForAssociation derives the scopes of one association: a related-record
// filter typed by the target filter, and a sort scope.
func ForAssociation(attribute string) []model.Scope {
	return []model.Scope{
		{
			Attribute: attribute,
			Name:      attribute + "_is",
			Suffix:    "_is",
			Kind:      model.PlainScope,
			Operator:  store.OpRelated,
		},
		sortScope(attribute),
	}
}

func sortScope(attribute string) model.Scope {
	return model.Scope{
		Attribute: attribute,
		Name:      SortPrefix + attribute,
		Prefix:    SortPrefix,
		Kind:      model.SortScope,
	}
}
