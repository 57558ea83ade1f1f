package model

import (
	"strings"

	"modelql/internal/store"
)

// ScopeKind classifies a derived scope.
type ScopeKind int

const (
	// PlainScope becomes a filter argument typed from its attribute or ArgType.
	PlainScope ScopeKind = iota
	// EnumScope becomes a filter argument typed by the attribute's enum.
	EnumScope
	// SortScope only orders records and never becomes a filter argument.
	SortScope
)

// Scope is a named query predicate derived from an attribute.
type Scope struct {
	Attribute string
	Name      string
	Prefix    string
	Suffix    string
	Kind      ScopeKind
	Operator  store.Operator
	// ArgType overrides the argument type. "[T]" denotes a list of T.
	ArgType string
}

// ArgumentName builds the snake_case filter argument name for a field,
// collapsing the "_is" suffix.
func (s Scope) ArgumentName(field string) string {
	suffix := s.Suffix
	if suffix == "_is" {
		suffix = ""
	}
	return s.Prefix + field + suffix
}

// IsListType reports whether a native type name is list-wrapped.
func IsListType(native string) bool {
	return strings.HasPrefix(native, "[") && strings.HasSuffix(native, "]")
}

// ElemType strips one list wrapper from a native type name.
func ElemType(native string) string {
	if IsListType(native) {
		return strings.TrimSpace(native[1 : len(native)-1])
	}
	return native
}
