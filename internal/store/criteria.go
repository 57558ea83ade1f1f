package store

import (
	"encoding/json"
	"fmt"
)

// Operator names the comparison a predicate performs.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNot        Operator = "not"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpIsNull     Operator = "is_null"
	// OpRelated matches records with at least one associated record
	// satisfying a nested filter.
	OpRelated Operator = "related"
)

// Predicate compares one attribute against a value.
type Predicate struct {
	Attribute string      `json:"attribute"`
	Operator  Operator    `json:"operator"`
	Value     interface{} `json:"value"`
}

// RelatedFilter narrows by records reachable through an association.
type RelatedFilter struct {
	Association string `json:"association"`
	Filter      Filter `json:"filter"`
}

// Filter is a conjunction of predicates and related filters, combined with
// nested OR/AND groups.
type Filter struct {
	Predicates []Predicate     `json:"predicates,omitempty"`
	Related    []RelatedFilter `json:"related,omitempty"`
	Or         []Filter        `json:"or,omitempty"`
	And        []Filter        `json:"and,omitempty"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return len(f.Predicates) == 0 && len(f.Related) == 0 && len(f.Or) == 0 && len(f.And) == 0
}

// Sort orders by an attribute reached through zero or more associations.
// Path holds association names followed by the attribute.
type Sort struct {
	Path       []string `json:"path"`
	Descending bool     `json:"desc,omitempty"`
}

// Group groups by an attribute reached through zero or more associations.
type Group struct {
	Path []string `json:"path"`
}

// Signature renders criteria into a stable string usable as a cache key.
// encoding/json sorts map keys, so equal criteria produce equal signatures.
func Signature(parts ...interface{}) string {
	raw, err := json.Marshal(parts)
	if err != nil {
		return fmt.Sprintf("%v", parts)
	}
	return string(raw)
}
