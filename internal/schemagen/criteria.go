package schemagen

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"modelql/internal/store"
)

// Criteria argument names.
const (
	argWhere = "where"
	argSort  = "sort"
	argGroup = "group"
)

type filterKind string

const (
	filterOr        filterKind = "OR"
	filterAnd       filterKind = "AND"
	filterPredicate filterKind = "predicate"
	filterRelated   filterKind = "related"
)

type filterMeta struct {
	kind      filterKind
	attribute string
	operator  store.Operator
	target    *Model
}

// sortMeta and groupMeta describe one sort or grouping argument. A non-nil
// target marks an association whose nested argument continues the path.
type sortMeta struct {
	attribute string
	target    *Model
}

type groupMeta struct {
	attribute string
	target    *Model
}

type criteria struct {
	filter store.Filter
	sorts  []store.Sort
	groups []store.Group
}

// criteriaArgs builds where/sort/group. Sort and group are left out while
// their artifacts have no fields, since empty input objects are invalid.
func (m *Model) criteriaArgs() graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{}
	if filter, err := m.Filter(); err == nil {
		args[argWhere] = &graphql.ArgumentConfig{Type: filter.Type()}
	}
	if sort, err := m.Sort(); err == nil && !sort.Empty() {
		args[argSort] = &graphql.ArgumentConfig{Type: sort.Type()}
	}
	if group, err := m.Grouping(); err == nil && !group.Empty() {
		args[argGroup] = &graphql.ArgumentConfig{Type: group.Type()}
	}
	return args
}

func (m *Model) criteria(args map[string]interface{}) (criteria, error) {
	var c criteria
	var err error
	if raw, ok := args[argWhere].(map[string]interface{}); ok {
		if c.filter, err = m.decodeFilter(raw); err != nil {
			return c, err
		}
	}
	if raw, ok := args[argSort].(map[string]interface{}); ok {
		if c.sorts, err = m.decodeSorts(raw, nil); err != nil {
			return c, err
		}
	}
	if raw, ok := args[argGroup].(map[string]interface{}); ok {
		if c.groups, err = m.decodeGroups(raw, nil); err != nil {
			return c, err
		}
	}
	return c, nil
}

// apply narrows q with the store transforms.
func (m *Model) apply(q store.Query, c criteria) (store.Query, error) {
	t := m.g.source.Transformer()
	if t == nil {
		t = store.NopTransformer{}
	}
	var err error
	if !c.filter.IsEmpty() {
		if q, err = t.ApplyFilters(q, c.filter); err != nil {
			return nil, err
		}
	}
	if len(c.sorts) > 0 {
		if q, err = t.ApplySorts(q, c.sorts); err != nil {
			return nil, err
		}
	}
	if len(c.groups) > 0 {
		if q, err = t.ApplyGroupings(q, c.groups); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// decodeFilter converts a "<Model>Filter" value. Arguments are read in
// registration order so the result is deterministic.
func (m *Model) decodeFilter(raw map[string]interface{}) (store.Filter, error) {
	var f store.Filter
	filter, err := m.Filter()
	if err != nil {
		return f, err
	}
	for _, arg := range filter.Arguments() {
		value, ok := raw[arg.Name]
		if !ok {
			continue
		}
		meta, ok := arg.Meta.(filterMeta)
		if !ok {
			return f, fmt.Errorf("%s.%s has no filter metadata", filter.Name(), arg.Name)
		}
		switch meta.kind {
		case filterOr, filterAnd:
			items, _ := value.([]interface{})
			for _, item := range items {
				sub, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				decoded, err := m.decodeFilter(sub)
				if err != nil {
					return f, err
				}
				if meta.kind == filterOr {
					f.Or = append(f.Or, decoded)
				} else {
					f.And = append(f.And, decoded)
				}
			}
		case filterRelated:
			sub, ok := value.(map[string]interface{})
			if !ok {
				continue
			}
			decoded, err := meta.target.decodeFilter(sub)
			if err != nil {
				return f, err
			}
			f.Related = append(f.Related, store.RelatedFilter{Association: meta.attribute, Filter: decoded})
		default:
			f.Predicates = append(f.Predicates, store.Predicate{
				Attribute: meta.attribute,
				Operator:  meta.operator,
				Value:     value,
			})
		}
	}
	return f, nil
}

func (m *Model) decodeSorts(raw map[string]interface{}, prefix []string) ([]store.Sort, error) {
	sort, err := m.Sort()
	if err != nil {
		return nil, err
	}
	var out []store.Sort
	for _, arg := range sort.Arguments() {
		value, ok := raw[arg.Name]
		if !ok || value == nil {
			continue
		}
		meta, ok := arg.Meta.(sortMeta)
		if !ok {
			return nil, fmt.Errorf("%s.%s has no sort metadata", sort.Name(), arg.Name)
		}
		path := append(append([]string(nil), prefix...), meta.attribute)
		if meta.target != nil {
			nested, ok := value.(map[string]interface{})
			if !ok {
				continue
			}
			sorts, err := meta.target.decodeSorts(nested, path)
			if err != nil {
				return nil, err
			}
			out = append(out, sorts...)
			continue
		}
		direction, _ := value.(string)
		out = append(out, store.Sort{Path: path, Descending: direction == "DESC"})
	}
	return out, nil
}

func (m *Model) decodeGroups(raw map[string]interface{}, prefix []string) ([]store.Group, error) {
	grouping, err := m.Grouping()
	if err != nil {
		return nil, err
	}
	var out []store.Group
	for _, arg := range grouping.Arguments() {
		value, ok := raw[arg.Name]
		if !ok || value == nil {
			continue
		}
		meta, ok := arg.Meta.(groupMeta)
		if !ok {
			return nil, fmt.Errorf("%s.%s has no grouping metadata", grouping.Name(), arg.Name)
		}
		path := append(append([]string(nil), prefix...), meta.attribute)
		if meta.target != nil {
			nested, ok := value.(map[string]interface{})
			if !ok {
				continue
			}
			groups, err := meta.target.decodeGroups(nested, path)
			if err != nil {
				return nil, err
			}
			out = append(out, groups...)
			continue
		}
		if enabled, _ := value.(bool); enabled {
			out = append(out, store.Group{Path: path})
		}
	}
	return out, nil
}
