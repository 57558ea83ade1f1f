package schemagen

import (
	"github.com/graphql-go/graphql"

	"modelql/internal/artifact"
	"modelql/internal/model"
	"modelql/internal/naming"
	"modelql/internal/store"
)

// Field registers a declaration on the read side, the write side, or both.
// A declaration with neither flag set is readable.
func (m *Model) Field(spec model.FieldSpec) error {
	if !spec.Readable && !spec.Writable {
		spec.Readable = true
	}
	if spec.Readable {
		if err := m.RegisterReadable(spec); err != nil {
			return err
		}
	}
	if spec.Writable {
		if err := m.RegisterWritable(spec); err != nil {
			return err
		}
	}
	return nil
}

// RegisterReadable adds the output field of spec and its filter, sort and
// grouping arguments. Unresolvable declarations are logged and skipped.
func (m *Model) RegisterReadable(spec model.FieldSpec) error {
	attr := spec.Attribute()
	var err error
	if col, ok := m.desc.Column(attr); ok {
		err = m.registerColumn(spec, col)
	} else if assoc, ok := m.desc.Association(attr); ok {
		err = m.registerAssociation(spec, assoc)
	} else {
		err = m.registerMethod(spec)
	}
	if err != nil {
		return err
	}

	if err := m.registerFilterArgs(spec); err != nil {
		return err
	}
	if err := m.registerSortArg(spec); err != nil {
		return err
	}
	return m.registerGroupingArg(spec)
}

func (m *Model) fieldName(name string) string {
	return m.g.namer.ToGraphQLFieldName(name)
}

func (m *Model) registerColumn(spec model.FieldSpec, col model.Column) error {
	attr := spec.Attribute()
	enumValues, isEnum := m.desc.Enums[attr]
	isEnum = isEnum && len(enumValues) > 0

	var typ graphql.Output
	var err error
	switch {
	case spec.Type != "":
		typ, err = m.g.outputType(spec.Type)
		isEnum = false
	case isEnum:
		typ, err = m.Enum(attr)
	default:
		typ = m.g.mapper.Output(col.Type)
	}
	if err != nil {
		return err
	}
	if typ == nil {
		m.g.warn(m.name, spec.Name, "column type does not map to a GraphQL type")
		return nil
	}

	nullable := col.Nullable
	if spec.Null != nil {
		nullable = *spec.Null
	}
	if !nullable {
		typ = graphql.NewNonNull(typ)
	}

	obj, err := m.Type()
	if err != nil {
		return err
	}
	var values model.EnumValues
	if isEnum {
		values = enumValues
	}
	return obj.AddField(artifact.Field{
		Name:        m.fieldName(spec.Name),
		Description: spec.Description,
		Type:        typ,
		Resolve:     m.attributeResolver(spec, values),
		Signature:   store.Signature("column", attr, typ.String()),
	})
}

func (m *Model) registerMethod(spec model.FieldSpec) error {
	if spec.Type == "" {
		m.g.warn(m.name, spec.Name, "method field requires an explicit type")
		return nil
	}
	typ, err := m.g.outputType(spec.Type)
	if err != nil {
		return err
	}
	if typ == nil {
		m.g.warn(m.name, spec.Name, "method field type does not resolve")
		return nil
	}
	if spec.Null != nil && !*spec.Null {
		typ = graphql.NewNonNull(typ)
	}

	obj, err := m.Type()
	if err != nil {
		return err
	}
	return obj.AddField(artifact.Field{
		Name:        m.fieldName(spec.Name),
		Description: spec.Description,
		Type:        typ,
		Resolve:     m.attributeResolver(spec, nil),
		Signature:   store.Signature("method", spec.Attribute(), typ.String()),
	})
}

// attributeResolver reads an attribute (or method) from the source record,
// running the read transforms and mapping stored enum values to keys.
func (m *Model) attributeResolver(spec model.FieldSpec, enum model.EnumValues) graphql.FieldResolveFn {
	attr := spec.Attribute()
	method := m.desc.Methods[attr]
	return func(p graphql.ResolveParams) (interface{}, error) {
		rec := asRecord(p.Source)
		var value interface{}
		var err error
		if method != nil {
			if value, err = method(p.Context, rec); err != nil {
				return nil, err
			}
		} else if rec != nil {
			value = rec[attr]
		}

		tc := model.TransformContext{Context: p.Context, Source: rec, Args: p.Args, Model: m.name, Field: spec.Name}
		if spec.ReadResolve != nil {
			if value, err = spec.ReadResolve(tc, value); err != nil {
				return nil, err
			}
		}
		if enum != nil {
			if key, ok := enum.KeyFor(value); ok {
				value = key
			}
		}
		if spec.ReadPrepare != nil {
			if value, err = spec.ReadPrepare(tc, value); err != nil {
				return nil, err
			}
		}
		return value, nil
	}
}

func (m *Model) registerAssociation(spec model.FieldSpec, assoc *model.Association) error {
	target, ok := m.g.models[assoc.Target]
	if !ok {
		m.g.warn(m.name, spec.Name, "association target is not a declared model")
		return nil
	}
	targetObj, err := target.Type()
	if err != nil {
		return err
	}
	if targetObj.Len() == 0 {
		m.g.warn(m.name, spec.Name, "association target type has no fields")
		return nil
	}

	obj, err := m.Type()
	if err != nil {
		return err
	}
	many := assoc.Cardinality() == model.Many

	if many && (spec.Connection == nil || *spec.Connection) {
		conn, err := target.Connection()
		if err != nil {
			return err
		}
		resolver, err := m.associationResolver(spec, assoc, target, modeConnection)
		if err != nil {
			return err
		}
		err = obj.AddField(artifact.Field{
			Name:        m.fieldName(spec.Name + naming.ConnectionFieldSuffix),
			Description: spec.Description,
			Type:        graphql.NewNonNull(conn.Type()),
			Args:        func() graphql.FieldConfigArgument { return withConnectionArgs(resolver.Args()) },
			Resolve:     resolver.Resolve,
			Signature:   store.Signature("connection", assoc.Name, assoc.Target),
		})
		if err != nil {
			return err
		}
	}

	nullable := !many
	if spec.Null != nil {
		nullable = *spec.Null
	}
	var typ graphql.Output = targetObj.Type()
	mode := modeOne
	if many {
		typ = graphql.NewList(graphql.NewNonNull(targetObj.Type()))
		mode = modeMany
	}
	if !nullable {
		typ = graphql.NewNonNull(typ)
	}

	resolver, err := m.associationResolver(spec, assoc, target, mode)
	if err != nil {
		return err
	}
	return obj.AddField(artifact.Field{
		Name:        m.fieldName(spec.Name),
		Description: spec.Description,
		Type:        typ,
		Args:        resolver.Args,
		Resolve:     resolver.Resolve,
		Signature:   store.Signature("association", assoc.Name, assoc.Target, typ.String()),
	})
}

// registerFilterArgs turns the non-sort scopes of the attribute into filter
// arguments named <prefix><attribute><suffix>, so an aliased field filters
// under its attribute name. A trailing "_is" is dropped.
func (m *Model) registerFilterArgs(spec model.FieldSpec) error {
	attr := spec.Attribute()
	filter, err := m.Filter()
	if err != nil {
		return err
	}

	for _, sc := range m.desc.Scopes[attr] {
		if sc.Kind == model.SortScope {
			continue
		}
		base := sc.Attribute
		if base == "" {
			base = attr
		}
		name := m.fieldName(sc.ArgumentName(base))
		meta := filterMeta{kind: filterPredicate, attribute: attr, operator: sc.Operator}

		var typ graphql.Input
		switch {
		case sc.Operator == store.OpRelated:
			assoc, ok := m.desc.Association(attr)
			if !ok {
				continue
			}
			target, ok := m.g.models[assoc.Target]
			if !ok {
				continue
			}
			targetFilter, err := target.Filter()
			if err != nil {
				return err
			}
			typ = targetFilter.Type()
			meta.kind = filterRelated
			meta.target = target
		case sc.Kind == model.EnumScope:
			enum, err := m.Enum(attr)
			if err != nil {
				m.g.warn(m.name, spec.Name, "enum scope without enum values")
				continue
			}
			typ = enum
			if model.IsListType(sc.ArgType) {
				typ = graphql.NewList(graphql.NewNonNull(enum))
			}
		default:
			native := sc.ArgType
			if native == "" {
				if col, ok := m.desc.Column(attr); ok {
					native = col.Type
				}
			}
			typ = m.g.mapper.Input(native)
		}
		if typ == nil {
			m.g.warn(m.name, spec.Name, "filter argument "+name+" has no input type")
			continue
		}

		err := filter.AddArgument(artifact.InputField{
			Name:      name,
			Type:      typ,
			Signature: store.Signature("filter", attr, string(sc.Operator), typ.String()),
			Meta:      meta,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) sortable(attr string) bool {
	for _, sc := range m.desc.Scopes[attr] {
		if sc.Kind == model.SortScope {
			return true
		}
	}
	return false
}

// registerSortArg adds a SortDirection argument for columns, or the target
// sort for single-record associations whose target sort has arguments.
func (m *Model) registerSortArg(spec model.FieldSpec) error {
	attr := spec.Attribute()
	if !m.sortable(attr) {
		return nil
	}
	sort, err := m.Sort()
	if err != nil {
		return err
	}

	var typ graphql.Input
	meta := sortMeta{attribute: attr}
	if _, ok := m.desc.Column(attr); ok {
		typ = m.g.sortDirection
	} else if assoc, ok := m.desc.Association(attr); ok {
		if !assoc.Joinable() {
			return nil
		}
		target, ok := m.g.models[assoc.Target]
		if !ok {
			return nil
		}
		targetSort, err := target.Sort()
		if err != nil {
			return err
		}
		if targetSort.Empty() {
			return nil
		}
		typ = targetSort.Type()
		meta.target = target
	} else {
		return nil
	}

	return sort.AddArgument(artifact.InputField{
		Name:      m.fieldName(spec.Name),
		Type:      typ,
		Signature: store.Signature("sort", attr, typ.String()),
		Meta:      meta,
	})
}

// registerGroupingArg adds a Boolean argument for columns, or the target
// grouping for single-record associations whose target grouping has
// arguments.
func (m *Model) registerGroupingArg(spec model.FieldSpec) error {
	attr := spec.Attribute()
	if !m.sortable(attr) {
		return nil
	}
	grouping, err := m.Grouping()
	if err != nil {
		return err
	}

	var typ graphql.Input
	meta := groupMeta{attribute: attr}
	if _, ok := m.desc.Column(attr); ok {
		typ = graphql.Boolean
	} else if assoc, ok := m.desc.Association(attr); ok {
		if !assoc.Joinable() {
			return nil
		}
		target, ok := m.g.models[assoc.Target]
		if !ok {
			return nil
		}
		targetGrouping, err := target.Grouping()
		if err != nil {
			return err
		}
		if targetGrouping.Empty() {
			return nil
		}
		typ = targetGrouping.Type()
		meta.target = target
	} else {
		return nil
	}

	return grouping.AddArgument(artifact.InputField{
		Name:      m.fieldName(spec.Name),
		Type:      typ,
		Signature: store.Signature("group", attr, typ.String()),
		Meta:      meta,
	})
}

type inputMeta struct {
	spec   model.FieldSpec
	assoc  *model.Association
	target *Model
}

// RegisterWritable adds the input argument of spec. Nested-attribute
// associations are named "<field>_attributes" and typed by the target input.
func (m *Model) RegisterWritable(spec model.FieldSpec) error {
	attr := spec.Attribute()
	name := spec.Name
	meta := inputMeta{spec: spec}

	var typ graphql.Input
	var err error
	enumValues := m.desc.Enums[attr]
	col, isColumn := m.desc.Column(attr)
	assoc, isAssoc := m.desc.Association(attr)

	switch {
	case spec.Type != "":
		typ, err = m.g.inputType(spec.Type)
	case isColumn && len(enumValues) > 0:
		typ, err = m.Enum(attr)
	case isColumn:
		typ = m.g.mapper.Input(col.Type)
	case isAssoc:
		if m.desc.NestedAttributes[attr] {
			name += naming.NestedAttributesSuffix
		}
		target, ok := m.g.models[assoc.Target]
		if !ok {
			m.g.warn(m.name, spec.Name, "association target is not a declared model")
			return nil
		}
		targetInput, err := target.Input()
		if err != nil {
			return err
		}
		if targetInput.Empty() {
			m.g.warn(m.name, spec.Name, "association target input has no fields")
			return nil
		}
		typ = targetInput.Type()
		if assoc.Cardinality() == model.Many {
			typ = graphql.NewList(graphql.NewNonNull(typ))
		}
		meta.assoc = assoc
		meta.target = target
	}
	if err != nil {
		return err
	}
	if typ == nil {
		m.g.warn(m.name, spec.Name, "writable field type does not resolve")
		return nil
	}
	if spec.Required {
		typ = graphql.NewNonNull(typ)
	}

	input, err := m.Input()
	if err != nil {
		return err
	}
	return input.AddArgument(artifact.InputField{
		Name:         m.fieldName(name),
		Description:  spec.Description,
		Type:         typ,
		DefaultValue: spec.Default,
		Signature:    store.Signature("input", attr, typ.String(), spec.Required, spec.Default),
		Meta:         meta,
	})
}
