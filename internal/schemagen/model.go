package schemagen

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"modelql/internal/artifact"
	"modelql/internal/model"
	"modelql/internal/naming"
	"modelql/internal/registry"
	"modelql/internal/store"
)

// Model exposes the generated artifacts of one descriptor. Every accessor is
// memoized in the generator registry.
type Model struct {
	g    *Generator
	desc *model.Descriptor
	name string
}

// Name is the schema-facing model name.
func (m *Model) Name() string { return m.name }

// Descriptor returns the underlying descriptor.
func (m *Model) Descriptor() *model.Descriptor { return m.desc }

// Type returns the object type "<Model>".
func (m *Model) Type() (*artifact.Object, error) {
	return registry.GetOrCreate(m.g.reg, registry.KindType, m.name, func() (*artifact.Object, error) {
		return artifact.NewObject(m.name, "", m.g.decorators), nil
	})
}

// Input returns the write input "<Model>Input".
func (m *Model) Input() (*artifact.Input, error) {
	return registry.GetOrCreate(m.g.reg, registry.KindInput, m.name, func() (*artifact.Input, error) {
		return artifact.NewInput(m.name+naming.InputSuffix, fmt.Sprintf("Values for a new %s.", m.name), m.g.decorators), nil
	})
}

// Filter returns "<Model>Filter", seeded with the OR and AND lists of itself.
func (m *Model) Filter() (*artifact.Input, error) {
	return registry.GetOrCreate(m.g.reg, registry.KindFilter, m.name, func() (*artifact.Input, error) {
		filter := artifact.NewInput(m.name+naming.FilterSuffix, fmt.Sprintf("Criteria selecting %s records.", m.name), m.g.decorators)
		self := graphql.NewList(graphql.NewNonNull(filter.Type()))
		for _, op := range []filterKind{filterOr, filterAnd} {
			err := filter.AddArgument(artifact.InputField{
				Name:      string(op),
				Type:      self,
				Signature: store.Signature("composition", string(op)),
				Meta:      filterMeta{kind: op},
			})
			if err != nil {
				return nil, err
			}
		}
		return filter, nil
	})
}

// Sort returns "<Model>Sort".
func (m *Model) Sort() (*artifact.Input, error) {
	return registry.GetOrCreate(m.g.reg, registry.KindSort, m.name, func() (*artifact.Input, error) {
		return artifact.NewInput(m.name+naming.SortSuffix, fmt.Sprintf("Ordering of %s records.", m.name), m.g.decorators), nil
	})
}

// Grouping returns "<Model>Grouping".
func (m *Model) Grouping() (*artifact.Input, error) {
	return registry.GetOrCreate(m.g.reg, registry.KindGrouping, m.name, func() (*artifact.Input, error) {
		return artifact.NewInput(m.name+naming.GroupingSuffix, fmt.Sprintf("Grouping of %s records.", m.name), m.g.decorators), nil
	})
}

// Enum returns the enum generated for a native enum attribute,
// "<Model><PluralizedAttribute>". Values are named by enum key.
func (m *Model) Enum(attr string) (*graphql.Enum, error) {
	values, ok := m.desc.Enums[attr]
	if !ok || len(values) == 0 {
		return nil, fmt.Errorf("%s.%s is not an enum attribute", m.name, attr)
	}
	name := m.g.namer.EnumTypeName(m.name, attr)
	return registry.GetOrCreate(m.g.reg, registry.KindEnum, name, func() (*graphql.Enum, error) {
		gqlValues := make([]artifact.EnumValue, 0, len(values))
		for _, v := range values {
			gqlValues = append(gqlValues, artifact.EnumValue{Name: v.Key, Value: v.Key})
		}
		enum, err := artifact.NewEnum(name, "", gqlValues)
		if err != nil {
			return nil, err
		}
		m.g.mapper.RegisterType(enum)
		return enum, nil
	})
}

// BaseResolver returns the resolver every resolver over this model derives
// from. Hooks added to it run for the query, connection and association
// resolvers of the model.
func (m *Model) BaseResolver() (*Resolver, error) {
	return registry.GetOrCreate(m.g.reg, registry.KindResolver, m.name, func() (*Resolver, error) {
		return newResolver(m, nil, sourceValue, passThrough), nil
	})
}

// Query returns the resolver of the "<model>" root field: all records,
// narrowed by the arguments, then the first match.
func (m *Model) Query() (*Resolver, error) {
	return m.derived(registry.KindQuery, finishOne)
}

// ConnectionQuery returns the resolver of the "<model>Connection" root field.
func (m *Model) ConnectionQuery() (*Resolver, error) {
	return m.derived(registry.KindConnectionQuery, m.finishConnection)
}

func (m *Model) derived(kind registry.Kind, finish finishFunc) (*Resolver, error) {
	base, err := m.BaseResolver()
	if err != nil {
		return nil, err
	}
	return registry.GetOrCreate(m.g.reg, kind, m.name, func() (*Resolver, error) {
		return newResolver(m, base, m.allRecords, finish), nil
	})
}

func (m *Model) allRecords(p graphql.ResolveParams) (interface{}, error) {
	q, err := m.g.source.From(m.desc.Name)
	if err != nil {
		return nil, err
	}
	c, err := m.criteria(p.Args)
	if err != nil {
		return nil, err
	}
	return m.apply(q, c)
}

// ensureArtifacts creates the artifacts root fields and resolvers reference
// so that they exist before the registry is frozen.
func (m *Model) ensureArtifacts() error {
	if _, err := m.Type(); err != nil {
		return err
	}
	if _, err := m.Input(); err != nil {
		return err
	}
	if _, err := m.Filter(); err != nil {
		return err
	}
	if _, err := m.Sort(); err != nil {
		return err
	}
	if _, err := m.Grouping(); err != nil {
		return err
	}
	if _, err := m.Connection(); err != nil {
		return err
	}
	if _, err := m.Query(); err != nil {
		return err
	}
	_, err := m.ConnectionQuery()
	return err
}
