// Package schemagen derives a GraphQL schema from model descriptors and their
// field declarations, and resolves it against a record store.
//
// Every generated artifact (object, input, filter, sort, grouping, edge,
// connection, enum and resolvers) is memoized in a registry keyed by kind and
// model name. Registration appends fields and arguments to those artifacts;
// Schema freezes them and materializes the graphql-go schema.
package schemagen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/graphql-go/graphql"

	"modelql/internal/artifact"
	"modelql/internal/model"
	"modelql/internal/naming"
	"modelql/internal/observability"
	"modelql/internal/registry"
	"modelql/internal/scopes"
	"modelql/internal/store"
	"modelql/internal/typemap"
)

// ErrUnpairedDecorators is returned when only one of the field and argument
// decorators is configured.
var ErrUnpairedDecorators = errors.New("field and argument decorators must be configured together")

// Options configures a Generator. Zero values select defaults.
type Options struct {
	FieldDecorator    artifact.FieldDecorator
	ArgumentDecorator artifact.ArgumentDecorator

	// CaseSensitive is the default for batched key matching.
	CaseSensitive bool

	Registry *registry.Registry
	Mapper   *typemap.Mapper
	Namer    *naming.Namer
	Logger   *slog.Logger
	Metrics  *observability.GraphQLMetrics
}

// Generator builds the schema of a model catalog.
type Generator struct {
	catalog *model.Catalog
	source  store.Source
	writer  store.Writer

	opts       Options
	decorators artifact.Decorators
	reg        *registry.Registry
	mapper     *typemap.Mapper
	namer      *naming.Namer
	logger     *slog.Logger
	metrics    *observability.GraphQLMetrics

	models    map[string]*Model
	order     []*Model
	byDisplay map[string]*Model

	sortDirection *graphql.Enum
	pageInfo      *graphql.Object
	built         bool
}

// New creates a generator over catalog. Mutations are generated when source
// also implements store.Writer.
func New(catalog *model.Catalog, source store.Source, opts Options) (*Generator, error) {
	if (opts.FieldDecorator == nil) != (opts.ArgumentDecorator == nil) {
		return nil, ErrUnpairedDecorators
	}
	if catalog == nil {
		return nil, fmt.Errorf("model catalog is required")
	}
	if source == nil {
		return nil, fmt.Errorf("record source is required")
	}

	g := &Generator{
		catalog:    catalog,
		source:     source,
		opts:       opts,
		decorators: artifact.Decorators{Field: opts.FieldDecorator, Argument: opts.ArgumentDecorator},
		reg:        opts.Registry,
		mapper:     opts.Mapper,
		namer:      opts.Namer,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		models:     make(map[string]*Model),
		byDisplay:  make(map[string]*Model),
	}
	if w, ok := source.(store.Writer); ok {
		g.writer = w
	}
	if g.reg == nil {
		g.reg = registry.New()
	}
	if g.mapper == nil {
		g.mapper = typemap.New(nil)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.namer == nil {
		g.namer = naming.New(naming.DefaultConfig(), g.logger)
	}

	g.sortDirection = graphql.NewEnum(graphql.EnumConfig{
		Name:        "SortDirection",
		Description: "Sort order.",
		Values: graphql.EnumValueConfigMap{
			"ASC":  &graphql.EnumValueConfig{Value: "ASC"},
			"DESC": &graphql.EnumValueConfig{Value: "DESC"},
		},
	})
	g.pageInfo = newPageInfo()

	for _, d := range catalog.All() {
		m := &Model{g: g, desc: d, name: d.DisplayName}
		g.models[d.Name] = m
		g.byDisplay[d.DisplayName] = m
		g.order = append(g.order, m)
	}
	return g, nil
}

// Registry returns the artifact registry.
func (g *Generator) Registry() *registry.Registry { return g.reg }

// Model returns the model registered under a descriptor name.
func (g *Generator) Model(name string) (*Model, bool) {
	m, ok := g.models[name]
	return m, ok
}

// ModelByDisplayName returns the model with the given schema-facing name.
func (g *Generator) ModelByDisplayName(name string) (*Model, bool) {
	m, ok := g.byDisplay[name]
	return m, ok
}

// Models returns the models in catalog order.
func (g *Generator) Models() []*Model {
	return append([]*Model(nil), g.order...)
}

// Build registers every declared field. Non-association fields of all models
// are registered before association fields so that association checks see
// populated target artifacts. Descriptors without declarations expose every
// column and association.
func (g *Generator) Build() error {
	if g.built {
		return nil
	}
	for _, m := range g.order {
		scopes.Derive(m.desc)
		if len(m.desc.Fields) == 0 {
			m.desc.Fields = defaultFields(m.desc)
		}
	}

	for _, associations := range []bool{false, true} {
		for _, m := range g.order {
			for _, spec := range m.desc.Fields {
				_, isAssoc := m.desc.Association(spec.Attribute())
				if _, isCol := m.desc.Column(spec.Attribute()); isCol {
					isAssoc = false
				}
				if isAssoc != associations {
					continue
				}
				if err := m.Field(spec); err != nil {
					return fmt.Errorf("register %s.%s: %w", m.name, spec.Name, err)
				}
			}
		}
	}

	for _, m := range g.order {
		if err := m.ensureArtifacts(); err != nil {
			return err
		}
	}
	g.built = true
	return nil
}

func defaultFields(d *model.Descriptor) []model.FieldSpec {
	pk := make(map[string]bool, len(d.PrimaryKey))
	for _, name := range d.PrimaryKey {
		pk[name] = true
	}
	specs := make([]model.FieldSpec, 0, len(d.Columns)+len(d.Associations))
	for _, name := range d.ColumnNames() {
		specs = append(specs, model.FieldSpec{Name: name, Readable: true, Writable: !pk[name]})
	}
	for _, name := range d.AssociationNames() {
		specs = append(specs, model.FieldSpec{Name: name, Readable: true, Writable: d.NestedAttributes[name]})
	}
	return specs
}

// Schema materializes the schema: one root query field and one connection
// field per model with fields, plus create mutations when the source can
// write. The registry is frozen afterwards.
func (g *Generator) Schema() (graphql.Schema, error) {
	start := time.Now()
	schema, err := g.schema()
	if g.metrics != nil {
		g.metrics.RecordSchemaBuild(context.Background(), time.Since(start), err == nil)
	}
	return schema, err
}

func (g *Generator) schema() (graphql.Schema, error) {
	if err := g.Build(); err != nil {
		return graphql.Schema{}, err
	}

	queryFields := graphql.Fields{}
	mutationFields := graphql.Fields{}
	for _, m := range g.order {
		obj, err := m.Type()
		if err != nil {
			return graphql.Schema{}, err
		}
		if obj.Len() == 0 {
			g.warn(m.name, "", "model has no readable fields; omitted from query root")
			continue
		}

		query, err := m.Query()
		if err != nil {
			return graphql.Schema{}, err
		}
		queryFields[g.namer.RootFieldName(m.name)] = &graphql.Field{
			Type:        obj.Type(),
			Description: fmt.Sprintf("First %s matching the criteria.", m.name),
			Args:        query.Args(),
			Resolve:     query.Resolve,
		}

		connQuery, err := m.ConnectionQuery()
		if err != nil {
			return graphql.Schema{}, err
		}
		conn, err := m.Connection()
		if err != nil {
			return graphql.Schema{}, err
		}
		queryFields[g.namer.ConnectionRootFieldName(m.name)] = &graphql.Field{
			Type:        graphql.NewNonNull(conn.Type()),
			Description: fmt.Sprintf("Paginated %s records matching the criteria.", m.name),
			Args:        withConnectionArgs(connQuery.Args()),
			Resolve:     connQuery.Resolve,
		}

		if g.writer != nil {
			input, err := m.Input()
			if err != nil {
				return graphql.Schema{}, err
			}
			if input.Empty() {
				continue
			}
			mutationFields[g.namer.CreateMutationName(m.name)] = &graphql.Field{
				Type:        obj.Type(),
				Description: fmt.Sprintf("Creates a %s.", m.name),
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(input.Type())},
				},
				Resolve: m.createResolver(),
			}
		}
	}
	if len(queryFields) == 0 {
		return graphql.Schema{}, fmt.Errorf("no model exposes readable fields")
	}

	g.decorateRoot("Query", queryFields)
	g.decorateRoot("Mutation", mutationFields)
	g.reg.Freeze()

	cfg := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queryFields}),
	}
	if len(mutationFields) > 0 {
		cfg.Mutation = graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutationFields})
	}
	schema, err := graphql.NewSchema(cfg)
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("materialize schema: %w", err)
	}
	return schema, nil
}

func (g *Generator) decorateRoot(owner string, fields graphql.Fields) {
	for name, field := range fields {
		field.Name = name
		if g.decorators.Argument != nil {
			for argName, arg := range field.Args {
				g.decorators.Argument(owner+"."+name, argName, arg)
			}
		}
		if g.decorators.Field != nil {
			g.decorators.Field(owner, field)
		}
	}
}

// warn reports a non-fatal declaration problem. The field is skipped by the
// caller.
func (g *Generator) warn(modelName, field, reason string) {
	g.logger.Warn("schema declaration skipped",
		slog.String("model", modelName),
		slog.String("field", field),
		slog.String("reason", reason),
	)
	if g.metrics != nil {
		g.metrics.RecordDeclarationWarning(context.Background(), modelName, reason)
	}
}

// outputType resolves an explicit type name: a native or scalar name, a
// model display name, or a list of either.
func (g *Generator) outputType(name string) (graphql.Output, error) {
	name = strings.TrimSpace(name)
	if model.IsListType(name) {
		elem, err := g.outputType(model.ElemType(name))
		if err != nil || elem == nil {
			return nil, err
		}
		return graphql.NewList(graphql.NewNonNull(elem)), nil
	}
	if t := g.mapper.Output(name); t != nil {
		return t, nil
	}
	if m, ok := g.byDisplay[name]; ok {
		obj, err := m.Type()
		if err != nil {
			return nil, err
		}
		return obj.Type(), nil
	}
	return nil, nil
}

// inputType resolves an explicit type name for arguments. Model display names
// resolve to the model input.
func (g *Generator) inputType(name string) (graphql.Input, error) {
	name = strings.TrimSpace(name)
	if model.IsListType(name) {
		elem, err := g.inputType(model.ElemType(name))
		if err != nil || elem == nil {
			return nil, err
		}
		return graphql.NewList(graphql.NewNonNull(elem)), nil
	}
	if t := g.mapper.Input(name); t != nil {
		return t, nil
	}
	if m, ok := g.byDisplay[name]; ok {
		in, err := m.Input()
		if err != nil {
			return nil, err
		}
		return in.Type(), nil
	}
	return nil, nil
}

func (g *Generator) caseSensitive(spec model.FieldSpec) bool {
	if spec.CaseSensitive != nil {
		return *spec.CaseSensitive
	}
	return g.opts.CaseSensitive
}
