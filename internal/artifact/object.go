package artifact

import (
	"github.com/graphql-go/graphql"
)

// Object builds a generated object type.
type Object struct {
	name       string
	fields     entries[Field]
	decorators Decorators
	gql        *graphql.Object
}

// NewObject creates an empty object builder.
func NewObject(name, description string, decorators Decorators) *Object {
	o := &Object{name: name, decorators: decorators}
	o.gql = graphql.NewObject(graphql.ObjectConfig{
		Name:        name,
		Description: description,
		Fields:      graphql.FieldsThunk(o.materialize),
	})
	return o
}

// Name returns the type name.
func (o *Object) Name() string { return o.name }

// Type returns the graphql-go object backed by this builder.
func (o *Object) Type() *graphql.Object { return o.gql }

// AddField appends a field. Re-adding an identical field is a no-op;
// re-adding a different field under the same name returns ErrConflict.
func (o *Object) AddField(f Field) error {
	return o.fields.add(o.name, f.Name, f.Signature, f, func(existing Field) string { return existing.Signature })
}

// Field returns a registered field.
func (o *Object) Field(name string) (Field, bool) { return o.fields.get(name) }

// Fields returns the registered fields in registration order.
func (o *Object) Fields() []Field { return o.fields.list() }

// Len returns the number of registered fields.
func (o *Object) Len() int { return o.fields.len() }

// Freeze stops the builder from accepting fields.
func (o *Object) Freeze() { o.fields.freeze() }

// Frozen reports whether Freeze was called.
func (o *Object) Frozen() bool { return o.fields.isFrozen() }

func (o *Object) materialize() graphql.Fields {
	out := graphql.Fields{}
	for _, f := range o.fields.list() {
		field := &graphql.Field{
			Name:        f.Name,
			Type:        f.Type,
			Description: f.Description,
			Resolve:     f.Resolve,
		}
		if f.Args != nil {
			field.Args = f.Args()
			if o.decorators.Argument != nil {
				for name, arg := range field.Args {
					o.decorators.Argument(o.name+"."+f.Name, name, arg)
				}
			}
		}
		if o.decorators.Field != nil {
			o.decorators.Field(o.name, field)
		}
		out[f.Name] = field
	}
	return out
}
