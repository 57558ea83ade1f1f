package artifact

import (
	"github.com/graphql-go/graphql"
)

// Input builds a generated input object (inputs, filters, sorts, groupings).
type Input struct {
	name       string
	fields     entries[InputField]
	decorators Decorators
	gql        *graphql.InputObject
}

// NewInput creates an empty input builder.
func NewInput(name, description string, decorators Decorators) *Input {
	in := &Input{name: name, decorators: decorators}
	in.gql = graphql.NewInputObject(graphql.InputObjectConfig{
		Name:        name,
		Description: description,
		Fields:      graphql.InputObjectConfigFieldMapThunk(in.materialize),
	})
	return in
}

// Name returns the type name.
func (in *Input) Name() string { return in.name }

// Type returns the graphql-go input object backed by this builder.
func (in *Input) Type() *graphql.InputObject { return in.gql }

// AddArgument appends an input field with the same duplicate policy as
// Object.AddField.
func (in *Input) AddArgument(f InputField) error {
	return in.fields.add(in.name, f.Name, f.Signature, f, func(existing InputField) string { return existing.Signature })
}

// Argument returns a registered input field.
func (in *Input) Argument(name string) (InputField, bool) { return in.fields.get(name) }

// Arguments returns the registered input fields in registration order.
func (in *Input) Arguments() []InputField { return in.fields.list() }

// Len returns the number of registered input fields.
func (in *Input) Len() int { return in.fields.len() }

// Empty reports whether no input fields were registered.
func (in *Input) Empty() bool { return in.fields.len() == 0 }

// Freeze stops the builder from accepting fields.
func (in *Input) Freeze() { in.fields.freeze() }

// Frozen reports whether Freeze was called.
func (in *Input) Frozen() bool { return in.fields.isFrozen() }

func (in *Input) materialize() graphql.InputObjectConfigFieldMap {
	out := graphql.InputObjectConfigFieldMap{}
	for _, f := range in.fields.list() {
		arg := &graphql.ArgumentConfig{
			Type:         f.Type,
			DefaultValue: f.DefaultValue,
			Description:  f.Description,
		}
		if in.decorators.Argument != nil {
			in.decorators.Argument(in.name, f.Name, arg)
		}
		out[f.Name] = &graphql.InputObjectFieldConfig{
			Type:         arg.Type,
			DefaultValue: arg.DefaultValue,
			Description:  arg.Description,
		}
	}
	return out
}
