package artifact

import (
	"fmt"

	"github.com/graphql-go/graphql"
)

// EnumValue is one generated enum value.
type EnumValue struct {
	Name  string
	Value interface{}
}

// NewEnum creates an enum type. An empty value set is rejected.
func NewEnum(name, description string, values []EnumValue) (*graphql.Enum, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("enum %s has no values", name)
	}
	config := graphql.EnumValueConfigMap{}
	for _, v := range values {
		config[v.Name] = &graphql.EnumValueConfig{Value: v.Value}
	}
	return graphql.NewEnum(graphql.EnumConfig{
		Name:        name,
		Description: description,
		Values:      config,
	}), nil
}
