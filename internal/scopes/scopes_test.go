package scopes

import (
	"testing"

	"modelql/internal/model"
	"modelql/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scopeNames(scopes []model.Scope) []string {
	names := make([]string, 0, len(scopes))
	for _, s := range scopes {
		names = append(names, s.Name)
	}
	return names
}

func TestForColumnString(t *testing.T) {
	scopes := ForColumn("name", model.Column{Type: "string"}, false)

	assert.Equal(t, []string{
		"name_is", "name_not", "name_in", "name_not_in",
		"name_contains", "name_starts_with", "name_ends_with",
		"sort_by_name",
	}, scopeNames(scopes))

	assert.Equal(t, "[string]", scopes[2].ArgType)
	assert.Equal(t, store.OpStartsWith, scopes[5].Operator)
	assert.Equal(t, "name_starts_with", scopes[5].ArgumentName("name"))
	assert.Equal(t, model.SortScope, scopes[7].Kind)
}

func TestForColumnOrderedNullable(t *testing.T) {
	scopes := ForColumn("number", model.Column{Type: "integer", Nullable: true}, false)

	assert.Equal(t, []string{
		"number_is", "number_not", "number_in", "number_not_in",
		"number_lt", "number_lte", "number_gt", "number_gte",
		"number_is_null", "sort_by_number",
	}, scopeNames(scopes))
	assert.Equal(t, "boolean", scopes[8].ArgType)
}

func TestForColumnEnum(t *testing.T) {
	scopes := ForColumn("status", model.Column{Type: "integer"}, true)

	require.Len(t, scopes, 5)
	for _, s := range scopes[:4] {
		assert.Equal(t, model.EnumScope, s.Kind)
	}
	assert.Equal(t, "[integer]", scopes[2].ArgType)
}

func TestDeriveKeepsDeclaredScopes(t *testing.T) {
	d := model.NewDescriptor("seconds", "Second")
	d.Columns["name"] = model.Column{Type: "string"}
	d.Columns["first_id"] = model.Column{Type: "integer"}
	d.Associations["first"] = &model.Association{Name: "first", Macro: model.BelongsTo, Target: "firsts"}
	d.Scopes["first_id"] = []model.Scope{{Attribute: "first_id", Name: "first_id_is", Suffix: "_is", Operator: store.OpEq}}

	Derive(d)

	assert.Len(t, d.Scopes["first_id"], 1)
	assert.Contains(t, scopeNames(d.Scopes["name"]), "name_contains")
	assert.Equal(t, []string{"first_is", "sort_by_first"}, scopeNames(d.Scopes["first"]))
	assert.Equal(t, store.OpRelated, d.Scopes["first"][0].Operator)
}
