package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelql/internal/model"
)

const blog = `
models:
  - name: firsts
    display_name: First
    primary_key: [id]
    columns:
      id: {type: integer}
      name: {type: string}
    associations:
      - name: seconds
        macro: has_many
        target: seconds
        foreign_key: [first_id]
        primary_key: [id]
    nested_attributes: [seconds]
  - name: seconds
    display_name: Second
    primary_key: [id]
    columns:
      id: {type: integer}
      first_id: {type: integer, nullable: true}
      status: {type: integer}
    enums:
      status:
        - {key: draft, value: 0}
        - {key: live, value: 1}
    fields:
      - name: status
        writable: true
      - name: first_id
        as: first_id
        null: true
        description: Owning first.
`

func TestParseAndApply(t *testing.T) {
	m, err := Parse([]byte(blog))
	require.NoError(t, err)

	catalog, err := m.Apply(nil)
	require.NoError(t, err)

	firsts, ok := catalog.Lookup("firsts")
	require.True(t, ok)
	assert.Equal(t, "First", firsts.DisplayName)
	assert.Equal(t, []string{"id"}, firsts.PrimaryKey)
	assert.True(t, firsts.NestedAttributes["seconds"])
	seconds, ok := firsts.Association("seconds")
	require.True(t, ok)
	assert.Equal(t, model.HasMany, seconds.Macro)
	assert.Equal(t, []string{"first_id"}, seconds.ForeignKey)

	second, ok := catalog.Lookup("seconds")
	require.True(t, ok)
	assert.Equal(t, model.Column{Type: "integer", Nullable: true}, second.Columns["first_id"])
	assert.Equal(t, model.EnumValues{{Key: "draft", Value: 0}, {Key: "live", Value: 1}}, second.Enums["status"])

	require.Len(t, second.Fields, 2)
	assert.Equal(t, "status", second.Fields[0].Name)
	assert.True(t, second.Fields[0].Writable)
	assert.False(t, second.Fields[0].Readable)
	assert.Equal(t, model.Bool(true), second.Fields[1].Null)
	assert.Equal(t, "Owning first.", second.Fields[1].Description)
}

func TestApplyExtendsExistingDescriptor(t *testing.T) {
	existing := model.NewDescriptor("posts", "Post")
	existing.Columns["id"] = model.Column{Type: "bigint"}
	existing.Columns["state"] = model.Column{Type: "string"}
	catalog, err := model.NewCatalog(existing)
	require.NoError(t, err)

	m, err := Parse([]byte(`
models:
  - name: posts
    enums:
      state:
        - key: draft
        - key: live
`))
	require.NoError(t, err)
	_, err = m.Apply(catalog)
	require.NoError(t, err)

	assert.Equal(t, "Post", existing.DisplayName)
	assert.Equal(t, model.Column{Type: "bigint"}, existing.Columns["id"])
	assert.Equal(t, model.EnumValues{{Key: "draft", Value: "draft"}, {Key: "live", Value: "live"}}, existing.Enums["state"])
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown key", doc: "models:\n  - name: a\n    colums: {}\n"},
		{name: "missing name", doc: "models:\n  - display_name: A\n"},
		{name: "duplicate", doc: "models:\n  - name: a\n  - name: a\n"},
		{name: "bad macro", doc: "models:\n  - name: a\n    associations:\n      - {name: b, macro: has_few, target: b}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(blog), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m.Models, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	m, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, m.Models)
}
