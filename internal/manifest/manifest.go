// Package manifest reads model declarations from YAML. A manifest can
// describe models completely (for stores without introspection) or extend
// introspected descriptors with enums, associations and field declarations.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"modelql/internal/model"
)

// Manifest is the root of a manifest file.
type Manifest struct {
	Models []Model `yaml:"models"`
}

// Model declares one model.
type Model struct {
	Name        string            `yaml:"name"`
	DisplayName string            `yaml:"display_name"`
	PrimaryKey  []string          `yaml:"primary_key"`
	Columns     map[string]Column `yaml:"columns"`
	// Enums map an attribute to its ordered key/value members.
	Enums            map[string][]EnumValue `yaml:"enums"`
	Associations     []Association          `yaml:"associations"`
	NestedAttributes []string               `yaml:"nested_attributes"`
	Fields           []Field                `yaml:"fields"`
}

// Column declares the storage type of an attribute.
type Column struct {
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// EnumValue is one enum member. Value defaults to Key.
type EnumValue struct {
	Key   string      `yaml:"key"`
	Value interface{} `yaml:"value"`
}

// Association declares a relationship.
type Association struct {
	Name               string   `yaml:"name"`
	Macro              string   `yaml:"macro"`
	Target             string   `yaml:"target"`
	ForeignKey         []string `yaml:"foreign_key"`
	PrimaryKey         []string `yaml:"primary_key"`
	Polymorphic        bool     `yaml:"polymorphic"`
	InversePolymorphic bool     `yaml:"inverse_polymorphic"`
	TypeColumn         string   `yaml:"type_column"`
	Through            string   `yaml:"through"`
	Source             string   `yaml:"source"`
}

// Field declares a field registration.
type Field struct {
	Name          string      `yaml:"name"`
	As            string      `yaml:"as"`
	Readable      *bool       `yaml:"readable"`
	Writable      *bool       `yaml:"writable"`
	Type          string      `yaml:"type"`
	Null          *bool       `yaml:"null"`
	Connection    *bool       `yaml:"connection"`
	SkipBatching  bool        `yaml:"skip_batching"`
	CaseSensitive *bool       `yaml:"case_sensitive"`
	Required      bool        `yaml:"required"`
	Default       interface{} `yaml:"default"`
	Description   string      `yaml:"description"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse parses manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a manifest, rejecting unknown keys.
func Decode(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names and association macros.
func (m *Manifest) Validate() error {
	var problems []string
	seen := make(map[string]bool, len(m.Models))
	for i, decl := range m.Models {
		if decl.Name == "" {
			problems = append(problems, fmt.Sprintf("models[%d]: name is required", i))
			continue
		}
		if seen[decl.Name] {
			problems = append(problems, fmt.Sprintf("model %s declared twice", decl.Name))
		}
		seen[decl.Name] = true
		for _, assoc := range decl.Associations {
			if assoc.Name == "" {
				problems = append(problems, fmt.Sprintf("model %s: association name is required", decl.Name))
			}
			if _, err := parseMacro(assoc.Macro); err != nil {
				problems = append(problems, fmt.Sprintf("model %s: association %s: %v", decl.Name, assoc.Name, err))
			}
		}
		for _, field := range decl.Fields {
			if field.Name == "" {
				problems = append(problems, fmt.Sprintf("model %s: field name is required", decl.Name))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid manifest: %s", strings.Join(problems, "; "))
	}
	return nil
}

func parseMacro(s string) (model.Macro, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "belongs_to":
		return model.BelongsTo, nil
	case "has_one":
		return model.HasOne, nil
	case "has_many":
		return model.HasMany, nil
	default:
		return 0, fmt.Errorf("unknown macro %q", s)
	}
}
