// Package model describes data models: their columns, associations, native
// enums, derived scopes, and the field declarations that drive schema
// generation. Descriptors are built once at registration time and treated as
// read-only afterwards.
package model

import (
	"context"
	"fmt"
	"sort"

	"modelql/internal/store"
)

// Column is the storage metadata of one attribute.
type Column struct {
	Type     string
	Nullable bool
}

// Method computes a method-backed field from a record.
type Method func(ctx context.Context, rec store.Record) (interface{}, error)

// Descriptor is a named data model.
type Descriptor struct {
	// Name is the implementation identifier (the table for SQL stores).
	Name string
	// DisplayName is the preferred schema-facing name.
	DisplayName string
	PrimaryKey  []string

	Columns      map[string]Column
	Associations map[string]*Association
	Enums        map[string]EnumValues
	Scopes       map[string][]Scope

	// NestedAttributes lists associations that accept nested writes through a
	// "<name>_attributes" argument.
	NestedAttributes map[string]bool
	Methods          map[string]Method

	// Fields are the declared field registrations, in declaration order.
	Fields []FieldSpec
}

// NewDescriptor returns a descriptor with its maps allocated.
func NewDescriptor(name, displayName string) *Descriptor {
	return &Descriptor{
		Name:             name,
		DisplayName:      displayName,
		Columns:          make(map[string]Column),
		Associations:     make(map[string]*Association),
		Enums:            make(map[string]EnumValues),
		Scopes:           make(map[string][]Scope),
		NestedAttributes: make(map[string]bool),
		Methods:          make(map[string]Method),
	}
}

// Column returns the column for an attribute.
func (d *Descriptor) Column(name string) (Column, bool) {
	col, ok := d.Columns[name]
	return col, ok
}

// Association returns the association for an attribute.
func (d *Descriptor) Association(name string) (*Association, bool) {
	assoc, ok := d.Associations[name]
	return assoc, ok
}

// ColumnNames returns column names sorted for deterministic iteration.
func (d *Descriptor) ColumnNames() []string {
	names := make([]string, 0, len(d.Columns))
	for name := range d.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AssociationNames returns association names sorted for deterministic iteration.
func (d *Descriptor) AssociationNames() []string {
	names := make([]string, 0, len(d.Associations))
	for name := range d.Associations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declare appends field declarations.
func (d *Descriptor) Declare(specs ...FieldSpec) *Descriptor {
	d.Fields = append(d.Fields, specs...)
	return d
}

// Catalog indexes descriptors by name. Registration order is preserved.
type Catalog struct {
	order []string
	byKey map[string]*Descriptor
}

// NewCatalog builds a catalog from descriptors. Duplicate names are rejected.
func NewCatalog(descs ...*Descriptor) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]*Descriptor, len(descs))}
	for _, d := range descs {
		if err := c.Add(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add registers a descriptor.
func (c *Catalog) Add(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("model descriptor must have a name")
	}
	if _, exists := c.byKey[d.Name]; exists {
		return fmt.Errorf("model %s registered twice", d.Name)
	}
	if d.DisplayName == "" {
		d.DisplayName = d.Name
	}
	c.byKey[d.Name] = d
	c.order = append(c.order, d.Name)
	return nil
}

// Lookup finds a descriptor by name.
func (c *Catalog) Lookup(name string) (*Descriptor, bool) {
	d, ok := c.byKey[name]
	return d, ok
}

// All returns descriptors in registration order.
func (c *Catalog) All() []*Descriptor {
	out := make([]*Descriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byKey[name])
	}
	return out
}
