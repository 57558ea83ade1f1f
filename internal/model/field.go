package model

import (
	"context"

	"modelql/internal/store"
)

// TransformContext is shared by every step of a transform pipeline.
type TransformContext struct {
	Context context.Context
	// Source is the record being read. It is nil on the write side.
	Source store.Record
	// Args holds the field arguments of the current resolution.
	Args  map[string]interface{}
	Model string
	Field string
}

// Transform maps one value to another.
type Transform func(tc TransformContext, value interface{}) (interface{}, error)

// FieldSpec is one field declaration on a model.
type FieldSpec struct {
	Name string
	// As names the underlying attribute when it differs from Name.
	As       string
	Readable bool
	Writable bool

	// Type overrides the resolved type; a native or schema type name, "[T]"
	// for lists.
	Type string
	// Null overrides the default nullability.
	Null *bool
	// Connection controls the "<name>_connection" sibling of many-associations.
	// Nil means enabled.
	Connection *bool

	// ReadResolve computes the value from the source record.
	ReadResolve Transform
	// ReadPrepare post-processes the resolved value.
	ReadPrepare Transform
	// WritePrepare transforms an input value before it is stored.
	WritePrepare Transform

	SkipBatching  bool
	CaseSensitive *bool

	Required    bool
	Default     interface{}
	Description string
}

// Attribute is the underlying attribute name of the field.
func (f FieldSpec) Attribute() string {
	if f.As != "" {
		return f.As
	}
	return f.Name
}

// HasReadTransforms reports whether reading the field runs custom hooks.
func (f FieldSpec) HasReadTransforms() bool {
	return f.ReadResolve != nil || f.ReadPrepare != nil
}

// Bool returns a pointer to b, for optional FieldSpec flags.
func Bool(b bool) *bool {
	return &b
}
