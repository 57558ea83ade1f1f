package manifest

import (
	"modelql/internal/model"
)

// Apply merges the manifest into catalog and returns it. Models missing from
// catalog are created; existing descriptors keep their introspected metadata
// and gain the declared entries, manifest entries winning on conflicts.
// A nil catalog starts empty.
func (m *Manifest) Apply(catalog *model.Catalog) (*model.Catalog, error) {
	if catalog == nil {
		var err error
		if catalog, err = model.NewCatalog(); err != nil {
			return nil, err
		}
	}

	for _, decl := range m.Models {
		d, ok := catalog.Lookup(decl.Name)
		if !ok {
			d = model.NewDescriptor(decl.Name, decl.DisplayName)
			if err := catalog.Add(d); err != nil {
				return nil, err
			}
		} else if decl.DisplayName != "" {
			d.DisplayName = decl.DisplayName
		}
		if len(decl.PrimaryKey) > 0 {
			d.PrimaryKey = append([]string(nil), decl.PrimaryKey...)
		}

		for name, col := range decl.Columns {
			d.Columns[name] = model.Column{Type: col.Type, Nullable: col.Nullable}
		}
		for attr, members := range decl.Enums {
			values := make(model.EnumValues, len(members))
			for i, member := range members {
				value := member.Value
				if value == nil {
					value = member.Key
				}
				values[i] = model.EnumValue{Key: member.Key, Value: value}
			}
			d.Enums[attr] = values
		}
		for _, a := range decl.Associations {
			macro, err := parseMacro(a.Macro)
			if err != nil {
				return nil, err
			}
			d.Associations[a.Name] = &model.Association{
				Name:               a.Name,
				Macro:              macro,
				Target:             a.Target,
				ForeignKey:         a.ForeignKey,
				PrimaryKey:         a.PrimaryKey,
				Polymorphic:        a.Polymorphic,
				InversePolymorphic: a.InversePolymorphic,
				TypeColumn:         a.TypeColumn,
				Through:            a.Through,
				Source:             a.Source,
			}
		}
		for _, name := range decl.NestedAttributes {
			d.NestedAttributes[name] = true
		}
		for _, f := range decl.Fields {
			d.Declare(f.spec())
		}
	}
	return catalog, nil
}

func (f Field) spec() model.FieldSpec {
	spec := model.FieldSpec{
		Name:          f.Name,
		As:            f.As,
		Type:          f.Type,
		Null:          f.Null,
		Connection:    f.Connection,
		SkipBatching:  f.SkipBatching,
		CaseSensitive: f.CaseSensitive,
		Required:      f.Required,
		Default:       f.Default,
		Description:   f.Description,
	}
	if f.Readable != nil {
		spec.Readable = *f.Readable
	}
	if f.Writable != nil {
		spec.Writable = *f.Writable
	}
	return spec
}
