package introspection

import (
	"log/slog"

	"modelql/internal/model"
	"modelql/internal/naming"
	"modelql/internal/sqltype"
)

// Catalog converts an introspected schema into model descriptors. Each
// foreign key becomes a belongs_to on its table and a has_many on the
// referenced table. ENUM columns carry their members as both key and stored
// value.
func Catalog(schema *Schema, namer *naming.Namer) (*model.Catalog, error) {
	if namer == nil {
		namer = naming.Default()
	}
	catalog, err := model.NewCatalog()
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return catalog, nil
	}

	descs := make(map[string]*model.Descriptor, len(schema.Tables))
	for _, table := range schema.Tables {
		d := model.NewDescriptor(table.Name, namer.ModelName(table.Name))
		d.PrimaryKey = table.PrimaryKey()
		for _, col := range table.Columns {
			d.Columns[col.Name] = model.Column{Type: sqltype.Native(col.ColumnType), Nullable: col.IsNullable}
			if len(col.EnumValues) > 0 {
				values := make(model.EnumValues, len(col.EnumValues))
				for i, v := range col.EnumValues {
					values[i] = model.EnumValue{Key: v, Value: v}
				}
				d.Enums[col.Name] = values
			}
		}
		descs[table.Name] = d
	}

	for _, table := range schema.Tables {
		owner := descs[table.Name]
		constraints := ForeignKeyConstraints(table)
		perTarget := make(map[string]int)
		for _, fk := range constraints {
			perTarget[fk.ReferencedTable]++
		}

		for _, fk := range constraints {
			target, ok := descs[fk.ReferencedTable]
			if !ok {
				continue
			}
			belongsTo := namer.ManyToOneFieldName(fk.ColumnNames[0])
			if len(fk.ColumnNames) > 1 {
				belongsTo = namer.Singularize(fk.ReferencedTable)
			}
			addAssociation(owner, &model.Association{
				Name:       belongsTo,
				Macro:      model.BelongsTo,
				Target:     target.Name,
				ForeignKey: fk.ColumnNames,
				PrimaryKey: fk.ReferencedColumns,
			})

			hasMany := namer.OneToManyFieldName(table.Name, fk.ColumnNames[0], perTarget[fk.ReferencedTable] == 1)
			addAssociation(target, &model.Association{
				Name:       hasMany,
				Macro:      model.HasMany,
				Target:     owner.Name,
				ForeignKey: fk.ColumnNames,
				PrimaryKey: fk.ReferencedColumns,
			})
		}
	}

	for _, table := range schema.Tables {
		if err := catalog.Add(descs[table.Name]); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func addAssociation(d *model.Descriptor, assoc *model.Association) {
	_, isColumn := d.Columns[assoc.Name]
	_, exists := d.Associations[assoc.Name]
	if isColumn || exists {
		slog.Default().Warn("association name already taken; skipped",
			slog.String("table", d.Name),
			slog.String("association", assoc.Name),
		)
		return
	}
	d.Associations[assoc.Name] = assoc
}
