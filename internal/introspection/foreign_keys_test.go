package introspection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForeignKeyConstraints(t *testing.T) {
	tests := []struct {
		name string
		fks  []ForeignKey
		want []ForeignKeyConstraint
	}{
		{
			name: "no foreign keys",
			want: nil,
		},
		{
			name: "single column",
			fks: []ForeignKey{
				{ConstraintName: "fk_seconds_first", ColumnName: "first_id", ReferencedTable: "firsts", ReferencedColumn: "id", OrdinalPosition: 1},
			},
			want: []ForeignKeyConstraint{
				{ConstraintName: "fk_seconds_first", ReferencedTable: "firsts", ColumnNames: []string{"first_id"}, ReferencedColumns: []string{"id"}},
			},
		},
		{
			name: "composite columns follow ordinal position",
			fks: []ForeignKey{
				{ConstraintName: "fk_seconds_first", ColumnName: "first_id", ReferencedTable: "firsts", ReferencedColumn: "id", OrdinalPosition: 2},
				{ConstraintName: "fk_seconds_first", ColumnName: "first_region", ReferencedTable: "firsts", ReferencedColumn: "region", OrdinalPosition: 1},
			},
			want: []ForeignKeyConstraint{
				{
					ConstraintName:    "fk_seconds_first",
					ReferencedTable:   "firsts",
					ColumnNames:       []string{"first_region", "first_id"},
					ReferencedColumns: []string{"region", "id"},
				},
			},
		},
		{
			name: "constraints ordered by name",
			fks: []ForeignKey{
				{ConstraintName: "fk_seconds_owner", ColumnName: "owner_id", ReferencedTable: "firsts", ReferencedColumn: "id", OrdinalPosition: 1},
				{ConstraintName: "fk_seconds_first", ColumnName: "first_id", ReferencedTable: "firsts", ReferencedColumn: "id", OrdinalPosition: 1},
			},
			want: []ForeignKeyConstraint{
				{ConstraintName: "fk_seconds_first", ReferencedTable: "firsts", ColumnNames: []string{"first_id"}, ReferencedColumns: []string{"id"}},
				{ConstraintName: "fk_seconds_owner", ReferencedTable: "firsts", ColumnNames: []string{"owner_id"}, ReferencedColumns: []string{"id"}},
			},
		},
		{
			name: "unnamed rows stay separate and follow named constraints",
			fks: []ForeignKey{
				{ColumnName: "first_id", ReferencedTable: "firsts", ReferencedColumn: "id", OrdinalPosition: 1},
				{ColumnName: "owner_id", ReferencedTable: "firsts", ReferencedColumn: "id", OrdinalPosition: 1},
				{ConstraintName: "fk_seconds_parent", ColumnName: "parent_id", ReferencedTable: "seconds", ReferencedColumn: "id", OrdinalPosition: 1},
			},
			want: []ForeignKeyConstraint{
				{ConstraintName: "fk_seconds_parent", ReferencedTable: "seconds", ColumnNames: []string{"parent_id"}, ReferencedColumns: []string{"id"}},
				{ReferencedTable: "firsts", ColumnNames: []string{"first_id"}, ReferencedColumns: []string{"id"}},
				{ReferencedTable: "firsts", ColumnNames: []string{"owner_id"}, ReferencedColumns: []string{"id"}},
			},
		},
		{
			name: "unnamed key sorts after high named constraint",
			fks: []ForeignKey{
				{ColumnName: "first_id", ReferencedTable: "firsts", ReferencedColumn: "id"},
				{ConstraintName: "ÿfk", ColumnName: "owner_id", ReferencedTable: "firsts", ReferencedColumn: "id"},
			},
			want: []ForeignKeyConstraint{
				{ConstraintName: "ÿfk", ReferencedTable: "firsts", ColumnNames: []string{"owner_id"}, ReferencedColumns: []string{"id"}},
				{ReferencedTable: "firsts", ColumnNames: []string{"first_id"}, ReferencedColumns: []string{"id"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForeignKeyConstraints(Table{Name: "seconds", ForeignKeys: tt.fks})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForeignKeyConstraintsLeavesInputOrder(t *testing.T) {
	fks := []ForeignKey{
		{ConstraintName: "fk_b", ColumnName: "first_id", ReferencedTable: "firsts", ReferencedColumn: "id"},
		{ConstraintName: "fk_a", ColumnName: "owner_id", ReferencedTable: "firsts", ReferencedColumn: "id"},
	}
	table := Table{Name: "seconds", ForeignKeys: fks}

	_ = ForeignKeyConstraints(table)
	assert.Equal(t, "fk_b", table.ForeignKeys[0].ConstraintName)
}
