package introspection

import (
	"fmt"
	"sort"
)

// ForeignKeyConstraint is a foreign key with its columns in ordinal order.
type ForeignKeyConstraint struct {
	ConstraintName    string
	ReferencedTable   string
	ColumnNames       []string
	ReferencedColumns []string
}

// ForeignKeyConstraints groups the foreign key columns of a table by
// constraint, ordered by constraint name.
func ForeignKeyConstraints(table Table) []ForeignKeyConstraint {
	if len(table.ForeignKeys) == 0 {
		return nil
	}

	fks := append([]ForeignKey(nil), table.ForeignKeys...)
	keys := make([]string, len(fks))
	for i, fk := range fks {
		keys[i] = fk.ConstraintName
		if keys[i] == "" {
			// unnamed rows never merge
			keys[i] = fmt.Sprintf("\xff%04d", i)
		}
	}
	idx := make([]int, len(fks))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka != kb {
			return ka < kb
		}
		return fks[idx[a]].OrdinalPosition < fks[idx[b]].OrdinalPosition
	})

	var out []ForeignKeyConstraint
	last := ""
	for _, i := range idx {
		fk := fks[i]
		if len(out) == 0 || keys[i] != last {
			out = append(out, ForeignKeyConstraint{ConstraintName: fk.ConstraintName, ReferencedTable: fk.ReferencedTable})
			last = keys[i]
		}
		c := &out[len(out)-1]
		c.ColumnNames = append(c.ColumnNames, fk.ColumnName)
		c.ReferencedColumns = append(c.ReferencedColumns, fk.ReferencedColumn)
	}
	return out
}
