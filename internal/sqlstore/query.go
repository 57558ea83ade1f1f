package sqlstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"modelql/internal/model"
	"modelql/internal/store"
)

type join struct {
	alias  string
	clause string
	args   []interface{}
}

// Query is an immutable SELECT over one model. Construction errors are kept
// and reported when the query runs.
type Query struct {
	s      *Store
	desc   *model.Descriptor
	preds  []sq.Sqlizer
	joins  []join
	orders []string
	limit  int
	offset int
	err    error
}

var _ store.Query = (*Query)(nil)

func (s *Store) newQuery(d *model.Descriptor) *Query {
	return &Query{s: s, desc: d, limit: -1}
}

func (q *Query) clone() *Query {
	next := *q
	next.preds = append([]sq.Sqlizer(nil), q.preds...)
	next.joins = append([]join(nil), q.joins...)
	next.orders = append([]string(nil), q.orders...)
	return &next
}

func (q *Query) table() string {
	return q.s.quote(q.desc.Name)
}

func (q *Query) column(attr string) string {
	return q.s.qualify(q.table(), attr)
}

// Where keeps records whose attributes equal conds.
func (q *Query) Where(conds map[string]interface{}) store.Query {
	if len(conds) == 0 {
		return q
	}
	next := q.clone()
	eq, err := q.s.equality(q.desc, q.table(), conds)
	if err != nil {
		next.err = err
		return next
	}
	next.preds = append(next.preds, eq)
	return next
}

// WhereAny keeps records matching any of the condition sets.
func (q *Query) WhereAny(sets []map[string]interface{}) store.Query {
	next := q.clone()
	if len(sets) == 0 {
		next.preds = append(next.preds, sq.Expr("1=0"))
		return next
	}
	or := make(sq.Or, 0, len(sets))
	for _, conds := range sets {
		eq, err := q.s.equality(q.desc, q.table(), conds)
		if err != nil {
			next.err = err
			return next
		}
		or = append(or, eq)
	}
	next.preds = append(next.preds, or)
	return next
}

// Not drops records matching all of conds.
func (q *Query) Not(conds map[string]interface{}) store.Query {
	if len(conds) == 0 {
		return q
	}
	next := q.clone()
	eq, err := q.s.equality(q.desc, q.table(), conds)
	if err != nil {
		next.err = err
		return next
	}
	sqlStr, args, err := eq.ToSql()
	if err != nil {
		next.err = err
		return next
	}
	next.preds = append(next.preds, sq.Expr("NOT ("+sqlStr+")", args...))
	return next
}

// Page sets the result window. A negative limit leaves it unbounded.
func (q *Query) Page(limit, offset int) store.Query {
	next := q.clone()
	next.limit = limit
	if offset < 0 {
		offset = 0
	}
	next.offset = offset
	return next
}

func (q *Query) base(columns ...string) sq.SelectBuilder {
	b := sq.Select(columns...).From(q.table())
	for _, j := range q.joins {
		b = b.JoinClause(j.clause, j.args...)
	}
	for _, p := range q.preds {
		b = b.Where(p)
	}
	return b
}

// ToSql renders the SELECT the query would run.
func (q *Query) ToSql() (string, []interface{}, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	names := q.desc.ColumnNames()
	cols := make([]string, len(names))
	for i, name := range names {
		cols[i] = q.column(name) + " AS " + q.s.quote(name)
	}

	b := q.base(cols...).OrderBy(q.orderBy()...)
	switch {
	case q.limit >= 0:
		b = b.Limit(uint64(q.limit))
	case q.offset > 0:
		b = b.Limit(uint64(math.MaxInt64))
	}
	if q.offset > 0 {
		b = b.Offset(uint64(q.offset))
	}
	return b.PlaceholderFormat(q.s.dialect.Placeholder()).ToSql()
}

// orderBy appends the primary key as a tiebreak so pages are stable.
func (q *Query) orderBy() []string {
	orders := append([]string(nil), q.orders...)
	for _, pk := range q.desc.PrimaryKey {
		col := q.column(pk)
		seen := false
		for _, o := range q.orders {
			if strings.HasPrefix(o, col+" ") {
				seen = true
				break
			}
		}
		if !seen {
			orders = append(orders, col+" ASC")
		}
	}
	return orders
}

func (q *Query) All(ctx context.Context) ([]store.Record, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.desc.Name, err)
	}
	rows, err := q.s.exec.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.desc.Name, err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.desc.Name, err)
	}
	return records, nil
}

func (q *Query) First(ctx context.Context) (store.Record, error) {
	records, err := q.Page(1, q.offset).All(ctx)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// Count counts matching records, ignoring the page window.
func (q *Query) Count(ctx context.Context) (int, error) {
	if q.err != nil {
		return 0, fmt.Errorf("count %s: %w", q.desc.Name, q.err)
	}
	sqlStr, args, err := q.base("COUNT(*)").PlaceholderFormat(q.s.dialect.Placeholder()).ToSql()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.desc.Name, err)
	}
	rows, err := q.s.exec.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.desc.Name, err)
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("count %s: %w", q.desc.Name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.desc.Name, err)
	}
	return int(n), nil
}

// joinPath walks the association path to the attribute it ends in, adding
// a LEFT JOIN per hop. Only single-record associations can be joined.
func (q *Query) joinPath(path []string) (string, *model.Descriptor, string, error) {
	if len(path) == 0 {
		return "", nil, "", fmt.Errorf("empty attribute path")
	}
	alias := q.table()
	d := q.desc
	for i, name := range path[:len(path)-1] {
		assoc, ok := d.Association(name)
		if !ok {
			return "", nil, "", fmt.Errorf("%s has no association %q", d.Name, name)
		}
		if !assoc.Joinable() {
			return "", nil, "", unsupported("join %s.%s", d.Name, name)
		}
		target, err := q.s.lookup(assoc.Target)
		if err != nil {
			return "", nil, "", err
		}
		joinAlias := q.s.quote("j_" + strings.Join(path[:i+1], "_"))
		if !q.hasJoin(joinAlias) {
			on, args := q.s.correlate(assoc, d, alias, joinAlias)
			q.joins = append(q.joins, join{
				alias:  joinAlias,
				clause: fmt.Sprintf("LEFT JOIN %s AS %s ON %s", q.s.quote(target.Name), joinAlias, on),
				args:   args,
			})
		}
		alias = joinAlias
		d = target
	}
	attr := path[len(path)-1]
	if _, ok := d.Column(attr); !ok {
		return "", nil, "", fmt.Errorf("%s has no column %q", d.Name, attr)
	}
	return alias, d, attr, nil
}

func (q *Query) hasJoin(alias string) bool {
	for _, j := range q.joins {
		if j.alias == alias {
			return true
		}
	}
	return false
}

// correlate renders the condition linking owner rows (ownerAlias) to target
// rows (targetAlias) of an association.
func (s *Store) correlate(assoc *model.Association, owner *model.Descriptor, ownerAlias, targetAlias string) (string, []interface{}) {
	ownerKey := assoc.OwnerKey()
	targetKey := assoc.TargetKey()
	parts := make([]string, 0, len(ownerKey)+1)
	for i := range ownerKey {
		if i >= len(targetKey) {
			break
		}
		parts = append(parts, s.qualify(targetAlias, targetKey[i])+" = "+s.qualify(ownerAlias, ownerKey[i]))
	}
	var args []interface{}
	if assoc.InversePolymorphic && assoc.TypeColumn != "" {
		parts = append(parts, s.qualify(targetAlias, assoc.TypeColumn)+" = ?")
		args = append(args, owner.DisplayName)
	}
	return strings.Join(parts, " AND "), args
}

// equality builds an equality predicate. Slice values become IN lists and
// enum keys are stored values.
func (s *Store) equality(d *model.Descriptor, alias string, conds map[string]interface{}) (sq.Eq, error) {
	attrs := make([]string, 0, len(conds))
	for attr := range conds {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	eq := make(sq.Eq, len(conds))
	for _, attr := range attrs {
		if _, ok := d.Column(attr); !ok {
			return nil, fmt.Errorf("%s has no column %q", d.Name, attr)
		}
		eq[s.qualify(alias, attr)] = storedValue(d, attr, conds[attr])
	}
	return eq, nil
}
