package sqlstore

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"modelql/internal/model"
	"modelql/internal/sqlutil"
	"modelql/internal/store"
)

type transformer struct {
	s *Store
}

func asQuery(q store.Query) (*Query, error) {
	sqlq, ok := q.(*Query)
	if !ok {
		return nil, fmt.Errorf("%w: %T", errNotSQLQuery, q)
	}
	return sqlq, nil
}

// ApplyFilters narrows q by f. Predicates, related filters and AND entries
// are conjoined; each OR entry is an alternative to that conjunction.
func (t transformer) ApplyFilters(q store.Query, f store.Filter) (store.Query, error) {
	if f.IsEmpty() {
		return q, nil
	}
	sqlq, err := asQuery(q)
	if err != nil {
		return nil, err
	}
	seq := 0
	cond, err := t.s.condition(sqlq.desc, sqlq.table(), f, &seq)
	if err != nil {
		return nil, err
	}
	next := sqlq.clone()
	next.preds = append(next.preds, cond)
	return next, nil
}

// ApplySorts appends ORDER BY terms in the given order. Paths may cross
// single-record associations.
func (t transformer) ApplySorts(q store.Query, sorts []store.Sort) (store.Query, error) {
	if len(sorts) == 0 {
		return q, nil
	}
	sqlq, err := asQuery(q)
	if err != nil {
		return nil, err
	}
	next := sqlq.clone()
	for _, s := range sorts {
		alias, _, attr, err := next.joinPath(s.Path)
		if err != nil {
			return nil, fmt.Errorf("sort %s: %w", sqlq.desc.Name, err)
		}
		dir := "ASC"
		if s.Descending {
			dir = "DESC"
		}
		next.orders = append(next.orders, t.s.qualify(alias, attr)+" "+dir)
	}
	return next, nil
}

// ApplyGroupings keeps one record per distinct combination of the grouped
// attributes: the one with the lowest primary key among the records matched
// so far.
func (t transformer) ApplyGroupings(q store.Query, groups []store.Group) (store.Query, error) {
	if len(groups) == 0 {
		return q, nil
	}
	sqlq, err := asQuery(q)
	if err != nil {
		return nil, err
	}
	if len(sqlq.desc.PrimaryKey) != 1 {
		return nil, unsupported("group %s without a single-column primary key", sqlq.desc.Name)
	}

	scratch := sqlq.clone()
	cols := make([]string, 0, len(groups))
	for _, g := range groups {
		alias, _, attr, err := scratch.joinPath(g.Path)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", sqlq.desc.Name, err)
		}
		cols = append(cols, t.s.qualify(alias, attr))
	}

	pk := sqlq.column(sqlq.desc.PrimaryKey[0])
	inner, args, err := scratch.base("MIN(" + pk + ")").GroupBy(cols...).ToSql()
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", sqlq.desc.Name, err)
	}
	next := sqlq.clone()
	next.preds = append(next.preds, sq.Expr(pk+" IN ("+inner+")", args...))
	return next, nil
}

func (s *Store) condition(d *model.Descriptor, alias string, f store.Filter, seq *int) (sq.Sqlizer, error) {
	and := sq.And{}
	for _, p := range f.Predicates {
		c, err := s.predicate(d, alias, p)
		if err != nil {
			return nil, err
		}
		and = append(and, c)
	}
	for _, r := range f.Related {
		c, err := s.related(d, alias, r, seq)
		if err != nil {
			return nil, err
		}
		and = append(and, c)
	}
	for _, sub := range f.And {
		c, err := s.condition(d, alias, sub, seq)
		if err != nil {
			return nil, err
		}
		and = append(and, c)
	}
	if len(f.Or) == 0 {
		return and, nil
	}

	or := sq.Or{}
	if len(and) > 0 {
		or = append(or, and)
	}
	for _, sub := range f.Or {
		c, err := s.condition(d, alias, sub, seq)
		if err != nil {
			return nil, err
		}
		or = append(or, c)
	}
	return or, nil
}

func (s *Store) predicate(d *model.Descriptor, alias string, p store.Predicate) (sq.Sqlizer, error) {
	if _, ok := d.Column(p.Attribute); !ok {
		return nil, fmt.Errorf("%s has no column %q", d.Name, p.Attribute)
	}
	col := s.qualify(alias, p.Attribute)
	value := storedValue(d, p.Attribute, p.Value)

	switch p.Operator {
	case store.OpEq:
		return sq.Eq{col: value}, nil
	case store.OpNot:
		return sq.NotEq{col: value}, nil
	case store.OpIn:
		return sq.Eq{col: asList(value)}, nil
	case store.OpNotIn:
		return sq.NotEq{col: asList(value)}, nil
	case store.OpLt:
		return sq.Lt{col: value}, nil
	case store.OpLte:
		return sq.LtOrEq{col: value}, nil
	case store.OpGt:
		return sq.Gt{col: value}, nil
	case store.OpGte:
		return sq.GtOrEq{col: value}, nil
	case store.OpContains:
		return like(col, "%"+sqlutil.EscapeLike(fmt.Sprint(value))+"%"), nil
	case store.OpStartsWith:
		return like(col, sqlutil.EscapeLike(fmt.Sprint(value))+"%"), nil
	case store.OpEndsWith:
		return like(col, "%"+sqlutil.EscapeLike(fmt.Sprint(value))), nil
	case store.OpIsNull:
		if isNull, _ := value.(bool); isNull {
			return sq.Eq{col: nil}, nil
		}
		return sq.NotEq{col: nil}, nil
	default:
		return nil, unsupported("operator %q on %s.%s", p.Operator, d.Name, p.Attribute)
	}
}

func like(col, pattern string) sq.Sqlizer {
	return sq.Expr(col+" LIKE ? ESCAPE '"+sqlutil.LikeEscape+"'", pattern)
}

func asList(value interface{}) []interface{} {
	switch typed := value.(type) {
	case nil:
		return []interface{}{}
	case []interface{}:
		return typed
	default:
		return []interface{}{typed}
	}
}

// related renders an EXISTS subquery over the association target.
func (s *Store) related(d *model.Descriptor, alias string, r store.RelatedFilter, seq *int) (sq.Sqlizer, error) {
	assoc, ok := d.Association(r.Association)
	if !ok {
		return nil, fmt.Errorf("%s has no association %q", d.Name, r.Association)
	}
	if assoc.Through != "" || assoc.Polymorphic {
		return nil, unsupported("filter %s.%s", d.Name, r.Association)
	}
	target, err := s.lookup(assoc.Target)
	if err != nil {
		return nil, err
	}

	*seq++
	subAlias := s.quote(fmt.Sprintf("r%d", *seq))
	on, onArgs := s.correlate(assoc, d, alias, subAlias)
	sub := sq.Select("1").
		From(s.quote(target.Name) + " AS " + subAlias).
		Where(sq.Expr(on, onArgs...))

	if !r.Filter.IsEmpty() {
		nested, err := s.condition(target, subAlias, r.Filter, seq)
		if err != nil {
			return nil, err
		}
		sub = sub.Where(nested)
	}

	sqlStr, args, err := sub.ToSql()
	if err != nil {
		return nil, err
	}
	return sq.Expr("EXISTS ("+sqlStr+")", args...), nil
}
